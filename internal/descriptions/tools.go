package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	// Conversion Tools
	PDFConvertFileDescription = `Convert a PDF or scanned image into an editable document while keeping its structure.

**When to use:** Need a PDF as Word, HTML, Markdown, plain text or YAML, or need a watermarked copy of a PDF.

**Why it's useful:** Rebuilds headings, paragraphs, list items and tables from the positions and fonts of the text instead of dumping one long string.

**Examples:**
• Editable contract: "Convert contract.pdf to docx so I can redline it"
• Publish a report: "Convert annual-report.pdf to html for the intranet"
• Mark a draft: "Convert draft.pdf to pdf with watermark CONFIDENTIAL"

**Common workflows:**
1. Editing: Validate → Convert to docx → Open the _converted file
2. Publishing: Reconstruct layout → Check tables → Convert to html or md
3. Distribution: Convert to pdf with watermark_text → Share the watermarked copy

**Best practices:** Output is written next to the source as <name>_converted.<ext> unless output_dir is set. Watermarks only apply to pdf output. Files containing national ID numbers are blocked unless allow_sensitive is true.`

	PDFReconstructLayoutDescription = `Show the reconstructed structure of a document without writing any file.

**When to use:** Want to see how a document will be split into headings, paragraphs, lists and tables before converting it.

**Why it's useful:** Reveals heading levels, list markers and table cells so you can pick the best target format or spot layouts the heuristics handle poorly.

**Examples:**
• Check tables: "Show the layout of invoice.pdf and list its tables"
• Outline: "Get the headings of handbook.pdf"
• Scanned page: "Reconstruct scan.png to see what OCR recovered"

**Common workflows:**
1. Preview: Reconstruct → Review stats → Convert
2. Data capture: Reconstruct → Read table rows → Feed downstream

**Best practices:** Multi-column pages and rotated text are not reconstructed reliably; check the stats for empty pages, which usually mean a scanned PDF.`

	// Basic Tools
	PDFValidateFileDescription = `Verify that a file can be converted before processing it.

**When to use:** Before converting any file, especially in automated workflows or when handling user uploads.

**Why it's useful:** Checks type, size and readability of PDFs and images, and reports structural warnings that might affect extraction.

**Examples:**
• Batch safety: "Validate all PDFs in /invoices/ before bulk conversion"
• Upload check: "Check user-uploaded scan.jpg is a readable image"

**Common workflows:**
1. Automated Processing: Validate → Convert if valid → Handle errors gracefully
2. Quality Check: Validate → Report issues → Fix or reject bad files

**Best practices:** Always run this first in automated workflows; warnings do not block conversion.`

	PDFSearchDirectoryDescription = `Find convertible files (PDF, PNG, JPEG) in the configured directory with fuzzy filename matching.

**When to use:** Looking for specific documents or want to see what can be converted.

**Why it's useful:** Matches partial names and separate words, skips files that are too large or unsupported, and stays inside the configured directory.

**Examples:**
• Find invoices: "Search for files with 'invoice 2024' in the name"
• List everything: "Show all convertible files in the reports folder"

**Common workflows:**
1. Discovery: Search → Validate → Convert
2. Batch: Search with query → Convert each match

**Best practices:** Leave directory empty to search the configured directory; use limit on large trees.`

	PDFScreenTextDescription = `Check a file name or text for sensitive identifiers such as national ID numbers.

**When to use:** Before sharing or converting content that may contain personal data.

**Why it's useful:** Uses the same rules that block conversions, so you know in advance whether a document will be refused. Matches are masked in the report.

**Examples:**
• Pre-flight: "Screen this paragraph before I convert the file"
• File names: "Check whether applicant_110101199003074477.pdf would be blocked"

**Best practices:** Findings include the rule name, masked value, offset and whether the check digit verified.`

	PDFAnalyzeDocumentDescription = `Analyze a document's structure, content or metadata with a local language model.

**When to use:** Need a summary, key points, document type or likely metadata of a document.

**Why it's useful:** Sends the reconstructed text to an Ollama-compatible server on your machine, so document content never leaves it.

**Examples:**
• Summary: "Analyze report.pdf content and give me the key points"
• Classification: "Analyze letter.pdf structure to find its document type"

**Common workflows:**
1. Triage: Search → Analyze (metadata) → Convert the relevant ones
2. Review: Reconstruct → Analyze (content) → Share the summary

**Best practices:** Check llm_status first. analysis_type is one of all, structure, content, metadata. Screening applies before any text is sent.`

	ConversionHistoryDescription = `List recent conversions or fetch one conversion by id.

**When to use:** Need to find an output file, audit what was converted, or see why a conversion failed or was blocked.

**Why it's useful:** Every conversion attempt is recorded with status, output path, page, block and table counts and duration.

**Examples:**
• Audit: "Show the last 10 conversions"
• Follow up: "Get conversion 6f1c... and tell me where the output went"

**Best practices:** Blocked conversions are recorded with status "blocked" and the reason.`

	LLMStatusDescription = `Report whether the local inference server is reachable and which models it offers.

**When to use:** Before pdf_analyze_document, or when analysis fails.

**Why it's useful:** Shows the configured endpoint and model alongside the models the server actually has.

**Best practices:** Start the server (for example "ollama serve") and pull the configured model if it is missing.`

	PDFServerInfoDescription = `Get server capabilities, configuration and the files available for conversion.

**When to use:** Starting a session, unsure which formats are supported, or need to see the configured directory.

**Why it's useful:** Lists every tool with usage notes, supported input types, target formats, whether OCR is compiled in, and the first files of the configured directory.

**Best practices:** Call this first in a new session; the directory listing is cached for five minutes.`
)

// ToolDescriptions maps tool names to their comprehensive descriptions
var ToolDescriptions = map[string]string{
	"pdf_convert_file":       PDFConvertFileDescription,
	"pdf_reconstruct_layout": PDFReconstructLayoutDescription,
	"pdf_validate_file":      PDFValidateFileDescription,
	"pdf_search_directory":   PDFSearchDirectoryDescription,
	"pdf_screen_text":        PDFScreenTextDescription,
	"pdf_analyze_document":   PDFAnalyzeDocumentDescription,
	"conversion_history":     ConversionHistoryDescription,
	"llm_status":             LLMStatusDescription,
	"pdf_server_info":        PDFServerInfoDescription,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns every described tool name in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
