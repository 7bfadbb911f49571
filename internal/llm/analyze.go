package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AnalysisKind selects what the model is asked about a document
type AnalysisKind string

const (
	AnalyzeAll       AnalysisKind = "all"
	AnalyzeStructure AnalysisKind = "structure"
	AnalyzeContent   AnalysisKind = "content"
	AnalyzeMetadata  AnalysisKind = "metadata"
)

// ParseAnalysisKind maps a name to a kind; empty means all
func ParseAnalysisKind(s string) (AnalysisKind, error) {
	switch k := AnalysisKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return AnalyzeAll, nil
	case AnalyzeAll, AnalyzeStructure, AnalyzeContent, AnalyzeMetadata:
		return k, nil
	default:
		return "", fmt.Errorf("unknown analysis type %q", s)
	}
}

// Analysis is the model's answer. Fields holds the decoded JSON object when
// the model returned one; otherwise Text holds the raw reply.
type Analysis struct {
	Kind   AnalysisKind   `json:"kind"`
	Fields map[string]any `json:"fields,omitempty"`
	Text   string         `json:"text,omitempty"`
}

// Analyze asks the model to describe document content
func (c *Client) Analyze(ctx context.Context, content string, kind AnalysisKind) (*Analysis, error) {
	reply, err := c.Generate(ctx, analysisPrompt(content, kind))
	if err != nil {
		return nil, err
	}

	a := &Analysis{Kind: kind}
	if err := json.Unmarshal([]byte(extractJSON(reply)), &a.Fields); err != nil {
		a.Fields = nil
		a.Text = reply
	}
	return a, nil
}

func analysisPrompt(content string, kind AnalysisKind) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following document. Analysis type: %s\n\nDocument:\n%s\n\n", kind, content)

	switch kind {
	case AnalyzeStructure:
		b.WriteString("Describe the document structure: heading hierarchy, paragraph organisation and lists.")
	case AnalyzeContent:
		b.WriteString("Describe the content: topic, key facts and a summary.")
	case AnalyzeMetadata:
		b.WriteString("Extract metadata: author, creation date and keywords.")
	default:
		b.WriteString("Give a complete analysis covering structure, content and metadata.")
	}

	b.WriteString("\n\nReply with a JSON object with the fields structure, content, metadata, summary and confidence (0-1).")
	return b.String()
}

// extractJSON strips a fenced code block around the reply, if any
func extractJSON(reply string) string {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
