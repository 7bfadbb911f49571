// Package screening looks for sensitive identifiers in file names and
// extracted text before a document is converted.
package screening

import (
	"fmt"
	"regexp"
	"strings"
)

// NationalIDRule is the name of the built-in resident ID rule
const NationalIDRule = "national_id"

// Rule is a named pattern. Validate, when set, confirms a raw match.
type Rule struct {
	Name     string
	Pattern  *regexp.Regexp
	Validate func(match string) bool
}

// Finding is one sensitive match. Value is masked.
type Finding struct {
	Rule     string `json:"rule"`
	Value    string `json:"value"`
	Offset   int    `json:"offset"`
	Verified bool   `json:"verified"`
}

// Screener applies rules to text
type Screener struct {
	rules []Rule
	// Strict drops matches whose Validate check fails
	Strict bool
}

// NationalID matches 18-character resident identity numbers and verifies
// their check character
func NationalID() Rule {
	return Rule{
		Name:     NationalIDRule,
		Pattern:  regexp.MustCompile(`\d{17}[\dXx]`),
		Validate: ValidNationalID,
	}
}

// NewScreener creates a screener with the national ID rule plus extra
func NewScreener(extra ...Rule) *Screener {
	return &Screener{rules: append([]Rule{NationalID()}, extra...)}
}

// ParseRule builds a rule from "name=regexp"
func ParseRule(def string) (Rule, error) {
	name, expr, ok := strings.Cut(def, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.TrimSpace(expr) == "" {
		return Rule{}, fmt.Errorf("invalid screening rule %q: want name=pattern", def)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid screening rule %q: %w", name, err)
	}
	return Rule{Name: name, Pattern: re}, nil
}

// Rules returns the rule names in evaluation order
func (s *Screener) Rules() []string {
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.Name
	}
	return names
}

// Scan returns every finding in text, ordered by rule then offset
func (s *Screener) Scan(text string) []Finding {
	var findings []Finding
	for _, r := range s.rules {
		for _, loc := range r.Pattern.FindAllStringIndex(text, -1) {
			match := text[loc[0]:loc[1]]
			verified := r.Validate == nil || r.Validate(match)
			if s.Strict && !verified {
				continue
			}
			findings = append(findings, Finding{
				Rule:     r.Name,
				Value:    Mask(match),
				Offset:   loc[0],
				Verified: verified,
			})
		}
	}
	return findings
}

// Sensitive reports whether text has any finding
func (s *Screener) Sensitive(text string) bool {
	return len(s.Scan(text)) > 0
}

// Allowed reports whether neither the file name nor the text is sensitive
func (s *Screener) Allowed(name, text string) bool {
	return !s.Sensitive(name) && !s.Sensitive(text)
}

// Mask keeps the first three and last two characters of values longer than
// six characters and stars the rest
func Mask(value string) string {
	runes := []rune(value)
	if len(runes) <= 6 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:3]) + strings.Repeat("*", len(runes)-5) + string(runes[len(runes)-2:])
}

var idWeights = [17]int{7, 9, 10, 5, 8, 4, 2, 1, 6, 3, 7, 9, 10, 5, 8, 4, 2}

const idCheckChars = "10X98765432"

// ValidNationalID checks the ISO 7064 MOD 11-2 check character of an
// 18-character resident ID
func ValidNationalID(id string) bool {
	if len(id) != 18 {
		return false
	}
	sum := 0
	for i := 0; i < 17; i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return false
		}
		sum += int(c-'0') * idWeights[i]
	}
	return strings.ToUpper(id[17:]) == string(idCheckChars[sum%11])
}
