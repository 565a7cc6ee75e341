package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/oasislearninghub/oasis/internal/core"
	"github.com/oasislearninghub/oasis/internal/core/phone"
	"github.com/oasislearninghub/oasis/internal/core/ratelimit"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Organization appears on printed receipts.
const Organization = "Oasis Learning Hub"

// Formatter renders enrollments, receipts and policy listings.
type Formatter interface {
	FormatEnrollments(enrollments []core.Enrollment) (string, error)
	FormatReceipt(enrollment *core.Enrollment) (string, error)
	FormatPolicies(policies []ratelimit.Policy) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable), "text":
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	case string(FormatHTML):
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// ContentType is the HTTP media type for rendered output.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	case FormatHTML:
		return &HTMLFormatter{}
	default:
		return &TableFormatter{}
	}
}

type receiptField struct {
	Label string
	Value string
}

func receiptFields(e *core.Enrollment) []receiptField {
	return []receiptField{
		{"Enrollment ID", e.ID},
		{"Student Name", e.StudentName},
		{"Age", e.Age},
		{"Grade", e.Grade},
		{"Parent/Guardian", e.ParentName},
		{"Email", e.Email},
		{"Phone", phone.Display(e.Phone)},
		{"Program", e.Program},
		{"Submitted", formatTime(e.SubmittedAt)},
		{"Status", string(e.Status)},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Jan 2, 2006 3:04 PM MST")
}

func formatWindow(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
	return d.String()
}
