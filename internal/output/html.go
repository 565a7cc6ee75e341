package output

import (
	"fmt"
	"html"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/oasislearninghub/oasis/internal/core"
	"github.com/oasislearninghub/oasis/internal/core/ratelimit"
)

const receiptStyle = `body { font-family: Arial, sans-serif; padding: 40px; }
h1 { color: #2E7D32; }
table.receipt td:first-child { font-weight: bold; width: 150px; }`

// HTMLFormatter renders printable HTML.
type HTMLFormatter struct{}

func (f *HTMLFormatter) FormatEnrollments(enrollments []core.Enrollment) (string, error) {
	return enrollmentTable(enrollments).RenderHTML(), nil
}

// FormatReceipt renders a standalone printable page.
func (f *HTMLFormatter) FormatReceipt(enrollment *core.Enrollment) (string, error) {
	if enrollment == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.Style().HTML.CSSClass = "receipt"
	for _, field := range receiptFields(enrollment) {
		t.AppendRow(table.Row{field.Label, field.Value})
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString(fmt.Sprintf("<title>Enrollment Receipt - %s</title>\n", html.EscapeString(enrollment.ID)))
	sb.WriteString("<style>\n" + receiptStyle + "\n</style>\n</head>\n<body>\n")
	sb.WriteString(fmt.Sprintf("<h1>%s</h1>\n<h2>Enrollment Receipt</h2>\n", Organization))
	sb.WriteString(t.RenderHTML())
	sb.WriteString(fmt.Sprintf("\n<p>Thank you for choosing %s!</p>\n</body>\n</html>\n", Organization))
	return sb.String(), nil
}

func (f *HTMLFormatter) FormatPolicies(policies []ratelimit.Policy) (string, error) {
	return policyTable(policies).RenderHTML(), nil
}
