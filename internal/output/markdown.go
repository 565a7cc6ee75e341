package output

import (
	"fmt"
	"strings"

	"github.com/oasislearninghub/oasis/internal/core"
	"github.com/oasislearninghub/oasis/internal/core/ratelimit"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) FormatEnrollments(enrollments []core.Enrollment) (string, error) {
	return "## Enrollments\n\n" + enrollmentTable(enrollments).RenderMarkdown() + "\n", nil
}

func (f *MarkdownFormatter) FormatReceipt(enrollment *core.Enrollment) (string, error) {
	if enrollment == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n## Enrollment Receipt\n\n", Organization))
	for _, field := range receiptFields(enrollment) {
		sb.WriteString(fmt.Sprintf("- **%s:** %s\n", field.Label, escapeMarkdown(field.Value)))
	}
	sb.WriteString(fmt.Sprintf("\nThank you for choosing %s!\n", Organization))
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatPolicies(policies []ratelimit.Policy) (string, error) {
	return policyTable(policies).RenderMarkdown() + "\n", nil
}

func escapeMarkdown(value string) string {
	return strings.NewReplacer("|", "\\|", "*", "\\*", "_", "\\_").Replace(value)
}
