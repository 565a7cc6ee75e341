package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/oasislearninghub/oasis/internal/core"
	"github.com/oasislearninghub/oasis/internal/core/ratelimit"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatEnrollments renders one row per enrollment.
func (f *TableFormatter) FormatEnrollments(enrollments []core.Enrollment) (string, error) {
	return enrollmentTable(enrollments).Render(), nil
}

// FormatReceipt renders a two-column receipt.
func (f *TableFormatter) FormatReceipt(enrollment *core.Enrollment) (string, error) {
	if enrollment == nil {
		return "", nil
	}
	t := receiptTable(enrollment)
	return t.Render() + "\nThank you for choosing " + Organization + "!\n", nil
}

// FormatPolicies renders the gate policies.
func (f *TableFormatter) FormatPolicies(policies []ratelimit.Policy) (string, error) {
	return policyTable(policies).Render(), nil
}

func enrollmentTable(enrollments []core.Enrollment) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Student", "Program", "Submitted", "Status"})
	for _, e := range enrollments {
		t.AppendRow(table.Row{e.ID, e.StudentName, e.Program, formatTime(e.SubmittedAt), string(e.Status)})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", fmt.Sprintf("%d", len(enrollments))})
	return t
}

func receiptTable(e *core.Enrollment) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(Organization + " - Enrollment Receipt")
	for _, field := range receiptFields(e) {
		t.AppendRow(table.Row{field.Label, field.Value})
	}
	return t
}

func policyTable(policies []ratelimit.Policy) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Policy", "Capacity", "Window"})
	for _, p := range policies {
		t.AppendRow(table.Row{p.Name, p.Capacity, formatWindow(p.Window)})
	}
	return t
}
