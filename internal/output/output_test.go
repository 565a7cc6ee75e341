package output

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oasislearninghub/oasis/internal/core"
	"github.com/oasislearninghub/oasis/internal/core/ratelimit"
)

func sampleEnrollment() *core.Enrollment {
	return &core.Enrollment{
		ID:          "ENR-1001",
		StudentName: "Ada <Lovelace>",
		Age:         "9",
		Grade:       "4",
		ParentName:  "Anne",
		Email:       "anne@example.com",
		Phone:       "5551234567",
		Program:     "STEM Explorers",
		SubmittedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Status:      core.StatusConfirmed,
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("html")
	require.NoError(t, err)
	require.Equal(t, "text/html; charset=utf-8", format.ContentType())

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestTableReceipt(t *testing.T) {
	rendered, err := NewFormatter(FormatTable).FormatReceipt(sampleEnrollment())
	require.NoError(t, err)

	require.Contains(t, rendered, "Enrollment Receipt")
	require.Contains(t, rendered, "Parent/Guardian")
	require.Contains(t, rendered, "(555) 123-4567")
	require.Contains(t, rendered, "Mar 14, 2025 9:30 AM UTC")
	require.Contains(t, rendered, "Thank you for choosing Oasis Learning Hub!")
}

func TestMarkdownReceipt(t *testing.T) {
	rendered, err := NewFormatter(FormatMarkdown).FormatReceipt(sampleEnrollment())
	require.NoError(t, err)

	require.Contains(t, rendered, "# Oasis Learning Hub")
	require.Contains(t, rendered, "- **Enrollment ID:** ENR-1001")
	require.Contains(t, rendered, "- **Status:** confirmed")
}

func TestHTMLReceiptEscapes(t *testing.T) {
	rendered, err := NewFormatter(FormatHTML).FormatReceipt(sampleEnrollment())
	require.NoError(t, err)

	require.Contains(t, rendered, "<title>Enrollment Receipt - ENR-1001</title>")
	require.Contains(t, rendered, "Ada &lt;Lovelace&gt;")
	require.NotContains(t, rendered, "Ada <Lovelace>")
}

func TestJSONEnrollments(t *testing.T) {
	rendered, err := NewFormatter(FormatJSON).FormatEnrollments(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", rendered)

	rendered, err = NewFormatter(FormatJSON).FormatEnrollments([]core.Enrollment{*sampleEnrollment()})
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Equal(t, "Ada <Lovelace>", decoded[0]["studentName"])
	require.Equal(t, "confirmed", decoded[0]["status"])
}

func TestNilReceipt(t *testing.T) {
	for _, format := range []Format{FormatTable, FormatJSON, FormatMarkdown, FormatHTML} {
		rendered, err := NewFormatter(format).FormatReceipt(nil)
		require.NoError(t, err)
		require.Empty(t, rendered)
	}
}

func TestPolicies(t *testing.T) {
	policies := ratelimit.DefaultPolicies.Sorted()

	rendered, err := NewFormatter(FormatTable).FormatPolicies(policies)
	require.NoError(t, err)
	require.Contains(t, rendered, "click")
	require.Contains(t, rendered, "5m")

	rendered, err = NewFormatter(FormatJSON).FormatPolicies(policies)
	require.NoError(t, err)
	require.Contains(t, rendered, `"window_seconds": 300`)

	rendered, err = NewFormatter(FormatTable).FormatEnrollments([]core.Enrollment{*sampleEnrollment()})
	require.NoError(t, err)
	require.Contains(t, rendered, "STEM Explorers")
}
