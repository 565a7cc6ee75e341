package store

import (
	"strings"
	"testing"
	"time"

	"github.com/oasislearninghub/oasis/internal/core"
	"github.com/stretchr/testify/require"
)

func TestParseEnrollmentsJSONList(t *testing.T) {
	input := `[
	  {"id": "ENR-1", "studentName": "Ada", "age": 9, "grade": "4", "phone": "555-123-4567",
	   "submittedAt": "2025-03-14T09:30:00.000Z", "status": "Confirmed"},
	  {"id": "ENR-2", "studentName": "Bo", "age": "10", "submittedAt": 1700000000000}
	]`

	got, err := ParseEnrollments(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "9", got[0].Age)
	require.Equal(t, core.StatusConfirmed, got[0].Status)
	require.Equal(t, time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC), got[0].SubmittedAt)

	require.Equal(t, "10", got[1].Age)
	require.Equal(t, core.StatusPending, got[1].Status)
	require.Equal(t, time.UnixMilli(1700000000000).UTC(), got[1].SubmittedAt)
}

func TestParseEnrollmentsYAMLDocument(t *testing.T) {
	input := `
enrollments:
  - id: ENR-9
    studentName: Cy
    grade: 2
    submittedAt: 2025-01-02T03:04:05Z
`
	got, err := ParseEnrollments(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "2", got[0].Grade)
	require.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), got[0].SubmittedAt)
}

func TestParseEnrollmentsErrors(t *testing.T) {
	tests := map[string]string{
		"scalar":    `hello`,
		"missingID": `[{"studentName": "x"}]`,
		"badTime":   `[{"id": "a", "submittedAt": "yesterday"}]`,
		"badSyntax": `[{`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEnrollments(strings.NewReader(input))
			require.Error(t, err)
		})
	}
}

func TestParseEnrollmentsEmpty(t *testing.T) {
	got, err := ParseEnrollments(strings.NewReader("  \n"))
	require.NoError(t, err)
	require.Empty(t, got)
}
