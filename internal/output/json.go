package output

import (
	"encoding/json"

	"github.com/oasislearninghub/oasis/internal/core"
	"github.com/oasislearninghub/oasis/internal/core/ratelimit"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

type policyJSON struct {
	Name          string `json:"name"`
	Capacity      int    `json:"capacity"`
	WindowSeconds int64  `json:"window_seconds"`
}

func (f *JSONFormatter) FormatEnrollments(enrollments []core.Enrollment) (string, error) {
	if enrollments == nil {
		enrollments = []core.Enrollment{}
	}
	return f.marshal(enrollments)
}

func (f *JSONFormatter) FormatReceipt(enrollment *core.Enrollment) (string, error) {
	if enrollment == nil {
		return "", nil
	}
	return f.marshal(enrollment)
}

func (f *JSONFormatter) FormatPolicies(policies []ratelimit.Policy) (string, error) {
	out := make([]policyJSON, 0, len(policies))
	for _, p := range policies {
		out = append(out, policyJSON{Name: p.Name, Capacity: p.Capacity, WindowSeconds: int64(p.Window.Seconds())})
	}
	return f.marshal(out)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
