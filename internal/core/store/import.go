package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oasislearninghub/oasis/internal/core"
)

// importRecord mirrors core.Enrollment with loosely typed fields, since
// exported records carry ages as numbers or strings and timestamps as
// ISO strings or epoch milliseconds.
type importRecord struct {
	ID          string `yaml:"id"`
	StudentName string `yaml:"studentName"`
	Age         any    `yaml:"age"`
	Grade       any    `yaml:"grade"`
	ParentName  string `yaml:"parentName"`
	Email       string `yaml:"email"`
	Phone       any    `yaml:"phone"`
	Program     string `yaml:"program"`
	SubmittedAt any    `yaml:"submittedAt"`
	Status      string `yaml:"status"`
}

type importDocument struct {
	Enrollments []importRecord `yaml:"enrollments"`
}

// ParseEnrollments decodes enrollments from YAML or JSON. The input is
// either a bare list or a mapping with an "enrollments" list.
func ParseEnrollments(r io.Reader) ([]core.Enrollment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read enrollments: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var records []importRecord
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse enrollments: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	switch root.Content[0].Kind {
	case yaml.SequenceNode:
		if err := root.Content[0].Decode(&records); err != nil {
			return nil, fmt.Errorf("decode enrollments: %w", err)
		}
	case yaml.MappingNode:
		var doc importDocument
		if err := root.Content[0].Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode enrollments: %w", err)
		}
		records = doc.Enrollments
	default:
		return nil, errors.New("enrollments must be a list or a mapping with an enrollments key")
	}

	out := make([]core.Enrollment, 0, len(records))
	for i, rec := range records {
		enrollment, err := rec.toEnrollment()
		if err != nil {
			return nil, fmt.Errorf("enrollment %d: %w", i+1, err)
		}
		out = append(out, enrollment)
	}
	return out, nil
}

func (r importRecord) toEnrollment() (core.Enrollment, error) {
	submitted, err := parseTimestamp(r.SubmittedAt)
	if err != nil {
		return core.Enrollment{}, err
	}

	e := core.Enrollment{
		ID:          r.ID,
		StudentName: r.StudentName,
		Age:         scalarString(r.Age),
		Grade:       scalarString(r.Grade),
		ParentName:  r.ParentName,
		Email:       r.Email,
		Phone:       scalarString(r.Phone),
		Program:     r.Program,
		SubmittedAt: submitted,
		Status:      core.EnrollmentStatus(r.Status),
	}
	e.Normalize()
	if e.ID == "" {
		return core.Enrollment{}, errors.New("id is required")
	}
	return e, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC(), nil
	case int:
		return time.UnixMilli(int64(t)).UTC(), nil
	case int64:
		return time.UnixMilli(t).UTC(), nil
	case uint64:
		return time.UnixMilli(int64(t)).UTC(), nil
	case float64:
		return time.UnixMilli(int64(t)).UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid submittedAt %q", s)
	default:
		return time.Time{}, fmt.Errorf("invalid submittedAt %v", v)
	}
}
