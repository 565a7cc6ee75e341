package core

import (
	"strings"
	"time"
)

// EnrollmentStatus is the review state of an enrollment.
type EnrollmentStatus string

const (
	StatusPending   EnrollmentStatus = "pending"
	StatusConfirmed EnrollmentStatus = "confirmed"
	StatusWaitlist  EnrollmentStatus = "waitlisted"
	StatusCancelled EnrollmentStatus = "cancelled"
)

// Enrollment is a submitted enrollment as stored by the site. Field names
// on the wire match the records the enrollment form writes.
type Enrollment struct {
	ID          string           `json:"id" yaml:"id"`
	StudentName string           `json:"studentName" yaml:"studentName"`
	Age         string           `json:"age" yaml:"age"`
	Grade       string           `json:"grade" yaml:"grade"`
	ParentName  string           `json:"parentName" yaml:"parentName"`
	Email       string           `json:"email" yaml:"email"`
	Phone       string           `json:"phone" yaml:"phone"`
	Program     string           `json:"program" yaml:"program"`
	SubmittedAt time.Time        `json:"submittedAt" yaml:"submittedAt"`
	Status      EnrollmentStatus `json:"status" yaml:"status"`
}

// Normalize trims free-text fields and fills the default status.
func (e *Enrollment) Normalize() {
	e.ID = strings.TrimSpace(e.ID)
	e.StudentName = strings.TrimSpace(e.StudentName)
	e.Age = strings.TrimSpace(e.Age)
	e.Grade = strings.TrimSpace(e.Grade)
	e.ParentName = strings.TrimSpace(e.ParentName)
	e.Email = strings.TrimSpace(e.Email)
	e.Phone = strings.TrimSpace(e.Phone)
	e.Program = strings.TrimSpace(e.Program)
	e.Status = EnrollmentStatus(strings.ToLower(strings.TrimSpace(string(e.Status))))
	if e.Status == "" {
		e.Status = StatusPending
	}
}
