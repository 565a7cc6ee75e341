package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oasislearninghub/oasis/internal/core"
)

const enrollmentColumns = `id, student_name, age, grade, parent_name, email, phone, program, submitted_at, status`

// LookupEnrollment returns the enrollment with id, or nil when none exists.
func (s *Store) LookupEnrollment(ctx context.Context, id string) (*core.Enrollment, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = ?`, id)
	enrollment, err := scanEnrollment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch enrollment: %w", err)
	}
	return enrollment, nil
}

// ListEnrollments returns every enrollment, oldest submission first.
func (s *Store) ListEnrollments(ctx context.Context) ([]core.Enrollment, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+enrollmentColumns+` FROM enrollments ORDER BY submitted_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var out []core.Enrollment
	for rows.Next() {
		enrollment, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, *enrollment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return out, nil
}

// UpsertEnrollment inserts or replaces an enrollment.
func (s *Store) UpsertEnrollment(ctx context.Context, enrollment core.Enrollment) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	return upsertEnrollment(ctx, s.DB, enrollment)
}

// ImportEnrollments upserts all enrollments in one transaction and returns
// how many were written.
func (s *Store) ImportEnrollments(ctx context.Context, enrollments []core.Enrollment) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, enrollment := range enrollments {
		if err := upsertEnrollment(ctx, tx, enrollment); err != nil {
			return 0, fmt.Errorf("import enrollment %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(enrollments), nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertEnrollment(ctx context.Context, db execer, enrollment core.Enrollment) error {
	enrollment.Normalize()
	if enrollment.ID == "" {
		return errors.New("enrollment id is required")
	}
	if enrollment.StudentName == "" {
		return fmt.Errorf("enrollment %s: student name is required", enrollment.ID)
	}

	submitted := enrollment.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO enrollments (id, student_name, age, grade, parent_name, email, phone, program, submitted_at, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			student_name = excluded.student_name,
			age = excluded.age,
			grade = excluded.grade,
			parent_name = excluded.parent_name,
			email = excluded.email,
			phone = excluded.phone,
			program = excluded.program,
			submitted_at = excluded.submitted_at,
			status = excluded.status,
			updated_at = excluded.updated_at
	`,
		enrollment.ID,
		enrollment.StudentName,
		enrollment.Age,
		enrollment.Grade,
		enrollment.ParentName,
		enrollment.Email,
		enrollment.Phone,
		enrollment.Program,
		submitted.UTC().UnixMilli(),
		string(enrollment.Status),
		time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert enrollment: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnrollment(row rowScanner) (*core.Enrollment, error) {
	var (
		e           core.Enrollment
		age         sql.NullString
		grade       sql.NullString
		parentName  sql.NullString
		email       sql.NullString
		phone       sql.NullString
		program     sql.NullString
		submittedAt int64
		status      string
	)
	if err := row.Scan(&e.ID, &e.StudentName, &age, &grade, &parentName, &email, &phone, &program, &submittedAt, &status); err != nil {
		return nil, err
	}

	e.Age = age.String
	e.Grade = grade.String
	e.ParentName = parentName.String
	e.Email = email.String
	e.Phone = phone.String
	e.Program = program.String
	e.SubmittedAt = time.UnixMilli(submittedAt).UTC()
	e.Status = core.EnrollmentStatus(status)
	return &e, nil
}
