package assignment

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/chuo/core"
)

// Submission statuses
const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusGraded    = "graded"
)

// Assignment belongs to a Course; student work is tracked as Submissions,
// at most one per (assignment, student).
type Assignment struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     time.Time `json:"due_date"`
	TotalMarks  int       `json:"total_marks"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type Submission struct {
	ID           string     `json:"id"`
	AssignmentID string     `json:"assignment_id"`
	StudentID    string     `json:"student_id"`
	SubmittedAt  time.Time  `json:"submitted_at"` // UTC
	Marks        *int       `json:"marks"`
	Status       string     `json:"status"`
	GradedAt     *time.Time `json:"graded_at,omitempty"` // UTC
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	TotalMarks  int       `json:"total_marks" validate:"required,gte=1"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

// UpdateAssignment defines what information may be provided to modify an existing Assignment.
type UpdateAssignment struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	TotalMarks  *int       `json:"total_marks" validate:"omitempty,gte=1"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	ua.Description = core.CleanString(ua.Description)
	return validate.Struct(ua)
}

// GradeSubmission carries a grade for one student's submission.
type GradeSubmission struct {
	Marks *int `json:"marks" validate:"required,gte=0"`
}

func (gs *GradeSubmission) Validate(ctx context.Context, asg Assignment, validate *validator.Validate) error {
	if err := validate.Struct(gs); err != nil {
		return err
	}
	if *gs.Marks > asg.TotalMarks {
		return core.NewValidationError(nil, core.FieldError{Field: "marks", Error: ErrMarksOutOfRange.Error()})
	}
	return nil
}
