package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/chuo/core"
)

// Course is an offering for a given semester/year. Code is unique per
// (semester, year) and enrollment may not exceed MaxStudents; both are
// enforced by the repository, not just here.
type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Code         string    `json:"code"`
	InstructorID string    `json:"instructor_id,omitempty"`
	Department   string    `json:"department,omitempty"`
	Credits      int       `json:"credits"`
	Semester     string    `json:"semester"`
	Year         int       `json:"year"`
	MaxStudents  int       `json:"max_students"`
	StudentIDs   []string  `json:"student_ids"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (c *Course) IsFull() bool {
	return len(c.StudentIDs) >= c.MaxStudents
}

func (c *Course) HasStudent(studentID string) bool {
	for _, id := range c.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title        string `json:"title" validate:"required"`
	Code         string `json:"code" validate:"required,alphanum_"`
	InstructorID string `json:"instructor_id" validate:"omitempty,uuid4"`
	Department   string `json:"department"`
	Credits      int    `json:"credits" validate:"gte=0,lte=60"`
	Semester     string `json:"semester" validate:"required,semester"`
	Year         int    `json:"year" validate:"required,gte=2000,lte=2100"`
	MaxStudents  int    `json:"max_students" validate:"required,gte=1"`
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Code = core.CleanString(nc.Code, true /* lower */)
	nc.Department = core.CleanString(nc.Department)
	nc.Semester = core.CleanString(nc.Semester, true /* lower */)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ctx, nc.Code, nc.Semester, nc.Year)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Zero fields are left unchanged; enrollment is managed via Enroll/Unenroll only.
type UpdateCourse struct {
	Title        string `json:"title"`
	Code         string `json:"code" validate:"omitempty,alphanum_"`
	InstructorID string `json:"instructor_id" validate:"omitempty,uuid4"`
	Department   string `json:"department"`
	Credits      *int   `json:"credits" validate:"omitempty,gte=0,lte=60"`
	MaxStudents  *int   `json:"max_students" validate:"omitempty,gte=1"`
}

func (uc *UpdateCourse) Validate(ctx context.Context, orig Course, validate *validator.Validate, svc Service) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Department = core.CleanString(uc.Department)

	code := core.CleanString(uc.Code, true /* lower */)
	if code != "" {
		uc.Code = code
	} else {
		uc.Code = orig.Code
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ctx, uc.Code, orig.Semester, orig.Year, orig)
}

type QueryFilter struct {
	Search       string `query:"search"`
	Department   string `query:"department"`
	Semester     string `query:"semester"`
	Year         int    `query:"year"`
	InstructorID string `query:"instructor"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Department == "" && qf.Semester == "" && qf.Year == 0 && qf.InstructorID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Department = core.CleanString(qf.Department)
	qf.Semester = core.CleanString(qf.Semester, true /* lower */)
}
