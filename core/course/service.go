package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrCodeExists      = errors.New("a course with this code already exists for this semester")
	ErrCourseFull      = errors.New("course is full")
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this course")
	ErrNotEnrolled     = errors.New("student is not enrolled in this course")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code, semester string, year int, excludedCourses ...Course) error
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) (int, error)
		// EnrollStudent adds a student to a course as one conditional write:
		// it fails with ErrCourseFull or ErrAlreadyEnrolled without racing a
		// concurrent enrollment past MaxStudents.
		EnrollStudent(ctx context.Context, courseID, studentID string) (Course, error)
		UnenrollStudent(ctx context.Context, courseID, studentID string) (Course, error)
	}

	Service interface {
		CheckCodeUniqueness(ctx context.Context, code, semester string, year int, exclCourses ...Course) error
		Create(ctx context.Context, nc NewCourse) (Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, ids ...string) error
		Enroll(ctx context.Context, courseID, studentID string) (Course, error)
		Unenroll(ctx context.Context, courseID, studentID string) (Course, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckCodeUniqueness(ctx context.Context, code, semester string, year int, exclCourses ...Course) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, semester, year, exclCourses...); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:        nc.Title,
		Code:         nc.Code,
		InstructorID: nc.InstructorID,
		Department:   nc.Department,
		Credits:      nc.Credits,
		Semester:     nc.Semester,
		Year:         nc.Year,
		MaxStudents:  nc.MaxStudents,
		StudentIDs:   []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	orig, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}

	crs := orig
	crs.UpdatedAt = time.Now().UTC()
	if uc.Title != "" {
		crs.Title = uc.Title
	}
	if uc.Code != "" {
		crs.Code = uc.Code
	}
	if uc.InstructorID != "" {
		crs.InstructorID = uc.InstructorID
	}
	if uc.Department != "" {
		crs.Department = uc.Department
	}
	if uc.Credits != nil {
		crs.Credits = *uc.Credits
	}
	if uc.MaxStudents != nil {
		crs.MaxStudents = *uc.MaxStudents
	}
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteCoursesByID(ctx, ids...)
	return err
}

func (svc *service) Enroll(ctx context.Context, courseID, studentID string) (Course, error) {
	return svc.repo.EnrollStudent(ctx, courseID, studentID)
}

func (svc *service) Unenroll(ctx context.Context, courseID, studentID string) (Course, error) {
	return svc.repo.UnenrollStudent(ctx, courseID, studentID)
}
