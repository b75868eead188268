package assignment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
)

var (
	// errors
	ErrNotFound           = errors.New("assignment not found")
	ErrSubmissionExists   = errors.New("student has already submitted this assignment")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrMarksOutOfRange    = errors.New("marks exceed the assignment's total marks")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
		QueryAssignmentsByCourse(ctx context.Context, courseID string, ordering []core.DBOrdering) ([]Assignment, error)
		UpdateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		DeleteAssignmentsByID(ctx context.Context, ids ...string) (int, error)
		// CreateSubmission enforces at most one submission per (assignment, student);
		// it fails with ErrSubmissionExists on a duplicate.
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmission(ctx context.Context, assignmentID, studentID string) (Submission, error)
		QuerySubmissions(ctx context.Context, assignmentID string) ([]Submission, error)
		UpdateSubmission(ctx context.Context, sub Submission) (Submission, error)
	}

	Service interface {
		Create(ctx context.Context, courseID string, na NewAssignment) (Assignment, error)
		GetByID(ctx context.Context, id string) (Assignment, error)
		QueryByCourse(ctx context.Context, courseID string, ordering []core.DBOrdering) ([]Assignment, error)
		Update(ctx context.Context, id string, ua UpdateAssignment) (Assignment, error)
		Delete(ctx context.Context, ids ...string) error
		Submit(ctx context.Context, assignmentID, studentID string) (Submission, error)
		GetSubmission(ctx context.Context, assignmentID, studentID string) (Submission, error)
		QuerySubmissions(ctx context.Context, assignmentID string) ([]Submission, error)
		Grade(ctx context.Context, assignmentID, studentID string, marks int) (Submission, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, courseID string, na NewAssignment) (Assignment, error) {
	now := time.Now().UTC()
	asg := Assignment{
		CourseID:    courseID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate.UTC(),
		TotalMarks:  na.TotalMarks,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateAssignment(ctx, asg)
}

func (svc *service) GetByID(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

func (svc *service) QueryByCourse(ctx context.Context, courseID string, ordering []core.DBOrdering) ([]Assignment, error) {
	return svc.repo.QueryAssignmentsByCourse(ctx, courseID, ordering)
}

func (svc *service) Update(ctx context.Context, id string, ua UpdateAssignment) (Assignment, error) {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}

	asg.UpdatedAt = time.Now().UTC()
	if ua.Title != "" {
		asg.Title = ua.Title
	}
	if ua.Description != "" {
		asg.Description = ua.Description
	}
	if ua.DueDate != nil {
		asg.DueDate = ua.DueDate.UTC()
	}
	if ua.TotalMarks != nil {
		asg.TotalMarks = *ua.TotalMarks
	}
	return svc.repo.UpdateAssignment(ctx, asg)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteAssignmentsByID(ctx, ids...)
	return err
}

func (svc *service) Submit(ctx context.Context, assignmentID, studentID string) (Submission, error) {
	if _, err := svc.repo.GetAssignmentByID(ctx, assignmentID); err != nil {
		return Submission{}, err
	}
	sub := Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		SubmittedAt:  time.Now().UTC(),
		Status:       StatusSubmitted,
	}
	return svc.repo.CreateSubmission(ctx, sub)
}

func (svc *service) GetSubmission(ctx context.Context, assignmentID, studentID string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, assignmentID, studentID)
}

func (svc *service) QuerySubmissions(ctx context.Context, assignmentID string) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, assignmentID)
}

func (svc *service) Grade(ctx context.Context, assignmentID, studentID string, marks int) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, assignmentID, studentID)
	if err != nil {
		return Submission{}, err
	}
	now := time.Now().UTC()
	sub.Marks = &marks
	sub.Status = StatusGraded
	sub.GradedAt = &now
	return svc.repo.UpdateSubmission(ctx, sub)
}
