package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/assignment"
)

type assignmentRow struct {
	ID          string      `db:"id"`
	CourseID    string      `db:"course_id"`
	Title       null.String `db:"title"`
	Description null.String `db:"description"`
	DueDate     time.Time   `db:"due_date"`
	TotalMarks  null.Int    `db:"total_marks"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

func (r assignmentRow) unpack() assignment.Assignment {
	return assignment.Assignment{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title.String,
		Description: r.Description.String,
		DueDate:     r.DueDate,
		TotalMarks:  r.TotalMarks.Int,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

func packAssignment(asg assignment.Assignment) assignmentRow {
	return assignmentRow{
		ID:          asg.ID,
		CourseID:    asg.CourseID,
		Title:       null.NewString(asg.Title, asg.Title != ""),
		Description: null.NewString(asg.Description, asg.Description != ""),
		DueDate:     asg.DueDate.UTC(),
		TotalMarks:  null.IntFrom(asg.TotalMarks),
		CreatedAt:   null.NewTime(asg.CreatedAt.UTC(), !asg.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(asg.UpdatedAt.UTC(), !asg.UpdatedAt.IsZero()),
	}
}

type submissionRow struct {
	ID           string      `db:"id"`
	AssignmentID string      `db:"assignment_id"`
	StudentID    string      `db:"student_id"`
	SubmittedAt  time.Time   `db:"submitted_at"`
	Marks        null.Int    `db:"marks"`
	Status       null.String `db:"status"`
	GradedAt     null.Time   `db:"graded_at"`
}

func (r submissionRow) unpack() assignment.Submission {
	sub := assignment.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		SubmittedAt:  r.SubmittedAt,
		Status:       r.Status.String,
	}
	if r.Marks.Valid {
		marks := r.Marks.Int
		sub.Marks = &marks
	}
	if r.GradedAt.Valid {
		gradedAt := r.GradedAt.Time
		sub.GradedAt = &gradedAt
	}
	return sub
}

func packSubmission(sub assignment.Submission) submissionRow {
	row := submissionRow{
		ID:           sub.ID,
		AssignmentID: sub.AssignmentID,
		StudentID:    sub.StudentID,
		SubmittedAt:  sub.SubmittedAt.UTC(),
		Status:       null.NewString(sub.Status, sub.Status != ""),
	}
	if sub.Marks != nil {
		row.Marks = null.IntFrom(*sub.Marks)
	}
	if sub.GradedAt != nil {
		row.GradedAt = null.TimeFrom(sub.GradedAt.UTC())
	}
	return row
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func trapAssignmentNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return assignment.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	asg.ID = uuid.New().String()
	row := packAssignment(asg)
	query := `
INSERT INTO assignment (id, course_id, title, description, due_date, total_marks, created_at, updated_at)
VALUES (:id, :course_id, :title, :description, :due_date, :total_marks, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return row.unpack(), nil
}

func (repo assignmentRepository) GetAssignmentByID(ctx context.Context, id string) (assignment.Assignment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM assignment WHERE id = $1`, id); err != nil {
		return assignment.Assignment{}, trapAssignmentNoRowsErr(err, "finding assignment by ID")
	}
	return row.unpack(), nil
}

func (repo assignmentRepository) QueryAssignmentsByCourse(ctx context.Context, courseID string, ordering []core.DBOrdering) ([]assignment.Assignment, error) {
	query := `SELECT * FROM assignment WHERE course_id = $1`
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "due_date", Ascending: true}}
	}
	query += orderBy(ordering, "title", "due_date", "total_marks", "created_at")

	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}

	asgs := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		asgs = append(asgs, r.unpack())
	}
	return asgs, nil
}

func (repo assignmentRepository) UpdateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	query := `
UPDATE assignment
SET title = :title, description = :description, due_date = :due_date, total_marks = :total_marks, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, packAssignment(asg))
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return repo.GetAssignmentByID(ctx, asg.ID)
}

func (repo assignmentRepository) DeleteAssignmentsByID(ctx context.Context, ids ...string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM assignment WHERE id::text = ANY($1)`, pqStringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting assignments")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

// CreateSubmission relies on the unique (assignment_id, student_id) index to
// reject a second submission from the same student.
func (repo assignmentRepository) CreateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	sub.ID = uuid.New().String()
	row := packSubmission(sub)
	query := `
INSERT INTO submission (id, assignment_id, student_id, submitted_at, marks, status, graded_at)
VALUES (:id, :assignment_id, :student_id, :submitted_at, :marks, :status, :graded_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" /* unique_violation */ {
			return assignment.Submission{}, assignment.ErrSubmissionExists
		}
		return assignment.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return row.unpack(), nil
}

func (repo assignmentRepository) GetSubmission(ctx context.Context, assignmentID, studentID string) (assignment.Submission, error) {
	var row submissionRow
	query := `SELECT * FROM submission WHERE assignment_id = $1 AND student_id = $2`
	if err := repo.db.GetContext(ctx, &row, query, assignmentID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return assignment.Submission{}, assignment.ErrSubmissionNotFound
		}
		return assignment.Submission{}, errors.Wrap(err, "finding submission")
	}
	return row.unpack(), nil
}

func (repo assignmentRepository) QuerySubmissions(ctx context.Context, assignmentID string) ([]assignment.Submission, error) {
	var rows []submissionRow
	query := `SELECT * FROM submission WHERE assignment_id = $1 ORDER BY submitted_at`
	if err := repo.db.SelectContext(ctx, &rows, query, assignmentID); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	subs := make([]assignment.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.unpack())
	}
	return subs, nil
}

func (repo assignmentRepository) UpdateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	query := `
UPDATE submission
SET marks = :marks, status = :status, graded_at = :graded_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, packSubmission(sub))
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "updating submission")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	return sub, nil
}
