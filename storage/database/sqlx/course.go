package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/course"
)

type courseRow struct {
	ID           string         `db:"id"`
	Title        null.String    `db:"title"`
	Code         string         `db:"code"`
	InstructorID null.String    `db:"instructor_id"`
	Department   null.String    `db:"department"`
	Credits      null.Int       `db:"credits"`
	Semester     string         `db:"semester"`
	Year         int            `db:"year"`
	MaxStudents  null.Int       `db:"max_students"`
	StudentIDs   pq.StringArray `db:"student_ids"`
	CreatedAt    null.Time      `db:"created_at"`
	UpdatedAt    null.Time      `db:"updated_at"`
}

func (r courseRow) unpack() course.Course {
	return course.Course{
		ID:           r.ID,
		Title:        r.Title.String,
		Code:         r.Code,
		InstructorID: r.InstructorID.String,
		Department:   r.Department.String,
		Credits:      r.Credits.Int,
		Semester:     r.Semester,
		Year:         r.Year,
		MaxStudents:  r.MaxStudents.Int,
		StudentIDs:   []string(r.StudentIDs),
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

func packCourse(crs course.Course) courseRow {
	return courseRow{
		ID:           crs.ID,
		Title:        null.NewString(crs.Title, crs.Title != ""),
		Code:         crs.Code,
		InstructorID: null.NewString(crs.InstructorID, crs.InstructorID != ""),
		Department:   null.NewString(crs.Department, crs.Department != ""),
		Credits:      null.IntFrom(crs.Credits),
		Semester:     crs.Semester,
		Year:         crs.Year,
		MaxStudents:  null.IntFrom(crs.MaxStudents),
		StudentIDs:   pqStringArray(crs.StudentIDs),
		CreatedAt:    null.NewTime(crs.CreatedAt.UTC(), !crs.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(crs.UpdatedAt.UTC(), !crs.UpdatedAt.IsZero()),
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func trapCourseNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CheckCodeUniqueness(ctx context.Context, code, semester string, year int, excludedCourses ...course.Course) error {
	query := `SELECT EXISTS (SELECT 1 FROM course WHERE code = $1 AND semester = $2 AND year = $3 AND NOT (id::text = ANY($4)))`
	ids := make([]string, 0, len(excludedCourses))
	for _, c := range excludedCourses {
		ids = append(ids, c.ID)
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, code, semester, year, pqStringArray(ids)); err != nil {
		return errors.Wrap(err, "checking course uniqueness")
	}
	if exists {
		return course.ErrCodeExists
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	row := packCourse(crs)
	query := `
INSERT INTO course (id, title, code, instructor_id, department, credits, semester, year, max_students, student_ids, created_at, updated_at)
VALUES (:id, :title, :code, :instructor_id, :department, :credits, :semester, :year, :max_students, :student_ids, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return row.unpack(), nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, trapCourseNoRowsErr(err, "finding course by ID")
	}
	return row.unpack(), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	query := `SELECT * FROM course`
	var args []interface{}

	if filter != nil {
		qb := newQueryBuilder()
		// courses with Title or Code matching the search keyword
		if filter.Search != "" {
			qb.where("(title ILIKE ? OR code ILIKE ?)", "%"+filter.Search+"%", "%"+filter.Search+"%")
		}
		if filter.Department != "" {
			qb.where("department = ?", filter.Department)
		}
		if filter.Semester != "" {
			qb.where("semester = ?", filter.Semester)
		}
		if filter.Year != 0 {
			qb.where("year = ?", filter.Year)
		}
		if filter.InstructorID != "" {
			qb.where("instructor_id = ?", filter.InstructorID)
		}
		query += qb.clause()
		args = qb.args
	}
	query += orderBy(ordering, "title", "code", "department", "credits", "semester", "year", "created_at")

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.unpack())
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	query := `
UPDATE course
SET title = :title, code = :code, instructor_id = :instructor_id, department = :department,
    credits = :credits, max_students = :max_students, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, packCourse(crs))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourseByID(ctx, crs.ID)
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id::text = ANY($1)`, pqStringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting courses")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

// EnrollStudent appends the student in a single guarded UPDATE so a concurrent
// enrollment cannot push the roster past max_students.
func (repo courseRepository) EnrollStudent(ctx context.Context, courseID, studentID string) (course.Course, error) {
	query := `
UPDATE course
SET student_ids = array_append(student_ids, $1), updated_at = now()
WHERE id = $2
  AND NOT (student_ids @> ARRAY[$1])
  AND COALESCE(array_length(student_ids, 1), 0) < max_students`
	res, err := repo.db.ExecContext(ctx, query, studentID, courseID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "enrolling student")
	}

	cnt, _ := res.RowsAffected()
	crs, gerr := repo.GetCourseByID(ctx, courseID)
	if gerr != nil {
		return course.Course{}, gerr
	}
	if cnt == 0 {
		if crs.HasStudent(studentID) {
			return course.Course{}, course.ErrAlreadyEnrolled
		}
		return course.Course{}, course.ErrCourseFull
	}
	return crs, nil
}

func (repo courseRepository) UnenrollStudent(ctx context.Context, courseID, studentID string) (course.Course, error) {
	query := `
UPDATE course
SET student_ids = array_remove(student_ids, $1), updated_at = now()
WHERE id = $2 AND student_ids @> ARRAY[$1]`
	res, err := repo.db.ExecContext(ctx, query, studentID, courseID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "unenrolling student")
	}

	cnt, _ := res.RowsAffected()
	crs, gerr := repo.GetCourseByID(ctx, courseID)
	if gerr != nil {
		return course.Course{}, gerr
	}
	if cnt == 0 {
		return course.Course{}, course.ErrNotEnrolled
	}
	return crs, nil
}
