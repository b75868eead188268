package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CheckCodeUniqueness(ctx context.Context, code, semester string, year int, excludedCourses ...course.Course) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedCourses))
	for _, crs := range excludedCourses {
		excluded[crs.ID] = true
	}

	for _, crs := range repo.db.table {
		if crs.Code == code && crs.Semester == semester && crs.Year == year && !excluded[crs.ID] {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs.ID = uuid.New().String()
	if crs.StudentIDs == nil {
		crs.StudentIDs = []string{}
	}
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var courses []course.Course
	for _, crs := range repo.db.table {
		if filter != nil && !matchCourse(*crs, filter) {
			continue
		}
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func matchCourse(crs course.Course, filter *course.QueryFilter) bool {
	if filter.Search != "" {
		kw := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(crs.Title), kw) && !strings.Contains(strings.ToLower(crs.Code), kw) {
			return false
		}
	}
	if filter.Department != "" && crs.Department != filter.Department {
		return false
	}
	if filter.Semester != "" && crs.Semester != filter.Semester {
		return false
	}
	if filter.Year != 0 && crs.Year != filter.Year {
		return false
	}
	if filter.InstructorID != "" && crs.InstructorID != filter.InstructorID {
		return false
	}
	return true
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	origCrs, ok := repo.db.table[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	origCrs.Title = crs.Title
	origCrs.Code = crs.Code
	origCrs.InstructorID = crs.InstructorID
	origCrs.Department = crs.Department
	origCrs.Credits = crs.Credits
	origCrs.MaxStudents = crs.MaxStudents
	origCrs.UpdatedAt = crs.UpdatedAt

	repo.db.table[crs.ID] = origCrs
	return *origCrs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}

// EnrollStudent checks capacity and appends under the write lock so concurrent
// enrollments cannot overshoot MaxStudents.
func (repo *courseRepository) EnrollStudent(ctx context.Context, courseID, studentID string) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	if crs.HasStudent(studentID) {
		return course.Course{}, course.ErrAlreadyEnrolled
	}
	if crs.IsFull() {
		return course.Course{}, course.ErrCourseFull
	}
	crs.StudentIDs = append(crs.StudentIDs, studentID)
	return *crs, nil
}

func (repo *courseRepository) UnenrollStudent(ctx context.Context, courseID, studentID string) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	for i, id := range crs.StudentIDs {
		if id == studentID {
			crs.StudentIDs = append(crs.StudentIDs[:i], crs.StudentIDs[i+1:]...)
			return *crs, nil
		}
	}
	return course.Course{}, course.ErrNotEnrolled
}
