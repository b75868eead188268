package course_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/course"
	inmemdb "github.com/trezcool/chuo/storage/database/inmem"
	testutil "github.com/trezcool/chuo/tests"
)

func setup(t *testing.T) (course.Service, course.Repository) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() error = %v", err)
	}
	repo := inmemdb.NewCourseRepository(db)
	return course.NewService(repo), repo
}

func Test_service_CreateAndQuery(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	crs, err := svc.Create(ctx, course.NewCourse{
		Title:       "Distributed Systems",
		Code:        "cs401",
		Credits:     15,
		Semester:    "fall",
		Year:        2026,
		MaxStudents: 30,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if crs.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}
	if len(crs.StudentIDs) != 0 {
		t.Errorf("Create() StudentIDs = %v, want empty roster", crs.StudentIDs)
	}

	got, err := svc.GetByID(ctx, crs.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Code != "cs401" || got.Title != "Distributed Systems" {
		t.Errorf("GetByID() = %+v", got)
	}

	courses, err := svc.Query(ctx, &course.QueryFilter{Semester: "fall", Year: 2026}, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(courses) != 1 || courses[0].ID != crs.ID {
		t.Errorf("Query() = %v, want [%v]", courses, crs.ID)
	}

	if courses, _ = svc.Query(ctx, &course.QueryFilter{Semester: "spring"}, nil); len(courses) != 0 {
		t.Errorf("Query(spring) = %v, want none", courses)
	}
}

func Test_service_CheckCodeUniqueness(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	testutil.CreateCourse(t, repo, "Algorithms", "cs201", "fall", 2026, 50)

	// same code, other semester: fine
	if err := svc.CheckCodeUniqueness(ctx, "cs201", "spring", 2026); err != nil {
		t.Errorf("CheckCodeUniqueness(other semester) error = %v", err)
	}

	err := svc.CheckCodeUniqueness(ctx, "cs201", "fall", 2026)
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("CheckCodeUniqueness() error = %v, want *core.ValidationError", err)
	}
	if len(vErr.Fields) != 1 || vErr.Fields[0].Field != "code" {
		t.Errorf("CheckCodeUniqueness() fields = %+v", vErr.Fields)
	}

	// excluding the course itself: fine (update path)
	crs, _ := svc.Query(ctx, &course.QueryFilter{Search: "cs201"}, nil)
	if err := svc.CheckCodeUniqueness(ctx, "cs201", "fall", 2026, crs[0]); err != nil {
		t.Errorf("CheckCodeUniqueness(excluded) error = %v", err)
	}
}

func Test_service_Enroll(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	crs := testutil.CreateCourse(t, repo, "Databases", "cs301", "fall", 2026, 2)

	if _, err := svc.Enroll(ctx, "no-such-course", "stu1"); errors.Cause(err) != course.ErrNotFound {
		t.Errorf("Enroll(unknown course) error = %v, want %v", err, course.ErrNotFound)
	}

	got, err := svc.Enroll(ctx, crs.ID, "stu1")
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if !got.HasStudent("stu1") {
		t.Errorf("Enroll() roster = %v, want stu1", got.StudentIDs)
	}

	if _, err = svc.Enroll(ctx, crs.ID, "stu1"); errors.Cause(err) != course.ErrAlreadyEnrolled {
		t.Errorf("Enroll(duplicate) error = %v, want %v", err, course.ErrAlreadyEnrolled)
	}

	if _, err = svc.Enroll(ctx, crs.ID, "stu2"); err != nil {
		t.Fatalf("Enroll(stu2) error = %v", err)
	}

	// course is now at capacity
	if _, err = svc.Enroll(ctx, crs.ID, "stu3"); errors.Cause(err) != course.ErrCourseFull {
		t.Errorf("Enroll(full) error = %v, want %v", err, course.ErrCourseFull)
	}

	got, err = svc.Unenroll(ctx, crs.ID, "stu1")
	if err != nil {
		t.Fatalf("Unenroll() error = %v", err)
	}
	if got.HasStudent("stu1") {
		t.Errorf("Unenroll() roster = %v, stu1 still enrolled", got.StudentIDs)
	}

	if _, err = svc.Unenroll(ctx, crs.ID, "stu1"); errors.Cause(err) != course.ErrNotEnrolled {
		t.Errorf("Unenroll(not enrolled) error = %v, want %v", err, course.ErrNotEnrolled)
	}

	// freed seat can be taken again
	if _, err = svc.Enroll(ctx, crs.ID, "stu3"); err != nil {
		t.Errorf("Enroll(freed seat) error = %v", err)
	}
}

func Test_service_Update(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	crs := testutil.CreateCourse(t, repo, "Networks", "cs302", "fall", 2026, 40)

	maxStudents := 60
	got, err := svc.Update(ctx, crs.ID, course.UpdateCourse{Title: "Computer Networks", MaxStudents: &maxStudents})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Title != "Computer Networks" || got.MaxStudents != 60 {
		t.Errorf("Update() = %+v", got)
	}
	if got.Code != "cs302" || got.Credits != crs.Credits {
		t.Errorf("Update() must leave zero fields unchanged; got %+v", got)
	}

	if _, err := svc.Update(ctx, "no-such-course", course.UpdateCourse{}); errors.Cause(err) != course.ErrNotFound {
		t.Errorf("Update(unknown) error = %v, want %v", err, course.ErrNotFound)
	}
}
