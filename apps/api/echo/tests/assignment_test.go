package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/chuo/core/assignment"
	"github.com/trezcool/chuo/core/user"
	testutil "github.com/trezcool/chuo/tests"
)

func createAssignment(t *testing.T, courseID, title string, totalMarks int) assignment.Assignment {
	now := time.Now().UTC()
	asg, err := asgRepo.CreateAssignment(context.Background(), assignment.Assignment{
		CourseID:   courseID,
		Title:      title,
		DueDate:    now.Add(7 * 24 * time.Hour),
		TotalMarks: totalMarks,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("createAssignment() failed: %v", err)
	}
	return asg
}

func Test_assignmentApi_create(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", user.RoleStudent, true)
	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof@test.cd", "", user.RoleFaculty, true)
	crs := testutil.CreateCourse(t, crsRepo, "Databases", "cs301", "fall", 2026, 30)

	profToken := getToken(t, prof)
	path := "/v1/courses/" + crs.ID + "/assignments"

	newAsg := assignment.NewAssignment{
		Title:      "Homework 1",
		DueDate:    time.Now().Add(7 * 24 * time.Hour).UTC(),
		TotalMarks: 100,
	}

	tests := []httpTest{
		{
			name: "Faculty required", path: path, token: getToken(t, student), body: marchallObj(t, newAsg),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "unknown course", path: "/v1/courses/lol/assignments", token: profToken, body: marchallObj(t, newAsg),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errHTTPNotFound),
		},
		{
			name: "missing fields", path: path, token: profToken, body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"title": "this field is required", "due_date": "this field is required",
				"total_marks": "this field is required",
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("create and list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, profToken, marchallObj(t, newAsg))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v, body = %v", rec.Code, rec.Body.String())
		}
		var asg assignment.Assignment
		if err := json.Unmarshal(rec.Body.Bytes(), &asg); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if asg.CourseID != crs.ID {
			t.Errorf("CourseID = %v, want %v", asg.CourseID, crs.ID)
		}

		// students see the course's assignments
		req, rec = newAuthRequest(http.MethodGet, path, getToken(t, student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallList(t, asg)}, rec)
	})
}

func Test_assignmentApi_submissions(t *testing.T) {
	app := setup(t)

	stu1 := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", user.RoleStudent, true)
	stu2 := testutil.CreateUser(t, usrRepo, "King", "king@test.cd", "", user.RoleStudent, true)
	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof@test.cd", "", user.RoleFaculty, true)
	crs := testutil.CreateCourse(t, crsRepo, "Databases", "cs301", "fall", 2026, 30)
	asg := createAssignment(t, crs.ID, "Homework 1", 100)

	stu1Token := getToken(t, stu1)
	profToken := getToken(t, prof)
	subPath := "/v1/assignments/" + asg.ID + "/submissions"

	t.Run("submit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, subPath, stu1Token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v, body = %v", rec.Code, rec.Body.String())
		}
		var sub assignment.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if sub.Status != assignment.StatusSubmitted || sub.StudentID != stu1.ID {
			t.Errorf("submission = %+v", sub)
		}

		// a student submits at most once
		req, rec = newAuthRequest(http.MethodPost, subPath, stu1Token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: assignment.ErrSubmissionExists.Error()}),
		}, rec)
	})

	t.Run("faculty only listing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, subPath, stu1Token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)

		req, rec = newAuthRequest(http.MethodGet, subPath, profToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, body = %v", rec.Code, rec.Body.String())
		}
		var subs []assignment.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &subs); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(subs) != 1 {
			t.Errorf("len(subs) = %v, want 1", len(subs))
		}
	})

	t.Run("grade", func(t *testing.T) {
		gradePath := subPath + "/" + stu1.ID
		marks := 80

		// students may not grade
		req, rec := newAuthRequest(http.MethodPut, gradePath, stu1Token, marchallObj(t, assignment.GradeSubmission{Marks: &marks}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)

		// marks are capped by the assignment total
		over := 101
		req, rec = newAuthRequest(http.MethodPut, gradePath, profToken, marchallObj(t, assignment.GradeSubmission{Marks: &over}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("over total: code = %v, body = %v", rec.Code, rec.Body.String())
		}

		// no submission, no grade
		req, rec = newAuthRequest(http.MethodPut, subPath+"/"+stu2.ID, profToken, marchallObj(t, assignment.GradeSubmission{Marks: &marks}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errHTTPNotFound)}, rec)

		req, rec = newAuthRequest(http.MethodPut, gradePath, profToken, marchallObj(t, assignment.GradeSubmission{Marks: &marks}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, body = %v", rec.Code, rec.Body.String())
		}
		var sub assignment.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if sub.Status != assignment.StatusGraded || sub.Marks == nil || *sub.Marks != 80 || sub.GradedAt == nil {
			t.Errorf("submission = %+v", sub)
		}
	})
}
