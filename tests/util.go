package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/course"
	"github.com/trezcool/chuo/core/notification"
	"github.com/trezcool/chuo/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	title, code, semester string,
	year, maxStudents int,
) course.Course {
	now := time.Now().UTC()
	crs := course.Course{
		Title:       title,
		Code:        code,
		Semester:    semester,
		Year:        year,
		Credits:     10,
		MaxStudents: maxStudents,
		StudentIDs:  []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateNotification(t *testing.T, repo notification.Repository, recipientID, title, message string) notification.Notification {
	n := notification.Notification{
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}
	n, err := repo.CreateNotification(context.Background(), n)
	if err != nil {
		t.Fatalf("CreateNotification() failed: %v", err)
	}
	return n
}

// NewLogger returns a no-op core.Logger.
func NewLogger() core.Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}
