package inmemdb

import (
	"sync"

	"github.com/trezcool/chuo/core/assignment"
	"github.com/trezcool/chuo/core/course"
	"github.com/trezcool/chuo/core/event"
	"github.com/trezcool/chuo/core/notification"
	"github.com/trezcool/chuo/core/prefs"
	"github.com/trezcool/chuo/core/session"
	"github.com/trezcool/chuo/core/user"
)

type (
	DB struct {
		user         *userTable
		session      *sessionTable
		course       *courseTable
		assignment   *assignmentTable
		submission   *submissionTable
		event        *eventTable
		notification *notificationTable
		prefs        *prefsTable
	}

	userTable struct {
		table map[string]*user.User
		mutex sync.RWMutex
	}
	sessionTable struct {
		table map[string]*session.Session
		mutex sync.RWMutex
	}
	courseTable struct {
		table map[string]*course.Course
		mutex sync.RWMutex
	}
	assignmentTable struct {
		table map[string]*assignment.Assignment
		mutex sync.RWMutex
	}
	submissionTable struct {
		table map[string]*assignment.Submission
		mutex sync.RWMutex
	}
	eventTable struct {
		table map[string]*event.Event
		mutex sync.RWMutex
	}
	notificationTable struct {
		table map[string]*notification.Notification
		mutex sync.RWMutex
	}
	prefsTable struct {
		table map[string]*prefs.Preferences // keyed by user ID
		mutex sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		session:      &sessionTable{table: make(map[string]*session.Session)},
		course:       &courseTable{table: make(map[string]*course.Course)},
		assignment:   &assignmentTable{table: make(map[string]*assignment.Assignment)},
		submission:   &submissionTable{table: make(map[string]*assignment.Submission)},
		event:        &eventTable{table: make(map[string]*event.Event)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
		prefs:        &prefsTable{table: make(map[string]*prefs.Preferences)},
	}
	return db, nil
}
