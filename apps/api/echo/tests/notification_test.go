package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	. "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/core/notification"
	"github.com/trezcool/chuo/core/user"
	testutil "github.com/trezcool/chuo/tests"
)

func Test_notificationApi(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", user.RoleStudent, true)
	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof@test.cd", "", user.RoleFaculty, true)

	studentToken := getToken(t, student)
	profToken := getToken(t, prof)

	t.Run("faculty required to send", func(t *testing.T) {
		body := marchallObj(t, notification.NewNotification{RecipientID: prof.ID, Title: "Hi", Message: "there"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications", studentToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})

	t.Run("unknown recipient rejected", func(t *testing.T) {
		body := marchallObj(t, notification.NewNotification{
			RecipientID: "b1d3e0aa-29ec-42fe-a4a4-c54ec5cd4d55", Title: "Hi", Message: "there",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications", profToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"recipient_id": user.ErrNotFound.Error()}),
		}, rec)
	})

	var n1, n2 notification.Notification
	t.Run("send ok", func(t *testing.T) {
		for i, n := range []*notification.Notification{&n1, &n2} {
			title := []string{"Grades published", "Campus closed"}[i]
			body := marchallObj(t, notification.NewNotification{RecipientID: student.ID, Title: title, Message: "..."})
			req, rec := newAuthRequest(http.MethodPost, "/v1/notifications", profToken, body)
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusCreated {
				t.Fatalf("code = %v, body = %v", rec.Code, rec.Body.String())
			}
			if err := json.Unmarshal(rec.Body.Bytes(), n); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if n.RecipientID != student.ID || n.Read {
				t.Errorf("notification = %+v", n)
			}
		}
	})

	t.Run("own inbox only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, body = %v", rec.Code, rec.Body.String())
		}
		var notifs []notification.Notification
		if err := json.Unmarshal(rec.Body.Bytes(), &notifs); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(notifs) != 2 {
			t.Errorf("len(notifs) = %v, want 2", len(notifs))
		}

		// the sender's inbox stays empty
		req, rec = newAuthRequest(http.MethodGet, "/v1/notifications", profToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallList(t, []interface{}{}...)}, rec)
	})

	t.Run("mark read", func(t *testing.T) {
		// not the recipient: invisible
		req, rec := newAuthRequest(http.MethodPut, "/v1/notifications/"+n1.ID+"/read", profToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errHTTPNotFound)}, rec)

		req, rec = newAuthRequest(http.MethodPut, "/v1/notifications/"+n1.ID+"/read", studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v, body = %v", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/notifications?unread=true", studentToken)
		app.ServeHTTP(rec, req)
		var notifs []notification.Notification
		if err := json.Unmarshal(rec.Body.Bytes(), &notifs); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(notifs) != 1 || notifs[0].ID != n2.ID {
			t.Errorf("unread = %+v, want [%v]", notifs, n2.ID)
		}
	})

	t.Run("read all", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications/read-all", studentToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallObj(t, MarkedReadResponse{MarkedRead: 1})}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/notifications?unread=true", studentToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallList(t, []interface{}{}...)}, rec)
	})
}
