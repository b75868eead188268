package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/trezcool/chuo/core/event"
	"github.com/trezcool/chuo/core/user"
	testutil "github.com/trezcool/chuo/tests"
)

func Test_eventApi(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", user.RoleStudent, true)
	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof@test.cd", "", user.RoleFaculty, true)

	studentToken := getToken(t, student)
	profToken := getToken(t, prof)

	starts := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	newEvt := event.NewEvent{
		Title:    "Open Day",
		Location: "Main Hall",
		StartsAt: starts,
		EndsAt:   starts.Add(4 * time.Hour),
	}

	t.Run("faculty required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/events", studentToken, marchallObj(t, newEvt))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})

	t.Run("ends before starts rejected", func(t *testing.T) {
		bad := newEvt
		bad.EndsAt = starts.Add(-time.Hour)
		req, rec := newAuthRequest(http.MethodPost, "/v1/events", profToken, marchallObj(t, bad))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v, body = %v", rec.Code, rec.Body.String())
		}
	})

	var evt event.Event
	t.Run("create ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/events", profToken, marchallObj(t, newEvt))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v, body = %v", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &evt); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		// the caller is the organizer
		if evt.OrganizerID != prof.ID {
			t.Errorf("OrganizerID = %v, want %v", evt.OrganizerID, prof.ID)
		}
	})

	t.Run("calendar needs no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/events")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallList(t, evt)}, rec)

		req, rec = newRequest(http.MethodGet, "/v1/events/"+evt.ID)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallObj(t, evt)}, rec)
	})

	t.Run("query", func(t *testing.T) {
		tests := []httpTest{
			{name: "all", path: "/v1/events", wantData: marchallList(t, evt)},
			{name: "search (unknown)", path: "/v1/events?search=lol", wantData: marchallList(t, []interface{}{}...)},
			{name: "search", path: "/v1/events?search=open", wantData: marchallList(t, evt)},
			{name: "organizer", path: "/v1/events?organizer=" + prof.ID, wantData: marchallList(t, evt)},
			{
				name:     "window excludes",
				path:     "/v1/events?from=" + url.QueryEscape(starts.Add(time.Hour).Format(time.RFC3339)),
				wantData: marchallList(t, []interface{}{}...),
			},
			{
				name: "window includes",
				path: "/v1/events?from=" + url.QueryEscape(starts.Add(-time.Hour).Format(time.RFC3339)) +
					"&to=" + url.QueryEscape(starts.Add(time.Hour).Format(time.RFC3339)),
				wantData: marchallList(t, evt),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodGet, tt.path, studentToken)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("update", func(t *testing.T) {
		body := marchallObj(t, event.UpdateEvent{Location: "Auditorium"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/events/"+evt.ID, profToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, body = %v", rec.Code, rec.Body.String())
		}
		var got event.Event
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.Location != "Auditorium" || got.Title != evt.Title {
			t.Errorf("event = %+v", got)
		}
	})

	t.Run("destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/events/"+evt.ID, profToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v, body = %v", rec.Code, rec.Body.String())
		}
		req, rec = newAuthRequest(http.MethodGet, "/v1/events/"+evt.ID, studentToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errHTTPNotFound)}, rec)
	})
}
