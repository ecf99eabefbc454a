package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/device"
	"github.com/kozaktomas/face-attendance/internal/registration"
)

const validFormJSON = `{"name":"Alice Novak","employee_id":"E-1","department":"Engineering"}`

func newRegistrationsFixture(t *testing.T) (*RegistrationsHandler, *testEnv) {
	t.Helper()
	env := newTestEnv()
	h := NewRegistrationsHandler(testConfig(), env.deps, ProfileHandoff{})
	t.Cleanup(h.CloseAll)
	return h, env
}

func createRegistration(t *testing.T, h *RegistrationsHandler) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	h.Create(recorder, httptest.NewRequest("POST", "/api/v1/registrations", nil))
	assertStatusCode(t, recorder, http.StatusCreated)

	var resp struct {
		ID    string    `json:"id"`
		State stateJSON `json:"state"`
	}
	parseJSONResponse(t, recorder, &resp)
	if resp.ID == "" {
		t.Fatal("expected screen id")
	}
	if resp.State.Phase != "form" {
		t.Errorf("expected form phase, got %q", resp.State.Phase)
	}
	return resp.ID
}

func callRegistration(h *RegistrationsHandler, handler func(http.ResponseWriter, *http.Request), id, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/registrations/"+id, strings.NewReader(body))
	req = requestWithChiParams(req, map[string]string{"id": id})
	recorder := httptest.NewRecorder()
	handler(recorder, req)
	return recorder
}

func registrationState(t *testing.T, h *RegistrationsHandler, id string) stateJSON {
	t.Helper()
	recorder := callRegistration(h, h.Get, id, "")
	assertStatusCode(t, recorder, http.StatusOK)
	var s stateJSON
	parseJSONResponse(t, recorder, &s)
	return s
}

func TestRegistrationsHandler_FullFlow(t *testing.T) {
	h, env := newRegistrationsFixture(t)
	profiles, _ := withMockStorage(t)
	id := createRegistration(t, h)

	recorder := callRegistration(h, h.SubmitForm, id, validFormJSON)
	assertStatusCode(t, recorder, http.StatusOK)

	get := func() stateJSON { return registrationState(t, h, id) }
	pollState(t, "awaiting gesture", get, func(s stateJSON) bool { return s.Step == "awaiting_gesture" })

	recorder = callRegistration(h, h.StartCapture, id, "")
	assertStatusCode(t, recorder, http.StatusOK)

	env.clock.Advance(3 * time.Second)
	env.clock.Advance(time.Second)
	if s := get(); s.Phase != "processing" || s.ProcessingMessage != "Analyzing biometric data..." {
		t.Fatalf("expected processing, got %+v", s)
	}

	env.clock.Advance(400 * time.Millisecond)
	s := pollState(t, "success", get, func(s stateJSON) bool { return s.Phase == "success" })
	if s.Profile == nil || s.Profile.ID != "USR-AB12" {
		t.Fatalf("expected enrolled profile, got %+v", s.Profile)
	}

	eventually(t, "profile persisted", func() bool {
		n, _ := profiles.Count(t.Context())
		return n == 1
	})
	if stats := env.devices.Stats(); stats.Live || stats.Acquires != stats.Releases {
		t.Errorf("device must be released, got %+v", stats)
	}
}

func TestRegistrationsHandler_SubmitInvalidForm(t *testing.T) {
	h, env := newRegistrationsFixture(t)
	id := createRegistration(t, h)

	recorder := callRegistration(h, h.SubmitForm, id, `{"name":"A","employee_id":"E 1","department":""}`)

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	var resp ValidationResponse
	parseJSONResponse(t, recorder, &resp)
	if len(resp.Fields) != 3 {
		t.Errorf("expected three field errors, got %v", resp.Fields)
	}
	if s := registrationState(t, h, id); s.Phase != "form" {
		t.Errorf("expected form phase, got %q", s.Phase)
	}
	if env.driver.Opens() != 0 {
		t.Error("invalid form must not touch the device")
	}
}

func TestRegistrationsHandler_SubmitInvalidJSON(t *testing.T) {
	h, _ := newRegistrationsFixture(t)
	id := createRegistration(t, h)

	recorder := callRegistration(h, h.SubmitForm, id, "not json")

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidRequestBody)
}

func TestRegistrationsHandler_InvalidTransition(t *testing.T) {
	h, _ := newRegistrationsFixture(t)
	id := createRegistration(t, h)

	tests := []struct {
		name    string
		handler func(http.ResponseWriter, *http.Request)
	}{
		{"start capture from form", h.StartCapture},
		{"retry from form", h.Retry},
		{"device retry from form", h.RetryDevice},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := callRegistration(h, tc.handler, id, "")
			assertStatusCode(t, recorder, http.StatusConflict)
		})
	}
}

func TestRegistrationsHandler_DeviceErrorAndRetry(t *testing.T) {
	h, env := newRegistrationsFixture(t)
	env.driver.SetOpenErr(device.ErrPermissionDenied)
	id := createRegistration(t, h)

	callRegistration(h, h.SubmitForm, id, validFormJSON)
	get := func() stateJSON { return registrationState(t, h, id) }
	s := pollState(t, "device error", get, func(s stateJSON) bool { return s.Step == "device_error" })
	if s.DeviceError == "" {
		t.Error("expected device error message")
	}

	env.driver.SetOpenErr(nil)
	recorder := callRegistration(h, h.RetryDevice, id, "")
	assertStatusCode(t, recorder, http.StatusOK)
	pollState(t, "awaiting gesture", get, func(s stateJSON) bool { return s.Step == "awaiting_gesture" })
}

func TestRegistrationsHandler_Reset(t *testing.T) {
	h, env := newRegistrationsFixture(t)
	id := createRegistration(t, h)

	callRegistration(h, h.SubmitForm, id, validFormJSON)
	get := func() stateJSON { return registrationState(t, h, id) }
	before := pollState(t, "awaiting gesture", get, func(s stateJSON) bool { return s.Step == "awaiting_gesture" })

	recorder := callRegistration(h, h.Reset, id, "")
	assertStatusCode(t, recorder, http.StatusOK)

	after := get()
	if after.Phase != "form" {
		t.Errorf("expected form phase, got %q", after.Phase)
	}
	if after.Session <= before.Session {
		t.Errorf("expected a new session, got %d after %d", after.Session, before.Session)
	}
	if env.devices.Stats().Live {
		t.Error("reset must release the device")
	}
}

func TestRegistrationsHandler_UnknownScreen(t *testing.T) {
	h, _ := newRegistrationsFixture(t)

	for name, handler := range map[string]func(http.ResponseWriter, *http.Request){
		"get":    h.Get,
		"submit": h.SubmitForm,
		"reset":  h.Reset,
		"delete": h.Delete,
	} {
		t.Run(name, func(t *testing.T) {
			recorder := callRegistration(h, handler, "missing", validFormJSON)
			assertStatusCode(t, recorder, http.StatusNotFound)
			assertJSONError(t, recorder, errScreenNotFound)
		})
	}
}

func TestRegistrationsHandler_Delete(t *testing.T) {
	h, env := newRegistrationsFixture(t)
	id := createRegistration(t, h)

	callRegistration(h, h.SubmitForm, id, validFormJSON)
	pollState(t, "awaiting gesture", func() stateJSON { return registrationState(t, h, id) },
		func(s stateJSON) bool { return s.Step == "awaiting_gesture" })

	recorder := callRegistration(h, h.Delete, id, "")
	assertStatusCode(t, recorder, http.StatusNoContent)

	if stats := env.devices.Stats(); stats.Live || stats.Releases != 1 {
		t.Errorf("closing the screen must release the device, got %+v", stats)
	}
	if h.screens.Len() != 0 {
		t.Errorf("expected no open screens, got %d", h.screens.Len())
	}

	recorder = callRegistration(h, h.Get, id, "")
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestRegistrationsHandler_FailedHandoffKeepsSuccess(t *testing.T) {
	env := newTestEnv()
	errs := make(chan error, 1)
	handoff := registration.HandoffFunc(func(ctx context.Context, p biometric.EnrolledProfile) error {
		err := ProfileHandoff{}.PersistAndNavigate(ctx, p)
		errs <- err
		return err
	})
	h := NewRegistrationsHandler(testConfig(), env.deps, handoff)
	t.Cleanup(h.CloseAll)
	profiles, _ := withMockStorage(t)
	profiles.AddProfile(database.StoredProfile{ID: "USR-ZZ99", Name: "Bob Marek", EmployeeID: "E-1"})
	id := createRegistration(t, h)

	callRegistration(h, h.SubmitForm, id, validFormJSON)
	get := func() stateJSON { return registrationState(t, h, id) }
	pollState(t, "awaiting gesture", get, func(s stateJSON) bool { return s.Step == "awaiting_gesture" })
	callRegistration(h, h.StartCapture, id, "")
	env.clock.Advance(3 * time.Second)
	env.clock.Advance(time.Second)
	env.clock.Advance(400 * time.Millisecond)

	select {
	case err := <-errs:
		if !errors.Is(err, database.ErrDuplicateEmployeeID) {
			t.Fatalf("expected duplicate employee id from handoff, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handoff not called")
	}

	s := get()
	if s.Phase != "success" || s.Profile == nil || s.Profile.ID != "USR-AB12" {
		t.Errorf("failed handoff must leave the success screen, got %+v", s)
	}
	if n, _ := profiles.Count(t.Context()); n != 1 {
		t.Errorf("expected only the existing profile stored, got %d", n)
	}
}
