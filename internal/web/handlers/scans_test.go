package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/device"
)

func newScansFixture(t *testing.T, env *testEnv) *ScansHandler {
	t.Helper()
	h := NewScansHandler(testConfig(), env.deps, AttendanceLog{})
	t.Cleanup(h.CloseAll)
	return h
}

func createScan(t *testing.T, h *ScansHandler) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	h.Create(recorder, httptest.NewRequest("POST", "/api/v1/scans", nil))
	assertStatusCode(t, recorder, http.StatusCreated)

	var resp struct {
		ID    string    `json:"id"`
		State stateJSON `json:"state"`
	}
	parseJSONResponse(t, recorder, &resp)
	if resp.State.Phase != "idle" || resp.State.Label != "AWAITING SCAN" {
		t.Errorf("expected idle screen, got %+v", resp.State)
	}
	return resp.ID
}

func callScan(handler func(http.ResponseWriter, *http.Request), id string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/scans/"+id, nil)
	req = requestWithChiParams(req, map[string]string{"id": id})
	recorder := httptest.NewRecorder()
	handler(recorder, req)
	return recorder
}

func scanState(t *testing.T, h *ScansHandler, id string) stateJSON {
	t.Helper()
	recorder := callScan(h.Get, id)
	assertStatusCode(t, recorder, http.StatusOK)
	var s stateJSON
	parseJSONResponse(t, recorder, &s)
	return s
}

func TestScansHandler_Matched(t *testing.T) {
	env := newTestEnv()
	h := newScansFixture(t, env)
	_, attendance := withMockStorage(t)
	id := createScan(t, h)

	get := func() stateJSON { return scanState(t, h, id) }
	pollState(t, "device ready", get, func(s stateJSON) bool { return s.Device == "ready" })

	recorder := callScan(h.Scan, id)
	assertStatusCode(t, recorder, http.StatusOK)
	if s := get(); s.Phase != "scanning" {
		t.Fatalf("expected scanning, got %q", s.Phase)
	}

	env.clock.Advance(800 * time.Millisecond)
	if s := get(); s.Label != "FACE DETECTED" {
		t.Fatalf("expected detected label, got %q", s.Label)
	}
	env.clock.Advance(600 * time.Millisecond)

	s := pollState(t, "matched", get, func(s stateJSON) bool { return s.Phase == "matched" })
	if s.Confidence != 0.93 {
		t.Errorf("expected confidence 0.93, got %v", s.Confidence)
	}
	if s.Profile == nil || s.Profile.Initials != "AN" {
		t.Errorf("unexpected profile %+v", s.Profile)
	}

	eventually(t, "attendance recorded", func() bool { return len(attendance.Records()) == 1 })
	record := attendance.Records()[0]
	if record.ProfileID != "USR-AB12" || record.Status != database.AttendanceVerified || record.Confidence != 0.93 {
		t.Errorf("unexpected attendance record %+v", record)
	}

	recorder = callScan(h.Reset, id)
	assertStatusCode(t, recorder, http.StatusOK)
	if s := get(); s.Phase != "idle" || s.Profile != nil {
		t.Errorf("expected cleared idle screen, got %+v", s)
	}
}

func TestScansHandler_Mismatch(t *testing.T) {
	env := newTestEnv()
	env.client.identify = &biometric.IdentifyResult{Success: false, Message: biometric.MessageNotRecognized}
	h := newScansFixture(t, env)
	_, attendance := withMockStorage(t)
	id := createScan(t, h)

	get := func() stateJSON { return scanState(t, h, id) }
	pollState(t, "device ready", get, func(s stateJSON) bool { return s.Device == "ready" })
	callScan(h.Scan, id)
	env.clock.Advance(1400 * time.Millisecond)

	s := pollState(t, "mismatch", get, func(s stateJSON) bool { return s.Phase == "mismatch" })
	if s.Message != biometric.MessageNotRecognized {
		t.Errorf("unexpected message %q", s.Message)
	}
	if n := len(attendance.Records()); n != 0 {
		t.Errorf("mismatch must not record attendance, got %d records", n)
	}
}

func TestScansHandler_ScanRejected(t *testing.T) {
	env := newTestEnv()
	h := newScansFixture(t, env)
	id := createScan(t, h)

	get := func() stateJSON { return scanState(t, h, id) }
	pollState(t, "device ready", get, func(s stateJSON) bool { return s.Device == "ready" })
	callScan(h.Scan, id)

	recorder := callScan(h.Scan, id)
	assertStatusCode(t, recorder, http.StatusConflict)

	recorder = callScan(h.RetryDevice, id)
	assertStatusCode(t, recorder, http.StatusConflict)
}

func TestScansHandler_DeleteReleasesDevice(t *testing.T) {
	env := newTestEnv()
	h := newScansFixture(t, env)
	id := createScan(t, h)
	pollState(t, "device ready", func() stateJSON { return scanState(t, h, id) },
		func(s stateJSON) bool { return s.Device == "ready" })

	recorder := callScan(h.Delete, id)
	assertStatusCode(t, recorder, http.StatusNoContent)

	if stats := env.devices.Stats(); stats.Live || stats.Acquires != stats.Releases {
		t.Errorf("device must be released, got %+v", stats)
	}
	recorder = callScan(h.Scan, id)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestScansHandler_DeviceHeldByOtherScreen(t *testing.T) {
	env := newTestEnv()
	scans := newScansFixture(t, env)
	scanID := createScan(t, scans)
	pollState(t, "device ready", func() stateJSON { return scanState(t, scans, scanID) },
		func(s stateJSON) bool { return s.Device == "ready" })

	registrations := NewRegistrationsHandler(testConfig(), env.deps, ProfileHandoff{})
	t.Cleanup(registrations.CloseAll)
	regID := createRegistration(t, registrations)
	callRegistration(registrations, registrations.SubmitForm, regID, validFormJSON)

	s := pollState(t, "device error", func() stateJSON { return registrationState(t, registrations, regID) },
		func(s stateJSON) bool { return s.Step == "device_error" })
	if s.DeviceError != "Failed to access camera. Please check your device settings." {
		t.Errorf("unexpected device error %q", s.DeviceError)
	}

	callScan(scans.Delete, scanID)
	recorder := callRegistration(registrations, registrations.RetryDevice, regID, "")
	assertStatusCode(t, recorder, http.StatusOK)
	pollState(t, "awaiting gesture", func() stateJSON { return registrationState(t, registrations, regID) },
		func(s stateJSON) bool { return s.Step == "awaiting_gesture" })
}

func TestScansHandler_UsesScanConstraints(t *testing.T) {
	env := newTestEnv()
	cfg := testConfig()
	cfg.Device.ScanWidth, cfg.Device.ScanHeight = 1920, 1080
	h := NewScansHandler(cfg, env.deps, AttendanceLog{})
	t.Cleanup(h.CloseAll)
	id := createScan(t, h)
	pollState(t, "device ready", func() stateJSON { return scanState(t, h, id) },
		func(s stateJSON) bool { return s.Device == "ready" })

	got := env.driver.Constraints()
	want := device.Constraints{Width: 1920, Height: 1080, FacingMode: "user"}
	if len(got) != 1 || got[0] != want {
		t.Errorf("expected scan constraints %+v, got %+v", want, got)
	}
}

func TestScansHandler_IdleScreenClosed(t *testing.T) {
	env := newTestEnv()
	cfg := testConfig()
	cfg.Web.ScreenIdleTimeout = time.Minute
	h := NewScansHandler(cfg, env.deps, AttendanceLog{})
	t.Cleanup(h.CloseAll)

	abandoned := createScan(t, h)
	pollState(t, "device ready", func() stateJSON { return scanState(t, h, abandoned) },
		func(s stateJSON) bool { return s.Device == "ready" })
	if !env.devices.Stats().Live {
		t.Fatal("expected the scan screen to hold the device")
	}

	env.clock.Advance(30 * time.Second)
	if h.screens.Len() != 1 {
		t.Fatal("screen closed before the idle timeout")
	}
	env.clock.Advance(time.Minute)

	if stats := env.devices.Stats(); stats.Live || stats.Releases != 1 {
		t.Errorf("idle screen must release the device, got %+v", stats)
	}
	recorder := callScan(h.Get, abandoned)
	assertStatusCode(t, recorder, http.StatusNotFound)

	id := createScan(t, h)
	pollState(t, "device ready on new screen", func() stateJSON { return scanState(t, h, id) },
		func(s stateJSON) bool { return s.Device == "ready" })
}
