package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/clock"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	dbmock "github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/device"
	devicemock "github.com/kozaktomas/face-attendance/internal/device/mock"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Device: config.DeviceConfig{Width: 640, Height: 480, ScanWidth: 1280, ScanHeight: 720, FacingMode: "user"},
		Session: config.SessionConfig{
			Departments:        []string{"Engineering", "Legal"},
			ProcessingMessages: []string{"Analyzing biometric data..."},
			CountdownSeconds:   3,
			CountdownInterval:  time.Second,
			RecordingDuration:  time.Second,
			RecordingTick:      100 * time.Millisecond,
			ProcessingInterval: 400 * time.Millisecond,
			DetectionDelay:     800 * time.Millisecond,
			VerificationDelay:  600 * time.Millisecond,
		},
	}
}

// stubClient answers every call with a fixed result
type stubClient struct {
	enroll   *biometric.EnrollResult
	identify *biometric.IdentifyResult
}

func (s *stubClient) Enroll(context.Context, biometric.FormData, device.Frame) (*biometric.EnrollResult, error) {
	return s.enroll, nil
}

func (s *stubClient) Identify(context.Context, device.Frame) (*biometric.IdentifyResult, error) {
	return s.identify, nil
}

func newStubClient() *stubClient {
	return &stubClient{
		enroll: &biometric.EnrollResult{
			Success: true,
			Profile: &biometric.EnrolledProfile{ID: "USR-AB12", Name: "Alice Novak", EmployeeID: "E-1", Department: "Engineering"},
			Message: "User Alice Novak successfully registered with biometric data.",
		},
		identify: &biometric.IdentifyResult{
			Success:    true,
			Profile:    &biometric.MatchedProfile{ID: "USR-AB12", Name: "Alice Novak", Department: "Engineering", Initials: "AN"},
			Confidence: 0.93,
		},
	}
}

// testEnv bundles the screen dependencies with handles on the fakes
type testEnv struct {
	deps    Deps
	clock   *clock.Fake
	driver  *devicemock.Driver
	devices *device.Manager
	client  *stubClient
}

func newTestEnv() *testEnv {
	env := &testEnv{
		clock:  clock.NewFake(time.Date(2026, 2, 2, 8, 30, 0, 0, time.UTC)),
		driver: devicemock.NewDriver(),
		client: newStubClient(),
	}
	env.devices = device.NewManager(env.driver)
	env.devices.SetNow(env.clock.Now)
	env.deps = Deps{Devices: env.devices, Client: env.client, Clock: env.clock}
	return env
}

// withMockStorage registers in-memory repositories as the storage backend
func withMockStorage(t *testing.T) (*dbmock.MockProfileStore, *dbmock.MockAttendanceLog) {
	t.Helper()
	profiles := dbmock.NewMockProfileStore()
	attendance := dbmock.NewMockAttendanceLog()
	database.RegisterBackend("mock",
		func() database.ProfileWriter { return profiles },
		func() database.AttendanceWriter { return attendance },
	)
	t.Cleanup(database.ResetBackend)
	return profiles, attendance
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// stateJSON is the wire form of both screen states
type stateJSON struct {
	Session           uint64            `json:"session"`
	Phase             string            `json:"phase"`
	Label             string            `json:"label"`
	Step              string            `json:"step"`
	Device            string            `json:"device"`
	DeviceError       string            `json:"device_error"`
	Countdown         int               `json:"countdown"`
	Progress          float64           `json:"progress"`
	ProcessingMessage string            `json:"processing_message"`
	FormErrors        map[string]string `json:"form_errors"`
	Confidence        float64           `json:"confidence"`
	Message           string            `json:"message"`
	Profile           *struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Initials string `json:"initials"`
	} `json:"profile"`
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}

// pollState calls get until cond holds for the returned state
func pollState(t *testing.T, what string, get func() stateJSON, cond func(stateJSON) bool) stateJSON {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := get()
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s, last state %+v", what, s)
		}
		time.Sleep(time.Millisecond)
	}
}

// eventually polls cond until it holds
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
