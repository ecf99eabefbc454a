package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConfigHandler_Get(t *testing.T) {
	cfg := testConfig()
	h := NewConfigHandler(cfg)

	recorder := httptest.NewRecorder()
	h.Get(recorder, httptest.NewRequest("GET", "/api/v1/config", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp ConfigResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Recognition != "simulated" {
		t.Errorf("expected simulated recognition, got %q", resp.Recognition)
	}
	if resp.RecordingMs != 1000 || resp.DetectionDelayMs != 800 || resp.CountdownSeconds != 3 {
		t.Errorf("unexpected timings %+v", resp)
	}

	cfg.Embedding.URL = "http://embeddings:8000"
	recorder = httptest.NewRecorder()
	h.Get(recorder, httptest.NewRequest("GET", "/api/v1/config", nil))
	parseJSONResponse(t, recorder, &resp)
	if resp.Recognition != "embedding" {
		t.Errorf("expected embedding recognition, got %q", resp.Recognition)
	}
}

func TestConfigHandler_Departments(t *testing.T) {
	recorder := httptest.NewRecorder()
	NewConfigHandler(testConfig()).Departments(recorder, httptest.NewRequest("GET", "/api/v1/departments", nil))

	var resp map[string][]string
	parseJSONResponse(t, recorder, &resp)
	if len(resp["departments"]) != 2 || resp["departments"][1] != "Legal" {
		t.Errorf("unexpected departments %v", resp)
	}
}
