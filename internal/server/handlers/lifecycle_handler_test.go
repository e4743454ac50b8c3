package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"custodycore/internal/core"
	"custodycore/internal/export"
	"custodycore/internal/infra/persistence/memory"
	"custodycore/internal/server/handlers"
	"custodycore/internal/server/router"
	"custodycore/pkg/domain"
)

func newTestRouter(t *testing.T) (*httptest.Server, *core.Service) {
	t.Helper()
	store := memory.NewStore(core.NewDefaultRulesEngine(0))
	svc := core.NewService(store)
	handler := handlers.NewLifecycleHandler(svc, export.NewService(svc, nil), nil)
	ts := httptest.NewServer(router.New(handler, nil, 0))
	t.Cleanup(ts.Close)
	return ts, svc
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestCreateAnimalEndpoint(t *testing.T) {
	ts, _ := newTestRouter(t)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/animals", map[string]any{
		"chip": "C1", "species": "horse", "intake_date": "2026-08-01",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", resp.StatusCode, body)
	}
	animal, ok := body["animal"].(map[string]any)
	if !ok || animal["id"] == "" {
		t.Fatalf("expected created animal in response, got %v", body)
	}
	recurrence, ok := body["recurrence"].(map[string]any)
	if !ok || recurrence["count"].(float64) != 0 {
		t.Fatalf("expected zero recurrence on first intake, got %v", body["recurrence"])
	}

	// Missing identification maps to 422.
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/animals", map[string]any{"species": "horse"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (%v)", resp.StatusCode, body)
	}
}

func TestTrackEndpointsAndErrorMapping(t *testing.T) {
	ts, svc := newTestRouter(t)
	animal, err := svc.CreateAnimal(context.Background(), domain.AnimalRecord{Chip: "C1", Species: "horse", IntakeDate: "2026-08-01"})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/tracks/adoption", map[string]any{"animal_id": animal.ID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", resp.StatusCode, body)
	}

	// Duplicate add maps to 409.
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/tracks/adoption", map[string]any{"animal_id": animal.ID})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d (%v)", resp.StatusCode, body)
	}

	// Unknown animal maps to 404.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/tracks/adoption", map[string]any{"animal_id": "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	// Unknown track maps to 422.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/tracks/bogus", map[string]any{"animal_id": animal.ID})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/tracks/adoption", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	items, ok := body["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 queued item, got %v", body)
	}
}

func TestFinalizeEndpoint(t *testing.T) {
	ts, svc := newTestRouter(t)
	ctx := context.Background()
	animal, _ := svc.CreateAnimal(ctx, domain.AnimalRecord{Chip: "C1", Species: "horse", IntakeDate: "2026-08-01"})
	entry, err := svc.AddToTrack(ctx, domain.TrackRestitution, core.WorklistForm{AnimalID: animal.ID})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	resp, body := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/worklist/%s/finalize", ts.URL, entry.ID), map[string]any{
		"exit_date":       "2026-08-20",
		"destination":     "restitution",
		"receiver_name":   "Maria Souza",
		"idempotency_key": "http-1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", resp.StatusCode, body)
	}
	if body["chip"] != "C1" {
		t.Fatalf("expected snapshot chip in exit, got %v", body)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/exits", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	exits, ok := body["exits"].([]any)
	if !ok || len(exits) != 1 {
		t.Fatalf("expected 1 exit, got %v", body)
	}
}

func TestFinalizeBatchPartialMapsToMultiStatus(t *testing.T) {
	ts, svc := newTestRouter(t)
	ctx := context.Background()
	animal, _ := svc.CreateAnimal(ctx, domain.AnimalRecord{Chip: "C1", Species: "horse", IntakeDate: "2026-08-01"})
	entry, err := svc.AddToTrack(ctx, domain.TrackRestitution, core.WorklistForm{AnimalID: animal.ID})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/finalize/batch", map[string]any{
		"entry_ids": []string{entry.ID, "missing"},
		"form": map[string]any{
			"exit_date":   "2026-08-20",
			"destination": "restitution",
		},
	})
	if resp.StatusCode != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d (%v)", resp.StatusCode, body)
	}
	if body["succeeded"].(float64) != 1 {
		t.Fatalf("expected 1 succeeded, got %v", body)
	}
	failed, ok := body["failed"].([]any)
	if !ok || len(failed) != 1 {
		t.Fatalf("expected 1 failed row, got %v", body)
	}
}

func TestSummaryAndHealthEndpoints(t *testing.T) {
	ts, svc := newTestRouter(t)
	if _, err := svc.CreateAnimal(context.Background(), domain.AnimalRecord{Chip: "C1", Species: "horse", IntakeDate: "2026-08-01"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/summary", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["total_animals"].(float64) != 1 {
		t.Fatalf("unexpected summary: %v", body)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("healthz failed: %d %v", resp.StatusCode, body)
	}
}
