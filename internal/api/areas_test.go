package api

import (
	"net/http"
	"testing"

	"github.com/hearth-home/hearth-core/internal/infrastructure/config"
	"github.com/hearth-home/hearth-core/internal/logbook"
)

func TestAreaLifecycle(t *testing.T) {
	ts, _, e := testServer(t, &fakeDevice{level: 50}, config.APIConfig{})

	// Create.
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/areas",
		map[string]any{"name": "Living Room"}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %v", resp.StatusCode, body)
	}
	areaID, _ := body["id"].(string)
	if areaID == "" || body["slug"] != "living-room" {
		t.Fatalf("created area = %v", body)
	}

	// Duplicate slug conflicts.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/areas",
		map[string]any{"name": "living room"}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", resp.StatusCode)
	}

	// Assign the config entry.
	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/api/v1/entries/"+e.ID+"/area",
		map[string]any{"area_id": areaID}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assign status = %d, want 200", resp.StatusCode)
	}

	// The area lists its members.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/areas/"+areaID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	members, _ := body["entries"].([]any)
	if len(members) != 1 || members[0] != e.ID {
		t.Errorf("members = %v, want [%s]", members, e.ID)
	}

	// Rename.
	resp, body = doJSON(t, http.MethodPut, ts.URL+"/api/v1/areas/"+areaID,
		map[string]any{"name": "Lounge"}, nil)
	if resp.StatusCode != http.StatusOK || body["slug"] != "lounge" {
		t.Errorf("update status = %d, body = %v", resp.StatusCode, body)
	}

	// Delete clears the assignment with it.
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/areas/"+areaID, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/areas/"+areaID, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestAssignArea_UnknownEntry(t *testing.T) {
	ts, _, _ := testServer(t, &fakeDevice{level: 50}, config.APIConfig{})

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/api/v1/entries/missing/area",
		map[string]any{"area_id": "whatever"}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestLogbook_RecordsEntityWrites(t *testing.T) {
	ts, _, e := testServer(t, &fakeDevice{level: 50}, config.APIConfig{})

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/api/v1/entities/"+e.ID+".level/state",
		map[string]any{"value": 75}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set state status = %d, want 200", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet,
		ts.URL+"/api/v1/logbook?type="+logbook.EventEntityWrite, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logbook status = %d, want 200", resp.StatusCode)
	}

	events, _ := body["events"].([]any)
	if len(events) != 1 {
		t.Fatalf("events = %v, want one write", events)
	}
	ev, _ := events[0].(map[string]any)
	if ev["entity_id"] != e.ID+".level" || ev["entry_id"] != e.ID {
		t.Errorf("event = %v", ev)
	}
	details, _ := ev["details"].(map[string]any)
	if details["value"] != float64(75) {
		t.Errorf("details = %v", details)
	}
}

func TestLogbook_RecordsEntryAdd(t *testing.T) {
	ts, _, _ := testServer(t, &fakeDevice{level: 50}, config.APIConfig{})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/entries",
		map[string]any{"domain": "fake", "title": "Second", "data": map[string]any{"token": "t"}}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status = %d, want 201", resp.StatusCode)
	}
	newID, _ := body["id"].(string)

	resp, body = doJSON(t, http.MethodGet,
		ts.URL+"/api/v1/logbook?entry_id="+newID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logbook status = %d", resp.StatusCode)
	}
	events, _ := body["events"].([]any)
	if len(events) != 1 {
		t.Fatalf("events = %v, want the entry_added event", events)
	}
	ev, _ := events[0].(map[string]any)
	if ev["type"] != logbook.EventEntryAdded {
		t.Errorf("type = %v", ev["type"])
	}
}
