package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
)

func submitTask(t *testing.T, a *testApp, name string) string {
	t.Helper()
	resp, payload := a.request(t, http.MethodPost, "/tasks/", a.requesterToken, map[string]any{
		"task_name":   name,
		"description": "rack work",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d (payload %v)", resp.StatusCode, payload)
	}
	return payload["data"].(map[string]any)["task"].(map[string]any)["id"].(string)
}

func TestTasks_SubmitRequiresRequesterRole(t *testing.T) {
	a := newTestApp(t)

	resp, _ := a.request(t, http.MethodPost, "/tasks/", a.certifierToken, map[string]any{
		"task_name": "nope",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestTasks_ApproveFlow(t *testing.T) {
	a := newTestApp(t)
	taskID := submitTask(t, a, "install switch")

	resp, payload := a.request(t, http.MethodPost, fmt.Sprintf("/tasks/%s/approve", taskID), a.certifierToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve status = %d (payload %v)", resp.StatusCode, payload)
	}
	data := payload["data"].(map[string]any)
	task := data["task"].(map[string]any)
	if task["status"] != "completed" {
		t.Fatalf("status = %v, want completed", task["status"])
	}
	if task["time_completed"] == nil {
		t.Fatal("time_completed missing")
	}
	if data["slots_left"] != float64(24) {
		t.Fatalf("slots_left = %v, want 24 (approve keeps the slot)", data["slots_left"])
	}

	// A second approve is an invalid transition.
	resp, payload = a.request(t, http.MethodPost, fmt.Sprintf("/tasks/%s/approve", taskID), a.certifierToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double approve status = %d, want 409", resp.StatusCode)
	}
	errObj := payload["error"].(map[string]any)
	if errObj["code"] != "INVALID_TRANSITION" {
		t.Fatalf("error code = %v, want INVALID_TRANSITION", errObj["code"])
	}
}

func TestTasks_TransitionsRequireCertifier(t *testing.T) {
	a := newTestApp(t)
	taskID := submitTask(t, a, "install switch")

	for _, action := range []string{"approve", "reject", "revive"} {
		resp, _ := a.request(t, http.MethodPost, fmt.Sprintf("/tasks/%s/%s", taskID, action), a.requesterToken, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("%s status = %d, want 403", action, resp.StatusCode)
		}
	}
}

func TestTasks_ListScopedByRole(t *testing.T) {
	a := newTestApp(t)
	submitTask(t, a, "one")
	submitTask(t, a, "two")

	resp, payload := a.request(t, http.MethodGet, "/tasks/", a.requesterToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("requester list status = %d", resp.StatusCode)
	}
	if items := payload["data"].([]any); len(items) != 2 {
		t.Fatalf("requester sees %d tasks, want 2", len(items))
	}

	resp, payload = a.request(t, http.MethodGet, "/tasks/", a.certifierToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("certifier list status = %d", resp.StatusCode)
	}
	if items := payload["data"].([]any); len(items) != 2 {
		t.Fatalf("certifier sees %d tasks, want 2", len(items))
	}
}

func TestTasks_UpdateRevivesRejected(t *testing.T) {
	a := newTestApp(t)
	taskID := submitTask(t, a, "draft")

	resp, _ := a.request(t, http.MethodPost, fmt.Sprintf("/tasks/%s/reject", taskID), a.certifierToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reject status = %d", resp.StatusCode)
	}

	resp, payload := a.request(t, http.MethodPatch, "/tasks/"+taskID, a.requesterToken, map[string]any{
		"task_name": "draft v2",
		"notes":     "fixed wiring plan",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d (payload %v)", resp.StatusCode, payload)
	}
	data := payload["data"].(map[string]any)
	if data["status"] != "active" {
		t.Fatalf("status = %v, want active (edit revives rejected)", data["status"])
	}
	if data["task_name"] != "draft v2" {
		t.Fatalf("task_name = %v, want draft v2", data["task_name"])
	}

	resp, payload = a.request(t, http.MethodGet, "/slots/1/get", a.requesterToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("slots status = %d", resp.StatusCode)
	}
	if payload["slots_left"] != float64(24) {
		t.Fatalf("slots_left = %v, want 24 (revive re-consumed)", payload["slots_left"])
	}
}

func TestTasks_DeleteReleasesActiveSlot(t *testing.T) {
	a := newTestApp(t)
	taskID := submitTask(t, a, "short lived")

	resp, _ := a.request(t, http.MethodDelete, "/tasks/"+taskID, a.requesterToken, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, payload := a.request(t, http.MethodGet, "/slots/1/get", a.requesterToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("slots status = %d", resp.StatusCode)
	}
	if payload["slots_left"] != float64(25) {
		t.Fatalf("slots_left = %v, want 25", payload["slots_left"])
	}

	resp, _ = a.request(t, http.MethodGet, "/tasks/"+taskID, a.requesterToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted status = %d, want 404", resp.StatusCode)
	}
}

func TestAuth_RegisterAndLoginEndpoints(t *testing.T) {
	a := newTestApp(t)

	resp, payload := a.request(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name":     "bob",
		"password": "pw",
		"region":   2,
		"location": "branch",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d (payload %v)", resp.StatusCode, payload)
	}
	data := payload["data"].(map[string]any)
	if data["role"] != "REQUESTER" || data["region"] != float64(2) {
		t.Fatalf("register data = %v", data)
	}

	resp, payload = a.request(t, http.MethodPost, "/auth/login", "", map[string]any{
		"name":     "bob",
		"password": "pw",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d (payload %v)", resp.StatusCode, payload)
	}
	if payload["data"].(map[string]any)["token"] == "" {
		t.Fatal("token missing")
	}

	resp, _ = a.request(t, http.MethodPost, "/auth/login", "", map[string]any{
		"name":     "bob",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", resp.StatusCode)
	}
}
