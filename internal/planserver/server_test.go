package planserver

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/publicmapping/planwatch/internal/model"
	"github.com/publicmapping/planwatch/internal/planstore"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*planstore.Store, *planstore.Worker, *gin.Engine) {
	t.Helper()
	store, err := planstore.Open(filepath.Join(t.TempDir(), "plans.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	worker := planstore.NewWorker(store, time.Millisecond, nil)
	srv := NewServer("", store, worker, nil)
	srv.startTime = time.Now()

	return store, worker, srv.Router()
}

func seedPlan(t *testing.T, store *planstore.Store, name, owner string, state model.ProcessingState) model.PlanID {
	t.Helper()
	id, err := store.CreatePlan(model.Plan{Name: name, Owner: owner})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if state != "" && state != model.StateReady {
		if err := store.SetState(id, state); err != nil {
			t.Fatalf("SetState: %v", err)
		}
	}
	return id
}

func doJSON(t *testing.T, r *gin.Engine, method, path string) map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("%s %s status = %d, want 200", method, path, w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal %s %s: %v", method, path, err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	_, _, r := newTestServer(t)

	body := doJSON(t, r, http.MethodGet, "/api/health")
	if body["status"] != "ok" {
		t.Errorf("health status = %v, want ok", body["status"])
	}
}

func TestStatusesEndpoint(t *testing.T) {
	store, _, r := newTestServer(t)
	a := seedPlan(t, store, "A", "anna", model.StateReady)
	b := seedPlan(t, store, "B", "anna", model.StateNeedsReagg)

	body := doJSON(t, r, http.MethodGet,
		"/api/plans/statuses?ids="+itoa(a)+","+itoa(b)+",404")
	if body["success"] != true {
		t.Fatalf("success = %v", body["success"])
	}

	statuses, ok := body["statuses"].(map[string]interface{})
	if !ok {
		t.Fatalf("statuses missing: %v", body)
	}
	if statuses[itoa(a)] != "Ready" {
		t.Errorf("plan %d status = %v, want Ready", a, statuses[itoa(a)])
	}
	if statuses[itoa(b)] != "Needs reaggregation" {
		t.Errorf("plan %d status = %v, want Needs reaggregation", b, statuses[itoa(b)])
	}
	if statuses["404"] != "Unknown" {
		t.Errorf("missing plan status = %v, want Unknown", statuses["404"])
	}
}

func TestStatusesEndpoint_MalformedIDs(t *testing.T) {
	_, _, r := newTestServer(t)

	body := doJSON(t, r, http.MethodGet, "/api/plans/statuses?ids=1,nope")
	if body["success"] != false {
		t.Fatalf("success = %v, want false for malformed ids", body["success"])
	}
}

func TestPlansEndpoint_FilterAndOwner(t *testing.T) {
	store, _, r := newTestServer(t)
	seedPlan(t, store, "Mine", "anna", model.StateReady)
	other := seedPlan(t, store, "Theirs", "bob", model.StateReady)
	if err := store.SetShared(other, true); err != nil {
		t.Fatalf("SetShared: %v", err)
	}

	body := doJSON(t, r, http.MethodGet, "/api/plans?filter=shared&owner=anna")
	if body["success"] != true {
		t.Fatalf("success = %v", body["success"])
	}
	plans, ok := body["plans"].([]interface{})
	if !ok || len(plans) != 1 {
		t.Fatalf("plans = %v, want one shared plan", body["plans"])
	}
}

func TestReaggregateEndpoint_Accepts(t *testing.T) {
	store, _, r := newTestServer(t)
	id := seedPlan(t, store, "Stale", "anna", model.StateNeedsReagg)

	body := doJSON(t, r, http.MethodPost, "/api/plans/"+itoa(id)+"/reaggregate")
	if body["success"] != true {
		t.Fatalf("success = %v, want true", body["success"])
	}

	plan, err := store.Plan(id)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.State != model.StateReaggregating {
		t.Errorf("state = %q, want %q after trigger", plan.State, model.StateReaggregating)
	}
}

func TestReaggregateEndpoint_Rejections(t *testing.T) {
	store, _, r := newTestServer(t)
	ready := seedPlan(t, store, "Fresh", "anna", model.StateReady)

	cases := []struct {
		name string
		path string
	}{
		{"unknown plan", "/api/plans/9999/reaggregate"},
		{"plan not stale", "/api/plans/" + itoa(ready) + "/reaggregate"},
		{"malformed id", "/api/plans/abc/reaggregate"},
	}
	for _, tc := range cases {
		body := doJSON(t, r, http.MethodPost, tc.path)
		if body["success"] != false {
			t.Errorf("%s: success = %v, want false", tc.name, body["success"])
		}
		if body["message"] == "" || body["message"] == nil {
			t.Errorf("%s: rejection carries no message", tc.name)
		}
	}
}

func TestReaggregateAllEndpoint(t *testing.T) {
	store, _, r := newTestServer(t)
	a := seedPlan(t, store, "A", "anna", model.StateReady)
	b := seedPlan(t, store, "B", "bob", model.StateReady)

	body := doJSON(t, r, http.MethodPost, "/api/plans/reaggregate-all")
	if body["success"] != true {
		t.Fatalf("success = %v, want true", body["success"])
	}
	if marked, ok := body["marked"].(float64); !ok || marked != 2 {
		t.Errorf("marked = %v, want 2", body["marked"])
	}

	for _, id := range []model.PlanID{a, b} {
		plan, err := store.Plan(id)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if plan.State != model.StateNeedsReagg {
			t.Errorf("plan %d state = %q, want %q", id, plan.State, model.StateNeedsReagg)
		}
	}
}

func itoa(id model.PlanID) string {
	return strconv.FormatInt(int64(id), 10)
}
