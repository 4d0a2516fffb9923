package planserver_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/publicmapping/planwatch/internal/client"
	"github.com/publicmapping/planwatch/internal/model"
	"github.com/publicmapping/planwatch/internal/planserver"
	"github.com/publicmapping/planwatch/internal/planstore"

	"github.com/gin-gonic/gin"
)

// Full loop: seed plans, trigger a reaggregation through the HTTP client,
// and poll statuses until the simulated recomputation completes.
func TestEndToEnd_ReaggregationLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store, err := planstore.Open(filepath.Join(t.TempDir(), "plans.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	id, err := store.CreatePlan(model.Plan{Name: "Senate draft", Owner: "anna", State: model.StateNeedsReagg})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	worker := planstore.NewWorker(store, 30*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	srv := planserver.NewServer("", store, worker, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	api := client.New(client.Config{BaseURL: ts.URL, Username: "anna"})

	plans, err := api.ListPlans(ctx, model.FilterMine)
	if err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	if len(plans) != 1 || plans[0].State != model.StateNeedsReagg {
		t.Fatalf("plans = %+v, want one stale plan", plans)
	}

	if err := api.Reaggregate(ctx, id); err != nil {
		t.Fatalf("Reaggregate: %v", err)
	}

	snap, err := api.PlanStatuses(ctx, []model.PlanID{id})
	if err != nil {
		t.Fatalf("PlanStatuses: %v", err)
	}
	if snap[id] != model.StateReaggregating {
		t.Fatalf("state right after trigger = %q, want %q", snap[id], model.StateReaggregating)
	}

	// A second trigger while in progress is an application-level rejection.
	err = api.Reaggregate(ctx, id)
	var reqErr *client.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("second trigger error = %v, want *client.RequestError", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err = api.PlanStatuses(ctx, []model.PlanID{id})
		if err != nil {
			t.Fatalf("PlanStatuses: %v", err)
		}
		if snap[id] == model.StateReady {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("state = %q, want %q before deadline", snap[id], model.StateReady)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
