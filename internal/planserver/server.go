package planserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/publicmapping/planwatch/internal/model"
	"github.com/publicmapping/planwatch/internal/planstore"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PlanStore is the narrow store contract required by the HTTP API.
type PlanStore interface {
	ListPlans(filter model.FilterID, owner string) ([]model.Plan, error)
	Statuses(ids []model.PlanID) (model.StatusSnapshot, error)
	Plan(id model.PlanID) (model.Plan, error)
	MarkAllNeedsReaggregation() (int64, error)
}

// ReaggQueue accepts reaggregation requests.
type ReaggQueue interface {
	Enqueue(id model.PlanID) error
}

// Server provides the plan-status HTTP API the watcher polls.
type Server struct {
	addr      string
	store     PlanStore
	queue     ReaggQueue
	logger    *zap.Logger
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a plan API server.
func NewServer(addr string, store PlanStore, queue ReaggQueue, logger *zap.Logger) *Server {
	if addr == "" {
		addr = "0.0.0.0:8800"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		store:  store,
		queue:  queue,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/plans", s.handlePlans)
	r.GET("/api/plans/statuses", s.handleStatuses)
	r.POST("/api/plans/:id/reaggregate", s.handleReaggregate)
	r.POST("/api/plans/reaggregate-all", s.handleReaggregateAll)

	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Router(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()
	s.logger.Info("plan API listening", zap.String("addr", listener.Addr().String()))

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Server) handlePlans(c *gin.Context) {
	filter := model.FilterID(c.DefaultQuery("filter", string(model.FilterMine)))
	owner := c.Query("owner")

	plans, err := s.store.ListPlans(filter, owner)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}
	if plans == nil {
		plans = []model.Plan{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "plans": plans})
}

func (s *Server) handleStatuses(c *gin.Context) {
	ids, err := parseIDs(c.Query("ids"))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "malformed ids parameter"})
		return
	}

	snap, err := s.store.Statuses(ids)
	if err != nil {
		s.logger.Warn("status query failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "could not read plan statuses"})
		return
	}

	statuses := make(map[string]string, len(snap))
	for id, state := range snap {
		statuses[strconv.FormatInt(int64(id), 10)] = string(state)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "statuses": statuses})
}

func (s *Server) handleReaggregate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "malformed plan id"})
		return
	}

	if err := s.queue.Enqueue(model.PlanID(id)); err != nil {
		switch {
		case errors.Is(err, planstore.ErrNotFound):
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "no such plan"})
		case errors.Is(err, planstore.ErrNotStale):
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "plan does not need reaggregation"})
		default:
			s.logger.Warn("reaggregation trigger failed", zap.Int64("plan", id), zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "could not queue reaggregation"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleReaggregateAll flags every plan as stale, the admin operation run
// after edits to the underlying geographic units. Plans are not queued; each
// is reaggregated on demand.
func (s *Server) handleReaggregateAll(c *gin.Context) {
	n, err := s.store.MarkAllNeedsReaggregation()
	if err != nil {
		s.logger.Warn("mark all stale failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "could not mark plans stale"})
		return
	}

	s.logger.Info("marked all plans stale", zap.Int64("plans", n))
	c.JSON(http.StatusOK, gin.H{"success": true, "marked": n})
}

func parseIDs(raw string) ([]model.PlanID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]model.PlanID, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, model.PlanID(id))
	}
	return ids, nil
}
