// Package httpserver exposes the simulation API: submitting runs, reading
// run reports, positions, transactions and the evaluation audit log.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"darvas/internal/config/loader"
	"darvas/internal/sim"
	"darvas/internal/store/state"
)

type Server struct {
	addr     string
	svc      *sim.Service
	states   *state.Store
	profiles *loader.Registry
	router   *gin.Engine
}

// Config describes the server's dependencies.
type Config struct {
	Addr     string
	Service  *sim.Service
	States   *state.Store
	Profiles *loader.Registry
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("run service is required")
	}
	if cfg.States == nil {
		return nil, errors.New("state store is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:     cfg.Addr,
		svc:      cfg.Service,
		states:   cfg.States,
		profiles: cfg.Profiles,
		router:   router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	api.GET("/healthz", s.handleHealthz)
	api.GET("/profiles", s.handleProfiles)
	api.POST("/runs", s.handleRunStart)
	api.GET("/runs", s.handleRunList)
	api.GET("/runs/:id", s.handleRunDetail)
	api.GET("/positions", s.handlePositions)
	api.GET("/transactions", s.handleTransactions)
	api.GET("/log", s.handleEvalLog)
	api.GET("/boxes/:ticker", s.handleBoxes)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleProfiles(c *gin.Context) {
	if s.profiles == nil {
		c.JSON(http.StatusOK, gin.H{"profiles": gin.H{}})
		return
	}
	snap := s.profiles.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"version":   snap.Version,
		"loaded_at": snap.LoadedAt,
		"profiles":  snap.Profiles,
	})
}

func (s *Server) handleRunStart(c *gin.Context) {
	var req struct {
		Profile     string         `json:"profile"`
		Overrides   map[string]any `json:"overrides"`
		StartDate   string         `json:"start_date"`
		EndDate     string         `json:"end_date"`
		InitialCash *float64       `json:"initial_cash"`
		Tickers     []string       `json:"tickers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := s.svc.StartRun(c.Request.Context(), sim.StartRunRequest{
		Profile:     req.Profile,
		Overrides:   req.Overrides,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		InitialCash: req.InitialCash,
		Tickers:     req.Tickers,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": id})
}

func (s *Server) handleRunList(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	runs, err := s.states.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunDetail(c *gin.Context) {
	run, found, err := s.states.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	resp := gin.H{"run": run}
	if len(run.ReportJSON) > 0 {
		var report sim.Report
		if err := json.Unmarshal(run.ReportJSON, &report); err == nil {
			resp["report"] = report
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePositions(c *gin.Context) {
	positions, err := s.states.Positions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) handleTransactions(c *gin.Context) {
	txns, err := s.states.Transactions(c.Request.Context(), c.Query("ticker"), intQuery(c, "limit", 200))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

func (s *Server) handleEvalLog(c *gin.Context) {
	logs, err := s.states.EvalLogs(c.Request.Context(), c.Query("ticker"), intQuery(c, "limit", 200))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"log": logs})
}

func (s *Server) handleBoxes(c *gin.Context) {
	boxes, err := s.states.Boxes(c.Request.Context(), c.Param("ticker"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"boxes": boxes})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
