package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"darvas/internal/config"
	"darvas/internal/config/loader"
	"darvas/internal/logger"
	"darvas/internal/store/model"
	"darvas/internal/store/state"
	"darvas/internal/strategy"
	"darvas/internal/types"
)

// Service accepts run submissions, resolves the profile into engine
// parameters and executes runs in the background. Runs share the state
// database, so only one may execute at a time.
type Service struct {
	cfg      *config.Config
	profiles *loader.Registry
	states   *state.Store
	sim      *Simulator

	mu      sync.Mutex
	ctx     context.Context
	running bool
}

func NewService(cfg *config.Config, profiles *loader.Registry, states *state.Store, simulator *Simulator) *Service {
	return &Service{
		cfg:      cfg,
		profiles: profiles,
		states:   states,
		sim:      simulator,
		ctx:      context.Background(),
	}
}

// SetContext binds the lifetime of background runs to the app context.
func (s *Service) SetContext(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx != nil {
		s.ctx = ctx
	}
}

// StartRunRequest is a run submission. Empty fields fall back to the
// configured simulation defaults.
type StartRunRequest struct {
	Profile     string
	Overrides   map[string]any
	StartDate   string
	EndDate     string
	InitialCash *float64
	Tickers     []string
}

// StartRun validates the submission, records the run and launches it in the
// background. It returns the new run ID immediately.
func (s *Service) StartRun(ctx context.Context, req StartRunRequest) (string, error) {
	profile := strings.TrimSpace(req.Profile)
	if profile == "" {
		profile = s.cfg.Sim.Profile
	}
	if profile == "" {
		if p, ok := s.profiles.DefaultProfile(); ok {
			profile = p.Name
		}
	}
	if profile == "" {
		return "", fmt.Errorf("no profile given and no default configured")
	}

	strategyCfg, err := s.profiles.Resolve(profile, req.Overrides, s.cfg.Strategy)
	if err != nil {
		return "", err
	}

	runReq, err := s.buildRunRequest(profile, strategyCfg, req)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return "", fmt.Errorf("a run is already in progress")
	}
	s.running = true
	runCtx := s.ctx
	s.mu.Unlock()

	paramsJSON, err := json.Marshal(strategyCfg)
	if err != nil {
		s.finish()
		return "", fmt.Errorf("encoding run params: %w", err)
	}
	record := model.RunModel{
		ID:          runReq.RunID,
		Profile:     profile,
		StartDate:   runReq.StartDate.Format(types.DateLayout),
		EndDate:     runReq.EndDate.Format(types.DateLayout),
		InitialCash: runReq.InitialCash.String(),
		ParamsJSON:  paramsJSON,
	}
	if err := s.states.CreateRun(ctx, record); err != nil {
		s.finish()
		return "", fmt.Errorf("recording run: %w", err)
	}

	go s.execute(runCtx, runReq)
	return runReq.RunID, nil
}

func (s *Service) buildRunRequest(profile string, strategyCfg config.StrategyConfig, req StartRunRequest) (RunRequest, error) {
	startRaw := firstNonEmpty(req.StartDate, s.cfg.Sim.StartDate)
	endRaw := firstNonEmpty(req.EndDate, s.cfg.Sim.EndDate)
	start, err := types.ParseDate(startRaw)
	if err != nil {
		return RunRequest{}, fmt.Errorf("bad start date %q: %w", startRaw, err)
	}
	end, err := types.ParseDate(endRaw)
	if err != nil {
		return RunRequest{}, fmt.Errorf("bad end date %q: %w", endRaw, err)
	}
	if end.Before(start) {
		return RunRequest{}, fmt.Errorf("end date %s before start date %s", endRaw, startRaw)
	}

	initialCash := decimal.NewFromFloat(s.cfg.Sim.InitialCash)
	if req.InitialCash != nil {
		initialCash = decimal.NewFromFloat(*req.InitialCash)
	}
	if !initialCash.IsPositive() {
		return RunRequest{}, fmt.Errorf("initial cash must be positive")
	}

	// The wallet mode comes from the startup config the state store was
	// built with, never from the resolved profile.
	return RunRequest{
		RunID:         uuid.NewString(),
		Profile:       profile,
		Params:        strategy.ParamsFromConfig(strategyCfg),
		WalletMode:    s.cfg.Strategy.NormalizedWalletMode(),
		StartDate:     start,
		EndDate:       end,
		InitialCash:   initialCash,
		MaxConcurrent: s.cfg.Sim.MaxConcurrent,
		Tickers:       req.Tickers,
	}, nil
}

func (s *Service) execute(ctx context.Context, req RunRequest) {
	defer s.finish()
	started := time.Now()

	report, err := s.sim.Run(ctx, req)
	if err != nil {
		logger.Errorf("run %s failed: %v", req.RunID, err)
		if cerr := s.states.CompleteRun(context.Background(), req.RunID, state.RunStatusFailed, err.Error(), nil); cerr != nil {
			logger.Errorf("run %s: recording failure: %v", req.RunID, cerr)
		}
		return
	}
	logger.Infof("run %s completed in %s: return %s%%, %d buys, %d sells",
		req.RunID, time.Since(started).Round(time.Millisecond), report.ReturnPct, report.Buys, report.Sells)
	if err := s.states.CompleteRun(context.Background(), req.RunID, state.RunStatusCompleted, "", report); err != nil {
		logger.Errorf("run %s: recording report: %v", req.RunID, err)
	}
}

func (s *Service) finish() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
