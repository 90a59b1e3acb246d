package deploy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/progress"
)

// Service runs deployments: preview (read + diff only) and apply runs that
// hold the catalog lease and record progress in a progress.Store.
type Service struct {
	catalog   Catalog
	store     progress.Store
	locker    Locker
	catalogID string
	logger    *zap.Logger

	now      func() time.Time
	newRunID func(time.Time) string
	wg       sync.WaitGroup
}

// NewService creates a deployment service for one catalog (store)
func NewService(catalog Catalog, store progress.Store, locker Locker, catalogID string, logger *zap.Logger) *Service {
	return &Service{
		catalog:   catalog,
		store:     store,
		locker:    locker,
		catalogID: catalogID,
		logger:    logger,
		now:       time.Now,
		newRunID:  NewRunID,
	}
}

// NewRunID builds a run id from the start time plus a random suffix
func NewRunID(at time.Time) string {
	return fmt.Sprintf("deploy-%s-%s", at.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}

// Preview reads the backend and computes the diff. It never mutates remote state.
func (s *Service) Preview(ctx context.Context, cfg domain.PricingConfig, opts DiffOptions) (domain.DeploymentDiff, error) {
	if err := checkHandles(cfg); err != nil {
		return domain.DeploymentDiff{}, err
	}
	actual, err := s.catalog.ListVessels(ctx)
	if err != nil {
		return domain.DeploymentDiff{}, fmt.Errorf("read remote catalog: %w", err)
	}
	diff := ComputeDiff(cfg, actual, opts)
	s.logger.Info("Deployment preview computed", zap.String("summary", diff.Summary))
	return diff, nil
}

// Start acquires the catalog lease and runs the deployment in the background.
// It returns the run id immediately; progress and the result are read from
// the store. The run's first event is recorded before Start returns. The run
// is detached from ctx cancellation.
func (s *Service) Start(ctx context.Context, cfg domain.PricingConfig, opts DiffOptions) (string, error) {
	if err := checkHandles(cfg); err != nil {
		return "", err
	}
	release, err := s.locker.Acquire(ctx, s.catalogID)
	if err != nil {
		return "", err
	}
	runCtx := context.WithoutCancel(ctx)
	rec := s.begin(runCtx, nil)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.execute(runCtx, rec, cfg, opts, nil, release)
	}()
	return rec.runID, nil
}

// Run is the synchronous form of Start. onProgress, if set, also receives
// every event as it is recorded; a panic in it is recorded as a run error.
func (s *Service) Run(ctx context.Context, cfg domain.PricingConfig, opts DiffOptions, onProgress ProgressFunc) (domain.DeploymentResult, error) {
	return s.run(ctx, cfg, opts, nil, onProgress)
}

// RunPlanned is Run for a diff the caller has already confirmed. If the
// remote catalog now yields different operations, nothing is mutated and the
// error wraps domain.ErrPlanChanged.
func (s *Service) RunPlanned(
	ctx context.Context,
	cfg domain.PricingConfig,
	opts DiffOptions,
	planned domain.DeploymentDiff,
	onProgress ProgressFunc,
) (domain.DeploymentResult, error) {
	return s.run(ctx, cfg, opts, &planned, onProgress)
}

func (s *Service) run(
	ctx context.Context,
	cfg domain.PricingConfig,
	opts DiffOptions,
	planned *domain.DeploymentDiff,
	onProgress ProgressFunc,
) (domain.DeploymentResult, error) {
	if err := checkHandles(cfg); err != nil {
		return domain.DeploymentResult{}, err
	}
	release, err := s.locker.Acquire(ctx, s.catalogID)
	if err != nil {
		return domain.DeploymentResult{}, err
	}
	rec := s.begin(ctx, onProgress)
	return s.execute(ctx, rec, cfg, opts, planned, release)
}

// Wait blocks until every background run started by Start has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// Progress returns the run's events with Seq > afterSeq
func (s *Service) Progress(ctx context.Context, runID string, afterSeq int) ([]domain.DeploymentProgress, error) {
	return s.store.List(ctx, runID, afterSeq)
}

// Result returns the final result of a finished run
func (s *Service) Result(ctx context.Context, runID string) (domain.DeploymentResult, error) {
	return s.store.Result(ctx, runID)
}

// begin allocates a run id and records the run's first event
func (s *Service) begin(ctx context.Context, onProgress ProgressFunc) *recorder {
	runID := s.newRunID(s.now())
	rec := &recorder{
		runID:   runID,
		store:   s.store,
		now:     s.now,
		logger:  s.logger.With(zap.String("run_id", runID), zap.String("catalog_id", s.catalogID)),
		forward: onProgress,
		started: s.now(),
	}
	rec.logger.Info("Deployment run started")
	rec.record(ctx, domain.DeploymentProgress{Kind: domain.ProgressInfo, Message: "deployment started"})
	return rec
}

func (s *Service) execute(
	ctx context.Context,
	rec *recorder,
	cfg domain.PricingConfig,
	opts DiffOptions,
	planned *domain.DeploymentDiff,
	release func(),
) (domain.DeploymentResult, error) {
	defer release()
	logger := rec.logger

	actual, err := s.catalog.ListVessels(ctx)
	if err != nil {
		logger.Error("Failed to read remote catalog", zap.Error(err))
		result := s.abort(rec, ComputeDiff(domain.PricingConfig{}, nil, DiffOptions{}),
			fmt.Sprintf("read remote catalog: %v", err))
		rec.record(ctx, domain.DeploymentProgress{Kind: domain.ProgressError, Message: result.Errors[0]})
		s.complete(ctx, rec, &result)
		return result, nil
	}

	diff := ComputeDiff(cfg, actual, opts)
	rec.record(ctx, domain.DeploymentProgress{Kind: domain.ProgressInfo, Message: diff.Summary})
	for _, w := range diff.Warnings {
		logger.Warn("Remote catalog inconsistency", zap.String("warning", w))
		rec.record(ctx, domain.DeploymentProgress{Kind: domain.ProgressError, Message: w})
	}

	if planned != nil && !diff.SameOperations(*planned) {
		msg := fmt.Sprintf("%v: confirmed %q, now %q", domain.ErrPlanChanged, planned.Summary, diff.Summary)
		logger.Warn("Deployment plan changed before apply", zap.String("planned", planned.Summary), zap.String("current", diff.Summary))
		result := s.abort(rec, diff, msg)
		rec.record(ctx, domain.DeploymentProgress{Kind: domain.ProgressError, Message: msg})
		s.complete(ctx, rec, &result)
		return result, fmt.Errorf("confirmed %q, now %q: %w", planned.Summary, diff.Summary, domain.ErrPlanChanged)
	}

	applier := &Applier{Catalog: s.catalog, Logger: logger, Now: s.now}
	result := applier.ApplyDiff(ctx, rec.runID, diff, cfg, actual, func(p domain.DeploymentProgress) {
		rec.record(ctx, p)
	})
	result.StartedAt = rec.started
	result.Errors = append(result.Errors, diff.Warnings...)
	result.Finalize(s.now())

	msg := "deployment finished"
	if !result.Success {
		msg = "deployment finished with errors"
	}
	rec.record(ctx, domain.DeploymentProgress{Kind: domain.ProgressInfo, Message: msg})
	s.complete(ctx, rec, &result)

	logger.Info("Deployment run finished",
		zap.Bool("success", result.Success),
		zap.String("summary", diff.Summary),
		zap.Duration("took", result.FinishedAt.Sub(rec.started)),
	)
	return result, nil
}

// abort builds the result of a run that stopped before any mutation
func (s *Service) abort(rec *recorder, diff domain.DeploymentDiff, reason string) domain.DeploymentResult {
	result := domain.DeploymentResult{
		RunID:     rec.runID,
		Diff:      diff,
		Results:   []domain.VesselResult{},
		Errors:    []string{reason},
		StartedAt: rec.started,
	}
	result.Finalize(s.now())
	return result
}

// complete folds callback failures into the result and saves it
func (s *Service) complete(ctx context.Context, rec *recorder, result *domain.DeploymentResult) {
	if len(rec.callbackErrors) > 0 {
		result.Errors = append(result.Errors, rec.callbackErrors...)
		result.Success = false
	}
	if err := s.store.SaveResult(ctx, *result); err != nil {
		rec.logger.Error("Failed to save deployment result", zap.Error(err))
	}
}

// recorder numbers a run's events, appends them to the store and forwards
// them to the caller. Store failures are logged and a panicking callback is
// recorded; neither stops the run.
type recorder struct {
	runID          string
	seq            int
	store          progress.Store
	now            func() time.Time
	logger         *zap.Logger
	forward        ProgressFunc
	started        time.Time
	callbackErrors []string
}

func (r *recorder) record(ctx context.Context, p domain.DeploymentProgress) {
	r.seq++
	p.RunID = r.runID
	p.Seq = r.seq
	if p.At.IsZero() {
		p.At = r.now()
	}
	if err := r.store.Append(ctx, p); err != nil {
		r.logger.Warn("Failed to record progress", zap.Int("seq", p.Seq), zap.Error(err))
	}
	if r.forward != nil {
		r.forwardGuarded(p)
	}
}

func (r *recorder) forwardGuarded(p domain.DeploymentProgress) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("Progress callback panicked", zap.Any("panic", v), zap.Int("seq", p.Seq))
			r.callbackErrors = append(r.callbackErrors, fmt.Sprintf("progress callback panicked on event %d: %v", p.Seq, v))
		}
	}()
	r.forward(p)
}

func checkHandles(cfg domain.PricingConfig) error {
	seen := make(map[string]bool, len(cfg.Vessels))
	for _, v := range cfg.Vessels {
		if v.Handle == "" {
			return fmt.Errorf("vessel with empty handle: %w", domain.ErrInvalidArgument)
		}
		if seen[v.Handle] {
			return fmt.Errorf("duplicate vessel handle %q: %w", v.Handle, domain.ErrInvalidArgument)
		}
		seen[v.Handle] = true
	}
	return nil
}
