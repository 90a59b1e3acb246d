package deploy

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

// Applier applies a DeploymentDiff against the commerce backend, one vessel at a time
type Applier struct {
	Catalog CatalogWriter
	Logger  *zap.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// NewApplier creates an Applier writing through catalog
func NewApplier(catalog CatalogWriter, logger *zap.Logger) *Applier {
	return &Applier{Catalog: catalog, Logger: logger, Now: time.Now}
}

type step struct {
	op     domain.Operation
	handle string
}

// ApplyDiff runs the diff's operations in the fixed order create, update,
// disable, delete. A failing vessel is recorded and the run moves on; it never
// aborts the batch. onProgress is called synchronously after every operation.
// Cancelling ctx stops further remote calls; the remaining vessels are
// recorded as canceled.
func (a *Applier) ApplyDiff(
	ctx context.Context,
	runID string,
	diff domain.DeploymentDiff,
	desired domain.PricingConfig,
	actual []domain.RemoteProduct,
	onProgress ProgressFunc,
) domain.DeploymentResult {
	logger := a.logger().With(zap.String("run_id", runID))
	result := domain.DeploymentResult{
		RunID:     runID,
		Diff:      diff,
		Results:   make([]domain.VesselResult, 0, diff.Total()),
		StartedAt: a.now(),
	}
	em := &emitter{runID: runID, fn: onProgress, now: a.now, result: &result, logger: logger}

	remoteByHandle := make(map[string]domain.RemoteProduct, len(actual))
	for _, p := range actual {
		if _, dup := remoteByHandle[p.Handle]; !dup {
			remoteByHandle[p.Handle] = p
		}
	}

	steps := make([]step, 0, diff.Total())
	for _, h := range diff.ToCreate {
		steps = append(steps, step{domain.OperationCreate, h})
	}
	for _, h := range diff.ToUpdate {
		steps = append(steps, step{domain.OperationUpdate, h})
	}
	for _, h := range diff.ToDisable {
		steps = append(steps, step{domain.OperationDisable, h})
	}
	for _, h := range diff.ToDelete {
		steps = append(steps, step{domain.OperationDelete, h})
	}

	for _, s := range steps {
		vr := domain.VesselResult{Handle: s.handle, Operation: s.op}

		if err := ctx.Err(); err != nil {
			vr.Errors = append(vr.Errors, fmt.Sprintf("canceled before %s: %v", s.op, err))
			result.Results = append(result.Results, vr)
			em.emit(domain.DeploymentProgress{
				Kind: domain.ProgressError, Operation: s.op, Handle: s.handle,
				Message: fmt.Sprintf("%s %s skipped: %v", s.op, s.handle, err),
			})
			continue
		}

		err := a.applyStep(ctx, s, desired, remoteByHandle, &vr)
		if err != nil {
			logger.Warn("Vessel operation failed",
				zap.String("operation", string(s.op)),
				zap.String("handle", s.handle),
				zap.Error(err),
			)
			vr.Errors = append(vr.Errors, err.Error())
			result.Results = append(result.Results, vr)
			em.emit(domain.DeploymentProgress{
				Kind: domain.ProgressError, Operation: s.op, Handle: s.handle, ProductID: vr.ProductID,
				Message: fmt.Sprintf("failed to %s vessel %s: %v", s.op, s.handle, err),
			})
			continue
		}

		logger.Info("Vessel operation applied",
			zap.String("operation", string(s.op)),
			zap.String("handle", s.handle),
			zap.String("product_id", vr.ProductID),
			zap.Int("variants", vr.VariantCount),
		)
		result.Results = append(result.Results, vr)
		em.emit(domain.DeploymentProgress{
			Kind: domain.KindFor(s.op), Operation: s.op, Handle: s.handle, ProductID: vr.ProductID,
			Message: fmt.Sprintf("%s vessel %s", pastTense(s.op), s.handle),
		})
	}

	result.Finalize(a.now())
	return result
}

func (a *Applier) applyStep(
	ctx context.Context,
	s step,
	desired domain.PricingConfig,
	remoteByHandle map[string]domain.RemoteProduct,
	vr *domain.VesselResult,
) error {
	remote, haveRemote := remoteByHandle[s.handle]
	if haveRemote {
		vr.ProductID = remote.ID
		vr.VariantCount = len(remote.Variants)
	}

	switch s.op {
	case domain.OperationCreate:
		vessel, ok := desired.Find(s.handle)
		if !ok {
			return fmt.Errorf("vessel %s is not in the pricing config", s.handle)
		}
		variants := vessel.Variants()
		id, err := a.Catalog.CreateVessel(ctx, vessel, variants)
		if err != nil {
			return err
		}
		vr.ProductID = id
		vr.VariantCount = len(variants)
		return nil

	case domain.OperationUpdate:
		vessel, ok := desired.Find(s.handle)
		if !ok {
			return fmt.Errorf("vessel %s is not in the pricing config", s.handle)
		}
		if !haveRemote {
			return fmt.Errorf("vessel %s not found in the backend snapshot", s.handle)
		}
		variants := vessel.Variants()
		if err := a.Catalog.UpdateVessel(ctx, remote, vessel, variants); err != nil {
			return err
		}
		vr.VariantCount = len(variants)
		return nil

	case domain.OperationDisable:
		if !haveRemote {
			return fmt.Errorf("vessel %s not found in the backend snapshot", s.handle)
		}
		return a.Catalog.SetVesselEnabled(ctx, remote.ID, false)

	case domain.OperationDelete:
		if !haveRemote {
			return fmt.Errorf("vessel %s not found in the backend snapshot", s.handle)
		}
		return a.Catalog.DeleteVessel(ctx, remote.ID)
	}
	return fmt.Errorf("unknown operation %q", s.op)
}

func (a *Applier) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Applier) logger() *zap.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return zap.NewNop()
}

func pastTense(op domain.Operation) string {
	switch op {
	case domain.OperationCreate:
		return "created"
	case domain.OperationUpdate:
		return "updated"
	case domain.OperationDisable:
		return "disabled"
	case domain.OperationDelete:
		return "deleted"
	}
	return string(op)
}

// emitter numbers events and shields the run from a panicking callback
type emitter struct {
	runID  string
	seq    int
	fn     ProgressFunc
	now    func() time.Time
	result *domain.DeploymentResult
	logger *zap.Logger
}

func (e *emitter) emit(p domain.DeploymentProgress) {
	e.seq++
	p.RunID = e.runID
	p.Seq = e.seq
	p.At = e.now()
	if e.fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Progress callback panicked", zap.Any("panic", r), zap.Int("seq", p.Seq))
			e.result.Errors = append(e.result.Errors, fmt.Sprintf("progress callback panicked on event %d: %v", p.Seq, r))
		}
	}()
	e.fn(p)
}
