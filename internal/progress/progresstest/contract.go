// Package progresstest provides contract tests for [progress.Store]
// implementations.
package progresstest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/progress"
)

// Factory creates a fresh [progress.Store] for each test.
type Factory func(t *testing.T) progress.Store

// Run exercises the [progress.Store] contract.
func Run(t *testing.T, factory Factory) {
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	event := func(runID string, seq int, kind domain.ProgressKind, handle string) domain.DeploymentProgress {
		return domain.DeploymentProgress{
			RunID: runID, Seq: seq, Kind: kind, Operation: domain.OperationCreate,
			Handle: handle, ProductID: "gid://shopify/Product/" + handle,
			Message: string(kind) + " " + handle, At: at.Add(time.Duration(seq) * time.Second),
		}
	}

	t.Run("AppendAndList", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		for i, h := range []string{"a", "b", "c"} {
			if err := store.Append(ctx, event("run-1", i+1, domain.ProgressCreate, h)); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}
		_ = store.Append(ctx, event("run-2", 1, domain.ProgressDisable, "z"))

		got, err := store.List(ctx, "run-1", 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("List len = %d, want 3", len(got))
		}
		for i, want := range []string{"a", "b", "c"} {
			if got[i].Handle != want || got[i].Seq != i+1 {
				t.Errorf("event[%d] = (%s, %d), want (%s, %d)", i, got[i].Handle, got[i].Seq, want, i+1)
			}
		}
		if got[0].Kind != domain.ProgressCreate || got[0].Operation != domain.OperationCreate {
			t.Errorf("event[0] kind/op = %s/%s", got[0].Kind, got[0].Operation)
		}
		if got[0].ProductID != "gid://shopify/Product/a" || got[0].Message != "create a" {
			t.Errorf("event[0] fields not round-tripped: %+v", got[0])
		}
		if !got[0].At.Equal(at.Add(time.Second)) {
			t.Errorf("event[0].At = %v, want %v", got[0].At, at.Add(time.Second))
		}
	})

	t.Run("ListAfterSeq", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()
		for i := 1; i <= 4; i++ {
			_ = store.Append(ctx, event("run-1", i, domain.ProgressUpdate, "v"))
		}
		got, err := store.List(ctx, "run-1", 2)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 2 || got[0].Seq != 3 || got[1].Seq != 4 {
			t.Fatalf("List after 2 = %+v, want seq 3 and 4", got)
		}
	})

	t.Run("ListUnknownRunIsEmpty", func(t *testing.T) {
		store := factory(t)
		got, err := store.List(context.Background(), "nope", 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("List len = %d, want 0", len(got))
		}
	})

	t.Run("SaveAndGetResult", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()
		res := domain.DeploymentResult{
			RunID:   "run-1",
			Success: false,
			Diff:    domain.DeploymentDiff{ToCreate: []string{"a"}, Summary: domain.Summarize(1, 0, 0, 0)},
			Results: []domain.VesselResult{
				{Handle: "a", Operation: domain.OperationCreate, Errors: []string{"boom"}},
			},
			StartedAt:  at,
			FinishedAt: at.Add(time.Minute),
		}
		if err := store.SaveResult(ctx, res); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
		got, err := store.Result(ctx, "run-1")
		if err != nil {
			t.Fatalf("Result: %v", err)
		}
		if got.RunID != "run-1" || got.Success || len(got.Results) != 1 || got.Results[0].Errors[0] != "boom" {
			t.Errorf("Result = %+v", got)
		}
		if got.Diff.Summary != res.Diff.Summary {
			t.Errorf("Summary = %q, want %q", got.Diff.Summary, res.Diff.Summary)
		}
	})

	t.Run("ResultNotFound", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()
		_ = store.Append(ctx, event("run-1", 1, domain.ProgressInfo, ""))
		_, err := store.Result(ctx, "run-1")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Result: got %v, want ErrNotFound", err)
		}
	})

	t.Run("Expire", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()
		_ = store.Append(ctx, event("run-1", 1, domain.ProgressCreate, "a"))
		_ = store.SaveResult(ctx, domain.DeploymentResult{RunID: "run-2"})

		n, err := store.Expire(ctx, time.Now().Add(-time.Hour))
		if err != nil {
			t.Fatalf("Expire: %v", err)
		}
		if n != 0 {
			t.Fatalf("Expire in the past removed %d runs, want 0", n)
		}

		n, err = store.Expire(ctx, time.Now().Add(time.Hour))
		if err != nil {
			t.Fatalf("Expire: %v", err)
		}
		if n != 2 {
			t.Fatalf("Expire removed %d runs, want 2", n)
		}
		got, _ := store.List(ctx, "run-1", 0)
		if len(got) != 0 {
			t.Errorf("events survived expiry: %+v", got)
		}
		if _, err := store.Result(ctx, "run-2"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("result survived expiry: %v", err)
		}
	})
}
