package deploy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

func threeVesselConfig() domain.PricingConfig {
	return domain.PricingConfig{Vessels: []domain.VesselConfig{
		vessel("a-jar", map[string]string{"soy/wood": "10.00"}),
		vessel("b-jar", map[string]string{"soy/wood": "11.00", "soy/cotton": "11.50"}),
		vessel("c-jar", map[string]string{"soy/wood": "12.00"}),
	}}
}

func TestApplyDiff_PartialFailureContinues(t *testing.T) {
	catalog := newFakeCatalog(remote("legacy-jar", true))
	catalog.failOn["create:b-jar"] = errors.New("shopify API error: status 500")

	desired := threeVesselConfig()
	actual, _ := catalog.ListVessels(context.Background())
	diff := ComputeDiff(desired, actual, DiffOptions{})
	require.Equal(t, []string{"a-jar", "b-jar", "c-jar"}, diff.ToCreate)
	require.Equal(t, []string{"legacy-jar"}, diff.ToDisable)

	var events []domain.DeploymentProgress
	res := NewApplier(catalog, zap.NewNop()).ApplyDiff(context.Background(), "run-1", diff, desired, actual,
		func(p domain.DeploymentProgress) { events = append(events, p) })

	assert.False(t, res.Success)
	assert.Empty(t, res.Errors)
	assert.Equal(t, diff, res.Diff)
	require.Len(t, res.Results, 4)

	assert.Equal(t, "a-jar", res.Results[0].Handle)
	assert.True(t, res.Results[0].OK())
	assert.NotEmpty(t, res.Results[0].ProductID)
	assert.Equal(t, 1, res.Results[0].VariantCount)

	assert.Equal(t, "b-jar", res.Results[1].Handle)
	require.Len(t, res.Results[1].Errors, 1)
	assert.Contains(t, res.Results[1].Errors[0], "status 500")

	assert.Equal(t, "c-jar", res.Results[2].Handle)
	assert.True(t, res.Results[2].OK())

	assert.Equal(t, "legacy-jar", res.Results[3].Handle)
	assert.Equal(t, domain.OperationDisable, res.Results[3].Operation)
	assert.True(t, res.Results[3].OK())

	// progress arrives in operation order, one event per vessel, no interleaving across groups
	type ev struct {
		kind   domain.ProgressKind
		handle string
	}
	got := make([]ev, 0, len(events))
	for i, e := range events {
		assert.Equal(t, i+1, e.Seq)
		assert.Equal(t, "run-1", e.RunID)
		got = append(got, ev{e.Kind, e.Handle})
	}
	assert.Equal(t, []ev{
		{domain.ProgressCreate, "a-jar"},
		{domain.ProgressError, "b-jar"},
		{domain.ProgressCreate, "c-jar"},
		{domain.ProgressDisable, "legacy-jar"},
	}, got)
	assert.Equal(t, domain.OperationCreate, events[1].Operation)

	assert.Equal(t, []string{"create:a-jar", "create:b-jar", "create:c-jar", "disable:legacy-jar"}, catalog.Calls())
}

func TestApplyDiff_GroupOrder(t *testing.T) {
	gone := vessel("gone", nil)
	gone.Enabled, gone.Remove = false, true
	desired := domain.PricingConfig{Vessels: []domain.VesselConfig{
		gone,
		vessel("changed", map[string]string{"soy/wood": "10"}),
		vessel("new", map[string]string{"soy/wood": "10"}),
	}}
	catalog := newFakeCatalog(
		remote("gone", true),
		remote("stale", true),
		remote("changed", true, rv("changed", "soy", "wood", "9")),
	)
	actual, _ := catalog.ListVessels(context.Background())
	diff := ComputeDiff(desired, actual, DiffOptions{ConfirmDelete: []string{"gone"}})

	res := NewApplier(catalog, nil).ApplyDiff(context.Background(), "run-1", diff, desired, actual, nil)

	require.True(t, res.Success)
	assert.Equal(t, []string{"create:new", "update:changed", "disable:stale", "delete:gone"}, catalog.Calls())
}

func TestApplyDiff_EventEmittedBeforeNextCall(t *testing.T) {
	catalog := newFakeCatalog()
	desired := threeVesselConfig()
	diff := ComputeDiff(desired, nil, DiffOptions{})

	var trace []string
	catalog.onCall = func(call string) { trace = append(trace, "call "+call) }
	NewApplier(catalog, nil).ApplyDiff(context.Background(), "run-1", diff, desired, nil,
		func(p domain.DeploymentProgress) { trace = append(trace, "event "+p.Handle) })

	assert.Equal(t, []string{
		"call create:a-jar", "event a-jar",
		"call create:b-jar", "event b-jar",
		"call create:c-jar", "event c-jar",
	}, trace)
}

func TestApplyDiff_CancelStopsRemoteCalls(t *testing.T) {
	catalog := newFakeCatalog()
	desired := threeVesselConfig()
	diff := ComputeDiff(desired, nil, DiffOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	catalog.onCall = func(call string) {
		if call == "create:a-jar" {
			cancel()
		}
	}
	res := NewApplier(catalog, nil).ApplyDiff(ctx, "run-1", diff, desired, nil, nil)

	assert.False(t, res.Success)
	assert.Equal(t, []string{"create:a-jar"}, catalog.Calls())
	require.Len(t, res.Results, 3)
	assert.True(t, res.Results[0].OK())
	assert.Contains(t, res.Results[1].Errors[0], "canceled")
	assert.Contains(t, res.Results[2].Errors[0], "canceled")
}

func TestApplyDiff_PanickingCallbackIsContained(t *testing.T) {
	catalog := newFakeCatalog()
	desired := threeVesselConfig()
	diff := ComputeDiff(desired, nil, DiffOptions{})

	res := NewApplier(catalog, nil).ApplyDiff(context.Background(), "run-1", diff, desired, nil,
		func(p domain.DeploymentProgress) {
			if p.Handle == "a-jar" {
				panic("ui went away")
			}
		})

	assert.Equal(t, []string{"create:a-jar", "create:b-jar", "create:c-jar"}, catalog.Calls())
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "ui went away")
	assert.False(t, res.Success)
}

func TestApplyDiff_MissingSnapshotEntry(t *testing.T) {
	diff := domain.DeploymentDiff{ToDisable: []string{"ghost"}}
	res := NewApplier(newFakeCatalog(), nil).ApplyDiff(context.Background(), "run-1", diff, domain.PricingConfig{}, nil, nil)

	require.Len(t, res.Results, 1)
	assert.Contains(t, res.Results[0].Errors[0], "not found in the backend snapshot")
	assert.False(t, res.Success)
}

func TestApplyDiff_Timestamps(t *testing.T) {
	start := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	tick := start
	a := NewApplier(newFakeCatalog(), nil)
	a.Now = func() time.Time { tick = tick.Add(time.Second); return tick }

	res := a.ApplyDiff(context.Background(), "run-1", domain.DeploymentDiff{}, domain.PricingConfig{}, nil, nil)
	assert.True(t, res.Success)
	assert.True(t, res.FinishedAt.After(res.StartedAt))
}
