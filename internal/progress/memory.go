package progress

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

type memoryRun struct {
	events    []domain.DeploymentProgress
	result    *domain.DeploymentResult
	updatedAt time.Time
}

// MemoryStore is an in-process Store. Its contents are lost on restart.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]*memoryRun
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*memoryRun), now: time.Now}
}

func (s *MemoryStore) run(runID string) *memoryRun {
	r, ok := s.runs[runID]
	if !ok {
		r = &memoryRun{}
		s.runs[runID] = r
	}
	r.updatedAt = s.now()
	return r
}

func (s *MemoryStore) Append(ctx context.Context, event domain.DeploymentProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.run(event.RunID)
	r.events = append(r.events, event)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, runID string, afterSeq int) ([]domain.DeploymentProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok {
		return []domain.DeploymentProgress{}, nil
	}
	out := make([]domain.DeploymentProgress, 0, len(r.events))
	for _, e := range r.events {
		if e.Seq > afterSeq {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (s *MemoryStore) SaveResult(ctx context.Context, result domain.DeploymentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.run(result.RunID)
	res := result
	r.result = &res
	return nil
}

func (s *MemoryStore) Result(ctx context.Context, runID string) (domain.DeploymentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok || r.result == nil {
		return domain.DeploymentResult{}, domain.ErrNotFound
	}
	return *r.result, nil
}

func (s *MemoryStore) Expire(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.runs {
		if r.updatedAt.Before(before) {
			delete(s.runs, id)
			n++
		}
	}
	return n, nil
}
