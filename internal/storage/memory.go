package storage

import (
	"context"
	"sync"

	"phylosim/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	runOrder    []string
	mutations   map[string][]model.NodeMutations
	sites       map[string][]model.SiteInfo
	leaves      map[string][]model.LeafSequence
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.runOrder = nil
	s.mutations = make(map[string][]model.NodeMutations)
	s.sites = make(map[string][]model.SiteInfo)
	s.leaves = make(map[string][]model.LeafSequence)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.runs[run.ID]; !seen {
		s.runOrder = append(s.runOrder, run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RunRecord, 0, len(s.runOrder))
	for i := len(s.runOrder) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.runs[s.runOrder[i]])
	}
	return out, nil
}

func (s *MemoryStore) SaveMutations(_ context.Context, runID string, nodes []model.NodeMutations) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mutations[runID] = append([]model.NodeMutations(nil), nodes...)
	return nil
}

func (s *MemoryStore) GetMutations(_ context.Context, runID string) ([]model.NodeMutations, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes, ok := s.mutations[runID]
	return nodes, ok, nil
}

func (s *MemoryStore) SaveSiteInfo(_ context.Context, runID string, sites []model.SiteInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sites[runID] = append([]model.SiteInfo(nil), sites...)
	return nil
}

func (s *MemoryStore) GetSiteInfo(_ context.Context, runID string) ([]model.SiteInfo, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sites, ok := s.sites[runID]
	return sites, ok, nil
}

func (s *MemoryStore) SaveLeafSequences(_ context.Context, runID string, leaves []model.LeafSequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leaves[runID] = append([]model.LeafSequence(nil), leaves...)
	return nil
}

func (s *MemoryStore) GetLeafSequences(_ context.Context, runID string) ([]model.LeafSequence, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	leaves, ok := s.leaves[runID]
	return leaves, ok, nil
}
