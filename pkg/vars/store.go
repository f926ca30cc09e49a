package vars

import "sync"

// Store holds project-level variables, keyed by project id. The host
// shell replaces a project's variables wholesale via SyncVariables; reads
// happen on every request, so the store favors read concurrency.
type Store struct {
	mu       sync.RWMutex
	projects map[string]map[string]any
}

// NewStore creates an empty variable store.
func NewStore() *Store {
	return &Store{projects: make(map[string]map[string]any)}
}

// Sync replaces all variables for a project.
func (s *Store) Sync(projectID string, variables map[string]any) {
	copied := make(map[string]any, len(variables))
	for k, v := range variables {
		copied[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[projectID] = copied
}

// Scope builds a project-seeded scope for the given project.
func (s *Store) Scope(projectID string) *Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FromProject(s.projects[projectID])
}
