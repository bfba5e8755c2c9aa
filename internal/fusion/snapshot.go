package fusion

import "sync"

// snapshot is the engine's single shared-state surface: the most recent
// fused reading plus the cycle and environment state the API handlers
// read, behind one mutex. The run loop is the only writer; both sides
// only copy small fixed-size values while holding the lock.
type snapshot struct {
	mu      sync.RWMutex
	reading Reading
	valid   bool
	env     Environment
	state   CycleState
}

// complete publishes the result of one cycle in a single critical
// section so a reader never sees a new reading with a stale environment.
func (s *snapshot) complete(r Reading, env Environment, state CycleState) {
	s.mu.Lock()
	s.reading = r
	s.valid = true
	s.env = env
	s.state = state
	s.mu.Unlock()
}

func (s *snapshot) setState(state CycleState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *snapshot) get() (Reading, bool) {
	s.mu.RLock()
	r, ok := s.reading, s.valid
	s.mu.RUnlock()
	return r, ok
}

func (s *snapshot) environment() Environment {
	s.mu.RLock()
	env := s.env
	s.mu.RUnlock()
	return env
}

func (s *snapshot) cycleState() CycleState {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	return state
}
