package health

import (
	"sort"
	"sync"
)

// Message is the body served on the root path.
const Message = "resume backend running"

// Check reports whether one dependency is usable.
type Check func() error

// Service answers liveness and runs named readiness checks.
type Service struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewService constructs a Service with no readiness checks.
func NewService() *Service {
	return &Service{checks: map[string]Check{}}
}

// Status returns the liveness message.
func (s *Service) Status() string {
	return Message
}

// AddCheck registers a readiness check under name, replacing any previous one.
func (s *Service) AddCheck(name string, check Check) {
	s.mu.Lock()
	s.checks[name] = check
	s.mu.Unlock()
}

// Ready runs every check. The map holds "ok" or the failure message per check.
func (s *Service) Ready() (bool, map[string]string) {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := s.checks
	s.mu.RUnlock()
	sort.Strings(names)

	ready := true
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := checks[name](); err != nil {
			ready = false
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	return ready, results
}
