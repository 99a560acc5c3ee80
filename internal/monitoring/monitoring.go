package monitoring

import (
	"sync"
	"time"

	nuts "github.com/vaudience/go-nuts"
)

// Service keeps simple in-process counters for gateway events. Counters are
// exposed on the metrics endpoint; there is no external metrics backend in
// this deployment.
type Service struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewService creates a new monitoring service
func NewService() *Service {
	return &Service{
		counts: make(map[string]int64),
	}
}

// RecordEvent records a monitored event with labels
func (s *Service) RecordEvent(eventName string, labels map[string]string) {
	ts := time.Now()

	s.mu.Lock()
	s.counts[eventName]++
	s.mu.Unlock()

	nuts.L.Infof("[Monitoring] Event %s recorded at %v with labels: %v", eventName, ts, labels)
}

// Counts returns a snapshot of all event counters
func (s *Service) Counts() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]int64, len(s.counts))
	for name, count := range s.counts {
		snapshot[name] = count
	}
	return snapshot
}
