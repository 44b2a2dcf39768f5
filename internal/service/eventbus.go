package service

import (
	"sync"

	"github.com/bnema/transcoder/internal/domain"
)

// EventBus fans job status changes out to per-job subscribers. A nil
// *EventBus is valid and drops everything.
type EventBus struct {
	subscribers map[string][]chan domain.JobView
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan domain.JobView),
	}
}

func (eb *EventBus) Subscribe(jobID string) chan domain.JobView {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan domain.JobView, 8)
	eb.subscribers[jobID] = append(eb.subscribers[jobID], ch)
	return ch
}

func (eb *EventBus) Unsubscribe(jobID string, ch chan domain.JobView) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[jobID]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[jobID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(eb.subscribers[jobID]) == 0 {
		delete(eb.subscribers, jobID)
	}
}

func (eb *EventBus) Publish(view domain.JobView) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[view.ID] {
		select {
		case ch <- view:
		default:
			// slow subscriber; it re-reads the job on the next event
		}
	}
}

func (eb *EventBus) Subscribers(jobID string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers[jobID])
}
