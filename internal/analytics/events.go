// Package analytics turns evaluation events into running statistics. Events
// are published to Kafka by collector.BatchCollector and folded into an
// Aggregator, either in-process or by consuming the events topic.
package analytics

import "time"

type EventType string

const (
	EventEvaluation EventType = "evaluation"
	EventCacheHit   EventType = "cache_hit"
	EventZeroResult EventType = "zero_result"
	EventFailure    EventType = "failure"
)

// EvaluationEvent describes one query answered by the search service or the
// batch driver.
type EvaluationEvent struct {
	Type      EventType `json:"type"`
	QueryID   string    `json:"query_id,omitempty"`
	Query     string    `json:"query"`
	Model     string    `json:"model"`
	Matched   int       `json:"matched"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Tracker receives evaluation events. Implementations must not block.
type Tracker interface {
	Track(event EvaluationEvent)
}

// TypeOf classifies an evaluation outcome.
func TypeOf(matched int, cacheHit bool, err error) EventType {
	switch {
	case err != nil:
		return EventFailure
	case cacheHit:
		return EventCacheHit
	case matched == 0:
		return EventZeroResult
	default:
		return EventEvaluation
	}
}

type multiTracker []Tracker

func (m multiTracker) Track(event EvaluationEvent) {
	for _, t := range m {
		t.Track(event)
	}
}

// Multi sends every event to each non-nil tracker.
func Multi(trackers ...Tracker) Tracker {
	var out multiTracker
	for _, t := range trackers {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}
