package review

import (
	"fmt"
	"log/slog"

	"github.com/corpintel/edgargraph/internal/logging"
	"github.com/corpintel/edgargraph/internal/models"
)

// Decision is the routing outcome for one candidate.
type Decision string

const (
	DecisionAutoLoad Decision = "auto_load"
	DecisionQueued   Decision = "queued"
)

// Router decides whether a candidate's confidence clears the threshold
// for automatic loading or needs human review first.
type Router struct {
	thresholds map[string]float64
	fallback   float64
	queue      *Queue
	log        *slog.Logger
}

// NewRouter builds a router with per-kind thresholds. queue may be nil
// for dry runs; queued candidates are then dropped with a warning.
func NewRouter(thresholds map[string]float64, fallback float64, queue *Queue) *Router {
	return &Router{
		thresholds: thresholds,
		fallback:   fallback,
		queue:      queue,
		log:        logging.Component("review.router"),
	}
}

// Threshold returns the confidence threshold for a candidate kind.
func (r *Router) Threshold(kind models.CandidateKind) float64 {
	if t, ok := r.thresholds[string(kind)]; ok {
		return t
	}
	return r.fallback
}

// Route sends a candidate to the graph (auto_load) or the review queue.
// Queued candidates are persisted before the decision is returned.
func (r *Router) Route(c models.Candidate) (Decision, error) {
	if err := c.Validate(); err != nil {
		return DecisionQueued, err
	}

	threshold := r.Threshold(c.Kind)
	if c.Confidence >= threshold {
		return DecisionAutoLoad, nil
	}

	reason := fmt.Sprintf("low confidence: %.2f (threshold %.2f)", c.Confidence, threshold)
	if r.queue == nil {
		r.log.Warn("no review queue configured, dropping candidate",
			"kind", c.Kind, "party", c.PartyName(), "confidence", c.Confidence)
		return DecisionQueued, nil
	}
	if _, _, err := r.queue.Enqueue(c, reason); err != nil {
		return DecisionQueued, err
	}
	return DecisionQueued, nil
}

// ForceReview queues a candidate regardless of its confidence, used when
// entity resolution could not pick a unique party.
func (r *Router) ForceReview(c models.Candidate, reason string) error {
	if r.queue == nil {
		r.log.Warn("no review queue configured, dropping candidate",
			"kind", c.Kind, "party", c.PartyName(), "reason", reason)
		return nil
	}
	_, _, err := r.queue.Enqueue(c, reason)
	return err
}
