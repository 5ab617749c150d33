package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpintel/edgargraph/internal/models"
)

func testRouter(t *testing.T) (*Router, *Queue) {
	t.Helper()
	q := testQueue(t)
	thresholds := map[string]float64{
		"ownership":   0.9,
		"transaction": 0.9,
	}
	return NewRouter(thresholds, 0.9, q), q
}

func TestRouterAutoLoadsHighConfidence(t *testing.T) {
	r, q := testRouter(t)

	decision, err := r.Route(ownershipCandidate("Jane Roe", 0.95))
	require.NoError(t, err)
	assert.Equal(t, DecisionAutoLoad, decision)

	pending, err := q.Pending(10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRouterQueuesLowConfidence(t *testing.T) {
	r, q := testRouter(t)

	decision, err := r.Route(ownershipCandidate("Jane Roe", 0.7))
	require.NoError(t, err)
	assert.Equal(t, DecisionQueued, decision)

	pending, err := q.Pending(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Contains(t, pending[0].FailureReason, "low confidence")
}

func TestRouterBoundaryIsInclusive(t *testing.T) {
	r, _ := testRouter(t)
	decision, err := r.Route(ownershipCandidate("Jane Roe", 0.9))
	require.NoError(t, err)
	assert.Equal(t, DecisionAutoLoad, decision)
}

func TestRouterFallbackThreshold(t *testing.T) {
	r := NewRouter(map[string]float64{"ownership": 0.5}, 0.9, nil)
	assert.InDelta(t, 0.5, r.Threshold(models.KindOwnership), 0.001)
	assert.InDelta(t, 0.9, r.Threshold(models.KindOfficer), 0.001)
}

func TestRouterInvalidCandidate(t *testing.T) {
	r, _ := testRouter(t)
	_, err := r.Route(models.Candidate{Kind: models.KindOwnership, Confidence: 0.95})
	assert.Error(t, err, "payload missing for kind")
}
