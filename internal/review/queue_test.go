package review

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpintel/edgargraph/internal/models"
)

func testQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := Open(filepath.Join(t.TempDir(), "review.db"))
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func ownershipCandidate(owner string, confidence float64) models.Candidate {
	return models.Candidate{
		Kind:       models.KindOwnership,
		Method:     models.MethodLLM,
		Confidence: confidence,
		SubjectCIK: "0000320193",
		Citation: models.SourceCitation{
			Filing: models.FilingReference{
				AccessionNumber: "0000320193-24-000001",
				FormType:        "DEF 14A",
				FilingDate:      "2024-01-15",
			},
			Section: "Security Ownership",
			RawText: owner + " holds shares",
		},
		Ownership: &models.OwnershipFact{OwnerName: owner, SharesOwned: 1000, Percentage: 2.5},
	}
}

func TestQueueEnqueueAndPending(t *testing.T) {
	q := testQueue(t)

	id, written, err := q.Enqueue(ownershipCandidate("Jane Roe", 0.6), "low confidence: 0.60")
	require.NoError(t, err)
	assert.True(t, written)
	assert.Positive(t, id)

	pending, err := q.Pending(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, StatusPending, pending[0].Status)
	assert.Equal(t, "Jane Roe", pending[0].Candidate.Ownership.OwnerName)
	assert.InDelta(t, 0.6, pending[0].Confidence, 0.001)
	assert.Equal(t, "low confidence: 0.60", pending[0].FailureReason)
	assert.False(t, pending[0].CreatedAt.IsZero())
	assert.True(t, pending[0].ReviewedAt.IsZero())
}

func TestQueueEnqueueIsIdempotent(t *testing.T) {
	q := testQueue(t)

	id1, _, err := q.Enqueue(ownershipCandidate("Jane Roe", 0.6), "first")
	require.NoError(t, err)

	// Same key, lower confidence: discarded.
	id2, written, err := q.Enqueue(ownershipCandidate("Jane Roe", 0.5), "second")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.False(t, written)

	// Same key, higher confidence: updated in place.
	id3, written, err := q.Enqueue(ownershipCandidate("Jane Roe", 0.8), "third")
	require.NoError(t, err)
	assert.Equal(t, id1, id3)
	assert.True(t, written)

	pending, err := q.Pending(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.InDelta(t, 0.8, pending[0].Confidence, 0.001)
}

func TestQueueApproveIsExactlyOnce(t *testing.T) {
	q := testQueue(t)

	id, _, err := q.Enqueue(ownershipCandidate("Jane Roe", 0.6), "low confidence")
	require.NoError(t, err)

	candidate, err := q.Approve(id, "analyst")
	require.NoError(t, err)
	require.NotNil(t, candidate)
	assert.Equal(t, "Jane Roe", candidate.Ownership.OwnerName)

	// Second approval must fail rather than hand back the candidate again.
	_, err = q.Approve(id, "analyst")
	require.Error(t, err)

	item, err := q.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, item.Status)
	assert.Equal(t, "analyst", item.ReviewedBy)
	assert.False(t, item.ReviewedAt.IsZero())
}

func TestQueueRejectIsTerminal(t *testing.T) {
	q := testQueue(t)

	id, _, err := q.Enqueue(ownershipCandidate("Jane Roe", 0.6), "low confidence")
	require.NoError(t, err)
	require.NoError(t, q.Reject(id, "analyst"))

	_, err = q.Approve(id, "analyst")
	assert.Error(t, err, "rejected items cannot be approved")

	// Re-submitting the same candidate does not reopen the item.
	_, written, err := q.Enqueue(ownershipCandidate("Jane Roe", 0.99), "retry")
	require.NoError(t, err)
	assert.False(t, written)

	pending, err := q.Pending(10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestQueueApproveWithCorrection(t *testing.T) {
	q := testQueue(t)

	id, _, err := q.Enqueue(ownershipCandidate("Jane Reo", 0.6), "low confidence")
	require.NoError(t, err)

	corrected := ownershipCandidate("Jane Roe", 0.6)
	candidate, err := q.ApproveWithCorrection(id, "analyst", corrected)
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", candidate.Ownership.OwnerName)

	item, err := q.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusModified, item.Status)
	assert.Equal(t, "Jane Roe", item.Candidate.Ownership.OwnerName)
}

func TestQueueStats(t *testing.T) {
	q := testQueue(t)

	id1, _, err := q.Enqueue(ownershipCandidate("A B", 0.6), "low")
	require.NoError(t, err)
	_, _, err = q.Enqueue(ownershipCandidate("C D", 0.6), "low")
	require.NoError(t, err)
	_, err = q.Approve(id1, "analyst")
	require.NoError(t, err)

	stats, err := q.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats["pending"])
	assert.Equal(t, 1, stats["approved"])
	assert.Equal(t, 2, stats["total"])
}

func TestQueueByCompany(t *testing.T) {
	q := testQueue(t)

	_, _, err := q.Enqueue(ownershipCandidate("A B", 0.6), "low")
	require.NoError(t, err)

	other := ownershipCandidate("C D", 0.6)
	other.SubjectCIK = "0000789019"
	_, _, err = q.Enqueue(other, "low")
	require.NoError(t, err)

	items, err := q.ByCompany("0000320193", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A B", items[0].Candidate.Ownership.OwnerName)
}
