package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInnovationSamePairSameGeneration(t *testing.T) {
	tracker := NewInnovationTracker()

	first := tracker.Innovation(0, 3)
	second := tracker.Innovation(0, 3)
	assert.Equal(t, first, second)

	other := tracker.Innovation(1, 3)
	assert.NotEqual(t, first, other)
}

func TestInnovationFreshAfterCacheReset(t *testing.T) {
	tracker := NewInnovationTracker()

	before := tracker.Innovation(0, 3)
	tracker.ResetGenerationCache()
	after := tracker.Innovation(0, 3)

	// The counter persists across the reset, so the same pair gets a fresh
	// number while genes created before the reset keep theirs.
	assert.NotEqual(t, before, after)
	assert.Greater(t, after, before)
}

func TestAllocateNodeIDIndependentOfInnovations(t *testing.T) {
	tracker := NewInnovationTracker()

	tracker.Innovation(0, 1)
	tracker.Innovation(0, 2)

	assert.Equal(t, 0, tracker.AllocateNodeID())
	assert.Equal(t, 1, tracker.AllocateNodeID())
}

func TestReserveNodeID(t *testing.T) {
	tracker := NewInnovationTracker()
	tracker.ReserveNodeID(7)
	assert.Equal(t, 8, tracker.AllocateNodeID())

	// Reserving a lower id never moves the counter backwards.
	tracker.ReserveNodeID(3)
	assert.Equal(t, 9, tracker.AllocateNodeID())
}

func TestCountersRoundTrip(t *testing.T) {
	tracker := NewInnovationTracker()
	tracker.AllocateNodeID()
	tracker.Innovation(0, 1)
	tracker.Innovation(1, 2)

	nodeID, innovation := tracker.Counters()
	assert.Equal(t, 1, nodeID)
	assert.Equal(t, 2, innovation)

	restored := NewInnovationTracker()
	restored.SetCounters(nodeID, innovation)
	assert.Equal(t, 1, restored.AllocateNodeID())
	assert.Equal(t, 2, restored.Innovation(5, 6))
}
