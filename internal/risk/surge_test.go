package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSurgeTracker_FirstObservationNeverSurges(t *testing.T) {
	tr := NewSurgeTracker(20)
	detected, increase := tr.Observe("Kaduna", "Zaria", 95)
	assert.False(t, detected)
	assert.Zero(t, increase)
}

func TestSurgeTracker_DetectsJumpAboveThreshold(t *testing.T) {
	tr := NewSurgeTracker(20)
	tr.Observe("Kaduna", "Zaria", 45)

	detected, increase := tr.Observe("Kaduna", "Zaria", 60)
	assert.True(t, detected)
	assert.InDelta(t, 33.3, increase, 0.1)
}

func TestSurgeTracker_ThresholdIsStrict(t *testing.T) {
	tr := NewSurgeTracker(20)
	tr.Observe("Kaduna", "Zaria", 50)

	// Exactly +20% does not surge.
	detected, increase := tr.Observe("Kaduna", "Zaria", 60)
	assert.False(t, detected)
	assert.InDelta(t, 20.0, increase, 0.001)

	detected, _ = tr.Observe("Kaduna", "Zaria", 72.1)
	assert.True(t, detected)
}

func TestSurgeTracker_KeysAreCaseInsensitive(t *testing.T) {
	tr := NewSurgeTracker(20)
	tr.Observe("KADUNA", "zaria", 40)

	detected, _ := tr.Observe("kaduna", "Zaria", 80)
	assert.True(t, detected)
}

func TestSurgeTracker_LocationsAreIndependent(t *testing.T) {
	tr := NewSurgeTracker(20)
	tr.Observe("Kaduna", "Zaria", 40)

	detected, _ := tr.Observe("Benue", "Guma", 90)
	assert.False(t, detected)
}

func TestSurgeTracker_SeedWarmsWithoutOverwriting(t *testing.T) {
	tr := NewSurgeTracker(20)
	tr.Seed("Kaduna", "Zaria", 45)

	detected, increase := tr.Observe("Kaduna", "Zaria", 60)
	assert.True(t, detected)
	assert.InDelta(t, 33.3, increase, 0.1)

	// Seeding an already-observed location is a no-op.
	tr.Seed("Kaduna", "Zaria", 10)
	detected, _ = tr.Observe("Kaduna", "Zaria", 61)
	assert.False(t, detected)
}
