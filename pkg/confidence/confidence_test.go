package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromSampleSize(t *testing.T) {
	assert.Equal(t, High, FromSampleSize(200, 200, 50))
	assert.Equal(t, Medium, FromSampleSize(199, 200, 50))
	assert.Equal(t, Medium, FromSampleSize(50, 200, 50))
	assert.Equal(t, Low, FromSampleSize(49, 200, 50))
	assert.Equal(t, Low, FromSampleSize(0, 200, 50))
}

func TestDampeningFactor(t *testing.T) {
	assert.Equal(t, 1.0, DampeningFactor(High))
	assert.Equal(t, 1.0, DampeningFactor(Medium))
	assert.Equal(t, 0.5, DampeningFactor(Low))
	assert.Equal(t, 0.25, DampeningFactor(Fallback))
}

func TestValid(t *testing.T) {
	for _, tier := range []Tier{High, Medium, Low, Fallback} {
		assert.True(t, tier.Valid())
	}
	assert.False(t, Tier("great").Valid())
	assert.False(t, Tier("").Valid())
}
