package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b := NewBreaker(2, 0)
	assert.True(t, b.Allow("www.example.com"))
	assert.False(t, b.Failure("www.example.com"))
	assert.True(t, b.Allow("www.example.com"))
	assert.True(t, b.Failure("www.example.com"))
	assert.False(t, b.Allow("www.example.com"))
	assert.True(t, b.Allow("other.example.com"))
}

func TestBreaker_SuccessResets(t *testing.T) {
	b := NewBreaker(2, 0)
	b.Failure("h")
	b.Success("h")
	assert.False(t, b.Failure("h"))
	assert.True(t, b.Allow("h"))
}

func TestBreaker_CooldownCloses(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b.nowFunc = func() time.Time { return now }

	b.Failure("vendor")
	assert.False(t, b.Allow("vendor"))

	now = now.Add(2 * time.Minute)
	assert.True(t, b.Allow("vendor"))
}

func TestBreaker_DisabledAndNil(t *testing.T) {
	var nilBreaker *Breaker
	assert.True(t, nilBreaker.Allow("x"))
	assert.False(t, nilBreaker.Failure("x"))

	b := NewBreaker(0, 0)
	b.Failure("x")
	assert.True(t, b.Allow("x"))
}
