package oauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateStore(t *testing.T) {
	t.Run("state is one-shot", func(t *testing.T) {
		s := NewStateStore(time.Minute)
		state := s.Issue()

		assert.NotEmpty(t, state)
		assert.True(t, s.Consume(state))
		assert.False(t, s.Consume(state))
	})

	t.Run("unknown and empty states are rejected", func(t *testing.T) {
		s := NewStateStore(time.Minute)
		s.Issue()

		assert.False(t, s.Consume("forged"))
		assert.False(t, s.Consume(""))
	})

	t.Run("expired state is rejected", func(t *testing.T) {
		s := NewStateStore(time.Minute)
		now := time.Now()
		s.now = func() time.Time { return now }
		state := s.Issue()

		s.now = func() time.Time { return now.Add(2 * time.Minute) }
		assert.False(t, s.Consume(state))
	})

	t.Run("verifier is returned with its state", func(t *testing.T) {
		s := NewStateStore(0)
		state := s.IssueWithVerifier("verifier-123")

		verifier, ok := s.ConsumeVerifier(state)
		assert.True(t, ok)
		assert.Equal(t, "verifier-123", verifier)
	})

	t.Run("expired entries are pruned on issue", func(t *testing.T) {
		s := NewStateStore(time.Minute)
		now := time.Now()
		s.now = func() time.Time { return now }
		s.Issue()
		s.Issue()

		s.now = func() time.Time { return now.Add(time.Hour) }
		s.Issue()
		assert.Equal(t, 1, s.Len())
	})

	t.Run("states are distinct", func(t *testing.T) {
		s := NewStateStore(time.Minute)
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			state := s.Issue()
			assert.False(t, seen[state])
			seen[state] = true
		}
	})
}
