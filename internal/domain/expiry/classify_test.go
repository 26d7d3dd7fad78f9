package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_Classify(t *testing.T) {
	now := time.Date(2026, 1, 15, 13, 45, 0, 0, time.UTC)
	c := DefaultClassifier()

	tests := []struct {
		name       string
		expiration time.Time
		want       Bucket
	}{
		{"already expired", now.AddDate(0, 0, -1), Critical},
		{"expires today", now, Critical},
		{"exactly six months", time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC), Critical},
		{"six months and a day", time.Date(2026, 7, 16, 0, 0, 0, 0, time.UTC), Warning},
		{"exactly twelve months", time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC), Warning},
		{"twelve months and a day", time.Date(2027, 1, 16, 0, 0, 0, 0, time.UTC), Normal},
		{"far future", now.AddDate(3, 0, 0), Normal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.expiration, now))
		})
	}
}

func TestClassifier_IgnoresTimeOfDay(t *testing.T) {
	c := DefaultClassifier()
	morning := time.Date(2026, 1, 15, 0, 1, 0, 0, time.UTC)
	evening := time.Date(2026, 1, 15, 23, 59, 0, 0, time.UTC)
	exp := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, c.Classify(exp, morning), c.Classify(exp, evening))
}

func TestNewClassifier(t *testing.T) {
	c, err := NewClassifier(3, 9)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, Critical, c.Classify(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, Warning, c.Classify(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, Normal, c.Classify(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), now))

	_, err = NewClassifier(6, 6)
	assert.Error(t, err)
	_, err = NewClassifier(0, 12)
	assert.Error(t, err)
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2026, 1, 15, 18, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysRemaining(now, now))
	assert.Equal(t, 10, DaysRemaining(time.Date(2026, 1, 25, 1, 0, 0, 0, time.UTC), now))
	assert.Equal(t, -5, DaysRemaining(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), now))
}
