// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstant(t *testing.T) {
	s := NewConstant(time.Second)
	for attempt := 1; attempt <= 30; attempt++ {
		assert.Equal(t, time.Second, s.Delay(attempt))
	}
}

func TestExponential(t *testing.T) {
	s := NewExponential(100*time.Millisecond, time.Second)
	assert.Equal(t, 100*time.Millisecond, s.Delay(1))
	assert.Equal(t, 200*time.Millisecond, s.Delay(2))
	assert.Equal(t, 400*time.Millisecond, s.Delay(3))
	assert.Equal(t, 800*time.Millisecond, s.Delay(4))
	assert.Equal(t, time.Second, s.Delay(5))
	assert.Equal(t, time.Second, s.Delay(50))
	assert.Equal(t, 100*time.Millisecond, s.Delay(0))
}

func TestExponentialWithJitter_Bounds(t *testing.T) {
	s := NewExponentialWithJitter(100*time.Millisecond, time.Second)
	for attempt := 1; attempt <= 10; attempt++ {
		ceiling := NewExponential(100*time.Millisecond, time.Second).Delay(attempt)
		for i := 0; i < 50; i++ {
			d := s.Delay(attempt)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, ceiling)
		}
	}
}

func TestBound(t *testing.T) {
	assert.Equal(t, time.Second, Bound(NewConstant(time.Second), 7))
	assert.Equal(t, 400*time.Millisecond, Bound(NewExponential(100*time.Millisecond, time.Second), 3))
	assert.Equal(t, 400*time.Millisecond, Bound(NewExponentialWithJitter(100*time.Millisecond, time.Second), 3))
	assert.Equal(t, time.Second, Bound(NewExponentialWithJitter(100*time.Millisecond, time.Second), 9))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		want Strategy
	}{
		{"", NewConstant(time.Second)},
		{"constant", NewConstant(time.Second)},
		{"exponential", NewExponential(time.Second, 5*time.Second)},
		{"jitter", NewExponentialWithJitter(time.Second, 5*time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.name, time.Second, 5*time.Second)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Parse("fibonacci", time.Second, 0)
	assert.Error(t, err)
}
