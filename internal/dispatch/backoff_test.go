package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_Delay(t *testing.T) {
	tests := []struct {
		name     string
		base     time.Duration
		max      time.Duration
		attempt  int
		expected time.Duration
	}{
		{"first attempt is the base", 60 * time.Second, time.Hour, 1, 60 * time.Second},
		{"second attempt doubles", 60 * time.Second, time.Hour, 2, 120 * time.Second},
		{"third attempt doubles again", 60 * time.Second, time.Hour, 3, 240 * time.Second},
		{"capped at max", 60 * time.Second, 5 * time.Minute, 5, 5 * time.Minute},
		{"huge attempt count stays capped", 60 * time.Second, time.Hour, 60, time.Hour},
		{"zero attempt treated as first", 30 * time.Second, time.Hour, 0, 30 * time.Second},
		{"no cap when max is zero", 10 * time.Second, 0, 4, 80 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Backoff{Base: tt.base, Max: tt.max}
			assert.Equal(t, tt.expected, b.Delay(tt.attempt))
		})
	}
}
