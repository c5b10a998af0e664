package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_Expired(t *testing.T) {
	expiresAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{ExpiresAt: expiresAt}

	tests := []struct {
		now  time.Time
		name string
		want bool
	}{
		{name: "before expiry", now: expiresAt.Add(-time.Second), want: false},
		{name: "at expiry", now: expiresAt, want: true},
		{name: "after expiry", now: expiresAt.Add(time.Hour), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Expired(tt.now))
		})
	}
}
