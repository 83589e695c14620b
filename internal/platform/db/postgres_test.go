package db

import (
	"testing"
	"time"
)

func TestSettingsWithDefaults(t *testing.T) {
	cases := []struct {
		name         string
		in           Settings
		wantOpen     int
		wantIdle     int
		wantLifetime time.Duration
		wantPing     time.Duration
	}{
		{
			name:         "zero values get pool defaults",
			in:           Settings{},
			wantOpen:     10,
			wantIdle:     5,
			wantLifetime: 30 * time.Minute,
			wantPing:     5 * time.Second,
		},
		{
			name:         "explicit values are kept",
			in:           Settings{MaxOpenConns: 40, MaxIdleConns: 8, ConnMaxLifetime: time.Hour, PingTimeout: time.Second},
			wantOpen:     40,
			wantIdle:     8,
			wantLifetime: time.Hour,
			wantPing:     time.Second,
		},
		{
			name:         "idle is capped at open",
			in:           Settings{MaxOpenConns: 3, MaxIdleConns: 20},
			wantOpen:     3,
			wantIdle:     3,
			wantLifetime: 30 * time.Minute,
			wantPing:     5 * time.Second,
		},
		{
			name:         "negative values fall back",
			in:           Settings{MaxOpenConns: -1, MaxIdleConns: -1, ConnMaxLifetime: -time.Minute, PingTimeout: -time.Second},
			wantOpen:     10,
			wantIdle:     5,
			wantLifetime: 30 * time.Minute,
			wantPing:     5 * time.Second,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.withDefaults()
			if got.MaxOpenConns != tc.wantOpen {
				t.Fatalf("MaxOpenConns = %d, want %d", got.MaxOpenConns, tc.wantOpen)
			}
			if got.MaxIdleConns != tc.wantIdle {
				t.Fatalf("MaxIdleConns = %d, want %d", got.MaxIdleConns, tc.wantIdle)
			}
			if got.ConnMaxLifetime != tc.wantLifetime {
				t.Fatalf("ConnMaxLifetime = %s, want %s", got.ConnMaxLifetime, tc.wantLifetime)
			}
			if got.PingTimeout != tc.wantPing {
				t.Fatalf("PingTimeout = %s, want %s", got.PingTimeout, tc.wantPing)
			}
		})
	}
}

func TestConnectRequiresDSN(t *testing.T) {
	if _, err := Connect(Settings{DSN: "   "}); err == nil {
		t.Fatal("expected error for blank dsn")
	}
}
