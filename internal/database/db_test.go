package database

import "testing"

func TestDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{path: "bots.db", want: "bots.db?_pragma=busy_timeout(5000)"},
		{path: "/data/bots.db", want: "/data/bots.db?_pragma=busy_timeout(5000)"},
		{path: "file:bots.db?mode=rwc", want: "file:bots.db?mode=rwc&_pragma=busy_timeout(5000)"},
	}

	for _, tt := range tests {
		if got := dsn(tt.path); got != tt.want {
			t.Errorf("dsn(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
