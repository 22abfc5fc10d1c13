package transport

import "testing"

func TestAlarmStateFromStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status map[string]any
		want   string
	}{
		{
			name:   "disarming in flight",
			status: map[string]any{"status": "Armed Away", "disarming": true},
			want:   StateDisarming,
		},
		{
			name:   "disarming flag cleared by final state",
			status: map[string]any{"status": "Disarmed", "disarming": true},
			want:   StateDisarmed,
		},
		{
			name:   "exit delay home",
			status: map[string]any{"status": "ExitDelay_ArmHome"},
			want:   StateArming,
		},
		{
			name:   "exit delay away",
			status: map[string]any{"status": "ExitDelay_ArmAway"},
			want:   StateArming,
		},
		{
			name:   "entry delay",
			status: map[string]any{"status": "EntryDelay"},
			want:   StatePending,
		},
		{
			name:   "armed home",
			status: map[string]any{"status": "Armed Home"},
			want:   StateArmedHome,
		},
		{
			name:   "armed away",
			status: map[string]any{"status": "Armed Away"},
			want:   StateArmedAway,
		},
		{
			name:   "disarmed",
			status: map[string]any{"status": "Disarmed"},
			want:   StateDisarmed,
		},
		{
			name:   "triggered",
			status: map[string]any{"status": "Triggered"},
			want:   StateTriggered,
		},
		{
			name:   "unknown status passes through",
			status: map[string]any{"status": "Downloading"},
			want:   "Downloading",
		},
		{
			name:   "missing status",
			status: map[string]any{},
			want:   "",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := AlarmStateFromStatus(tt.status); got != tt.want {
				t.Errorf("AlarmStateFromStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}
