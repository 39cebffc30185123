package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseWindowDuration(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"720h", 720 * time.Hour, false},
		{"90 days", 90 * day, false},
		{"1 Week", 7 * day, false},
		{"12w", 84 * day, false},
		{"3mo", 90 * day, false},
		{"2 years", 730 * day, false},
		{"0 days", 0, true},
		{"0s", 0, true},
		{"forever", 0, true},
		{"3 decades", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseWindowDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err, "Expected an error for input: %q", tt.input)
				return
			}
			if assert.NoError(t, err, "Did not expect an error for input: %q", tt.input) {
				assert.Equal(t, tt.want, got, "Duration mismatch for input: %q", tt.input)
			}
		})
	}
}
