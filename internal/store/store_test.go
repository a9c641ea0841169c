package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCalculateTransferSpeedMBps(t *testing.T) {
	tests := []struct {
		name         string
		bytes        int64
		duration     time.Duration
		expectedMBps float64
	}{
		{
			name:         "1MB in 1 second",
			bytes:        1_000_000,
			duration:     time.Second,
			expectedMBps: 1.0,
		},
		{
			name:         "10MB in 2 seconds",
			bytes:        10_000_000,
			duration:     2 * time.Second,
			expectedMBps: 5.0,
		},
		{
			name:         "500KB in half a second",
			bytes:        500_000,
			duration:     500 * time.Millisecond,
			expectedMBps: 1.0,
		},
		{
			name:         "zero bytes",
			bytes:        0,
			duration:     time.Second,
			expectedMBps: 0.0,
		},
		{
			name:         "zero duration",
			bytes:        1024,
			duration:     0,
			expectedMBps: 0.0,
		},
		{
			name:         "negative duration",
			bytes:        1024,
			duration:     -time.Second,
			expectedMBps: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expectedMBps, calculateTransferSpeedMBps(tt.bytes, tt.duration))
		})
	}
}

func TestCalculateTransferSpeedUsesDecimalMegabytes(t *testing.T) {
	// 1 MiB in one second is 1.048576 decimal MB/s
	require.InDelta(t, 1.048576, calculateTransferSpeedMBps(1_048_576, time.Second), 0.000001)
	require.InDelta(t, 1.25, calculateTransferSpeedMBps(1_500_000, 1200*time.Millisecond), 0.001)
}

func TestNewTransferInfo(t *testing.T) {
	assert := require.New(t)

	info := NewTransferInfo(2_000_000, 2*time.Second)
	assert.Equal(int64(2_000_000), info.BytesTransferred)
	assert.Equal(2*time.Second, info.Duration)
	assert.Equal(1.0, info.TransferSpeed)
	assert.Empty(info.RequestID)
}
