package cycledate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairdaily/pairing-service/internal/utils/cycledate"
)

func TestNormalize(t *testing.T) {
	in := time.Date(2025, 6, 15, 18, 42, 7, 123, time.FixedZone("X", -4*3600))
	out := cycledate.Normalize(in)

	assert.Equal(t, time.UTC, out.Location())
	assert.Equal(t, 0, out.Hour())
	assert.Equal(t, "2025-06-15", out.Format(cycledate.Layout))
}

func TestParseRoundTrip(t *testing.T) {
	d, err := cycledate.Parse("2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-15", cycledate.Format(d))

	zero, err := cycledate.Parse("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = cycledate.Parse("15/06/2025")
	require.Error(t, err)
}

func TestWindow(t *testing.T) {
	from, to := cycledate.Window(time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC), 7)
	assert.Equal(t, "2025-06-08", from)
	assert.Equal(t, "2025-06-15", to)
}

func TestEndOfCycle(t *testing.T) {
	end := cycledate.EndOfCycle(time.Date(2025, 6, 15, 13, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), end)
}
