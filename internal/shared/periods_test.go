package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodCodeRoundTrip(t *testing.T) {
	code, err := PeriodCode(3, 2025)
	require.NoError(t, err)
	assert.Equal(t, "2025-03", code)

	mes, anio, err := ParsePeriodCode(code)
	require.NoError(t, err)
	assert.Equal(t, 3, mes)
	assert.Equal(t, 2025, anio)

	_, err = PeriodCode(13, 2025)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	_, _, err = ParsePeriodCode("2025-13")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	_, _, err = ParsePeriodCode("garbage")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestNextPeriodCode(t *testing.T) {
	next, err := NextPeriodCode(12, 2024)
	require.NoError(t, err)
	assert.Equal(t, "2025-01", next)

	next, err = NextPeriodCode(6, 2025)
	require.NoError(t, err)
	assert.Equal(t, "2025-07", next)
}

func TestCurrentPeriodCode(t *testing.T) {
	now := time.Date(2025, time.February, 28, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-02", CurrentPeriodCode(now))
}

func TestValidatePeriodTransition(t *testing.T) {
	assert.NoError(t, ValidatePeriodTransition(PeriodStatusOpen, PeriodStatusConsolidated))
	assert.NoError(t, ValidatePeriodTransition(PeriodStatusOpen, PeriodStatusInReview))
	assert.NoError(t, ValidatePeriodTransition(PeriodStatusInReview, PeriodStatusConsolidated))
	assert.NoError(t, ValidatePeriodTransition(PeriodStatusConsolidated, PeriodStatusClosed))
	assert.NoError(t, ValidatePeriodTransition(PeriodStatusClosed, PeriodStatusClosed))

	assert.ErrorIs(t, ValidatePeriodTransition(PeriodStatusConsolidated, PeriodStatusOpen), ErrInvalidPeriodTransition)
	assert.ErrorIs(t, ValidatePeriodTransition(PeriodStatusClosed, PeriodStatusConsolidated), ErrInvalidPeriodTransition)
	assert.ErrorIs(t, ValidatePeriodTransition(PeriodStatusOpen, PeriodStatusClosed), ErrInvalidPeriodTransition)
}
