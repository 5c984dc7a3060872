package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodMonths(t *testing.T) {
	for period, want := range map[string]int{"Monthly": 1, "Quarterly": 3, "Half Yearly": 6, "Yearly": 12} {
		got, ok := PeriodMonths(period)
		assert.True(t, ok, period)
		assert.Equal(t, want, got, period)
	}
	_, ok := PeriodMonths("Weekly")
	assert.False(t, ok)
}

func TestComputeEndDate(t *testing.T) {
	start := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

	end, err := ComputeEndDate(start, "Yearly")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC), end)

	end, err = ComputeEndDate(start, "Half Yearly")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.September, 15, 10, 30, 0, 0, time.UTC), end)

	// overflow rolls forward
	end, err = ComputeEndDate(time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC), "Monthly")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.March, 3, 0, 0, 0, 0, time.UTC), end)

	end, err = ComputeEndDate(time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), "Monthly")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC), end)

	_, err = ComputeEndDate(start, "Weekly")
	assert.Error(t, err)
}

func TestComputeAmount(t *testing.T) {
	assert.Equal(t, 1000.0, ComputeAmount(500, 2))
	assert.Equal(t, 500.0, ComputeAmount(500, 0))
	assert.Equal(t, 500.0, ComputeAmount(500, -3))
	assert.Equal(t, 0.3, ComputeAmount(0.1, 3))
}

func TestThresholdRules(t *testing.T) {
	assert.NoError(t, ValidateThresholds(900, 100))
	assert.ErrorIs(t, ValidateThresholds(800, 900), ErrInvalidThresholds)
	assert.ErrorIs(t, ValidateThresholds(500, 500), ErrInvalidThresholds)

	lower := 950.0
	u, l := MergeThresholds(900, 100, nil, &lower)
	assert.Equal(t, 900.0, u)
	assert.Equal(t, 950.0, l)
	assert.Error(t, ValidateThresholds(u, l))

	upper := 1200.0
	u, l = MergeThresholds(900, 100, &upper, nil)
	assert.Equal(t, 1200.0, u)
	assert.Equal(t, 100.0, l)
}

func TestNextSaviourID(t *testing.T) {
	assert.Equal(t, 1, NextSaviourID(nil))
	max := 4
	assert.Equal(t, 5, NextSaviourID(&max))
}
