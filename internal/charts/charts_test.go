package charts

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestGenerateBalanceDashboard(t *testing.T) {
	g := NewChartGenerator()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		img, err := g.GenerateBalanceDashboard(nil)
		require.NoError(t, err)
		assert.Nil(t, img)
	})

	t.Run("single day", func(t *testing.T) {
		img, err := g.GenerateBalanceDashboard([]DailyTotal{{Date: day, Expense: 50}})
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(img, pngMagic))
	})

	t.Run("flat zero series", func(t *testing.T) {
		img, err := g.GenerateBalanceDashboard([]DailyTotal{{Date: day}, {Date: day.AddDate(0, 0, 1)}})
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(img, pngMagic))
	})

	t.Run("several days", func(t *testing.T) {
		img, err := g.GenerateBalanceDashboard([]DailyTotal{
			{Date: day, Income: 1000},
			{Date: day.AddDate(0, 0, 2), Expense: 120.5},
			{Date: day.AddDate(0, 0, 5), Expense: 40, Income: 10},
		})
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(img, pngMagic))
	})
}

func TestGenerateTotalsChart(t *testing.T) {
	g := NewChartGenerator()

	img, err := g.GenerateTotalsChart(0, 0)
	require.NoError(t, err)
	assert.Nil(t, img)

	img, err = g.GenerateTotalsChart(300, 1200)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))
}

func TestCalculateMovingAverage(t *testing.T) {
	got := calculateMovingAverage([]float64{2, 4, 6, 8}, 2)
	assert.Equal(t, []float64{2, 3, 5, 7}, got)
}

func TestValueRangeNeverEmpty(t *testing.T) {
	r := valueRange([]float64{5, 5})
	assert.Less(t, r.Min, r.Max)
	assert.LessOrEqual(t, r.Min, 0.0)

	r = valueRange()
	assert.Less(t, r.Min, r.Max)
}
