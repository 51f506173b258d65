package charts

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
)

// DailyTotal is the sum of expenses and incomes of one day.
type DailyTotal struct {
	Date    time.Time
	Expense float64
	Income  float64
}

// ChartGenerator генерирует графики для отчетов
type ChartGenerator struct {
	Width  int
	Height int
}

// NewChartGenerator создает новый генератор графиков
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{Width: 1200, Height: 600}
}

// calculateMovingAverage вычисляет скользящее среднее
func calculateMovingAverage(values []float64, window int) []float64 {
	result := make([]float64, len(values))
	for i := range values {
		count := 0
		sum := 0.0
		for j := max(0, i-window+1); j <= i; j++ {
			sum += values[j]
			count++
		}
		result[i] = sum / float64(count)
	}
	return result
}

// padSingleDay adds an empty previous day so that the time axis has a range.
func padSingleDay(days []DailyTotal) []DailyTotal {
	if len(days) != 1 {
		return days
	}
	prev := DailyTotal{Date: days[0].Date.AddDate(0, 0, -1)}
	return []DailyTotal{prev, days[0]}
}

// valueRange returns a non-empty range covering every series.
func valueRange(series ...[]float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 0
	}
	lo = math.Min(lo, 0)
	if hi-lo < 1 {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// GenerateBalanceDashboard рисует расходы, доходы и накопительный баланс по дням.
// Returns nil when there is nothing to draw.
func (g *ChartGenerator) GenerateBalanceDashboard(days []DailyTotal) ([]byte, error) {
	if len(days) == 0 {
		return nil, nil
	}
	days = padSingleDay(days)

	xValues := make([]time.Time, len(days))
	expenseValues := make([]float64, len(days))
	incomeValues := make([]float64, len(days))
	balanceValues := make([]float64, len(days))

	runningBalance := 0.0
	for i, d := range days {
		xValues[i] = d.Date
		expenseValues[i] = d.Expense
		incomeValues[i] = d.Income
		runningBalance += d.Income - d.Expense
		balanceValues[i] = runningBalance
	}

	maExpenses := calculateMovingAverage(expenseValues, 7)

	graph := chart.Chart{
		Width:  g.Width,
		Height: g.Height,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("02.01"),
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		YAxis: chart.YAxis{
			Range: valueRange(expenseValues, incomeValues, balanceValues),
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f", v.(float64))
			},
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Expenses",
				XValues: xValues,
				YValues: expenseValues,
				Style: chart.Style{
					StrokeColor: chart.ColorRed,
					StrokeWidth: 2,
				},
			},
			chart.TimeSeries{
				Name:    "Incomes",
				XValues: xValues,
				YValues: incomeValues,
				Style: chart.Style{
					StrokeColor: chart.ColorGreen,
					StrokeWidth: 2,
				},
			},
			chart.TimeSeries{
				Name:    "Balance",
				XValues: xValues,
				YValues: balanceValues,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 3,
				},
			},
			chart.TimeSeries{
				Name:    "Expense trend (7 days)",
				XValues: xValues,
				YValues: maExpenses,
				Style: chart.Style{
					StrokeColor:     chart.ColorRed.WithAlpha(100),
					StrokeWidth:     2,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
		},
	}

	graph.Elements = []chart.Renderable{
		chart.Legend(&graph, chart.Style{
			FontSize:  12,
			FontColor: chart.ColorBlack,
		}),
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render balance dashboard: %w", err)
	}
	return buffer.Bytes(), nil
}

// GenerateTotalsChart рисует столбцы с итогами расходов и доходов.
func (g *ChartGenerator) GenerateTotalsChart(totalExpense, totalIncome float64) ([]byte, error) {
	if totalExpense == 0 && totalIncome == 0 {
		return nil, nil
	}
	bars := []chart.Value{
		{
			Label: fmt.Sprintf("Expenses: %.2f", totalExpense),
			Value: totalExpense,
			Style: chart.Style{
				StrokeColor: chart.ColorRed,
				FillColor:   chart.ColorRed.WithAlpha(100),
				FontColor:   chart.ColorBlack,
			},
		},
		{
			Label: fmt.Sprintf("Incomes: %.2f", totalIncome),
			Value: totalIncome,
			Style: chart.Style{
				StrokeColor: chart.ColorGreen,
				FillColor:   chart.ColorGreen.WithAlpha(100),
				FontColor:   chart.ColorBlack,
			},
		},
	}

	graph := chart.BarChart{
		Width:    g.Width / 2,
		Height:   g.Height,
		BarWidth: 120,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			Range: valueRange([]float64{totalExpense, totalIncome}),
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render totals chart: %w", err)
	}
	return buffer.Bytes(), nil
}
