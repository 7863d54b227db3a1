// Package charts renders report images sent as photos.
package charts

import (
	"bytes"
	"errors"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/zihangg/kuberan-bot/internal/gateway"
)

var (
	incomeColor  = drawing.ColorFromHex("2e7d32")
	expenseColor = drawing.ColorFromHex("c62828")
)

// ErrNotEnoughData is returned when a chart would hold fewer than two
// data points.
var ErrNotEnoughData = errors.New("charts: not enough data")

// MonthlySummary renders an income-vs-expenses chart over the given
// months, oldest first, and returns it as PNG bytes. Amounts arrive as
// integer minor units and are plotted in major units.
func MonthlySummary(rows []gateway.MonthSummary) ([]byte, error) {
	if len(rows) < 2 {
		return nil, ErrNotEnoughData
	}

	xs := make([]float64, len(rows))
	income := make([]float64, len(rows))
	expenses := make([]float64, len(rows))
	ticks := make([]chart.Tick, len(rows))
	for i, row := range rows {
		xs[i] = float64(i)
		income[i] = float64(row.Income) / 100
		expenses[i] = float64(row.Expenses) / 100
		ticks[i] = chart.Tick{Value: float64(i), Label: row.Month}
	}

	graph := chart.Chart{
		Width:  1000,
		Height: 500,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{Ticks: ticks},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Income",
				XValues: xs,
				YValues: income,
				Style: chart.Style{
					StrokeColor: incomeColor,
					StrokeWidth: 3,
					FillColor:   incomeColor.WithAlpha(40),
				},
			},
			chart.ContinuousSeries{
				Name:    "Expenses",
				XValues: xs,
				YValues: expenses,
				Style: chart.Style{
					StrokeColor: expenseColor,
					StrokeWidth: 3,
					FillColor:   expenseColor.WithAlpha(40),
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
