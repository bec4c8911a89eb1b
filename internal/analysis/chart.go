package analysis

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
)

const (
	chartHeight     = 480
	chartMinWidth   = 640
	chartBarWidth   = 28
	chartBarSpacing = 12
)

// RenderMeanChart draws the average-sentiment-per-product bar chart as PNG.
func RenderMeanChart(w io.Writer, means []CategoryMean) error {
	if len(means) == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, len(means))
	values := make([]float64, len(means))
	for i, m := range means {
		bars[i] = chart.Value{Label: m.Category, Value: m.Mean}
		values[i] = m.Mean
	}

	yRange, err := paddedRange(values, true)
	if err != nil {
		return err
	}

	graph := chart.BarChart{
		Title:        "Average Sentiment by Product",
		Width:        chartWidth(len(bars)),
		Height:       chartHeight,
		BarWidth:     chartBarWidth,
		BarSpacing:   chartBarSpacing,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis:        chart.YAxis{Range: yRange},
		Bars:         bars,
	}
	return graph.Render(chart.PNG, w)
}

// RenderHistogram draws the score distribution as PNG.
func RenderHistogram(w io.Writer, dist *Distribution) error {
	if dist == nil || dist.Total() == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, len(dist.Counts))
	values := make([]float64, len(dist.Counts))
	for i, c := range dist.Counts {
		bars[i] = chart.Value{Label: fmt.Sprintf("%.2f", dist.Edges[i]), Value: float64(c)}
		values[i] = float64(c)
	}

	yRange, err := paddedRange(values, false)
	if err != nil {
		return err
	}

	graph := chart.BarChart{
		Title:      "Distribution of Sentiment Scores",
		Width:      chartWidth(len(bars)),
		Height:     chartHeight,
		BarWidth:   chartBarWidth,
		BarSpacing: chartBarSpacing,
		YAxis:      chart.YAxis{Range: yRange},
		Bars:       bars,
	}
	return graph.Render(chart.PNG, w)
}

func chartWidth(bars int) int {
	w := bars*(chartBarWidth+chartBarSpacing) + 160
	if w < chartMinWidth {
		return chartMinWidth
	}
	return w
}

// paddedRange spans values plus zero with some headroom. The chart library
// refuses a range of zero width, so a flat series still gets one unit. A
// span that overflows, padding included, cannot be ticked and is rejected.
func paddedRange(values []float64, signed bool) (*chart.ContinuousRange, error) {
	lo, hi := 0.0, 0.0
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: value %g", ErrUnplottable, v)
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}

	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 1
	}

	r := &chart.ContinuousRange{Min: lo, Max: hi + pad}
	if signed && lo < 0 {
		r.Min = lo - pad
	}
	if math.IsInf(r.Max-r.Min, 0) {
		return nil, fmt.Errorf("%w: range [%g, %g]", ErrUnplottable, lo, hi)
	}
	return r, nil
}
