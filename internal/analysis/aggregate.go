package analysis

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"sentiment-dashboard/internal/models"
)

var (
	// ErrNoData is returned when a view is requested over an empty (sub)table.
	ErrNoData = errors.New("no data")
	// ErrUnplottable is returned when scores are finite but too far apart
	// to aggregate or draw without overflowing.
	ErrUnplottable = errors.New("scores span too wide to plot")
)

// DefaultBins is the histogram resolution used when none is given.
const DefaultBins = 20

type CategoryMean struct {
	Category string
	Mean     float64
	Count    int
}

// MeanByCategory averages the sentiment score per product, ascending by mean.
// Equal means are ordered by product name.
func MeanByCategory(table *models.ReviewTable) ([]CategoryMean, error) {
	if table.Len() == 0 {
		return nil, ErrNoData
	}

	groups := make(map[string][]float64)
	var order []string
	for _, rec := range table.Records() {
		if _, ok := groups[rec.Product]; !ok {
			order = append(order, rec.Product)
		}
		groups[rec.Product] = append(groups[rec.Product], rec.SentimentScore)
	}

	out := make([]CategoryMean, 0, len(order))
	for _, category := range order {
		scores := groups[category]
		mean := stat.Mean(scores, nil)
		if math.IsInf(mean, 0) || math.IsNaN(mean) {
			return nil, fmt.Errorf("%w: mean of %s overflows", ErrUnplottable, category)
		}
		out = append(out, CategoryMean{
			Category: category,
			Mean:     mean,
			Count:    len(scores),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Mean != out[j].Mean {
			return out[i].Mean < out[j].Mean
		}
		return out[i].Category < out[j].Category
	})

	return out, nil
}

// Distribution is a histogram of sentiment scores. Edges has one more entry
// than Counts; the last bin includes its right edge.
type Distribution struct {
	Min    float64
	Max    float64
	Edges  []float64
	Counts []int
}

// Total is the number of scores counted.
func (d *Distribution) Total() int {
	n := 0
	for _, c := range d.Counts {
		n += c
	}
	return n
}

// Histogram counts scores into equal-width bins spanning the values present.
// A single distinct value is centred in a range of width one.
func Histogram(table *models.ReviewTable, bins int) (*Distribution, error) {
	scores := table.Scores()
	if len(scores) == 0 {
		return nil, ErrNoData
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	sorted := slices.Clone(scores)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if math.IsInf(hi-lo, 0) {
		return nil, fmt.Errorf("%w: range [%g, %g]", ErrUnplottable, lo, hi)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	edges := floats.Span(make([]float64, bins+1), lo, hi)

	dividers := slices.Clone(edges)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	weights := stat.Histogram(nil, dividers, sorted, nil)

	counts := make([]int, bins)
	for i, w := range weights {
		counts[i] = int(w)
	}

	return &Distribution{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Edges:  edges,
		Counts: counts,
	}, nil
}
