package pattern

import (
	"sort"

	"sentiment-pattern-bot/internal/domain"

	"cloud.google.com/go/civil"
)

// PriceSeries resolves closing prices by calendar date.
type PriceSeries struct {
	points []domain.PricePoint
}

// NewPriceSeries copies and date-sorts points. When a date appears more than
// once the last occurrence in input order wins.
func NewPriceSeries(points []domain.PricePoint) *PriceSeries {
	sorted := append([]domain.PricePoint(nil), points...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	deduped := make([]domain.PricePoint, 0, len(sorted))
	for _, p := range sorted {
		if n := len(deduped); n > 0 && deduped[n-1].Date == p.Date {
			deduped[n-1] = p
			continue
		}
		deduped = append(deduped, p)
	}
	return &PriceSeries{points: deduped}
}

func (p *PriceSeries) Len() int {
	return len(p.points)
}

// CloseAt returns the close on target, or the close of the nearest date when
// target has no bar. Equidistant neighbours resolve to the earlier date.
func (p *PriceSeries) CloseAt(target civil.Date) (float64, bool) {
	n := len(p.points)
	if n == 0 {
		return 0, false
	}

	idx := sort.Search(n, func(i int) bool { return !p.points[i].Date.Before(target) })
	if idx < n && p.points[idx].Date == target {
		return p.points[idx].Close, true
	}

	switch {
	case idx == 0:
		return p.points[0].Close, true
	case idx == n:
		return p.points[n-1].Close, true
	}

	before := p.points[idx-1]
	after := p.points[idx]
	if target.DaysSince(before.Date) <= after.Date.DaysSince(target) {
		return before.Close, true
	}
	return after.Close, true
}

// Closes returns positive closing prices in date order. Zero closes mark
// missing bars and are skipped.
func (p *PriceSeries) Closes() []float64 {
	out := make([]float64, 0, len(p.points))
	for _, pt := range p.points {
		if pt.Close > 0 {
			out = append(out, pt.Close)
		}
	}
	return out
}
