package aggregation

import (
	"sort"

	"github.com/thatsimonsguy/aquarium-controller/internal/model"
)

// Window accumulates one metric's samples until a median can be reported.
type Window struct {
	Metric  string
	values  []float64
	elapsed int
}

func NewWindow(metric string, target int) *Window {
	return &Window{
		Metric: metric,
		values: make([]float64, 0, target),
	}
}

func (w *Window) Push(value float64) {
	w.values = append(w.values, value)
	w.elapsed++
}

func (w *Window) PushAbsent() {
	w.elapsed++
}

func (w *Window) Add(s model.Sample) {
	if s.Present {
		w.Push(s.Value)
		return
	}
	w.PushAbsent()
}

// TryEmit returns the median once target ticks have elapsed and every one of them
// produced a sample. The window resets whenever target ticks have elapsed.
func (w *Window) TryEmit(target int) (float64, bool) {
	if w.elapsed < target {
		return 0, false
	}

	complete := len(w.values) == w.elapsed && w.elapsed == target
	var median float64
	if complete {
		median = Median(w.values)
	}
	w.reset()
	return median, complete
}

func (w *Window) Len() int {
	return len(w.values)
}

func (w *Window) Elapsed() int {
	return w.elapsed
}

func (w *Window) reset() {
	w.values = w.values[:0]
	w.elapsed = 0
}

// Median of values; the mean of the two middle values for an even count. Zero for no values.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
