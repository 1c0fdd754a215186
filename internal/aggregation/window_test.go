package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thatsimonsguy/aquarium-controller/internal/model"
)

func TestMedian(t *testing.T) {
	assert.Equal(t, 25.0, Median([]float64{24.0, 25.0, 26.0}))
	assert.Equal(t, 24.5, Median([]float64{24.0, 25.0}))
	assert.Equal(t, 25.0, Median([]float64{26.0, 24.0, 25.0}))
	assert.Equal(t, 0.0, Median(nil))
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Median(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestWindow_EmitsOncePerFullWindow(t *testing.T) {
	samples := [][]float64{
		{24.0, 25.0, 26.0},
		{24.0, 25.0, 26.0, 27.0},
		{22.1},
		{25.5, 25.5, 25.4, 25.6, 25.5, 30.0},
	}

	for _, values := range samples {
		w := NewWindow(model.MetricWaterTemperature, len(values))
		emissions := 0
		var got float64
		for _, v := range values {
			w.Push(v)
			if m, ok := w.TryEmit(len(values)); ok {
				emissions++
				got = m
			}
		}

		assert.Equal(t, 1, emissions, "values %v", values)
		assert.Equal(t, Median(values), got, "values %v", values)
		assert.Equal(t, 0, w.Len())
		assert.Equal(t, 0, w.Elapsed())
	}
}

func TestWindow_NoPartialMedianWhenSampleMissing(t *testing.T) {
	w := NewWindow(model.MetricRoomTemperature, 3)

	w.Push(24.0)
	_, ok := w.TryEmit(3)
	assert.False(t, ok)

	w.PushAbsent()
	_, ok = w.TryEmit(3)
	assert.False(t, ok)

	w.Push(26.0)
	_, ok = w.TryEmit(3)
	assert.False(t, ok, "a window with a missing sample must not emit")
	assert.Equal(t, 0, w.Len(), "window resets after target ticks even without emitting")
	assert.Equal(t, 0, w.Elapsed())

	// next window is unaffected by the failed one
	for _, v := range []float64{20, 21, 22} {
		w.Add(model.PresentSample(v))
	}
	m, ok := w.TryEmit(3)
	assert.True(t, ok)
	assert.Equal(t, 21.0, m)
}

func TestWindow_AllAbsent(t *testing.T) {
	w := NewWindow(model.MetricWaterTemperature, 2)
	w.Add(model.AbsentSample())
	w.Add(model.AbsentSample())

	_, ok := w.TryEmit(2)
	assert.False(t, ok)
	assert.Equal(t, 0, w.Elapsed())
}
