package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidenceWindow(t *testing.T) {
	var w confidenceWindow

	assert.InDelta(t, 0, w.mean(), 1e-9, "empty window")

	w.add(80)
	w.add(60)
	assert.InDelta(t, 70, w.mean(), 1e-9)

	// Fill the ring with 50s; the two early values must fall out once the
	// window wraps.
	for i := 0; i < confidenceWindowSize; i++ {
		w.add(50)
	}
	assert.InDelta(t, 50, w.mean(), 1e-9)
	assert.Equal(t, confidenceWindowSize, w.n)
}
