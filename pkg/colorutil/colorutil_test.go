package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromColorRoundTrip(t *testing.T) {
	t.Parallel()
	c := FromColor(color.RGBA{R: 255, G: 0, B: 51, A: 255})
	assert.InDelta(t, 1.0, c.R, 1e-9)
	assert.InDelta(t, 0.0, c.G, 1e-9)
	assert.InDelta(t, 0.2, c.B, 1e-9)
	assert.Equal(t, color.RGBA{R: 255, G: 0, B: 51, A: 255}, c.RGBA())
}

func TestDistance(t *testing.T) {
	t.Parallel()
	assert.Zero(t, Red.Distance(Red))
	assert.InDelta(t, 1.0, Red.Distance(Black), 1e-12)
	assert.InDelta(t, 1.7320508, White.Distance(Black), 1e-6)
}

func TestRGBAClamps(t *testing.T) {
	t.Parallel()
	assert.Equal(t, color.RGBA{R: 255, G: 0, B: 128, A: 255}, RGB{R: 2, G: -1, B: 0.5}.RGBA())
	assert.Equal(t, FromRGB8(255, 255, 255), White)
}
