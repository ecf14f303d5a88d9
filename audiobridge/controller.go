package audiobridge

import "math"

const (
	ringSize = 512

	catchFactor  = 100000.0
	catchFactor2 = 10000.0
	controlQuant = 10000.0

	pclamp = 15.0

	factorMin = 0.25
	factorMax = 4.0
)

// hannWindow precomputes a ringSize-point Hann window, used to smooth the
// raw delay offsets the controller accumulates each cycle.
var hannWindow = func() [ringSize]float64 {
	var w [ringSize]float64
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(ringSize-1)))
	}
	return w
}()

// Controller is the PI resampling controller described in the audio
// bridge component: it tracks a rolling window of capture-buffer delay
// offsets and produces a sample-rate-conversion ratio that pulls the
// buffer back toward its target occupancy.
//
// A Controller holds no reference to any sound-card or SRC state; it is
// pure arithmetic, driven one cycle at a time by Bridge, and is safe to
// unit-test without any audio hardware.
type Controller struct {
	// Static is the nominal ratio (server rate / source rate) the
	// controller adjusts around.
	Static float64

	mean     float64
	ring     [ringSize]float64
	index    int
	integral float64
}

// NewController returns a Controller seeded at its static ratio.
func NewController(static float64) *Controller {
	return &Controller{Static: static, mean: static}
}

// ResetFor reseeds the integrator and clears the offset ring after a
// buffer-correction jump (a successive-read or rewind large enough to
// snap the delay back to target), per the callback's step 2/3 recovery.
func (c *Controller) ResetFor(staticTarget float64) {
	c.integral = -(c.mean - staticTarget) * catchFactor * catchFactor2
	c.ring = [ringSize]float64{}
	c.index = 0
}

// Step records one cycle's offset (captured delay minus target) and
// returns the resample factor to use for this cycle's conversion.
func (c *Controller) Step(offset float64) float64 {
	c.ring[c.index%ringSize] = offset
	c.index++

	var smoothed float64
	for i := 0; i < ringSize; i++ {
		idx := (i + c.index - 1) % ringSize
		smoothed += c.ring[idx] * hannWindow[i]
	}
	smoothed /= ringSize

	c.integral += smoothed

	proportional := smoothed
	if math.Abs(smoothed) < pclamp {
		proportional = 0
	}

	factor := c.Static - proportional/catchFactor - c.integral/(catchFactor*catchFactor2)

	factor = math.Round((factor-c.mean)*controlQuant)/controlQuant + c.mean

	if factor < factorMin {
		factor = factorMin
	} else if factor > factorMax {
		factor = factorMax
	}

	c.mean = 0.9999*c.mean + 0.0001*factor

	return factor
}

// Mean reports the controller's current rolling-mean factor, mainly for
// tests and diagnostics.
func (c *Controller) Mean() float64 { return c.mean }
