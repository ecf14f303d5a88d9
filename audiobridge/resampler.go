package audiobridge

// Resampler performs single-channel sample-rate conversion at a ratio
// that can change between calls, using linear interpolation between
// consecutive input samples. See DESIGN.md for why this stays on plain
// float64 arithmetic rather than a third-party resampling library.
//
// State (the fractional read position) persists across calls so a
// caller can feed it a stream of variable-length chunks, one per
// callback, and get a continuous output signal.
type Resampler struct {
	pos float64
}

// NewResampler returns a Resampler starting at the beginning of its
// first input chunk.
func NewResampler() *Resampler {
	return &Resampler{}
}

// Process converts in (already S16->float64 samples in [-1,1]) to
// exactly want output samples at the given ratio (ratio = output_rate /
// input_rate), and reports how many leading input samples were fully
// consumed so the caller can rewind the unused remainder.
func (r *Resampler) Process(in []float64, ratio float64, want int, out []float64) (consumed int) {
	if ratio <= 0 {
		ratio = 1
	}
	step := 1.0 / ratio

	for i := 0; i < want; i++ {
		idx := int(r.pos)
		if idx+1 >= len(in) {
			// Not enough input for this cycle; hold the last sample
			// rather than reading out of bounds.
			if len(in) == 0 {
				out[i] = 0
				continue
			}
			out[i] = in[len(in)-1]
			continue
		}
		frac := r.pos - float64(idx)
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
		r.pos += step
	}

	consumed = int(r.pos)
	if consumed > len(in) {
		consumed = len(in)
	}
	r.pos -= float64(consumed)
	return consumed
}
