package clickanalysis

import "math"

// biquad is one second-order section in direct-form-II transposed layout,
// holding its own two state scalars so state carries across blocks.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	z1, z2             float64
}

func (b *biquad) process(x float64) float64 {
	y := b.b0*x + b.z1
	b.z1 = b.b1*x - b.a1*y + b.z2
	b.z2 = b.b2*x - b.a2*y
	return y
}

// butterworthQ is the pole Q of a single 2-pole Butterworth section.
const butterworthQ = 0.70710678118654752440

func newLowpass(sampleRate, cutoff float64) *biquad {
	w0 := 2 * math.Pi * cutoff / sampleRate
	alpha := math.Sin(w0) / (2 * butterworthQ)
	cosw0 := math.Cos(w0)

	b0 := (1 - cosw0) / 2
	b1 := 1 - cosw0
	b2 := (1 - cosw0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosw0
	a2 := 1 - alpha

	return &biquad{b0 / a0, b1 / a0, b2 / a0, a1 / a0, a2 / a0, 0, 0}
}

func newHighpass(sampleRate, cutoff float64) *biquad {
	w0 := 2 * math.Pi * cutoff / sampleRate
	alpha := math.Sin(w0) / (2 * butterworthQ)
	cosw0 := math.Cos(w0)

	b0 := (1 + cosw0) / 2
	b1 := -(1 + cosw0)
	b2 := (1 + cosw0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosw0
	a2 := 1 - alpha

	return &biquad{b0 / a0, b1 / a0, b2 / a0, a1 / a0, a2 / a0, 0, 0}
}

// bandpass is the 4th-order Butterworth bandpass (1 kHz-8 kHz), realized
// as a cascade of a highpass and a lowpass Butterworth section: two
// biquads, four state scalars total, carried across blocks.
type bandpass struct {
	hp *biquad
	lp *biquad
}

func newBandpass(sampleRate float64) *bandpass {
	return &bandpass{
		hp: newHighpass(sampleRate, 1000),
		lp: newLowpass(sampleRate, 8000),
	}
}

func (bp *bandpass) process(x float64) float64 {
	return bp.lp.process(bp.hp.process(x))
}
