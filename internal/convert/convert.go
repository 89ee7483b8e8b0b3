// Package convert implements the bit-depth converter set: a small closed
// family of stateless, per-session-chosen strategies that turn
// floating-point frame blocks into the on-wire subtype a writer targets.
package convert

import (
	"math"

	"github.com/cblack34/channelweaver/internal/model"
)

// Converter maps float samples in [-1, 1] to the integer/float range of
// its TargetSubtype. Implementations are stateless across blocks.
type Converter interface {
	TargetSubtype() model.Subtype
	Convert(block []float64) []float64
}

// Float32Converter is the identity converter: float in, float out.
type Float32Converter struct{}

func (Float32Converter) TargetSubtype() model.Subtype { return model.Float }

func (Float32Converter) Convert(block []float64) []float64 {
	out := make([]float64, len(block))
	copy(out, block)
	return out
}

// Int24Converter scales to the 24-bit signed range with half-to-even
// rounding and clipping.
type Int24Converter struct{}

func (Int24Converter) TargetSubtype() model.Subtype { return model.PCM24 }

func (Int24Converter) Convert(block []float64) []float64 {
	const scale = 1 << 23
	const min, max = -scale, scale - 1
	out := make([]float64, len(block))
	for i, v := range block {
		out[i] = clip(roundHalfToEven(v*scale), min, max)
	}
	return out
}

// Int16Converter scales to the 16-bit signed range with half-to-even
// rounding and clipping.
type Int16Converter struct{}

func (Int16Converter) TargetSubtype() model.Subtype { return model.PCM16 }

func (Int16Converter) Convert(block []float64) []float64 {
	const scale = 1 << 15
	const min, max = -scale, scale - 1
	out := make([]float64, len(block))
	for i, v := range block {
		out[i] = clip(roundHalfToEven(v*scale), min, max)
	}
	return out
}

func roundHalfToEven(v float64) float64 {
	return math.RoundToEven(v)
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ForBitDepth resolves the SOURCE variant: the target converter matching
// the session's own input bit depth. Resolved once, before any writing.
func ForBitDepth(bd model.BitDepth) Converter {
	switch bd {
	case model.Int16:
		return Int16Converter{}
	case model.Int24:
		return Int24Converter{}
	default:
		return Float32Converter{}
	}
}
