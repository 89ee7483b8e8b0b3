package convert

import (
	"testing"

	"github.com/cblack34/channelweaver/internal/model"
)

func TestFloat32ConverterIsIdentity(t *testing.T) {
	in := []float64{-1, -0.5, 0, 0.25, 0.999}
	out := Float32Converter{}.Convert(in)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("Float32Converter.Convert changed sample %d: %v -> %v", i, in[i], out[i])
		}
	}
	if (Float32Converter{}).TargetSubtype() != model.Float {
		t.Fatal("Float32Converter.TargetSubtype() != model.Float")
	}
}

func TestInt16ConverterClips(t *testing.T) {
	out := Int16Converter{}.Convert([]float64{2.0, -2.0})
	if out[0] != 32767 {
		t.Fatalf("Int16Converter did not clip +full-scale: got %v", out[0])
	}
	if out[1] != -32768 {
		t.Fatalf("Int16Converter did not clip -full-scale: got %v", out[1])
	}
}

func TestInt16ConverterRoundsHalfToEven(t *testing.T) {
	// 0.5/32768 and 1.5/32768 scale back to exactly x.5 before rounding.
	in := []float64{0.5 / 32768, 1.5 / 32768, 2.5 / 32768}
	out := Int16Converter{}.Convert(in)
	want := []float64{0, 2, 2}
	for i, w := range want {
		if out[i] != w {
			t.Fatalf("half-to-even rounding at index %d: got %v, want %v", i, out[i], w)
		}
	}
}

func TestInt24ConverterScaleAndTargetSubtype(t *testing.T) {
	c := Int24Converter{}
	if c.TargetSubtype() != model.PCM24 {
		t.Fatal("Int24Converter.TargetSubtype() != model.PCM24")
	}
	out := c.Convert([]float64{1.0, -1.0})
	if out[0] != (1<<23)-1 {
		t.Fatalf("Int24Converter clip at +full-scale: got %v", out[0])
	}
	if out[1] != -(1 << 23) {
		t.Fatalf("Int24Converter clip at -full-scale: got %v", out[1])
	}
}

func TestForBitDepthResolvesMatchingVariant(t *testing.T) {
	cases := map[model.BitDepth]model.Subtype{
		model.Int16:   model.PCM16,
		model.Int24:   model.PCM24,
		model.Float32: model.Float,
	}
	for bd, want := range cases {
		if got := ForBitDepth(bd).TargetSubtype(); got != want {
			t.Fatalf("ForBitDepth(%s).TargetSubtype() = %s, want %s", bd, got, want)
		}
	}
}
