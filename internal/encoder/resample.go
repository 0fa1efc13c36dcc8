package encoder

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

// targetSampleRate is the ASR pipeline's and the WAV contract's fixed
// sample rate (spec §4.2, §6).
const targetSampleRate = 16000

// sincHalfWidth is the number of taps on each side of a windowed-sinc
// lowpass kernel's center tap.
const sincHalfWidth = 64

// FoldDown mixes interleaved multi-channel f32 PCM down to mono via the
// arithmetic mean of channels, per spec §4.2's "channel fold-down to mono
// (arithmetic mean of channels)". channels <= 1 is a no-op copy.
func FoldDown(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(interleaved))
		copy(out, interleaved)
		return out
	}
	n := len(interleaved) / channels
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Resampler band-limit resamples mono audio from a fixed source rate to
// targetSampleRate, as spec §4.2 assigns to "the encoder downstream" of
// capture: a windowed-sinc FIR lowpass (kernel windowed via gonum's
// Hamming window, the same dsp primitive family madpsy-ka9q_ubersdr's
// audio_extensions use gonum's fourier package for) removes energy above
// the new Nyquist rate, then linear interpolation resamples onto the
// target grid. The kernel is built once per source rate, since a given
// monitor's audio endpoint does not change native rate mid-run.
type Resampler struct {
	sourceRate int
	kernel     []float64
}

// NewResampler builds a resampler for audio captured at sourceRate. If
// sourceRate already equals targetSampleRate, Resample is a passthrough.
func NewResampler(sourceRate int) *Resampler {
	r := &Resampler{sourceRate: sourceRate}
	if sourceRate != targetSampleRate {
		r.kernel = buildLowpassKernel(sourceRate, targetSampleRate, sincHalfWidth)
	}
	return r
}

// Resample converts mono to targetSampleRate.
func (r *Resampler) Resample(mono []float32) []float32 {
	if r.sourceRate == targetSampleRate || len(mono) == 0 {
		out := make([]float32, len(mono))
		copy(out, mono)
		return out
	}
	filtered := applyKernel(mono, r.kernel)
	return linearResample(filtered, r.sourceRate, targetSampleRate)
}

func buildLowpassKernel(sourceRate, targetRate, half int) []float64 {
	nyquist := float64(sourceRate) / 2
	cutoff := float64(targetRate) / 2
	fc := cutoff / nyquist
	if fc > 1 {
		fc = 1
	}

	n := 2*half + 1
	kernel := make([]float64, n)
	for i := -half; i <= half; i++ {
		idx := i + half
		if i == 0 {
			kernel[idx] = fc
			continue
		}
		x := float64(i)
		kernel[idx] = math.Sin(math.Pi*fc*x) / (math.Pi * x)
	}
	window.Hamming(kernel)

	var sum float64
	for _, v := range kernel {
		sum += v
	}
	if sum != 0 {
		for i := range kernel {
			kernel[i] /= sum
		}
	}
	return kernel
}

func applyKernel(signal []float32, kernel []float64) []float64 {
	half := len(kernel) / 2
	n := len(signal)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var acc float64
		for k := -half; k <= half; k++ {
			j := i + k
			if j < 0 || j >= n {
				continue
			}
			acc += float64(signal[j]) * kernel[k+half]
		}
		out[i] = acc
	}
	return out
}

func linearResample(signal []float64, sourceRate, targetRate int) []float32 {
	if len(signal) == 0 {
		return nil
	}
	ratio := float64(sourceRate) / float64(targetRate)
	outLen := int(float64(len(signal)) / ratio)
	if outLen <= 0 {
		return nil
	}
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)
		a := signal[idx]
		b := a
		if idx+1 < len(signal) {
			b = signal[idx+1]
		}
		out[i] = float32(a + (b-a)*frac)
	}
	return out
}
