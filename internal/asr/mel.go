// Package asr implements the local speech-to-text pipeline: mel spectrogram
// feature extraction, tokens.txt detokenization, and the greedy
// token-duration transducer decode loop over a pluggable ONNX session.
package asr

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

const (
	// SampleRate is the fixed input sample rate the mel pipeline expects;
	// encoder.Resampler upstream is responsible for getting audio here.
	SampleRate = 16000

	windowSize = 400 // 25ms at 16kHz
	hopSize    = 160 // 10ms at 16kHz
	fftSize    = 512

	// FrameDurationSec is the hop duration in seconds.
	FrameDurationSec = float64(hopSize) / float64(SampleRate)

	// SubsamplingFactor is the encoder's frame-to-output ratio.
	SubsamplingFactor = 8

	// EncoderFrameDurationSec is the duration an encoder output frame spans.
	EncoderFrameDurationSec = FrameDurationSec * SubsamplingFactor

	// NumMels is the mel bin count for the parakeet-tdt-0.6b-v2 model.
	NumMels = 128

	lowFreqHz  = 0.0
	highFreqHz = 8000.0 // Nyquist at 16kHz
)

// MelSpectrogram extracts log-mel features the way
// original_source/src/memoire-stt/src/mel.rs does, with the STFT and the
// mel-filterbank bin-averaging done as a real FFT plus a matrix multiply
// instead of a hand-rolled O(n^2) DFT.
type MelSpectrogram struct {
	numMels   int
	normalize bool
	fft       *fourier.FFT
	window    []float64
	filters   *mat.Dense // numMels x (fftSize/2+1)
}

// NewMelSpectrogram builds an extractor for numMels bins (128 for
// parakeet-tdt-0.6b-v2). normalize applies zero-mean/unit-variance
// normalization per feature dimension across the whole utterance.
func NewMelSpectrogram(numMels int, normalize bool) *MelSpectrogram {
	return &MelSpectrogram{
		numMels:   numMels,
		normalize: normalize,
		fft:       fourier.NewFFT(fftSize),
		window:    hannWindow(windowSize),
		filters:   melFilterbank(numMels, fftSize, SampleRate, lowFreqHz, highFreqHz),
	}
}

// Extract computes the [numFrames][numMels] log-mel feature matrix for
// samples, which must be mono float32-equivalent PCM at SampleRate.
func (m *MelSpectrogram) Extract(samples []float32) [][]float32 {
	if len(samples) < windowSize {
		return nil
	}
	numFrames := (len(samples)-windowSize)/hopSize + 1
	features := make([][]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		start := i * hopSize
		frame := samples[start : start+windowSize]
		spectrum := m.magnitudeSpectrum(frame)
		features[i] = m.applyFilterbank(spectrum)
	}
	if m.normalize && len(features) > 0 {
		normalizeFeatures(features)
	}
	return features
}

// ExtractFlat is Extract flattened row-major, alongside its shape, for
// callers that want a single contiguous buffer.
func (m *MelSpectrogram) ExtractFlat(samples []float32) (flat []float32, numFrames, numMels int) {
	features := m.Extract(samples)
	numFrames = len(features)
	numMels = m.numMels
	flat = make([]float32, 0, numFrames*numMels)
	for _, row := range features {
		flat = append(flat, row...)
	}
	return flat, numFrames, numMels
}

func (m *MelSpectrogram) magnitudeSpectrum(frame []float32) []float64 {
	windowed := make([]float64, fftSize)
	for i, s := range frame {
		windowed[i] = float64(s) * m.window[i]
	}
	coeffs := m.fft.Coefficients(nil, windowed)
	spectrum := make([]float64, len(coeffs))
	for i, c := range coeffs {
		spectrum[i] = math.Hypot(real(c), imag(c))
	}
	return spectrum
}

func (m *MelSpectrogram) applyFilterbank(spectrum []float64) []float32 {
	spec := mat.NewVecDense(len(spectrum), spectrum)
	energies := mat.NewVecDense(m.numMels, nil)
	energies.MulVec(m.filters, spec)

	out := make([]float32, m.numMels)
	for i := 0; i < m.numMels; i++ {
		e := energies.AtVec(i)
		if e < 1e-10 {
			e = 1e-10
		}
		out[i] = float32(math.Log(e))
	}
	return out
}

func normalizeFeatures(features [][]float32) {
	numFrames := len(features)
	numDims := len(features[0])
	for dim := 0; dim < numDims; dim++ {
		var sum float64
		for _, f := range features {
			sum += float64(f[dim])
		}
		mean := sum / float64(numFrames)

		var varSum float64
		for _, f := range features {
			d := float64(f[dim]) - mean
			varSum += d * d
		}
		std := math.Sqrt(varSum / float64(numFrames))
		if std < 1e-10 {
			std = 1e-10
		}

		for _, f := range features {
			f[dim] = float32((float64(f[dim]) - mean) / std)
		}
	}
}

func hannWindow(length int) []float64 {
	w := make([]float64, length)
	for n := 0; n < length; n++ {
		w[n] = 0.5 * (1 - math.Cos(2*math.Pi*float64(n)/float64(length-1)))
	}
	return w
}

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank builds the numMels x (fftSize/2+1) triangular filterbank
// matrix as mel.rs's create_mel_filterbank does, as a mat.Dense so
// applyFilterbank is one MulVec instead of a manual double loop.
func melFilterbank(numMels, fftSizeArg int, sampleRate int, lowFreq, highFreq float64) *mat.Dense {
	numBins := fftSizeArg/2 + 1
	lowMel := hzToMel(lowFreq)
	highMel := hzToMel(highFreq)

	melPoints := make([]float64, numMels+2)
	for i := range melPoints {
		melPoints[i] = lowMel + (highMel-lowMel)*float64(i)/float64(numMels+1)
	}

	binPoints := make([]int, numMels+2)
	for i, mel := range melPoints {
		hz := melToHz(mel)
		bin := int(math.Floor((float64(fftSizeArg) + 1) * hz / float64(sampleRate)))
		if bin > numBins-1 {
			bin = numBins - 1
		}
		binPoints[i] = bin
	}

	filters := mat.NewDense(numMels, numBins, nil)
	for mIdx := 0; mIdx < numMels; mIdx++ {
		left := binPoints[mIdx]
		center := binPoints[mIdx+1]
		right := binPoints[mIdx+2]

		for k := left; k < center; k++ {
			if center > left {
				filters.Set(mIdx, k, float64(k-left)/float64(center-left))
			}
		}
		for k := center; k <= right && k < numBins; k++ {
			if right > center {
				filters.Set(mIdx, k, float64(right-k)/float64(right-center))
			}
		}
	}
	return filters
}
