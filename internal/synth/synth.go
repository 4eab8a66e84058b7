// Package synth generates FT8 test audio: message text is packed, protected
// with the checksum and LDPC parity, mapped to tones and rendered as
// phase-continuous 8-FSK over optional Gaussian noise.
package synth

import (
	"fmt"
	"math"
	"math/rand"

	"goft8/internal/crc"
	"goft8/internal/ft8"
	"goft8/internal/ldpc"
	"goft8/internal/message"
	"goft8/internal/window"
)

// Scene defaults
const (
	DefaultNoise       = 0.02   // noise standard deviation relative to full scale
	ReferenceBandwidth = 2500.0 // bandwidth the SNR of a signal is quoted in (Hz)

	rampSamples = ft8.SymbolSamples / 8
)

// Encode packs message text into the 79 channel tones
func Encode(text string) ([ft8.NumSymbols]int, error) {
	payload, err := message.Pack(text)
	if err != nil {
		return [ft8.NumSymbols]int{}, err
	}
	return EncodePayload(payload)
}

// EncodePayload maps a 77-bit payload onto the 79 channel tones
func EncodePayload(payload []uint8) ([ft8.NumSymbols]int, error) {
	if len(payload) != ft8.PayloadBits {
		return [ft8.NumSymbols]int{}, fmt.Errorf("payload has %d bits, want %d", len(payload), ft8.PayloadBits)
	}

	codeword, err := ldpc.Encode(crc.Append(payload))
	if err != nil {
		return [ft8.NumSymbols]int{}, fmt.Errorf("failed to encode payload: %w", err)
	}
	return ft8.Tones(codeword)
}

// Waveform renders tones as phase-continuous FSK with tone 0 at base Hz.
// The first and last eighth of a symbol are shaped with a raised-cosine ramp.
func Waveform(tones [ft8.NumSymbols]int, base, amplitude float64) []float64 {
	out := make([]float64, ft8.NumSymbols*ft8.SymbolSamples)

	var phase float64
	for s, tone := range tones {
		step := 2 * math.Pi * (base + float64(tone)*ft8.ToneSpacing) / ft8.SampleRate
		for i := 0; i < ft8.SymbolSamples; i++ {
			out[s*ft8.SymbolSamples+i] = amplitude * math.Sin(phase)
			phase += step
		}
		phase = math.Mod(phase, 2*math.Pi)
	}

	for i := 0; i < rampSamples; i++ {
		g := 0.5 * (1 - math.Cos(math.Pi*float64(i)/rampSamples))
		out[i] *= g
		out[len(out)-1-i] *= g
	}
	return out
}

// Scene is a mono audio buffer that signals are mixed into
type Scene struct {
	samples []float64
	noise   float64
}

// NewScene creates a buffer of n samples holding Gaussian noise of the given
// standard deviation. The seed makes the noise reproducible.
func NewScene(n int, noise float64, seed int64) *Scene {
	s := &Scene{samples: make([]float64, n), noise: noise}
	if noise > 0 {
		rng := rand.New(rand.NewSource(seed))
		for i := range s.samples {
			s.samples[i] = noise * rng.NormFloat64()
		}
	}
	return s
}

// NewSlot creates a 15 second scene with the default noise level
func NewSlot(seed int64) *Scene {
	return NewScene(ft8.SlotSamples, DefaultNoise, seed)
}

// Amplitude returns the sine amplitude giving snr dB against the scene noise
// measured in ReferenceBandwidth. Silent scenes use DefaultNoise as reference.
func (s *Scene) Amplitude(snr float64) float64 {
	sigma := s.noise
	if sigma <= 0 {
		sigma = DefaultNoise
	}
	noisePower := sigma * sigma * ReferenceBandwidth / (ft8.SampleRate / 2)
	return math.Sqrt(2 * noisePower * math.Pow(10, snr/10))
}

// AddTones mixes a transmission starting at start seconds with tone 0 at freq Hz.
// Samples falling outside the scene are dropped.
func (s *Scene) AddTones(tones [ft8.NumSymbols]int, freq, start, snr float64) {
	wave := Waveform(tones, freq, s.Amplitude(snr))
	offset := int(math.Round(start * ft8.SampleRate))
	for i, v := range wave {
		j := offset + i
		if j >= 0 && j < len(s.samples) {
			s.samples[j] += v
		}
	}
}

// AddMessage encodes text and mixes it into the scene
func (s *Scene) AddMessage(text string, freq, start, snr float64) error {
	tones, err := Encode(text)
	if err != nil {
		return err
	}
	s.AddTones(tones, freq, start, snr)
	return nil
}

// Len returns the scene length in samples
func (s *Scene) Len() int {
	return len(s.samples)
}

// Window quantises the scene into a decodable window
func (s *Scene) Window() *window.Window {
	return window.FromFloat64(s.samples)
}
