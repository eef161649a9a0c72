package audio

import (
	"math"
	"math/rand"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
)

// Wave is an oscillator shape
type Wave int

const (
	WaveSine Wave = iota
	WaveSquare
	WaveSaw
	WaveNoise
)

// Tone returns a streamer playing freq for d
func Tone(freq float64, d time.Duration, wave Wave, rate beep.SampleRate) beep.Streamer {
	return beep.Take(rate.N(d), source(freq, wave, rate))
}

// Drone returns a streamer playing freq until it is dropped
func Drone(freq float64, wave Wave, rate beep.SampleRate) beep.Streamer {
	return source(freq, wave, rate)
}

// source is an endless oscillator. Frequencies the generators reject (at or
// above Nyquist) come out silent.
func source(freq float64, wave Wave, rate beep.SampleRate) beep.Streamer {
	var (
		s   beep.Streamer
		err error
	)
	switch wave {
	case WaveSquare:
		s, err = generators.SquareTone(rate, freq)
	case WaveSaw:
		s, err = generators.SawtoothTone(rate, freq)
	case WaveNoise:
		return &noise{rng: rand.New(rand.NewSource(int64(freq * 1000)))}
	default:
		s, err = generators.SineTone(rate, freq)
	}
	if err != nil {
		return beep.Silence(-1)
	}
	return s
}

// noise is white noise; freq only seeds it
type noise struct {
	rng *rand.Rand
}

func (n *noise) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		v := n.rng.Float64()*2 - 1
		samples[i][0] = v
		samples[i][1] = v
	}
	return len(samples), true
}

func (n *noise) Err() error { return nil }

// fade shapes a finite streamer with a linear attack and release
type fade struct {
	streamer beep.Streamer
	pos      int
	total    int
	attack   int
	release  int
}

// Fade applies a linear attack and release to the first d of s
func Fade(s beep.Streamer, d, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	return &fade{
		streamer: s,
		total:    rate.N(d),
		attack:   rate.N(attack),
		release:  rate.N(release),
	}
}

func (f *fade) Stream(samples [][2]float64) (n int, ok bool) {
	if f.pos >= f.total {
		return 0, false
	}
	if remaining := f.total - f.pos; len(samples) > remaining {
		samples = samples[:remaining]
	}

	n, ok = f.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		gain := 1.0
		if f.attack > 0 && f.pos < f.attack {
			gain = float64(f.pos) / float64(f.attack)
		}
		if left := f.total - f.pos; f.release > 0 && left < f.release {
			gain = math.Min(gain, float64(left)/float64(f.release))
		}
		samples[i][0] *= gain
		samples[i][1] *= gain
		f.pos++
	}
	return n, ok
}

func (f *fade) Err() error { return f.streamer.Err() }

// Gain scales s linearly. Zero or less is silent.
func Gain(s beep.Streamer, level float64) beep.Streamer {
	if level <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(level)}
}
