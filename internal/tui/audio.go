package tui

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/okian/gamespin/internal/domain/model"
)

const sampleRate = beep.SampleRate(48000)

// Audio plays a short click for every reel tick and a chime on landing.
// Before Init, or when the device could not be opened, both are silent.
type Audio struct {
	mu    sync.Mutex
	mixer *beep.Mixer
	ready bool
}

// NewAudio creates a silent audio player.
func NewAudio() *Audio {
	return &Audio{mixer: &beep.Mixer{}}
}

// Init opens the speaker and starts the mixer.
func (a *Audio) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ready {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(a.mixer)
	a.ready = true
	return nil
}

// Close stops playback.
func (a *Audio) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ready {
		return
	}
	speaker.Clear()
	speaker.Close()
	a.ready = false
}

// Tick implements motion.Listener.
func (a *Audio) Tick() {
	a.play(newTone(sampleRate, 1400, 18*time.Millisecond, 0.12))
}

// Complete implements motion.Listener. Rarer entries get a higher chime.
func (a *Audio) Complete(winner model.Entry) {
	base := chimeBase(winner.Rarity)
	a.play(beep.Seq(
		newTone(sampleRate, base, 120*time.Millisecond, 0.2),
		newTone(sampleRate, base*1.5, 260*time.Millisecond, 0.2),
	))
}

func (a *Audio) play(s beep.Streamer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ready {
		return
	}
	speaker.Lock()
	a.mixer.Add(s)
	speaker.Unlock()
}

func chimeBase(r model.Rarity) float64 {
	switch r {
	case model.RarityLegendary:
		return 880
	case model.RarityEpic:
		return 784
	case model.RarityRare:
		return 659
	case model.RarityUncommon:
		return 587
	default:
		return 523
	}
}

// tone is a sine burst with an exponential fade.
type tone struct {
	sr     beep.SampleRate
	freq   float64
	gain   float64
	pos    int
	length int
}

func newTone(sr beep.SampleRate, freq float64, d time.Duration, gain float64) *tone {
	return &tone{sr: sr, freq: freq, gain: gain, length: sr.N(d)}
}

func (t *tone) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if t.pos >= t.length {
			return i, i > 0
		}
		sec := float64(t.pos) / float64(t.sr)
		env := math.Exp(-5 * float64(t.pos) / float64(t.length))
		v := t.gain * env * math.Sin(2*math.Pi*t.freq*sec)
		samples[i][0] = v
		samples[i][1] = v
		t.pos++
	}
	return len(samples), true
}

func (t *tone) Err() error { return nil }
