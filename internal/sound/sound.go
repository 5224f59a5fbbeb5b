package sound

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

type Cue int

const (
	CueHit Cue = iota
	CueMiss
	CueGameOver
)

// Player mixes short synthesized cues into a single speaker stream.
type Player struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

func NewPlayer() *Player {
	return &Player{mixer: &beep.Mixer{}}
}

// Init opens the audio device. A failure leaves the player silent.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(p.mixer)
	p.initialized = true
	return nil
}

func (p *Player) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// Play queues a cue. It is a no-op until Init succeeds.
func (p *Player) Play(c Cue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Lock()
	p.mixer.Add(Stream(c))
	speaker.Unlock()
}

func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	p.initialized = false
}

// Stream returns a finite streamer for the cue.
func Stream(c Cue) beep.Streamer {
	switch c {
	case CueHit:
		return tone(sampleRate, 880, 80*time.Millisecond)
	case CueMiss:
		return tone(sampleRate, 196, 150*time.Millisecond)
	default:
		return beep.Seq(
			tone(sampleRate, 523, 120*time.Millisecond),
			tone(sampleRate, 392, 120*time.Millisecond),
			tone(sampleRate, 262, 250*time.Millisecond),
		)
	}
}

// Duration is how long the cue plays.
func Duration(c Cue) time.Duration {
	switch c {
	case CueHit:
		return 80 * time.Millisecond
	case CueMiss:
		return 150 * time.Millisecond
	default:
		return 490 * time.Millisecond
	}
}

// tone is a sine wave with a short linear attack and release.
func tone(sr beep.SampleRate, freq float64, d time.Duration) beep.Streamer {
	total := sr.N(d)
	ramp := sr.N(5 * time.Millisecond)
	pos := 0
	gen := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			t := float64(pos) / float64(sr)
			env := 1.0
			if pos < ramp {
				env = float64(pos) / float64(ramp)
			} else if rem := total - pos; rem < ramp {
				env = float64(rem) / float64(ramp)
			}
			v := 0.25 * env * math.Sin(2*math.Pi*freq*t)
			samples[i][0] = v
			samples[i][1] = v
			pos++
		}
		return len(samples), true
	})
	return beep.Take(total, gen)
}
