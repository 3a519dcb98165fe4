package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
	"github.com/rs/zerolog"
)

// SampleRate is what the speaker runs at; cue files are resampled to it.
const SampleRate = beep.SampleRate(44100)

// noteLength is how long each note of a built-in cue lasts.
const noteLength = 120 * time.Millisecond

// tones are the built-in cues, played when no sound file overrides them.
var tones = map[string][]float64{
	"launch":  {523.25, 659.25},
	"success": {523.25, 659.25, 783.99},
	"error":   {392.00, 261.63},
	"select":  {880.00},
}

// ErrUnknownCue is returned for a cue with neither a file nor a built-in tone
var ErrUnknownCue = errors.New("unknown sound cue")

// Player plays short cues without blocking the caller.
type Player struct {
	// Enabled turns playback on; a disabled player does nothing.
	Enabled bool
	// Dir may hold <cue>.wav files that replace the built-in tones.
	Dir string
	// Volume is the gain in dB applied to every cue.
	Volume float64
	Logger *zerolog.Logger

	speakerOnce  sync.Once
	speakerReady bool
	pending      sync.WaitGroup
}

// New returns a player for the given settings
func New(enabled bool, dir string, logger *zerolog.Logger) *Player {
	return &Player{Enabled: enabled, Dir: dir, Logger: logger}
}

func (p *Player) debug() *zerolog.Event {
	if p.Logger == nil {
		return nil
	}
	return p.Logger.Debug()
}

func (p *Player) ensureSpeakerInitialized() bool {
	p.speakerOnce.Do(func() {
		if err := speaker.Init(SampleRate, SampleRate.N(time.Second/10)); err != nil {
			p.debug().Err(err).Msg("Audio unavailable")
			return
		}
		p.speakerReady = true
	})
	return p.speakerReady
}

// Play starts a cue and returns immediately
func (p *Player) Play(cue string) {
	if p == nil || !p.Enabled {
		return
	}

	streamer, err := p.Stream(cue)
	if err != nil {
		p.debug().Err(err).Str("cue", cue).Msg("Couldn't play sound")
		return
	}
	if !p.ensureSpeakerInitialized() {
		return
	}

	volume := &effects.Volume{
		Streamer: streamer,
		Base:     2,
		Volume:   p.Volume,
		Silent:   false,
	}

	p.pending.Add(1)
	speaker.Play(beep.Seq(volume, beep.Callback(func() {
		p.pending.Done()
	})))
	p.debug().Str("cue", cue).Msg("Playing sound")
}

// Wait blocks until queued cues finish or timeout passes, so a cue isn't cut
// off by the program exiting.
func (p *Player) Wait(timeout time.Duration) {
	if p == nil || !p.speakerReady {
		return
	}
	done := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

// Stream returns the cue as a finite streamer at SampleRate. A file in Dir
// wins over the built-in tone.
func (p *Player) Stream(cue string) (beep.Streamer, error) {
	if p.Dir != "" {
		path := filepath.Join(p.Dir, cue+".wav")
		if _, err := os.Stat(path); err == nil {
			return DecodeFile(path)
		}
	}

	freqs, ok := tones[cue]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCue, cue)
	}
	return Tone(SampleRate, noteLength, freqs...)
}

// Tone builds a sequence of sine notes of equal length
func Tone(sr beep.SampleRate, length time.Duration, freqs ...float64) (beep.Streamer, error) {
	notes := make([]beep.Streamer, 0, len(freqs))
	for _, freq := range freqs {
		sine, err := generators.SineTone(sr, freq)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %.0f Hz tone: %w", freq, err)
		}
		notes = append(notes, beep.Take(sr.N(length), sine))
	}
	return beep.Seq(notes...), nil
}

// DecodeFile reads a WAV file fully into memory and resamples it to SampleRate
func DecodeFile(path string) (beep.Streamer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound: %w", err)
	}

	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sound file couldn't be decoded: %w", err)
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sound: %w", err)
	}

	var s beep.Streamer = buffer.Streamer(0, buffer.Len())
	if format.SampleRate != SampleRate {
		s = beep.Resample(4, format.SampleRate, SampleRate, s)
	}
	return s, nil
}
