// Package player maintains the seek/playback state for the loaded media:
// current time, duration, native frame rate, and the play state. Playback
// advances in real time from wall-clock ticks rather than frame-locked
// stepping; frame identity is resolved downstream by the media source.
package player

import "math"

// Mode is the playback mode.
type Mode int

const (
	NotPlaying Mode = iota
	Playing
	// PlayingUntil plays up to a deadline in media seconds, then stops.
	PlayingUntil
)

func (m Mode) String() string {
	switch m {
	case Playing:
		return "playing"
	case PlayingUntil:
		return "playing_until"
	default:
		return "not_playing"
	}
}

// Player is the playback engine. It is a plain state machine; callers are
// responsible for serialising access.
type Player struct {
	currentTime float64
	duration    float64
	nativeFPS   float64
	mode        Mode
	until       float64
}

// New returns a stopped player with a 30 fps default rate.
func New() *Player {
	return &Player{nativeFPS: 30}
}

// SetMedia resets the player for newly loaded media.
func (p *Player) SetMedia(nativeFPS, duration float64) {
	if nativeFPS <= 0 {
		nativeFPS = 30
	}
	if duration < 0 {
		duration = 0
	}
	p.nativeFPS = nativeFPS
	p.duration = duration
	p.currentTime = 0
	p.mode = NotPlaying
	p.until = 0
}

func (p *Player) CurrentTime() float64 { return p.currentTime }
func (p *Player) Duration() float64    { return p.duration }
func (p *Player) NativeFPS() float64   { return p.nativeFPS }
func (p *Player) Mode() Mode           { return p.mode }

// IsPlaying reports whether playback is advancing.
func (p *Player) IsPlaying() bool {
	return p.mode == Playing || p.mode == PlayingUntil
}

// PausePlay toggles playback: stopped becomes playing, any playing mode
// becomes stopped.
func (p *Player) PausePlay() {
	if p.IsPlaying() {
		p.mode = NotPlaying
	} else {
		p.mode = Playing
	}
}

// PlayUntil seeks to start and plays until the deadline.
func (p *Player) PlayUntil(start, deadline float64) {
	p.currentTime = start
	p.mode = PlayingUntil
	p.until = deadline
}

// SetTime seeks to t, clamped into [0, duration].
func (p *Player) SetTime(t float64) {
	p.currentTime = math.Min(p.duration, math.Max(0, t))
}

// PrevFrame steps back one native frame. No clamping happens here; the media
// source and the slider clamp on consumption.
func (p *Player) PrevFrame() {
	p.currentTime -= 1 / p.nativeFPS
}

// NextFrame steps forward one native frame.
func (p *Player) NextFrame() {
	p.currentTime += 1 / p.nativeFPS
}

// FrameNumber returns the native frame index for the current time.
func (p *Player) FrameNumber() int {
	return int(p.currentTime * p.nativeFPS)
}

// SetFrameNumber seeks to native frame n, clamped into the media's extent.
func (p *Player) SetFrameNumber(n int) {
	p.SetTime(float64(n) / p.nativeFPS)
}

// Tick advances playback by the elapsed wall-clock seconds. It returns true
// when the player was playing, meaning the caller should refresh the visible
// frame and schedule another tick. Playback stops at the first tick past a
// play-until deadline and at the end of the media.
func (p *Player) Tick(elapsed float64) bool {
	if !p.IsPlaying() {
		return false
	}
	p.currentTime += elapsed
	if p.mode == PlayingUntil && p.currentTime > p.until {
		p.mode = NotPlaying
	}
	if p.currentTime >= p.duration {
		p.mode = NotPlaying
	}
	return true
}
