package player

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Level is one quality variant of an adaptive source.
type Level struct {
	ID      string
	Height  int
	Bitrate int64
}

// Label returns the height-based quality label for the level.
func (l Level) Label() string {
	return fmt.Sprintf("%dp", l.Height)
}

// EngineEventType identifies an event from the adaptive bitrate engine.
type EngineEventType string

const (
	EngineManifestParsed EngineEventType = "manifestparsed"
	EngineFatalError     EngineEventType = "fatalerror"
	EngineLevelSwitched  EngineEventType = "levelswitched"
)

// EngineEvent is an event emitted by the adaptive bitrate engine through
// the sink passed to its factory.
type EngineEvent struct {
	Type   EngineEventType
	Levels []Level
	Level  int
	Err    ErrorInfo
}

// StreamEngine is the externally provided adaptive bitrate engine contract.
// The adapter owns exactly one live instance at a time and destroys it
// before attaching another.
type StreamEngine interface {
	// SetLevel selects a variant by index; -1 restores automatic bitrate
	// adaptation.
	SetLevel(index int)
	Destroy()
}

// EngineFactory attaches an engine to a manifest source. Events flow back
// through sink; the factory must not call sink synchronously.
type EngineFactory func(source string, sink func(EngineEvent)) (StreamEngine, error)

const preferredHeight = 720

// streamAdapter wraps the adaptive bitrate engine and translates its events
// into controller transitions. For plain file sources it passes the url
// straight to the media element and goes inert.
type streamAdapter struct {
	c       *Controller
	factory EngineFactory
	engine  StreamEngine
	levels  []Level
}

func newStreamAdapter(c *Controller, factory EngineFactory, declared []Level) *streamAdapter {
	return &streamAdapter{c: c, factory: factory, levels: declared}
}

func isManifestSource(src string) bool {
	trimmed := src
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.HasSuffix(trimmed, ".m3u8") || strings.HasSuffix(trimmed, ".mpd")
}

// attach loads a source, tearing down any previous engine instance first so
// decoders are never leaked. Caller must hold the controller lock.
func (a *streamAdapter) attach(src string) error {
	a.destroy()
	if !isManifestSource(src) || a.factory == nil {
		a.c.media.SetSource(src)
		return nil
	}
	engine, err := a.factory(src, a.handleEngineEvent)
	if err != nil {
		return fmt.Errorf("attach stream engine: %w", err)
	}
	a.engine = engine
	return nil
}

// destroy releases the engine instance. Caller must hold the controller
// lock.
func (a *streamAdapter) destroy() {
	if a.engine != nil {
		a.engine.Destroy()
		a.engine = nil
	}
}

func (a *streamAdapter) handleEngineEvent(ev EngineEvent) {
	c := a.c
	c.locked(func() {
		switch ev.Type {
		case EngineManifestParsed:
			a.levels = ev.Levels
			c.state.IsLoading = false
			if idx := levelIndexByHeight(a.levels, preferredHeight); idx >= 0 {
				a.engineSetLevel(idx)
				c.state.Quality = a.levels[idx].Label()
			} else {
				c.state.Quality = "auto"
			}
			if c.opts.AutoPlay {
				c.media.Play()
			}
			c.emitState()

		case EngineFatalError:
			// Terminal for this load attempt; recovery is the caller's
			// job via RetryLoad or reconstruction.
			errInfo := ev.Err
			if errInfo.isZero() {
				errInfo = ErrorInfo{Code: "stream_error", Detail: "adaptive stream failed"}
			}
			c.state.Err = &errInfo
			c.state.IsLoading = false
			c.state.IsPlaying = false
			slog.Error("player: fatal stream error", "code", errInfo.Code, "detail", errInfo.Detail)
			c.emitState()

		case EngineLevelSwitched:
			slog.Debug("player: engine switched level", "level", ev.Level)
		}
	})
}

func (a *streamAdapter) engineSetLevel(idx int) {
	if a.engine != nil {
		a.engine.SetLevel(idx)
	}
}

// setQuality resolves a requested label against the known levels. A miss is
// a logged no-op, never an error. Caller must hold the controller lock.
func (a *streamAdapter) setQuality(label string) {
	c := a.c
	if label == "auto" {
		a.engineSetLevel(-1)
		c.state.Quality = "auto"
		c.emitState()
		return
	}
	height, err := parseHeightLabel(label)
	if err != nil {
		slog.Warn("player: unknown quality label", "label", label)
		return
	}
	idx := levelIndexByHeight(a.levels, height)
	if idx < 0 {
		slog.Warn("player: no level matches requested quality", "label", label)
		return
	}
	a.engineSetLevel(idx)
	c.state.Quality = a.levels[idx].Label()
	c.emitState()
}

func parseHeightLabel(label string) (int, error) {
	s := strings.TrimSuffix(label, "p")
	height, err := strconv.Atoi(s)
	if err != nil || height <= 0 {
		return 0, fmt.Errorf("invalid quality label %q", label)
	}
	return height, nil
}

func levelIndexByHeight(levels []Level, height int) int {
	for i, l := range levels {
		if l.Height == height {
			return i
		}
	}
	return -1
}
