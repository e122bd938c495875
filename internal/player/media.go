package player

// MediaElement is the host media primitive the controller drives. It mirrors
// the command surface of an HTML video element or a native player view: the
// controller issues commands through this interface and the host feeds the
// primitive's events back through Controller.HandleMediaEvent.
//
// Implementations must not call back into the controller from inside a
// command; events are the only channel back.
type MediaElement interface {
	Play()
	Pause()
	Seek(seconds float64)
	SetSource(url string)
	SetVolume(volume float64)
	SetMuted(muted bool)
	SetRate(rate float64)
	RequestFullscreen(enter bool)
	RequestPictureInPicture(enter bool)
}

// MediaEventType identifies a native media event.
type MediaEventType string

const (
	EventLoadedMetadata   MediaEventType = "loadedmetadata"
	EventTimeUpdate       MediaEventType = "timeupdate"
	EventPlay             MediaEventType = "play"
	EventPause            MediaEventType = "pause"
	EventEnded            MediaEventType = "ended"
	EventVolumeChange     MediaEventType = "volumechange"
	EventProgress         MediaEventType = "progress"
	EventWaiting          MediaEventType = "waiting"
	EventCanPlay          MediaEventType = "canplay"
	EventError            MediaEventType = "error"
	EventFullscreenChange MediaEventType = "fullscreenchange"
	EventPiPEnter         MediaEventType = "pipenter"
	EventPiPLeave         MediaEventType = "pipleave"
)

// MediaEvent is a normalized native media event. Only the fields relevant to
// the event type are populated; Time carries the primitive's current
// position for every event that has one.
type MediaEvent struct {
	Type        MediaEventType
	Time        float64
	Duration    float64
	BufferedEnd float64
	Volume      float64
	Muted       bool
	Fullscreen  bool
	Err         ErrorInfo
}
