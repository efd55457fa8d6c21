package media

// FormatDescriptor carries the descriptive metadata a Frame's producer
// attaches so downstream components don't need a side-channel config
// lookup to interpret the payload (spec §3 "Frame").
type FormatDescriptor struct {
	MimeType string

	// Audio
	SampleRate int
	Channels   ChannelLayout

	// Video
	Width  int
	Height int
}

// Frame is a raw or compressed sample with timing metadata (spec §3).
// Frames are short-lived and produced by sources or encoders; they must
// not be retained past the callback that delivers them without copying
// Payload first.
type Frame struct {
	Payload []byte

	// PTS is the presentation timestamp in microseconds on the source's
	// monotonic clock. Non-negative after normalization.
	PTS int64

	// DTS is the decode timestamp in microseconds. Zero means "same as
	// PTS" — HasDTS distinguishes an explicit zero from "absent".
	DTS    int64
	HasDTS bool

	KeyFrame    bool
	CodecConfig bool // codec-specific data frame, not forwarded as a sample
	EndOfStream bool

	Format *FormatDescriptor
}

// EffectiveDTS returns the frame's decode timestamp, defaulting to PTS
// when the producer did not set one explicitly.
func (f Frame) EffectiveDTS() int64 {
	if f.HasDTS {
		return f.DTS
	}
	return f.PTS
}
