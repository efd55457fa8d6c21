package encoder

import (
	"github.com/ThibaultBee/streampack/internal/media"
)

// Codec is the external platform-encoder collaborator an Encoder drives.
// A real implementation wraps hardware/software compression (MediaCodec,
// VideoToolbox, libx264 …); none is provided here, matching spec §1's
// "only the encoder contract" scoping.
type Codec interface {
	ConfigureAudio(cfg media.AudioCodecConfig) error
	ConfigureVideo(cfg media.VideoCodecConfig) error

	// Encode compresses one raw frame, returning zero or more compressed
	// frames (a codec may buffer reference frames before it can emit
	// output). It never returns the codec-config frame — that comes from
	// ConfigFrame, emitted by the Encoder exactly once per session.
	Encode(raw media.Frame) ([]media.Frame, error)

	// ConfigFrame returns the codec-specific config payload (e.g. an AVC
	// SPS/PPS pair, AAC AudioSpecificConfig) once the codec has produced
	// one, and whether it is ready yet.
	ConfigFrame() (media.Frame, bool)

	// SetBitrate applies a live bitrate change. Video only; audio codecs
	// return an error (spec §4.2 "audio bitrate is immutable").
	SetBitrate(bps int) error

	RequestKeyFrame()

	// Reset clears internal codec state (buffered references, rate
	// control) while keeping the bound config.
	Reset() error

	Release() error
}

// PassthroughCodec is a Codec that performs no compression: it forwards
// the raw payload unchanged and synthesizes a small fixed config frame.
// It stands in for the out-of-scope real encoder so the Encoder state
// machine, the muxers and the pipeline can be exercised end to end.
type PassthroughCodec struct {
	isVideo     bool
	configFrame media.Frame
	hasConfig   bool
	bitrate     int
}

// NewPassthroughAudioCodec returns an audio Codec that
// passes PCM frames through unchanged and emits a placeholder
// AudioSpecificConfig-shaped config frame on the first Encode call.
func NewPassthroughAudioCodec() *PassthroughCodec {
	return &PassthroughCodec{}
}

// NewPassthroughVideoCodec returns a Codec for video passthrough.
func NewPassthroughVideoCodec() *PassthroughCodec {
	return &PassthroughCodec{isVideo: true}
}

func (c *PassthroughCodec) ConfigureAudio(cfg media.AudioCodecConfig) error {
	c.hasConfig = false
	c.configFrame = media.Frame{
		Payload:     synthesizeAudioSpecificConfig(cfg),
		CodecConfig: true,
	}
	return nil
}

func (c *PassthroughCodec) ConfigureVideo(cfg media.VideoCodecConfig) error {
	c.hasConfig = false
	c.configFrame = media.Frame{
		Payload:     synthesizeParameterSets(cfg),
		CodecConfig: true,
	}
	return nil
}

func (c *PassthroughCodec) Encode(raw media.Frame) ([]media.Frame, error) {
	c.hasConfig = true
	out := raw
	out.CodecConfig = false
	return []media.Frame{out}, nil
}

func (c *PassthroughCodec) ConfigFrame() (media.Frame, bool) {
	return c.configFrame, c.hasConfig
}

func (c *PassthroughCodec) SetBitrate(bps int) error {
	if !c.isVideo {
		return errAudioBitrateImmutable
	}
	c.bitrate = bps
	return nil
}

func (c *PassthroughCodec) RequestKeyFrame() {}

func (c *PassthroughCodec) Reset() error {
	c.hasConfig = false
	return nil
}

func (c *PassthroughCodec) Release() error { return nil }

// synthesizeAudioSpecificConfig builds a minimal 2-byte AAC
// AudioSpecificConfig (object type 2 = AAC-LC) for the given sample rate
// and channel count, following ISO/IEC 14496-3 table 1.19.
func synthesizeAudioSpecificConfig(cfg media.AudioCodecConfig) []byte {
	sri := sampleRateIndex(cfg.SampleRate)
	chans := uint8(cfg.Channels.ChannelCount())
	objectType := uint8(2)
	b0 := (objectType << 3) | (sri >> 1)
	b1 := (sri << 7) | (chans << 3)
	return []byte{b0, b1}
}

func sampleRateIndex(rate int) uint8 {
	rates := []int{96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350}
	for i, r := range rates {
		if r == rate {
			return uint8(i)
		}
	}
	return 4 // default to 44100
}

// synthesizeParameterSets returns a placeholder Annex-B SPS/PPS pair. A
// real encoder derives these from its actual bitstream; this passthrough
// only needs something non-empty and stable so the muxer's "prepend
// params to first keyframe" logic and "emit config frame once" invariant
// (spec testable property 7) have real bytes to operate on.
func synthesizeParameterSets(cfg media.VideoCodecConfig) []byte {
	sps := []byte{0x00, 0x00, 0x00, 0x01, 0x67, byte(cfg.Width >> 8), byte(cfg.Width)}
	pps := []byte{0x00, 0x00, 0x00, 0x01, 0x68, 0xCE}
	return append(sps, pps...)
}

var errAudioBitrateImmutable = codecError("audio bitrate is immutable")

type codecError string

func (e codecError) Error() string { return string(e) }
