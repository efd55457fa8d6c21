// Package media defines the data model shared by every component of the
// pipeline: frames, packets, codec configs, media descriptors and the
// small enums (codec mime-types, containers, sink kinds) that the rest of
// the tree switches on. It is the generalization of the teacher's
// internal/codec registry (video/audio codec constants, MPEG-TS stream
// type table) to this domain's narrower codec set.
package media

import "strings"

// VideoCodec identifies a video compression format.
type VideoCodec string

const (
	VideoAVC  VideoCodec = "avc"  // H.264/AVC
	VideoHEVC VideoCodec = "hevc" // H.265/HEVC
	VideoVP9  VideoCodec = "vp9"
	VideoAV1  VideoCodec = "av1"
)

func (v VideoCodec) String() string { return string(v) }

// AudioCodec identifies an audio compression format.
type AudioCodec string

const (
	AudioAAC  AudioCodec = "aac"
	AudioOpus AudioCodec = "opus"
)

func (a AudioCodec) String() string { return string(a) }

// MPEG-TS stream_type values (ISO/IEC 13818-1 table 2-34, plus the
// registration-descriptor-qualified private stream type 0x06 for Opus).
const (
	StreamTypeAVC  uint8 = 0x1B
	StreamTypeHEVC uint8 = 0x24
	StreamTypeAAC  uint8 = 0x0F
	StreamTypeOpus uint8 = 0x06
)

// MPEGTSStreamType returns the stream_type byte for a video codec, or 0 if
// the codec has no MPEG-TS mapping (VP9/AV1 — FLV/fMP4 only in this repo).
func (v VideoCodec) MPEGTSStreamType() uint8 {
	switch v {
	case VideoAVC:
		return StreamTypeAVC
	case VideoHEVC:
		return StreamTypeHEVC
	default:
		return 0
	}
}

// MPEGTSStreamType returns the stream_type byte for an audio codec.
func (a AudioCodec) MPEGTSStreamType() uint8 {
	switch a {
	case AudioAAC:
		return StreamTypeAAC
	case AudioOpus:
		return StreamTypeOpus
	default:
		return 0
	}
}

// FLVCodecID returns the FLV AudioTagHeader/VideoTagHeader codec id, used
// by internal/mux/flv when writing tag headers.
func (v VideoCodec) FLVCodecID() (uint8, bool) {
	switch v {
	case VideoAVC:
		return 7, true // CodecID 7 = AVC
	case VideoHEVC:
		return 12, true // extended codec "hvc1", routed via the extended tag header
	default:
		return 0, false
	}
}

func (a AudioCodec) FLVCodecID() (uint8, bool) {
	switch a {
	case AudioAAC:
		return 10, true // SoundFormat 10 = AAC
	default:
		return 0, false
	}
}

// Container is a muxed container format.
type Container string

const (
	ContainerMP4  Container = "mp4"
	ContainerTS   Container = "ts"
	ContainerFLV  Container = "flv"
	Container3GP  Container = "3gp"
	ContainerWebM Container = "webm"
	ContainerOgg  Container = "ogg"
)

func (c Container) String() string { return string(c) }

// IsPlatformMuxed reports whether c is handled by the platform-muxer stub
// rather than one of this repo's two bit-exact muxers.
func (c Container) IsPlatformMuxed() bool {
	switch c {
	case ContainerMP4, ContainerWebM, Container3GP, ContainerOgg:
		return true
	default:
		return false
	}
}

// ContainerFromFileExtension maps a file: path extension to a Container, as
// required by the media-descriptor URI rules.
func ContainerFromFileExtension(ext string) (Container, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mp4":
		return ContainerMP4, true
	case "ts":
		return ContainerTS, true
	case "flv":
		return ContainerFLV, true
	case "3gp", "3gpp":
		return Container3GP, true
	case "webm":
		return ContainerWebM, true
	case "ogg":
		return ContainerOgg, true
	default:
		return "", false
	}
}

// ContainerFromMIME maps a content: URI's MIME type to a Container.
func ContainerFromMIME(mime string) (Container, bool) {
	switch strings.ToLower(mime) {
	case "video/mp4":
		return ContainerMP4, true
	case "video/x-flv":
		return ContainerFLV, true
	case "video/mp2ts":
		return ContainerTS, true
	case "video/webm":
		return ContainerWebM, true
	case "audio/ogg", "video/ogg":
		return ContainerOgg, true
	case "video/3gpp":
		return Container3GP, true
	default:
		return "", false
	}
}

// SinkKind is the transport a sink writes to.
type SinkKind string

const (
	SinkFile    SinkKind = "file"
	SinkContent SinkKind = "content"
	SinkSRT     SinkKind = "srt"
	SinkRTMP    SinkKind = "rtmp"
)

func (s SinkKind) String() string { return string(s) }

// DynamicRange is a video codec config's transfer characteristic.
type DynamicRange string

const (
	RangeSDR   DynamicRange = "sdr"
	RangeHLG   DynamicRange = "hlg"
	RangeHDR10 DynamicRange = "hdr10"
)

// ChannelLayout is an audio codec config's channel mask.
type ChannelLayout string

const (
	ChannelMono   ChannelLayout = "mono"
	ChannelStereo ChannelLayout = "stereo"
)

// ChannelCount returns the PCM channel count for the layout.
func (c ChannelLayout) ChannelCount() int {
	if c == ChannelMono {
		return 1
	}
	return 2
}

// SampleFormat is an audio codec config's PCM sample representation.
type SampleFormat string

const (
	SampleFormatU8      SampleFormat = "u8"
	SampleFormatS16     SampleFormat = "s16"
	SampleFormatFloat32 SampleFormat = "float32"
)

// BytesPerSample returns the PCM sample width in bytes.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleFormatU8:
		return 1
	case SampleFormatS16:
		return 2
	case SampleFormatFloat32:
		return 4
	default:
		return 0
	}
}
