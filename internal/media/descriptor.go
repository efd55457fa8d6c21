package media

import (
	"net/url"
	"path"
	"strings"

	"github.com/ThibaultBee/streampack/internal/streamerrors"
)

// MediaDescriptor is a URI plus its parsed {container, sink-kind} pair
// (spec §3, §6). CustomData carries sink/container-specific parameters
// lifted from the URI's query string — notably MPEG-TS service identity
// (spec §4.6, SPEC_FULL §4 "Dynamic endpoint custom TS services").
type MediaDescriptor struct {
	URI       string
	Container Container
	Sink      SinkKind
	CustomData map[string]string
}

// ParseMediaDescriptor parses uri per the rules in spec §6:
//   - file: paths — container from extension.
//   - content: URIs — container from a "mime" query parameter.
//   - srt://host:port?streamid=...&passphrase=... — SRT sink + TS muxer.
//   - rtmp://host[:port]/app/stream — RTMP sink + FLV muxer.
func ParseMediaDescriptor(uri string) (MediaDescriptor, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return MediaDescriptor{}, streamerrors.New(streamerrors.KindInvalidState, "media", "ParseMediaDescriptor", err)
	}

	d := MediaDescriptor{URI: uri, CustomData: queryToMap(u)}

	switch u.Scheme {
	case "file", "":
		c, ok := ContainerFromFileExtension(path.Ext(u.Path))
		if !ok {
			return MediaDescriptor{}, streamerrors.New(streamerrors.KindUnsupportedContainer, "media", "ParseMediaDescriptor", nil)
		}
		d.Container, d.Sink = c, SinkFile
	case "content":
		c, ok := ContainerFromMIME(u.Query().Get("mime"))
		if !ok {
			return MediaDescriptor{}, streamerrors.New(streamerrors.KindUnsupportedContainer, "media", "ParseMediaDescriptor", nil)
		}
		d.Container, d.Sink = c, SinkContent
	case "srt":
		d.Container, d.Sink = ContainerTS, SinkSRT
	case "rtmp", "rtmps":
		d.Container, d.Sink = ContainerFLV, SinkRTMP
	default:
		return MediaDescriptor{}, streamerrors.New(streamerrors.KindUnsupportedContainer, "media", "ParseMediaDescriptor", nil)
	}

	return d, nil
}

func queryToMap(u *url.URL) map[string]string {
	q := u.Query()
	if len(q) == 0 {
		return nil
	}
	m := make(map[string]string, len(q))
	for k := range q {
		m[k] = q.Get(k)
	}
	return m
}

// TSServiceDescriptor identifies one MPEG-TS service.
type TSServiceDescriptor struct {
	TransportStreamID uint16
	OriginalNetworkID uint16
	ServiceID         uint16
	ServiceName       string
	ProviderName      string
}

// Services parses a "services" custom-data entry (comma-separated
// "tsid:onid:sid:name:provider" tuples) into TS service descriptors. Used
// by internal/endpoint to seed a DynamicEndpoint's default MPEG-TS
// service from descriptor.custom_data (spec §4.6).
func (d MediaDescriptor) Services() []TSServiceDescriptor {
	raw, ok := d.CustomData["services"]
	if !ok || raw == "" {
		return nil
	}
	var out []TSServiceDescriptor
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(entry, ":")
		if len(parts) != 5 {
			continue
		}
		out = append(out, TSServiceDescriptor{
			TransportStreamID: parseUint16(parts[0]),
			OriginalNetworkID: parseUint16(parts[1]),
			ServiceID:         parseUint16(parts[2]),
			ServiceName:       parts[3],
			ProviderName:      parts[4],
		})
	}
	return out
}

func parseUint16(s string) uint16 {
	var v uint16
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		v = v*10 + uint16(r-'0')
	}
	return v
}
