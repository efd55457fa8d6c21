package media

import "sync"

// H.264 NAL unit types (ITU-T H.264 table 7-1).
const (
	H264NALTypeSlice = 1 // non-IDR slice
	H264NALTypeIDR   = 5 // IDR slice (keyframe)
	H264NALTypeSEI   = 6
	H264NALTypeSPS   = 7
	H264NALTypePPS   = 8
	H264NALTypeAUD   = 9
)

// H.265 NAL unit types (ITU-T H.265 table 7-1).
const (
	H265NALTypeBLAWLP   = 16 // first keyframe type ...
	H265NALTypeCRANUT   = 21 // ... through the last keyframe type
	H265NALTypeVPS      = 32
	H265NALTypeSPS      = 33
	H265NALTypePPS      = 34
	H265NALTypeAUD      = 35
)

// VideoParamHelper extracts and caches VPS/SPS/PPS from an Annex-B stream
// and prepends them to keyframes so a decoder joining mid-stream (or a
// muxer that re-emits headers, e.g. TS PAT/PMT cadence) always has a
// complete parameter set attached to the next IDR. Ported from the
// teacher's internal/relay video-parameter-set tracker.
type VideoParamHelper struct {
	mu sync.RWMutex

	h264SPS, h264PPS []byte
	h265VPS, h265SPS, h265PPS []byte
}

// NewVideoParamHelper returns an empty helper.
func NewVideoParamHelper() *VideoParamHelper {
	return &VideoParamHelper{}
}

// ExtractFromNALUs scans nalus for parameter sets and caches any new ones.
// Returns true if anything changed.
func (h *VideoParamHelper) ExtractFromNALUs(nalus [][]byte, isH265 bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	changed := false
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		if isH265 {
			switch (nalu[0] >> 1) & 0x3F {
			case H265NALTypeVPS:
				if !bytesEqual(h.h265VPS, nalu) {
					h.h265VPS, changed = cloneBytes(nalu), true
				}
			case H265NALTypeSPS:
				if !bytesEqual(h.h265SPS, nalu) {
					h.h265SPS, changed = cloneBytes(nalu), true
				}
			case H265NALTypePPS:
				if !bytesEqual(h.h265PPS, nalu) {
					h.h265PPS, changed = cloneBytes(nalu), true
				}
			}
		} else {
			switch nalu[0] & 0x1F {
			case H264NALTypeSPS:
				if !bytesEqual(h.h264SPS, nalu) {
					h.h264SPS, changed = cloneBytes(nalu), true
				}
			case H264NALTypePPS:
				if !bytesEqual(h.h264PPS, nalu) {
					h.h264PPS, changed = cloneBytes(nalu), true
				}
			}
		}
	}
	return changed
}

// H264Params returns copies of the cached SPS/PPS, or nil if not yet seen.
func (h *VideoParamHelper) H264Params() (sps, pps []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return cloneBytes(h.h264SPS), cloneBytes(h.h264PPS)
}

// H265Params returns copies of the cached VPS/SPS/PPS, or nil if not yet seen.
func (h *VideoParamHelper) H265Params() (vps, sps, pps []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return cloneBytes(h.h265VPS), cloneBytes(h.h265SPS), cloneBytes(h.h265PPS)
}

// IsKeyframe reports whether any NAL unit in nalus is an IDR/CRA/BLA slice.
func IsKeyframe(nalus [][]byte, isH265 bool) bool {
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		if isH265 {
			t := (nalu[0] >> 1) & 0x3F
			if t >= H265NALTypeBLAWLP && t <= H265NALTypeCRANUT {
				return true
			}
		} else if nalu[0]&0x1F == H264NALTypeIDR {
			return true
		}
	}
	return false
}

// ParseAnnexB splits Annex-B formatted data (3- or 4-byte start codes)
// into individual NAL units, exclusive of start codes.
func ParseAnnexB(data []byte) [][]byte {
	if len(data) < 4 {
		return nil
	}
	var nalus [][]byte
	start := -1
	for i := 0; i < len(data)-2; i++ {
		if data[i] != 0x00 || data[i+1] != 0x00 {
			continue
		}
		scLen := 0
		if data[i+2] == 0x01 {
			scLen = 3
		} else if i+3 < len(data) && data[i+2] == 0x00 && data[i+3] == 0x01 {
			scLen = 4
		}
		if scLen == 0 {
			continue
		}
		if start >= 0 {
			nalus = append(nalus, data[start:i])
		}
		start = i + scLen
		i += scLen - 1
	}
	if start >= 0 && start < len(data) {
		nalus = append(nalus, data[start:])
	}
	return nalus
}

// BuildAnnexB joins NAL units with 4-byte Annex-B start codes.
func BuildAnnexB(nalus [][]byte) []byte {
	size := 0
	for _, n := range nalus {
		size += 4 + len(n)
	}
	out := make([]byte, 0, size)
	for _, n := range nalus {
		out = append(out, 0x00, 0x00, 0x00, 0x01)
		out = append(out, n...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
