package mpegts

import "github.com/ThibaultBee/streampack/internal/media"

const tsPacketSize = 188

// SDT (Service Description Table), ETSI EN 300 468 §5.2.3 — mediacommon's
// mpegts.Writer only produces PAT/PMT, so this table is hand-rolled here.
const (
	sdtTableID              byte = 0x42 // actual_transport_stream
	sdtServiceDescriptorTag byte = 0x48
	serviceTypeDigitalTV    byte = 0x01
)

// buildSDTSection builds one SDT section (actual transport stream, single
// service) per spec §4.3.2.
func buildSDTSection(svc media.TSServiceDescriptor) []byte {
	descriptor := buildServiceDescriptor(svc)

	// service_id, reserved/EIT flags, running_status/free_CA, loop_length
	serviceLoop := make([]byte, 0, 5+len(descriptor))
	serviceLoop = append(serviceLoop, byte(svc.ServiceID>>8), byte(svc.ServiceID))
	serviceLoop = append(serviceLoop, 0xFC) // reserved(6)=111111, EIT_schedule=0, EIT_present_following=0
	loopLen := uint16(len(descriptor))
	serviceLoop = append(serviceLoop, 0x80|byte(loopLen>>8), byte(loopLen)) // running_status=100 (running), free_CA=0
	serviceLoop = append(serviceLoop, descriptor...)

	// section body after section_length: TSID, reserved/version/current_next,
	// section_number, last_section_number, original_network_id, reserved_future_use
	body := make([]byte, 0, 8+len(serviceLoop))
	body = append(body, byte(svc.TransportStreamID>>8), byte(svc.TransportStreamID))
	body = append(body, 0xC1) // reserved(2)=11, version_number=0, current_next_indicator=1
	body = append(body, 0x00, 0x00) // section_number, last_section_number
	body = append(body, byte(svc.OriginalNetworkID>>8), byte(svc.OriginalNetworkID))
	body = append(body, 0xFF) // reserved_future_use
	body = append(body, serviceLoop...)

	sectionLen := uint16(len(body) + 4) // + CRC32
	section := make([]byte, 0, 3+len(body)+4)
	section = append(section, sdtTableID)
	section = append(section, 0xF0|byte(sectionLen>>8), byte(sectionLen)) // syntax=1, reserved=11
	section = append(section, body...)

	crc := crc32MPEG2(section)
	section = append(section, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
	return section
}

func buildServiceDescriptor(svc media.TSServiceDescriptor) []byte {
	provider := []byte(svc.ProviderName)
	name := []byte(svc.ServiceName)

	d := make([]byte, 0, 3+len(provider)+len(name))
	d = append(d, serviceTypeDigitalTV)
	d = append(d, byte(len(provider)))
	d = append(d, provider...)
	d = append(d, byte(len(name)))
	d = append(d, name...)

	out := make([]byte, 0, 2+len(d))
	out = append(out, sdtServiceDescriptorTag, byte(len(d)))
	out = append(out, d...)
	return out
}

// packetizeSection wraps a PSI section into 188-byte MPEG-TS packets,
// prefixing the pointer_field required when a new section starts a packet
// and advancing cc (mod-16 continuity counter) for every packet emitted
// (testable property 6).
func packetizeSection(pid uint16, section []byte, cc *byte) [][]byte {
	data := append([]byte{0x00}, section...) // pointer_field = 0
	var packets [][]byte

	for len(data) > 0 {
		pkt := make([]byte, tsPacketSize)
		pkt[0] = 0x47
		pusi := byte(0)
		if len(packets) == 0 {
			pusi = 0x40
		}
		pkt[1] = pusi | byte(pid>>8&0x1F)
		pkt[2] = byte(pid)
		pkt[3] = 0x10 | (*cc & 0x0F)
		*cc = (*cc + 1) & 0x0F

		n := copy(pkt[4:], data)
		for i := 4 + n; i < tsPacketSize; i++ {
			pkt[i] = 0xFF
		}
		data = data[n:]
		packets = append(packets, pkt)
	}
	return packets
}

// crc32MPEG2Table is the standard (non-reflected) CRC-32/MPEG-2 table used
// by every MPEG-TS PSI section (PAT, PMT, SDT): polynomial 0x04C11DB7, no
// input/output reflection, no final XOR. Go's stdlib hash/crc32 only
// implements the reflected IEEE variant, so this is hand-rolled.
var crc32MPEG2Table = func() [256]uint32 {
	var table [256]uint32
	const poly = 0x04C11DB7
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for b := 0; b < 8; b++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()

func crc32MPEG2(data []byte) uint32 {
	crc := uint32(0xFFFFFFFF)
	for _, b := range data {
		crc = (crc << 8) ^ crc32MPEG2Table[byte(crc>>24)^b]
	}
	return crc
}
