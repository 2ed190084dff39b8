// Package protocol decodes the length-prefixed binary wire format emitted
// by motion-capture devices.
//
// The format is box framing: every record is a u32 little-endian payload
// length, a 4-byte ASCII tag, then the payload, and payloads may themselves
// be a sequence of boxes. A top-level packet is exactly three consecutive
// boxes: a head box, an info box, and either a skeleton definition (skdf)
// or a capture frame (fram). Any other third tag is reported as an unknown
// packet, not an error.
//
// Decoding is pure: no state, no side effects. Structural damage (truncated
// buffers, missing mandatory sub-boxes) surfaces as an error wrapping
// ErrTruncated or ErrMissingField and is fatal to that single packet only.
package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/okian/kata/internal/domain/model"
)

// Box header and payload size constants.
const (
	boxHeaderSize   = 8  // u32 length + 4 tag bytes
	tranPayloadSize = 28 // 7 little-endian float32s: quat xyzw + pos xyz
	boneIDSize      = 2  // u16
	u32Size         = 4
	u64Size         = 8
	u16Size         = 2
)

// PacketType discriminates decoded top-level packets.
type PacketType string

// Packet types.
const (
	PacketSkeleton PacketType = "skeleton"
	PacketFrame    PacketType = "frame"
	PacketUnknown  PacketType = "unknown"
)

// Header carries the metadata found in the head box.
type Header struct {
	Format  string // ftyp payload, e.g. "sony motion format"
	Version int    // vrsn payload, first byte; -1 when absent
}

// Info carries the metadata found in the info box.
type Info struct {
	SenderID    uint64 // ipad payload, raw address bits
	ReceivePort uint16 // rcvp payload
}

// Packet is one decoded top-level packet. Exactly one of Skeleton or Frame
// is populated, according to Type.
type Packet struct {
	Type     PacketType
	Tag      string // third-box tag, useful when Type is PacketUnknown
	Head     Header
	Info     Info
	Skeleton []model.SkeletonBone
	Frame    *model.Frame
}

// readBox parses one box at off and returns its tag, payload, and the
// offset just past it.
func readBox(buf []byte, off int) (string, []byte, int, error) {
	if off+boxHeaderSize > len(buf) {
		return "", nil, 0, fmt.Errorf("%w: box header at offset %d", ErrTruncated, off)
	}
	length := int(binary.LittleEndian.Uint32(buf[off:]))
	tag := string(buf[off+u32Size : off+boxHeaderSize])

	start := off + boxHeaderSize
	end := start + length
	if end > len(buf) {
		return "", nil, 0, fmt.Errorf("%w: payload for tag %q needs %d bytes, have %d",
			ErrTruncated, tag, length, len(buf)-start)
	}
	return tag, buf[start:end], end, nil
}

// eachBox walks the boxes packed in payload, invoking fn per box. Iteration
// stops on the first structural error.
func eachBox(payload []byte, fn func(tag string, data []byte) error) error {
	off := 0
	for off < len(payload) {
		tag, data, next, err := readBox(payload, off)
		if err != nil {
			return err
		}
		if err := fn(tag, data); err != nil {
			return err
		}
		off = next
	}
	return nil
}

// parseTran decodes a 7-float transform payload into a bone sample.
func parseTran(payload []byte) (model.BoneSample, error) {
	if len(payload) < tranPayloadSize {
		return model.BoneSample{}, fmt.Errorf("%w: tran payload is %d bytes", ErrTruncated, len(payload))
	}
	var f [7]float64
	for i := range f {
		bits := binary.LittleEndian.Uint32(payload[i*u32Size:])
		f[i] = float64(math.Float32frombits(bits))
	}
	return model.BoneSample{
		Rotation: model.Quat{f[0], f[1], f[2], f[3]},
		Position: model.Vec3{f[4], f[5], f[6]},
	}, nil
}

// parseHead extracts format metadata from the head payload.
func parseHead(payload []byte) (Header, error) {
	h := Header{Version: -1}
	err := eachBox(payload, func(tag string, data []byte) error {
		switch tag {
		case "ftyp":
			h.Format = string(data)
		case "vrsn":
			if len(data) > 0 {
				h.Version = int(data[0])
			}
		}
		return nil
	})
	return h, err
}

// parseInfo extracts sender metadata from the info payload.
func parseInfo(payload []byte) (Info, error) {
	var info Info
	err := eachBox(payload, func(tag string, data []byte) error {
		switch tag {
		case "ipad":
			if len(data) >= u64Size {
				info.SenderID = binary.LittleEndian.Uint64(data)
			}
		case "rcvp":
			if len(data) >= u16Size {
				info.ReceivePort = binary.LittleEndian.Uint16(data)
			}
		}
		return nil
	})
	return info, err
}

// parseSkeletonBone decodes one bndt payload. Bone id and parent id are
// mandatory; the rest transform is optional.
func parseSkeletonBone(payload []byte) (model.SkeletonBone, error) {
	boneID, parentID := -1, -1
	var rest *model.BoneSample

	err := eachBox(payload, func(tag string, data []byte) error {
		switch tag {
		case "bnid":
			if len(data) >= boneIDSize {
				boneID = int(binary.LittleEndian.Uint16(data))
			}
		case "pbid":
			if len(data) >= boneIDSize {
				parentID = int(binary.LittleEndian.Uint16(data))
			}
		case "tran":
			t, err := parseTran(data)
			if err != nil {
				return err
			}
			rest = &t
		}
		return nil
	})
	if err != nil {
		return model.SkeletonBone{}, err
	}
	if boneID < 0 || parentID < 0 {
		return model.SkeletonBone{}, fmt.Errorf("%w: bndt without bnid/pbid", ErrMissingField)
	}
	return model.SkeletonBone{ID: boneID, ParentID: parentID, Rest: rest}, nil
}

// parseSkeleton decodes a skdf payload into the bone hierarchy.
func parseSkeleton(payload []byte) ([]model.SkeletonBone, error) {
	var bones []model.SkeletonBone
	err := eachBox(payload, func(tag string, data []byte) error {
		if tag != "bons" {
			return nil
		}
		return eachBox(data, func(tag2 string, data2 []byte) error {
			if tag2 != "bndt" {
				return nil
			}
			b, err := parseSkeletonBone(data2)
			if err != nil {
				return err
			}
			bones = append(bones, b)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return bones, nil
}

// parseFrameBone decodes one btdt payload. Both bone id and transform are
// mandatory.
func parseFrameBone(payload []byte) (int, model.BoneSample, error) {
	boneID := -1
	var sample *model.BoneSample

	err := eachBox(payload, func(tag string, data []byte) error {
		switch tag {
		case "bnid":
			if len(data) >= boneIDSize {
				boneID = int(binary.LittleEndian.Uint16(data))
			}
		case "tran":
			t, err := parseTran(data)
			if err != nil {
				return err
			}
			sample = &t
		}
		return nil
	})
	if err != nil {
		return 0, model.BoneSample{}, err
	}
	if boneID < 0 || sample == nil {
		return 0, model.BoneSample{}, fmt.Errorf("%w: btdt without bnid/tran", ErrMissingField)
	}
	return boneID, *sample, nil
}

// parseFrame decodes a fram payload. Frame number and timestamp are
// mandatory.
func parseFrame(payload []byte) (*model.Frame, error) {
	var (
		fnum, ftime *uint32
		bones       = make(map[int]model.BoneSample)
	)

	err := eachBox(payload, func(tag string, data []byte) error {
		switch tag {
		case "fnum":
			if len(data) >= u32Size {
				v := binary.LittleEndian.Uint32(data)
				fnum = &v
			}
		case "time":
			if len(data) >= u32Size {
				v := binary.LittleEndian.Uint32(data)
				ftime = &v
			}
		case "btrs":
			return eachBox(data, func(tag2 string, data2 []byte) error {
				if tag2 != "btdt" {
					return nil
				}
				id, sample, err := parseFrameBone(data2)
				if err != nil {
					return err
				}
				bones[id] = sample
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if fnum == nil || ftime == nil {
		return nil, fmt.Errorf("%w: fram without fnum/time", ErrMissingField)
	}
	return &model.Frame{Num: *fnum, Time: *ftime, Bones: bones}, nil
}

// DecodePacket decodes one raw datagram into a Packet. The packet must
// carry three consecutive boxes: head, info, then skdf or fram; any other
// third tag yields a PacketUnknown result.
func DecodePacket(buf []byte) (Packet, error) {
	var pkt Packet

	_, headPayload, off, err := readBox(buf, 0)
	if err != nil {
		return pkt, err
	}
	_, infoPayload, off, err := readBox(buf, off)
	if err != nil {
		return pkt, err
	}
	tag, payload, _, err := readBox(buf, off)
	if err != nil {
		return pkt, err
	}

	if pkt.Head, err = parseHead(headPayload); err != nil {
		return pkt, err
	}
	if pkt.Info, err = parseInfo(infoPayload); err != nil {
		return pkt, err
	}
	pkt.Tag = tag

	switch tag {
	case "skdf":
		bones, err := parseSkeleton(payload)
		if err != nil {
			return pkt, err
		}
		pkt.Type = PacketSkeleton
		pkt.Skeleton = bones
	case "fram":
		frame, err := parseFrame(payload)
		if err != nil {
			return pkt, err
		}
		pkt.Type = PacketFrame
		pkt.Frame = frame
	default:
		pkt.Type = PacketUnknown
	}

	return pkt, nil
}
