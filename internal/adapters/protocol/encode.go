package protocol

import (
	"encoding/binary"
	"math"

	"github.com/okian/kata/internal/domain/model"
)

// appendBox appends one box (u32 LE length, 4-byte tag, payload) to dst.
func appendBox(dst []byte, tag string, payload []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(payload)))
	dst = append(dst, tag[:4]...)
	return append(dst, payload...)
}

// encodeTran packs a bone sample into the 7-float32 transform payload.
func encodeTran(sample model.BoneSample) []byte {
	buf := make([]byte, 0, tranPayloadSize)
	for _, v := range []float64{
		sample.Rotation[0], sample.Rotation[1], sample.Rotation[2], sample.Rotation[3],
		sample.Position[0], sample.Position[1], sample.Position[2],
	} {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v)))
	}
	return buf
}

// encodeEnvelope builds the head and info boxes every packet starts with.
func encodeEnvelope(head Header, info Info) []byte {
	var headPayload []byte
	headPayload = appendBox(headPayload, "ftyp", []byte(head.Format))
	if head.Version >= 0 {
		headPayload = appendBox(headPayload, "vrsn", []byte{byte(head.Version)})
	}

	var infoPayload []byte
	infoPayload = appendBox(infoPayload, "ipad", binary.LittleEndian.AppendUint64(nil, info.SenderID))
	infoPayload = appendBox(infoPayload, "rcvp", binary.LittleEndian.AppendUint16(nil, info.ReceivePort))

	var out []byte
	out = appendBox(out, "head", headPayload)
	return appendBox(out, "info", infoPayload)
}

// EncodeSkeletonPacket builds a complete skdf datagram.
func EncodeSkeletonPacket(head Header, info Info, bones []model.SkeletonBone) []byte {
	var bonsPayload []byte
	for _, b := range bones {
		var bndt []byte
		bndt = appendBox(bndt, "bnid", binary.LittleEndian.AppendUint16(nil, uint16(b.ID)))
		bndt = appendBox(bndt, "pbid", binary.LittleEndian.AppendUint16(nil, uint16(b.ParentID)))
		if b.Rest != nil {
			bndt = appendBox(bndt, "tran", encodeTran(*b.Rest))
		}
		bonsPayload = appendBox(bonsPayload, "bndt", bndt)
	}

	var skdf []byte
	skdf = appendBox(skdf, "bons", bonsPayload)

	return appendBox(encodeEnvelope(head, info), "skdf", skdf)
}

// EncodeFramePacket builds a complete fram datagram.
func EncodeFramePacket(head Header, info Info, frame *model.Frame) []byte {
	var fram []byte
	fram = appendBox(fram, "fnum", binary.LittleEndian.AppendUint32(nil, frame.Num))
	fram = appendBox(fram, "time", binary.LittleEndian.AppendUint32(nil, frame.Time))

	var btrs []byte
	for id, sample := range frame.Bones {
		var btdt []byte
		btdt = appendBox(btdt, "bnid", binary.LittleEndian.AppendUint16(nil, uint16(id)))
		btdt = appendBox(btdt, "tran", encodeTran(sample))
		btrs = appendBox(btrs, "btdt", btdt)
	}
	fram = appendBox(fram, "btrs", btrs)

	return appendBox(encodeEnvelope(head, info), "fram", fram)
}
