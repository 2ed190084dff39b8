package protocol

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/kata/internal/domain/model"
)

var testHead = Header{Format: "sony motion format", Version: 1}
var testInfo = Info{SenderID: 42, ReceivePort: 12351}

func TestDecodePacket_SkeletonRoundTrip(t *testing.T) {
	rest := model.BoneSample{
		Rotation: model.Quat{0, 0, 0, 1},
		Position: model.Vec3{0, 1, 0},
	}
	bones := []model.SkeletonBone{
		{ID: 0, ParentID: 0, Rest: &rest},
		{ID: 1, ParentID: 0, Rest: &rest},
		{ID: 2, ParentID: 1}, // rest transform is optional
	}

	buf := EncodeSkeletonPacket(testHead, testInfo, bones)
	pkt, err := DecodePacket(buf)
	require.NoError(t, err)

	assert.Equal(t, PacketSkeleton, pkt.Type)
	assert.Equal(t, "skdf", pkt.Tag)
	assert.Equal(t, "sony motion format", pkt.Head.Format)
	assert.Equal(t, 1, pkt.Head.Version)
	assert.Equal(t, uint64(42), pkt.Info.SenderID)
	assert.Equal(t, uint16(12351), pkt.Info.ReceivePort)

	require.Len(t, pkt.Skeleton, 3)
	assert.Equal(t, 0, pkt.Skeleton[0].ID)
	assert.Equal(t, 1, pkt.Skeleton[1].ID)
	assert.Equal(t, 0, pkt.Skeleton[1].ParentID)
	require.NotNil(t, pkt.Skeleton[0].Rest)
	assert.InDelta(t, 1.0, pkt.Skeleton[0].Rest.Rotation[3], 1e-6)
	assert.InDelta(t, 1.0, pkt.Skeleton[0].Rest.Position[1], 1e-6)
	assert.Nil(t, pkt.Skeleton[2].Rest)
}

func TestDecodePacket_FrameRoundTrip(t *testing.T) {
	frame := &model.Frame{
		Num:  7,
		Time: 1500,
		Bones: map[int]model.BoneSample{
			14: {Rotation: model.Quat{0.5, 0.5, 0.5, 0.5}, Position: model.Vec3{0.1, 1.2, -0.3}},
			18: {Rotation: model.Quat{0, 0, 0, 1}, Position: model.Vec3{-0.1, 1.2, 0.3}},
		},
	}

	buf := EncodeFramePacket(testHead, testInfo, frame)
	pkt, err := DecodePacket(buf)
	require.NoError(t, err)

	assert.Equal(t, PacketFrame, pkt.Type)
	require.NotNil(t, pkt.Frame)
	assert.Equal(t, uint32(7), pkt.Frame.Num)
	assert.Equal(t, uint32(1500), pkt.Frame.Time)
	require.Len(t, pkt.Frame.Bones, 2)
	assert.InDelta(t, 0.5, pkt.Frame.Bones[14].Rotation[0], 1e-6)
	assert.InDelta(t, -0.3, pkt.Frame.Bones[14].Position[2], 1e-6)
}

func TestDecodePacket_UnknownThirdTag(t *testing.T) {
	buf := encodeEnvelope(testHead, testInfo)
	buf = appendBox(buf, "sndf", []byte{1, 2, 3})

	pkt, err := DecodePacket(buf)
	require.NoError(t, err)
	assert.Equal(t, PacketUnknown, pkt.Type)
	assert.Equal(t, "sndf", pkt.Tag)
	assert.Nil(t, pkt.Frame)
	assert.Nil(t, pkt.Skeleton)
}

func TestDecodePacket_Truncated(t *testing.T) {
	frame := &model.Frame{Num: 1, Time: 10, Bones: map[int]model.BoneSample{}}
	buf := EncodeFramePacket(testHead, testInfo, frame)

	cases := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"partial header", buf[:5]},
		{"header only", buf[:8]},
		{"cut mid payload", buf[:len(buf)-3]},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodePacket(tc.buf)
			assert.ErrorIs(t, err, ErrTruncated)
		})
	}
}

func TestDecodePacket_PayloadLengthBeyondBuffer(t *testing.T) {
	// A box whose declared length exceeds the remaining bytes.
	buf := binary.LittleEndian.AppendUint32(nil, 100)
	buf = append(buf, "head"...)
	buf = append(buf, 1, 2, 3)

	_, err := DecodePacket(buf)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodePacket_FrameMissingMandatoryFields(t *testing.T) {
	// fram with a time box but no fnum.
	var fram []byte
	fram = appendBox(fram, "time", binary.LittleEndian.AppendUint32(nil, 10))
	buf := appendBox(encodeEnvelope(testHead, testInfo), "fram", fram)

	_, err := DecodePacket(buf)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestDecodePacket_SkeletonBoneMissingIDs(t *testing.T) {
	// bndt with only a transform, no bnid/pbid.
	var bndt []byte
	bndt = appendBox(bndt, "tran", encodeTran(model.BoneSample{}))
	var bons []byte
	bons = appendBox(bons, "bndt", bndt)
	var skdf []byte
	skdf = appendBox(skdf, "bons", bons)
	buf := appendBox(encodeEnvelope(testHead, testInfo), "skdf", skdf)

	_, err := DecodePacket(buf)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestDecodePacket_FrameBoneMissingTransform(t *testing.T) {
	var btdt []byte
	btdt = appendBox(btdt, "bnid", binary.LittleEndian.AppendUint16(nil, 3))
	var btrs []byte
	btrs = appendBox(btrs, "btdt", btdt)
	var fram []byte
	fram = appendBox(fram, "fnum", binary.LittleEndian.AppendUint32(nil, 1))
	fram = appendBox(fram, "time", binary.LittleEndian.AppendUint32(nil, 1))
	fram = appendBox(fram, "btrs", btrs)
	buf := appendBox(encodeEnvelope(testHead, testInfo), "fram", fram)

	_, err := DecodePacket(buf)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestDecodePacket_ShortTranPayload(t *testing.T) {
	var btdt []byte
	btdt = appendBox(btdt, "bnid", binary.LittleEndian.AppendUint16(nil, 3))
	btdt = appendBox(btdt, "tran", make([]byte, 12)) // needs 28
	var btrs []byte
	btrs = appendBox(btrs, "btdt", btdt)
	var fram []byte
	fram = appendBox(fram, "fnum", binary.LittleEndian.AppendUint32(nil, 1))
	fram = appendBox(fram, "time", binary.LittleEndian.AppendUint32(nil, 1))
	fram = appendBox(fram, "btrs", btrs)
	buf := appendBox(encodeEnvelope(testHead, testInfo), "fram", fram)

	_, err := DecodePacket(buf)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodePacket_MissingVersionDefaultsToMinusOne(t *testing.T) {
	buf := EncodeSkeletonPacket(Header{Format: "x", Version: -1}, testInfo, nil)
	pkt, err := DecodePacket(buf)
	require.NoError(t, err)
	assert.Equal(t, -1, pkt.Head.Version)
}

func TestBoneName(t *testing.T) {
	assert.Equal(t, "root", BoneName(0))
	assert.Equal(t, "l_hand", BoneName(14))
	assert.Equal(t, "r_hand", BoneName(18))
	assert.Equal(t, "r_toes", BoneName(26))
	assert.Equal(t, "bone_27", BoneName(27))
	assert.Equal(t, "bone_-1", BoneName(-1))
}
