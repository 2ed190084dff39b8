package service

import (
	"context"
	"net"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kata/internal/adapters/protocol"
	"github.com/okian/kata/internal/domain/model"
)

func wireFrame(num, ms uint32, x float64) []byte {
	pos := model.Vec3{x, 1, 0}
	return protocol.EncodeFramePacket(
		protocol.Header{Format: "sony motion format", Version: 1},
		protocol.Info{SenderID: 1, ReceivePort: 12351},
		&model.Frame{
			Num:  num,
			Time: ms,
			Bones: map[int]model.BoneSample{
				14: {Rotation: model.Quat{0, 0, 0, 1}, Position: pos},
				18: {Rotation: model.Quat{0, 0, 0, 1}, Position: pos},
			},
		},
	)
}

func TestServicePipeline(t *testing.T) {
	Convey("Given a started service with ephemeral UDP ports", t, func() {
		ctx := context.Background()
		svc := New(WithPorts(0, 0))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		perfConn, err := net.Dial("udp", svc.PerformerAddr().String())
		So(err, ShouldBeNil)
		defer perfConn.Close()

		refConn, err := net.Dial("udp", svc.ReferenceAddr().String())
		So(err, ShouldBeNil)
		defer refConn.Close()

		Convey("When identical frames stream in on both ports", func() {
			for i := uint32(1); i <= 20; i++ {
				x := float64(i) * 0.02
				_, _ = refConn.Write(wireFrame(i, i*16, x))
				_, _ = perfConn.Write(wireFrame(i, i*16, x))
				time.Sleep(2 * time.Millisecond)
			}

			Convey("Then a latest result appears and scores well", func() {
				var (
					res model.ScoreResult
					ok  bool
				)
				deadline := time.Now().Add(5 * time.Second)
				for time.Now().Before(deadline) {
					if res, ok = svc.LatestResult(ctx); ok {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}

				So(ok, ShouldBeTrue)
				So(res.OK, ShouldBeTrue)
				So(res.Pose, ShouldAlmostEqual, 1.0)
				So(res.Grade, ShouldEqual, model.GradePerfect)
			})
		})
	})
}
