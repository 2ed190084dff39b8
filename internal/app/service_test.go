package service

import (
	"context"
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kata/internal/domain/model"
)

func validSnapshotJSON() []byte {
	snap := model.MotionSnapshot{
		Timestamp: 0.1,
		Rotations: map[string]model.Quat{
			"LeftHand":  {0, 0, 0, 1},
			"RightHand": {0, 0, 0, 1},
		},
		Trajectories: map[string][]model.Vec3{
			"LeftHand":  {{0, 1, 0}},
			"RightHand": {{1, 1, 0}},
		},
	}
	buf, _ := json.Marshal(snap)
	return buf
}

func TestServiceDirectScoring(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := New(WithPorts(0, 0))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When scoring through the default session", func() {
			res, err := svc.ScoreJSON(ctx, "", validSnapshotJSON(), validSnapshotJSON())

			Convey("Then a graded result comes back", func() {
				So(err, ShouldBeNil)
				So(res.OK, ShouldBeTrue)
				So(res.Pose, ShouldAlmostEqual, 1.0)
			})
		})

		Convey("When scoring through an unknown session", func() {
			_, err := svc.ScoreJSON(ctx, "ghost", validSnapshotJSON(), validSnapshotJSON())

			Convey("Then the lookup fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When a session is created", func() {
			id := svc.CreateSession(ctx)

			Convey("Then it is addressable and isolated", func() {
				So(id, ShouldNotBeEmpty)
				res, err := svc.ScoreJSON(ctx, id, validSnapshotJSON(), validSnapshotJSON())
				So(err, ShouldBeNil)
				So(res.OK, ShouldBeTrue)
			})

			Convey("And it can be reset and removed", func() {
				So(svc.ResetSession(ctx, id), ShouldBeNil)
				So(svc.RemoveSession(ctx, id), ShouldBeTrue)
				So(svc.RemoveSession(ctx, id), ShouldBeFalse)
			})
		})

		Convey("When resetting an unknown session", func() {
			Convey("Then the reset fails", func() {
				So(svc.ResetSession(ctx, "ghost"), ShouldNotBeNil)
			})
		})

		Convey("When no pipeline frames have been scored", func() {
			_, ok := svc.LatestResult(ctx)

			Convey("Then there is no latest result", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When stats are collected", func() {
			stats := svc.GetStats()

			Convey("Then the service state is visible", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats["sessions"], ShouldEqual, 1)
				So(stats["queueLength"], ShouldEqual, 0)
			})
		})

		Convey("Then both UDP listeners are bound", func() {
			So(svc.PerformerAddr(), ShouldNotBeNil)
			So(svc.ReferenceAddr(), ShouldNotBeNil)
			So(svc.PerformerAddr().String(), ShouldNotEqual, svc.ReferenceAddr().String())
		})
	})
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := New(WithPorts(0, 0))

		Convey("When started twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()
		})

		Convey("When stopped twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()
			svc.Stop()
		})

		Convey("When stopped without starting", func() {
			svc.Stop()
		})
	})
}
