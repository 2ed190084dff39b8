package session

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kata/internal/domain/model"
)

func snapshot(ts float64, lh, rh model.Vec3) model.MotionSnapshot {
	return model.MotionSnapshot{
		Timestamp: ts,
		Rotations: map[string]model.Quat{
			"LeftHand":  {0, 0, 0, 1},
			"RightHand": {0, 0, 0, 1},
		},
		Trajectories: map[string][]model.Vec3{
			"LeftHand":  {lh},
			"RightHand": {rh},
		},
	}
}

func frame(timeNs int64, lh, rh model.Vec3) model.RawFrame {
	return model.RawFrame{
		Time: timeNs,
		Bones: map[string]model.BoneSample{
			"l_hand": {Rotation: model.Quat{0, 0, 0, 1}, Position: lh},
			"r_hand": {Rotation: model.Quat{0, 0, 0, 1}, Position: rh},
		},
	}
}

func TestControllerScore(t *testing.T) {
	Convey("Given a session controller", t, func() {
		c := New()

		Convey("When scoring identical snapshots over several frames", func() {
			var res model.ScoreResult
			for i := 0; i < 10; i++ {
				pos := model.Vec3{float64(i) * 0.05, 1, 0}
				snap := snapshot(float64(i)/60, pos, pos)
				res = c.Score(snap, snap)
			}

			Convey("Then the match is perfect", func() {
				So(res.OK, ShouldBeTrue)
				So(res.Pose, ShouldAlmostEqual, 1.0)
				So(res.Trajectory, ShouldAlmostEqual, 1.0)
				So(res.TrajectoryValid, ShouldBeTrue)
				So(res.DTWCost, ShouldNotBeNil)
				So(*res.DTWCost, ShouldAlmostEqual, 0.0)
				So(res.Final, ShouldBeGreaterThanOrEqualTo, 0.85)
				So(res.Grade, ShouldEqual, model.GradePerfect)
			})
		})

		Convey("When a snapshot has no usable trajectory feature", func() {
			good := snapshot(0, model.Vec3{0, 1, 0}, model.Vec3{1, 1, 0})
			c.Score(good, good)
			before := c.BufferLen()

			noHands := model.MotionSnapshot{
				Timestamp: 1,
				Rotations: good.Rotations,
			}
			res := c.Score(noHands, good)

			Convey("Then trajectory scores neutral and the window is untouched", func() {
				So(res.OK, ShouldBeTrue)
				So(res.Trajectory, ShouldEqual, InvalidTrajectoryScore)
				So(res.TrajectoryValid, ShouldBeFalse)
				So(res.DTWCost, ShouldBeNil)
				So(c.BufferLen(), ShouldEqual, before)
			})
		})

		Convey("When an in-band reset arrives", func() {
			snap := snapshot(0, model.Vec3{0, 1, 0}, model.Vec3{1, 1, 0})
			for i := 0; i < 5; i++ {
				c.Score(snap, snap)
			}
			So(c.BufferLen(), ShouldBeGreaterThan, 0)

			res := c.Score(model.MotionSnapshot{Reset: true}, model.MotionSnapshot{})

			Convey("Then the acknowledgment is returned and state is cleared", func() {
				So(res.OK, ShouldBeTrue)
				So(res.Reset, ShouldBeTrue)
				So(res.Grade, ShouldBeEmpty)
				So(c.BufferLen(), ShouldEqual, 0)
			})

			Convey("And a command-style reset works the same way", func() {
				c.Score(snap, snap)
				res := c.Score(model.MotionSnapshot{}, model.MotionSnapshot{Command: "reset"})
				So(res.Reset, ShouldBeTrue)
				So(c.BufferLen(), ShouldEqual, 0)
			})
		})

		Convey("When Reset is called directly", func() {
			snap := snapshot(0, model.Vec3{0, 1, 0}, model.Vec3{1, 1, 0})
			c.Score(snap, snap)
			c.Reset()

			Convey("Then the DTW window is empty", func() {
				So(c.BufferLen(), ShouldEqual, 0)
			})
		})

		Convey("When sessions are created independently", func() {
			other := New()
			snap := snapshot(0, model.Vec3{0, 1, 0}, model.Vec3{1, 1, 0})
			c.Score(snap, snap)

			Convey("Then their ids differ and state does not leak", func() {
				So(c.ID(), ShouldNotEqual, other.ID())
				So(c.BufferLen(), ShouldEqual, 1)
				So(other.BufferLen(), ShouldEqual, 0)
			})
		})
	})
}

func TestControllerScoreJSON(t *testing.T) {
	Convey("Given a session controller", t, func() {
		c := New()
		valid, _ := json.Marshal(snapshot(0, model.Vec3{0, 1, 0}, model.Vec3{1, 1, 0}))

		Convey("When both payloads are valid", func() {
			res := c.ScoreJSON(valid, valid)

			Convey("Then it scores normally", func() {
				So(res.OK, ShouldBeTrue)
				So(res.Error, ShouldBeEmpty)
			})
		})

		Convey("When the player payload is not JSON", func() {
			res := c.ScoreJSON([]byte("{not json"), valid)

			Convey("Then a failure result is returned, not an error", func() {
				So(res.OK, ShouldBeFalse)
				So(res.Grade, ShouldEqual, model.GradeMiss)
				So(res.Error, ShouldNotBeEmpty)
				So(res.Final, ShouldEqual, 0.0)
			})
		})

		Convey("When the reference payload has a wrongly typed field", func() {
			res := c.ScoreJSON(valid, []byte(`{"timestamp":"soon"}`))

			Convey("Then shape validation rejects it as a failure result", func() {
				So(res.OK, ShouldBeFalse)
				So(res.Grade, ShouldEqual, model.GradeMiss)
				So(res.Error, ShouldNotBeEmpty)
			})
		})

		Convey("When payloads omit optional fields", func() {
			res := c.ScoreJSON([]byte(`{}`), []byte(`{}`))

			Convey("Then missing keys are tolerated and scoring proceeds", func() {
				So(res.OK, ShouldBeTrue)
				So(res.TrajectoryValid, ShouldBeFalse)
				So(res.Trajectory, ShouldEqual, InvalidTrajectoryScore)
			})
		})

		Convey("When the payload is a JSON reset request", func() {
			res := c.ScoreJSON([]byte(`{"reset":true}`), valid)

			Convey("Then the reset acknowledgment comes back", func() {
				So(res.OK, ShouldBeTrue)
				So(res.Reset, ShouldBeTrue)
			})
		})
	})
}

func TestControllerScoreFrames(t *testing.T) {
	Convey("Given a session controller fed raw frames", t, func() {
		c := New()

		Convey("When identical frames stream in", func() {
			var res model.ScoreResult
			for i := 0; i < 10; i++ {
				pos := model.Vec3{float64(i) * 0.05, 1, 0}
				f := frame(int64(i)*16_000_000, pos, pos)
				res = c.ScoreFrames(f, f)
			}

			Convey("Then the trajectory window fills and the match is perfect", func() {
				So(res.OK, ShouldBeTrue)
				So(c.BufferLen(), ShouldEqual, 10)
				So(res.Trajectory, ShouldAlmostEqual, 1.0)
				So(res.Grade, ShouldEqual, model.GradePerfect)
			})
		})

		Convey("When a divergent performer streams in", func() {
			var res model.ScoreResult
			for i := 0; i < 10; i++ {
				refPos := model.Vec3{float64(i) * 0.05, 1, 0}
				playerPos := model.Vec3{refPos[0] + 2.0, refPos[1] - 1.0, 0.5}
				res = c.ScoreFrames(
					frame(int64(i)*16_000_000, playerPos, playerPos),
					frame(int64(i)*16_000_000, refPos, refPos),
				)
			}

			Convey("Then the trajectory subscore drops", func() {
				So(res.OK, ShouldBeTrue)
				So(res.Trajectory, ShouldBeLessThan, 0.2)
			})
		})

		Convey("When a frame carries a reset command", func() {
			pos := model.Vec3{0, 1, 0}
			f := frame(0, pos, pos)
			c.ScoreFrames(f, f)

			res := c.ScoreFrames(model.RawFrame{Command: "reset"}, model.RawFrame{})

			Convey("Then state clears and the ack comes back", func() {
				So(res.Reset, ShouldBeTrue)
				So(c.BufferLen(), ShouldEqual, 0)
			})
		})

		Convey("When fusion weights are customized", func() {
			c = New(WithFusionWeights(FusionWeights{Pose: 1, Trajectory: 0, Rhythm: 0}))
			pos := model.Vec3{0, 1, 0}
			f := frame(0, pos, pos)
			res := c.ScoreFrames(f, f)

			Convey("Then only the pose subscore drives the final score", func() {
				So(res.Final, ShouldAlmostEqual, res.Pose)
			})
		})
	})
}
