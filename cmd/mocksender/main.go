// mocksender streams synthetic motion-capture packets at a running service.
// It plays the role of two capture devices: a reference stream moving along
// a clean sine path and a performer stream following the same path with
// optional noise, so a full pipeline can be exercised without hardware.
package main

import (
	"context"
	"flag"
	"math"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/okian/kata/internal/adapters/protocol"
	"github.com/okian/kata/internal/domain/model"
)

const (
	defaultHost          = "127.0.0.1"
	defaultPerformerPort = 12351
	defaultReferencePort = 12352
	defaultRate          = 50 // frames per second
	defaultDuration      = 10 * time.Second
	boneCount            = 27
)

func main() {
	var (
		host          = flag.String("host", defaultHost, "Service host")
		performerPort = flag.Int("performer-port", defaultPerformerPort, "Performer UDP port")
		referencePort = flag.Int("reference-port", defaultReferencePort, "Reference UDP port")
		rate          = flag.Int("rate", defaultRate, "Frames per second per stream")
		duration      = flag.Duration("duration", defaultDuration, "How long to stream")
		noise         = flag.Float64("noise", 0.02, "Positional noise added to the performer stream")
		seed          = flag.Int64("seed", time.Now().UnixNano(), "Random seed for performer noise")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	performer, err := dial(*host, *performerPort)
	if err != nil {
		os.Stderr.WriteString("dial performer: " + err.Error() + "\n")
		return
	}
	defer performer.Close()

	reference, err := dial(*host, *referencePort)
	if err != nil {
		os.Stderr.WriteString("dial reference: " + err.Error() + "\n")
		return
	}
	defer reference.Close()

	head := protocol.Header{Format: "sony motion format", Version: 1}
	info := protocol.Info{SenderID: 1, ReceivePort: uint16(*performerPort)}

	// Each stream announces its skeleton once before frames start.
	skeleton := buildSkeleton()
	_, _ = performer.Write(protocol.EncodeSkeletonPacket(head, info, skeleton))
	_, _ = reference.Write(protocol.EncodeSkeletonPacket(head, info, skeleton))

	rng := rand.New(rand.NewSource(*seed))
	interval := time.Second / time.Duration(*rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deadline := time.After(*duration)
	var fnum uint32

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-ticker.C:
			fnum++
			t := float64(fnum) / float64(*rate)
			ms := uint32(t * 1000)

			ref := buildFrame(fnum, ms, t, 0, nil)
			_, _ = reference.Write(protocol.EncodeFramePacket(head, info, ref))

			per := buildFrame(fnum, ms, t, *noise, rng)
			_, _ = performer.Write(protocol.EncodeFramePacket(head, info, per))
		}
	}
}

func dial(host string, port int) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return net.DialUDP("udp", nil, addr)
}

// buildSkeleton returns a chain skeleton with identity rest poses.
func buildSkeleton() []model.SkeletonBone {
	bones := make([]model.SkeletonBone, boneCount)
	for i := range bones {
		rest := model.BoneSample{Rotation: model.Quat{0, 0, 0, 1}}
		bones[i] = model.SkeletonBone{ID: i, ParentID: i - 1, Rest: &rest}
	}
	bones[0].ParentID = 0
	return bones
}

// buildFrame produces one capture frame at path time t. The hands trace a
// sine arc; rng, when non-nil, perturbs positions to mimic an imperfect
// performer.
func buildFrame(fnum, ms uint32, t, noise float64, rng *rand.Rand) *model.Frame {
	bones := make(map[int]model.BoneSample, boneCount)
	for id := 0; id < boneCount; id++ {
		phase := t + float64(id)*0.1
		pos := model.Vec3{
			0.3 * math.Sin(phase),
			1.0 + 0.2*math.Cos(phase),
			0.1 * math.Sin(phase*0.5),
		}
		if rng != nil {
			for i := range pos {
				pos[i] += noise * (rng.Float64()*2 - 1)
			}
		}
		half := phase / 2
		bones[id] = model.BoneSample{
			Rotation: model.Quat{math.Sin(half), 0, 0, math.Cos(half)},
			Position: pos,
		}
	}
	return &model.Frame{Num: fnum, Time: ms, Bones: bones}
}
