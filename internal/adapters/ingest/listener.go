package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/okian/kata/internal/adapters/protocol"
	"github.com/okian/kata/internal/domain/model"
	"github.com/okian/kata/pkg/logger"
	"github.com/okian/kata/pkg/metrics"
)

// maxDatagramSize covers the largest packet a capture device sends.
const maxDatagramSize = 64 * 1024

// Listener binds one UDP port, decodes everything that arrives on it, and
// enqueues capture frames for its logical stream. Skeleton definitions are
// cached wholesale; decode errors are logged and the loop keeps listening.
type Listener struct {
	stream string
	conn   *net.UDPConn
	queue  Queue
	dedupe *frameDedupe
	logger logger.Logger

	mu        sync.RWMutex
	skeleton  []model.SkeletonBone
	skeletons int // how many definitions were received this session
	lastSkel  time.Time
}

// ListenerOption applies a configuration option to the Listener.
type ListenerOption func(*Listener)

// WithListenerLogger sets a custom logger for the listener.
func WithListenerLogger(l logger.Logger) ListenerOption {
	return func(ln *Listener) {
		if l != nil {
			ln.logger = l
		}
	}
}

// WithDedupeSize bounds the duplicate-frame cache.
func WithDedupeSize(n int) ListenerOption {
	return func(ln *Listener) {
		if n > 0 {
			ln.dedupe = newFrameDedupe(n)
		}
	}
}

// NewListener binds a UDP port for the named stream and prepares it for Run.
func NewListener(streamName string, port int, q Queue, opts ...ListenerOption) (*Listener, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("bind udp port %d: %w", port, err)
	}

	ln := &Listener{
		stream: streamName,
		conn:   conn,
		queue:  q,
		dedupe: newFrameDedupe(defaultDedupeSize),
		logger: logger.Get().Named("ingest").Named(streamName),
	}
	for _, opt := range opts {
		opt(ln)
	}
	return ln, nil
}

// Addr returns the bound UDP address.
func (ln *Listener) Addr() net.Addr {
	return ln.conn.LocalAddr()
}

// Close releases the UDP socket. Run uses context cancellation instead;
// Close exists for teardown before Run has started.
func (ln *Listener) Close() error {
	if err := ln.conn.Close(); err != nil {
		return fmt.Errorf("close udp socket: %w", err)
	}
	return nil
}

// SkeletonBoneCount returns the size of the cached skeleton, for stats.
func (ln *Listener) SkeletonBoneCount() int {
	ln.mu.RLock()
	defer ln.mu.RUnlock()
	return len(ln.skeleton)
}

// SkeletonInfo reports how many skeleton definitions this stream has sent
// and when the latest arrived. The zero time means none yet.
func (ln *Listener) SkeletonInfo() (received int, last time.Time) {
	ln.mu.RLock()
	defer ln.mu.RUnlock()
	return ln.skeletons, ln.lastSkel
}

// Run receives datagrams until ctx is canceled. Malformed packets are
// discarded and counted; the ingest loop itself never terminates on bad
// input.
func (ln *Listener) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		_ = ln.conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := ln.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			ln.logger.Warn(ctx, "udp read failed", logger.Error(err))
			continue
		}

		ln.handleDatagram(ctx, buf[:n], addr)
	}
}

func (ln *Listener) handleDatagram(ctx context.Context, data []byte, addr *net.UDPAddr) {
	pkt, err := protocol.DecodePacket(data)
	if err != nil {
		metrics.RecordDecodeError()
		ln.logger.Warn(ctx, "discarding undecodable packet",
			logger.String("from", addr.String()),
			logger.Int("len", len(data)),
			logger.Error(err))
		return
	}
	metrics.RecordPacketDecoded(string(pkt.Type))

	switch pkt.Type {
	case protocol.PacketSkeleton:
		ln.mu.Lock()
		ln.skeleton = pkt.Skeleton
		ln.skeletons++
		ln.lastSkel = time.Now()
		ln.mu.Unlock()
		metrics.UpdateSkeletonBoneCount(ln.stream, len(pkt.Skeleton))
		ln.logger.Info(ctx, "skeleton received", logger.Int("bones", len(pkt.Skeleton)))

	case protocol.PacketFrame:
		if ln.dedupe.seenAndRecord(pkt.Frame.Num) {
			metrics.RecordDuplicateFrame()
			return
		}
		if !ln.queue.Enqueue(ctx, Item{Stream: ln.stream, Frame: toRawFrame(pkt.Frame)}) {
			ln.logger.Debug(ctx, "packet queue full, dropping frame",
				logger.Int("fnum", int(pkt.Frame.Num)))
		}

	default:
		ln.logger.Debug(ctx, "ignoring unknown packet", logger.String("tag", pkt.Tag))
	}
}

// toRawFrame renames wire bone ids into the raw-frame shape the stream
// adapter consumes. The device timestamp is in milliseconds; the adapter
// expects nanoseconds.
func toRawFrame(f *model.Frame) model.RawFrame {
	bones := make(map[string]model.BoneSample, len(f.Bones))
	for id, sample := range f.Bones {
		bones[protocol.BoneName(id)] = sample
	}
	return model.RawFrame{
		Time:  int64(f.Time) * int64(1e6),
		Bones: bones,
	}
}
