package ingest

// frameDedupe is a bounded seen-set of frame numbers. UDP happily delivers
// the same datagram twice; scoring the same frame twice would double-feed
// the DTW window. Eviction is FIFO over a fixed ring so memory stays flat.
// Not safe for concurrent use; each listener owns one.
type frameDedupe struct {
	seen  map[uint32]struct{}
	order []uint32
	next  int
}

// defaultDedupeSize covers a few minutes of frames at 60 FPS.
const defaultDedupeSize = 10_000

func newFrameDedupe(size int) *frameDedupe {
	if size <= 0 {
		size = defaultDedupeSize
	}
	return &frameDedupe{
		seen:  make(map[uint32]struct{}, size),
		order: make([]uint32, size),
	}
}

// seenAndRecord reports whether num was already seen, recording it if not.
func (d *frameDedupe) seenAndRecord(num uint32) bool {
	if _, ok := d.seen[num]; ok {
		return true
	}

	if len(d.seen) >= len(d.order) {
		delete(d.seen, d.order[d.next])
	}
	d.order[d.next] = num
	d.next = (d.next + 1) % len(d.order)

	d.seen[num] = struct{}{}
	return false
}

func (d *frameDedupe) reset() {
	d.seen = make(map[uint32]struct{}, len(d.order))
	d.next = 0
}
