package downloader

import (
	"sync"

	"opendownloadmanager/internal"
)

// Tracker is the thread-safe Progress Tracker shared across a task's
// segment workers. Updates from N workers are linearizable with
// respect to Snapshot: every method holds the same mutex for the
// duration of one map/counter mutation, never across I/O.
type Tracker struct {
	mu              sync.Mutex
	totalDownloaded int64
	totalSize       int64
	segments        map[int]*segmentCounter
	order           []int
}

type segmentCounter struct {
	downloaded int64
	total      int64
}

var _ internal.ProgressSource = (*Tracker)(nil)

// NewTracker initializes a mapping segment_id -> (downloaded=0, total)
// from the given plan's segments.
func NewTracker(plan *internal.TaskPlan) *Tracker {
	t := &Tracker{
		totalSize: plan.TotalSize,
		segments:  make(map[int]*segmentCounter, len(plan.Segments)),
	}
	for _, seg := range plan.Segments {
		t.segments[seg.SegmentID] = &segmentCounter{downloaded: seg.Downloaded, total: seg.Size()}
		t.order = append(t.order, seg.SegmentID)
		t.totalDownloaded += seg.Downloaded
	}
	return t
}

// NewSingleStreamTracker initializes a tracker for the non-segmented
// fallback path: one pseudo-segment covering the whole resource.
func NewSingleStreamTracker(totalSize int64) *Tracker {
	return &Tracker{
		totalSize: totalSize,
		segments:  map[int]*segmentCounter{0: {total: totalSize}},
		order:     []int{0},
	}
}

// Update atomically increments segmentID's downloaded count and the
// aggregate total_downloaded by n bytes.
func (t *Tracker) Update(segmentID int, n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.segments[segmentID]; ok {
		c.downloaded += n
	}
	t.totalDownloaded += n
}

// Snapshot returns a consistent copy of the tracker's aggregate and
// per-segment progress.
func (t *Tracker) Snapshot() internal.ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	segs := make([]internal.SegmentProgress, 0, len(t.order))
	for _, id := range t.order {
		c := t.segments[id]
		segs = append(segs, internal.SegmentProgress{
			SegmentID:  id,
			Downloaded: c.downloaded,
			Total:      c.total,
		})
	}

	var percent float64
	if t.totalSize > 0 {
		percent = float64(t.totalDownloaded) / float64(t.totalSize) * 100
	}

	return internal.ProgressSnapshot{
		TotalDownloaded: t.totalDownloaded,
		TotalSize:       t.totalSize,
		Percent:         percent,
		Segments:        segs,
	}
}

// SegmentDownloaded returns the current downloaded count for one
// segment, used by the engine to refresh a TaskPlan before a
// checkpoint write.
func (t *Tracker) SegmentDownloaded(segmentID int) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.segments[segmentID]; ok {
		return c.downloaded
	}
	return 0
}
