package internal

// SegmentPlan describes one contiguous inclusive byte range of a task,
// persisted as part of a TaskPlan.
type SegmentPlan struct {
	SegmentID  int    `json:"segment_id"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
	Downloaded int64  `json:"downloaded"`
	PartPath   string `json:"part_path"`
}

// Size returns the number of bytes this segment spans.
func (s SegmentPlan) Size() int64 {
	return s.End - s.Start + 1
}

// TaskPlan is the persistent, resumable description of a single
// download, keyed by the SHA-256 hex digest of its URL.
type TaskPlan struct {
	URL          string        `json:"url"`
	OutputPath   string        `json:"output_path"`
	TotalSize    int64         `json:"total_size"`
	ETag         *string       `json:"etag"`
	LastModified *string       `json:"last_modified"`
	Segments     []SegmentPlan `json:"segments"`
}

// StatusPhase is the tag of a DownloadStatus variant.
type StatusPhase int

const (
	StatusIdle StatusPhase = iota
	StatusDownloading
	StatusPaused
	StatusCompleted
	StatusCanceled
	StatusRetrying
	StatusFailed
)

func (p StatusPhase) String() string {
	switch p {
	case StatusIdle:
		return "Idle"
	case StatusDownloading:
		return "Downloading"
	case StatusPaused:
		return "Paused"
	case StatusCompleted:
		return "Completed"
	case StatusCanceled:
		return "Canceled"
	case StatusRetrying:
		return "Retrying"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// DownloadStatus is the tagged-variant status of a task. Failed carries
// a reason string; all other phases ignore Reason.
type DownloadStatus struct {
	Phase  StatusPhase
	Reason string
}

// String renders the status the way it is reported from Controller.List,
// e.g. "Downloading" or "Failed (connection reset)".
func (s DownloadStatus) String() string {
	if s.Phase == StatusFailed && s.Reason != "" {
		return s.Phase.String() + " (" + s.Reason + ")"
	}
	return s.Phase.String()
}

func Idle() DownloadStatus        { return DownloadStatus{Phase: StatusIdle} }
func Downloading() DownloadStatus { return DownloadStatus{Phase: StatusDownloading} }
func Paused() DownloadStatus      { return DownloadStatus{Phase: StatusPaused} }
func Completed() DownloadStatus   { return DownloadStatus{Phase: StatusCompleted} }
func Canceled() DownloadStatus    { return DownloadStatus{Phase: StatusCanceled} }
func Retrying() DownloadStatus    { return DownloadStatus{Phase: StatusRetrying} }
func Failed(reason string) DownloadStatus {
	return DownloadStatus{Phase: StatusFailed, Reason: reason}
}

// SegmentProgress is one (segment_id, downloaded, total) triple within a
// ProgressSnapshot.
type SegmentProgress struct {
	SegmentID  int
	Downloaded int64
	Total      int64
}

// ProgressSnapshot is a consistent, point-in-time copy of a task's
// aggregate and per-segment progress.
type ProgressSnapshot struct {
	TotalDownloaded int64
	TotalSize       int64
	Percent         float64
	Segments        []SegmentProgress
}

// TaskSummary is the row shape returned by Controller.List.
type TaskSummary struct {
	ID     string
	URL    string
	Status string
}

// DownloadConfig carries the per-task knobs a caller supplies to the
// engine; it is the Go analogue of the spec's "configuration surface".
type DownloadConfig struct {
	TimeoutSecs       int
	MaxRetries        uint
	NumThreads        int
	DefaultOutputPath string
	MetaDir           string
	ProxyURL          string
}
