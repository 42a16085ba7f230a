package downloader

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	"github.com/avast/retry-go/v4"

	"opendownloadmanager/internal"
	"opendownloadmanager/utils"
)

const readBufferSize = 8 * 1024

// SegmentWorker drives one SegmentPlan to completion, resuming from
// whatever bytes already sit in its part file.
type SegmentWorker struct {
	client *utils.HTTPClient
}

// NewSegmentWorker creates a worker bound to an HTTP client already
// configured with the task's timeout and proxy.
func NewSegmentWorker(client *utils.HTTPClient) *SegmentWorker {
	return &SegmentWorker{client: client}
}

// Run executes the segment worker algorithm: skip if already complete,
// compute the resume offset, then retry a ranged GET up to maxRetries
// times, polling pauseFlag between 8KiB reads. A pause is not an error:
// Run returns nil with the segment left incomplete.
func (w *SegmentWorker) Run(ctx context.Context, rawURL string, seg *internal.SegmentPlan, tracker *Tracker, pauseFlag *atomic.Bool, maxRetries uint, etag string) error {
	fs := utils.NewFileOperations()

	existing, err := fs.GetFileSize(seg.PartPath)
	if err != nil {
		return internal.NewDiskError("stat", seg.PartPath, err)
	}
	if existing >= seg.Size() {
		return nil
	}

	resumeStart := seg.Start + existing

	// retry.Attempts(0) would retry without bound; a zero budget allows
	// no attempt at all.
	if maxRetries == 0 {
		return internal.NewSegmentExhaustedError(seg.SegmentID)
	}

	err = retry.Do(
		func() error {
			return w.attempt(ctx, rawURL, seg, tracker, pauseFlag, etag, &resumeStart)
		},
		retry.Attempts(maxRetries),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			de, ok := err.(*internal.DownloadError)
			return ok && de.IsRetryable()
		}),
		retry.OnRetry(func(n uint, err error) {
			internal.LogWarn("segment %d attempt %d failed: %v", seg.SegmentID, n+1, err)
		}),
	)

	if err != nil {
		return internal.NewSegmentExhaustedError(seg.SegmentID)
	}

	return nil
}

// attempt issues one ranged GET from resumeStart and streams it into
// the part file, returning nil on a clean finish or an observed pause.
func (w *SegmentWorker) attempt(ctx context.Context, rawURL string, seg *internal.SegmentPlan, tracker *Tracker, pauseFlag *atomic.Bool, etag string, resumeStart *int64) error {
	resp, err := w.client.RangedGet(ctx, rawURL, *resumeStart, seg.End, etag)
	if err != nil {
		return internal.NewNetworkTransientError(seg.SegmentID, err)
	}
	defer resp.Body.Close()

	f, err := os.OpenFile(seg.PartPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return internal.NewDiskError("open", seg.PartPath, err)
	}
	defer f.Close()

	buf := make([]byte, readBufferSize)
	for {
		if pauseFlag.Load() {
			return nil
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return internal.NewDiskError("write", seg.PartPath, werr)
			}
			tracker.Update(seg.SegmentID, int64(n))
			seg.Downloaded = tracker.SegmentDownloaded(seg.SegmentID)
			*resumeStart += int64(n)
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return internal.NewNetworkTransientError(seg.SegmentID, readErr)
		}
	}
}
