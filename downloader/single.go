package downloader

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	"opendownloadmanager/internal"
	"opendownloadmanager/utils"
)

// SingleStreamFallback performs a non-segmented transfer for servers
// that disallow ranges or omit Content-Length. No metadata file is
// written and no resume is supported: a pause mid-stream aborts and the
// next attempt restarts from zero.
type SingleStreamFallback struct {
	client *utils.HTTPClient
}

// NewSingleStreamFallback creates a fallback bound to an HTTP client.
func NewSingleStreamFallback(client *utils.HTTPClient) *SingleStreamFallback {
	return &SingleStreamFallback{client: client}
}

// Download streams url's body 8KiB at a time directly into outputPath,
// updating tracker as bytes arrive. pauseFlag is polled between reads
// exactly as in the segmented path; a pause aborts the transfer.
func (s *SingleStreamFallback) Download(ctx context.Context, rawURL, outputPath string, tracker *Tracker, pauseFlag *atomic.Bool) error {
	fs := utils.NewFileOperations()
	if err := fs.EnsureDir(outputPath); err != nil {
		return internal.NewDiskError("mkdir", outputPath, err)
	}

	resp, err := s.client.PlainGet(ctx, rawURL)
	if err != nil {
		return internal.NewNetworkTransientError(0, err)
	}
	defer resp.Body.Close()

	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return internal.NewDiskError("open", outputPath, err)
	}
	defer f.Close()

	buf := make([]byte, readBufferSize)
	for {
		if pauseFlag.Load() {
			return internal.NewCanceledError("")
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return internal.NewDiskError("write", outputPath, werr)
			}
			if tracker != nil {
				tracker.Update(0, int64(n))
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return internal.NewNetworkTransientError(0, readErr)
		}
	}
}
