package utils

import (
	"fmt"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"

	"opendownloadmanager/internal"
)

// DownloadSummary contains final download statistics, printed by the
// CLI once a task reaches a terminal status.
type DownloadSummary struct {
	TotalBytes   int64
	TotalTime    time.Duration
	AverageSpeed float64
	OutputPath   string
}

// BarBridge polls an internal.ProgressSource and renders it through a
// cheggaaa/pb/v3 bar. It is a CLI-only concern: the core Progress
// Tracker it polls has no knowledge of any UI library.
type BarBridge struct {
	bar       *pb.ProgressBar
	startTime time.Time
	source    internal.ProgressSource
	quiet     bool
}

// NewBarBridge creates a bridge for a task whose total size is already
// known. Pass quiet=true to suppress bar rendering (scripted/CI use).
func NewBarBridge(source internal.ProgressSource, total int64, quiet bool) *BarBridge {
	b := &BarBridge{startTime: time.Now(), source: source, quiet: quiet}

	if !quiet {
		tmpl := `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{speed . }} {{rtime . "ETA %s"}}`
		bar := pb.ProgressBarTemplate(tmpl).Start64(total)
		bar.Set(pb.Bytes, true)
		bar.Set(pb.SIBytesPrefix, true)
		bar.Set("prefix", "Downloading: ")
		b.bar = bar
	}

	return b
}

// Tick refreshes the bar from the latest snapshot. Intended to be
// called on a short interval (e.g. every 250ms) by the CLI's foreground
// display for add, resume and retry.
func (b *BarBridge) Tick() internal.ProgressSnapshot {
	snap := b.source.Snapshot()
	if b.bar != nil {
		b.bar.SetCurrent(snap.TotalDownloaded)
	}
	return snap
}

// Finish stops the bar and returns a summary for the CLI to print.
func (b *BarBridge) Finish(outputPath string) *DownloadSummary {
	snap := b.source.Snapshot()
	elapsed := time.Since(b.startTime)

	if b.bar != nil {
		b.bar.SetCurrent(snap.TotalDownloaded)
		b.bar.Finish()
	}

	var avgSpeed float64
	if elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.TotalDownloaded) / elapsed.Seconds()
	}

	summary := &DownloadSummary{
		TotalBytes:   snap.TotalDownloaded,
		TotalTime:    elapsed,
		AverageSpeed: avgSpeed,
		OutputPath:   outputPath,
	}

	if !b.quiet {
		printSummary(summary)
	}

	return summary
}

func printSummary(s *DownloadSummary) {
	fmt.Println()
	fmt.Println("Download completed successfully!")
	fmt.Printf("Total size: %s\n", humanize.Bytes(uint64(s.TotalBytes)))
	fmt.Printf("Total time: %v\n", s.TotalTime.Round(time.Millisecond))
	fmt.Printf("Average speed: %s/s\n", humanize.Bytes(uint64(s.AverageSpeed)))
	if s.OutputPath != "" {
		fmt.Printf("Saved to: %s\n", s.OutputPath)
	}
}
