package downloader

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"opendownloadmanager/internal"
	"opendownloadmanager/utils"
)

const checkpointInterval = 5 * time.Second

// Engine is the Segmented Engine (component E): it plans segments,
// spawns Segment Workers, auto-checkpoints the TaskPlan, and finalizes
// by merging parts — falling back to a single stream when the server
// can't be segmented.
type Engine struct {
	meta     *MetadataStore
	fallback func(client *utils.HTTPClient) *SingleStreamFallback
	fs       *utils.FileOperations
}

// NewEngine creates a new Segmented Engine.
func NewEngine() *Engine {
	return &Engine{
		meta:     NewMetadataStore(),
		fallback: NewSingleStreamFallback,
		fs:       utils.NewFileOperations(),
	}
}

// RunResult carries the outcome the Task Controller needs to decide the
// task's next status.
type RunResult struct {
	Paused  bool
	Tracker *Tracker
}

// Run executes steps 1-6 of the Segmented Engine algorithm for one
// task. taskID names the metadata file; cfg supplies timeouts, retry
// budget, thread count, and metadata directory.
func (e *Engine) Run(ctx context.Context, taskID string, rawURL, outputPath string, cfg internal.DownloadConfig, pauseFlag *atomic.Bool) (*RunResult, error) {
	metaPath := utils.MetaPath(cfg.MetaDir, taskID)

	client, err := utils.NewHTTPClient(utils.HTTPClientConfig{
		Timeout:  time.Duration(cfg.TimeoutSecs) * time.Second,
		ProxyURL: cfg.ProxyURL,
	})
	if err != nil {
		return nil, internal.NewDiskError("configure-client", rawURL, err)
	}

	var plan *internal.TaskPlan

	if e.meta.Exists(metaPath) {
		loaded, loadErr := e.meta.Load(metaPath)
		if loadErr != nil {
			internal.LogWarn("metadata at %s unreadable, starting fresh: %v", metaPath, loadErr)
		} else {
			plan = loaded
		}
	}

	if plan == nil {
		probe, err := client.HeadProbe(ctx, rawURL)
		if err != nil {
			return nil, internal.NewNetworkTransientError(0, err)
		}

		if !probe.Segmentable {
			internal.LogInfo("server does not support ranged requests, falling back to single-stream transfer")
			tracker := NewSingleStreamTracker(probe.TotalSize)
			fb := e.fallback(client)
			err := fb.Download(ctx, rawURL, outputPath, tracker, pauseFlag)
			if de, ok := err.(*internal.DownloadError); ok && de.Type == internal.ErrCanceled {
				return &RunResult{Paused: true, Tracker: tracker}, nil
			}
			if err != nil {
				return nil, err
			}
			return &RunResult{Tracker: tracker}, nil
		}

		plan = planSegments(rawURL, outputPath, probe, cfg.NumThreads)
		internal.LogInfo("total size: %d bytes", plan.TotalSize)
		internal.LogInfo("threads: %d", cfg.NumThreads)

		if err := e.meta.Save(plan, metaPath); err != nil {
			return nil, err
		}
	}

	tracker := NewTracker(plan)

	var etag string
	if plan.ETag != nil {
		etag = *plan.ETag
	}

	var wg sync.WaitGroup
	errs := make([]error, len(plan.Segments))
	for i := range plan.Segments {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			worker := NewSegmentWorker(client)
			errs[i] = worker.Run(ctx, rawURL, &plan.Segments[i], tracker, pauseFlag, uint(cfg.MaxRetries), etag)
		}(i)
	}

	stopCheckpoint := make(chan struct{})
	checkpointDone := make(chan struct{})
	go e.autoCheckpoint(plan, tracker, metaPath, pauseFlag, stopCheckpoint, checkpointDone)

	wg.Wait()
	close(stopCheckpoint)
	<-checkpointDone

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	if pauseFlag.Load() {
		refreshDownloaded(plan, tracker)
		if err := e.meta.Save(plan, metaPath); err != nil {
			return nil, err
		}
		return &RunResult{Paused: true, Tracker: tracker}, nil
	}

	if err := e.finalize(plan, metaPath); err != nil {
		return nil, err
	}

	return &RunResult{Tracker: tracker}, nil
}

// autoCheckpoint re-saves the TaskPlan every checkpointInterval until
// pauseFlag is set or stop is closed (all workers have joined),
// refreshing each segment's downloaded count from the tracker
// immediately before the write so the persisted value is accurate
// rather than merely cosmetic.
func (e *Engine) autoCheckpoint(plan *internal.TaskPlan, tracker *Tracker, metaPath string, pauseFlag *atomic.Bool, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			refreshDownloaded(plan, tracker)
			if err := e.meta.Save(plan, metaPath); err != nil {
				internal.LogWarn("checkpoint write failed for %s: %v", metaPath, err)
			}
			if pauseFlag.Load() {
				return
			}
		}
	}
}

func refreshDownloaded(plan *internal.TaskPlan, tracker *Tracker) {
	for i := range plan.Segments {
		plan.Segments[i].Downloaded = tracker.SegmentDownloaded(plan.Segments[i].SegmentID)
	}
}

// finalize merges the N part files in ascending segment-id order into
// a temporary file alongside output_path, then atomically renames it
// into place so a crash mid-merge never leaves a torn output file
// visible under the final name, deleting parts and metadata after.
func (e *Engine) finalize(plan *internal.TaskPlan, metaPath string) error {
	segments := make([]internal.SegmentPlan, len(plan.Segments))
	copy(segments, plan.Segments)
	sort.Slice(segments, func(i, j int) bool { return segments[i].SegmentID < segments[j].SegmentID })

	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = seg.PartPath
	}

	tmpPath := plan.OutputPath + ".merging"
	if err := e.fs.MergeParts(tmpPath, parts); err != nil {
		return internal.NewDiskError("merge", plan.OutputPath, err)
	}

	if err := e.fs.AtomicRename(tmpPath, plan.OutputPath); err != nil {
		return internal.NewDiskError("rename", plan.OutputPath, err)
	}

	if err := e.meta.Delete(metaPath); err != nil {
		return err
	}

	return nil
}

// planSegments partitions [0, total_size-1] into numThreads contiguous
// segments via floor division, with the last segment absorbing the
// remainder.
func planSegments(rawURL, outputPath string, probe utils.Probe, numThreads int) *internal.TaskPlan {
	total := probe.TotalSize
	chunk := total / int64(numThreads)

	segments := make([]internal.SegmentPlan, numThreads)
	for i := 0; i < numThreads; i++ {
		start := int64(i) * chunk
		end := start + chunk - 1
		if i == numThreads-1 {
			end = total - 1
		}
		segments[i] = internal.SegmentPlan{
			SegmentID: i,
			Start:     start,
			End:       end,
			PartPath:  utils.PartPath(outputPath, i),
		}
	}

	plan := &internal.TaskPlan{
		URL:        rawURL,
		OutputPath: outputPath,
		TotalSize:  total,
		Segments:   segments,
	}
	if probe.ETag != "" {
		etag := probe.ETag
		plan.ETag = &etag
	}
	if probe.LastModified != "" {
		lm := probe.LastModified
		plan.LastModified = &lm
	}

	return plan
}

// CleanupArtifacts removes a task's metadata file and all part files,
// used by cancel and remove.
func CleanupArtifacts(outputPath, metaPath string, numThreads int) error {
	fs := utils.NewFileOperations()

	if err := fs.RemoveIfExists(metaPath); err != nil {
		return internal.NewDiskError("remove", metaPath, err)
	}

	for i := 0; i < numThreads; i++ {
		partPath := utils.PartPath(outputPath, i)
		if err := fs.RemoveIfExists(partPath); err != nil {
			return internal.NewDiskError("remove", partPath, fmt.Errorf("%w", err))
		}
	}

	return nil
}
