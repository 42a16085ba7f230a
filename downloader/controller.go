package downloader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"opendownloadmanager/internal"
	"opendownloadmanager/utils"
)

// joinTimeout bounds how long Resume waits for a prior generation's
// workers to exit before installing a fresh pause flag and tracker.
const joinTimeout = 10 * time.Second

// taskRecord is the in-memory bookkeeping for one task: the shared
// pause flag and tracker, a status cell, and a done channel closed when
// the engine goroutine for the current generation returns.
type taskRecord struct {
	mu         sync.Mutex
	id         string
	url        string
	outputPath string
	metaPath   string
	numThreads int
	pauseFlag  *atomic.Bool
	status     internal.DownloadStatus
	tracker    *Tracker
	cancel     context.CancelFunc
	done       chan struct{}
}

func (r *taskRecord) setStatus(s internal.DownloadStatus) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

func (r *taskRecord) getStatus() internal.DownloadStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *taskRecord) setTracker(t *Tracker) {
	r.mu.Lock()
	r.tracker = t
	r.mu.Unlock()
}

func (r *taskRecord) getTracker() *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tracker
}

// Controller is the Task Controller (component F): it maps a stable
// task id to a running or suspended download and implements the
// add/list/progress/pause/resume/cancel/retry/remove state machine. The
// task table is serialized by a single lock held only while looking up
// records — it is always released before an engine call or worker
// join, so workers remain free to update their own status cell.
type Controller struct {
	mu     sync.Mutex
	tasks  map[string]*taskRecord
	cfg    internal.DownloadConfig
	engine *Engine
}

// NewController creates a Task Controller bound to the given
// per-task configuration.
func NewController(cfg internal.DownloadConfig) *Controller {
	return &Controller{
		tasks:  make(map[string]*taskRecord),
		cfg:    cfg,
		engine: NewEngine(),
	}
}

// Add computes id = sha256_hex(url), builds a fresh pause flag, status,
// and tracker slot, and spawns one engine goroutine. Adding an id that
// already exists replaces the old record; its goroutine is not joined,
// matching the spec's "thread handles are dropped without join" for
// plain add (Resume and Retry join explicitly instead).
func (c *Controller) Add(rawURL, outputPath string) (string, error) {
	rawURL = utils.NormalizeURL(rawURL)
	validator := utils.NewURLValidator()
	if err := validator.ValidateURL(rawURL); err != nil {
		return "", err
	}

	if outputPath == "" {
		outputPath = utils.DefaultOutputPath(rawURL, c.cfg.DefaultOutputPath)
	}

	id := utils.TaskID(rawURL)

	c.mu.Lock()
	delete(c.tasks, id)
	c.mu.Unlock()

	c.start(id, rawURL, outputPath)
	return id, nil
}

// start installs a fresh taskRecord for id and spawns its engine
// goroutine.
func (c *Controller) start(id, rawURL, outputPath string) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &taskRecord{
		id:         id,
		url:        rawURL,
		outputPath: outputPath,
		metaPath:   utils.MetaPath(c.cfg.MetaDir, id),
		numThreads: c.cfg.NumThreads,
		pauseFlag:  &atomic.Bool{},
		status:     internal.Idle(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	c.mu.Lock()
	c.tasks[id] = rec
	c.mu.Unlock()

	go c.runEngine(ctx, rec)
}

func (c *Controller) runEngine(ctx context.Context, rec *taskRecord) {
	defer close(rec.done)

	rec.setStatus(internal.Downloading())

	result, err := c.engine.Run(ctx, rec.id, rec.url, rec.outputPath, c.cfg, rec.pauseFlag)
	if err != nil {
		if de, ok := err.(*internal.DownloadError); ok && de.Type == internal.ErrCanceled {
			rec.setStatus(internal.Canceled())
			return
		}
		internal.LogDownloadError(asDownloadError(err))
		rec.setStatus(internal.Failed(err.Error()))
		return
	}

	rec.setTracker(result.Tracker)

	if result.Paused {
		rec.setStatus(internal.Paused())
		return
	}

	rec.setStatus(internal.Completed())
}

func asDownloadError(err error) *internal.DownloadError {
	if de, ok := err.(*internal.DownloadError); ok {
		return de
	}
	return internal.NewDownloadError(err.Error(), internal.ErrDiskError)
}

// List returns a snapshot of the task table with status rendered from
// each record's variant.
func (c *Controller) List() []internal.TaskSummary {
	c.mu.Lock()
	records := make([]*taskRecord, 0, len(c.tasks))
	for _, rec := range c.tasks {
		records = append(records, rec)
	}
	c.mu.Unlock()

	summaries := make([]internal.TaskSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, internal.TaskSummary{
			ID:     rec.id,
			URL:    rec.url,
			Status: rec.getStatus().String(),
		})
	}
	return summaries
}

// Progress returns a copy of the task's progress from its tracker under
// the tracker's own lock. The tracker is attached to the record only
// when the current generation's engine run returns (completed or
// paused), so the bool is false while a run is still in progress, and
// also when the id is unknown.
func (c *Controller) Progress(id string) (internal.ProgressSnapshot, bool) {
	rec, ok := c.lookup(id)
	if !ok {
		return internal.ProgressSnapshot{}, false
	}

	tracker := rec.getTracker()
	if tracker == nil {
		return internal.ProgressSnapshot{}, false
	}

	return tracker.Snapshot(), true
}

// Pause sets the task's pause flag and status to Paused. Returns false
// if id is unknown.
func (c *Controller) Pause(id string) bool {
	rec, ok := c.lookup(id)
	if !ok {
		return false
	}

	rec.pauseFlag.Store(true)
	rec.setStatus(internal.Paused())
	return true
}

// Resume is legal only when the current status is Paused. It joins the
// previous generation's worker and checkpoint goroutines (bounded wait)
// before installing a fresh pause flag and tracker, so two generations
// of workers can never write the same part file concurrently; the
// resumed task reuses the same id (a function of the URL) and the
// engine discovers the persisted TaskPlan on re-entry.
func (c *Controller) Resume(id string) bool {
	rec, ok := c.lookup(id)
	if !ok || rec.getStatus().Phase != internal.StatusPaused {
		return false
	}

	select {
	case <-rec.done:
	case <-time.After(joinTimeout):
		internal.LogWarn("resume: prior generation of task %s did not join within %s", id, joinTimeout)
	}

	c.start(id, rec.url, rec.outputPath)
	return true
}

// Cancel sets the pause flag, joins all worker handles synchronously,
// deletes the metadata file and every part file, and sets status to
// Canceled. Returns false if id is unknown.
func (c *Controller) Cancel(id string) bool {
	rec, ok := c.lookup(id)
	if !ok {
		return false
	}

	rec.pauseFlag.Store(true)
	rec.cancel()
	<-rec.done

	if err := CleanupArtifacts(rec.outputPath, rec.metaPath, rec.numThreads); err != nil {
		internal.LogDownloadError(asDownloadError(err))
	}

	rec.setStatus(internal.Canceled())
	return true
}

// Retry is legal only when the current status is Failed or Canceled. It
// captures URL/output and starts a fresh engine run; any metadata
// present is picked up naturally to continue where it left off.
func (c *Controller) Retry(id string) bool {
	rec, ok := c.lookup(id)
	if !ok {
		return false
	}

	phase := rec.getStatus().Phase
	if phase != internal.StatusFailed && phase != internal.StatusCanceled {
		return false
	}

	select {
	case <-rec.done:
	case <-time.After(joinTimeout):
	}

	c.start(id, rec.url, rec.outputPath)
	return true
}

// Remove cancels the task if still running, then deletes its record
// from the table.
func (c *Controller) Remove(id string) bool {
	rec, ok := c.lookup(id)
	if !ok {
		return false
	}

	phase := rec.getStatus().Phase
	if phase == internal.StatusDownloading || phase == internal.StatusPaused {
		c.Cancel(id)
	}

	c.mu.Lock()
	delete(c.tasks, id)
	c.mu.Unlock()

	return true
}

func (c *Controller) lookup(id string) (*taskRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.tasks[id]
	return rec, ok
}
