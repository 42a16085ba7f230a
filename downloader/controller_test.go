package downloader

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"opendownloadmanager/internal"
	"opendownloadmanager/utils"
)

func waitForStatus(t *testing.T, c *Controller, id, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, s := range c.List() {
			if s.ID == id && s.Status == want {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s did not reach status %q within %s", id, want, timeout)
}

// TestController_Lifecycle exercises scenario S1: add, pause mid-flight,
// resume, let it complete, then retry and remove.
func TestController_Lifecycle(t *testing.T) {
	block := make(chan struct{})
	released := false

	content := make([]byte, 4096)
	for i := range content {
		content[i] = byte(i)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", "4096")
			return
		}
		if !released {
			<-block
		}

		var start, end int
		fmt.Sscanf(r.Header.Get("Range"), "bytes=%d-%d", &start, &end)
		w.WriteHeader(http.StatusPartialContent)
		w.Write(content[start : end+1])
	}))
	defer server.Close()

	outDir := t.TempDir()
	cfg := internal.DownloadConfig{TimeoutSecs: 5, MaxRetries: 2, NumThreads: 2, MetaDir: t.TempDir(), DefaultOutputPath: outDir}
	c := NewController(cfg)

	id, err := c.Add(server.URL, filepath.Join(outDir, "out.bin"))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	id2, _ := c.Add(server.URL, filepath.Join(outDir, "out.bin"))
	if id != id2 {
		t.Errorf("hash-stability: same URL produced different ids: %s != %s", id, id2)
	}

	if !c.Pause(id) {
		t.Fatal("Pause should succeed on a running task")
	}
	waitForStatus(t, c, id, "Paused", 2*time.Second)

	released = true
	close(block)

	if !c.Resume(id) {
		t.Fatal("Resume should succeed on a paused task")
	}
	waitForStatus(t, c, id, "Completed", 5*time.Second)

	if c.Retry(id) {
		t.Fatal("Retry should be illegal on a Completed task")
	}

	if !c.Remove(id) {
		t.Fatal("Remove should succeed on a known task")
	}
	for _, s := range c.List() {
		if s.ID == id {
			t.Fatal("expected task to be gone after Remove")
		}
	}
}

// TestController_UnknownTaskOperationsReturnFalse covers the "false if
// unknown" contract shared by pause/resume/cancel/retry/remove.
func TestController_UnknownTaskOperationsReturnFalse(t *testing.T) {
	cfg := internal.DownloadConfig{TimeoutSecs: 5, MaxRetries: 2, NumThreads: 2, MetaDir: t.TempDir()}
	c := NewController(cfg)

	if c.Pause("nonexistent") {
		t.Error("Pause on an unknown id should return false")
	}
	if c.Resume("nonexistent") {
		t.Error("Resume on an unknown id should return false")
	}
	if c.Cancel("nonexistent") {
		t.Error("Cancel on an unknown id should return false")
	}
	if c.Retry("nonexistent") {
		t.Error("Retry on an unknown id should return false")
	}
	if c.Remove("nonexistent") {
		t.Error("Remove on an unknown id should return false")
	}
}

// TestController_Cancel verifies cancel removes part files and metadata
// and leaves the task in Canceled status.
func TestController_Cancel(t *testing.T) {
	block := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", "2048")
			return
		}
		w.WriteHeader(http.StatusPartialContent)
		flusher, _ := w.(http.Flusher)
		w.Write([]byte{0})
		if flusher != nil {
			flusher.Flush()
		}
		<-block
	}))
	defer server.Close()
	defer close(block)

	outDir := t.TempDir()
	metaDir := t.TempDir()
	cfg := internal.DownloadConfig{TimeoutSecs: 5, MaxRetries: 2, NumThreads: 2, MetaDir: metaDir, DefaultOutputPath: outDir}
	c := NewController(cfg)

	outputPath := filepath.Join(outDir, "out.bin")
	id, err := c.Add(server.URL, outputPath)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	waitForStatus(t, c, id, "Downloading", 2*time.Second)

	if !c.Cancel(id) {
		t.Fatal("Cancel should succeed on a running task")
	}
	waitForStatus(t, c, id, "Canceled", 5*time.Second)

	for i := 0; i < cfg.NumThreads; i++ {
		if utils.NewFileOperations().FileExists(utils.PartPath(outputPath, i)) {
			t.Errorf("expected part file %d to be removed after Cancel", i)
		}
	}
	if utils.NewFileOperations().FileExists(utils.MetaPath(metaDir, id)) {
		t.Error("expected metadata to be removed after Cancel")
	}
}
