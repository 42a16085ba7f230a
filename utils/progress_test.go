package utils

import (
	"testing"

	"opendownloadmanager/internal"
)

type fakeSource struct {
	snap internal.ProgressSnapshot
}

func (f fakeSource) Snapshot() internal.ProgressSnapshot { return f.snap }

func TestBarBridge_QuietModeHasNoBar(t *testing.T) {
	src := fakeSource{snap: internal.ProgressSnapshot{TotalDownloaded: 50, TotalSize: 100, Percent: 50}}
	b := NewBarBridge(src, 100, true)

	snap := b.Tick()
	if snap.TotalDownloaded != 50 {
		t.Errorf("expected TotalDownloaded=50, got %d", snap.TotalDownloaded)
	}

	summary := b.Finish("/tmp/out.iso")
	if summary.TotalBytes != 50 {
		t.Errorf("expected summary.TotalBytes=50, got %d", summary.TotalBytes)
	}
	if summary.OutputPath != "/tmp/out.iso" {
		t.Errorf("expected OutputPath to be carried through, got %q", summary.OutputPath)
	}
}

func TestBarBridge_TickReflectsLatestSnapshot(t *testing.T) {
	src := &mutableSource{snap: internal.ProgressSnapshot{TotalDownloaded: 0, TotalSize: 100}}
	b := NewBarBridge(src, 100, true)

	b.Tick()
	src.snap.TotalDownloaded = 80
	snap := b.Tick()

	if snap.TotalDownloaded != 80 {
		t.Errorf("expected Tick to reflect the latest snapshot, got %d", snap.TotalDownloaded)
	}
}

type mutableSource struct {
	snap internal.ProgressSnapshot
}

func (m *mutableSource) Snapshot() internal.ProgressSnapshot { return m.snap }
