package internal

// MetadataStore persists and retrieves a task's resumable plan.
type MetadataStore interface {
	Save(plan *TaskPlan, path string) error
	Load(path string) (*TaskPlan, error)
	Exists(path string) bool
	Delete(path string) error
}

// ProgressSource exposes a consistent snapshot of a task's progress,
// implemented by the Progress Tracker.
type ProgressSource interface {
	Snapshot() ProgressSnapshot
}
