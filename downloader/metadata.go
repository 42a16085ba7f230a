package downloader

import (
	"encoding/json"
	"os"

	"opendownloadmanager/internal"
	"opendownloadmanager/utils"
)

// MetadataStore persists and loads a task's TaskPlan as pretty-printed
// JSON under a metadata directory.
type MetadataStore struct {
	fs *utils.FileOperations
}

// NewMetadataStore creates a new MetadataStore.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{fs: utils.NewFileOperations()}
}

var _ internal.MetadataStore = (*MetadataStore)(nil)

// Save writes plan to path as pretty-printed JSON, creating the parent
// directory if needed.
func (m *MetadataStore) Save(plan *internal.TaskPlan, path string) error {
	if err := m.fs.EnsureDir(path); err != nil {
		return internal.NewDiskError("mkdir", path, err)
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return internal.NewDiskError("marshal", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return internal.NewDiskError("write", path, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return internal.NewDiskError("rename", path, err)
	}

	return nil
}

// Load reads and parses the TaskPlan at path. A malformed file surfaces
// as a MetaCorrupt error so the engine can treat the task as fresh.
func (m *MetadataStore) Load(path string) (*internal.TaskPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, internal.NewDiskError("read", path, err)
	}

	var plan internal.TaskPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, internal.NewMetaCorruptError(path, err)
	}

	return &plan, nil
}

// Exists reports whether a metadata file is present at path.
func (m *MetadataStore) Exists(path string) bool {
	return m.fs.FileExists(path)
}

// Delete removes the metadata file at path, treating a missing file as
// success.
func (m *MetadataStore) Delete(path string) error {
	if err := m.fs.RemoveIfExists(path); err != nil {
		return internal.NewDiskError("remove", path, err)
	}
	return nil
}
