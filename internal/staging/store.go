package staging

import (
	"path/filepath"
	"strings"

	"github.com/LushakDataSystems/contact_svc/internal/model"
)

const (
	// DefaultMaxFiles is the staging capacity before additions are truncated.
	DefaultMaxFiles = model.MaxAttachmentCount
	// DefaultMaxTotalBytes caps the combined declared size of staged files.
	DefaultMaxTotalBytes = model.MaxTotalAttachmentBytes

	fallbackFileLabel = "FILE"
)

// File describes one candidate file offered to the staging store. Size is the
// size declared by the picker, not verified content length.
type File struct {
	Name        string
	ContentType string
	Size        int64
}

// StagedFile is a staged entry. PreviewHandle is non-empty only for image
// files and stays valid until the entry is removed or the store is cleared.
type StagedFile struct {
	File          File
	PreviewHandle string
	Label         string
}

// AddResult reports which conditions were hit while adding files.
type AddResult struct {
	Accepted         int
	CapacityExceeded bool
	SizeExceeded     bool
}

// PreviewAllocator creates and releases ephemeral preview handles for staged
// image files.
type PreviewAllocator interface {
	Allocate(file File) string
	Release(handle string)
}

type noopPreviewAllocator struct{}

func (noopPreviewAllocator) Allocate(file File) string { return "" }

func (noopPreviewAllocator) Release(handle string) {}

// Store is the transient holding area for selected attachments prior to
// submission. It is not safe for concurrent use; callers own a single store
// per form interaction.
type Store struct {
	allocator     PreviewAllocator
	maxFiles      int
	maxTotalBytes int64
	staged        []StagedFile
}

// NewStore constructs a Store with the default capacity and size ceilings.
// A nil allocator stages files without previews.
func NewStore(allocator PreviewAllocator) *Store {
	if allocator == nil {
		allocator = noopPreviewAllocator{}
	}
	return &Store{
		allocator:     allocator,
		maxFiles:      DefaultMaxFiles,
		maxTotalBytes: DefaultMaxTotalBytes,
	}
}

// Add appends files in arrival order. Files beyond the capacity ceiling or
// that would push the combined declared size past the byte ceiling are
// dropped; the result reports which ceiling was hit. Preview handles are
// allocated only for accepted image files.
func (store *Store) Add(files ...File) AddResult {
	var result AddResult
	for _, candidate := range files {
		if len(store.staged) >= store.maxFiles {
			result.CapacityExceeded = true
			continue
		}
		if store.TotalSize()+candidate.Size > store.maxTotalBytes {
			result.SizeExceeded = true
			continue
		}
		store.staged = append(store.staged, store.stage(candidate))
		result.Accepted++
	}
	return result
}

func (store *Store) stage(candidate File) StagedFile {
	entry := StagedFile{File: candidate, Label: fileLabel(candidate.Name)}
	if model.IsImageContentType(candidate.ContentType) {
		entry.PreviewHandle = store.allocator.Allocate(candidate)
	}
	return entry
}

// Remove discards the entry at index, releasing its preview handle first.
// Out-of-range indices are a no-op.
func (store *Store) Remove(index int) {
	if index < 0 || index >= len(store.staged) {
		return
	}
	store.release(store.staged[index])
	store.staged = append(store.staged[:index], store.staged[index+1:]...)
}

// Clear releases all outstanding preview handles and empties the store. It is
// safe to call repeatedly; each handle is released exactly once.
func (store *Store) Clear() {
	for _, entry := range store.staged {
		store.release(entry)
	}
	store.staged = nil
}

func (store *Store) release(entry StagedFile) {
	if entry.PreviewHandle == "" {
		return
	}
	store.allocator.Release(entry.PreviewHandle)
}

// Snapshot returns a copy of the staged sequence in arrival order.
func (store *Store) Snapshot() []StagedFile {
	snapshot := make([]StagedFile, len(store.staged))
	copy(snapshot, store.staged)
	return snapshot
}

// Len reports the number of staged files.
func (store *Store) Len() int {
	return len(store.staged)
}

// TotalSize reports the combined declared size of the staged files.
func (store *Store) TotalSize() int64 {
	var total int64
	for _, entry := range store.staged {
		total += entry.File.Size
	}
	return total
}

func fileLabel(fileName string) string {
	extension := strings.TrimPrefix(filepath.Ext(fileName), ".")
	if extension == "" {
		return fallbackFileLabel
	}
	return strings.ToUpper(extension)
}
