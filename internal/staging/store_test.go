package staging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingPreviewAllocator struct {
	nextHandle    int
	releaseCounts map[string]int
}

func newRecordingPreviewAllocator() *recordingPreviewAllocator {
	return &recordingPreviewAllocator{releaseCounts: map[string]int{}}
}

func (allocator *recordingPreviewAllocator) Allocate(file File) string {
	allocator.nextHandle++
	return fmt.Sprintf("preview-%d", allocator.nextHandle)
}

func (allocator *recordingPreviewAllocator) Release(handle string) {
	allocator.releaseCounts[handle]++
}

func imageFile(name string, size int64) File {
	return File{Name: name, ContentType: "image/png", Size: size}
}

func documentFile(name string, size int64) File {
	return File{Name: name, ContentType: "application/pdf", Size: size}
}

func TestAddStagesFilesInArrivalOrder(testingT *testing.T) {
	store := NewStore(nil)
	result := store.Add(documentFile("first.pdf", 10), documentFile("second.pdf", 20))
	require.Equal(testingT, 2, result.Accepted)
	require.False(testingT, result.CapacityExceeded)
	require.False(testingT, result.SizeExceeded)

	snapshot := store.Snapshot()
	require.Len(testingT, snapshot, 2)
	require.Equal(testingT, "first.pdf", snapshot[0].File.Name)
	require.Equal(testingT, "second.pdf", snapshot[1].File.Name)
}

func TestAddTruncatesBeyondCapacityKeepingFirstEight(testingT *testing.T) {
	store := NewStore(nil)
	files := make([]File, 0, DefaultMaxFiles+3)
	for index := 0; index < DefaultMaxFiles+3; index++ {
		files = append(files, documentFile(fmt.Sprintf("file-%d.pdf", index), 1))
	}
	result := store.Add(files...)
	require.Equal(testingT, DefaultMaxFiles, result.Accepted)
	require.True(testingT, result.CapacityExceeded)
	require.Equal(testingT, DefaultMaxFiles, store.Len())
	require.Equal(testingT, "file-0.pdf", store.Snapshot()[0].File.Name)
	require.Equal(testingT, fmt.Sprintf("file-%d.pdf", DefaultMaxFiles-1), store.Snapshot()[DefaultMaxFiles-1].File.Name)
}

func TestAddEnforcesAggregateSizeCeilingIncrementally(testingT *testing.T) {
	store := NewStore(nil)
	result := store.Add(
		documentFile("big.pdf", DefaultMaxTotalBytes-1),
		documentFile("overflow.pdf", 2),
	)
	require.Equal(testingT, 1, result.Accepted)
	require.True(testingT, result.SizeExceeded)
	require.LessOrEqual(testingT, store.TotalSize(), int64(DefaultMaxTotalBytes))
}

func TestAddAllocatesPreviewsOnlyForImages(testingT *testing.T) {
	allocator := newRecordingPreviewAllocator()
	store := NewStore(allocator)
	store.Add(imageFile("photo.png", 10), documentFile("notes.pdf", 10))

	snapshot := store.Snapshot()
	require.NotEmpty(testingT, snapshot[0].PreviewHandle)
	require.Empty(testingT, snapshot[1].PreviewHandle)
	require.Equal(testingT, "PDF", snapshot[1].Label)
}

func TestRemoveReleasesPreviewHandleOnce(testingT *testing.T) {
	allocator := newRecordingPreviewAllocator()
	store := NewStore(allocator)
	store.Add(imageFile("photo.png", 10), documentFile("notes.pdf", 10))
	handle := store.Snapshot()[0].PreviewHandle

	store.Remove(0)
	require.Equal(testingT, 1, store.Len())
	require.Equal(testingT, 1, allocator.releaseCounts[handle])

	store.Clear()
	require.Equal(testingT, 1, allocator.releaseCounts[handle])
}

func TestRemoveOutOfRangeIsNoOp(testingT *testing.T) {
	store := NewStore(nil)
	store.Add(documentFile("notes.pdf", 10))
	store.Remove(-1)
	store.Remove(5)
	require.Equal(testingT, 1, store.Len())
}

func TestClearIsIdempotentAndReleasesEachHandleOnce(testingT *testing.T) {
	allocator := newRecordingPreviewAllocator()
	store := NewStore(allocator)
	store.Add(imageFile("a.png", 1), imageFile("b.png", 1))
	handles := []string{store.Snapshot()[0].PreviewHandle, store.Snapshot()[1].PreviewHandle}

	store.Clear()
	store.Clear()

	require.Zero(testingT, store.Len())
	for _, handle := range handles {
		require.Equal(testingT, 1, allocator.releaseCounts[handle])
	}
}

func TestFileLabelFallsBackWithoutExtension(testingT *testing.T) {
	store := NewStore(nil)
	store.Add(File{Name: "README", ContentType: "text/plain", Size: 1})
	require.Equal(testingT, fallbackFileLabel, store.Snapshot()[0].Label)
}
