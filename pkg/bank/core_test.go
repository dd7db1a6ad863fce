package bank

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCore(t *testing.T) *Core {
	t.Helper()

	core, err := NewCore(CoreConfig{
		Root:   t.TempDir(),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	require.NoError(t, core.InitializeFolders(context.Background()))
	return core
}

func newLoadedCore(t *testing.T) *Core {
	t.Helper()
	core := newTestCore(t)
	_, err := core.LoadFiles(context.Background())
	require.NoError(t, err)
	return core
}

func TestCore_InitializeFolders(t *testing.T) {
	core := newTestCore(t)

	for _, sub := range []string{"core", "progress", "notes"} {
		info, err := os.Stat(filepath.Join(core.Root(), sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent on an already initialized root.
	require.NoError(t, core.InitializeFolders(context.Background()))
}

func TestCore_LoadFilesCreatesMissingFromTemplate(t *testing.T) {
	core := newTestCore(t)

	created, err := core.LoadFiles(context.Background())
	require.NoError(t, err)
	assert.Len(t, created, len(AllFileTypes()))

	for _, ft := range AllFileTypes() {
		rel, ok := ft.RelativePath()
		require.True(t, ok)

		data, err := os.ReadFile(filepath.Join(core.Root(), filepath.FromSlash(rel)))
		require.NoError(t, err)

		want, ok := NewTemplateSet().Content(ft)
		require.True(t, ok)
		assert.Equal(t, want, string(data))
	}
}

func TestCore_LoadFilesSecondCallCreatesNothing(t *testing.T) {
	core := newLoadedCore(t)

	created, err := core.LoadFiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestCore_LoadFilesRepairsSingleMissingFile(t *testing.T) {
	core := newLoadedCore(t)

	rel, _ := FileTypeActiveContext.RelativePath()
	require.NoError(t, os.Remove(filepath.Join(core.Root(), filepath.FromSlash(rel))))
	require.NoError(t, core.InvalidateCache())

	created, err := core.LoadFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []FileType{FileTypeActiveContext}, created)
}

func TestCore_GetFileBeforeLoad(t *testing.T) {
	core := newTestCore(t)

	_, ok := core.GetFile(FileTypeProjectBrief)
	assert.False(t, ok)
}

func TestCore_GetFileAfterLoad(t *testing.T) {
	core := newLoadedCore(t)

	file, ok := core.GetFile(FileTypeProjectBrief)
	require.True(t, ok)
	assert.Equal(t, FileTypeProjectBrief, file.Type)
	assert.Equal(t, "core/projectBrief.md", file.RelativePath)
	assert.NotEmpty(t, file.Content)
	assert.False(t, file.LastUpdated.IsZero())
}

func TestCore_LoadedFilesStableOrder(t *testing.T) {
	core := newLoadedCore(t)

	files := core.LoadedFiles()
	require.Len(t, files, len(AllFileTypes()))
	for i, ft := range AllFileTypes() {
		assert.Equal(t, ft, files[i].Type)
	}
}

func TestCore_UpdateFileRoundtrip(t *testing.T) {
	core := newLoadedCore(t)
	ctx := context.Background()

	content := "---\ntype: activeContext\ntitle: Active Context\n---\n\n# Now\n\nShipping the index.\n"
	require.NoError(t, core.UpdateFile(ctx, FileTypeActiveContext, content))

	file, ok := core.GetFile(FileTypeActiveContext)
	require.True(t, ok)
	assert.Equal(t, content, file.Content)

	rel, _ := FileTypeActiveContext.RelativePath()
	data, err := os.ReadFile(filepath.Join(core.Root(), filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestCore_UpdateFileUnknownType(t *testing.T) {
	core := newLoadedCore(t)

	err := core.UpdateFile(context.Background(), FileType("bogus"), "content")
	require.Error(t, err)
	assert.Equal(t, CodeUnknownFileType, CodeOf(err))
}

func TestCore_UpdateFileRefreshesIndex(t *testing.T) {
	core := newLoadedCore(t)

	content := "---\ntype: techContext\ntitle: Stack\ntags: [infra]\n---\n\n# Stack\n"
	require.NoError(t, core.UpdateFile(context.Background(), FileTypeTechContext, content))

	entry, ok := core.IndexEntryFor(FileTypeTechContext)
	require.True(t, ok)
	assert.Equal(t, "Stack", entry.Title)
	assert.Equal(t, []string{"infra"}, entry.Tags)
}

func TestCore_WriteFileByPath(t *testing.T) {
	core := newLoadedCore(t)
	ctx := context.Background()

	require.NoError(t, core.WriteFileByPath(ctx, "notes/scratch.md", "scratch content"))

	data, err := os.ReadFile(filepath.Join(core.Root(), "notes", "scratch.md"))
	require.NoError(t, err)
	assert.Equal(t, "scratch content", string(data))
}

func TestCore_WriteFileByPathRefreshesTypedView(t *testing.T) {
	core := newLoadedCore(t)

	content := "---\ntype: progressCurrent\ntitle: Current Progress\n---\n\n# Done\n"
	require.NoError(t, core.WriteFileByPath(context.Background(), "progress/current.md", content))

	file, ok := core.GetFile(FileTypeProgressCurrent)
	require.True(t, ok)
	assert.Equal(t, content, file.Content)
}

func TestCore_WriteFileByPathRejectsEscape(t *testing.T) {
	core := newLoadedCore(t)

	err := core.WriteFileByPath(context.Background(), "../outside.md", "nope")
	require.Error(t, err)
	assert.Equal(t, CodeInvalidPath, CodeOf(err))

	_, statErr := os.Stat(filepath.Join(filepath.Dir(core.Root()), "outside.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCore_CheckHealthHealthy(t *testing.T) {
	core := newLoadedCore(t)

	report, err := core.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Healthy)
	assert.Empty(t, report.Missing)
	assert.Empty(t, report.Unreadable)
	assert.Contains(t, report.Summary(), "healthy")
}

func TestCore_CheckHealthCollectsAllMissing(t *testing.T) {
	core := newLoadedCore(t)

	for _, ft := range []FileType{FileTypeProjectBrief, FileTypeProgressHistory} {
		rel, _ := ft.RelativePath()
		require.NoError(t, os.Remove(filepath.Join(core.Root(), filepath.FromSlash(rel))))
	}

	report, err := core.CheckHealth(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeUnhealthy, CodeOf(err))
	assert.False(t, report.Healthy)
	assert.ElementsMatch(t, []FileType{FileTypeProjectBrief, FileTypeProgressHistory}, report.Missing)
	assert.Contains(t, report.Summary(), "missing")

	// Health checking never repairs: the files stay missing.
	rel, _ := FileTypeProjectBrief.RelativePath()
	_, statErr := os.Stat(filepath.Join(core.Root(), filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCore_InvalidateCacheForcesReread(t *testing.T) {
	core := newLoadedCore(t)
	ctx := context.Background()

	rel, _ := FileTypeTechContext.RelativePath()
	abs := filepath.Join(core.Root(), filepath.FromSlash(rel))

	// Rewrite behind the engine's back with an unchanged mtime so only
	// an explicit invalidation can surface the new content.
	info, err := os.Stat(abs)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(abs, []byte("rewritten externally"), 0644))
	require.NoError(t, os.Chtimes(abs, info.ModTime(), info.ModTime()))

	require.NoError(t, core.InvalidateCache(rel))

	core.ResetCacheStats()
	_, err = core.LoadFiles(ctx)
	require.NoError(t, err)

	file, ok := core.GetFile(FileTypeTechContext)
	require.True(t, ok)
	assert.Equal(t, "rewritten externally", file.Content)
	assert.GreaterOrEqual(t, core.CacheStats().Misses, int64(1))
}

func TestCore_ReindexWalksRoot(t *testing.T) {
	core := newLoadedCore(t)
	ctx := context.Background()

	require.NoError(t, core.WriteFileByPath(ctx, "notes/design.md",
		"---\ntype: note\ntitle: Design Notes\ntags: [arch]\n---\n\n# Notes\n"))
	require.NoError(t, os.WriteFile(filepath.Join(core.Root(), "notes", "ignored.txt"), []byte("not markdown"), 0644))

	require.NoError(t, core.Reindex(ctx))

	got := core.Query(Filter{Tags: []string{"arch"}})
	paths := make([]string, len(got))
	for i, e := range got {
		paths[i] = e.Path
	}
	assert.Contains(t, paths, filepath.Join(core.Root(), "notes", "design.md"))

	for _, e := range core.Query(Filter{}) {
		assert.NotContains(t, e.Path, "ignored.txt")
	}
}

func TestCore_QueryLoadedDocumentsByTag(t *testing.T) {
	core := newLoadedCore(t)

	// Default templates tag systemPatterns with arch.
	got := core.Query(Filter{Tags: []string{"arch"}})
	require.Len(t, got, 1)
	assert.Equal(t, "systemPatterns", got[0].Type)
}

func TestCore_ConcurrentUpdateAndGet(t *testing.T) {
	core := newLoadedCore(t)
	ctx := context.Background()

	old, ok := core.GetFile(FileTypeActiveContext)
	require.True(t, ok)

	updated := "---\ntype: activeContext\ntitle: Active Context\n---\n\n# Updated\n"

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		assert.NoError(t, core.UpdateFile(ctx, FileTypeActiveContext, updated))
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			file, ok := core.GetFile(FileTypeActiveContext)
			if !ok {
				t.Error("typed view disappeared during update")
				return
			}
			// A reader sees either the old or the new content, never a mix.
			if file.Content != old.Content && file.Content != updated {
				t.Errorf("observed torn content: %q", file.Content)
				return
			}
		}
	}()

	wg.Wait()
}

func TestCore_EventsOnLoadAndUpdate(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()

	var mu sync.Mutex
	seen := map[Event]int{}
	record := func(event Event) EventHandler {
		return func(payload interface{}) {
			mu.Lock()
			seen[event]++
			mu.Unlock()
		}
	}
	core.On(EventInitialized, record(EventInitialized))
	core.On(EventFileCreated, record(EventFileCreated))
	core.On(EventFileUpdated, record(EventFileUpdated))

	_, err := core.LoadFiles(ctx)
	require.NoError(t, err)
	require.NoError(t, core.UpdateFile(ctx, FileTypeProjectBrief, "---\ntype: projectBrief\ntitle: Brief\n---\n"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[EventInitialized] == 1 &&
			seen[EventFileCreated] == len(AllFileTypes()) &&
			seen[EventFileUpdated] == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCore_CloseRejectsFurtherLoads(t *testing.T) {
	core := newLoadedCore(t)

	require.NoError(t, core.Close())
	require.NoError(t, core.Close())

	_, err := core.LoadFiles(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "closed"))
}

func TestCore_CloseRejectsMutations(t *testing.T) {
	core := newLoadedCore(t)
	ctx := context.Background()
	require.NoError(t, core.Close())

	err := core.UpdateFile(ctx, FileTypeActiveContext, "new content")
	require.Error(t, err)
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))

	err = core.WriteFileByPath(ctx, "notes/late.md", "new content")
	require.Error(t, err)
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))

	err = core.Reindex(ctx)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))

	// Nothing reached disk.
	_, statErr := os.Stat(filepath.Join(core.Root(), "notes", "late.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCore_InstanceID(t *testing.T) {
	a := newTestCore(t)
	b := newTestCore(t)

	assert.NotEmpty(t, a.InstanceID())
	assert.NotEqual(t, a.InstanceID(), b.InstanceID())
}
