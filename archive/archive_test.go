package archive_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaduTek/YTMusicDL/archive"
)

func testClock(start time.Time) func() time.Time {
	calls := 0
	return func() time.Time {
		calls++
		return start.Add(time.Duration(calls) * time.Minute)
	}
}

func TestAddSong(t *testing.T) {
	t.Parallel()

	t.Run("RecordAndLookup", func(t *testing.T) {
		t.Parallel()
		a, err := archive.Open(filepath.Join(t.TempDir(), "archive.json"))
		require.NoError(t, err)

		require.False(t, a.SongExists("qwertyuiop"))
		require.NoError(t, a.AddSong("qwertyuiop", "Song Title", 185, "Song Title.m4a", false, false))
		require.True(t, a.SongExists("qwertyuiop"))

		entry, err := a.GetSong("qwertyuiop")
		require.NoError(t, err)
		assert.Exactly(t, "Song Title", entry.Title)
		assert.Exactly(t, 185, entry.Duration)
		assert.Exactly(t, "Song Title.m4a", entry.File)
		assert.NotEmpty(t, entry.Downloaded)

		_, err = a.GetSong("missing")
		assert.ErrorIs(t, err, archive.ErrNotFound)
	})

	t.Run("DuplicateNonStrictNoOps", func(t *testing.T) {
		t.Parallel()
		a, err := archive.Open(filepath.Join(t.TempDir(), "archive.json"))
		require.NoError(t, err)

		require.NoError(t, a.AddSong("qwertyuiop", "Original", 185, "a.m4a", false, false))
		require.NoError(t, a.AddSong("qwertyuiop", "Replacement", 200, "b.m4a", false, false))

		entry, err := a.GetSong("qwertyuiop")
		require.NoError(t, err)
		assert.Exactly(t, "Original", entry.Title)
	})

	t.Run("DuplicateStrictFails", func(t *testing.T) {
		t.Parallel()
		a, err := archive.Open(filepath.Join(t.TempDir(), "archive.json"))
		require.NoError(t, err)

		require.NoError(t, a.AddSong("qwertyuiop", "Original", 185, "a.m4a", false, true))
		err = a.AddSong("qwertyuiop", "Replacement", 200, "b.m4a", false, true)
		assert.ErrorIs(t, err, archive.ErrDuplicateEntry)
	})

	t.Run("OverwriteWins", func(t *testing.T) {
		t.Parallel()
		a, err := archive.Open(filepath.Join(t.TempDir(), "archive.json"))
		require.NoError(t, err)

		require.NoError(t, a.AddSong("qwertyuiop", "Original", 185, "a.m4a", false, false))
		require.NoError(t, a.AddSong("qwertyuiop", "Replacement", 200, "b.m4a", true, true))

		entry, err := a.GetSong("qwertyuiop")
		require.NoError(t, err)
		assert.Exactly(t, "Replacement", entry.Title)
	})
}

func TestAddPlaylist(t *testing.T) {
	t.Parallel()

	a, err := archive.Open(
		filepath.Join(t.TempDir(), "archive.json"),
		archive.WithClock(testClock(time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC))),
	)
	require.NoError(t, err)

	require.NoError(t, a.AddPlaylist("PLabc123", "My Mix", "My Mix.m3u8", []string{"s1", "s2"}))
	created, err := a.GetPlaylist("PLabc123")
	require.NoError(t, err)
	assert.Exactly(t, created.Downloaded, created.Updated, "creation stamps both timestamps")
	assert.Exactly(t, []string{"s1", "s2"}, created.Songs)

	require.NoError(t, a.AddPlaylist("PLabc123", "My Mix v2", "My Mix.m3u8", []string{"s1", "s2", "s3"}))
	updated, err := a.GetPlaylist("PLabc123")
	require.NoError(t, err)
	assert.Exactly(t, created.Downloaded, updated.Downloaded, "update keeps the original download timestamp")
	assert.NotEqual(t, updated.Downloaded, updated.Updated)
	assert.Exactly(t, "My Mix v2", updated.Title)
	assert.Exactly(t, []string{"s1", "s2", "s3"}, updated.Songs)
}

func TestGetPlaylistWithSongs(t *testing.T) {
	t.Parallel()

	t.Run("Expands", func(t *testing.T) {
		t.Parallel()
		a, err := archive.Open(filepath.Join(t.TempDir(), "archive.json"))
		require.NoError(t, err)

		require.NoError(t, a.AddSong("s1", "Track One", 185, "one.m4a", false, false))
		require.NoError(t, a.AddSong("s2", "Track Two", 241, "two.m4a", false, false))
		require.NoError(t, a.AddPlaylist("PLabc123", "My Mix", "My Mix.m3u8", []string{"s2", "s1"}))

		entry, err := a.GetPlaylistWithSongs("PLabc123")
		require.NoError(t, err)
		require.Len(t, entry.SongsData, 2)
		assert.Exactly(t, "Track Two", entry.SongsData[0].Title, "expansion preserves stored order")
		assert.Exactly(t, "Track One", entry.SongsData[1].Title)
	})

	t.Run("MissingReferenceFails", func(t *testing.T) {
		t.Parallel()
		a, err := archive.Open(filepath.Join(t.TempDir(), "archive.json"))
		require.NoError(t, err)

		require.NoError(t, a.AddPlaylist("PLabc123", "My Mix", "My Mix.m3u8", []string{"ghost"}))
		_, err = a.GetPlaylistWithSongs("PLabc123")
		assert.ErrorIs(t, err, archive.ErrNotFound)
	})
}

func TestPersistence(t *testing.T) {
	t.Parallel()

	t.Run("RoundTrip", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "archive.json")

		a, err := archive.Open(path)
		require.NoError(t, err)
		require.NoError(t, a.AddSong("qwertyuiop", "Song Title", 185, "Song Title.m4a", false, false))
		require.NoError(t, a.AddPlaylist("PLabc123", "My Mix", "My Mix.m3u8", []string{"qwertyuiop"}))

		reopened, err := archive.Open(path)
		require.NoError(t, err)
		assert.True(t, reopened.SongExists("qwertyuiop"))
		assert.True(t, reopened.PlaylistExists("PLabc123"))

		entry, err := reopened.GetPlaylistWithSongs("PLabc123")
		require.NoError(t, err)
		require.Len(t, entry.SongsData, 1)
		assert.Exactly(t, "Song Title", entry.SongsData[0].Title)
	})

	t.Run("ManualSaveBatches", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "archive.json")

		a, err := archive.Open(path, archive.WithManualSave())
		require.NoError(t, err)
		require.NoError(t, a.AddSong("qwertyuiop", "Song Title", 185, "Song Title.m4a", false, false))

		_, err = os.Stat(path)
		require.ErrorIs(t, err, os.ErrNotExist, "manual-save mode must not write on mutation")

		require.NoError(t, a.Save())
		_, err = os.Stat(path)
		require.NoError(t, err)

		reopened, err := archive.Open(path)
		require.NoError(t, err)
		assert.True(t, reopened.SongExists("qwertyuiop"))
	})

	t.Run("CleanSaveIsNoOp", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "archive.json")

		a, err := archive.Open(path)
		require.NoError(t, err)
		require.NoError(t, a.Save())
		_, err = os.Stat(path)
		assert.ErrorIs(t, err, os.ErrNotExist, "nothing to persist, nothing written")
	})

	t.Run("CorruptFileFails", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "archive.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		_, err := archive.Open(path)
		assert.Error(t, err)
	})
}
