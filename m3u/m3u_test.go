package m3u_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaduTek/YTMusicDL/archive"
	"github.com/RaduTek/YTMusicDL/m3u"
)

func TestWrite(t *testing.T) {
	t.Parallel()

	t.Run("RendersEntriesInOrder", func(t *testing.T) {
		t.Parallel()
		basePath := t.TempDir()
		w := m3u.New(zerolog.Nop())

		err := w.Write(basePath, archive.PlaylistEntry{
			Title: "My Mix",
			File:  "My Mix.m3u8",
			Songs: []string{"s1", "s2"},
			SongsData: []archive.SongEntry{
				{Title: "Track One", Duration: 185, File: "Track One.m4a"},
				{Title: "Track Two", Duration: 241, File: "Track Two.m4a"},
			},
		})
		require.NoError(t, err)

		content, err := os.ReadFile(filepath.Join(basePath, "My Mix.m3u8"))
		require.NoError(t, err)

		out := string(content)
		assert.Contains(t, out, "#EXTM3U")
		assert.Contains(t, out, "Track One.m4a")
		assert.Contains(t, out, "Track Two.m4a")
		assert.Less(t,
			strings.Index(out, "Track One.m4a"),
			strings.Index(out, "Track Two.m4a"),
			"playlist order follows the stored order",
		)
	})

	t.Run("EmptyExpansionFails", func(t *testing.T) {
		t.Parallel()
		w := m3u.New(zerolog.Nop())
		err := w.Write(t.TempDir(), archive.PlaylistEntry{Title: "Empty", File: "Empty.m3u8"})
		assert.Error(t, err)
	})
}
