// Package m3u writes downloaded playlists as extended M3U files next to the
// audio files they reference.
package m3u

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/grafov/m3u8"
	"github.com/rs/zerolog"

	"github.com/RaduTek/YTMusicDL/archive"
)

type Writer struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Writer {
	return &Writer{logger: logger.With().Str("module", "m3u").Logger()}
}

// Write renders the playlist's expanded song entries, in their stored
// order, to basePath/<playlist file>.
func (w *Writer) Write(basePath string, playlist archive.PlaylistEntry) (err error) {
	if len(playlist.SongsData) == 0 {
		return fmt.Errorf("playlist %q has no expanded song entries", playlist.Title)
	}

	pl, err := m3u8.NewMediaPlaylist(0, uint(len(playlist.SongsData)))
	if nil != err {
		return fmt.Errorf("failed to create media playlist: %v", err)
	}
	pl.MediaType = m3u8.VOD

	for _, song := range playlist.SongsData {
		if err := pl.Append(song.File, float64(song.Duration), song.Title); nil != err {
			return fmt.Errorf("failed to append %q to playlist: %v", song.Title, err)
		}
	}
	pl.Close()

	filePath := filepath.Join(basePath, playlist.File)
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o0644)
	if nil != err {
		return fmt.Errorf("failed to create playlist file %q: %v", filePath, err)
	}
	defer func() {
		if closeErr := f.Close(); nil != closeErr && nil == err {
			err = fmt.Errorf("failed to close playlist file: %v", closeErr)
		}
	}()

	if _, err := f.Write(pl.Encode().Bytes()); nil != err {
		return fmt.Errorf("failed to write playlist file %q: %v", filePath, err)
	}

	w.logger.Info().Str("file", filePath).Int("songs", len(playlist.SongsData)).
		Msg("Wrote playlist file")
	return nil
}
