package dl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeptore/flaw/v8"

	"github.com/RaduTek/YTMusicDL/archive"
	"github.com/RaduTek/YTMusicDL/config"
	"github.com/RaduTek/YTMusicDL/errutil"
	"github.com/RaduTek/YTMusicDL/log"
	"github.com/RaduTek/YTMusicDL/ytmusic"
)

// DownloadSongFromSource resolves the song for src and runs the download
// pipeline on it.
func (d *Downloader) DownloadSongFromSource(ctx context.Context, src ytmusic.Source) Result {
	if err := src.Expect(ytmusic.TypeSong); nil != err {
		return failed(err)
	}

	// Archive gate before any fetch: a recorded song costs no network call.
	if entry, ok := d.archivedSong(src.ID); ok {
		d.logger.Info().Str("id", src.ID).Str("file", entry.File).
			Msg("Song is already in archive, skipping")
		return skippedArchive(entry.File)
	}

	var (
		song ytmusic.Song
		err  error
	)
	if d.cfg.SongFullMetadata {
		song, err = d.GetSongWithAlbum(ctx, src)
	} else {
		song, err = d.GetSongInfo(ctx, src)
	}
	if nil != err {
		return failed(err)
	}

	return d.DownloadSong(ctx, song)
}

// DownloadSong runs the pipeline on an already resolved song: merge full
// metadata if required, render the destination, gate on archive and
// filesystem state, then download, tag and archive.
func (d *Downloader) DownloadSong(ctx context.Context, song ytmusic.Song) Result {
	if d.cfg.SongFullMetadata && !song.MetadataComplete {
		src := song.Source
		if src.ID == "" {
			// List-parsed songs carry no source of their own.
			src = ytmusic.Source{URL: ytmusic.WatchURL(song.ID), ID: song.ID, Type: ytmusic.TypeSong}
		}
		full, err := d.GetSongWithAlbum(ctx, src)
		if nil != err {
			return failed(err)
		}
		// Keep list-derived context the full shape does not carry.
		full.Playlist = song.Playlist
		full.PlaylistIndex = song.PlaylistIndex
		song = full
	}

	relPath := d.tmpl.Render(song)
	fullPath := filepath.Join(d.cfg.BasePath, relPath)

	// The per-run archive gate: counterpart reconciliation may have swapped
	// the id since the caller's pre-fetch check.
	if entry, ok := d.archivedSong(song.ID); ok {
		d.logger.Info().Str("song", song.String()).Str("file", entry.File).
			Msg("Song is already in archive, skipping")
		return skippedArchive(entry.File)
	}

	if _, err := os.Stat(fullPath); nil == err {
		if d.cfg.SkipExisting {
			d.logger.Info().Str("song", song.String()).Str("file", relPath).
				Msg("Destination file exists, skipping")
			if err := d.archiveAddSong(song, relPath); nil != err {
				return failed(err)
			}
			return skippedExisting(relPath)
		}
		d.logger.Warn().Str("song", song.String()).Str("file", relPath).
			Msg("Destination file exists, overwriting")
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o0755); nil != err {
		return failed(fmt.Errorf("failed to create destination directory: %v", err))
	}

	// Opus cover art is embedded by the downloader during extraction.
	var cover []byte
	if coverURL := songCoverURL(song); coverURL != "" && d.covers != nil && d.cfg.Format != config.FormatOpus {
		c, err := d.covers.Fetch(ctx, coverURL)
		if nil != err {
			return failed(fmt.Errorf("failed to download cover art: %w", err))
		}
		cover = c
	}

	d.logger.Info().Str("song", song.String()).Str("file", relPath).Msg("Downloading song")

	dest := strings.TrimSuffix(fullPath, "."+d.cfg.Format)
	if err := d.audio.DownloadAudio(ctx, song, dest); nil != err {
		return failed(fmt.Errorf("failed to download audio: %w", err))
	}

	if d.tagger != nil {
		if err := d.tagger.Embed(ctx, fullPath, song, cover); nil != err {
			return failed(fmt.Errorf("failed to embed tags: %w", err))
		}
	}

	if err := d.archiveAddSong(song, relPath); nil != err {
		return failed(err)
	}

	d.logger.Info().Str("song", song.String()).Str("file", relPath).Msg("Downloaded song")
	return done(relPath)
}

func songCoverURL(song ytmusic.Song) string {
	if song.Album != nil && song.Album.Cover != "" {
		return song.Album.Cover
	}
	return song.Cover
}

func (d *Downloader) archivedSong(id string) (archive.SongEntry, bool) {
	if d.arch == nil || !d.arch.SongExists(id) {
		return archive.SongEntry{}, false
	}
	entry, err := d.arch.GetSong(id)
	if nil != err {
		return archive.SongEntry{}, false
	}
	return entry, true
}

func (d *Downloader) archiveAddSong(song ytmusic.Song, relPath string) error {
	if d.arch == nil {
		return nil
	}
	if err := d.arch.AddSong(song.ID, song.Title, song.Duration, relPath, true, false); nil != err {
		return fmt.Errorf("failed to record song in archive: %v", err)
	}
	return nil
}

// failure logs a per-item failure with enough context to identify the item
// and converts it into a continue-to-next-item decision. Context
// cancellation is never swallowed here; callers check for it first.
func (d *Downloader) failure(what, title, id string, err error) {
	d.stats.Errors++
	flawP := flaw.P{
		"what":           what,
		"title":          title,
		"id":             id,
		"err_debug_tree": errutil.Tree(err).FlawP(),
	}
	d.logger.Error().
		Func(log.Flaw(flaw.From(fmt.Errorf("failed to download %s: %v", what, err)).Append(flawP))).
		Str("title", title).
		Str("id", id).
		Msgf("Failed to download %s", what)
}
