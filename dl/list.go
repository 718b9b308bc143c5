package dl

import (
	"context"
	"fmt"
	"time"

	"github.com/RaduTek/YTMusicDL/archive"
	"github.com/RaduTek/YTMusicDL/errutil"
	"github.com/RaduTek/YTMusicDL/log"
	"github.com/RaduTek/YTMusicDL/ratelimit"
	"github.com/RaduTek/YTMusicDL/template"
	"github.com/RaduTek/YTMusicDL/ytmusic"
)

// Download dispatches a classified source to its download path. Album
// sources and album-shaped playlist sources take the album path.
func (d *Downloader) Download(ctx context.Context, src ytmusic.Source) error {
	switch {
	case src.Type == ytmusic.TypeAlbum,
		src.Type == ytmusic.TypePlaylist && src.Subtype == ytmusic.TypeAlbum:
		return d.DownloadAlbum(ctx, src)
	case src.Type == ytmusic.TypeSong:
		if res := d.DownloadSongFromSource(ctx, src); res.Outcome == OutcomeFailed {
			return res.Err
		} else if res.Skipped() {
			d.stats.Skipped++
		} else {
			d.stats.Songs++
		}
		return nil
	case src.Type == ytmusic.TypePlaylist:
		return d.DownloadPlaylist(ctx, src)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedSourceType, src.Type)
	}
}

// DownloadAlbum resolves the full album and downloads its songs in catalog
// track order. A failed song is logged and the loop continues; only context
// cancellation stops it.
func (d *Downloader) DownloadAlbum(ctx context.Context, src ytmusic.Source) error {
	album, err := d.GetAlbumWithSongs(ctx, src)
	if nil != err {
		return fmt.Errorf("failed to resolve album: %w", err)
	}

	d.logger.Info().Str("album", fmt.Sprintf("'%s' (%s)", album.Title, album.ID)).
		Int("tracks", album.Songs.Len()).
		Msg("Downloading album")

	for _, song := range album.Songs.Songs() {
		if errutil.IsContext(ctx) {
			return ctx.Err()
		}

		song.Album = &album.Album
		res := d.DownloadSong(ctx, song)
		switch res.Outcome {
		case OutcomeFailed:
			if errutil.IsContext(ctx) {
				return ctx.Err()
			}
			d.failure("album song", song.Title, song.ID, res.Err)
		case OutcomeSkippedArchive, OutcomeSkippedExisting:
			d.stats.Skipped++
		case OutcomeDone:
			d.stats.Songs++
			d.sleepBetweenDownloads(ctx)
		}
	}

	d.stats.Albums++
	d.logger.Info().Str("album", fmt.Sprintf("'%s' (%s)", album.Title, album.ID)).
		Msg("Downloaded album")
	return nil
}

// DownloadPlaylist resolves the playlist and downloads its songs in order,
// attaching playlist context and a playlist-relative index to each. After
// the loop it writes the playlist file when enabled; a write failure is
// logged, not fatal.
func (d *Downloader) DownloadPlaylist(ctx context.Context, src ytmusic.Source) error {
	playlist, err := d.GetPlaylistInfo(ctx, src)
	if nil != err {
		return fmt.Errorf("failed to resolve playlist: %w", err)
	}

	d.logger.Info().Str("playlist", playlist.String()).
		Int("tracks", len(playlist.Songs)).
		Msg("Downloading playlist")

	// Playlist context attached to songs carries no song list of its own.
	plCtx := *playlist
	plCtx.Songs = nil

	var (
		orderedIDs []string
		files      = make(map[string]string, len(playlist.Songs))
	)
	for i, song := range playlist.Songs {
		if errutil.IsContext(ctx) {
			return ctx.Err()
		}

		song.Playlist = &plCtx
		song.PlaylistIndex = i + 1

		res := d.DownloadSong(ctx, song)
		switch res.Outcome {
		case OutcomeFailed:
			if errutil.IsContext(ctx) {
				return ctx.Err()
			}
			d.failure("playlist song", song.Title, song.ID, res.Err)
			continue
		case OutcomeSkippedArchive, OutcomeSkippedExisting:
			d.stats.Skipped++
		case OutcomeDone:
			d.stats.Songs++
			d.sleepBetweenDownloads(ctx)
		}
		orderedIDs = append(orderedIDs, song.ID)
		files[song.ID] = res.Path
	}

	if d.cfg.WritePlaylistFile {
		if err := d.writePlaylistFile(playlist, orderedIDs, files); nil != err {
			d.stats.Warnings++
			d.logger.Warn().Str("playlist", playlist.String()).Err(err).
				Msg("Failed to write playlist file")
		}
	}

	d.stats.Playlists++
	d.logger.Info().Str("playlist", playlist.String()).Msg("Downloaded playlist")
	return nil
}

// writePlaylistFile records the playlist in the archive and hands the
// expanded entry to the playlist writer. Without an archive, the listing is
// built from the in-run id-to-path map instead.
func (d *Downloader) writePlaylistFile(playlist *ytmusic.Playlist, orderedIDs []string, files map[string]string) error {
	if d.playlistWriter == nil || len(orderedIDs) == 0 {
		return nil
	}

	fileName := template.Sanitize(playlist.Title, d.cfg.FilenameSanitizePlaceholder) + ".m3u8"

	if d.arch != nil {
		if err := d.arch.AddPlaylist(playlist.ID, playlist.Title, fileName, orderedIDs); nil != err {
			return fmt.Errorf("failed to record playlist in archive: %v", err)
		}
		entry, err := d.arch.GetPlaylistWithSongs(playlist.ID)
		if nil != err {
			return err
		}
		return d.playlistWriter.Write(d.cfg.BasePath, entry)
	}

	// No archive configured: synthesize the entry from this run only.
	entry := newRunPlaylistEntry(playlist, fileName, orderedIDs, files)
	return d.playlistWriter.Write(d.cfg.BasePath, entry)
}

func newRunPlaylistEntry(playlist *ytmusic.Playlist, fileName string, orderedIDs []string, files map[string]string) archive.PlaylistEntry {
	now := time.Now().UTC().Format(time.RFC3339)
	entry := archive.PlaylistEntry{
		Title:      playlist.Title,
		File:       fileName,
		Downloaded: now,
		Updated:    now,
		Songs:      orderedIDs,
	}
	byID := make(map[string]ytmusic.Song, len(playlist.Songs))
	for _, s := range playlist.Songs {
		byID[s.ID] = s
	}
	for _, id := range orderedIDs {
		song := byID[id]
		entry.SongsData = append(entry.SongsData, archive.SongEntry{
			Title:      song.Title,
			Duration:   song.Duration,
			File:       files[id],
			Downloaded: now,
		})
	}
	return entry
}

// DownloadMany processes the full input list with the same per-item
// isolation the inner loops use. Cancellation stops the loop early, but the
// call still returns normally so summary statistics can be emitted.
func (d *Downloader) DownloadMany(ctx context.Context, rawSources []string) Stats {
	for _, raw := range rawSources {
		if errutil.IsContext(ctx) {
			d.logger.Warn().Msg("Download interrupted")
			break
		}

		if err := d.downloadOne(ctx, raw); nil != err {
			if errutil.IsContext(ctx) {
				d.logger.Warn().Msg("Download interrupted")
				break
			}
			d.failure("source", "", raw, err)
		}
	}
	return d.stats
}

// downloadOne isolates a single top-level item, including recovery from
// collaborator panics, which are reported and treated as item failures.
func (d *Downloader) downloadOne(ctx context.Context, raw string) (err error) {
	defer func() {
		if r := recover(); nil != r {
			d.logger.Error().Func(log.Panic(r)).Str("source", raw).Msg("Panic while processing source")
			err = fmt.Errorf("panic while processing source %q: %v", raw, r)
		}
	}()

	src, err := ytmusic.Classify(raw)
	if nil != err {
		return err
	}
	return d.Download(ctx, src)
}

// sleepBetweenDownloads spaces consecutive downloads with a jittered pause.
// The pause is cancellable; cancellation surfaces on the next loop check.
func (d *Downloader) sleepBetweenDownloads(ctx context.Context) {
	t := time.NewTimer(ratelimit.SongDownloadSleep())
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
