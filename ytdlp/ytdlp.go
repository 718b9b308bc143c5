// Package ytdlp implements the audio download and flat playlist enumeration
// collaborators on top of the yt-dlp subprocess.
package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"gopkg.in/matryer/try.v1"

	"github.com/RaduTek/YTMusicDL/config"
	"github.com/RaduTek/YTMusicDL/errutil"
	"github.com/RaduTek/YTMusicDL/ytmusic"
)

const DefaultBinary = "yt-dlp"

// formatIDs maps (audio format, quality) to the catalog's itag selector
// chain. mp3 has no native itag and is transcoded from the best opus source.
var formatIDs = map[string]map[string]string{
	config.FormatOpus: {
		config.QualityMedium: "251",
		config.QualityHigh:   "774/251",
	},
	config.FormatM4A: {
		config.QualityMedium: "140",
		config.QualityHigh:   "141/140",
	},
	config.FormatMP3: {
		config.QualityMedium: "251",
		config.QualityHigh:   "774/251",
	},
}

type Downloader struct {
	binary string
	cfg    *config.Config
	logger zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) *Downloader {
	return &Downloader{
		binary: DefaultBinary,
		cfg:    cfg,
		logger: logger.With().Str("module", "ytdlp").Logger(),
	}
}

func (d *Downloader) args(song ytmusic.Song, dest string) []string {
	args := []string{
		"--format", formatIDs[d.cfg.Format][d.cfg.Quality],
		"--extract-audio",
		"--audio-format", d.cfg.Format,
		"--output", dest + ".%(ext)s",
	}
	switch d.cfg.Format {
	case config.FormatMP3:
		// mp3 tags are embedded by the tag collaborator afterwards.
	case config.FormatM4A:
		// Baseline metadata only; the tag collaborator overwrites the
		// resolved fields and the cover afterwards.
		args = append(args, "--embed-metadata")
	case config.FormatOpus:
		args = append(args, "--embed-metadata", "--embed-thumbnail")
	}
	if d.cfg.SuppressDownloaderOutput {
		args = append(args, "--quiet", "--no-warnings", "--no-progress")
	}
	// List-parsed songs carry no source URL; the watch URL of the id is
	// canonical either way.
	return append(args, ytmusic.WatchURL(song.ID))
}

// DownloadAudio produces the media file for the song at dest (extension
// appended by yt-dlp). Transient failures are retried up to three times
// with a linear pause; cancellation is never retried.
func (d *Downloader) DownloadAudio(ctx context.Context, song ytmusic.Song, dest string) error {
	args := d.args(song, dest)

	return try.Do(func(attempt int) (bool, error) {
		const maxAttempts = 3
		attemptRemained := attempt < maxAttempts
		time.Sleep(time.Duration(attempt-1) * 3 * time.Second)

		var stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, d.binary, args...)
		cmd.Stderr = &stderr

		d.logger.Debug().Str("song", song.String()).Int("attempt", attempt).
			Strs("args", args).Msg("Invoking yt-dlp")

		if err := cmd.Run(); nil != err {
			if errutil.IsContext(ctx) {
				return false, ctx.Err()
			}
			d.logger.Warn().Str("song", song.String()).Int("attempt", attempt).
				Str("stderr", stderr.String()).Err(err).Msg("yt-dlp run failed")
			return attemptRemained, fmt.Errorf("yt-dlp failed for %s: %v: %s", song, err, stderr.String())
		}
		return false, nil
	})
}

// FlatEnumerator lists playlist entries in order without per-item detail,
// via yt-dlp's flat extraction mode.
type FlatEnumerator struct {
	binary string
	logger zerolog.Logger
}

func NewFlatEnumerator(logger zerolog.Logger) *FlatEnumerator {
	return &FlatEnumerator{
		binary: DefaultBinary,
		logger: logger.With().Str("module", "ytdlp_flat").Logger(),
	}
}

func (e *FlatEnumerator) PlaylistItems(ctx context.Context, playlistURL string) ([]ytmusic.FlatEntry, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, "--dump-single-json", "--flat-playlist", "--no-warnings", playlistURL)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); nil != err {
		if errutil.IsContext(ctx) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("yt-dlp flat extraction failed for %q: %v: %s", playlistURL, err, stderr.String())
	}

	out := stdout.Bytes()
	if !gjson.ValidBytes(out) {
		return nil, fmt.Errorf("invalid flat playlist json for %q", playlistURL)
	}

	var entries []ytmusic.FlatEntry
	gjson.GetBytes(out, "entries").ForEach(func(_, entry gjson.Result) bool {
		id := entry.Get("id").String()
		title := entry.Get("title").String()
		if id == "" || title == "" {
			return true
		}
		entries = append(entries, ytmusic.FlatEntry{ID: id, Title: title})
		return true
	})
	return entries, nil
}
