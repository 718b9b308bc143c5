// Package dl drives the download pipeline: source classification, metadata
// resolution, output-path rendering, archive gating, and the external
// download/tag collaborators, with per-item failure isolation.
package dl

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/RaduTek/YTMusicDL/archive"
	"github.com/RaduTek/YTMusicDL/cache"
	"github.com/RaduTek/YTMusicDL/config"
	"github.com/RaduTek/YTMusicDL/template"
	"github.com/RaduTek/YTMusicDL/ytmusic"
)

// AudioDownloader produces the media file for a playable song id. The
// destination is handed over extension-less; the downloader appends the
// configured format's extension.
type AudioDownloader interface {
	DownloadAudio(ctx context.Context, song ytmusic.Song, dest string) error
}

// CoverFetcher retrieves and recompresses cover art.
type CoverFetcher interface {
	Fetch(ctx context.Context, coverURL string) ([]byte, error)
}

// TagEmbedder embeds resolved metadata into the downloaded media container.
type TagEmbedder interface {
	Embed(ctx context.Context, filePath string, song ytmusic.Song, cover []byte) error
}

// PlaylistWriter writes a playlist file from archived song entries.
type PlaylistWriter interface {
	Write(basePath string, playlist archive.PlaylistEntry) error
}

// Params carries the collaborators a Downloader is wired with. Catalog,
// Parser and Template are required; the rest degrade gracefully when nil
// (no archive ledger, no playlist files, no cover art).
type Params struct {
	Config         *config.Config
	Catalog        ytmusic.CatalogClient
	Flat           ytmusic.FlatPlaylistEnumerator
	Parser         *ytmusic.Parser
	Template       *template.Template
	Archive        *archive.Archive
	Cache          *cache.Cache
	Audio          AudioDownloader
	Covers         CoverFetcher
	Tagger         TagEmbedder
	PlaylistWriter PlaylistWriter
	Logger         zerolog.Logger
}

type Downloader struct {
	cfg            *config.Config
	catalog        ytmusic.CatalogClient
	flat           ytmusic.FlatPlaylistEnumerator
	parser         *ytmusic.Parser
	tmpl           *template.Template
	arch           *archive.Archive
	cache          *cache.Cache
	audio          AudioDownloader
	covers         CoverFetcher
	tagger         TagEmbedder
	playlistWriter PlaylistWriter
	logger         zerolog.Logger
	stats          Stats
}

func New(p Params) *Downloader {
	c := p.Cache
	if c == nil {
		c = cache.New()
	}
	return &Downloader{
		cfg:            p.Config,
		catalog:        p.Catalog,
		flat:           p.Flat,
		parser:         p.Parser,
		tmpl:           p.Template,
		arch:           p.Archive,
		cache:          c,
		audio:          p.Audio,
		covers:         p.Covers,
		tagger:         p.Tagger,
		playlistWriter: p.PlaylistWriter,
		logger:         p.Logger.With().Str("module", "downloader").Logger(),
		stats:          Stats{},
	}
}

// Stats returns the aggregate counters accumulated so far.
func (d *Downloader) Stats() Stats {
	return d.stats
}

// GetSongInfo resolves the lightweight song shape from the watch-context
// playlist seeded by the song id. The result is marked metadata-incomplete.
func (d *Downloader) GetSongInfo(ctx context.Context, src ytmusic.Source) (ytmusic.Song, error) {
	rec, err := d.catalog.GetWatchPlaylist(ctx, src.ID, 2)
	if nil != err {
		return ytmusic.Song{}, err
	}

	tracks := rec.Get("tracks").Array()
	if len(tracks) == 0 {
		return ytmusic.Song{}, &ytmusic.MalformedRecordError{Field: "tracks", ID: src.ID}
	}

	song, err := d.parser.ParseTrackSong(tracks[0])
	if nil != err {
		return ytmusic.Song{}, err
	}
	song.Source = src
	song.MetadataComplete = false
	return song, nil
}

// GetSongWithAlbum resolves a song together with its full album, filling in
// the album fields and the song's track index. One extra fetch per song,
// served from the album cache when the album was already seen this run.
func (d *Downloader) GetSongWithAlbum(ctx context.Context, src ytmusic.Source) (ytmusic.Song, error) {
	song, err := d.GetSongInfo(ctx, src)
	if nil != err {
		return ytmusic.Song{}, err
	}

	if song.Album == nil {
		// Nothing to merge: the watch response carried no album reference.
		return song, nil
	}

	albumSrc, err := ytmusic.Resolve(song.Album.ID, ytmusic.TypeAlbum)
	if nil != err {
		return ytmusic.Song{}, err
	}
	album, err := d.GetAlbumWithSongs(ctx, albumSrc)
	if nil != err {
		return ytmusic.Song{}, err
	}

	song.Album = &album.Album

	if entry, ok := album.Songs.Get(song.ID); ok {
		song.Index = entry.Index
	} else if _, err := ytmusic.FindSongInAlbumList(&song, album); nil != err {
		// Title-match fallback missed: continue without an index.
		d.logger.Warn().Str("song", song.String()).Str("album_id", album.ID).
			Msg("Song not found in album track list, continuing without index")
	}

	song.MetadataComplete = true
	return song, nil
}

// GetAlbumWithSongs resolves a full album (with songs) for an album source
// or an album-shaped playlist source. Resolution is cached per browse id for
// the run; counterpart reconciliation runs before the album enters the
// cache, so cached albums are always audio-resolved.
func (d *Downloader) GetAlbumWithSongs(ctx context.Context, src ytmusic.Source) (*ytmusic.AlbumWithSongs, error) {
	browseID := src.ID
	playlistID := ""

	switch {
	case src.Type == ytmusic.TypePlaylist && src.Subtype == ytmusic.TypeAlbum:
		playlistID = src.ID
		id, err := d.catalog.GetAlbumBrowseID(ctx, playlistID)
		if nil != err {
			return nil, err
		}
		browseID = id
	case src.Type == ytmusic.TypeAlbum:
	default:
		return nil, src.Expect(ytmusic.TypeAlbum)
	}

	return d.cache.Albums.Fetch(browseID, func() (*ytmusic.AlbumWithSongs, error) {
		rec, err := d.catalog.GetAlbum(ctx, browseID)
		if nil != err {
			return nil, err
		}

		album, err := d.parser.ParseAlbumWithSongs(rec, browseID)
		if nil != err {
			return nil, err
		}
		album.Source = src
		if playlistID != "" {
			album.PlaylistID = playlistID
		}

		if d.cfg.AlbumSongInsteadOfVideo && d.flat != nil {
			if err := d.parser.ReconcileAudioCounterparts(ctx, album, d.flat); nil != err {
				return nil, err
			}
		}

		return album, nil
	})
}

// GetPlaylistInfo resolves playlist metadata including its song list.
func (d *Downloader) GetPlaylistInfo(ctx context.Context, src ytmusic.Source) (*ytmusic.Playlist, error) {
	if err := src.Expect(ytmusic.TypePlaylist); nil != err {
		return nil, err
	}

	rec, err := d.catalog.GetPlaylist(ctx, src.ID, d.cfg.PlaylistLimit)
	if nil != err {
		return nil, err
	}

	playlist, err := d.parser.ParsePlaylist(rec)
	if nil != err {
		return nil, err
	}
	playlist.Source = src
	return playlist, nil
}
