package ytmusic

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

var (
	coverSizeSuffixRe = regexp.MustCompile(`=s\d+$`)
	coverCropSuffixRe = regexp.MustCompile(`=w\d+-h\d+-.*$`)
)

// Parser maps raw catalog response records onto the data model. Records are
// loosely typed and endpoint-dependent; nothing raw escapes this boundary.
type Parser struct {
	coverSize int
	logger    zerolog.Logger
}

func NewParser(coverSize int, logger zerolog.Logger) *Parser {
	return &Parser{coverSize: coverSize, logger: logger.With().Str("module", "parser").Logger()}
}

// LengthToSeconds converts a colon-delimited mm:ss or h:mm:ss duration
// string to seconds.
func LengthToSeconds(length string) (int, error) {
	parts := strings.Split(strings.TrimSpace(length), ":")
	seconds := 0
	unit := 1
	for i := len(parts) - 1; i >= 0; i-- {
		var n int
		if _, err := fmt.Sscanf(parts[i], "%d", &n); nil != err {
			return 0, fmt.Errorf("invalid duration string %q: %v", length, err)
		}
		seconds += n * unit
		unit *= 60
	}
	return seconds, nil
}

// SecondsToLength formats seconds as mm:ss, or h:mm:ss past one hour.
func SecondsToLength(seconds int) string {
	minutes, secs := seconds/60, seconds%60
	hours, minutes := minutes/60, minutes%60
	if hours == 0 {
		return fmt.Sprintf("%02d:%02d", minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

func parseArtists(res gjson.Result) []Artist {
	var artists []Artist
	res.ForEach(func(_, a gjson.Result) bool {
		artists = append(artists, Artist{Name: a.Get("name").String(), ID: a.Get("id").String()})
		return true
	})
	return artists
}

// ParseCoverArt picks a cover URL from a thumbnails array, preferring a
// direct rewrite of the catalog's resize parameters over candidate scanning.
func (p *Parser) ParseCoverArt(thumbs gjson.Result) (string, error) {
	candidates := thumbs.Array()
	if len(candidates) == 0 {
		return "", &MalformedRecordError{Field: "thumbnails"}
	}

	// The last candidate is the catalog's best-guess largest rendition.
	last := candidates[len(candidates)-1].Get("url").String()

	// URL carries an explicit '=s<digits>' resize suffix: rewrite the digits.
	if coverSizeSuffixRe.MatchString(last) {
		return coverSizeSuffixRe.ReplaceAllString(last, "=s") + fmt.Sprint(p.coverSize), nil
	}

	// URL carries a '=w<d>-h<d>-*' crop suffix: rewrite to a plain size request.
	if coverCropSuffixRe.MatchString(last) {
		return coverCropSuffixRe.ReplaceAllString(last, "=s") + fmt.Sprint(p.coverSize), nil
	}

	// Fall back to the widest candidate that still fits the requested size.
	sorted := make([]gjson.Result, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Get("width").Int() > sorted[j].Get("width").Int()
	})
	for _, c := range sorted {
		if int(c.Get("width").Int()) <= p.coverSize {
			return c.Get("url").String(), nil
		}
	}
	return sorted[0].Get("url").String(), nil
}

// ParseTrackSong maps a single track record onto a Song. The record shape
// varies with the endpoint that produced it; required fields are the id and
// title, everything else is filled best-effort.
func (p *Parser) ParseTrackSong(rec gjson.Result) (Song, error) {
	id := rec.Get("videoId").String()
	title := rec.Get("title").String()
	if id == "" {
		return Song{}, &MalformedRecordError{Field: "videoId", Title: title}
	}
	if title == "" {
		return Song{}, &MalformedRecordError{Field: "title", ID: id}
	}

	song := Song{ID: id, Title: title}

	if vt := rec.Get("videoType"); vt.Exists() {
		// Unknown tags leave the kind unset on purpose.
		song.Kind = videoTypeKinds[vt.String()]
	}

	// Watch-playlist records carry 'thumbnail', everything else 'thumbnails'.
	if thumbs := rec.Get("thumbnail"); thumbs.IsArray() && len(thumbs.Array()) > 0 {
		if cover, err := p.ParseCoverArt(thumbs); nil == err {
			song.Cover = cover
		}
	} else if thumbs := rec.Get("thumbnails"); thumbs.IsArray() && len(thumbs.Array()) > 0 {
		if cover, err := p.ParseCoverArt(thumbs); nil == err {
			song.Cover = cover
		}
	}

	// Exactly one of these three is populated, depending on the endpoint.
	switch {
	case rec.Get("duration_seconds").Exists():
		song.Duration = int(rec.Get("duration_seconds").Int())
	case rec.Get("duration").Exists():
		secs, err := LengthToSeconds(rec.Get("duration").String())
		if nil != err {
			return Song{}, &MalformedRecordError{Field: "duration", Title: title, ID: id}
		}
		song.Duration = secs
	case rec.Get("length").Exists():
		secs, err := LengthToSeconds(rec.Get("length").String())
		if nil != err {
			return Song{}, &MalformedRecordError{Field: "length", Title: title, ID: id}
		}
		song.Duration = secs
	}

	if n := rec.Get("trackNumber"); n.Exists() {
		song.Index = int(n.Int())
	}
	if y := rec.Get("year"); y.Exists() {
		song.Year = int(y.Int())
	}

	// Album appears as a structured object on watch-playlist records and as
	// a bare display string on album tracks; only the object form is usable.
	if album := rec.Get("album"); album.IsObject() {
		song.Album = &Album{ID: album.Get("id").String(), Title: album.Get("name").String()}
	}

	if artists := rec.Get("artists"); artists.IsArray() {
		song.Artists = parseArtists(artists)
	}

	return song, nil
}

// ParseAlbumWithSongs maps an album browse record onto an AlbumWithSongs.
// Tracks that fail to parse are logged and skipped; the album only fails as
// a whole when required album fields or the track list are missing.
func (p *Parser) ParseAlbumWithSongs(rec gjson.Result, browseID string) (*AlbumWithSongs, error) {
	title := rec.Get("title").String()
	if title == "" {
		return nil, &MalformedRecordError{Field: "title", ID: browseID}
	}
	tracks := rec.Get("tracks")
	if !tracks.IsArray() {
		return nil, &MalformedRecordError{Field: "tracks", Title: title, ID: browseID}
	}

	album := &AlbumWithSongs{
		Album: Album{
			ID:          browseID,
			PlaylistID:  rec.Get("audioPlaylistId").String(),
			Title:       title,
			Type:        rec.Get("type").String(),
			Year:        int(rec.Get("year").Int()),
			Duration:    int(rec.Get("duration_seconds").Int()),
			TotalTracks: int(rec.Get("trackCount").Int()),
			Artists:     parseArtists(rec.Get("artists")),
		},
		Songs: NewSongList(),
	}
	if cover, err := p.ParseCoverArt(rec.Get("thumbnails")); nil == err {
		album.Cover = cover
	}

	index := 0
	tracks.ForEach(func(_, trackRec gjson.Result) bool {
		index++
		song, err := p.ParseTrackSong(trackRec)
		if nil != err {
			p.logger.Warn().
				Str("album_id", browseID).
				Str("track_title", trackRec.Get("title").String()).
				Str("track_id", trackRec.Get("videoId").String()).
				Err(err).
				Msg("Failed to parse album track, skipping")
			return true
		}
		if song.Index == 0 {
			song.Index = index
		}
		song.Source, _ = Classify(song.ID)
		song.MetadataComplete = true
		album.Songs.Set(song)
		return true
	})

	return album, nil
}

// ParsePlaylist maps a playlist record onto a Playlist. Like album parsing,
// individual track failures are logged and skipped.
func (p *Parser) ParsePlaylist(rec gjson.Result) (*Playlist, error) {
	id := rec.Get("id").String()
	title := rec.Get("title").String()
	if id == "" {
		return nil, &MalformedRecordError{Field: "id", Title: title}
	}
	if title == "" {
		return nil, &MalformedRecordError{Field: "title", ID: id}
	}
	tracks := rec.Get("tracks")
	if !tracks.IsArray() {
		return nil, &MalformedRecordError{Field: "tracks", Title: title, ID: id}
	}

	playlist := &Playlist{
		ID:          id,
		Title:       title,
		Year:        int(rec.Get("year").Int()),
		Duration:    int(rec.Get("duration_seconds").Int()),
		TotalTracks: int(rec.Get("trackCount").Int()),
		Visibility:  rec.Get("privacy").String(),
		Description: rec.Get("description").String(),
	}

	// The author field is an object for single-owner playlists and an
	// array for collaborative ones.
	if author := rec.Get("author"); author.IsObject() {
		playlist.Authors = []Artist{{Name: author.Get("name").String(), ID: author.Get("id").String()}}
	} else if author.IsArray() {
		playlist.Authors = parseArtists(author)
	}

	if cover, err := p.ParseCoverArt(rec.Get("thumbnails")); nil == err {
		playlist.Cover = cover
	}

	tracks.ForEach(func(_, trackRec gjson.Result) bool {
		song, err := p.ParseTrackSong(trackRec)
		if nil != err {
			p.logger.Warn().
				Str("playlist_id", id).
				Str("track_title", trackRec.Get("title").String()).
				Str("track_id", trackRec.Get("videoId").String()).
				Err(err).
				Msg("Failed to parse playlist track, skipping")
			return true
		}
		song.Source, _ = Classify(song.ID)
		playlist.Songs = append(playlist.Songs, song)
		return true
	})

	return playlist, nil
}

// FindSongInAlbumList locates song inside a separately fetched album's song
// map by case-insensitive exact title match. On a match the matched entry is
// re-keyed under the song's id and the matched track index is copied onto
// the song. Used as fallback when positional counterpart resolution did not
// cover the song.
func FindSongInAlbumList(song *Song, album *AlbumWithSongs) (int, error) {
	for _, entry := range album.Songs.Songs() {
		if !strings.EqualFold(song.Title, entry.Title) {
			continue
		}

		oldID := entry.ID
		entry.ID = song.ID
		entry.Kind = song.Kind
		entry.Duration = song.Duration
		album.Songs.ReplaceKey(oldID, entry)

		song.Index = entry.Index
		return entry.Index, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrSongNotFound, song)
}
