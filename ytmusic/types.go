package ytmusic

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Kind distinguishes audio-only tracks from music videos. The catalog
// frequently substitutes video records for album tracks, which must be
// reconciled back to their audio counterparts before download.
type Kind string

const (
	KindUnknown Kind = ""
	KindAudio   Kind = "audio"
	KindVideo   Kind = "video"
)

// videoTypeKinds maps the catalog's internal video-type tags to a Kind.
// Tags absent from this table leave the kind unset, which reconciliation
// treats as video: a spurious positional swap is harmless, a missed one
// downloads a video.
var videoTypeKinds = map[string]Kind{
	"MUSIC_VIDEO_TYPE_ATV":                   KindAudio,
	"MUSIC_VIDEO_TYPE_OMV":                   KindVideo,
	"MUSIC_VIDEO_TYPE_UGC":                   KindVideo,
	"MUSIC_VIDEO_TYPE_OFFICIAL_SOURCE_MUSIC": KindVideo,
}

type Artist struct {
	Name string
	ID   string
}

func JoinArtists(artists []Artist, sep string) string {
	return strings.Join(lo.Map(artists, func(a Artist, _ int) string { return a.Name }), sep)
}

type Album struct {
	ID          string
	PlaylistID  string
	Title       string
	Type        string
	Year        int
	Duration    int
	TotalTracks int
	Artists     []Artist
	Cover       string
}

// AlbumWithSongs is an Album plus its track list in catalog track order.
type AlbumWithSongs struct {
	Album
	Songs  SongList
	Source Source
}

type Song struct {
	ID            string
	Title         string
	Duration      int
	Year          int
	Kind          Kind
	Artists       []Artist
	Cover         string
	Lyrics        string
	LyricsSource  string
	Index         int
	PlaylistIndex int
	Album         *Album
	Playlist      *Playlist

	// MetadataComplete marks a song that has been merged with its full
	// album resolution, as opposed to the cheap shape produced by list
	// and search responses.
	MetadataComplete bool

	Source Source
}

func (s Song) String() string {
	return fmt.Sprintf("'%s' (%s)", s.Title, s.ID)
}

type Playlist struct {
	ID          string
	Title       string
	Authors     []Artist
	Year        int
	Duration    int
	TotalTracks int
	Visibility  string
	Description string
	Cover       string
	Songs       []Song
	Source      Source
}

func (p Playlist) String() string {
	return fmt.Sprintf("'%s' (%s)", p.Title, p.ID)
}

// SongList is an insertion-ordered song map keyed by song id. Insertion
// order is the catalog track order.
type SongList struct {
	order []string
	items map[string]Song
}

func NewSongList() SongList {
	return SongList{order: nil, items: make(map[string]Song)}
}

// Set appends the song keyed by its id, or replaces the existing entry
// in place when the id is already present.
func (l *SongList) Set(s Song) {
	if l.items == nil {
		l.items = make(map[string]Song)
	}
	if _, ok := l.items[s.ID]; !ok {
		l.order = append(l.order, s.ID)
	}
	l.items[s.ID] = s
}

func (l *SongList) Get(id string) (Song, bool) {
	s, ok := l.items[id]
	return s, ok
}

func (l *SongList) Len() int {
	return len(l.order)
}

// Songs returns the entries in insertion order.
func (l *SongList) Songs() []Song {
	out := make([]Song, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.items[id])
	}
	return out
}

// ReplaceKey re-keys the entry at oldID under s.ID, keeping its position.
func (l *SongList) ReplaceKey(oldID string, s Song) bool {
	if _, ok := l.items[oldID]; !ok {
		return false
	}
	delete(l.items, oldID)
	for i, id := range l.order {
		if id == oldID {
			l.order[i] = s.ID
			break
		}
	}
	l.items[s.ID] = s
	return true
}
