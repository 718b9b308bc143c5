package ytmusic

import (
	"fmt"
	"net/url"
	"strings"
)

// Type classifies where a source points inside the catalog.
type Type string

const (
	TypeSong     Type = "song"
	TypePlaylist Type = "playlist"
	TypeAlbum    Type = "album"
	TypeArtist   Type = "artist"
	TypeLibrary  Type = "library"
)

// Source identifies where a download request originated. It is immutable
// once constructed; classifying a new raw string derives a new value.
type Source struct {
	URL     string
	ID      string
	Type    Type
	Subtype Type
}

const baseURL = "https://music.youtube.com/"

func WatchURL(id string) string    { return baseURL + "watch?v=" + id }
func PlaylistURL(id string) string { return baseURL + "playlist?list=" + id }
func BrowseURL(id string) string   { return baseURL + "browse/" + id }

// classifyID determines the type of a bare catalog id by literal prefix.
func classifyID(id string) Type {
	switch {
	case strings.HasPrefix(id, "OLAK5uy_"), strings.HasPrefix(id, "MPRE"):
		return TypeAlbum
	case strings.HasPrefix(id, "PL"), strings.HasPrefix(id, "LM"):
		return TypePlaylist
	default:
		return TypeSong
	}
}

func classifyBareID(id string) Source {
	switch id {
	case "liked_songs":
		// The catalog exposes liked songs as the reserved playlist id LM.
		return Source{URL: PlaylistURL("LM"), ID: "LM", Type: TypePlaylist, Subtype: "liked_songs"}
	case "library_songs":
		return Source{URL: baseURL + "library/songs", ID: id, Type: TypeLibrary}
	}

	src := Source{ID: id, Type: classifyID(id)}
	switch src.Type {
	case TypeSong:
		src.URL = WatchURL(id)
	case TypePlaylist:
		src.URL = PlaylistURL(id)
	case TypeAlbum:
		src.URL = BrowseURL(id)
	}
	return src
}

func classifyURL(raw string) (Source, error) {
	u, err := url.Parse(raw)
	if nil != err {
		return Source{}, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}

	switch u.Host {
	case "youtu.be":
		// Short-link host: the path is the video id.
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		id := segments[len(segments)-1]
		if id == "" {
			return Source{}, fmt.Errorf("%w: short link %q has no id", ErrInvalidSource, raw)
		}
		return Source{URL: raw, ID: id, Type: TypeSong}, nil
	case "music.youtube.com", "www.music.youtube.com", "youtube.com", "www.youtube.com":
	default:
		return Source{}, fmt.Errorf("%w: unrecognized host %q", ErrInvalidSource, u.Host)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	query := u.Query()
	switch segments[0] {
	case "watch":
		id := query.Get("v")
		if id == "" {
			return Source{}, fmt.Errorf("%w: watch URL %q has no 'v' parameter", ErrInvalidSource, raw)
		}
		return Source{URL: raw, ID: id, Type: TypeSong}, nil
	case "playlist":
		id := query.Get("list")
		if id == "" {
			return Source{}, fmt.Errorf("%w: playlist URL %q has no 'list' parameter", ErrInvalidSource, raw)
		}
		src := Source{URL: raw, ID: id, Type: TypePlaylist}
		// An album-shaped list id marks a companion playlist of an album.
		// A plain playlist id carries no meaningful subtype.
		if sub := classifyID(id); sub != TypePlaylist {
			src.Subtype = sub
		}
		return src, nil
	case "browse":
		id := segments[len(segments)-1]
		if id == "" || id == "browse" {
			return Source{}, fmt.Errorf("%w: browse URL %q has no id", ErrInvalidSource, raw)
		}
		return Source{URL: raw, ID: id, Type: TypeAlbum}, nil
	default:
		return Source{}, fmt.Errorf("%w: unrecognized URL path %q", ErrInvalidSource, u.Path)
	}
}

// Classify parses a raw URL or bare catalog id into a typed Source.
func Classify(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, fmt.Errorf("%w: empty string", ErrInvalidSource)
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return classifyURL(raw)
	}
	return classifyBareID(raw), nil
}

// Expect fails when the source's resolved type differs from expected.
// An empty expected type accepts anything.
func (s Source) Expect(expected Type) error {
	if expected != "" && s.Type != expected {
		return fmt.Errorf("%w: got %q, expected %q", ErrSourceTypeMismatch, s.Type, expected)
	}
	return nil
}

// Resolve classifies raw and enforces the expected type in one step.
func Resolve(raw string, expected Type) (Source, error) {
	src, err := Classify(raw)
	if nil != err {
		return Source{}, err
	}
	if err := src.Expect(expected); nil != err {
		return Source{}, err
	}
	return src, nil
}
