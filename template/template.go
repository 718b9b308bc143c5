// Package template implements the output-path template engine. A template is
// literal text interspersed with placeholders of the form {k1|k2|...|kn} or
// {k1|k2|...|kn+suffix}: keys are tried left to right and the first one that
// resolves to a known, non-empty value wins.
package template

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/RaduTek/YTMusicDL/ytmusic"
)

type Rule string

const (
	RuleMissingExtSuffix  Rule = "template must end with '.{ext}'"
	RuleUnbalancedBraces  Rule = "opening and closing brace counts differ"
	RuleUnterminatedBrace Rule = "unterminated brace"
	RuleEmptyBrace        Rule = "empty brace pair"
	RuleNestedBrace       Rule = "nested brace"
)

// SyntaxError reports which validation rule a template breaks. Template
// validation happens once at configuration time; rendering assumes a valid
// template.
type SyntaxError struct {
	Rule Rule
	Pos  int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template syntax error at offset %d: %s", e.Pos, e.Rule)
}

// Check validates a template against the placeholder grammar.
func Check(tpl string) error {
	if !strings.HasSuffix(tpl, ".{ext}") {
		return &SyntaxError{Rule: RuleMissingExtSuffix, Pos: len(tpl)}
	}
	if strings.Count(tpl, "{") != strings.Count(tpl, "}") {
		return &SyntaxError{Rule: RuleUnbalancedBraces, Pos: 0}
	}
	for i := 0; i < len(tpl); i++ {
		if tpl[i] != '{' {
			continue
		}
		close := strings.IndexByte(tpl[i+1:], '}')
		if close < 0 {
			return &SyntaxError{Rule: RuleUnterminatedBrace, Pos: i}
		}
		keys := tpl[i+1 : i+1+close]
		if keys == "" {
			return &SyntaxError{Rule: RuleEmptyBrace, Pos: i}
		}
		if strings.ContainsRune(keys, '{') {
			return &SyntaxError{Rule: RuleNestedBrace, Pos: i}
		}
		i += close + 1
	}
	return nil
}

// Options configures value formatting and sanitization for rendering.
type Options struct {
	// Extension is the configured output file extension, bound to the 'ext'
	// key. It is the only value exempt from filename sanitization.
	Extension string
	// ArtistSeparator joins multi-artist lists for the *_artists keys.
	ArtistSeparator string
	// SanitizePlaceholder substitutes characters outside the filename
	// allow-list.
	SanitizePlaceholder string
	// Unknown is emitted when no key of a placeholder resolves and the
	// placeholder is not marked optional.
	Unknown string

	DateFormat     string
	TimeFormat     string
	DateTimeFormat string

	// Clock supplies the render-time timestamp for the date/time keys.
	// Defaults to time.Now.
	Clock func() time.Time
}

// Template is a validated output-path template.
type Template struct {
	raw  string
	opts Options
}

// New validates tpl and binds it to opts.
func New(tpl string, opts Options) (*Template, error) {
	if err := Check(tpl); nil != err {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Template{raw: tpl, opts: opts}, nil
}

const filenameAllowedChars = " .,!@#$()[]-+=_"

// Sanitize replaces every character that is not alphanumeric or in the
// filename allow-list with the placeholder and strips a single trailing dot.
func Sanitize(value, placeholder string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune(filenameAllowedChars, r):
			b.WriteRune(r)
		default:
			b.WriteString(placeholder)
		}
	}
	out := b.String()
	out = strings.TrimSuffix(out, ".")
	return out
}

func setIfPositive(values map[string]string, key string, n int) {
	if n > 0 {
		values[key] = strconv.Itoa(n)
	}
}

func setIfNonEmpty(values map[string]string, key, v string) {
	if v != "" {
		values[key] = v
	}
}

// values collects every resolvable key for the song. Missing namespaces
// (no album, no playlist) simply contribute no keys: a reference to them is
// a lookup miss at render time, not an error.
func (t *Template) values(song ytmusic.Song) map[string]string {
	values := make(map[string]string, 32)

	setIfNonEmpty(values, "song_id", song.ID)
	setIfNonEmpty(values, "song_title", song.Title)
	setIfNonEmpty(values, "song_type", string(song.Kind))
	setIfPositive(values, "song_duration", song.Duration)
	setIfPositive(values, "song_year", song.Year)
	setIfPositive(values, "song_index", song.Index)
	setIfPositive(values, "song_playlist_index", song.PlaylistIndex)
	if len(song.Artists) > 0 {
		values["song_artist"] = song.Artists[0].Name
		values["song_artists"] = ytmusic.JoinArtists(song.Artists, t.opts.ArtistSeparator)
	}

	if album := song.Album; album != nil {
		setIfNonEmpty(values, "album_id", album.ID)
		setIfNonEmpty(values, "album_playlist_id", album.PlaylistID)
		setIfNonEmpty(values, "album_title", album.Title)
		setIfNonEmpty(values, "album_type", album.Type)
		setIfPositive(values, "album_year", album.Year)
		setIfPositive(values, "album_duration", album.Duration)
		setIfPositive(values, "album_total", album.TotalTracks)
		if len(album.Artists) > 0 {
			values["album_artist"] = album.Artists[0].Name
			values["album_artists"] = ytmusic.JoinArtists(album.Artists, t.opts.ArtistSeparator)
		}
	}

	if pl := song.Playlist; pl != nil {
		setIfNonEmpty(values, "playlist_id", pl.ID)
		setIfNonEmpty(values, "playlist_title", pl.Title)
		setIfNonEmpty(values, "playlist_visibility", pl.Visibility)
		setIfPositive(values, "playlist_year", pl.Year)
		setIfPositive(values, "playlist_duration", pl.Duration)
		setIfPositive(values, "playlist_total", pl.TotalTracks)
		if len(pl.Authors) > 0 {
			values["playlist_author"] = pl.Authors[0].Name
			values["playlist_authors"] = ytmusic.JoinArtists(pl.Authors, t.opts.ArtistSeparator)
		}
	}

	now := t.opts.Clock()
	values["date"] = now.Format(t.opts.DateFormat)
	values["time"] = now.Format(t.opts.TimeFormat)
	values["date_time"] = now.Format(t.opts.DateTimeFormat)
	values["datetime"] = values["date_time"]

	for k, v := range values {
		values[k] = Sanitize(v, t.opts.SanitizePlaceholder)
	}

	// The extension must survive verbatim.
	values["ext"] = t.opts.Extension

	return values
}

// Render substitutes song values into the template. The template has been
// validated by New, so the scan assumes well-formed placeholders.
func (t *Template) Render(song ytmusic.Song) string {
	values := t.values(song)

	var out strings.Builder
	out.Grow(len(t.raw))
	for i := 0; i < len(t.raw); i++ {
		if t.raw[i] != '{' {
			out.WriteByte(t.raw[i])
			continue
		}

		close := strings.IndexByte(t.raw[i+1:], '}')
		keysExpr := t.raw[i+1 : i+1+close]
		i += close + 1

		// '+' splits a trailing suffix emitted only after a matched key.
		keysExpr, suffix, _ := strings.Cut(keysExpr, "+")
		keys := strings.Split(keysExpr, "|")

		matched := ""
		for _, key := range keys {
			if v := values[key]; v != "" {
				matched = v
				break
			}
		}

		switch {
		case matched != "":
			out.WriteString(matched)
			out.WriteString(suffix)
		case keys[len(keys)-1] == "":
			// Empty last key: the whole placeholder is optional.
		default:
			out.WriteString(t.opts.Unknown)
		}
	}
	return out.String()
}
