// Package archive persists the ledger of downloaded songs and playlists
// that makes re-runs idempotent. The backing store is a single JSON
// document, loaded once at startup and rewritten atomically after each
// mutation (or on demand when save-on-change is disabled).
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

var (
	// ErrNotFound marks a lookup miss in the song or playlist ledger.
	ErrNotFound = errors.New("entry not found in archive")

	// ErrDuplicateEntry marks a strict-mode insert over an existing id.
	ErrDuplicateEntry = errors.New("entry already exists in archive")
)

// SongEntry is the durable record of one downloaded song.
type SongEntry struct {
	Title      string `json:"title"`
	Duration   int    `json:"duration"`
	File       string `json:"file"`
	Downloaded string `json:"downloaded"`
}

// PlaylistEntry is the durable record of one downloaded playlist. Songs
// holds the playlist's song ids in catalog track order; SongsData is only
// populated on expansion, never persisted back.
type PlaylistEntry struct {
	Title      string      `json:"title"`
	File       string      `json:"file"`
	Downloaded string      `json:"downloaded"`
	Updated    string      `json:"updated"`
	Songs      []string    `json:"songs"`
	SongsData  []SongEntry `json:"songs_data,omitempty"`
}

type document struct {
	Songs     map[string]SongEntry     `json:"songs"`
	Playlists map[string]PlaylistEntry `json:"playlists"`
}

// Archive is the persisted download ledger. It is single-writer: the
// orchestrator is strictly sequential, so no locking is needed.
type Archive struct {
	filePath     string
	saveOnChange bool
	dirty        bool
	data         document
	now          func() time.Time
}

// Option tweaks archive construction.
type Option func(*Archive)

// WithManualSave disables the default save-after-every-mutation discipline;
// the caller batches writes with explicit Save calls.
func WithManualSave() Option {
	return func(a *Archive) { a.saveOnChange = false }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) { a.now = now }
}

// Open loads the archive document at filePath, creating an empty ledger
// when the file does not exist yet.
func Open(filePath string, opts ...Option) (*Archive, error) {
	a := &Archive{
		filePath:     filePath,
		saveOnChange: true,
		dirty:        false,
		data: document{
			Songs:     make(map[string]SongEntry),
			Playlists: make(map[string]PlaylistEntry),
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	raw, err := os.ReadFile(filePath)
	if nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return a, nil
		}
		return nil, fmt.Errorf("failed to read archive file %q: %v", filePath, err)
	}

	if err := json.Unmarshal(raw, &a.data); nil != err {
		return nil, fmt.Errorf("failed to decode archive file %q: %v", filePath, err)
	}
	if a.data.Songs == nil {
		a.data.Songs = make(map[string]SongEntry)
	}
	if a.data.Playlists == nil {
		a.data.Playlists = make(map[string]PlaylistEntry)
	}

	return a, nil
}

func (a *Archive) timestamp() string {
	return a.now().UTC().Format(time.RFC3339)
}

// Save rewrites the backing document if there are unsaved changes. The write
// is all-or-nothing: the document is written to a temporary file in the same
// directory and renamed over the old one.
func (a *Archive) Save() (err error) {
	if !a.dirty {
		return nil
	}

	content, err := json.MarshalIndent(a.data, "", "    ")
	if nil != err {
		return fmt.Errorf("failed to encode archive document: %v", err)
	}

	dir := filepath.Dir(a.filePath)
	tmp, err := os.CreateTemp(dir, filepath.Base(a.filePath)+".*.tmp")
	if nil != err {
		return fmt.Errorf("failed to create temporary archive file: %v", err)
	}
	defer func() {
		if nil != err {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(content); nil != err {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temporary archive file: %v", err)
	}
	if err := tmp.Sync(); nil != err {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temporary archive file: %v", err)
	}
	if err := tmp.Close(); nil != err {
		return fmt.Errorf("failed to close temporary archive file: %v", err)
	}
	if err := os.Rename(tmp.Name(), a.filePath); nil != err {
		return fmt.Errorf("failed to replace archive file: %v", err)
	}

	a.dirty = false
	return nil
}

func (a *Archive) saveIfConfigured() error {
	if a.saveOnChange {
		return a.Save()
	}
	return nil
}

func (a *Archive) SongExists(id string) bool {
	_, ok := a.data.Songs[id]
	return ok
}

// AddSong records a downloaded song. With strict set, an existing id that
// may not be overwritten fails with ErrDuplicateEntry; otherwise the call
// upserts (overwrite true) or no-ops (overwrite false) silently.
func (a *Archive) AddSong(id, title string, duration int, file string, overwrite, strict bool) error {
	if a.SongExists(id) && !overwrite {
		if strict {
			return fmt.Errorf("%w: song %q", ErrDuplicateEntry, id)
		}
		return nil
	}

	a.data.Songs[id] = SongEntry{
		Title:      title,
		Duration:   duration,
		File:       file,
		Downloaded: a.timestamp(),
	}
	a.dirty = true

	return a.saveIfConfigured()
}

func (a *Archive) GetSong(id string) (SongEntry, error) {
	entry, ok := a.data.Songs[id]
	if !ok {
		return SongEntry{}, fmt.Errorf("%w: song %q", ErrNotFound, id)
	}
	return entry, nil
}

func (a *Archive) PlaylistExists(id string) bool {
	_, ok := a.data.Playlists[id]
	return ok
}

// AddPlaylist upserts a playlist entry. Creation stamps both Downloaded and
// Updated; an update refreshes only Updated along with title, file and the
// song id list.
func (a *Archive) AddPlaylist(id, title, file string, songIDs []string) error {
	now := a.timestamp()
	if existing, ok := a.data.Playlists[id]; ok {
		existing.Title = title
		existing.File = file
		existing.Updated = now
		existing.Songs = append([]string(nil), songIDs...)
		a.data.Playlists[id] = existing
	} else {
		a.data.Playlists[id] = PlaylistEntry{
			Title:      title,
			File:       file,
			Downloaded: now,
			Updated:    now,
			Songs:      append([]string(nil), songIDs...),
		}
	}
	a.dirty = true

	return a.saveIfConfigured()
}

func (a *Archive) GetPlaylist(id string) (PlaylistEntry, error) {
	entry, ok := a.data.Playlists[id]
	if !ok {
		return PlaylistEntry{}, fmt.Errorf("%w: playlist %q", ErrNotFound, id)
	}
	return entry, nil
}

// GetPlaylistWithSongs expands the stored song id list into full song
// entries. A referenced id missing from the song ledger indicates a
// corrupted or partial archive and fails the expansion.
func (a *Archive) GetPlaylistWithSongs(id string) (PlaylistEntry, error) {
	entry, err := a.GetPlaylist(id)
	if nil != err {
		return PlaylistEntry{}, err
	}

	entry.SongsData = make([]SongEntry, 0, len(entry.Songs))
	for _, songID := range entry.Songs {
		song, err := a.GetSong(songID)
		if nil != err {
			return PlaylistEntry{}, fmt.Errorf("playlist %q references unknown song: %w", id, err)
		}
		entry.SongsData = append(entry.SongsData, song)
	}
	return entry, nil
}
