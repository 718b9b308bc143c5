package ytmusic

import (
	"context"
	"fmt"

	"github.com/samber/lo"
)

// ReconcileAudioCounterparts replaces video-kind album tracks with their
// audio-kind equivalents from the album's companion audio playlist.
//
// The companion playlist is guaranteed by the catalog to have the same
// cardinality and order as the album track list for the same release, so
// resolution is positional: the track at position i is swapped for the
// companion entry at position i. Title matching is deliberately not used
// here (see FindSongInAlbumList for the separately-invoked fallback).
//
// A new song list is built rather than patching entries in place, so a
// cached album that shared the old list is never aliased into a half
// reconciled state. Tracks whose position is missing from a short companion
// listing are logged and dropped, not retried.
func (p *Parser) ReconcileAudioCounterparts(ctx context.Context, album *AlbumWithSongs, enum FlatPlaylistEnumerator) error {
	songs := album.Songs.Songs()
	if lo.EveryBy(songs, func(s Song) bool { return s.Kind == KindAudio }) {
		return nil
	}

	if album.PlaylistID == "" {
		return &MalformedRecordError{Field: "audioPlaylistId", Title: album.Title, ID: album.ID}
	}

	entries, err := enum.PlaylistItems(ctx, PlaylistURL(album.PlaylistID))
	if nil != err {
		return fmt.Errorf("failed to enumerate companion audio playlist %q: %w", album.PlaylistID, err)
	}

	reconciled := NewSongList()
	for i, song := range songs {
		if song.ID == "" {
			p.logger.Warn().Str("album_id", album.ID).Str("title", song.Title).
				Msg("Skipping album track with missing id")
			continue
		}
		if song.Kind == KindAudio {
			reconciled.Set(song)
			continue
		}
		if i >= len(entries) {
			p.logger.Warn().Str("album_id", album.ID).Str("title", song.Title).
				Int("position", i).Int("companion_len", len(entries)).
				Msg("Companion playlist has no entry at track position, dropping track")
			continue
		}

		counterpart := song
		counterpart.ID = entries[i].ID
		counterpart.Kind = KindAudio
		counterpart.Source, _ = Classify(entries[i].ID)
		reconciled.Set(counterpart)
	}

	album.Songs = reconciled
	return nil
}
