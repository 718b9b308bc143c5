package ytmusic

import (
	"context"

	"github.com/tidwall/gjson"
)

// CatalogClient is the boundary to the external catalog API. Implementations
// own authentication, rate limiting and transport; every method returns the
// raw, loosely typed response record for Parser to interpret.
type CatalogClient interface {
	// GetAlbum returns the album browse record for a browse id.
	GetAlbum(ctx context.Context, browseID string) (gjson.Result, error)
	// GetWatchPlaylist returns the watch-context playlist seeded by a song
	// id, limited to limit entries. Its first track is the song itself.
	GetWatchPlaylist(ctx context.Context, videoID string, limit int) (gjson.Result, error)
	// GetPlaylist returns the playlist record, limited to limit tracks.
	GetPlaylist(ctx context.Context, playlistID string, limit int) (gjson.Result, error)
	// GetAlbumBrowseID resolves an album-shaped playlist id to the album's
	// browse id.
	GetAlbumBrowseID(ctx context.Context, playlistID string) (string, error)
	// SearchSongs runs a free-text search filtered to audio-only results.
	SearchSongs(ctx context.Context, query string) (gjson.Result, error)
}

// FlatEntry is a single position-ordered entry of a flat playlist listing.
type FlatEntry struct {
	ID    string
	Title string
}

// FlatPlaylistEnumerator lists a playlist's entries in order without
// fetching per-item detail. Used only for counterpart reconciliation.
type FlatPlaylistEnumerator interface {
	PlaylistItems(ctx context.Context, playlistURL string) ([]FlatEntry, error)
}
