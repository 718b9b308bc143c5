// Package cache holds the process-local album metadata cache. Two input
// strings that resolve to the same album hit the same entry because the
// cache is keyed by the catalog browse id, never by a user-supplied source
// string. Entries are inserted once per run and never invalidated mid-run.
package cache

import (
	"time"

	"github.com/karlseguin/ccache/v3"

	"github.com/RaduTek/YTMusicDL/ytmusic"
)

var DefaultAlbumTTL = 1 * time.Hour

type Cache struct {
	Albums AlbumsCache
}

func New() *Cache {
	albums := ccache.New(
		ccache.Configure[*ytmusic.AlbumWithSongs]().
			MaxSize(1000).
			GetsPerPromote(3).
			ItemsToPrune(1),
	)

	return &Cache{
		Albums: AlbumsCache{c: albums},
	}
}

// AlbumsCache caches fully resolved albums (with songs) by browse id.
type AlbumsCache struct {
	c *ccache.Cache[*ytmusic.AlbumWithSongs]
}

// Fetch returns the cached album for browseID, calling fetch to resolve and
// insert it on a miss.
func (c *AlbumsCache) Fetch(browseID string, fetch func() (*ytmusic.AlbumWithSongs, error)) (*ytmusic.AlbumWithSongs, error) {
	item, err := c.c.Fetch(browseID, DefaultAlbumTTL, fetch)
	if nil != err {
		return nil, err
	}
	return item.Value(), nil
}
