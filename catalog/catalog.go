// Package catalog implements the catalog client boundary against a
// ytmusicapi-compatible HTTP bridge. The bridge owns authentication,
// session management and API versioning; this client only moves raw records.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/xeptore/flaw/v8"

	"github.com/RaduTek/YTMusicDL/errutil"
	"github.com/RaduTek/YTMusicDL/httputil"
)

const requestTimeout = 30 * time.Second

type Client struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

func New(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout}, //nolint:exhaustruct
		logger:  logger.With().Str("module", "catalog").Logger(),
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (res gjson.Result, err error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if nil != err {
		return gjson.Result{}, fmt.Errorf("failed to create catalog request: %v", err)
	}
	req.Header.Add("Accept", "application/json")

	c.logger.Trace().Str("url", reqURL).Msg("Catalog request")

	resp, err := c.client.Do(req)
	if nil != err {
		if errutil.IsContext(ctx) {
			return gjson.Result{}, ctx.Err()
		}
		return gjson.Result{}, fmt.Errorf("catalog request failed: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr && nil == err {
			err = fmt.Errorf("failed to close catalog response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		flawP := flaw.P{"url": reqURL, "response": httputil.ResponseFlawPayload(resp)}
		return gjson.Result{}, flaw.From(fmt.Errorf("unexpected catalog response status: %d", resp.StatusCode)).Append(flawP)
	}

	body, err := httputil.ReadResponseBody(ctx, resp)
	if nil != err {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid catalog response json for %q", reqURL)
	}
	return gjson.ParseBytes(body), nil
}

func (c *Client) GetAlbum(ctx context.Context, browseID string) (gjson.Result, error) {
	return c.get(ctx, "/albums/"+url.PathEscape(browseID), nil)
}

func (c *Client) GetWatchPlaylist(ctx context.Context, videoID string, limit int) (gjson.Result, error) {
	q := url.Values{}
	q.Set("videoId", videoID)
	q.Set("limit", strconv.Itoa(limit))
	return c.get(ctx, "/watch-playlist", q)
}

func (c *Client) GetPlaylist(ctx context.Context, playlistID string, limit int) (gjson.Result, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	return c.get(ctx, "/playlists/"+url.PathEscape(playlistID), q)
}

func (c *Client) GetAlbumBrowseID(ctx context.Context, playlistID string) (string, error) {
	rec, err := c.get(ctx, "/playlists/"+url.PathEscape(playlistID)+"/browse-id", nil)
	if nil != err {
		return "", err
	}
	browseID := rec.Get("browseId").String()
	if browseID == "" {
		return "", fmt.Errorf("catalog returned no browse id for playlist %q", playlistID)
	}
	return browseID, nil
}

func (c *Client) SearchSongs(ctx context.Context, query string) (gjson.Result, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("filter", "songs")
	return c.get(ctx, "/search", q)
}
