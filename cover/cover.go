// Package cover fetches cover art and recompresses it to the configured
// format. The catalog serves covers as webp, png or jpeg depending on the
// rendition; all three decode transparently.
package cover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/xeptore/flaw/v8"
	_ "golang.org/x/image/webp" // webp decoder registration

	"github.com/RaduTek/YTMusicDL/config"
	"github.com/RaduTek/YTMusicDL/errutil"
	"github.com/RaduTek/YTMusicDL/httputil"
)

const fetchTimeout = 10 * time.Second

type Fetcher struct {
	client *http.Client
	format string
	logger zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: fetchTimeout}, //nolint:exhaustruct
		format: cfg.CoverFormat,
		logger: logger.With().Str("module", "cover").Logger(),
	}
}

func newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.Multiplier = 1.5
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

// Fetch downloads the cover at coverURL with exponential backoff and
// re-encodes it to the configured output format.
func (f *Fetcher) Fetch(ctx context.Context, coverURL string) ([]byte, error) {
	var raw []byte
	op := func() error {
		b, err := f.fetchOnce(ctx, coverURL)
		if nil != err {
			if errutil.IsContext(ctx) {
				return backoff.Permanent(ctx.Err())
			}
			if errutil.IsFlaw(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		raw = b
		return nil
	}
	if err := backoff.Retry(op, newBackoff(ctx)); nil != err {
		return nil, fmt.Errorf("failed to fetch cover art: %w", err)
	}

	converted, err := f.convert(raw)
	if nil != err {
		return nil, err
	}

	f.logger.Debug().
		Str("url", coverURL).
		Str("size", humanize.Bytes(uint64(len(converted)))).
		Msg("Downloaded cover art")
	return converted, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, coverURL string) (b []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if nil != err {
		flawP := flaw.P{"url": coverURL, "err_debug_tree": errutil.Tree(err).FlawP()}
		return nil, flaw.From(fmt.Errorf("failed to create cover request: %v", err)).Append(flawP)
	}

	resp, err := f.client.Do(req)
	if nil != err {
		if errutil.IsContext(ctx) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to send cover request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr && nil == err {
			err = fmt.Errorf("failed to close cover response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected cover response status: %d", resp.StatusCode)
	}

	return httputil.ReadResponseBody(ctx, resp)
}

// convert decodes the fetched image and re-encodes it as the configured
// format. A cover already in the right container is still re-encoded, which
// normalizes odd encoder output the tag embedders choke on.
func (f *Fetcher) convert(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if nil != err {
		return nil, fmt.Errorf("failed to decode cover image: %v", err)
	}

	var out bytes.Buffer
	switch f.format {
	case config.CoverPNG:
		if err := png.Encode(&out, img); nil != err {
			return nil, fmt.Errorf("failed to encode cover as png: %v", err)
		}
	case config.CoverJPG:
		if err := jpeg.Encode(&out, img, nil); nil != err {
			return nil, fmt.Errorf("failed to encode cover as jpeg: %v", err)
		}
	default:
		return nil, errors.New("unsupported cover format " + f.format)
	}
	return out.Bytes(), nil
}
