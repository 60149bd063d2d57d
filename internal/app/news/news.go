/*
Package news stages the daily "60 seconds" news image and exposes it as a downloadable asset.

A refresh checks whether the source page reports today's edition, downloads the edition image,
validates that it really is an image, and uploads it to object storage under a per-day key.
Concurrent refreshes for the same day collapse into one upstream round trip.
*/
package news

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"floritechat/internal/app/storage"
	"floritechat/internal/pkg/logx"
	"floritechat/internal/pkg/upstream"
)

const (
	DefaultPageURL       = "https://blog.intelexe.cn/display_images.php"
	DefaultImageTemplate = "https://blog.intelexe.cn/images/60秒_%s_帆船网络.png"
	DefaultUpdateMarker  = "今日已更新"

	keyPrefix    = "news/"
	dayLayout    = "20060102"
	assetLinkTTL = 24 * time.Hour

	// refreshTimeout bounds a shared refresh, which outlives the caller that started it.
	refreshTimeout = 45 * time.Second
)

var ErrNotAnImage = errors.New("news: downloaded edition is not a supported image")

// allowedImageTypes are the content types accepted for the staged edition.
var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// Config locates the source of the daily edition.
type Config struct {
	PageURL       string
	ImageTemplate string // fmt template receiving the YYYYMMDD day code
	UpdateMarker  string
}

// Asset is a staged edition image.
type Asset struct {
	ID   string
	Path string
}

// Provider refreshes and serves the daily edition. store may be nil, in which case no
// image is ever staged and callers fall back to text-only news.
type Provider struct {
	cfg    Config
	client *upstream.Client
	store  storage.StorageService
	clock  clockwork.Clock
	logger zerolog.Logger

	group singleflight.Group

	mu        sync.Mutex
	stagedDay string
}

func NewProvider(cfg Config, client *upstream.Client, store storage.StorageService, clock clockwork.Clock) *Provider {
	if cfg.PageURL == "" {
		cfg.PageURL = DefaultPageURL
	}
	if cfg.ImageTemplate == "" {
		cfg.ImageTemplate = DefaultImageTemplate
	}
	if cfg.UpdateMarker == "" {
		cfg.UpdateMarker = DefaultUpdateMarker
	}

	return &Provider{
		cfg:    cfg,
		client: client,
		store:  store,
		clock:  clock,
		logger: logx.For("news"),
	}
}

// RefreshIfStale makes sure today's edition is staged and reports whether it is.
func (p *Provider) RefreshIfStale(ctx context.Context) (bool, error) {
	if p.store == nil {
		return false, nil
	}

	day := p.today()
	if p.isStaged(day) {
		return true, nil
	}

	flight := p.group.DoChan(day, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return p.refresh(rctx, day)
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-flight:
		if res.Shared {
			p.logger.Debug().Str("day", day).Msg("Joined in-flight news refresh")
		}
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

// ImageAsset returns a download link for today's edition if it has been staged.
func (p *Provider) ImageAsset(ctx context.Context) (Asset, bool) {
	day := p.today()
	if p.store == nil || !p.isStaged(day) {
		return Asset{}, false
	}

	link, err := p.store.PresignDownload(ctx, objectKey(day), assetLinkTTL)
	if err != nil {
		p.logger.Warn().Err(err).Str("day", day).Msg("Could not sign news image link")
		return Asset{}, false
	}

	return Asset{ID: "news_" + day, Path: link}, true
}

func (p *Provider) refresh(ctx context.Context, day string) (bool, error) {
	key := objectKey(day)

	exists, err := p.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check staged edition: %w", err)
	}
	if exists {
		p.markStaged(day)
		return true, nil
	}

	page, err := p.client.Get(ctx, p.cfg.PageURL, nil)
	if err != nil {
		return false, fmt.Errorf("fetch edition page: %w", err)
	}
	if !strings.Contains(string(page), p.cfg.UpdateMarker) {
		p.logger.Info().Str("day", day).Msg("Today's edition is not published yet")
		return false, nil
	}

	img, err := p.client.Get(ctx, fmt.Sprintf(p.cfg.ImageTemplate, day), map[string]string{
		"Accept": "image/avif,image/webp,image/png,image/*;q=0.8",
	})
	if err != nil {
		return false, fmt.Errorf("download edition image: %w", err)
	}

	contentType := http.DetectContentType(img)
	if _, ok := allowedImageTypes[contentType]; !ok {
		return false, fmt.Errorf("%w: %s", ErrNotAnImage, contentType)
	}

	if err := p.store.Upload(ctx, key, contentType, bytes.NewReader(img)); err != nil {
		return false, fmt.Errorf("stage edition image: %w", err)
	}

	p.markStaged(day)
	p.logger.Info().Str("day", day).Int("bytes", len(img)).Msg("News edition staged")
	return true, nil
}

func (p *Provider) today() string {
	return p.clock.Now().Format(dayLayout)
}

func (p *Provider) isStaged(day string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stagedDay == day
}

func (p *Provider) markStaged(day string) {
	p.mu.Lock()
	p.stagedDay = day
	p.mu.Unlock()
}

func objectKey(day string) string {
	return keyPrefix + day
}
