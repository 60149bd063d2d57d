// Package music turns NetEase Cloud Music song links into playable resolver URLs.
package music

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// DefaultAPIBase is the resolver endpoint the web client plays from.
const DefaultAPIBase = "https://api.oick.cn/api/wyy"

var (
	// ErrUnsupportedURL is returned for links that are not a NetEase song page.
	ErrUnsupportedURL = errors.New("music: unsupported track url")

	// ErrNotConfigured is returned when no resolver API key was configured.
	ErrNotConfigured = errors.New("music: resolver api key not configured")

	trackPattern = regexp.MustCompile(`^https?://music\.163\.com/(?:#/)?song\?id=(\d+)`)
)

// Resolver builds resolver URLs. It performs no I/O.
type Resolver struct {
	apiBase string
	apiKey  string
}

func NewResolver(apiBase, apiKey string) *Resolver {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Resolver{apiBase: apiBase, apiKey: apiKey}
}

// Resolve extracts the track id from link and returns the resolver URL for it.
func (r *Resolver) Resolve(link string) (apiURL string, trackID string, err error) {
	m := trackPattern.FindStringSubmatch(link)
	if m == nil {
		return "", "", ErrUnsupportedURL
	}
	if r.apiKey == "" {
		return "", "", ErrNotConfigured
	}

	trackID = m[1]
	q := url.Values{}
	q.Set("id", trackID)
	q.Set("apikey", r.apiKey)

	return fmt.Sprintf("%s?%s", r.apiBase, q.Encode()), trackID, nil
}
