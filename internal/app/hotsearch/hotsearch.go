// Package hotsearch scrapes the realtime trending board.
package hotsearch

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"floritechat/internal/pkg/upstream"
)

// DefaultBoardURL is the realtime board page.
const DefaultBoardURL = "https://top.baidu.com/board?tab=realtime"

var ErrNoEntries = errors.New("hotsearch: no entries found on board page")

var (
	titlePattern = regexp.MustCompile(`(?s)<div class=["']c-single-text-ellipsis["'][^>]*>(.*?)</div>`)
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	noise        = []string{"http", "javascript", "css", "style", "script", "img", "div", "span"}
)

// Provider fetches trending titles.
type Provider struct {
	client   *upstream.Client
	boardURL string
}

func NewProvider(client *upstream.Client, boardURL string) *Provider {
	if boardURL == "" {
		boardURL = DefaultBoardURL
	}
	return &Provider{client: client, boardURL: boardURL}
}

// FetchTop returns at most n trending titles in board order.
func (p *Provider) FetchTop(ctx context.Context, n int) ([]string, error) {
	body, err := p.client.Get(ctx, p.boardURL, map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "zh-CN,zh;q=0.8,en-US;q=0.3,en;q=0.2",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch hot search board: %w", err)
	}

	titles := Extract(string(body), n)
	if len(titles) == 0 {
		return nil, ErrNoEntries
	}
	return titles, nil
}

// Extract pulls up to n distinct, plausible titles out of the board HTML.
func Extract(page string, n int) []string {
	var titles []string
	seen := make(map[string]struct{})

	for _, m := range titlePattern.FindAllStringSubmatch(page, -1) {
		title := strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(m[1], "")))
		if !plausible(title) {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		titles = append(titles, title)
		if len(titles) >= n {
			break
		}
	}

	return titles
}

func plausible(title string) bool {
	l := utf8.RuneCountInString(title)
	if l <= 4 || l >= 80 {
		return false
	}
	lower := strings.ToLower(title)
	for _, kw := range noise {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}
