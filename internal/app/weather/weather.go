/*
Package weather looks up current conditions and a short forecast for a city.

The upstream API answers with one entry per weekday labelled in Chinese (周一..周日). The
entry for today becomes the current conditions and the following weekdays, in calendar order,
become the forecast.
*/
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"floritechat/internal/pkg/upstream"
)

// DefaultAPIBase is the weather endpoint used when none is configured.
const DefaultAPIBase = "https://v2.xxapi.cn/api/weather"

var ErrNotConfigured = errors.New("weather: api key not configured")

var weekdayLabels = map[time.Weekday]string{
	time.Monday:    "周一",
	time.Tuesday:   "周二",
	time.Wednesday: "周三",
	time.Thursday:  "周四",
	time.Friday:    "周五",
	time.Saturday:  "周六",
	time.Sunday:    "周日",
}

// Day is one forecast entry.
type Day struct {
	Date        string `json:"date"`
	Weather     string `json:"weather"`
	Temperature string `json:"temperature"`
	AirQuality  string `json:"air_quality"`
	Wind        string `json:"wind"`
}

// Snapshot is what the weather card shows.
type Snapshot struct {
	City        string `json:"city"`
	Weather     string `json:"weather"`
	Icon        string `json:"weather_icon"`
	Temperature string `json:"temperature"`
	AirQuality  string `json:"air_quality"`
	Wind        string `json:"wind"`
	Forecast    []Day  `json:"forecast"`
}

type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		City string `json:"city"`
		Data []Day  `json:"data"`
	} `json:"data"`
}

// Provider queries the weather API.
type Provider struct {
	client  *upstream.Client
	apiBase string
	apiKey  string
	clock   clockwork.Clock
}

func NewProvider(client *upstream.Client, apiBase, apiKey string, clock clockwork.Clock) *Provider {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Provider{client: client, apiBase: apiBase, apiKey: apiKey, clock: clock}
}

// Lookup fetches the snapshot for city.
func (p *Provider) Lookup(ctx context.Context, city string) (Snapshot, error) {
	if p.apiKey == "" {
		return Snapshot{}, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("city", city)
	q.Set("key", p.apiKey)

	body, err := p.client.Get(ctx, p.apiBase+"?"+q.Encode(), map[string]string{
		"User-Agent": "xiaoxiaoapi/1.0.0",
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("weather lookup %q: %w", city, err)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Snapshot{}, fmt.Errorf("decode weather response: %w", err)
	}
	if resp.Code != 200 {
		return Snapshot{}, fmt.Errorf("weather api returned code %d: %s", resp.Code, resp.Msg)
	}

	if resp.Data.City == "" {
		resp.Data.City = city
	}
	return restructure(resp.Data.City, resp.Data.Data, p.clock.Now()), nil
}

func restructure(city string, days []Day, now time.Time) Snapshot {
	snap := Snapshot{
		City:        city,
		Weather:     "Unknown",
		Temperature: "0℃",
		AirQuality:  "Unknown",
		Wind:        "Unknown",
		Forecast:    []Day{},
	}

	byLabel := make(map[string]Day, len(days))
	for _, d := range days {
		if _, dup := byLabel[d.Date]; !dup {
			byLabel[d.Date] = d
		}
	}

	if today, ok := byLabel[weekdayLabels[now.Weekday()]]; ok {
		snap.Weather = today.Weather
		snap.Temperature = today.Temperature
		snap.AirQuality = today.AirQuality
		snap.Wind = today.Wind
	}

	for offset := 1; offset < 7; offset++ {
		label := weekdayLabels[now.AddDate(0, 0, offset).Weekday()]
		if d, ok := byLabel[label]; ok {
			snap.Forecast = append(snap.Forecast, d)
		}
	}

	snap.Icon = Icon(snap.Weather)
	return snap
}

var iconRules = []struct {
	keywords []string
	icon     string
}{
	{[]string{"雷", "thunder"}, "⛈️"},
	{[]string{"雪", "snow"}, "❄️"},
	{[]string{"雨", "rain", "shower"}, "🌧️"},
	{[]string{"雾", "霾", "fog", "haze"}, "🌫️"},
	{[]string{"阴", "overcast"}, "☁️"},
	{[]string{"云", "cloud"}, "⛅"},
	{[]string{"晴", "sun", "clear"}, "☀️"},
}

// Icon maps a weather description to an emoji.
func Icon(desc string) string {
	lower := strings.ToLower(desc)
	for _, rule := range iconRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.icon
			}
		}
	}
	return "🌤️"
}
