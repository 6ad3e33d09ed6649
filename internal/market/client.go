package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// PricePoint is one sample from a market chart.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// Trend summarises price movement over a window.
type Trend struct {
	Direction     string
	ChangePercent float64
}

// Client fetches historical price data from a CoinGecko style API.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// MarketChart fetches daily price samples for the given coin over the
// trailing number of days.
func (c *Client) MarketChart(ctx context.Context, coin, vsCurrency string, days int) ([]PricePoint, error) {
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", c.baseURL, url.PathEscape(coin), url.Values{
		"vs_currency": []string{vsCurrency},
		"days":        []string{fmt.Sprintf("%d", days)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build market chart request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("market chart request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market chart request returned %d", resp.StatusCode)
	}

	var payload struct {
		Prices [][2]float64 `json:"prices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode market chart response: %w", err)
	}

	points := make([]PricePoint, 0, len(payload.Prices))
	for _, pair := range payload.Prices {
		points = append(points, PricePoint{
			Time:  time.UnixMilli(int64(pair[0])),
			Price: pair[1],
		})
	}

	return points, nil
}

// Summarize computes the overall trend across the sampled window.
func Summarize(points []PricePoint) (Trend, error) {
	if len(points) < 2 {
		return Trend{}, fmt.Errorf("not enough price points to summarize")
	}

	first := points[0].Price
	last := points[len(points)-1].Price
	if first == 0 {
		return Trend{}, fmt.Errorf("first price point is zero")
	}

	change := (last - first) / first * 100
	direction := "upward"
	if change < 0 {
		direction = "downward"
	}

	return Trend{Direction: direction, ChangePercent: change}, nil
}

// Summary renders a one line human readable trend description.
func Summary(coinName string, days int, trend Trend) string {
	return fmt.Sprintf("In the last %d days, %s price shows a %s trend (%.2f%% change).",
		days, coinName, trend.Direction, trend.ChangePercent)
}
