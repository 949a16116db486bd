package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/peetj/btc-tracker/internal/archive"
	"github.com/peetj/btc-tracker/internal/httputil"
	"github.com/peetj/btc-tracker/internal/model"
	"github.com/peetj/btc-tracker/internal/store"
)

const (
	// DefaultBaseURL is the public CoinGecko API root.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	coinID         = "bitcoin"
)

// APIError reports a non-success HTTP status from the price API.
type APIError struct {
	Status int
}

func (e *APIError) Error() string { return fmt.Sprintf("price api: status %d", e.Status) }

// Fetcher retrieves daily records for a closed time range and persists them.
type Fetcher interface {
	FetchRange(ctx context.Context, fromMs, toMs int64) ([]model.DailyRecord, error)
}

// CoinGeckoClient implements Fetcher against the CoinGecko market chart
// endpoint. The endpoint yields point samples, not OHLC; samples are
// aggregated client-side per calendar day. Successful results are persisted
// through the store before being returned.
type CoinGeckoClient struct {
	BaseURL string
	Client  *http.Client
	Retry   httputil.RetryConfig

	store store.Store
	loc   *time.Location
}

// NewCoinGeckoClient creates a client persisting into st. baseURL "" means
// the public API; loc nil means time.Local.
func NewCoinGeckoClient(baseURL string, st store.Store, loc *time.Location) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if loc == nil {
		loc = time.Local
	}
	return &CoinGeckoClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		},
		store: st,
		loc:   loc,
	}
}

// marketChart is the response shape of /coins/{id}/market_chart/range.
type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

// FetchRange fetches [fromMs, toMs] (epoch ms, converted to the epoch
// seconds the API expects) and returns the per-day roll-up. An empty window
// is not an error. Persistence via PutAll is part of the contract: a failed
// write fails the fetch.
func (c *CoinGeckoClient) FetchRange(ctx context.Context, fromMs, toMs int64) ([]model.DailyRecord, error) {
	u := fmt.Sprintf("%s/coins/%s/market_chart/range?vs_currency=usd&from=%d&to=%d",
		c.BaseURL, coinID, fromMs/1000, toMs/1000)

	resp, err := httputil.Do(ctx, c.Client, c.Retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode}
	}

	var chart marketChart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("coingecko decode: %w", err)
	}

	recs := aggregateSamples(chart.Prices, c.loc)
	if len(recs) == 0 {
		return nil, nil
	}
	if err := c.store.PutAll(recs); err != nil {
		return nil, fmt.Errorf("persist fetched range: %w", err)
	}
	return recs, nil
}

// aggregateSamples rolls (epochMs, price) point samples up to one record per
// calendar day. Each sample is its own open/high/low/close for its instant;
// the source carries no volume.
func aggregateSamples(prices [][2]float64, loc *time.Location) model.Series {
	days := make(map[int64]*model.DailyRecord)
	for _, p := range prices {
		ms, price := int64(p[0]), p[1]
		key := archive.DayStart(time.UnixMilli(ms), loc)
		rec, ok := days[key]
		if !ok {
			days[key] = &model.DailyRecord{
				Timestamp: key,
				Open:      price,
				High:      price,
				Low:       price,
				Close:     price,
			}
			continue
		}
		if price > rec.High {
			rec.High = price
		}
		if price < rec.Low {
			rec.Low = price
		}
		rec.Close = price
	}

	series := make(model.Series, 0, len(days))
	for _, rec := range days {
		series = append(series, *rec)
	}
	series.Sort()
	return series
}
