package twelvedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/Alias1177/candlecast/internal/platform/http"
	"github.com/Alias1177/candlecast/models"
)

// DefaultBaseURL is the Twelve Data REST endpoint
const DefaultBaseURL = "https://api.twelvedata.com"

var datetimeLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

// ErrAPI is returned when Twelve Data answers with an error payload
var ErrAPI = errors.New("twelve data API error")

// Client is the TwelveData API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new TwelveData client
type ClientOptions struct {
	APIKey          string
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// timeSeriesResponse is the body of /time_series
type timeSeriesResponse struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
	} `json:"meta"`
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume,omitempty"`
	} `json:"values"`
	Status  string `json:"status"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewClient creates a new TwelveData API client
func NewClient(options ClientOptions) *Client {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:  options.APIKey,
		baseURL: baseURL,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetries:      options.MaxRetries,
			MaxRetryTimeout: options.MaxRetryTimeout,
		}),
		logger: log.With().Str("component", "twelvedata_client").Logger(),
	}
}

// GetCandles fetches the latest count candles for symbol, oldest first and
// indexed from zero. intervalMinutes must be one of the supported intervals.
func (c *Client) GetCandles(ctx context.Context, symbol string, intervalMinutes int, count int) ([]models.Candle, error) {
	interval, err := models.IntervalString(intervalMinutes)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("outputsize", strconv.Itoa(count))
	q.Set("apikey", c.apiKey)
	endpoint := c.baseURL + "/time_series?" + q.Encode()

	c.logger.Debug().Str("symbol", symbol).Str("interval", interval).Int("count", count).Msg("Fetching candles")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var data timeSeriesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error().Err(err).Str("response", string(body)).Msg("Error parsing JSON")
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	if data.Status == "error" {
		c.logger.Error().Int("code", data.Code).Str("message", data.Message).Msg("Twelve Data API error")
		return nil, fmt.Errorf("%w: %d %s", ErrAPI, data.Code, data.Message)
	}

	if len(data.Values) == 0 {
		c.logger.Warn().Str("symbol", symbol).Msg("No candles in response")
		return nil, fmt.Errorf("%w: empty data returned", models.ErrInsufficientData)
	}

	// oldest first
	sort.Slice(data.Values, func(i, j int) bool {
		return data.Values[i].Datetime < data.Values[j].Datetime
	})

	candles := make([]models.Candle, 0, len(data.Values))
	for _, v := range data.Values {
		candle, err := parseCandle(intervalMinutes, v.Datetime, v.Open, v.High, v.Low, v.Close, v.Volume)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}

	if err := models.ValidateWindow(candles); err != nil {
		return nil, err
	}

	c.logger.Debug().Int("count", len(candles)).Msg("Fetched candles")
	return candles, nil
}

// GetHistoricalCandles fetches enough candles to cover days of history
func (c *Client) GetHistoricalCandles(ctx context.Context, symbol string, intervalMinutes int, days int) ([]models.Candle, error) {
	return c.GetCandles(ctx, symbol, intervalMinutes, models.CandlesForBacktest(intervalMinutes, days))
}

func parseCandle(intervalMinutes int, datetime, open, high, low, closePrice, volume string) (models.Candle, error) {
	ts, err := parseDatetime(datetime)
	if err != nil {
		return models.Candle{}, err
	}

	var prices [4]float64
	for i, raw := range []string{open, high, low, closePrice} {
		prices[i], err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("%w: candle %s: bad price %q", models.ErrInvalidCandle, datetime, raw)
		}
	}

	var vol float64
	if volume != "" {
		if vol, err = strconv.ParseFloat(volume, 64); err != nil {
			return models.Candle{}, fmt.Errorf("%w: candle %s: bad volume %q", models.ErrInvalidCandle, datetime, volume)
		}
	}

	return models.Candle{
		Index:     models.CandleIndex(ts, intervalMinutes),
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    vol,
		Timestamp: ts,
	}, nil
}

func parseDatetime(s string) (time.Time, error) {
	for _, layout := range datetimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable datetime %q", models.ErrInvalidCandle, s)
}
