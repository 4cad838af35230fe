package vision

import (
	"context"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/johnayoung/go-coint-lab/internal/archive"
)

// exchangeInfo endpoints per trading type. The archive itself has no
// symbol index; the exchange REST API is the source of truth for what
// can be downloaded.
var exchangeInfoURLs = map[archive.TradingType]string{
	archive.Spot:         "https://api.binance.com/api/v3/exchangeInfo",
	archive.USDMFutures:  "https://fapi.binance.com/fapi/v1/exchangeInfo",
	archive.CoinMFutures: "https://dapi.binance.com/dapi/v1/exchangeInfo",
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol string `json:"symbol"`
		Status string `json:"status"`
	} `json:"symbols"`
}

// ListSymbols fetches every symbol the exchange knows for the given
// trading type. The list includes delisted symbols; their archives remain
// downloadable.
func (c *Client) ListSymbols(ctx context.Context, tradingType archive.TradingType) ([]string, error) {
	url := c.exchangeInfoURL
	if url == "" {
		var ok bool
		url, ok = exchangeInfoURLs[tradingType]
		if !ok {
			return nil, fmt.Errorf("unknown trading type %q", tradingType)
		}
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read exchange info response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange info error %d: %s", resp.StatusCode, string(body))
	}

	var info exchangeInfoResponse
	if err := jsoniter.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse exchange info response: %w", err)
	}

	symbols := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		symbols = append(symbols, s.Symbol)
	}

	c.logger.Debug("fetched exchange symbols",
		"trading_type", tradingType,
		"count", len(symbols))
	return symbols, nil
}
