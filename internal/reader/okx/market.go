package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"contextgate/internal/models"
	"contextgate/logger"
)

const (
	candlesPath = "/api/v5/market/candles"
	tickerPath  = "/api/v5/market/ticker"
	oiPath      = "/api/v5/public/open-interest-history"
)

// FetchCandles returns up to limit bars for instID, oldest first. OKX sends
// rows newest first as [ts,o,h,l,c,vol,volCcy,volQuote,confirm].
func (c *Client) FetchCandles(ctx context.Context, instID, bar string, limit int) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("instId", instID)
	params.Set("bar", bar)
	params.Set("limit", strconv.Itoa(limit))

	var rows [][]string
	if err := c.get(ctx, candlesPath, params, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("okx candles for %s: %w", instID, models.ErrInsufficientData)
	}

	candles := make([]models.Candle, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		candle, err := parseCandle(rows[i])
		if err != nil {
			return nil, fmt.Errorf("okx candles for %s: row %d: %w", instID, i, err)
		}
		candles = append(candles, candle)
	}

	logger.LogDataFlowEntry(c.log.WithComponent("okx_client"), "okx", "snapshot", len(candles), "candles")
	return candles, nil
}

func parseCandle(row []string) (models.Candle, error) {
	if len(row) < 8 {
		return models.Candle{}, fmt.Errorf("expected at least 8 fields, got %d", len(row))
	}
	ts, err := parseMillis(row[0])
	if err != nil {
		return models.Candle{}, err
	}
	values := make([]float64, 7)
	for i := range values {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		values[i] = v
	}
	confirmed := true
	if len(row) > 8 {
		confirmed = row[8] == "1"
	}
	return models.Candle{
		OpenTime:    ts,
		Open:        values[0],
		High:        values[1],
		Low:         values[2],
		Close:       values[3],
		BaseVolume:  values[4],
		QuoteVolume: values[6],
		Confirmed:   confirmed,
	}, nil
}

type tickerPayload struct {
	InstID    string `json:"instId"`
	Last      string `json:"last"`
	Vol24h    string `json:"vol24h"`
	VolCcy24h string `json:"volCcy24h"`
	Ts        string `json:"ts"`
}

// FetchTicker returns the 24h ticker for instID.
func (c *Client) FetchTicker(ctx context.Context, instID string) (*models.Ticker, error) {
	params := url.Values{}
	params.Set("instId", instID)

	var data []tickerPayload
	if err := c.get(ctx, tickerPath, params, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("okx ticker for %s: %w", instID, models.ErrInsufficientData)
	}

	p := data[0]
	last, _ := strconv.ParseFloat(p.Last, 64)
	vol, _ := strconv.ParseFloat(p.Vol24h, 64)
	volCcy, err := strconv.ParseFloat(p.VolCcy24h, 64)
	if err != nil {
		return nil, fmt.Errorf("okx ticker for %s: volCcy24h: %w", instID, err)
	}
	ts := time.Now().UTC()
	if p.Ts != "" {
		if parsed, err := parseMillis(p.Ts); err == nil {
			ts = parsed
		}
	}

	id := p.InstID
	if id == "" {
		id = instID
	}
	return &models.Ticker{
		InstID:         strings.ToUpper(id),
		Last:           last,
		Vol24h:         vol,
		QuoteVolume24h: volCcy,
		Timestamp:      ts,
	}, nil
}

// FetchOpenInterestHistory returns up to limit samples for instID, oldest
// first. Rows may arrive as objects with ts/oi/oiCcy keys or as
// [ts,oi,oiCcy,...] arrays; both are accepted.
func (c *Client) FetchOpenInterestHistory(ctx context.Context, instID, period string, limit int) (models.OIHistory, error) {
	params := url.Values{}
	params.Set("instType", "SWAP")
	params.Set("instId", instID)
	params.Set("period", period)
	params.Set("limit", strconv.Itoa(limit))

	var rows []json.RawMessage
	if err := c.get(ctx, oiPath, params, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("okx open interest for %s: %w", instID, models.ErrInsufficientData)
	}

	history := make(models.OIHistory, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		sample, err := parseOISample(rows[i])
		if err != nil {
			return nil, fmt.Errorf("okx open interest for %s: row %d: %w", instID, i, err)
		}
		history = append(history, sample)
	}
	return history, nil
}

func parseOISample(raw json.RawMessage) (models.OISample, error) {
	var ts, oi, oiCcy string

	var obj struct {
		Ts    string `json:"ts"`
		OI    string `json:"oi"`
		OICcy string `json:"oiCcy"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		ts, oi, oiCcy = obj.Ts, obj.OI, obj.OICcy
	} else {
		var arr []string
		if err := json.Unmarshal(raw, &arr); err != nil {
			return models.OISample{}, fmt.Errorf("unrecognised row %s", string(raw))
		}
		if len(arr) < 2 {
			return models.OISample{}, fmt.Errorf("expected at least 2 fields, got %d", len(arr))
		}
		ts, oi = arr[0], arr[1]
		if len(arr) > 2 {
			oiCcy = arr[2]
		}
	}

	value, err := strconv.ParseFloat(oi, 64)
	if err != nil {
		return models.OISample{}, fmt.Errorf("oi: %w", err)
	}
	valueCcy, _ := strconv.ParseFloat(oiCcy, 64)
	at, err := parseMillis(ts)
	if err != nil {
		return models.OISample{}, err
	}
	return models.OISample{Time: at, Value: value, ValueCcy: valueCcy}, nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
