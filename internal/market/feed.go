// Package market fetches the raw inputs of a snapshot for a trading pair:
// it memoizes exchange responses and resolves which instrument to use.
package market

import (
	"context"

	"contextgate/internal/models"
)

// Feed is the market-data collaborator. Implementations return candles and
// open-interest samples oldest first, and wrap models.ErrInsufficientData
// when the exchange answers with no rows.
type Feed interface {
	FetchCandles(ctx context.Context, instID, bar string, limit int) ([]models.Candle, error)
	FetchTicker(ctx context.Context, instID string) (*models.Ticker, error)
	FetchOpenInterestHistory(ctx context.Context, instID, period string, limit int) (models.OIHistory, error)
}
