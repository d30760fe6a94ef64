package storage

import (
	"context"
	"errors"
	"io"

	"github.com/aman-zulfiqar/mintclub-router/internal/models"
)

var ErrNotFound = errors.New("not found")

// SwapCache defines the interface for caching executed swaps and prices
type SwapCache interface {
	// AddRecentSwap adds a swap to the recent swaps list
	AddRecentSwap(ctx context.Context, swap *models.SwapEvent) error

	// GetRecentSwaps retrieves the most recent swaps
	GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error)

	// UpdatePrice stores a USD price for a token symbol
	UpdatePrice(ctx context.Context, token string, price float64) error

	// GetPrice returns ErrNotFound when no fresh price is cached
	GetPrice(ctx context.Context, token string) (float64, error)

	// PublishSwap publishes a swap event to the Pub/Sub channels
	PublishSwap(ctx context.Context, swap *models.SwapEvent) error

	// SubscribeSwaps subscribes to real-time swap events
	SubscribeSwaps(ctx context.Context) (<-chan *models.SwapEvent, error)

	Ping(ctx context.Context) error
	io.Closer
}

// SwapStore defines the interface for persistent swap history
type SwapStore interface {
	InsertSwap(ctx context.Context, swap *models.SwapEvent) error
	Ping(ctx context.Context) error
	io.Closer
}

// TokenStore remembers curve tokens by address.
type TokenStore interface {
	Has(ctx context.Context, address string) (bool, error)
	Put(ctx context.Context, address, symbol string) error
	Get(ctx context.Context, address string) (*models.SavedToken, error)
	List(ctx context.Context) ([]*models.SavedToken, error)
}

// SwapHandler is a function that processes swap events
type SwapHandler func(*models.SwapEvent)
