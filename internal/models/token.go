package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a well-known network token.
type Token struct {
	Symbol   string         `json:"symbol"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
}

// SavedToken is a curve token remembered after a successful purchase.
type SavedToken struct {
	Address   string    `json:"address"`
	Symbol    string    `json:"symbol"`
	UpdatedAt time.Time `json:"updated_at"`
}
