package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/aman-zulfiqar/mintclub-router/internal/constants"
	"github.com/aman-zulfiqar/mintclub-router/internal/models"
	"github.com/aman-zulfiqar/mintclub-router/internal/storage"
)

// TokenStore implements storage.TokenStore with one JSON value per token and
// a set indexing the saved addresses.
type TokenStore struct {
	client redis.Cmdable
}

var _ storage.TokenStore = (*TokenStore)(nil)

func NewTokenStore(client redis.Cmdable) (*TokenStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &TokenStore{client: client}, nil
}

// NormalizeAddress validates addr and returns its checksummed form.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !strings.HasPrefix(addr, "0x") || !common.IsHexAddress(addr) {
		return "", fmt.Errorf("invalid token address %q", addr)
	}
	return common.HexToAddress(addr).Hex(), nil
}

func (s *TokenStore) Has(ctx context.Context, address string) (bool, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return false, err
	}
	ok, err := s.client.SIsMember(ctx, constants.RedisKeyTokenIndex, addr).Result()
	if err != nil {
		return false, fmt.Errorf("check token: %w", err)
	}
	return ok, nil
}

// Put saves or refreshes a token. Addresses are deduplicated by checksum form.
func (s *TokenStore) Put(ctx context.Context, address, symbol string) error {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return err
	}

	t := &models.SavedToken{Address: addr, Symbol: symbol, UpdatedAt: time.Now().UTC()}
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tokenKey(addr), b, 0)
	pipe.SAdd(ctx, constants.RedisKeyTokenIndex, addr)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put token: %w", err)
	}
	return nil
}

func (s *TokenStore) Get(ctx context.Context, address string) (*models.SavedToken, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, tokenKey(addr)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	var t models.SavedToken
	if err := json.Unmarshal([]byte(val), &t); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}
	return &t, nil
}

func (s *TokenStore) List(ctx context.Context) ([]*models.SavedToken, error) {
	addrs, err := s.client.SMembers(ctx, constants.RedisKeyTokenIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list tokens index: %w", err)
	}
	if len(addrs) == 0 {
		return []*models.SavedToken{}, nil
	}

	keys := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if _, err := NormalizeAddress(a); err != nil {
			continue
		}
		keys = append(keys, tokenKey(a))
	}
	if len(keys) == 0 {
		return []*models.SavedToken{}, nil
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget tokens: %w", err)
	}

	out := make([]*models.SavedToken, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var t models.SavedToken
		if err := json.Unmarshal([]byte(str), &t); err != nil {
			continue
		}
		out = append(out, &t)
	}
	return out, nil
}

func (s *TokenStore) Delete(ctx context.Context, address string) error {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, tokenKey(addr))
	pipe.SRem(ctx, constants.RedisKeyTokenIndex, addr)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func tokenKey(addr string) string {
	return constants.RedisKeyTokenPrefix + addr
}
