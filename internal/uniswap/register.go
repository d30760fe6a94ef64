package uniswap

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// PoolConfig represents a V4 pool entry in the JSON allow-list
type PoolConfig struct {
	Name        string `json:"name"`
	Currency0   string `json:"currency0"`
	Currency1   string `json:"currency1"`
	Fee         uint32 `json:"fee"`
	TickSpacing int32  `json:"tick_spacing"`
	Hooks       string `json:"hooks,omitempty"`
}

// Pool is a parsed allow-list entry.
type Pool struct {
	Name string
	Key  PoolKey
}

// PoolRegistry holds the statically configured V4 pools
type PoolRegistry struct {
	pools []Pool
}

func NewPoolRegistry(pools []Pool) *PoolRegistry {
	return &PoolRegistry{pools: pools}
}

// LoadPoolRegistry loads pools from a JSON file. An empty path yields an
// empty registry.
func LoadPoolRegistry(path string) (*PoolRegistry, error) {
	if path == "" {
		return NewPoolRegistry(nil), nil
	}
	pools, err := LoadPoolsFromJSON(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load v4 pools: %w", err)
	}
	return NewPoolRegistry(pools), nil
}

func LoadPoolsFromJSON(path string) ([]Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParsePools(data)
}

// ParsePools parses and validates a JSON pool list.
func ParsePools(data []byte) ([]Pool, error) {
	var configs []PoolConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	pools := make([]Pool, 0, len(configs))
	for i, cfg := range configs {
		pool, err := parsePoolConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("pool %d (%s): %w", i, cfg.Name, err)
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

func parsePoolConfig(cfg PoolConfig) (Pool, error) {
	for _, s := range []string{cfg.Currency0, cfg.Currency1} {
		if !common.IsHexAddress(s) {
			return Pool{}, fmt.Errorf("%w: invalid currency %q", ErrInvalidArgument, s)
		}
	}
	hooks := common.Address{}
	if cfg.Hooks != "" {
		if !common.IsHexAddress(cfg.Hooks) {
			return Pool{}, fmt.Errorf("%w: invalid hooks %q", ErrInvalidArgument, cfg.Hooks)
		}
		hooks = common.HexToAddress(cfg.Hooks)
	}

	c0, c1 := SortTokens(common.HexToAddress(cfg.Currency0), common.HexToAddress(cfg.Currency1))
	key := PoolKey{
		Currency0:   c0,
		Currency1:   c1,
		Fee:         cfg.Fee,
		TickSpacing: cfg.TickSpacing,
		Hooks:       hooks,
	}
	if err := key.Validate(); err != nil {
		return Pool{}, err
	}
	return Pool{Name: cfg.Name, Key: key}, nil
}

// FindPools returns every pool trading the unordered pair {a, b}.
func (r *PoolRegistry) FindPools(a, b common.Address) []Pool {
	if r == nil {
		return nil
	}
	var out []Pool
	for _, p := range r.pools {
		if p.Key.Matches(a, b) {
			out = append(out, p)
		}
	}
	return out
}

func (r *PoolRegistry) FindPoolByName(name string) (*Pool, error) {
	for i := range r.pools {
		if r.pools[i].Name == name {
			return &r.pools[i], nil
		}
	}
	return nil, fmt.Errorf("pool not found: %s", name)
}

func (r *PoolRegistry) Pools() []Pool {
	if r == nil {
		return nil
	}
	return r.pools
}

func (r *PoolRegistry) PoolCount() int {
	if r == nil {
		return 0
	}
	return len(r.pools)
}
