package swapengine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aman-zulfiqar/mintclub-router/internal/config"
)

// RiskConfig defines risk management parameters
type RiskConfig struct {
	// Slippage constraints
	DefaultSlippageBps uint64
	MaxSlippageBps     uint64

	// Daily limits (rolling 24h window), 0 disables
	DailyTxLimit int

	// Token allow-list by symbol or address (empty = allow all)
	AllowedTokens []string

	// Manual paths carry no quote; require an explicit minimum output
	RequireMinOutForManualPath bool
}

// DefaultRiskConfig returns conservative risk settings
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		DefaultSlippageBps:         100,  // 1%
		MaxSlippageBps:             1000, // 10%
		DailyTxLimit:               50,
		RequireMinOutForManualPath: true,
	}
}

// RiskConfigFromEnv maps the loaded configuration onto risk settings.
func RiskConfigFromEnv(cfg *config.Config) RiskConfig {
	return RiskConfig{
		DefaultSlippageBps:         cfg.SlippageBps,
		MaxSlippageBps:             cfg.Risk.MaxSlippageBps,
		DailyTxLimit:               cfg.Risk.DailyTxLimit,
		AllowedTokens:              cfg.Risk.AllowedTokens,
		RequireMinOutForManualPath: cfg.Risk.RequireMinOutForManualPath,
	}
}

// RiskManager enforces risk limits
type RiskManager struct {
	config       RiskConfig
	dailyTracker *DailyLimitTracker
}

func NewRiskManager(config RiskConfig) *RiskManager {
	return &RiskManager{
		config:       config,
		dailyTracker: NewDailyLimitTracker(),
	}
}

func (rm *RiskManager) Config() RiskConfig { return rm.config }

// CheckSwap validates params against all risk rules. inLabel and outLabel
// are the token symbols (or addresses) matched against the allow-list.
func (rm *RiskManager) CheckSwap(params *SwapParams, inLabel, outLabel string) *RiskCheckResult {
	used := rm.dailyTracker.Count()
	result := &RiskCheckResult{
		Allowed:        true,
		SlippageBps:    params.SlippageBps,
		MaxSlippageBps: rm.config.MaxSlippageBps,
		DailyTxCount:   used,
		DailyTxLimit:   rm.config.DailyTxLimit,
		AllowedTokens:  rm.config.AllowedTokens,
	}

	// 1. Slippage
	if rm.config.MaxSlippageBps > 0 && params.SlippageBps > rm.config.MaxSlippageBps {
		result.Allowed = false
		result.Reason = fmt.Sprintf("slippage %d bps exceeds max %d bps",
			params.SlippageBps, rm.config.MaxSlippageBps)
		return result
	}

	// 2. Daily transaction count
	if rm.config.DailyTxLimit > 0 && used >= rm.config.DailyTxLimit {
		result.Allowed = false
		result.Reason = fmt.Sprintf("daily limit reached: %d of %d transactions", used, rm.config.DailyTxLimit)
		return result
	}

	// 3. Token allow-list
	if !rm.isTokenAllowed(inLabel, params.TokenIn.Hex()) || !rm.isTokenAllowed(outLabel, params.TokenOut.Hex()) {
		result.Allowed = false
		result.TokenNotAllowed = true
		result.Reason = fmt.Sprintf("token not allowed: %s or %s", inLabel, outLabel)
		return result
	}

	return result
}

// Check is CheckSwap returning ErrRiskRejected on a rejection.
func (rm *RiskManager) Check(params *SwapParams, inLabel, outLabel string) error {
	res := rm.CheckSwap(params, inLabel, outLabel)
	if !res.Allowed {
		return fmt.Errorf("%w: %s", ErrRiskRejected, res.Reason)
	}
	return nil
}

// RecordExecution counts a confirmed transaction against the daily limit.
func (rm *RiskManager) RecordExecution() {
	rm.dailyTracker.Record(time.Now())
}

func (rm *RiskManager) DailyUsage() int {
	return rm.dailyTracker.Count()
}

func (rm *RiskManager) isTokenAllowed(label, address string) bool {
	if len(rm.config.AllowedTokens) == 0 {
		return true
	}
	for _, allowed := range rm.config.AllowedTokens {
		if strings.EqualFold(allowed, label) || strings.EqualFold(allowed, address) {
			return true
		}
	}
	return false
}

// DailyLimitTracker tracks rolling 24-hour usage
type DailyLimitTracker struct {
	mu  sync.Mutex
	txs []time.Time
	now func() time.Time
}

func NewDailyLimitTracker() *DailyLimitTracker {
	return &DailyLimitTracker{now: time.Now}
}

func (t *DailyLimitTracker) Record(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.txs = append(t.txs, at)
	t.cleanup()
}

// Count returns the number of transactions in the last 24 hours
func (t *DailyLimitTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanup()
	return len(t.txs)
}

// cleanup drops records older than 24 hours; callers hold mu
func (t *DailyLimitTracker) cleanup() {
	cutoff := t.now().Add(-24 * time.Hour)
	kept := t.txs[:0]
	for _, at := range t.txs {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	t.txs = kept
}

// Reset clears all tracked transactions (for testing)
func (t *DailyLimitTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.txs = nil
}
