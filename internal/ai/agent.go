package ai

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultModel      = "openai/gpt-4o-mini"
)

// AgentConfig holds configuration for the AI agent.
type AgentConfig struct {
	// OpenRouter / LLM settings.
	OpenRouterAPIKey string
	// Model name as understood by OpenRouter, e.g. "openai/gpt-4o-mini".
	Model string
	// LLM replaces the OpenRouter client when set.
	LLM llms.Model

	// Symbols listed in the intent prompt as known tokens.
	KnownTokens []string
	// Intents the model reports below this confidence are rejected. 0 accepts all.
	MinConfidence float64

	// ClickHouse connection settings for history questions. Empty Addr
	// disables Ask.
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	Logger *logrus.Logger
}

// Agent turns natural language into swap intents and answers questions over
// the executed-swap history.
type Agent struct {
	llm           llms.Model
	db            *sql.DB
	knownTokens   []string
	minConfidence float64
	logger        *logrus.Logger
}

// NewAgent creates an Agent with its LLM client and, when configured, a
// ClickHouse connection.
func NewAgent(ctx context.Context, cfg AgentConfig) (*Agent, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	llm := cfg.LLM
	if llm == nil {
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
		}
		// OpenRouter speaks the OpenAI API.
		client, err := openai.New(
			openai.WithToken(cfg.OpenRouterAPIKey),
			openai.WithBaseURL(openRouterBaseURL),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenRouter LLM: %w", err)
		}
		llm = client
	}

	a := &Agent{
		llm:           llm,
		knownTokens:   cfg.KnownTokens,
		minConfidence: cfg.MinConfidence,
		logger:        cfg.Logger,
	}

	if cfg.ClickHouseAddr != "" {
		if cfg.ClickHouseDatabase == "" {
			cfg.ClickHouseDatabase = "mintclub"
		}
		db := clickhouse.OpenDB(&clickhouse.Options{
			Addr: []string{cfg.ClickHouseAddr},
			Auth: clickhouse.Auth{
				Database: cfg.ClickHouseDatabase,
				Username: cfg.ClickHouseUsername,
				Password: cfg.ClickHousePassword,
			},
		})
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping ClickHouse from AI agent: %w", err)
		}
		a.db = db
	}

	cfg.Logger.WithFields(logrus.Fields{
		"model":   cfg.Model,
		"history": a.db != nil,
	}).Info("initialized AI agent")
	return a, nil
}

// Close closes underlying resources.
func (a *Agent) Close() error {
	if a.db != nil {
		a.logger.Debug("closing AI agent ClickHouse connection")
		return a.db.Close()
	}
	return nil
}

// HasHistory reports whether Ask can query executed swaps.
func (a *Agent) HasHistory() bool { return a.db != nil }
