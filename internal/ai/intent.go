package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"

	"github.com/aman-zulfiqar/mintclub-router/internal/swapengine"
)

// ErrNotUnderstood is returned when the model cannot map the text to a trade.
var ErrNotUnderstood = errors.New("request not understood")

const intentSystemPrompt = `You convert trading requests for Mint Club bonding curve tokens and
Uniswap pools on Base into JSON. Reply with a single JSON object and nothing else.

Fields:
  action        one of "swap", "smart", "buy", "sell", "zap_buy", "zap_sell"
  input_token   symbol or 0x address of the token spent
  output_token  symbol or 0x address of the token received
  amount        decimal amount as a string. For buy and sell it is the number of
                curve tokens minted or burned; otherwise it is the input amount
  slippage_bps  optional integer basis points, 100 = 1%%
  min_out       optional minimum output as a decimal string
  max_cost      optional maximum reserve spent on a buy
  path          optional manual route "TOKEN,FEE,TOKEN[,FEE,TOKEN...]"
  reason        one short sentence
  confidence    number between 0 and 1

Rules:
- "buy 100 SIGMA with HUNT" where HUNT is the reserve is a buy. Paying with any
  other token is a zap_buy. When unsure which applies use "smart".
- "sell" to the reserve is a sell, to any other token a zap_sell.
- Plain token to token trades between non curve tokens are "swap".
- Never invent amounts. If the request is not a trade, reply {"error": "<why>"}.

Known tokens: %s`

type llmIntent struct {
	Action      string     `json:"action"`
	InputToken  string     `json:"input_token"`
	OutputToken string     `json:"output_token"`
	Amount      flexString `json:"amount"`
	SlippageBps *uint64    `json:"slippage_bps"`
	MinOut      flexString `json:"min_out"`
	MaxCost     flexString `json:"max_cost"`
	Path        string     `json:"path"`
	Reason      string     `json:"reason"`
	Confidence  float64    `json:"confidence"`
	Error       string     `json:"error"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// ParseIntent asks the model to turn text into a SwapIntent and validates the
// result. Token symbols are left unresolved.
func (a *Agent) ParseIntent(ctx context.Context, text string) (*swapengine.SwapIntent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty request", swapengine.ErrInvalidArgument)
	}

	known := "ETH"
	if len(a.knownTokens) > 0 {
		known = strings.Join(a.knownTokens, ", ")
	}
	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(intentSystemPrompt, known)),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}
	resp, err := a.llm.GenerateContent(ctx, msgs, llms.WithMaxTokens(256), llms.WithTemperature(0))
	if err != nil {
		return nil, fmt.Errorf("LLM intent parsing failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM intent parsing failed: empty response")
	}
	raw := resp.Choices[0].Content

	intent, err := a.decodeIntent(raw)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"text":     text,
			"response": raw,
			"error":    err,
		}).Warn("could not use model intent")
		return nil, err
	}

	a.logger.WithFields(logrus.Fields{
		"action":     intent.Action,
		"input":      intent.InputToken,
		"output":     intent.OutputToken,
		"amount":     intent.Amount,
		"confidence": intent.Confidence,
	}).Info("parsed intent")
	return intent, nil
}

func (a *Agent) decodeIntent(raw string) (*swapengine.SwapIntent, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var li llmIntent
	if err := json.Unmarshal([]byte(body), &li); err != nil {
		return nil, fmt.Errorf("%w: model returned invalid JSON: %v", ErrNotUnderstood, err)
	}
	if li.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrNotUnderstood, li.Error)
	}
	if a.minConfidence > 0 && li.Confidence < a.minConfidence {
		return nil, fmt.Errorf("%w: confidence %.2f below %.2f", ErrNotUnderstood, li.Confidence, a.minConfidence)
	}

	intent := &swapengine.SwapIntent{
		Action:      swapengine.Action(strings.ToLower(strings.TrimSpace(li.Action))),
		InputToken:  strings.TrimSpace(li.InputToken),
		OutputToken: strings.TrimSpace(li.OutputToken),
		Amount:      strings.TrimSpace(string(li.Amount)),
		SlippageBps: li.SlippageBps,
		MinOut:      strings.TrimSpace(string(li.MinOut)),
		MaxCost:     strings.TrimSpace(string(li.MaxCost)),
		Path:        strings.TrimSpace(li.Path),
		Reason:      li.Reason,
		Confidence:  li.Confidence,
		RequestedAt: time.Now(),
	}
	if err := swapengine.NewDecisionEngine(swapengine.RiskConfig{}, nil).ValidateIntent(intent); err != nil {
		return nil, err
	}
	return intent, nil
}

// extractJSON returns the outermost JSON object in s, ignoring code fences
// and prose around it.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: no JSON object in model response", ErrNotUnderstood)
	}
	return s[start : end+1], nil
}
