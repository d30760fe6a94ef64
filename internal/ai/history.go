package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
)

// ErrHistoryUnavailable is returned by Ask when no ClickHouse is configured.
var ErrHistoryUnavailable = errors.New("swap history is not configured")

// maxHistoryRows bounds what is fed back into the summary prompt.
const maxHistoryRows = 100

var (
	writeKeyword  = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|TRUNCATE|CREATE|RENAME|ATTACH|DETACH|OPTIMIZE|GRANT|REVOKE|KILL|SYSTEM)\b`)
	swapsTable    = regexp.MustCompile(`(?i)\bFROM\s+(mintclub\.)?swaps\b`)
	otherTable    = regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+([a-z_][a-z0-9_.]*)`)
	limitClause   = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)
	fenceLanguage = regexp.MustCompile("(?is)^```\\s*(sql)?")
)

const historySQLPrompt = `You write ClickHouse SQL over the executed-swap history of a Mint Club trading bot.

%s

Reply with one SELECT statement and nothing else.
- Read only from mintclub.swaps. No joins with other tables.
- Filter time with the timestamp column; "today" means toDate(timestamp) = today().
- For "top", "largest" or "most" questions, ORDER BY ... DESC with a LIMIT.
- Compare token columns with lower(...) since addresses are checksummed.`

const historySummaryPrompt = `You answer questions about trades a Mint Club bot executed on Base.
Answer from the query result only, in short bullet points.
If the result is empty, say no matching swaps were found.
Amounts are raw base units: 18 decimals, except USDC which has 6.
Known token symbols: %s.`

// AskResult is the generated query and the model's answer over its rows.
type AskResult struct {
	SQL       string `json:"sql"`
	Rows      int    `json:"rows"`
	Truncated bool   `json:"truncated,omitempty"`
	Answer    string `json:"answer"`
}

// Ask answers a question about executed swaps: the model writes a query,
// the query runs against ClickHouse and the model summarises the rows.
func (a *Agent) Ask(ctx context.Context, question string) (*AskResult, error) {
	if a.db == nil {
		return nil, ErrHistoryUnavailable
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	query, err := a.generateSQL(ctx, question)
	if err != nil {
		return nil, err
	}
	rows, truncated, err := a.runQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	answer, err := a.summarise(ctx, question, query, rows)
	if err != nil {
		return nil, err
	}

	a.logger.WithFields(logrus.Fields{
		"rows":      len(rows),
		"truncated": truncated,
	}).Info("answered history question")
	return &AskResult{SQL: query, Rows: len(rows), Truncated: truncated, Answer: answer}, nil
}

func (a *Agent) generateSQL(ctx context.Context, question string) (string, error) {
	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(historySQLPrompt, swapsSchemaDescription)),
		llms.TextParts(llms.ChatMessageTypeHuman, question),
	}
	resp, err := a.llm.GenerateContent(ctx, msgs, llms.WithMaxTokens(512), llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("generate sql: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generate sql: empty response")
	}

	query := sanitizeSQL(resp.Choices[0].Content)
	if err := validateSQL(query); err != nil {
		return "", err
	}
	query = limitSQL(query, maxHistoryRows)

	a.logger.WithField("sql", query).Debug("generated history query")
	return query, nil
}

// runQuery returns at most maxHistoryRows rows as column maps.
func (a *Agent) runQuery(ctx context.Context, query string) ([]map[string]any, bool, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, false, fmt.Errorf("query swaps: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, false, fmt.Errorf("query columns: %w", err)
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		if len(out) == maxHistoryRows {
			return out, true, nil
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, false, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("read rows: %w", err)
	}
	return out, false, nil
}

func (a *Agent) summarise(ctx context.Context, question, query string, rows []map[string]any) (string, error) {
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(historySummaryPrompt, strings.Join(a.knownTokens, ", "))),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf("Question: %s\n\nQuery: %s\n\nResult: %s", question, query, data)),
	}
	resp, err := a.llm.GenerateContent(ctx, msgs, llms.WithMaxTokens(512))
	if err != nil {
		return "", fmt.Errorf("summarise rows: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarise rows: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// sanitizeSQL strips markdown fences, a leading "sql" tag and the trailing
// semicolon from model output.
func sanitizeSQL(s string) string {
	s = strings.TrimSpace(s)
	s = fenceLanguage.ReplaceAllString(s, "")
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if len(s) > 4 && strings.EqualFold(s[:4], "sql ") {
		s = s[4:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

// validateSQL accepts a single read-only SELECT over the swaps table.
func validateSQL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("model returned no query")
	}
	if !strings.EqualFold(strings.Fields(s)[0], "SELECT") {
		return fmt.Errorf("only SELECT queries are allowed")
	}
	if strings.Contains(s, ";") {
		return fmt.Errorf("multiple statements are not allowed")
	}
	if kw := writeKeyword.FindString(s); kw != "" {
		return fmt.Errorf("keyword %s is not allowed", strings.ToUpper(kw))
	}
	if !swapsTable.MatchString(s) {
		return fmt.Errorf("query must read from mintclub.swaps")
	}
	for _, m := range otherTable.FindAllStringSubmatch(s, -1) {
		switch strings.ToLower(m[2]) {
		case "swaps", "mintclub.swaps":
		default:
			return fmt.Errorf("table %s is not allowed", m[2])
		}
	}
	return nil
}

// limitSQL appends a LIMIT when the query has none.
func limitSQL(s string, n int) string {
	if limitClause.MatchString(s) {
		return s
	}
	return fmt.Sprintf("%s LIMIT %d", s, n)
}
