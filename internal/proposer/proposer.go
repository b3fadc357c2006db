// Package proposer implements the Proposer (spec.md §4.7): it asks the
// LLM for a replacement implementation of the currently selected
// evolvable target and returns an unvalidated Proposal for the
// Validator to gate.
package proposer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"evo/internal/budget"
	"evo/internal/evoerr"
	"evo/internal/logging"
	"evo/internal/prompt"
	"evo/internal/registry"
	"evo/internal/router"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
	maxTokens        = 4096
	temperature      = 0.2
)

// Proposal is an unvalidated candidate replacement for a target's source.
type Proposal struct {
	Target        registry.Target
	NewSource     string
	Reasoning     string
	Model         string
	CorrelationID string
	TokensIn      int
	TokensOut     int
}

// Proposer requests candidate rewrites from the LLM.
type Proposer struct {
	apiKey     string
	baseURL    string
	cheapModel string
	capModel   string
	httpClient *http.Client
	budget     *budget.Tracker
	router     *router.Router
}

// New builds a Proposer. cheapModel/capModel are the concrete model
// tags the Router's abstract "cheap"/"capable" states map to.
func New(apiKey, cheapModel, capModel string, b *budget.Tracker, r *router.Router) *Proposer {
	return &Proposer{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		cheapModel: cheapModel,
		capModel:   capModel,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		budget:     b,
		router:     r,
	}
}

// SetBaseURL overrides the Anthropic endpoint, for pointing at a test
// server. Production callers never need this.
func (p *Proposer) SetBaseURL(url string) { p.baseURL = url }

var codeFence = regexp.MustCompile("(?s)```(?:go)?\\s*\\n(.*?)\\n```")

// Propose reads the target's current source, asks the LLM for a
// replacement, and returns the parsed candidate. It never writes to
// disk and never invokes the Validator or Applier.
func (p *Proposer) Propose(ctx context.Context, target registry.Target, benchmarks map[string]float64) (*Proposal, error) {
	sourceBytes, err := os.ReadFile(registry.SourcePath(target))
	if err != nil {
		return nil, &evoerr.ReadFailed{Path: registry.SourcePath(target), Why: err}
	}

	if !p.budget.HasBudget() {
		return nil, &evoerr.BudgetExhausted{}
	}
	if p.apiKey == "" {
		return nil, &evoerr.MissingAPIKey{}
	}

	corrID := uuid.NewString()
	model := p.modelForRouterState()
	text := prompt.Build(target, string(sourceBytes), benchmarks)

	logging.Proposer("correlation=%s target=%s model=%s", corrID, target.Name, model)

	reqBody := anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: text}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &evoerr.RequestFailed{Why: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, &evoerr.RequestFailed{Why: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &evoerr.RequestFailed{Why: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &evoerr.RequestFailed{Why: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &evoerr.APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &evoerr.RequestFailed{Why: err}
	}
	if parsed.Error != nil {
		return nil, &evoerr.APIError{Status: resp.StatusCode, Body: parsed.Error.Message}
	}

	// Tokens were spent the moment the API returned a response body, so
	// budget.Record runs here regardless of what the response contains —
	// an unparseable or code-less reply must still count against the
	// daily cap, or a model that only ever rambles prose could exhaust
	// budget.HasBudget()'s backpressure for free.
	p.budget.Record(parsed.Usage.InputTokens, parsed.Usage.OutputTokens)

	var text2 strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text2.WriteString(block.Text)
		}
	}
	responseText := text2.String()

	code, reasoning := extractCodeAndReasoning(responseText)
	if code == "" {
		return nil, &evoerr.NoCodeInResponse{}
	}

	return &Proposal{
		Target:        target,
		NewSource:     code,
		Reasoning:     reasoning,
		Model:         model,
		CorrelationID: corrID,
		TokensIn:      parsed.Usage.InputTokens,
		TokensOut:     parsed.Usage.OutputTokens,
	}, nil
}

func (p *Proposer) modelForRouterState() string {
	if p.router.Current() == router.Capable {
		return p.capModel
	}
	return p.cheapModel
}

const noReasoningFallback = "no reasoning provided"

// extractCodeAndReasoning pulls the first fenced code block out of an
// LLM response and treats a trailing "Reasoning:" line as the
// explanation, falling back to a fixed string when absent.
func extractCodeAndReasoning(responseText string) (code, reasoning string) {
	match := codeFence.FindStringSubmatch(responseText)
	if match == nil {
		return "", ""
	}
	code = match[1]

	rest := responseText[strings.Index(responseText, match[0])+len(match[0]):]
	if idx := strings.Index(rest, "Reasoning:"); idx >= 0 {
		reasoning = strings.TrimSpace(rest[idx+len("Reasoning:"):])
	}
	if reasoning == "" {
		reasoning = noReasoningFallback
	}
	return code, reasoning
}
