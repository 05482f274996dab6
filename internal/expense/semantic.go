package expense

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/garden-ledger/internal/logger"
)

var (
	// ErrSemanticUnavailable means no semantic backend is configured.
	ErrSemanticUnavailable = errors.New("expense: semantic interpreter unavailable")

	// ErrNoJSONObject means the model answered without a JSON object.
	ErrNoJSONObject = errors.New("expense: no JSON object in model response")
)

// DefaultSemanticTimeout bounds a single semantic call.
const DefaultSemanticTimeout = 15 * time.Second

// Interpreter turns a message and its lexical facts into a candidate record.
type Interpreter interface {
	Interpret(ctx context.Context, raw string, facts LexicalFacts) (CandidateRecord, error)
}

// Completer sends one prompt to a language model and returns its text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ModelOutput is one prompt/response exchange kept for diagnostics.
type ModelOutput struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Message   string    `json:"message"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ModelOutputSink stores model exchanges.
type ModelOutputSink interface {
	SaveModelOutput(ctx context.Context, out *ModelOutput) error
}

// SemanticConfig tunes a SemanticInterpreter.
type SemanticConfig struct {
	Model   string
	Timeout time.Duration
	Archive ModelOutputSink // optional
}

// SemanticInterpreter asks a language model for a candidate record.
// A single attempt is made per message.
type SemanticInterpreter struct {
	completer Completer
	model     string
	timeout   time.Duration
	archive   ModelOutputSink
}

// NewSemanticInterpreter wraps completer. Zero config values fall back to defaults.
func NewSemanticInterpreter(completer Completer, cfg SemanticConfig) *SemanticInterpreter {
	if cfg.Model == "" {
		cfg.Model = DefaultModelName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSemanticTimeout
	}
	return &SemanticInterpreter{
		completer: completer,
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		archive:   cfg.Archive,
	}
}

// Interpret implements Interpreter.
func (s *SemanticInterpreter) Interpret(ctx context.Context, raw string, facts LexicalFacts) (CandidateRecord, error) {
	if s == nil || s.completer == nil {
		return CandidateRecord{}, ErrSemanticUnavailable
	}

	prompt := buildInterpretPrompt(raw, facts)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := s.completer.Complete(callCtx, prompt)
	s.saveOutput(ctx, raw, prompt, response, err)
	if err != nil {
		return CandidateRecord{}, fmt.Errorf("SemanticInterpreter.Interpret: complete: %w", err)
	}

	c, err := decodeCandidate(response)
	if err != nil {
		return CandidateRecord{}, fmt.Errorf("SemanticInterpreter.Interpret: %w", err)
	}
	return c, nil
}

func (s *SemanticInterpreter) saveOutput(ctx context.Context, raw, prompt, response string, callErr error) {
	if s.archive == nil {
		return
	}
	out := &ModelOutput{
		ID:        uuid.New().String(),
		Model:     s.model,
		Message:   raw,
		Prompt:    prompt,
		Response:  response,
		CreatedAt: time.Now().UTC(),
	}
	if callErr != nil {
		out.Error = callErr.Error()
	}
	if err := s.archive.SaveModelOutput(ctx, out); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("model_output_id", out.ID).Msg("Failed to archive model output")
	}
}

// decodeCandidate pulls the first JSON object out of a model response.
func decodeCandidate(response string) (CandidateRecord, error) {
	obj, ok := firstJSONObject(stripCodeFences(response))
	if !ok {
		return CandidateRecord{}, ErrNoJSONObject
	}

	var m map[string]interface{}
	if err := json.Unmarshal([]byte(obj), &m); err != nil {
		return CandidateRecord{}, fmt.Errorf("decodeCandidate: unmarshal: %w", err)
	}

	var (
		c   CandidateRecord
		err error
	)
	if c.Description, err = getStringField(m, "description"); err != nil {
		return CandidateRecord{}, fmt.Errorf("decodeCandidate: %w", err)
	}
	if c.Category, err = getStringField(m, "category"); err != nil {
		return CandidateRecord{}, fmt.Errorf("decodeCandidate: %w", err)
	}
	if c.Unit, err = getOptionalStringField(m, "unit"); err != nil {
		return CandidateRecord{}, fmt.Errorf("decodeCandidate: %w", err)
	}
	if c.Note, err = getOptionalStringField(m, "note"); err != nil {
		return CandidateRecord{}, fmt.Errorf("decodeCandidate: %w", err)
	}
	if c.Quantity, err = getOptionalNumberField(m, "quantity"); err != nil {
		return CandidateRecord{}, fmt.Errorf("decodeCandidate: %w", err)
	}
	if c.Amount, err = getOptionalNumberField(m, "amount"); err != nil {
		return CandidateRecord{}, fmt.Errorf("decodeCandidate: %w", err)
	}
	if c.UnitPrice, err = getOptionalNumberField(m, "unit_price"); err != nil {
		return CandidateRecord{}, fmt.Errorf("decodeCandidate: %w", err)
	}

	// A zero quantity carries no information.
	if c.Quantity != nil && *c.Quantity == 0 {
		c.Quantity = nil
	}
	return c, nil
}

// stripCodeFences removes ```json / ``` markers anywhere in the text.
func stripCodeFences(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// firstJSONObject returns the first balanced {...} substring, skipping braces
// that appear inside JSON strings.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func getStringField(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	s, err := getStringField(m, key)
	if err != nil {
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, m[key])
	}
	if s == "" || s == "null" {
		return nil, nil
	}
	return &s, nil
}

// getOptionalNumberField accepts JSON numbers and numeric strings such as "1,800".
func getOptionalNumberField(m map[string]interface{}, key string) (*float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case float64:
		f := val
		return &f, nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(val, ",", ""))
		if s == "" || s == "null" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("field %q is not numeric: %q", key, val)
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want number or null", key, v)
	}
}
