package activities

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"golang.org/x/time/rate"
)

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 8 << 20

// UpstreamConfig configures the image/analysis/shopping service client.
type UpstreamConfig struct {
	BaseURL string
	RPS     float64
	Timeout time.Duration // zero leaves each call bounded only by its context
}

// Upstream handles communication with the redesign service that analyzes
// rooms, generates and edits images and builds shopping lists.
type Upstream struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewUpstream creates a new upstream client
func NewUpstream(cfg UpstreamConfig) *Upstream {
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	burst := int(cfg.RPS)
	if burst < 1 {
		burst = 1
	}
	return &Upstream{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), burst),
	}
}

// Analyze runs the room analysis call.
func (u *Upstream) Analyze(ctx context.Context, in domain.AnalysisInput) (domain.AnalysisOutput, error) {
	var out domain.AnalysisOutput
	err := u.call(ctx, "/v1/analyze", in, &out)
	return out, err
}

// Generate requests the two initial design options.
func (u *Upstream) Generate(ctx context.Context, in domain.GenerationInput) (domain.GenerationOutput, error) {
	var out domain.GenerationOutput
	err := u.call(ctx, "/v1/generate", in, &out)
	return out, err
}

// Edit applies one queued action to the current image.
func (u *Upstream) Edit(ctx context.Context, in domain.EditInput) (domain.EditOutput, error) {
	var out domain.EditOutput
	err := u.call(ctx, "/v1/edit", in, &out)
	return out, err
}

// Shop builds the shopping list for the approved design.
func (u *Upstream) Shop(ctx context.Context, in domain.ShoppingInput) (domain.ShoppingOutput, error) {
	var out domain.ShoppingOutput
	err := u.call(ctx, "/v1/shop", in, &out)
	return out, err
}

func (u *Upstream) call(ctx context.Context, path string, in, out any) error {
	if err := u.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	jsonData, err := json.Marshal(in)
	if err != nil {
		return &domain.CollaboratorError{Kind: domain.ErrorKindInvalidInput, Message: "failed to marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return &domain.CollaboratorError{Kind: domain.ErrorKindInvalidInput, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return &domain.CollaboratorError{Kind: domain.ErrorKindTimeout, Message: "upstream timed out", Retryable: true, Err: err}
		}
		return &domain.CollaboratorError{Kind: domain.ErrorKindTransient, Message: "failed to call upstream", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &domain.CollaboratorError{Kind: domain.ErrorKindTransient, Message: "failed to read response", Retryable: true, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &domain.CollaboratorError{Kind: domain.ErrorKindInvalidOutput, Message: "failed to unmarshal response", Retryable: true, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// statusError maps a non-200 upstream answer onto the retry policy.
func statusError(code int, body []byte) *domain.CollaboratorError {
	ce := &domain.CollaboratorError{StatusCode: code, Message: upstreamMessage(code, body)}
	switch {
	case code == http.StatusTooManyRequests:
		ce.Kind, ce.Retryable = domain.ErrorKindRateLimited, true
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		ce.Kind, ce.Retryable = domain.ErrorKindTimeout, true
	case code >= 500:
		ce.Kind, ce.Retryable = domain.ErrorKindTransient, true
	case code == http.StatusUnprocessableEntity:
		ce.Kind = domain.ErrorKindContentPolicy
	default:
		ce.Kind = domain.ErrorKindInvalidInput
	}
	return ce
}

func upstreamMessage(code int, body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		text = http.StatusText(code)
	}
	return fmt.Sprintf("upstream returned status %d: %s", code, text)
}
