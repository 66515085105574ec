// Package transcribe talks to the Google Cloud Speech-to-Text REST API.
package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/introspection"
	"github.com/sony/gobreaker"

	"github.com/aretw0/voxnotes/pkg/core"
)

const (
	// DefaultEndpoint is the synchronous recognize method.
	DefaultEndpoint = "https://speech.googleapis.com/v1/speech:recognize"
	// DefaultEncoding matches the AMR narrowband recordings of the capture device.
	DefaultEncoding        = "AMR"
	DefaultSampleRateHertz = 8000
	DefaultTimeout         = 2 * time.Minute
)

// Config tunes the client. Zero values take the defaults.
type Config struct {
	Endpoint        string
	Encoding        string
	SampleRateHertz int
	Scope           string
	HTTPClient      *http.Client
	Logger          *slog.Logger
	Breaker         BreakerConfig
}

// BreakerConfig controls when the client stops calling a failing recognizer.
// Only transport errors and 5xx answers count as failures.
type BreakerConfig struct {
	// MaxRequests may pass while half-open.
	MaxRequests uint32
	// Interval clears the counts while closed.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker used when none is configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         5 * time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.8,
		MinRequests:      3,
	}
}

// Client implements core.Transcriber.
type Client struct {
	cfg     Config
	tokens  *tokenSource
	breaker *gobreaker.CircuitBreaker
}

// New creates a client.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Encoding == "" {
		cfg.Encoding = DefaultEncoding
	}
	if cfg.SampleRateHertz <= 0 {
		cfg.SampleRateHertz = DefaultSampleRateHertz
	}
	if cfg.Scope == "" {
		cfg.Scope = CloudPlatformScope
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Breaker == (BreakerConfig{}) {
		cfg.Breaker = DefaultBreakerConfig()
	}

	logger := cfg.Logger
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "speech-recognize",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.Breaker.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.Breaker.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			if errors.Is(err, context.Canceled) {
				return true
			}
			var svcErr *core.RecognitionServiceError
			if errors.As(err, &svcErr) {
				return svcErr.Status < 500
			}
			return err == nil
		},
	})

	return &Client{
		cfg:     cfg,
		tokens:  newTokenSource(cfg.HTTPClient, cfg.Scope),
		breaker: breaker,
	}
}

type recognitionConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
}

type recognitionAudio struct {
	Content string `json:"content"`
}

type recognizeRequest struct {
	Config recognitionConfig `json:"config"`
	Audio  recognitionAudio  `json:"audio"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Transcribe sends one recording and returns the recognized text, or
// core.NoSpeechText when nothing was recognized.
//
// Failures to obtain a token are *core.AuthError, non-2xx answers are
// *core.RecognitionServiceError and unreadable bodies wrap
// core.ErrTranscriptionParse.
func (c *Client) Transcribe(ctx context.Context, audio []byte, languageCode string, credentials []byte) (string, error) {
	sa, err := ParseServiceAccount(credentials)
	if err != nil {
		return "", &core.AuthError{Err: err}
	}
	token, err := c.tokens.Token(ctx, sa)
	if err != nil {
		return "", &core.AuthError{Err: err}
	}

	body, err := json.Marshal(recognizeRequest{
		Config: recognitionConfig{
			Encoding:        c.cfg.Encoding,
			SampleRateHertz: c.cfg.SampleRateHertz,
			LanguageCode:    languageCode,
		},
		Audio: recognitionAudio{Content: base64.StdEncoding.EncodeToString(audio)},
	})
	if err != nil {
		return "", err
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.recognize(ctx, token, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("recognition service unavailable: %w", err)
	}
	if err != nil {
		return "", err
	}

	text, err := ParseResponse(out.([]byte))
	if err != nil {
		return "", err
	}
	c.cfg.Logger.Debug("recognized", "bytes", len(audio), "language", languageCode, "chars", len(text), "took", time.Since(start))
	return text, nil
}

// recognize performs the HTTP call and returns the body of a 2xx answer.
func (c *Client) recognize(ctx context.Context, token string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognize request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read recognize response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &core.RecognitionServiceError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

// ClientState exposes internal state for observability.
type ClientState struct {
	Endpoint     string `json:"endpoint"`
	Breaker      string `json:"breaker"`
	CachedTokens int    `json:"cached_tokens"`
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	c.tokens.mu.Lock()
	cached := len(c.tokens.cache)
	c.tokens.mu.Unlock()
	return ClientState{
		Endpoint:     c.cfg.Endpoint,
		Breaker:      c.breaker.State().String(),
		CachedTokens: cached,
	}
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "transcriber"
}

// ParseResponse concatenates every transcript of a recognize response.
func ParseResponse(data []byte) (string, error) {
	var parsed recognizeResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrTranscriptionParse, err)
	}

	var sb strings.Builder
	for _, result := range parsed.Results {
		for _, alt := range result.Alternatives {
			sb.WriteString(alt.Transcript)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return core.NoSpeechText, nil
	}
	return text, nil
}

var (
	_ core.Transcriber             = (*Client)(nil)
	_ introspection.Introspectable = (*Client)(nil)
	_ introspection.Component      = (*Client)(nil)
)
