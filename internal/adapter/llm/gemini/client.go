package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prototypus/git-ai-reviewer/internal/adapter/llm"
	llmhttp "github.com/prototypus/git-ai-reviewer/internal/adapter/llm/http"
	"github.com/prototypus/git-ai-reviewer/internal/domain"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 60 * time.Second

	providerName       = "gemini"
	finishReasonSafety = "SAFETY"
)

// Client calls the Gemini generateContent API with bounded retry of
// transient failures. The retry policy is fixed per instance.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	retrier *llmhttp.Retrier
	client  *http.Client

	logger llmhttp.Logger
}

// NewClient creates a Gemini client with the given retry policy.
func NewClient(apiKey, model string, retryConf llmhttp.RetryConfig) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		retrier: llmhttp.NewRetrier(retryConf),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// SetLogger sets the logger for this client.
func (c *Client) SetLogger(logger llmhttp.Logger) {
	c.logger = logger
}

// SetSleep overrides the backoff sleep function (for testing).
func (c *Client) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	c.retrier.SetSleep(sleep)
}

// Generate sends the prompt and returns the generated review text.
// Transient failures (rate limiting, 5xx, empty non-safety responses)
// are retried with exponential backoff up to the policy's attempt
// budget; permanent failures (invalid request, content filtering)
// propagate immediately as classified errors.
func (c *Client) Generate(ctx context.Context, inv domain.AIInvocation) (string, error) {
	startTime := time.Now()

	if c.logger != nil {
		c.logger.LogRequest(ctx, llmhttp.RequestLog{
			Provider:     providerName,
			Model:        c.model,
			Timestamp:    startTime,
			PromptChars:  len(inv.Prompt),
			PromptTokens: llm.EstimateTokens(inv.Prompt),
			APIKey:       c.apiKey,
		})
	}

	reqBody := GenerateContentRequest{
		Contents: []Content{
			{
				Role:  "user",
				Parts: []Part{{Text: inv.Prompt}},
			},
		},
		GenerationConfig: &GenerationConfig{
			Temperature:     inv.Temperature,
			MaxOutputTokens: inv.MaxOutputTokens,
			CandidateCount:  1,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	var text string
	var usage UsageMetadata
	var finishReason string

	err = c.retrier.Do(ctx, func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if reqErr != nil {
			return &llmhttp.Error{
				Type:     llmhttp.ErrTypeUnknown,
				Message:  reqErr.Error(),
				Provider: providerName,
			}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, callErr := c.client.Do(req)
		if callErr != nil {
			return llmhttp.NewTimeoutError(providerName, callErr.Error())
		}
		defer resp.Body.Close()

		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return llmhttp.NewTimeoutError(providerName, readErr.Error())
		}

		if resp.StatusCode >= 400 {
			return c.handleErrorResponse(resp.StatusCode, bodyBytes)
		}

		var genResp GenerateContentResponse
		if unmarshalErr := json.Unmarshal(bodyBytes, &genResp); unmarshalErr != nil {
			return &llmhttp.Error{
				Type:       llmhttp.ErrTypeUnknown,
				Message:    "malformed response body: " + unmarshalErr.Error(),
				StatusCode: resp.StatusCode,
				Provider:   providerName,
			}
		}

		candidateText, classifyErr := classify(genResp)
		if classifyErr != nil {
			return classifyErr
		}

		text = candidateText
		usage = genResp.UsageMetadata
		if len(genResp.Candidates) > 0 {
			finishReason = genResp.Candidates[0].FinishReason
		}
		return nil
	})

	duration := time.Since(startTime)

	if err != nil {
		c.logCallError(ctx, err, duration)
		return "", err
	}

	if c.logger != nil {
		c.logger.LogResponse(ctx, llmhttp.ResponseLog{
			Provider:     providerName,
			Model:        c.model,
			Timestamp:    time.Now(),
			Duration:     duration,
			TokensIn:     usage.PromptTokenCount,
			TokensOut:    usage.CandidatesTokenCount,
			StatusCode:   http.StatusOK,
			FinishReason: finishReason,
		})
	}

	return text, nil
}

// classify inspects a 200 response. A safety stop reason is permanent;
// any other empty response is treated as a possible silent failure and
// left to the retry loop.
func classify(genResp GenerateContentResponse) (string, error) {
	if genResp.PromptFeedback != nil && genResp.PromptFeedback.BlockReason != "" {
		return "", llmhttp.NewContentFilteredError(providerName,
			"prompt blocked by safety filters: "+genResp.PromptFeedback.BlockReason)
	}

	if len(genResp.Candidates) == 0 {
		return "", llmhttp.NewEmptyResponseError(providerName, "no candidates in response")
	}

	candidate := genResp.Candidates[0]
	if candidate.FinishReason == finishReasonSafety {
		return "", llmhttp.NewContentFilteredError(providerName, "response blocked by safety filters")
	}

	var textParts []string
	for _, part := range candidate.Content.Parts {
		textParts = append(textParts, part.Text)
	}
	text := strings.Join(textParts, "")
	if strings.TrimSpace(text) == "" {
		return "", llmhttp.NewEmptyResponseError(providerName, "candidate carried no text")
	}
	return text, nil
}

// handleErrorResponse maps HTTP status codes to typed errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var errResp ErrorResponse
	message := fmt.Sprintf("HTTP %d", statusCode)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeAuthentication,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Provider:   providerName,
		}
	case statusCode == http.StatusTooManyRequests:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeRateLimit,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  true,
			Provider:   providerName,
		}
	case statusCode == http.StatusNotFound:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeModelNotFound,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Provider:   providerName,
		}
	case statusCode >= 500:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeServiceUnavailable,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  true,
			Provider:   providerName,
		}
	case statusCode >= 400:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeInvalidRequest,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Provider:   providerName,
		}
	default:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeUnknown,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Provider:   providerName,
		}
	}
}

func (c *Client) logCallError(ctx context.Context, err error, duration time.Duration) {
	if c.logger == nil {
		return
	}
	var httpErr *llmhttp.Error
	if errors.As(err, &httpErr) {
		c.logger.LogError(ctx, llmhttp.ErrorLog{
			Provider:   providerName,
			Model:      c.model,
			Timestamp:  time.Now(),
			Duration:   duration,
			Error:      err,
			ErrorType:  httpErr.Type,
			StatusCode: httpErr.StatusCode,
			Retryable:  httpErr.Retryable,
		})
	}
}
