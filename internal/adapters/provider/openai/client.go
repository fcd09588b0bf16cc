package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jbctechsolutions/spendgate/internal/domain/errors"
)

// Client handles HTTP communication with the OpenAI API.
type Client struct {
	httpClient *http.Client
	config     Config
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client for the Client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.config.Timeout = timeout
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *Client) {
		c.config.MaxRetries = maxRetries
	}
}

// WithBaseURL sets the base URL for API requests.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithOrganization sets the organization header for API requests.
func WithOrganization(org string) ClientOption {
	return func(c *Client) {
		c.config.Organization = org
	}
}

// NewClient creates a new OpenAI API client with functional options.
func NewClient(config Config, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Chat sends a chat completion request to the OpenAI API.
func (c *Client) Chat(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, *RateLimitInfo, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, errors.NewError(errors.CodeProvider, "failed to marshal request", err)
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, "/chat/completions", body)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	rateLimitInfo := c.parseRateLimitHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		return nil, rateLimitInfo, c.handleErrorResponse(resp)
	}

	var result ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, rateLimitInfo, errors.NewError(errors.CodeProvider, "failed to decode response", err)
	}

	return &result, rateLimitInfo, nil
}

// Transcribe uploads audio to the transcriptions endpoint.
// The multipart body is rebuilt on each retry attempt.
func (c *Client) Transcribe(ctx context.Context, model, filename string, audio []byte) (*TranscriptionResponse, error) {
	buildBody := func() (contentType string, body []byte, err error) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)

		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			return "", nil, err
		}
		if _, err := part.Write(audio); err != nil {
			return "", nil, err
		}
		if err := writer.WriteField("model", model); err != nil {
			return "", nil, err
		}
		if err := writer.Close(); err != nil {
			return "", nil, err
		}
		return writer.FormDataContentType(), buf.Bytes(), nil
	}

	contentType, body, err := buildBody()
	if err != nil {
		return nil, errors.NewError(errors.CodeProvider, "failed to build multipart request", err)
	}

	resp, err := c.doRequestWithRetryAndType(ctx, http.MethodPost, "/audio/transcriptions", body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var result TranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewError(errors.CodeProvider, "failed to decode transcription response", err)
	}

	return &result, nil
}

// Moderate sends content to the moderations endpoint.
func (c *Client) Moderate(ctx context.Context, req *ModerationRequest) (*ModerationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.NewError(errors.CodeProvider, "failed to marshal moderation request", err)
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, "/moderations", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var result ModerationResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewError(errors.CodeProvider, "failed to decode moderation response", err)
	}

	return &result, nil
}

// doRequestWithRetry performs a JSON request with exponential backoff retry.
func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	return c.doRequestWithRetryAndType(ctx, method, path, body, "application/json")
}

// doRequestWithRetryAndType performs an HTTP request with exponential backoff retry.
func (c *Client) doRequestWithRetryAndType(ctx context.Context, method, path string, body []byte, contentType string) (*http.Response, error) {
	var lastErr error
	delay := c.config.RetryBaseDelay
	if delay == 0 {
		delay = 500 * time.Millisecond
	}

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff with cap
			delay *= 2
			if c.config.RetryMaxDelay > 0 && delay > c.config.RetryMaxDelay {
				delay = c.config.RetryMaxDelay
			}
		}

		req, err := c.newRequest(ctx, method, path, body, contentType)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = errors.NewError(errors.CodeProvider, "request failed", err)
			continue
		}

		// Check for retryable status codes (429 Too Many Requests, 5xx Server Errors)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			// Check for Retry-After header
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if seconds, err := strconv.Atoi(retryAfter); err == nil {
					delay = time.Duration(seconds) * time.Second
				}
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, errors.NewError(errors.CodeProvider,
		fmt.Sprintf("request failed after %d retries", c.config.MaxRetries+1), lastErr)
}

// newRequest creates a new HTTP request with required headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte, contentType string) (*http.Request, error) {
	url := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, errors.NewError(errors.CodeProvider, "failed to create request", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	if c.config.Organization != "" {
		req.Header.Set("OpenAI-Organization", c.config.Organization)
	}

	return req, nil
}

// handleErrorResponse extracts error information from an error response.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewError(errors.CodeProvider,
			fmt.Sprintf("HTTP %d: failed to read error response", resp.StatusCode), err)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		// If we can't parse the error, return the raw body
		return errors.NewError(errors.CodeProvider,
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)), nil)
	}

	errCode := errors.CodeProvider
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		errCode = errors.CodeConfiguration
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		errCode = errors.CodeValidation
	}

	errType := errResp.Error.Type
	if errType == "" {
		errType = "error"
	}

	return errors.NewError(errCode,
		fmt.Sprintf("%s: %s", errType, errResp.Error.Message), nil)
}

// parseRateLimitHeaders extracts rate limit information from response headers.
func (c *Client) parseRateLimitHeaders(headers http.Header) *RateLimitInfo {
	info := &RateLimitInfo{}

	if v := headers.Get("x-ratelimit-limit-requests"); v != "" {
		info.LimitRequests, _ = strconv.Atoi(v)
	}
	if v := headers.Get("x-ratelimit-limit-tokens"); v != "" {
		info.LimitTokens, _ = strconv.Atoi(v)
	}
	if v := headers.Get("x-ratelimit-remaining-requests"); v != "" {
		info.RemainingRequests, _ = strconv.Atoi(v)
	}
	if v := headers.Get("x-ratelimit-remaining-tokens"); v != "" {
		info.RemainingTokens, _ = strconv.Atoi(v)
	}
	if v := headers.Get("x-ratelimit-reset-requests"); v != "" {
		info.ResetRequests = parseResetDuration(v)
	}
	if v := headers.Get("x-ratelimit-reset-tokens"); v != "" {
		info.ResetTokens = parseResetDuration(v)
	}

	return info
}

// parseResetDuration parses OpenAI's duration format (e.g., "1s", "100ms", "6m0s")
// and returns the time when the rate limit resets.
func parseResetDuration(s string) time.Time {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Time{}
	}
	return time.Now().Add(d)
}
