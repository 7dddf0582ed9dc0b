package docgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
)

// HTTPClient interface for testability
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds document generation service configuration
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// Client talks to the external PDF generation service
type Client struct {
	baseURL    string
	apiToken   string
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewClient creates a new document generation client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiToken:   cfg.APIToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var _ port.DocumentGenerator = (*Client)(nil)

type renderRequest struct {
	Template string            `json:"template"`
	Fields   map[string]string `json:"fields"`
}

type renderResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Error   string `json:"error,omitempty"`
}

// Preview returns the field map the service would render for the request
func (c *Client) Preview(ctx context.Context, req *entity.DocumentRequest) (map[string]string, error) {
	return buildFields(req), nil
}

// Render produces the final document and returns its URL
func (c *Client) Render(ctx context.Context, req *entity.DocumentRequest, data map[string]string) (string, error) {
	if data == nil {
		data = buildFields(req)
	}

	payload, err := json.Marshal(renderRequest{
		Template: req.DocumentType,
		Fields:   data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal render request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		url, err := c.render(ctx, payload)
		if err == nil {
			return url, nil
		}
		lastErr = err

		// Client errors are permanent, do not retry
		if permanent(err) {
			return "", err
		}

		if attempt < 3 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			c.logger.Info("Retrying document render",
				zap.String("tracking_number", req.TrackingNumber),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", lastErr
}

func (c *Client) render(ctx context.Context, payload []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/render", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("Render request failed", zap.Error(err))
		return "", fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Render returned non-200 status",
			zap.Int("status", resp.StatusCode))
		return "", &statusError{code: resp.StatusCode}
	}

	var result renderResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode render response: %w", err)
	}
	if !result.Success {
		return "", fmt.Errorf("render rejected: %s", result.Error)
	}

	return result.URL, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("render failed with status %d", e.code)
}

func permanent(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code >= 400 && se.code < 500 && se.code != http.StatusTooManyRequests
}

func buildFields(req *entity.DocumentRequest) map[string]string {
	fields := map[string]string{
		"tracking_number":  req.TrackingNumber,
		"resident_name":    req.ResidentName,
		"resident_address": req.ResidentAddress,
		"purpose":          req.Purpose,
		"document_type":    req.DocumentType,
		"amount":           req.Amount.StringFixed(2),
		"issued_date":      time.Now().Format("January 2, 2006"),
	}
	return fields
}
