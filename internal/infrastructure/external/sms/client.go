package sms

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
)

// HTTPClient interface for testability
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds SMS gateway configuration
type Config struct {
	BaseURL    string
	APIToken   string
	SenderName string
	Timeout    time.Duration
}

// Client sends resident notifications through an SMS gateway
type Client struct {
	baseURL    string
	apiToken   string
	senderName string
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewClient creates a new SMS gateway client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiToken:   cfg.APIToken,
		senderName: cfg.SenderName,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var _ port.SMSSender = (*Client)(nil)

type sendRequest struct {
	Number     string `json:"number"`
	Message    string `json:"message"`
	SenderName string `json:"sender_name,omitempty"`
}

type sendResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Send delivers a message to a resident's mobile number
func (c *Client) Send(ctx context.Context, mobileNumber, message string) error {
	payload, err := json.Marshal(sendRequest{
		Number:     mobileNumber,
		Message:    message,
		SenderName: c.senderName,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("SMS request failed", zap.Error(err))
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("SMS gateway returned non-200 status",
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("sms failed with status %d", resp.StatusCode)
	}

	var result sendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to decode sms response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("sms rejected: %s", result.Error)
	}

	c.logger.Debug("SMS sent", zap.String("number", mobileNumber))
	return nil
}

// NopSender is used when the SMS gateway is disabled
type NopSender struct{}

// Send discards the message
func (NopSender) Send(ctx context.Context, mobileNumber, message string) error {
	return nil
}
