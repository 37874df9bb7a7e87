package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"wizesign/internal/config"
	"wizesign/internal/domain/entity"
)

// WizeChatClient talks to the WizeChat e-signature API for WhatsApp
// delivery of links, OTP codes and completion notices. Delivery failures
// are reported to the caller and never touch document state.
type WizeChatClient struct {
	client    *http.Client
	config    *config.WizeChatConfig
	signature *HMACSignature
	logger    *zap.Logger
}

func NewWizeChatClient(cfg *config.Config, logger *zap.Logger) *WizeChatClient {
	c := &WizeChatClient{
		client: &http.Client{
			Timeout: time.Duration(cfg.WizeChat.TimeoutSeconds) * time.Second,
		},
		config:    &cfg.WizeChat,
		signature: NewHMACSignature(cfg.WizeChat.ClientID, cfg.WizeChat.ClientSecret),
		logger:    logger,
	}

	logger.Info("WizeChat client initialized",
		zap.String("base_url", cfg.WizeChat.BaseURL),
		zap.String("inbox_id", cfg.WizeChat.InboxID),
	)

	return c
}

type sendRequestPayload struct {
	InboxID        string `json:"inbox_id"`
	ToPhone        string `json:"to_phone"`
	DocumentName   string `json:"document_name"`
	SignatureLink  string `json:"signature_link"`
	RecipientName  string `json:"recipient_name,omitempty"`
	ExpiresInHours int    `json:"expires_in_hours,omitempty"`
}

type sendOtpPayload struct {
	InboxID          string `json:"inbox_id"`
	ToPhone          string `json:"to_phone"`
	OtpCode          string `json:"otp_code"`
	RecipientName    string `json:"recipient_name,omitempty"`
	ExpiresInMinutes int    `json:"expires_in_minutes,omitempty"`
}

type sendCompletionPayload struct {
	InboxID       string `json:"inbox_id"`
	ToPhone       string `json:"to_phone"`
	DocumentName  string `json:"document_name"`
	DownloadLink  string `json:"download_link,omitempty"`
	RecipientName string `json:"recipient_name,omitempty"`
}

// SendLink delivers the patient signing link.
func (c *WizeChatClient) SendLink(ctx context.Context, phone, recipientName, documentName, link string, expiresInHours int) error {
	return c.post(ctx, "/esignature/send-request", sendRequestPayload{
		InboxID:        c.config.InboxID,
		ToPhone:        phone,
		DocumentName:   documentName,
		SignatureLink:  link,
		RecipientName:  recipientName,
		ExpiresInHours: expiresInHours,
	})
}

// SendOtp delivers a plaintext OTP code out of band. The code is never
// logged or persisted here.
func (c *WizeChatClient) SendOtp(ctx context.Context, phone, recipientName, code string, expiresInMinutes int) error {
	return c.post(ctx, "/esignature/send-otp", sendOtpPayload{
		InboxID:          c.config.InboxID,
		ToPhone:          phone,
		OtpCode:          code,
		RecipientName:    recipientName,
		ExpiresInMinutes: expiresInMinutes,
	})
}

// SendCompletion notifies the patient that the signed artifact is ready.
func (c *WizeChatClient) SendCompletion(ctx context.Context, phone, recipientName, documentName, downloadLink string) error {
	return c.post(ctx, "/esignature/send-completion", sendCompletionPayload{
		InboxID:       c.config.InboxID,
		ToPhone:       phone,
		DocumentName:  documentName,
		DownloadLink:  downloadLink,
		RecipientName: recipientName,
	})
}

func (c *WizeChatClient) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: failed to encode payload: %v", entity.ErrDelivery, err)
	}

	fullURL := c.config.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: failed to build request: %v", entity.ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.signature.SignRequest(req); err != nil {
		return fmt.Errorf("%w: failed to sign request: %v", entity.ErrDelivery, err)
	}

	c.logger.Info("Sending WizeChat request",
		zap.String("url", fullURL),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("WizeChat request failed",
			zap.String("url", fullURL),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", entity.ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("WizeChat request rejected",
			zap.String("url", fullURL),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return fmt.Errorf("%w: wizechat returned status %d", entity.ErrDelivery, resp.StatusCode)
	}

	return nil
}
