// Package payment wraps the external payment gateway. The core never
// inspects instrument details; it consumes the success flag and the charge
// reference used for idempotent retry keying.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sailingloc/boatbooking/config"
	"github.com/sailingloc/boatbooking/internal/domain"
	"go.uber.org/zap"
)

// Instrument is an opaque payment instrument handle issued by the gateway's
// client-side tokenizer. Card data never transits this service.
type Instrument struct {
	Method string `json:"method"`
	Token  string `json:"token"`
}

type Receipt struct {
	Success       bool   `json:"success"`
	Reference     string `json:"reference"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// DeclinedError is a definitive gateway refusal, as opposed to a transport
// failure: the charge did not happen and retrying with the same instrument
// will not help.
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment declined: %s", e.Reason)
}

type Authority interface {
	Charge(ctx context.Context, amountCents int64, instrument Instrument) (*Receipt, error)
	// Reverse undoes a settled charge, used when booking materialization
	// fails after payment succeeded.
	Reverse(ctx context.Context, reference string) error
}

type GatewayClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewGatewayClient(cfg config.PaymentConfig, logger *zap.Logger) *GatewayClient {
	timeout := cfg.Timeout()
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &GatewayClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type chargeRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	Token       string `json:"token"`
}

func (g *GatewayClient) Charge(ctx context.Context, amountCents int64, instrument Instrument) (*Receipt, error) {
	body, err := json.Marshal(chargeRequest{AmountCents: amountCents, Method: instrument.Method, Token: instrument.Token})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		// Timeouts and transport failures are never treated as success.
		return nil, &domain.CollaboratorError{Collaborator: "payment", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &domain.CollaboratorError{Collaborator: "payment", Err: fmt.Errorf("gateway returned %d", resp.StatusCode)}
	}

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, &domain.CollaboratorError{Collaborator: "payment", Err: fmt.Errorf("decode gateway response: %w", err)}
	}

	if !receipt.Success {
		return &receipt, &DeclinedError{Reason: receipt.FailureReason}
	}

	g.logger.Info("charge settled", zap.String("reference", receipt.Reference), zap.Int64("amount_cents", amountCents))
	return &receipt, nil
}

func (g *GatewayClient) Reverse(ctx context.Context, reference string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/charges/%s/reverse", g.baseURL, reference), nil)
	if err != nil {
		return err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return &domain.CollaboratorError{Collaborator: "payment", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &domain.CollaboratorError{Collaborator: "payment", Err: fmt.Errorf("reverse returned %d", resp.StatusCode)}
	}

	g.logger.Info("charge reversed", zap.String("reference", reference))
	return nil
}

var _ Authority = (*GatewayClient)(nil)
