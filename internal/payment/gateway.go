// Package payment wraps the external card gateway. Only the charge hand-off
// lives here; 3-D Secure flows, settlement and fraud review belong to the
// gateway itself.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kongrex/regdesk/internal/models"
)

type ChargeRequest struct {
	ConversationID  string          `json:"conversation_id"`
	ReferenceNumber string          `json:"reference_number"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        models.Currency `json:"currency"`

	CardHolder  string `json:"card_holder"`
	CardNumber  string `json:"card_number"`
	ExpireMonth string `json:"expire_month"`
	ExpireYear  string `json:"expire_year"`
	CVC         string `json:"cvc"`
}

type ChargeResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	ErrorCode     string `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
	ThreeDSUsed   bool   `json:"threeds_used"`
	FraudScore    int    `json:"fraud_score"`

	// Raw gateway response body, kept for the POS log.
	Raw string `json:"-"`
}

// Gateway is the single seam to the card processor. A declined card is a
// successful Charge call with result.Success == false; err is reserved for
// transport failures.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// HTTPGateway posts charge requests to a JSON endpoint.
type HTTPGateway struct {
	URL    string
	APIKey string
	Client *http.Client
}

func NewHTTPGateway(url, apiKey string) *HTTPGateway {
	return &HTTPGateway{
		URL:    url,
		APIKey: apiKey,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *HTTPGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.APIKey)

	resp, err := g.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway call: %w", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	var res ChargeResult
	if err := json.NewDecoder(io.TeeReader(resp.Body, &buf)).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	res.Raw = buf.String()
	return &res, nil
}

// LogTransaction appends a POS log row for a gateway attempt. The log is
// written whether the charge succeeded, was declined, or never reached the
// processor.
func LogTransaction(tx *gorm.DB, regID uint, req ChargeRequest, res *ChargeResult, callErr error) {
	entry := models.PaymentTransaction{
		RegistrationID: regID,
		ConversationID: req.ConversationID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Status:         "failure",
	}
	if res != nil {
		entry.GatewayTransactionID = res.TransactionID
		entry.ErrorCode = res.ErrorCode
		entry.ErrorMessage = res.ErrorMessage
		entry.ThreeDSUsed = res.ThreeDSUsed
		entry.FraudScore = res.FraudScore
		entry.RawResponse = res.Raw
		if res.Success {
			entry.Status = "success"
		}
	} else if callErr != nil {
		entry.ErrorCode = "GATEWAY_UNREACHABLE"
		entry.ErrorMessage = callErr.Error()
	}
	tx.Create(&entry)
}
