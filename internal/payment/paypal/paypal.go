// Package paypal is a minimal PayPal Orders v2 client: create an order for a
// total, hand the approval link to the shopper, capture once approved.
package paypal

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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	SandboxURL = "https://api-m.sandbox.paypal.com"
	LiveURL    = "https://api-m.paypal.com"

	StatusCreated   = "CREATED"
	StatusApproved  = "APPROVED"
	StatusCompleted = "COMPLETED"
	StatusDeclined  = "DECLINED"
)

var ErrNotConfigured = errors.New("paypal client id and secret are required")

type Config struct {
	ClientID  string
	Secret    string
	BaseURL   string
	BrandName string
	ReturnURL string
	CancelURL string
	Timeout   time.Duration
}

type Client struct {
	base string
	cfg  Config
	http *http.Client
}

// New builds a client whose requests carry a client-credentials token. ctx
// scopes token refreshes; an *http.Client stored under oauth2.HTTPClient in
// ctx is used for every call.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.Secret == "" {
		return nil, ErrNotConfigured
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = SandboxURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.Secret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	httpClient := cc.Client(ctx)
	httpClient.Timeout = cfg.Timeout

	return &Client{base: base, cfg: cfg, http: httpClient}, nil
}

// Order is the part of a PayPal order the checkout cares about.
type Order struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	ApproveURL string          `json:"approve_url,omitempty"`
	CaptureID  string          `json:"capture_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

func (o Order) Completed() bool {
	return o.Status == StatusCompleted
}

// Error is a non-2xx reply from PayPal.
type Error struct {
	Status  int    `json:"-"`
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("paypal %d %s: %s", e.Status, e.Name, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + e.Details[0].Issue + ")"
	}
	return msg
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount      amount `json:"amount"`
	Description string `json:"description,omitempty"`
	Payments    *struct {
		Captures []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Amount amount `json:"amount"`
		} `json:"captures"`
	} `json:"payments,omitempty"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
	AppContext    *appContext    `json:"application_context,omitempty"`
}

type appContext struct {
	BrandName  string `json:"brand_name,omitempty"`
	ReturnURL  string `json:"return_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
	UserAction string `json:"user_action,omitempty"`
}

type orderResponse struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
	Links         []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (r orderResponse) order() Order {
	o := Order{ID: r.ID, Status: r.Status}
	for _, l := range r.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			o.ApproveURL = l.Href
			break
		}
	}
	for _, pu := range r.PurchaseUnits {
		if pu.Amount.Value != "" {
			o.Amount, _ = decimal.NewFromString(pu.Amount.Value)
			o.Currency = pu.Amount.CurrencyCode
		}
		if pu.Payments == nil {
			continue
		}
		for _, c := range pu.Payments.Captures {
			o.CaptureID = c.ID
			if o.Amount.IsZero() {
				o.Amount, _ = decimal.NewFromString(c.Amount.Value)
				o.Currency = c.Amount.CurrencyCode
			}
		}
	}
	return o
}

// CreateOrder opens an order for total in currency.
func (c *Client) CreateOrder(ctx context.Context, total decimal.Decimal, currency, description string) (Order, error) {
	req := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount:      amount{CurrencyCode: currency, Value: total.StringFixed(2)},
			Description: description,
		}},
		AppContext: &appContext{
			BrandName:  c.cfg.BrandName,
			ReturnURL:  c.cfg.ReturnURL,
			CancelURL:  c.cfg.CancelURL,
			UserAction: "PAY_NOW",
		},
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", req, &resp); err != nil {
		return Order{}, err
	}
	o := resp.order()
	if o.Amount.IsZero() {
		o.Amount, o.Currency = total, currency
	}
	logrus.WithFields(logrus.Fields{"paypal_order": o.ID, "total": total.StringFixed(2)}).Info("PayPal order created")
	return o, nil
}

// CaptureOrder captures an approved order.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (Order, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", struct{}{}, &resp); err != nil {
		return Order{}, err
	}
	o := resp.order()
	logrus.WithFields(logrus.Fields{"paypal_order": o.ID, "status": o.Status, "capture": o.CaptureID}).Info("PayPal capture answered")
	return o, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	req.Header.Set("PayPal-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paypal request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("paypal response unreadable: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := &Error{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, perr)
		return perr
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("paypal response malformed: %w", err)
	}
	return nil
}

// Unavailable replaces the client when no credentials are configured. Every
// call fails with ErrNotConfigured.
type Unavailable struct{}

func (Unavailable) CreateOrder(context.Context, decimal.Decimal, string, string) (Order, error) {
	return Order{}, ErrNotConfigured
}

func (Unavailable) CaptureOrder(context.Context, string) (Order, error) {
	return Order{}, ErrNotConfigured
}
