// Package mpesa is a client for the Safaricom Daraja API: OAuth token
// acquisition and Lipa na M-Pesa Online (STK push) requests.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	tokenPath       = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath     = "/mpesa/stkpush/v1/processrequest"
	timestampLayout = "20060102150405"
	transactionType = "CustomerPayBillOnline"
)

var (
	ErrNotConfigured = errors.New("mpesa: gateway credentials are not configured")
	ErrInvalidPhone  = errors.New("mpesa: phone number must be a Kenyan mobile number")
	ErrInvalidAmount = errors.New("mpesa: amount must be a positive whole number")
)

type Config struct {
	BaseURL          string
	ConsumerKey      string
	ConsumerSecret   string
	ShortCode        string
	Passkey          string
	CallbackURL      string
	AccountReference string
	// Location is the zone used for the request timestamp (EAT).
	Location *time.Location
}

func (c Config) configured() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.ShortCode != "" && c.Passkey != ""
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	RequestID  string `json:"requestId"`
	Code       string `json:"errorCode"`
	Message    string `json:"errorMessage"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("mpesa: gateway returned %d: %s %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("mpesa: gateway returned %d", e.StatusCode)
}

// AccessToken is the OAuth credential returned by the token endpoint.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// STKPushRequest is the caller-facing push payment request.
type STKPushRequest struct {
	Phone            string
	Amount           int64
	AccountReference string
	Description      string
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is the gateway's synchronous acknowledgement.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// Client talks to Daraja. Tokens are cached until shortly before expiry;
// failed calls are not retried.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time

	mu          sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient, now: time.Now}
}

// Token fetches a fresh access token using HTTP Basic credentials.
func (c *Client) Token(ctx context.Context) (*AccessToken, error) {
	if !c.cfg.configured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return nil, fmt.Errorf("mpesa: build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)
	req.Header.Set("Accept", "application/json")

	var tok AccessToken
	if err := c.do(req, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, errors.New("mpesa: token response missing access_token")
	}
	return &tok, nil
}

func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedToken != "" && c.now().Before(c.tokenExpiry) {
		return c.cachedToken, nil
	}

	tok, err := c.Token(ctx)
	if err != nil {
		return "", err
	}
	ttl := 3599 * time.Second
	if secs, err := strconv.Atoi(tok.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	c.cachedToken = tok.AccessToken
	c.tokenExpiry = c.now().Add(ttl - time.Minute)
	return c.cachedToken, nil
}

// STKPush asks the gateway to prompt the customer's handset for payment.
func (c *Client) STKPush(ctx context.Context, r STKPushRequest) (*STKPushResponse, error) {
	if !c.cfg.configured() {
		return nil, ErrNotConfigured
	}
	phone, err := NormalizePhone(r.Phone)
	if err != nil {
		return nil, err
	}
	if r.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	token, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}

	ts := Timestamp(c.now().In(c.cfg.Location))
	ref := r.AccountReference
	if ref == "" {
		ref = c.cfg.AccountReference
	}
	desc := r.Description
	if desc == "" {
		desc = "Consultation payment"
	}

	payload := stkPushPayload{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.Passkey, ts),
		Timestamp:         ts,
		TransactionType:   transactionType,
		Amount:            r.Amount,
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  truncate(ref, 12),
		TransactionDesc:   truncate(desc, 13),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("mpesa: marshal stk push: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+stkPushPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("mpesa: build stk push request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var out STKPushResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.ResponseCode != "" && out.ResponseCode != "0" {
		return nil, &APIError{StatusCode: http.StatusOK, Code: out.ResponseCode, Message: out.ResponseDescription}
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mpesa: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("mpesa: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("mpesa: decode response: %w", err)
	}
	return nil
}

// Timestamp formats t as YYYYMMDDHHMMSS.
func Timestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

var kenyanMobile = regexp.MustCompile(`^254(7|1)\d{8}$`)

// NormalizePhone converts 07XXXXXXXX, 7XXXXXXXX and +2547XXXXXXXX forms to
// the 2547XXXXXXXX form the gateway expects.
func NormalizePhone(phone string) (string, error) {
	p := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	p = strings.TrimPrefix(p, "+")
	switch {
	case strings.HasPrefix(p, "0") && len(p) == 10:
		p = "254" + p[1:]
	case len(p) == 9 && (p[0] == '7' || p[0] == '1'):
		p = "254" + p
	}
	if !kenyanMobile.MatchString(p) {
		return "", ErrInvalidPhone
	}
	return p, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
