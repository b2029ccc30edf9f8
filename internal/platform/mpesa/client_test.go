package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		ConsumerKey:      "ck",
		ConsumerSecret:   "cs",
		ShortCode:        "174379",
		Passkey:          "passkey",
		CallbackURL:      "https://clinic.example/mpesa/callback",
		AccountReference: "SkinClinic",
	}
}

type fakeGateway struct {
	tokenCalls int32
	lastSTK    stkPushPayload
	lastAuth   string
	stkStatus  int
	stkBody    string
}

func (f *fakeGateway) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		if r.URL.Query().Get("grant_type") != "client_credentials" {
			t.Errorf("unexpected grant_type %q", r.URL.Query().Get("grant_type"))
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ck" || pass != "cs" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errorCode":"401.002.01","errorMessage":"Invalid credentials"}`))
			return
		}
		w.Write([]byte(`{"access_token":"tok-123","expires_in":"3599"}`))
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&f.lastSTK); err != nil {
			t.Errorf("decode stk body: %v", err)
		}
		if f.stkStatus != 0 {
			w.WriteHeader(f.stkStatus)
			w.Write([]byte(f.stkBody))
			return
		}
		w.Write([]byte(`{"MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_1","ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing","CustomerMessage":"Success"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPasswordAndTimestamp(t *testing.T) {
	ts := Timestamp(time.Date(2026, 10, 18, 9, 5, 3, 0, time.UTC))
	if ts != "20261018090503" {
		t.Fatalf("unexpected timestamp %s", ts)
	}
	pw := Password("174379", "passkey", ts)
	decoded, err := base64.StdEncoding.DecodeString(pw)
	if err != nil {
		t.Fatalf("password is not base64: %v", err)
	}
	if string(decoded) != "174379passkey20261018090503" {
		t.Errorf("unexpected password plaintext %q", decoded)
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0712345678", "254712345678", false},
		{"+254712345678", "254712345678", false},
		{"254112345678", "254112345678", false},
		{"712 345 678", "254712345678", false},
		{"0812345678", "", true},
		{"12345", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizePhone(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClient_Token(t *testing.T) {
	gw := &fakeGateway{}
	srv := gw.server(t)

	tok, err := NewClient(testConfig(srv.URL), srv.Client()).Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "tok-123" {
		t.Errorf("expected tok-123, got %q", tok.AccessToken)
	}
}

func TestClient_TokenBadCredentials(t *testing.T) {
	gw := &fakeGateway{}
	srv := gw.server(t)
	cfg := testConfig(srv.URL)
	cfg.ConsumerSecret = "wrong"

	_, err := NewClient(cfg, srv.Client()).Token(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Code != "401.002.01" {
		t.Errorf("unexpected api error %+v", apiErr)
	}
}

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://unused"}, nil)
	if _, err := c.Token(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := c.STKPush(context.Background(), STKPushRequest{Phone: "0712345678", Amount: 1}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestClient_STKPush(t *testing.T) {
	gw := &fakeGateway{}
	srv := gw.server(t)
	c := NewClient(testConfig(srv.URL), srv.Client())
	c.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }

	resp, err := c.STKPush(context.Background(), STKPushRequest{Phone: "0712345678", Amount: 1500})
	if err != nil {
		t.Fatalf("STKPush: %v", err)
	}
	if resp.CheckoutRequestID != "ws_CO_1" {
		t.Errorf("expected ws_CO_1, got %q", resp.CheckoutRequestID)
	}
	if gw.lastAuth != "Bearer tok-123" {
		t.Errorf("expected bearer token, got %q", gw.lastAuth)
	}

	p := gw.lastSTK
	if p.BusinessShortCode != "174379" || p.PartyB != "174379" {
		t.Errorf("unexpected short code fields %+v", p)
	}
	if p.PartyA != "254712345678" || p.PhoneNumber != "254712345678" {
		t.Errorf("expected normalized phone, got %+v", p)
	}
	if p.TransactionType != "CustomerPayBillOnline" || p.Amount != 1500 {
		t.Errorf("unexpected transaction fields %+v", p)
	}
	if p.Timestamp != "20261018090000" || p.Password != Password("174379", "passkey", "20261018090000") {
		t.Errorf("unexpected timestamp/password %s %s", p.Timestamp, p.Password)
	}
	if p.AccountReference != "SkinClinic" || p.CallBackURL != "https://clinic.example/mpesa/callback" {
		t.Errorf("unexpected reference/callback %+v", p)
	}
}

func TestClient_STKPushReusesToken(t *testing.T) {
	gw := &fakeGateway{}
	srv := gw.server(t)
	c := NewClient(testConfig(srv.URL), srv.Client())

	for i := 0; i < 3; i++ {
		if _, err := c.STKPush(context.Background(), STKPushRequest{Phone: "0712345678", Amount: 10}); err != nil {
			t.Fatalf("STKPush %d: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&gw.tokenCalls); n != 1 {
		t.Errorf("expected one token request, got %d", n)
	}
}

func TestClient_STKPushGatewayError(t *testing.T) {
	gw := &fakeGateway{
		stkStatus: http.StatusBadRequest,
		stkBody:   `{"requestId":"r-1","errorCode":"400.002.02","errorMessage":"Bad Request - Invalid Amount"}`,
	}
	srv := gw.server(t)
	c := NewClient(testConfig(srv.URL), srv.Client())

	_, err := c.STKPush(context.Background(), STKPushRequest{Phone: "0712345678", Amount: 10})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "400.002.02" || apiErr.RequestID != "r-1" {
		t.Errorf("unexpected api error %+v", apiErr)
	}
}

func TestClient_STKPushValidation(t *testing.T) {
	c := NewClient(testConfig("http://unused"), nil)
	if _, err := c.STKPush(context.Background(), STKPushRequest{Phone: "123", Amount: 10}); !errors.Is(err, ErrInvalidPhone) {
		t.Errorf("expected ErrInvalidPhone, got %v", err)
	}
	if _, err := c.STKPush(context.Background(), STKPushRequest{Phone: "0712345678", Amount: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}
