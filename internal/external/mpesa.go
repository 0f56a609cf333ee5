package external

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MpesaClient wraps the Safaricom Daraja OAuth and STK Push endpoints. It is
// a pure remote-call wrapper: nothing is persisted here and failed calls are
// never retried, since a retried charge initiation cannot be distinguished
// from a duplicate charge.
type MpesaClient struct {
	cfg        MpesaConfig
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	Timeout        time.Duration
}

// GatewayError carries the provider's raw error payload where available
type GatewayError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mpesa gateway error: %v", e.Err)
	}
	return fmt.Sprintf("mpesa gateway error: status %d: %s", e.StatusCode, e.Body)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// STKPushRequest is the charge-initiation payload fixed by the provider
type STKPushRequest struct {
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

// STKPushResponse carries the correlation identifier the asynchronous
// callback will later be matched against
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

func NewMpesaClient(cfg MpesaConfig) *MpesaClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &MpesaClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// AccessToken returns a cached OAuth token, refreshing it when it is within
// a minute of expiry
func (mc *MpesaClient) AccessToken(ctx context.Context) (string, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.token != "" && time.Now().Before(mc.tokenExpiry.Add(-time.Minute)) {
		return mc.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		mc.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", &GatewayError{Err: err}
	}

	credentials := base64.StdEncoding.EncodeToString(
		[]byte(mc.cfg.ConsumerKey + ":" + mc.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/json")

	resp, err := mc.httpClient.Do(req)
	if err != nil {
		return "", &GatewayError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &GatewayError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result tokenResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &GatewayError{StatusCode: resp.StatusCode, Body: string(body), Err: err}
	}
	if result.AccessToken == "" {
		return "", &GatewayError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	expiresIn := int64(3599)
	if v, err := strconv.ParseInt(result.ExpiresIn, 10, 64); err == nil && v > 0 {
		expiresIn = v
	}

	mc.token = result.AccessToken
	mc.tokenExpiry = time.Now().Add(time.Duration(expiresIn) * time.Second)

	return mc.token, nil
}

// InitiateSTKPush submits a charge to the customer's phone and returns the
// provider's correlation reference
func (mc *MpesaClient) InitiateSTKPush(ctx context.Context, phone string, amount int64, accountRef, description string) (*STKPushResponse, error) {
	token, err := mc.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format("20060102150405")

	payload := STKPushRequest{
		BusinessShortCode: mc.cfg.ShortCode,
		Password:          generatePassword(mc.cfg.ShortCode, mc.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phone,
		PartyB:            mc.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       mc.cfg.CallbackURL,
		AccountReference:  truncate(accountRef, 12),
		TransactionDesc:   truncate(description, 13),
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		mc.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, &GatewayError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := mc.httpClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result STKPushResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: string(body), Err: err}
	}

	if result.ResponseCode != "0" || result.CheckoutRequestID == "" {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return &result, nil
}

// generatePassword builds the Daraja request password:
// base64(shortcode + passkey + timestamp)
func generatePassword(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// FormatPhoneNumber normalizes a phone number to the 254XXXXXXXXX format the
// gateway requires: leading trunk zero replaced with the country code, '+'
// stripped
func FormatPhoneNumber(phone string) string {
	formatted := strings.ReplaceAll(strings.TrimSpace(phone), " ", "")

	switch {
	case strings.HasPrefix(formatted, "0"):
		formatted = "254" + formatted[1:]
	case strings.HasPrefix(formatted, "+"):
		formatted = formatted[1:]
	case !strings.HasPrefix(formatted, "254"):
		formatted = "254" + formatted
	}

	return formatted
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
