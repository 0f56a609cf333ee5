package external

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrNoCallback is returned when the payload carries no stkCallback object.
// Such payloads are acknowledged and dropped, never treated as a fault.
var ErrNoCallback = errors.New("callback payload has no stkCallback body")

// CallbackResult is the small typed view extracted from the loosely
// structured provider callback. Every field except CheckoutRequestID is
// optional; absent metadata falls back to whatever the caller already has
// stored.
type CallbackResult struct {
	ResultCode        int
	ResultDesc        string
	CheckoutRequestID string
	Amount            *int64
	ReceiptNumber     string
	PhoneNumber       string
}

// Success reports whether the provider considered the charge successful.
// Zero is the only success code; negative sentinel values count as failure.
func (r *CallbackResult) Success() bool {
	return r.ResultCode == 0
}

type metadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

type stkCallback struct {
	MerchantRequestID string          `json:"MerchantRequestID"`
	CheckoutRequestID string          `json:"CheckoutRequestID"`
	ResultCode        *int            `json:"ResultCode"`
	ResultDesc        string          `json:"ResultDesc"`
	CallbackMetadata  json.RawMessage `json:"CallbackMetadata"`
}

type callbackEnvelope struct {
	Body struct {
		StkCallback *stkCallback `json:"stkCallback"`
	} `json:"Body"`
	StkCallback *stkCallback `json:"stkCallback"`
}

// ParseSTKCallback extracts a CallbackResult from a raw callback body. The
// provider's field names vary across versions; json.Unmarshal's
// case-insensitive matching plus the fallback locations below cover the
// observed shapes. A missing result code maps to -1, which is a failure.
func ParseSTKCallback(raw []byte) (*CallbackResult, error) {
	var envelope callbackEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}

	callback := envelope.Body.StkCallback
	if callback == nil {
		callback = envelope.StkCallback
	}
	if callback == nil {
		return nil, ErrNoCallback
	}

	result := &CallbackResult{
		ResultCode:        -1,
		ResultDesc:        callback.ResultDesc,
		CheckoutRequestID: callback.CheckoutRequestID,
	}
	if callback.ResultCode != nil {
		result.ResultCode = *callback.ResultCode
	}

	items := parseMetadataItems(callback.CallbackMetadata)
	for _, item := range items {
		switch {
		case strings.EqualFold(item.Name, "Amount"):
			if v, ok := parseAmount(item.Value); ok {
				result.Amount = &v
			}
		case strings.EqualFold(item.Name, "MpesaReceiptNumber"),
			strings.EqualFold(item.Name, "MpesaReceiptNo"):
			if s, ok := parseString(item.Value); ok {
				result.ReceiptNumber = s
			}
		case strings.EqualFold(item.Name, "PhoneNumber"):
			if s, ok := parseString(item.Value); ok {
				result.PhoneNumber = s
			}
		}
	}

	return result, nil
}

// parseMetadataItems accepts both {"Item": [...]} and a bare item array
func parseMetadataItems(raw json.RawMessage) []metadataItem {
	if len(raw) == 0 {
		return nil
	}

	var wrapped struct {
		Item []metadataItem `json:"Item"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Item) > 0 {
		return wrapped.Item
	}

	var items []metadataItem
	if err := json.Unmarshal(raw, &items); err == nil {
		return items
	}

	return nil
}

// parseAmount reads a metadata value that may arrive as a JSON number
// (possibly fractional) or a numeric string, in whole shillings
func parseAmount(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		if i, err := num.Int64(); err == nil {
			return i, true
		}
		if f, err := num.Float64(); err == nil {
			return int64(f), true
		}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
	}

	return 0, false
}

// parseString reads a metadata value that may arrive as a string or a number
func parseString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, true
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil && num.String() != "" {
		return num.String(), true
	}

	return "", false
}
