package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingSignature = errors.New("missing webhook signature header")
	ErrBadSignature     = errors.New("webhook signature verification failed")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
	ErrUnknownEventKind = errors.New("unhandled webhook event kind")
)

// DefaultTolerance bounds how old a signed payload may be before it is
// treated as a replay.
const DefaultTolerance = 5 * time.Minute

type EventKind string

const (
	EventPaymentSucceeded EventKind = "payment_intent.succeeded"
	EventPaymentFailed    EventKind = "payment_intent.payment_failed"
)

// Event is the reconciler's view of an inbound payment notification.
// Only the two terminal kinds are modeled; everything else the
// processor sends is rejected at parse time.
type Event struct {
	ID              string
	Kind            EventKind
	PaymentIntentID string
	PaymentMethodID string
}

type wireEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			PaymentMethod string `json:"payment_method"`
		} `json:"object"`
	} `json:"data"`
}

// VerifySignature checks the processor's signature header against the
// raw body. The header carries a unix timestamp and one or more HMAC
// candidates ("t=<ts>,v1=<hex>,..."); the signed payload is
// "<ts>.<body>". Comparison is constant-time, and payloads older than
// the tolerance are rejected even when correctly signed.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	if header == "" {
		return ErrMissingSignature
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	var ts int64
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return ErrBadSignature
			}
			ts = parsed
		case "v1":
			candidates = append(candidates, v)
		}
	}
	if ts == 0 || len(candidates) == 0 {
		return ErrBadSignature
	}

	at := time.Unix(ts, 0)
	now := time.Now()
	if at.Before(now.Add(-tolerance)) || at.After(now.Add(tolerance)) {
		return ErrStaleTimestamp
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	want := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if hmac.Equal([]byte(candidate), []byte(want)) {
			return nil
		}
	}
	return ErrBadSignature
}

// ParseEvent verifies the signature and decodes the payload into an
// Event. Kinds outside the two terminal payment outcomes are rejected
// with ErrUnknownEventKind so the caller can acknowledge-and-ignore.
func ParseEvent(payload []byte, header, secret string, tolerance time.Duration) (*Event, error) {
	if err := VerifySignature(payload, header, secret, tolerance); err != nil {
		return nil, err
	}

	var we wireEvent
	if err := json.Unmarshal(payload, &we); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	kind := EventKind(we.Type)
	switch kind {
	case EventPaymentSucceeded, EventPaymentFailed:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventKind, we.Type)
	}

	return &Event{
		ID:              we.ID,
		Kind:            kind,
		PaymentIntentID: we.Data.Object.ID,
		PaymentMethodID: we.Data.Object.PaymentMethod,
	}, nil
}

// SignPayload produces a signature header for a payload, matching what
// VerifySignature expects. Used by tests and local tooling.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
