// Package identity ingests identity-provider webhooks into the local user
// table and exposes the role-sync endpoint.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

// Signature headers of the svix delivery scheme.
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

const secretPrefix = "whsec_"

// DefaultTolerance bounds the clock skew accepted on delivery timestamps.
const DefaultTolerance = 5 * time.Minute

// SignatureError rejects a delivery before any state is touched.
type SignatureError struct {
	Reason string
}

func (e *SignatureError) Error() string { return "identity: signature: " + e.Reason }

func (e *SignatureError) Unwrap() error { return httpx.ErrValidation }

// Verifier checks svix signatures with one signing secret.
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier decodes a "whsec_"-prefixed base64 secret. A non-positive
// tolerance uses DefaultTolerance.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("identity: signing secret required")
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return nil, fmt.Errorf("identity: decode signing secret: %w", err)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{key: key, tolerance: tolerance, now: time.Now}, nil
}

// Sign returns the v1 signature of body for id at ts.
func (v *Verifier) Sign(id string, ts time.Time, body []byte) string {
	return "v1," + v.digest(id, strconv.FormatInt(ts.Unix(), 10), body)
}

// Verify checks the delivery headers against body. It returns the event id.
func (v *Verifier) Verify(h http.Header, body []byte) (string, error) {
	id, ts, sigs := h.Get(HeaderID), h.Get(HeaderTimestamp), h.Get(HeaderSignature)
	if id == "" || ts == "" || sigs == "" {
		return "", &SignatureError{Reason: "missing required webhook headers"}
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", &SignatureError{Reason: "invalid timestamp"}
	}
	skew := v.now().Sub(time.Unix(sec, 0))
	if skew > v.tolerance || skew < -v.tolerance {
		return "", &SignatureError{Reason: "timestamp outside tolerance"}
	}
	expected := []byte(v.digest(id, ts, body))
	for _, candidate := range strings.Fields(sigs) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), expected) {
			return id, nil
		}
	}
	return "", &SignatureError{Reason: "no matching signature"}
}

func (v *Verifier) digest(id, ts string, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id))
	mac.Write([]byte{'.'})
	mac.Write([]byte(ts))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
