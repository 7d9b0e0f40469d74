package oauth

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
)

// StatePayload is round-tripped through the provider's OAuth redirect to
// correlate the callback with the originating company without server-side
// session state.
type StatePayload struct {
	QBCompanyID string `json:"qb_company_id"`
	Nonce       string `json:"nonce"`
	IssuedAt    int64  `json:"ts"`
}

// StateCodec signs and verifies state parameters. The wire form is
// base64url(json(payload)) + "." + hex(hmac-sha256(secret, base64url part)),
// base64url unpadded. Pure: same payload and secret always produce the same
// state.
type StateCodec struct {
	secret []byte
}

func NewStateCodec(secret string) *StateCodec {
	return &StateCodec{secret: []byte(secret)}
}

// Encode serializes and signs the payload.
func (c *StateCodec) Encode(payload StatePayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding oauth state: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return encoded + "." + c.sign(encoded), nil
}

// NewState encodes a fresh payload for the company: random nonce, current
// timestamp. Two calls for the same company produce different states.
func (c *StateCodec) NewState(qbCompanyID string) (string, error) {
	nonce, err := newNonce()
	if err != nil {
		return "", err
	}
	return c.Encode(StatePayload{
		QBCompanyID: qbCompanyID,
		Nonce:       nonce,
		IssuedAt:    time.Now().Unix(),
	})
}

// Decode verifies the signature and parses the payload. It fails closed:
// a missing signature segment or non-object payload is ErrInvalidState, a
// signature mismatch is ErrInvalidStateSignature.
func (c *StateCodec) Decode(state string) (StatePayload, error) {
	encoded, sig, found := strings.Cut(state, ".")
	if !found || sig == "" {
		return StatePayload{}, fmt.Errorf("%w: missing signature", domain.ErrInvalidState)
	}

	if !hmac.Equal([]byte(c.sign(encoded)), []byte(sig)) {
		return StatePayload{}, domain.ErrInvalidStateSignature
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return StatePayload{}, fmt.Errorf("%w: %v", domain.ErrInvalidState, err)
	}

	// Only a JSON object is acceptable; "null", arrays and scalars are not.
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return StatePayload{}, fmt.Errorf("%w: payload is not an object", domain.ErrInvalidState)
	}

	var payload StatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return StatePayload{}, fmt.Errorf("%w: %v", domain.ErrInvalidState, err)
	}
	return payload, nil
}

// ExtractCompanyID decodes the state and requires a non-empty company id.
func (c *StateCodec) ExtractCompanyID(state string) (string, error) {
	payload, err := c.Decode(state)
	if err != nil {
		return "", err
	}
	if payload.QBCompanyID == "" {
		return "", domain.ErrMissingCompanyID
	}
	return payload.QBCompanyID, nil
}

func (c *StateCodec) sign(encoded string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encoded))
	return hex.EncodeToString(mac.Sum(nil))
}

// newNonce returns 16 random bytes base64url-encoded (22 chars).
func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating state nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
