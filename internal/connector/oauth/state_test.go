package oauth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
)

func TestStateCodecRoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewStateCodec("secret")

	t.Run("encode then decode preserves payload", func(t *testing.T) {
		payload := StatePayload{
			QBCompanyID: "company-xyz",
			Nonce:       "nonce-value",
			IssuedAt:    time.Now().Unix(),
		}

		state, err := codec.Encode(payload)
		require.NoError(t, err)

		decoded, err := codec.Decode(state)
		require.NoError(t, err)
		require.Equal(t, payload, decoded)
	})

	t.Run("state has two dot separated segments", func(t *testing.T) {
		state, err := codec.NewState("company-xyz")
		require.NoError(t, err)

		parts := strings.Split(state, ".")
		require.Len(t, parts, 2)
		require.NotEmpty(t, parts[0])
		// hex-encoded sha256 mac
		require.Len(t, parts[1], 64)
	})

	t.Run("same company produces distinct states", func(t *testing.T) {
		a, err := codec.NewState("company-xyz")
		require.NoError(t, err)
		b, err := codec.NewState("company-xyz")
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})
}

func TestStateCodecDecodeFailures(t *testing.T) {
	t.Parallel()

	codec := NewStateCodec("secret")

	t.Run("missing signature segment", func(t *testing.T) {
		_, err := codec.Decode("just-a-payload")
		require.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("tampered payload fails signature check", func(t *testing.T) {
		state, err := codec.NewState("company-xyz")
		require.NoError(t, err)

		encoded, sig, _ := strings.Cut(state, ".")
		tampered := encoded[:len(encoded)-1] + "A" + "." + sig
		if tampered == state {
			tampered = encoded[:len(encoded)-1] + "B" + "." + sig
		}

		_, err = codec.Decode(tampered)
		require.ErrorIs(t, err, domain.ErrInvalidStateSignature)
	})

	t.Run("wrong secret fails signature check", func(t *testing.T) {
		state, err := codec.NewState("company-xyz")
		require.NoError(t, err)

		other := NewStateCodec("different-secret")
		_, err = other.Decode(state)
		require.ErrorIs(t, err, domain.ErrInvalidStateSignature)
	})

	t.Run("signed non-object payload rejected", func(t *testing.T) {
		// Sign "null" with the real secret so only the payload shape fails.
		encoded := "bnVsbA" // base64url("null")
		state := encoded + "." + codec.sign(encoded)

		_, err := codec.Decode(state)
		require.ErrorIs(t, err, domain.ErrInvalidState)
	})
}

func TestExtractCompanyID(t *testing.T) {
	t.Parallel()

	codec := NewStateCodec("secret")

	t.Run("returns the embedded company id", func(t *testing.T) {
		state, err := codec.NewState("company-xyz")
		require.NoError(t, err)

		id, err := codec.ExtractCompanyID(state)
		require.NoError(t, err)
		require.Equal(t, "company-xyz", id)
	})

	t.Run("empty company id rejected", func(t *testing.T) {
		state, err := codec.Encode(StatePayload{Nonce: "n", IssuedAt: 1})
		require.NoError(t, err)

		_, err = codec.ExtractCompanyID(state)
		require.ErrorIs(t, err, domain.ErrMissingCompanyID)
	})

	t.Run("invalid state propagates", func(t *testing.T) {
		_, err := codec.ExtractCompanyID("garbage")
		require.ErrorIs(t, err, domain.ErrInvalidState)
	})
}
