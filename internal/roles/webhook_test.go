package roles

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Constitosh/verifyDN/internal/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func savedProfile() profile.Profile {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return profile.Profile{
		IdentityKey: "42",
		DisplayName: "ana",
		Wallets:     profile.Wallets{EVM: "0xA", ADA: "addr1"},
		UpdatedAt:   &ts,
	}
}

func TestWebhookAssigner_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, Sign([]byte("s3cret"), body), r.Header.Get(SignatureHeader))

		var got profile.Profile
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "42", got.IdentityKey)
		assert.Equal(t, "0xA", got.EVM)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"roles":["holder"]}`))
	}))
	defer srv.Close()

	res, err := NewWebhookAssigner(srv.URL, "s3cret", srv.Client()).Assign(context.Background(), savedProfile())
	require.NoError(t, err)
	assert.JSONEq(t, `{"roles":["holder"]}`, string(res.Payload))
}

func TestWebhookAssigner_NoSecretNoSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(SignatureHeader))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	res, err := NewWebhookAssigner(srv.URL, "", srv.Client()).Assign(context.Background(), savedProfile())
	require.NoError(t, err)
	assert.Empty(t, res.Payload)
}

func TestWebhookAssigner_PlainTextBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("roles assigned"))
	}))
	defer srv.Close()

	res, err := NewWebhookAssigner(srv.URL, "", srv.Client()).Assign(context.Background(), savedProfile())
	require.NoError(t, err)
	assert.JSONEq(t, `"roles assigned"`, string(res.Payload))
}

func TestWebhookAssigner_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "member not in guild", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewWebhookAssigner(srv.URL, "", srv.Client()).Assign(context.Background(), savedProfile())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "member not in guild")
}
