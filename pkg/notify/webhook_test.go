package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier_VerifyTarget(t *testing.T) {
	n := NewWebhookNotifier()
	assert.True(t, n.VerifyTarget("https://hooks.example.com/abc"), "expected an https URL to verify")
	assert.False(t, n.VerifyTarget("not-a-url"), "expected a non-URL target to fail verification")
}

func TestWebhookNotifier_SendPostsJSON(t *testing.T) {
	var receivedContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier()
	require.NoError(t, n.Send(context.Background(), server.URL, "site-1 is down"))
	assert.Equal(t, "application/json", receivedContentType)
}

func TestWebhookNotifier_SendSurfacesNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhookNotifier()
	assert.Error(t, n.Send(context.Background(), server.URL, "message"), "expected a 500 response to surface as an error")
}
