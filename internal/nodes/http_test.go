package nodes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowcore/flowcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRequestNodeValidateRejectsEmptyURL(t *testing.T) {
	n := NewHTTPRequestNode()
	ec := &domain.ExecutionContext{Input: map[string]any{}}
	assert.Error(t, n.Validate(context.Background(), ec))
}

func TestHTTPRequestNodeExecuteSuccessfulGET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewHTTPRequestNode()
	ec := &domain.ExecutionContext{Input: map[string]any{"url": srv.URL, "method": "GET"}}
	out, execErr := n.Execute(context.Background(), ec)
	require.Nil(t, execErr)
	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, m["status"])
}

func TestHTTPRequestNodeClassifiesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewHTTPRequestNode()
	ec := &domain.ExecutionContext{Input: map[string]any{"url": srv.URL}}
	_, execErr := n.Execute(context.Background(), ec)
	require.NotNil(t, execErr)
	assert.Equal(t, domain.ErrRateLimit, execErr.Kind)
	assert.True(t, execErr.Retryable)
}

func TestHTTPRequestNodeClassifiesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewHTTPRequestNode()
	ec := &domain.ExecutionContext{Input: map[string]any{"url": srv.URL}}
	_, execErr := n.Execute(context.Background(), ec)
	require.NotNil(t, execErr)
	assert.Equal(t, domain.ErrNetwork, execErr.Kind)
}

func TestHTTPRequestNodeClassifiesAuthErrors(t *testing.T) {
	cases := []struct {
		status int
		kind   domain.ErrorKind
	}{
		{http.StatusUnauthorized, domain.ErrAuthentication},
		{http.StatusForbidden, domain.ErrAuthorization},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
		}))
		n := NewHTTPRequestNode()
		ec := &domain.ExecutionContext{Input: map[string]any{"url": srv.URL}}
		_, execErr := n.Execute(context.Background(), ec)
		require.NotNil(t, execErr)
		assert.Equal(t, c.kind, execErr.Kind)
		assert.False(t, execErr.Retryable)
		srv.Close()
	}
}

func TestWebhookCallNodeForcesMethodPost(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	n := NewWebhookCallNode()
	ec := &domain.ExecutionContext{Input: map[string]any{"url": srv.URL, "method": "GET"}}
	_, execErr := n.Execute(context.Background(), ec)
	require.Nil(t, execErr)
	assert.Equal(t, http.MethodPost, gotMethod)
}

func TestWebhookCallNodeDefinitionCategory(t *testing.T) {
	def := NewWebhookCallNode().Definition()
	assert.Equal(t, domain.CategoryIntegration, def.Category)
	assert.Equal(t, "webhook_call", def.ID)
}
