package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lessonbook/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTwilioFixture(t *testing.T, handler http.HandlerFunc) *TwilioGateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := zerolog.Nop()
	g := NewTwilioGateway(config.TwilioConfig{
		AccountSID:   "AC123",
		MessagingSID: "MG456",
		APIKey:       "key",
	}, time.Second, &logger)
	g.baseURL = server.URL
	return g
}

func TestTwilioSend(t *testing.T) {
	var gotPath string
	var gotForm map[string]string

	g := newTwilioFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"To":                  r.PostForm.Get("To"),
			"Body":                r.PostForm.Get("Body"),
			"MessagingServiceSid": r.PostForm.Get("MessagingServiceSid"),
		}
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "key", pass)
		w.WriteHeader(http.StatusCreated)
	})

	ok := g.Send(context.Background(), "see you at 3", "+15550100")
	assert.True(t, ok)
	assert.Equal(t, "/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "+15550100", gotForm["To"])
	assert.Equal(t, "see you at 3", gotForm["Body"])
	assert.Equal(t, "MG456", gotForm["MessagingServiceSid"])
}

func TestTwilioSendRejected(t *testing.T) {
	g := newTwilioFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	assert.False(t, g.Send(context.Background(), "hello", "+15550100"))
}

func TestTwilioSendUnreachable(t *testing.T) {
	logger := zerolog.Nop()
	g := NewTwilioGateway(config.TwilioConfig{AccountSID: "AC123"}, time.Second, &logger)
	g.baseURL = "http://127.0.0.1:1"

	assert.False(t, g.Send(context.Background(), "hello", "+15550100"))
}
