package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageReturnsID(t *testing.T) {
	api := newFakeBotAPI(t, StatusMember)

	id, err := api.client().SendMessage(1, "привет", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)
}

func TestSendMessageRejectsMalformedResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(APIResponse{OK: true, Result: json.RawMessage(`"nonsense"`)})
	}))
	t.Cleanup(srv.Close)

	c := &Client{token: "test", httpClient: srv.Client(), baseURL: srv.URL}

	id, err := c.SendMessage(1, "привет", 0)
	assert.Error(t, err)
	assert.Zero(t, id, "a bad payload must not yield a deletable message id")
}
