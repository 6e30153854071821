package discord

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"l2-tipbot/internal/bot"
	"l2-tipbot/internal/command"
)

type stubHandler struct {
	mu    sync.Mutex
	calls []command.Raw
	resp  bot.Response
	panic bool
}

func (h *stubHandler) Handle(_ context.Context, raw command.Raw) bot.Response {
	h.mu.Lock()
	h.calls = append(h.calls, raw)
	h.mu.Unlock()
	if h.panic {
		panic("boom")
	}
	return h.resp
}

type recordingEditor struct {
	mu    sync.Mutex
	edits []bot.Message
	token string
	fail  int
}

func (e *recordingEditor) EditOriginal(_ context.Context, token string, msg bot.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.token = token
	e.edits = append(e.edits, msg)
	if e.fail > 0 {
		e.fail--
		return errors.New("webhook down")
	}
	return nil
}

func post(t *testing.T, s *Server, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, DefaultEndpoint, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func responseType(t *testing.T, data []byte) ResponseType {
	t.Helper()
	var r InteractionResponse
	require.NoError(t, json.Unmarshal(data, &r))
	return r.Type
}

const commandBody = `{"id":"i1","type":2,"token":"tok-1","member":{"user":{"id":"1234"}},"data":{"name":"tokens"}}`

func TestServer_PingPong(t *testing.T) {
	s := NewServer(&stubHandler{}, &recordingEditor{})
	resp, data := post(t, s, `{"type":1}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ResponsePong, responseType(t, data))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestServer_DeferredCommandEditsOriginal(t *testing.T) {
	handler := &stubHandler{resp: bot.Response{Kind: bot.KindHelp}}
	editor := &recordingEditor{}
	s := NewServer(handler, editor)

	resp, data := post(t, s, commandBody, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ResponseDeferredMessage, responseType(t, data))

	s.Wait()
	require.Len(t, handler.calls, 1)
	assert.Equal(t, "tokens", handler.calls[0].Name)
	assert.Equal(t, "1234", handler.calls[0].ActorID)

	require.Len(t, editor.edits, 1)
	assert.Equal(t, "tok-1", editor.token)
	assert.Equal(t, bot.Render(bot.Response{Kind: bot.KindHelp}), editor.edits[0])
}

func TestServer_PanicEditsServerError(t *testing.T) {
	editor := &recordingEditor{}
	s := NewServer(&stubHandler{panic: true}, editor)

	resp, _ := post(t, s, commandBody, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	s.Wait()
	require.Len(t, editor.edits, 1)
	assert.Equal(t, bot.ServerErrorText, editor.edits[0].Content)
}

func TestServer_FailedEditFallsBackToServerError(t *testing.T) {
	editor := &recordingEditor{fail: 1}
	s := NewServer(&stubHandler{resp: bot.Response{Kind: bot.KindHelp}}, editor)

	post(t, s, commandBody, nil)
	s.Wait()

	require.Len(t, editor.edits, 2)
	assert.True(t, editor.edits[0].IsEmbed())
	assert.Equal(t, bot.ServerErrorText, editor.edits[1].Content)
}

func TestServer_SignatureRequired(t *testing.T) {
	pub, priv := newKey(t)
	v, err := NewVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)
	s := NewServer(&stubHandler{}, &recordingEditor{}, WithVerifier(v))

	resp, _ := post(t, s, `{"type":1}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = post(t, s, `{"type":1}`, map[string]string{
		HeaderSignature: sign(priv, "1700000000", []byte(`{"type":2}`)),
		HeaderTimestamp: "1700000000",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, data := post(t, s, `{"type":1}`, map[string]string{
		HeaderSignature: sign(priv, "1700000000", []byte(`{"type":1}`)),
		HeaderTimestamp: "1700000000",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ResponsePong, responseType(t, data))
}

func TestServer_BadRequests(t *testing.T) {
	s := NewServer(&stubHandler{}, &recordingEditor{})

	resp, _ := post(t, s, `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, s, `{"type":3}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_CustomEndpoint(t *testing.T) {
	s := NewServer(&stubHandler{}, &recordingEditor{}, WithEndpoint("/discord"))

	req := httptest.NewRequest(http.MethodPost, "/discord", bytes.NewReader([]byte(`{"type":1}`)))
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s := NewServer(&stubHandler{}, &recordingEditor{})

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Touch a metric so the exposition is non-empty.
	post(t, s, `{"type":1}`, nil)

	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "l2_tipbot_discord_interactions_received_total")
}

func TestServer_Shutdown(t *testing.T) {
	s := NewServer(&stubHandler{resp: bot.Response{Kind: bot.KindHelp}}, &recordingEditor{})
	post(t, s, commandBody, nil)
	require.NoError(t, s.Shutdown(context.Background()))
}
