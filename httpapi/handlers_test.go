package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zoravur/spooky-engine/engine/circuit"
	"github.com/zoravur/spooky-engine/engine/update"
)

func flatUpdateFor(t *testing.T, viewID string) *update.ViewUpdate {
	t.Helper()
	return &update.ViewUpdate{Format: update.FormatFlat, Flat: &update.FlatUpdate{QueryID: viewID}}
}

func newTestServer(t *testing.T) (*Handler, *httptest.Server) {
	t.Helper()
	h := NewHandler(circuit.NewCircuit())
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return h, srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRegisterViewThenIngestThenUnregister(t *testing.T) {
	_, srv := newTestServer(t)

	regResp := postJSON(t, srv.URL+"/api/views", map[string]any{
		"id":   "actors",
		"plan": json.RawMessage(`{"op":"scan","table":"actor"}`),
	})
	require.Equal(t, http.StatusOK, regResp.StatusCode)

	var regBody map[string]any
	require.NoError(t, json.NewDecoder(regResp.Body).Decode(&regBody))
	require.Equal(t, "actors", regBody["id"])

	ingResp := postJSON(t, srv.URL+"/api/ingest", map[string]any{
		"entries": []map[string]any{
			{"table": "actor", "op": "CREATE", "id": "1", "record": map[string]any{"name": "Ada"}, "hash": "h1"},
		},
		"optimistic": true,
	})
	require.Equal(t, http.StatusOK, ingResp.StatusCode)

	var ingBody struct {
		Updates []map[string]any `json:"updates"`
	}
	require.NoError(t, json.NewDecoder(ingResp.Body).Decode(&ingBody))
	require.Len(t, ingBody.Updates, 1)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/views/actors", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)
}

func TestRegisterViewRejectsMalformedPlan(t *testing.T) {
	_, srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/views", map[string]any{
		"id":   "bad",
		"plan": json.RawMessage(`{"op":"bogus"}`),
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngestWithNoRegisteredViewsReturnsEmptyUpdates(t *testing.T) {
	_, srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/ingest", map[string]any{
		"entries":    []map[string]any{{"table": "actor", "op": "CREATE", "id": "1", "record": map[string]any{}, "hash": "h1"}},
		"optimistic": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Updates []map[string]any `json:"updates"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Empty(t, body.Updates)
}

func TestHubBroadcastOnlyReachesSubscribedClient(t *testing.T) {
	hub := NewHub()

	var gotA, gotB []string
	subA := &client{send: func(msgType string, payload any) error {
		gotA = append(gotA, msgType)
		return nil
	}}
	subB := &client{send: func(msgType string, payload any) error {
		gotB = append(gotB, msgType)
		return nil
	}}
	hub.subscribe("v1", subA)
	hub.subscribe("v2", subB)

	hub.Broadcast(flatUpdateFor(t, "v1"))
	require.Equal(t, []string{"update"}, gotA)
	require.Empty(t, gotB)

	hub.unsubscribeAll(subA)
	hub.Broadcast(flatUpdateFor(t, "v1"))
	require.Equal(t, []string{"update"}, gotA, "unsubscribed client must not receive further broadcasts")
}
