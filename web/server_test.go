package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/chargemon"
	"github.com/mklimuk/chargemon/charger"
	"github.com/mklimuk/chargemon/monitor"
)

type fakePoller struct {
	status monitor.Status
	err    error
	polls  int
	ctxErr error
}

func (p *fakePoller) Poll(ctx context.Context) (monitor.Status, error) {
	p.polls++
	p.ctxErr = ctx.Err()
	return p.status, p.err
}

func (p *fakePoller) Last() (monitor.Status, bool) {
	return p.status, p.polls > 0
}

var pollTime = time.Date(2026, 1, 1, 0, 0, 0, 500_000_000, time.UTC)

func newTestServer(t *testing.T, p *fakePoller) *httptest.Server {
	t.Helper()
	srv := New(context.Background(), ":0", p, "https://ntfy.sh/chargers")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getStatus(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestStatusEndpoint(t *testing.T) {
	snap := charger.Snapshot(0b000000_111111)
	p := &fakePoller{status: monitor.Status{Time: pollTime, Snapshot: snap, Slots: charger.Decode(snap)}}
	ts := newTestServer(t, p)

	resp, body := getStatus(t, ts.URL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, float64(pollTime.Unix())+0.5, body["timestamp"])
	assert.Equal(t, float64(0x3F), body["bits12"])
	assert.Equal(t, "https://ntfy.sh/chargers", body["ntfy_url"])
	assert.NotContains(t, body, "error")

	slots, ok := body["slots"].([]any)
	require.True(t, ok)
	require.Len(t, slots, 6)
	first := slots[0].(map[string]any)
	assert.Equal(t, float64(1), first["slot"])
	assert.Equal(t, "ERROR", first["state"])
	assert.Equal(t, float64(0), first["R"])
	last := slots[5].(map[string]any)
	assert.Equal(t, "EMPTY", last["state"])
	assert.Equal(t, float64(1), last["G"])
	assert.NoError(t, p.ctxErr)
}

func TestStatusEndpoint_Unavailable(t *testing.T) {
	err := fmt.Errorf("%w: %w", chargemon.ErrLinkUnavailable, chargemon.ErrTransportOpen)
	p := &fakePoller{
		status: monitor.Status{Time: pollTime, Slots: []charger.SlotReading{}, Err: err},
		err:    err,
	}
	ts := newTestServer(t, p)

	resp, body := getStatus(t, ts.URL)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Nil(t, body["bits12"])
	assert.Contains(t, body, "bits12")
	assert.Equal(t, []any{}, body["slots"])
	assert.Contains(t, body["error"], "link unavailable")
	assert.Equal(t, "https://ntfy.sh/chargers", body["ntfy_url"])
}

func TestIndex(t *testing.T) {
	snap := charger.Snapshot(0xFFF &^ (1 << 7))
	p := &fakePoller{status: monitor.Status{Time: pollTime, Snapshot: snap, Slots: charger.Decode(snap)}}
	ts := newTestServer(t, p)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	html := string(b)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, html, "waiting for first poll")
	assert.Equal(t, 0, p.polls, "the page itself never polls the bus")

	p.polls = 1
	resp2, err := http.Get(ts.URL + "/index.html")
	require.NoError(t, err)
	defer resp2.Body.Close()
	b, _ = io.ReadAll(resp2.Body)
	html = string(b)
	assert.Contains(t, html, `<td class="full">FULL</td>`)
	assert.Contains(t, html, "bits 111101111111")
	assert.True(t, strings.Contains(html, "https://ntfy.sh/chargers"))
}

func TestIndex_NotFound(t *testing.T) {
	ts := newTestServer(t, &fakePoller{})
	resp, err := http.Get(ts.URL + "/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
