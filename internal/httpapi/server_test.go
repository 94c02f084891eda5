package httpapi

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-board/internal/board"
	"token-board/internal/notify"
	"token-board/internal/storage/memory"
)

const testPassword = "s3cret"

type testEnv struct {
	server *httptest.Server
	hub    *notify.Hub
	nowMs  atomic.Int64
}

func (e *testEnv) advance(d time.Duration) { e.nowMs.Add(d.Milliseconds()) }

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()
	env := &testEnv{}
	env.nowMs.Store(1_700_000_000_000)
	quiet := log.New(io.Discard, "", 0)

	env.hub = notify.NewHub(nil, quiet)
	pub := notify.NewPublisher()
	pub.Subscribe(env.hub)

	svc := board.New(board.Options{
		TokenStore:     memory.NewTokenStore(),
		VoteEventStore: memory.NewVoteEventStore(),
		Publisher:      pub,
		Now:            func() time.Time { return time.UnixMilli(env.nowMs.Load()) },
		Logger:         quiet,
	})

	opts := Options{
		Board:         svc,
		WebSocket:     env.hub,
		AdminPassword: testPassword,
		TrustProxy:    true,
		Logger:        quiet,
	}
	if mutate != nil {
		mutate(&opts)
	}

	env.server = httptest.NewServer(NewRouter(opts))
	t.Cleanup(func() {
		env.hub.Close()
		env.server.Close()
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, rd)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func admin() map[string]string { return map[string]string{AdminHeader: testPassword} }

func from(ip string) map[string]string { return map[string]string{"X-Forwarded-For": ip + ", 10.0.0.1"} }

func decodeList(t *testing.T, raw []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestEndToEnd(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, raw := env.do(t, http.MethodPost, "/api/approved", `{"name":"Foo","symbol":"FOO","logo":"foo.png"}`, admin())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = env.do(t, http.MethodGet, "/api/approved", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeList(t, raw)
	require.Len(t, list, 1)
	assert.Equal(t, "FOO", list[0]["symbol"])
	assert.Equal(t, 0.0, list[0]["votes"])
	assert.Equal(t, 0.0, list[0]["ranking"])
	assert.Equal(t, 0.0, list[0]["votes24h"])
	assert.Equal(t, "foo.png", list[0]["logo"])

	resp, raw = env.do(t, http.MethodPut, "/api/approved/FOO/vote", "", from("1.1.1.1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"symbol":"FOO","votes":1}`, string(raw))

	env.advance(time.Minute)
	resp, raw = env.do(t, http.MethodPut, "/api/approved/FOO/vote", "", from("1.1.1.1"))
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Rate limit: wait 12h before voting for FOO"}`, string(raw))

	resp, raw = env.do(t, http.MethodPut, "/api/approved/FOO/vote", "", from("2.2.2.2"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"symbol":"FOO","votes":2}`, string(raw))

	resp, _ = env.do(t, http.MethodPut, "/api/approved/FOO/votes", `{"votes":50}`, admin())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, raw = env.do(t, http.MethodGet, "/api/approved", "", nil)
	list = decodeList(t, raw)
	assert.Equal(t, 50.0, list[0]["votes"])
	assert.Equal(t, 2.0, list[0]["votes24h"])

	resp, raw = env.do(t, http.MethodDelete, "/api/approved/BAR", "", admin())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Token not found"}`, string(raw))

	resp, _ = env.do(t, http.MethodDelete, "/api/approved/FOO", "", admin())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, raw = env.do(t, http.MethodGet, "/api/approved", "", nil)
	assert.Empty(t, decodeList(t, raw))
}

func TestSubmit_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, raw := env.do(t, http.MethodPost, "/api/approved", `{}`, admin())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Invalid payload"}`, string(raw))

	resp, _ = env.do(t, http.MethodPost, "/api/approved", `not json`, admin())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/approved", `{"name":"Foo","symbol":"FOO"}`, admin())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/api/approved", `{"name":"Foo 2","symbol":"FOO"}`, admin())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAdminRoutesRequirePassword(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/approved", `{"name":"Foo","symbol":"FOO"}`},
		{http.MethodDelete, "/api/approved/FOO", ""},
		{http.MethodPut, "/api/approved/FOO/votes", `{"votes":1}`},
		{http.MethodPut, "/api/approved/FOO/ranking", `{"ranking":1}`},
	}
	for _, tt := range tests {
		resp, _ := env.do(t, tt.method, tt.path, tt.body, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tt.method, tt.path)

		resp, _ = env.do(t, tt.method, tt.path, tt.body, map[string]string{AdminHeader: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tt.method, tt.path)
	}
}

func TestAdminRoutesLockedWithoutPassword(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.AdminPassword = "" })

	resp, _ := env.do(t, http.MethodPost, "/api/approved", `{"name":"Foo","symbol":"FOO"}`, map[string]string{AdminHeader: ""})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSetRanking(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/approved", `{"name":"Foo","symbol":"FOO"}`, admin())

	tests := []struct {
		body string
		want float64
	}{
		{`{"ranking":150}`, 100},
		{`{"ranking":-5}`, 0},
		{`{"ranking":33.26}`, 33.3},
	}
	for _, tt := range tests {
		resp, raw := env.do(t, http.MethodPut, "/api/approved/FOO/ranking", tt.body, admin())
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var tok map[string]any
		require.NoError(t, json.Unmarshal(raw, &tok))
		assert.InDelta(t, tt.want, tok["ranking"], 1e-9)
	}

	for _, body := range []string{`{"ranking":"high"}`, `{"ranking":null}`} {
		resp, _ := env.do(t, http.MethodPut, "/api/approved/FOO/ranking", body, admin())
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	// Rejected writes leave the stored score alone
	_, raw := env.do(t, http.MethodGet, "/api/approved", "", nil)
	list := decodeList(t, raw)
	require.Len(t, list, 1)
	assert.InDelta(t, 33.3, list[0]["ranking"], 1e-9)

	resp, _ := env.do(t, http.MethodPut, "/api/approved/NOPE/ranking", `{"ranking":1}`, admin())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSetVotes_Invalid(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/approved", `{"name":"Foo","symbol":"FOO"}`, admin())

	env.do(t, http.MethodPut, "/api/approved/FOO/votes", `{"votes":7}`, admin())

	for _, body := range []string{
		`{"votes":-1}`,
		`{"votes":1.5}`,
		`{"votes":"10"}`,
		`{"votes":null}`,
		`{"votes":9223372036854775808}`,
		`{}`,
	} {
		resp, _ := env.do(t, http.MethodPut, "/api/approved/FOO/votes", body, admin())
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	_, raw := env.do(t, http.MethodGet, "/api/approved", "", nil)
	list := decodeList(t, raw)
	require.Len(t, list, 1)
	assert.Equal(t, float64(7), list[0]["votes"])
}

func TestVote_UnknownToken(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, raw := env.do(t, http.MethodPut, "/api/approved/NOPE/vote", "", from("1.1.1.1"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Token not found"}`, string(raw))
}

func TestList_SortAndBadKey(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/approved", `{"name":"A","symbol":"AAA"}`, admin())
	env.do(t, http.MethodPost, "/api/approved", `{"name":"B","symbol":"BBB"}`, admin())
	env.do(t, http.MethodPut, "/api/approved/BBB/vote", "", from("1.1.1.1"))

	_, raw := env.do(t, http.MethodGet, "/api/approved?sort=votes", "", nil)
	list := decodeList(t, raw)
	require.Len(t, list, 2)
	assert.Equal(t, "BBB", list[0]["symbol"])

	resp, _ := env.do(t, http.MethodGet, "/api/approved?sort=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVote_BroadcastsOverWebSocket(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/approved", `{"name":"Foo","symbol":"FOO"}`, admin())

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, _ := env.do(t, http.MethodPut, "/api/approved/FOO/vote", "", from("1.1.1.1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"voteUpdate","data":{"symbol":"FOO","votes":1}}`, string(raw))
}

func TestVote_BurstThrottle(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.Throttle = &ThrottleConfig{RPS: 0.001, Burst: 2}
	})
	env.do(t, http.MethodPost, "/api/approved", `{"name":"Foo","symbol":"FOO"}`, admin())

	resp, _ := env.do(t, http.MethodPut, "/api/approved/FOO/vote", "", from("1.1.1.1"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPut, "/api/approved/FOO/vote", "", from("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, raw := env.do(t, http.MethodPut, "/api/approved/FOO/vote", "", from("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.JSONEq(t, `{"error":"too many requests"}`, string(raw))

	resp, _ = env.do(t, http.MethodPut, "/api/approved/FOO/vote", "", from("3.3.3.3"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthMetricsAndStatic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>board</h1>"), 0o644))
	env := newTestEnv(t, func(o *Options) { o.StaticDir = dir })

	resp, raw := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(raw))

	resp, raw = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "token_board_")

	resp, raw = env.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "board")

	resp, _ = env.do(t, http.MethodGet, "/missing.js", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
