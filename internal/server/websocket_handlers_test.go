package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsamuels456/unboundedfigures/internal/cache"
	"github.com/tsamuels456/unboundedfigures/internal/models"
)

func (e *testEnv) meID(t *testing.T, token string) uint {
	t.Helper()
	resp := e.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.MeResponse
	decode(t, resp, &me)
	return me.ID
}

func (e *testEnv) ticket(t *testing.T, token string) WSTicketResponse {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/ws/ticket", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out WSTicketResponse
	decode(t, resp, &out)
	return out
}

func upgradeRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

func TestIssueWSTicket(t *testing.T) {
	env := newTestEnv(t)
	token := env.ensure(t, "sub_turing")
	userID := env.meID(t, token)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/ws/ticket", "", nil).StatusCode)

	ticket := env.ticket(t, token)
	assert.NotEmpty(t, ticket.Ticket)
	assert.Equal(t, 30, ticket.ExpiresIn)

	key := cache.WSTicketKey(ticket.Ticket)
	stored, err := env.mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "1", stored)
	assert.EqualValues(t, 1, userID)
	assert.Equal(t, wsTicketTTL, env.mr.TTL(key))

	assert.NotEqual(t, ticket.Ticket, env.ticket(t, token).Ticket)
}

func TestWebsocketWithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	token := env.ensure(t, "sub_church")

	srv, err := NewServerWithDeps(env.srv.config, env.db, nil, env.srv.avatarStore)
	require.NoError(t, err)
	app := srv.NewApp()

	req := httptest.NewRequest(http.MethodPost, "/api/ws/ticket", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, models.CodeUnavailable, errorBody(t, resp)["code"])

	resp, err = app.Test(upgradeRequest("/api/ws?ticket=anything"), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWSTicketRequired(t *testing.T) {
	env := newTestEnv(t)
	token := env.ensure(t, "sub_kleene")

	resp := env.do(t, http.MethodGet, "/api/ws", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	resp = env.send(t, upgradeRequest("/api/ws"))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid or expired WebSocket ticket", errorBody(t, resp)["error"])

	resp = env.send(t, upgradeRequest("/api/ws?ticket=not-issued"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ticket := env.ticket(t, token)
	env.mr.FastForward(wsTicketTTL + time.Second)
	resp = env.send(t, upgradeRequest("/api/ws?ticket="+ticket.Ticket))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "expired tickets are rejected")

	require.NoError(t, env.rdb.Set(context.Background(), cache.WSTicketKey("garbled"), "not-a-number", time.Minute).Err())
	resp = env.send(t, upgradeRequest("/api/ws?ticket=garbled"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.NoError(t, env.rdb.Set(context.Background(), cache.WSTicketKey("orphan"), "999", time.Minute).Err())
	resp = env.send(t, upgradeRequest("/api/ws?ticket=orphan"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "ticket owner no longer exists")
	assert.False(t, env.mr.Exists(cache.UserKey(999)), "misses are not cached")
}

func TestWebsocketDeliversNotifications(t *testing.T) {
	env := newTestEnv(t)
	author := env.ensure(t, "sub_lovelace")
	fan := env.ensure(t, "sub_babbage")
	authorID := env.meID(t, author)
	fanID := env.meID(t, fan)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, env.srv.hub.StartWiring(ctx, env.srv.notifier))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = env.app.Listener(ln) }()
	t.Cleanup(func() {
		_ = env.srv.hub.Shutdown(context.Background())
		_ = env.app.Shutdown()
	})

	ticket := env.ticket(t, author)
	url := "ws://" + ln.Addr().String() + "/api/ws?ticket=" + ticket.Ticket

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool {
		return env.srv.hub.ConnectionCount(authorID) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, env.mr.Exists(cache.UserKey(authorID)), "ticket owner is loaded through the user cache")

	// Tickets are single use.
	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	readEvent := func() map[string]interface{} {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var event map[string]interface{}
		require.NoError(t, json.Unmarshal(msg, &event))
		return event
	}

	resp = env.do(t, http.MethodPost, "/api/follow", fan, FollowRequest{Username: "figure_sub_love"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	event := readEvent()
	assert.Equal(t, "follow", event["type"])
	payload, _ := event["payload"].(map[string]interface{})
	assert.EqualValues(t, fanID, payload["followerId"])
	assert.Equal(t, "figure_sub_babb", payload["username"])

	sub := createSubmission(t, env, author, map[string]interface{}{"title": "Note G", "content": "Bernoulli numbers"})
	// The author's own comment does not notify them.
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/comments", author,
		CreateCommentRequest{SubmissionID: sub.ID, Content: "Errata to follow."}).StatusCode)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/comments", fan,
		CreateCommentRequest{SubmissionID: sub.ID, Content: "Splendid."}).StatusCode)

	event = readEvent()
	assert.Equal(t, "comment_created", event["type"])
	payload, _ = event["payload"].(map[string]interface{})
	assert.EqualValues(t, sub.ID, payload["submissionId"])
	assert.Equal(t, "figure_sub_babb", payload["username"])

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return env.srv.hub.ConnectionCount(authorID) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
