package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/auth"
	"github.com/jason-s-yu/kokodi/internal/game"
	"github.com/jason-s-yu/kokodi/internal/models"
	"github.com/jason-s-yu/kokodi/internal/store"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	hub *Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	prev := auth.DefaultHashParams
	auth.DefaultHashParams = auth.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	t.Cleanup(func() { auth.DefaultHashParams = prev })

	logger, _ := test.NewNullLogger()
	users := store.NewUserStore()
	sessions := store.NewSessionStore()
	tokens, err := auth.NewTokens(time.Hour)
	require.NoError(t, err)

	hub := NewHub(logger)
	engine := game.NewEngine(sessions, users, 100,
		game.WithLogger(logger),
		game.WithRand(rand.New(rand.NewSource(7))),
		game.WithPublishers(hub),
	)
	srv := &Server{
		Engine:   engine,
		Accounts: auth.NewService(users, tokens, logger),
		Users:    users,
		Sessions: sessions,
		Hub:      hub,
		Logger:   logger,
	}

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, hub: hub}
}

// do sends a JSON request and decodes a JSON response into out when given.
func (ts *testServer) do(t *testing.T, method, path, token string, body, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type account struct {
	id    uuid.UUID
	token string
}

func (ts *testServer) signUp(t *testing.T, login string) account {
	t.Helper()
	var reg registerResponse
	code := ts.do(t, http.MethodPost, "/auth/register", "", registerRequest{Login: login, Password: "pw-" + login, Name: login}, &reg)
	require.Equal(t, http.StatusCreated, code)

	var res loginResponse
	code = ts.do(t, http.MethodPost, "/auth/login", "", loginRequest{Login: login, Password: "pw-" + login}, &res)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, reg.UserID, res.UserID)
	return account{id: res.UserID, token: res.Token}
}

func (ts *testServer) startedGame(t *testing.T, players ...account) uuid.UUID {
	t.Helper()
	var created createGameResponse
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/games", players[0].token, nil, &created))
	for _, p := range players[1:] {
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/games/"+created.GameID.String()+"/join", p.token, nil, nil))
	}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/games/"+created.GameID.String()+"/start", players[0].token, nil, nil))
	return created.GameID
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice")

	var errResp errorResponse
	code := ts.do(t, http.MethodPost, "/auth/register", "", registerRequest{Login: "alice", Password: "x", Name: "A"}, &errResp)
	assert.Equal(t, http.StatusConflict, code)
	assert.NotEmpty(t, errResp.Error)

	code = ts.do(t, http.MethodPost, "/auth/login", "", loginRequest{Login: "alice", Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code = ts.do(t, http.MethodPost, "/auth/register", "", registerRequest{Login: "bob"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLoginSetsCookieAccepted(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice")

	body := strings.NewReader(`{"login":"alice","password":"pw-alice"}`)
	resp, err := http.Post(ts.URL+"/auth/login", "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == authCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/games", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestGameRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/games", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/games", "garbage", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/games/"+uuid.NewString(), "", nil, nil))
}

func TestGameLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.signUp(t, "alice"), ts.signUp(t, "bob")

	var created createGameResponse
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/games", alice.token, nil, &created))
	path := "/games/" + created.GameID.String()

	var status game.StatusView
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, path, bob.token, nil, &status))
	assert.Equal(t, models.StateWaitingForPlayers, status.State)
	assert.Len(t, status.Players, 1)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, path+"/start", alice.token, nil, nil), "not enough players")
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, path+"/join", bob.token, nil, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, path+"/join", bob.token, nil, nil), "already joined")
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, path+"/start", bob.token, nil, nil))

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, path, alice.token, nil, &status))
	assert.Equal(t, models.StateInProgress, status.State)
	assert.Equal(t, 10, status.CardsRemaining)
	require.NotNil(t, status.CurrentPlayerID)

	current, waiting := alice, bob
	if *status.CurrentPlayerID == bob.id {
		current, waiting = bob, alice
	}

	var errResp errorResponse
	code := ts.do(t, http.MethodPost, path+"/turn", waiting.token, turnRequest{}, &errResp)
	assert.Equal(t, http.StatusForbidden, code)
	assert.NotEmpty(t, errResp.Error)

	assert.Equal(t, http.StatusBadRequest,
		ts.do(t, http.MethodPost, path+"/turn", current.token, turnRequest{TargetPlayerID: "nobody"}, nil))

	var result game.TurnResult
	code = ts.do(t, http.MethodPost, path+"/turn", current.token, turnRequest{TargetPlayerID: waiting.id.String()}, &result)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, result.CardPlayed.Name)
	assert.Len(t, result.UpdatedScores, 2)

	var history []models.TurnLogEntry
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, path+"/history", alice.token, nil, &history))
	require.Len(t, history, 1)
	assert.Equal(t, current.id, history[0].PlayerID)
	assert.Equal(t, 1, history[0].TurnNumber)
}

func TestPlayTurnWithoutBody(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.signUp(t, "alice"), ts.signUp(t, "bob")
	id := ts.startedGame(t, alice, bob)

	var status game.StatusView
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/games/"+id.String(), alice.token, nil, &status))
	current := alice
	if *status.CurrentPlayerID == bob.id {
		current = bob
	}

	code := ts.do(t, http.MethodPost, "/games/"+id.String()+"/turn", current.token, nil, nil)
	assert.Contains(t, []int{http.StatusOK, http.StatusBadRequest}, code, "a Steal without a target is a 400")
}

func TestUnknownAndMalformedGameIDs(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUp(t, "alice")

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/games/"+uuid.NewString(), alice.token, nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/games/"+uuid.NewString()+"/join", alice.token, nil, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/games/not-a-uuid", alice.token, nil, nil))
}

func TestDebugRoutes(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.signUp(t, "alice"), ts.signUp(t, "bob")
	ts.startedGame(t, alice, bob)

	var users []map[string]interface{}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/debug/users", "", nil, &users))
	require.Len(t, users, 2)
	for _, u := range users {
		assert.NotContains(t, u, "password")
	}

	var sessions []models.Session
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/debug/games", "", nil, &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, models.StateInProgress, sessions[0].State)
}

func TestStatusFor(t *testing.T) {
	for err, want := range map[error]int{
		game.ErrUserNotFound:        http.StatusNotFound,
		game.ErrSessionNotFound:     http.StatusNotFound,
		game.ErrSessionFull:         http.StatusConflict,
		game.ErrInvalidState:        http.StatusBadRequest,
		game.ErrNotPlayerTurn:       http.StatusForbidden,
		game.ErrPlayerNotInSession:  http.StatusForbidden,
		game.ErrInvalidActionTarget: http.StatusBadRequest,
		game.ErrDeckEmpty:           http.StatusConflict,
		auth.ErrUserExists:          http.StatusConflict,
		auth.ErrInvalidCredentials:  http.StatusUnauthorized,
		auth.ErrInvalidToken:        http.StatusUnauthorized,
		context.DeadlineExceeded:    http.StatusInternalServerError,
	} {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}

func dialFeed(t *testing.T, ts *testServer, gameID uuid.UUID, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/games/" + gameID.String() + "/ws"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{feedSubprotocol},
		HTTPHeader:   http.Header{"Authorization": []string{"Bearer " + token}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func TestGameFeedStreamsCommittedEvents(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.signUp(t, "alice"), ts.signUp(t, "bob")
	id := ts.startedGame(t, alice, bob)

	c := dialFeed(t, ts, id, alice.token)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var first statusMessage
	require.NoError(t, wsjson.Read(ctx, c, &first))
	assert.Equal(t, "status", first.Type)
	require.NotNil(t, first.Status)
	assert.Equal(t, models.StateInProgress, first.Status.State)

	current, other := alice, bob
	if *first.Status.CurrentPlayerID == bob.id {
		current, other = bob, alice
	}
	require.Equal(t, http.StatusOK,
		ts.do(t, http.MethodPost, "/games/"+id.String()+"/turn", current.token, turnRequest{TargetPlayerID: other.id.String()}, nil))

	var ev models.SessionEvent
	require.NoError(t, wsjson.Read(ctx, c, &ev))
	assert.Equal(t, id, ev.SessionID)
	assert.Equal(t, current.id, ev.ActorID)
	assert.Contains(t, []models.SessionEventType{models.EventTurnPlayed, models.EventTurnSkipped}, ev.Type)
}

func TestGameFeedRejectsBadRequests(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUp(t, "alice")

	missing := uuid.New()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/games/" + missing.String() + "/ws"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{feedSubprotocol}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, url+"?token="+alice.token, &websocket.DialOptions{Subprotocols: []string{feedSubprotocol}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Eventually(t, func() bool { return ts.hub.Subscribers(missing) == 0 }, time.Second, 10*time.Millisecond)
}
