package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"whackgoblin/internal/events"
	"whackgoblin/internal/gamedata"
	"whackgoblin/internal/sessions"
	"whackgoblin/internal/timers"
	"whackgoblin/internal/wshub"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *timers.Manual) {
	t.Helper()
	cfg := gamedata.DefaultConfig()
	cfg.Seed = 7
	m := timers.NewManual()
	store := sessions.NewStore(cfg, m, time.Hour)

	srv, err := NewServer(store)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	t.Cleanup(store.Close)
	return srv, ts, m
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

// joinGame loads the home page so the client holds a session cookie.
func joinGame(t *testing.T, srv *Server, ts *httptest.Server, client *http.Client) *sessions.Session {
	t.Helper()
	resp, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()

	u, _ := url.Parse(ts.URL)
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == sessionCookie {
			if sess := srv.Sessions.Get(c.Value); sess != nil {
				return sess
			}
		}
	}
	t.Fatal("no session cookie after GET /")
	return nil
}

func post(t *testing.T, client *http.Client, target string) int {
	t.Helper()
	resp, err := client.Post(target, "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("POST %s: %v", target, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func getState(t *testing.T, client *http.Client, ts *httptest.Server) gamedata.GameData {
	t.Helper()
	resp, err := client.Get(ts.URL + "/game/state")
	if err != nil {
		t.Fatalf("GET /game/state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /game/state status = %d, want 200", resp.StatusCode)
	}
	var data gamedata.GameData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return data
}

func TestHomeRendersBoard(t *testing.T) {
	_, ts, _ := newTestServer(t)
	client := newClient(t)

	resp, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	html := string(body)
	for _, want := range []string{`id="gameBoard"`, `id="cell-0"`, `id="cell-15"`, `id="score"`, `id="missed"`, `id="status"`, `id="startBtn"`, `id="pauseBtn"`, `id="resetBtn"`} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %s", want)
		}
	}
}

func TestHomeReusesSession(t *testing.T) {
	srv, ts, _ := newTestServer(t)
	client := newClient(t)

	first := joinGame(t, srv, ts, client)
	second := joinGame(t, srv, ts, client)
	if first.ID != second.ID {
		t.Errorf("session changed between visits: %s != %s", first.ID, second.ID)
	}
	if n := len(srv.Sessions.List()); n != 1 {
		t.Errorf("sessions = %d, want 1", n)
	}
}

func TestControlsRequireSession(t *testing.T) {
	_, ts, _ := newTestServer(t)
	client := newClient(t)

	for _, path := range []string{"/game/start", "/game/pause", "/game/reset", "/game/click/0", "/game/key/Space"} {
		if code := post(t, client, ts.URL+path); code != http.StatusNotFound {
			t.Errorf("POST %s status = %d, want 404", path, code)
		}
	}
	resp, err := client.Get(ts.URL + "/game/state")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /game/state status = %d, want 404", resp.StatusCode)
	}
}

func TestStartAndHit(t *testing.T) {
	srv, ts, m := newTestServer(t)
	client := newClient(t)
	sess := joinGame(t, srv, ts, client)

	if code := post(t, client, ts.URL+"/game/start"); code != http.StatusNoContent {
		t.Fatalf("start status = %d, want 204", code)
	}
	if sess.Game.Phase() != gamedata.PhasePlaying {
		t.Fatalf("phase = %s, want playing", sess.Game.Phase())
	}

	m.Advance(time.Second)
	state := getState(t, client, ts)
	if state.Target < 0 {
		t.Fatal("no goblin visible after one spawn interval")
	}

	if code := post(t, client, ts.URL+"/game/click/"+itoa(state.Target)); code != http.StatusNoContent {
		t.Fatalf("click status = %d, want 204", code)
	}
	state = getState(t, client, ts)
	if state.Score != 1 {
		t.Errorf("score = %d, want 1", state.Score)
	}
	if state.Target != -1 {
		t.Errorf("target = %d, want hidden after hit", state.Target)
	}
}

func TestClickInvalidIndex(t *testing.T) {
	srv, ts, _ := newTestServer(t)
	client := newClient(t)
	joinGame(t, srv, ts, client)

	for _, idx := range []string{"abc", "-1", "16"} {
		if code := post(t, client, ts.URL+"/game/click/"+idx); code != http.StatusBadRequest {
			t.Errorf("click %s status = %d, want 400", idx, code)
		}
	}
}

func TestKeyShortcuts(t *testing.T) {
	srv, ts, _ := newTestServer(t)
	client := newClient(t)
	sess := joinGame(t, srv, ts, client)

	if code := post(t, client, ts.URL+"/game/key/Space"); code != http.StatusNoContent {
		t.Fatalf("Space status = %d, want 204", code)
	}
	if sess.Game.Phase() != gamedata.PhasePlaying {
		t.Errorf("phase after Space = %s, want playing", sess.Game.Phase())
	}
	post(t, client, ts.URL+"/game/key/Space")
	if sess.Game.Phase() != gamedata.PhasePaused {
		t.Errorf("phase after second Space = %s, want paused", sess.Game.Phase())
	}
	post(t, client, ts.URL+"/game/key/KeyR")
	if sess.Game.Phase() != gamedata.PhaseIdle {
		t.Errorf("phase after KeyR = %s, want idle", sess.Game.Phase())
	}
	if code := post(t, client, ts.URL+"/game/key/KeyQ"); code != http.StatusBadRequest {
		t.Errorf("unknown key status = %d, want 400", code)
	}
}

func TestVisibilityPausesAndResumes(t *testing.T) {
	srv, ts, _ := newTestServer(t)
	client := newClient(t)
	sess := joinGame(t, srv, ts, client)
	post(t, client, ts.URL+"/game/start")

	resp, err := client.PostForm(ts.URL+"/game/visibility", url.Values{"hidden": {"1"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("visibility status = %d, want 204", resp.StatusCode)
	}
	if sess.Game.Phase() != gamedata.PhasePaused {
		t.Errorf("phase when hidden = %s, want paused", sess.Game.Phase())
	}

	resp, err = client.PostForm(ts.URL+"/game/visibility", url.Values{"hidden": {"0"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if sess.Game.Phase() != gamedata.PhasePlaying {
		t.Errorf("phase when visible = %s, want playing", sess.Game.Phase())
	}

	resp, err = client.PostForm(ts.URL+"/game/visibility", url.Values{"hidden": {"maybe"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad hidden value status = %d, want 400", resp.StatusCode)
	}
}

func TestSummaryAfterGameOver(t *testing.T) {
	srv, ts, m := newTestServer(t)
	client := newClient(t)
	joinGame(t, srv, ts, client)

	resp, err := client.Get(ts.URL + "/game/summary")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("summary before game over status = %d, want 404", resp.StatusCode)
	}

	post(t, client, ts.URL+"/game/start")
	m.Advance(10 * time.Second)

	state := getState(t, client, ts)
	if state.Phase != gamedata.PhaseOver {
		t.Fatalf("phase = %s, want over", state.Phase)
	}
	if state.Missed != state.MaxMissed {
		t.Errorf("missed = %d, want %d", state.Missed, state.MaxMissed)
	}

	resp, err = client.Get(ts.URL + "/game/summary")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d, want 200", resp.StatusCode)
	}
	var summary struct {
		Missed int    `json:"missed"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatal(err)
	}
	if summary.Missed != 5 {
		t.Errorf("summary missed = %d, want 5", summary.Missed)
	}
	if !strings.HasPrefix(summary.Text, "Game over!") {
		t.Errorf("summary text = %q", summary.Text)
	}
}

func TestResetClearsBoard(t *testing.T) {
	srv, ts, m := newTestServer(t)
	client := newClient(t)
	joinGame(t, srv, ts, client)

	post(t, client, ts.URL+"/game/start")
	m.Advance(2500 * time.Millisecond)
	if code := post(t, client, ts.URL+"/game/reset"); code != http.StatusNoContent {
		t.Fatalf("reset status = %d, want 204", code)
	}

	state := getState(t, client, ts)
	if state.Score != 0 || state.Missed != 0 {
		t.Errorf("score/missed = %d/%d, want 0/0", state.Score, state.Missed)
	}
	if state.Phase != gamedata.PhaseIdle {
		t.Errorf("phase = %s, want idle", state.Phase)
	}
	if state.StartDisabled {
		t.Error("start should be enabled after reset")
	}
	for _, c := range state.Cells {
		if c.Occupied {
			t.Errorf("cell %d still occupied after reset", c.Index)
		}
	}
}

func TestEventsStream(t *testing.T) {
	srv, ts, _ := newTestServer(t)
	client := newClient(t)
	joinGame(t, srv, ts, client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/game/events", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	lines := make(chan string, 64)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	post(t, client, ts.URL+"/game/start")

	timeout := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before status patch")
			}
			if strings.HasPrefix(line, "data: ") && strings.Contains(line, `"id":"status"`) && strings.Contains(line, "Playing") {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for status patch on SSE stream")
		}
	}
}

func TestWebSocketControl(t *testing.T) {
	srv, ts, m := newTestServer(t)
	client := newClient(t)
	sess := joinGame(t, srv, ts, client)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set("Cookie", sessionCookie+"="+sess.ID)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/game/ws", &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	waitFor(t, func() bool { return sess.Hub.Count() == 1 })

	if err := wsjson.Write(ctx, conn, wshub.ClientMessage{Type: wshub.MsgStart}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	waitFor(t, func() bool { return sess.Game.Phase() == gamedata.PhasePlaying })

	m.Advance(time.Second)
	var shown events.Patch
	for {
		var p events.Patch
		if err := wsjson.Read(ctx, conn, &p); err != nil {
			t.Fatalf("read: %v", err)
		}
		if p.Type == events.TypeClass && p.Class == "has-goblin" && p.On {
			shown = p
			break
		}
	}

	idx, err := cellIndex(shown.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := wsjson.Write(ctx, conn, wshub.ClientMessage{Type: wshub.MsgClick, Index: idx}); err != nil {
		t.Fatalf("write click: %v", err)
	}
	waitFor(t, func() bool { return sess.Game.Score() == 1 })
}

func dialGame(t *testing.T, ctx context.Context, ts *httptest.Server, sess *sessions.Session) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Cookie", sessionCookie+"="+sess.ID)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/game/ws", &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestWebSocketKeepsSessionAlive(t *testing.T) {
	srv, ts, m := newTestServer(t)
	client := newClient(t)
	sess := joinGame(t, srv, ts, client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialGame(t, ctx, ts, sess)
	defer conn.CloseNow()
	waitFor(t, func() bool { return sess.Hub.Count() == 1 })

	if err := wsjson.Write(ctx, conn, wshub.ClientMessage{Type: wshub.MsgStart}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	for i := 0; i < 70; i++ {
		m.Advance(time.Minute)
		if err := wsjson.Write(ctx, conn, wshub.ClientMessage{Type: wshub.MsgClick, Index: 0}); err != nil {
			t.Fatalf("write click: %v", err)
		}
		waitFor(t, func() bool { return sess.LastSeen().Equal(m.Now()) })
	}

	if n := srv.Sessions.Sweep(m.Now()); n != 0 {
		t.Errorf("Sweep() removed %d sessions, want 0", n)
	}
	if len(srv.Sessions.List()) != 1 {
		t.Error("websocket player's session should survive the sweep")
	}
}

func TestWebSocketClosesWithSession(t *testing.T) {
	srv, ts, _ := newTestServer(t)
	client := newClient(t)
	sess := joinGame(t, srv, ts, client)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn := dialGame(t, ctx, ts, sess)
	defer conn.CloseNow()
	waitFor(t, func() bool { return sess.Hub.Count() == 1 })

	srv.Sessions.Delete(sess.ID)

	for {
		var p events.Patch
		err := wsjson.Read(ctx, conn, &p)
		if err == nil {
			continue
		}
		if status := websocket.CloseStatus(err); status != websocket.StatusGoingAway {
			t.Errorf("close status = %v (%v), want StatusGoingAway", status, err)
		}
		return
	}
}

func TestHomeStatusClassAfterGameOver(t *testing.T) {
	srv, ts, m := newTestServer(t)
	client := newClient(t)
	joinGame(t, srv, ts, client)

	post(t, client, ts.URL+"/game/start")
	m.Advance(10 * time.Second)

	resp, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `id="status" class="game-over"`) {
		t.Error("reloaded page should keep the game-over status class")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var health map[string]any
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if health["status"] != "ok" {
		t.Errorf("health = %v", health)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "whackgoblin_") {
		t.Error("metrics output missing whackgoblin_ collectors")
	}
}

func TestStaticAssets(t *testing.T) {
	_, ts, _ := newTestServer(t)
	for _, path := range []string{"/static/game.js", "/static/styles.css"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func itoa(i int) string { return strconv.Itoa(i) }

func cellIndex(id string) (int, error) {
	return strconv.Atoi(strings.TrimPrefix(id, "cell-"))
}
