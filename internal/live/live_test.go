package live

import (
	"context"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"google.golang.org/genai"

	"github.com/ashureev/mockdy/internal/identity"
	"github.com/ashureev/mockdy/internal/interview"
	"github.com/ashureev/mockdy/internal/middleware"
	"github.com/ashureev/mockdy/internal/store"
)

const testProfile = "prof_fedcba9876543210fedcba9876543210"

type echoModel struct{}

func (echoModel) Stream(_ context.Context, req interview.ChatRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !yield("You said: ", nil) {
			return
		}
		yield(req.Message, nil)
	}
}

func (echoModel) GenerateJSON(context.Context, string, *genai.Schema) (string, error) {
	return `{"score": 90, "summary": "Great.", "strengths": ["clear"], "weaknesses": [], "optimalSolution": "N/A"}`, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *SessionManager) {
	t.Helper()
	return newLimitedServer(t, nil)
}

func newLimitedServer(t *testing.T, limiter RateLimiter) (*httptest.Server, *SessionManager) {
	t.Helper()
	repo := store.NewMemory()
	sessions := store.NewSessionStore(repo)
	svc := interview.NewService(echoModel{}, sessions, store.NewConnectionStore(repo), nil)
	sm := NewSessionManager()
	h := NewHandler(repo, svc, sm, limiter, "http://localhost:5173", false)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(identity.WithProfile(r.Context(), testProfile)))
	}))
	t.Cleanup(srv.Close)
	return srv, sm
}

func dial(t *testing.T, srv *httptest.Server, tab string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/interview?tab=" + tab
	conn, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var msg serverMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

// readUntil collects delta content until a message of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) (serverMessage, string) {
	t.Helper()
	var deltas strings.Builder
	for {
		msg := read(t, conn)
		switch msg.Type {
		case "delta":
			deltas.WriteString(msg.Content)
		case want:
			return msg, deltas.String()
		case "error":
			t.Fatalf("unexpected error event: %s (%s)", msg.Error, msg.Code)
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg clientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLiveInterview(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "tab-1")

	initial := read(t, conn)
	if initial.Type != "state" || initial.State.State != interview.StateIdle {
		t.Fatalf("expected idle state first, got %+v", initial)
	}

	send(t, conn, clientMessage{Type: "start", InterviewType: "behavioral"})
	started, greeting := readUntil(t, conn, "state")
	if started.State.State != interview.StateActive {
		t.Fatalf("expected ACTIVE, got %s", started.State.State)
	}
	if !strings.HasPrefix(greeting, "You said: The interview is starting now.") {
		t.Errorf("unexpected greeting %q", greeting)
	}

	send(t, conn, clientMessage{Type: "message", Content: "I shipped a feature."})
	reply, deltas := readUntil(t, conn, "reply")
	if reply.Message.Text != "You said: I shipped a feature." || deltas != reply.Message.Text {
		t.Errorf("reply %q, deltas %q", reply.Message.Text, deltas)
	}

	send(t, conn, clientMessage{Type: "end"})
	ended, _ := readUntil(t, conn, "feedback")
	if ended.Session.Feedback.Score != 90 {
		t.Errorf("expected score 90, got %d", ended.Session.Feedback.Score)
	}
}

func TestLiveErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "tab-1")
	read(t, conn)

	send(t, conn, clientMessage{Type: "message", Content: "hello"})
	if msg := read(t, conn); msg.Type != "error" || msg.Code != "invalid_state" {
		t.Errorf("expected invalid_state error, got %+v", msg)
	}

	send(t, conn, clientMessage{Type: "start", InterviewType: "coding"})
	if msg := read(t, conn); msg.Type != "error" || msg.Code != "invalid_input" {
		t.Errorf("expected invalid_input error, got %+v", msg)
	}

	send(t, conn, clientMessage{Type: "review", SessionID: "missing"})
	if msg := read(t, conn); msg.Type != "error" || msg.Code != "not_found" {
		t.Errorf("expected not_found error, got %+v", msg)
	}

	send(t, conn, clientMessage{Type: "ping"})
	if msg := read(t, conn); msg.Type != "pong" {
		t.Errorf("expected pong, got %+v", msg)
	}
}

func TestLiveBroadcastsToOtherTabs(t *testing.T) {
	srv, sm := newTestServer(t)
	first := dial(t, srv, "tab-1")
	read(t, first)
	second := dial(t, srv, "tab-2")
	read(t, second)

	deadline := time.Now().Add(2 * time.Second)
	for sm.GetActive(testProfile, "tab-2") == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	send(t, first, clientMessage{Type: "reset"})
	readUntil(t, first, "state")

	msg := read(t, second)
	if msg.Type != "state" || msg.State.State != interview.StateIdle {
		t.Errorf("expected broadcast state on second tab, got %+v", msg)
	}
}

func TestLiveModelCallsAreRateLimited(t *testing.T) {
	limiter := middleware.NewLimiter(middleware.RateLimitConfig{RequestsPerMinute: 1, Burst: 1})
	srv, _ := newLimitedServer(t, limiter)
	conn := dial(t, srv, "tab-1")
	read(t, conn)

	send(t, conn, clientMessage{Type: "start", InterviewType: "behavioral"})
	readUntil(t, conn, "state")

	send(t, conn, clientMessage{Type: "message", Content: "hello"})
	msg := read(t, conn)
	if msg.Type != "error" || msg.Code != "rate_limited" {
		t.Fatalf("expected rate_limited error, got %+v", msg)
	}

	send(t, conn, clientMessage{Type: "ping"})
	if msg := read(t, conn); msg.Type != "pong" {
		t.Errorf("expected ping to bypass the limiter, got %+v", msg)
	}
	if limiter.AllowProfile(testProfile) {
		t.Error("expected the socket to share the profile's HTTP budget")
	}
}

func TestOriginCheck(t *testing.T) {
	h := NewHandler(nil, nil, NewSessionManager(), nil, "https://mockdy.example", false)

	req := httptest.NewRequest(http.MethodGet, "/ws/interview", nil)
	req.Header.Set("Origin", "https://evil.example")
	if h.checkOrigin(req) {
		t.Error("expected foreign origin to be rejected")
	}
	req.Header.Set("Origin", "https://mockdy.example")
	if !h.checkOrigin(req) {
		t.Error("expected configured origin to be allowed")
	}
}

func TestSessionManager_UnregisterStale(t *testing.T) {
	sm := NewSessionManager()
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}

	sm.Register(testProfile, "tab-1", conn1)
	sm.Register(testProfile, "tab-2", conn2)
	sm.Unregister(testProfile, "tab-1", conn1)

	if active := sm.GetActive(testProfile, "tab-2"); active != conn2 {
		t.Errorf("Expected connection %v, got %v", conn2, active)
	}
	if others := sm.Others(testProfile, "tab-2"); len(others) != 0 {
		t.Errorf("Expected no other tabs, got %d", len(others))
	}

	sm.Unregister(testProfile, "tab-2", conn2)
	if active := sm.GetActive(testProfile, "tab-2"); active != nil {
		t.Errorf("Expected nil connection, got %v", active)
	}
}
