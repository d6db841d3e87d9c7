package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/themobileprof/symptomcheck/internal/analyzer"
	"github.com/themobileprof/symptomcheck/internal/api/middleware"
	"github.com/themobileprof/symptomcheck/internal/chat"
)

const testSecret = "ws-secret"

type fakeAnalyzer struct{}

func (fakeAnalyzer) Process(_ context.Context, req analyzer.Request) analyzer.Response {
	if strings.Contains(req.Text, "chest pain") {
		return analyzer.Response{Kind: analyzer.KindEmergency, Emergency: true, ResponseText: "call emergency services"}
	}
	return analyzer.Response{
		Kind:         analyzer.KindDiagnosis,
		ConditionID:  "common_cold",
		ResponseText: "It sounds like a cold.",
		FollowUps:    []string{"How long have you had it?"},
	}
}

func newServer(t *testing.T, perMinute int) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewChatHandler(chat.NewEngine(fakeAnalyzer{}, nil), testSecret, perMinute)
	r := gin.New()
	r.GET("/ws/chat", h.HandleChat)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat" + query
}

func readFrames(t *testing.T, conn *websocket.Conn, until string) []OutgoingMessage {
	t.Helper()
	var frames []OutgoingMessage
	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg OutgoingMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		frames = append(frames, msg)
		if msg.Type == until {
			return frames
		}
	}
}

func frameTypes(frames []OutgoingMessage) string {
	types := make([]string, len(frames))
	for i, f := range frames {
		types[i] = f.Type
	}
	return strings.Join(types, ",")
}

func TestHandleChatDiagnosis(t *testing.T) {
	srv := newServer(t, 20)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(IncomingMessage{Content: "I have a runny nose"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	frames := readFrames(t, conn, FrameDone)

	if got := frameTypes(frames); got != "diagnosis,followup,done" {
		t.Fatalf("frames = %s", got)
	}
	if frames[0].Content != "It sounds like a cold." || frames[0].SessionID == "" {
		t.Errorf("diagnosis frame = %+v", frames[0])
	}

	if err := conn.WriteJSON(IncomingMessage{Content: "now chest pain"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	frames = readFrames(t, conn, FrameDone)
	if got := frameTypes(frames); got != "emergency,done" {
		t.Fatalf("frames = %s", got)
	}
}

func TestHandleChatRejectsEmptyMessage(t *testing.T) {
	srv := newServer(t, 20)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.WriteJSON(IncomingMessage{Content: "   "})
	frames := readFrames(t, conn, FrameError)
	if len(frames) != 1 {
		t.Fatalf("frames = %s", frameTypes(frames))
	}
}

func TestHandleChatRateLimit(t *testing.T) {
	srv := newServer(t, 1)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.WriteJSON(IncomingMessage{Content: "I have a runny nose"})
	readFrames(t, conn, FrameDone)

	_ = conn.WriteJSON(IncomingMessage{Content: "I have a runny nose"})
	frames := readFrames(t, conn, FrameError)
	if !strings.Contains(frames[len(frames)-1].Content, "Too many messages") {
		t.Fatalf("expected rate limit error, got %+v", frames)
	}
}

func TestHandleChatClinicianAuth(t *testing.T) {
	srv := newServer(t, 20)

	clinician, err := middleware.IssueToken(testSecret, "dr-1", middleware.RoleClinician, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	patient, err := middleware.IssueToken(testSecret, "p-1", middleware.RolePatient, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{name: "missing token", query: "?audience=clinician", wantStatus: http.StatusUnauthorized},
		{name: "patient token", query: "?audience=clinician&token=" + patient, wantStatus: http.StatusForbidden},
		{name: "bad audience", query: "?audience=vet", wantStatus: http.StatusBadRequest},
		{name: "clinician token", query: "?audience=clinician&token=" + clinician, wantStatus: http.StatusSwitchingProtocols},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, tt.query), nil)
			if conn != nil {
				defer conn.Close()
			}
			if resp == nil {
				t.Fatalf("no handshake response: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}
