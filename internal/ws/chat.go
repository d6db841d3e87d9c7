package ws

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/themobileprof/symptomcheck/internal/analyzer"
	"github.com/themobileprof/symptomcheck/internal/api/middleware"
	"github.com/themobileprof/symptomcheck/internal/chat"
	"github.com/themobileprof/symptomcheck/internal/render"
)

const (
	maxMessageBytes = 4096
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
)

// Frame types sent to the client.
const (
	FrameEmergency = "emergency"
	FrameDiagnosis = "diagnosis"
	FrameGuidance  = "guidance"
	FrameFollowUp  = "followup"
	FrameError     = "error"
	FrameDone      = "done"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // patient chat is anonymous and embeddable
	},
}

// ChatHandler handles WebSocket chat connections
type ChatHandler struct {
	engine            *chat.Engine
	jwtSecret         string
	messagesPerMinute int
}

// NewChatHandler creates a new chat handler
func NewChatHandler(engine *chat.Engine, jwtSecret string, messagesPerMinute int) *ChatHandler {
	return &ChatHandler{
		engine:            engine,
		jwtSecret:         jwtSecret,
		messagesPerMinute: messagesPerMinute,
	}
}

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Content string `json:"content"`
}

// OutgoingMessage represents a message to the client
type OutgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Content   string      `json:"content,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// HandleChat upgrades the connection and runs one chat session on it.
// ?audience=clinician requires a clinician token; patients connect
// anonymously.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	audience, ok := render.ParseAudience(c.DefaultQuery("audience", string(render.AudiencePatient)))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audience must be patient or clinician"})
		return
	}

	if audience == render.AudienceClinician {
		claims, err := middleware.ParseToken(h.jwtSecret, middleware.TokenFromRequest(c))
		if err != nil || h.jwtSecret == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
			return
		}
		if claims.Role != middleware.RoleClinician {
			c.JSON(http.StatusForbidden, gin.H{"error": "clinician role required"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	responder := &wsResponder{conn: conn}
	limiter := middleware.NewWebSocketLimiter(h.messagesPerMinute)
	var sessionID string

	log.Printf("WebSocket connected: audience=%s", audience)

	for {
		var msg IncomingMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if !limiter.Allow() {
			if err := responder.SendError("Too many messages. Please wait a moment."); err != nil {
				break
			}
			continue
		}

		content := strings.TrimSpace(msg.Content)
		if content == "" {
			if err := responder.SendError("Message content is required"); err != nil {
				break
			}
			continue
		}

		sessionID, err = h.engine.ProcessMessage(c.Request.Context(), chat.ProcessRequest{
			SessionID: sessionID,
			Message:   content,
			Audience:  audience,
			Responder: responder,
		})
		if err != nil {
			log.Printf("Error processing message: %v", err)
			break
		}
	}

	if sessionID != "" {
		h.engine.Conversations().Reset(sessionID)
	}
}

// PruneLoop drops idle chat sessions until ctx is cancelled.
func (h *ChatHandler) PruneLoop(ctx context.Context, every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.engine.Conversations().Prune(maxIdle); n > 0 {
				log.Printf("Pruned %d idle chat session(s)", n)
			}
		}
	}
}

// wsResponder writes engine output as typed JSON frames.
type wsResponder struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	sessionID string
}

func (r *wsResponder) SetSessionID(id string) {
	r.sessionID = id
}

func (r *wsResponder) SendEmergency(resp analyzer.Response) error {
	return r.write(OutgoingMessage{Type: FrameEmergency, Content: resp.ResponseText, Data: resp})
}

func (r *wsResponder) SendDiagnosis(resp analyzer.Response) error {
	return r.write(OutgoingMessage{Type: FrameDiagnosis, Content: resp.ResponseText, Data: resp})
}

func (r *wsResponder) SendGuidance(resp analyzer.Response) error {
	return r.write(OutgoingMessage{Type: FrameGuidance, Content: resp.ResponseText, Data: gin.H{"kind": resp.Kind}})
}

func (r *wsResponder) SendFollowUps(questions []string) error {
	return r.write(OutgoingMessage{Type: FrameFollowUp, Data: questions})
}

func (r *wsResponder) SendError(message string) error {
	return r.write(OutgoingMessage{Type: FrameError, Content: message})
}

func (r *wsResponder) SendDone() error {
	return r.write(OutgoingMessage{Type: FrameDone})
}

func (r *wsResponder) write(msg OutgoingMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg.SessionID = r.sessionID
	_ = r.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return r.conn.WriteJSON(msg)
}
