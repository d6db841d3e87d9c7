package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/themobileprof/symptomcheck/internal/analyzer"
	"github.com/themobileprof/symptomcheck/internal/conversation"
	"github.com/themobileprof/symptomcheck/internal/privacy"
	"github.com/themobileprof/symptomcheck/internal/render"
)

// contextMessages is how many earlier messages are replayed when a short
// reply only makes sense together with what came before.
const contextMessages = 2

// Responder defines the interface for sending responses to any transport
type Responder interface {
	SendEmergency(resp analyzer.Response) error
	SendDiagnosis(resp analyzer.Response) error
	SendGuidance(resp analyzer.Response) error
	SendFollowUps(questions []string) error
	SendError(message string) error
	SendDone() error
	SetSessionID(id string)
}

// ProcessRequest contains all data needed to process a message
type ProcessRequest struct {
	SessionID string
	Message   string
	Audience  render.Audience
	Responder Responder
}

// AnalyzerInterface is the pipeline the engine drives
type AnalyzerInterface interface {
	Process(ctx context.Context, req analyzer.Request) analyzer.Response
}

// Engine handles conversation logic independent of transport
type Engine struct {
	analyzer    AnalyzerInterface
	convManager *conversation.Manager
}

// NewEngine creates a new transport-agnostic chat engine
func NewEngine(a AnalyzerInterface, conv *conversation.Manager) *Engine {
	if conv == nil {
		conv = conversation.NewManager(10)
	}
	return &Engine{analyzer: a, convManager: conv}
}

// Conversations exposes the session store, e.g. for pruning
func (e *Engine) Conversations() *conversation.Manager {
	return e.convManager
}

// ProcessMessage analyzes one chat message and sends typed frames via the
// responder. It returns the session ID in use.
func (e *Engine) ProcessMessage(ctx context.Context, req ProcessRequest) (string, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
		log.Printf("Created new chat session: %s", sessionID)
	}
	req.Responder.SetSessionID(sessionID)

	if privacy.ContainsPII(req.Message) {
		log.Printf("Warning: Potential PII detected in message for session=%s", sessionID)
	}

	state := e.convManager.GetState(sessionID)
	resp := e.analyze(ctx, state, req)

	var err error
	switch {
	case resp.Emergency:
		err = req.Responder.SendEmergency(resp)
	case resp.Kind.IsError():
		err = req.Responder.SendGuidance(resp)
	default:
		err = req.Responder.SendDiagnosis(resp)
	}
	if err != nil {
		return sessionID, fmt.Errorf("failed to send response: %w", err)
	}

	if len(resp.FollowUps) > 0 {
		if err := req.Responder.SendFollowUps(resp.FollowUps); err != nil {
			return sessionID, fmt.Errorf("failed to send follow-ups: %w", err)
		}
	}

	if resp.Emergency {
		// Start fresh once the user has been told to seek help.
		e.convManager.Reset(sessionID)
	} else {
		e.convManager.Record(sessionID, req.Message, resp.FollowUps, resp.ConditionID)
	}

	return sessionID, req.Responder.SendDone()
}

// analyze runs the message alone first. A reply that cannot be analyzed on
// its own (for example "about three days") is retried together with the
// preceding messages of the session.
func (e *Engine) analyze(ctx context.Context, state conversation.State, req ProcessRequest) analyzer.Response {
	areq := analyzer.Request{
		Text:     req.Message,
		Audience: req.Audience,
		History:  state.History,
		Asked:    state.Asked,
	}
	resp := e.analyzer.Process(ctx, areq)
	if !needsContext(resp) || len(state.History) == 0 {
		return resp
	}

	prior := state.History
	if len(prior) > contextMessages {
		prior = prior[len(prior)-contextMessages:]
	}
	areq.Text = strings.Join(append(append([]string(nil), prior...), req.Message), ". ")
	combined := e.analyzer.Process(ctx, areq)
	if combined.Emergency || !combined.Kind.IsError() {
		log.Printf("Session %s: answered using %d earlier message(s)", state.SessionID, len(prior))
		return combined
	}
	return resp
}

func needsContext(resp analyzer.Response) bool {
	switch resp.Kind {
	case analyzer.KindInsufficientInput, analyzer.KindNoSymptoms, analyzer.KindSymptomsUnclear:
		return true
	}
	return false
}
