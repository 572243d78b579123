package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"interviewai/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// Candidates paste whole answers and code over the socket
	maxMessageSize = 32 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// ClientMessage is what the candidate's browser sends over the socket
type ClientMessage struct {
	Type   string `json:"type"` // answer, end
	Answer string `json:"answer,omitempty"`
}

// ServerMessage is what the interviewer sends back
type ServerMessage struct {
	Type         string `json:"type"` // step, ended, error
	Action       string `json:"action,omitempty"`
	Dialogue     string `json:"dialogue,omitempty"`
	CurrentStage int    `json:"currentStage,omitempty"`
	Warnings     int    `json:"warnings,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Handler drives one interview session per WebSocket connection. A drop
// after at least one answer finalizes the session so the candidate still
// gets a report.
type Handler struct {
	interviewSvc *service.InterviewService
}

// NewHandler creates a new WebSocket handler
func NewHandler(interviewSvc *service.InterviewService) *Handler {
	return &Handler{interviewSvc: interviewSvc}
}

// InterviewWS handles GET /api/ws/interview/{sessionId}
func (h *Handler) InterviewWS(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	if _, err := h.interviewSvc.Get(r.Context(), sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("Candidate connected to session %s via WebSocket", sessionID)

	conn := &connection{
		sessionID: sessionID,
		send:      make(chan ServerMessage, 16),
	}
	go h.writePump(wsConn, conn)
	h.readPump(wsConn, conn)
}

type connection struct {
	sessionID string
	send      chan ServerMessage
	answered  bool
	done      bool
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *connection) {
	defer func() {
		close(conn.send)
		wsConn.Close()
		h.handleDisconnect(conn)
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			conn.send <- ServerMessage{Type: "error", Error: "invalid message"}
			continue
		}

		switch msg.Type {
		case "answer":
			h.handleAnswer(conn, msg.Answer)
			if conn.done {
				return
			}
		case "end":
			if err := h.interviewSvc.End(context.Background(), conn.sessionID); err != nil {
				log.Printf("WebSocket end failed for session %s: %v", conn.sessionID, err)
			}
			conn.done = true
			conn.send <- ServerMessage{Type: "ended"}
			return
		default:
			conn.send <- ServerMessage{Type: "error", Error: "unknown message type"}
		}
	}
}

func (h *Handler) handleAnswer(conn *connection, answer string) {
	// Detached from the request context so a mid-step disconnect cannot
	// abort the state transition
	resp, err := h.interviewSvc.NextStep(context.Background(), conn.sessionID, answer)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionFinished):
			conn.done = true
			conn.send <- ServerMessage{Type: "ended"}
		case errors.Is(err, service.ErrNoOpenQuestion):
			conn.send <- ServerMessage{Type: "error", Error: "no question is awaiting an answer"}
		default:
			conn.send <- ServerMessage{Type: "error", Error: err.Error()}
		}
		return
	}

	conn.answered = true
	out := ServerMessage{
		Type:         "step",
		Action:       string(resp.Action),
		Dialogue:     resp.Dialogue,
		CurrentStage: resp.CurrentStage,
		Warnings:     resp.Warnings,
	}
	if resp.Action == "END_INTERVIEW" {
		out.Type = "ended"
		conn.done = true
	}
	conn.send <- out
}

// handleDisconnect finalizes a session the candidate walked away from
func (h *Handler) handleDisconnect(conn *connection) {
	if conn.done || !conn.answered {
		return
	}
	log.Printf("Candidate disconnected mid-interview, finalizing session %s", conn.sessionID)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.interviewSvc.End(ctx, conn.sessionID); err != nil {
		log.Printf("Finalize on disconnect failed for session %s: %v", conn.sessionID, err)
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wsConn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
