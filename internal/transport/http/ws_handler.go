package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"class-quiz-service/internal/app"
	"class-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const tickInterval = time.Second

type WSHandler struct {
	service  *app.QuizService
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID    string `json:"questionId"`
	SelectedIndex *int   `json:"selectedIndex"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type sessionPayload struct {
	Status   domain.SessionStatus `json:"status"`
	Position int                  `json:"position"`
	Total    int                  `json:"total"`
}

// questionPayload never carries the correct index.
type questionPayload struct {
	Index       int      `json:"index"`
	Total       int      `json:"total"`
	QuestionID  string   `json:"questionId"`
	Text        string   `json:"text"`
	Options     []string `json:"options"`
	RemainingMs int64    `json:"remainingMs"`
}

type tickPayload struct {
	RemainingMs int64 `json:"remainingMs"`
}

type answeredPayload struct {
	Index      int    `json:"index"`
	Total      int    `json:"total"`
	QuestionID string `json:"questionId"`
	Expired    bool   `json:"expired"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS runs one participant's quiz over a websocket. The session is
// resolved from the token before upgrading; an unknown token gets a plain 404.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	session, err := h.service.StartSession(r.Context(), token)
	if err != nil {
		if domain.IsNotFound(err) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.log.WithError(err).Error("start session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer h.service.EndSession(session)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})
	tickerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		broken := false
		for msg := range send {
			if broken {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).Debug("ws write")
				broken = true
			}
		}
	}()

	emit := func(msg outboundMessage) bool {
		select {
		case send <- msg:
			return true
		case <-closeSignals:
			return false
		}
	}

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if msg, ok := h.eventMessage(session, ev); ok && !emit(msg) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, open := session.CurrentQuestion(); !open {
					continue
				}
				if !emit(outboundMessage{Type: "tick", Payload: tickPayload{RemainingMs: session.Remaining().Milliseconds()}}) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage{Type: "session", Payload: sessionPayload{
		Status:   session.Status(),
		Position: session.Position(),
		Total:    session.Total(),
	}}
	if res, done := session.Result(); done {
		send <- outboundMessage{Type: "result", Payload: res}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "begin":
			if err := session.Begin(r.Context()); err != nil {
				send <- errorMessage(err)
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if _, err := session.SubmitTo(r.Context(), payload.QuestionID, payload.SelectedIndex); err != nil {
				send <- errorMessage(err)
			}
		default:
			send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-eventsDone
	<-tickerDone
	close(send)
	<-writerDone
}

func (h *WSHandler) eventMessage(session *app.Session, ev domain.SessionEvent) (outboundMessage, bool) {
	switch ev.Type {
	case domain.EventQuestion:
		q, open := session.CurrentQuestion()
		if !open || q.ID != ev.QuestionID {
			// already answered by the time we got here; its answered event follows
			return outboundMessage{}, false
		}
		return outboundMessage{Type: "question", Payload: questionPayload{
			Index:       ev.Index,
			Total:       ev.Total,
			QuestionID:  q.ID,
			Text:        q.Text,
			Options:     q.Options,
			RemainingMs: session.Remaining().Milliseconds(),
		}}, true
	case domain.EventAnswered:
		return outboundMessage{Type: "answered", Payload: answeredPayload{
			Index:      ev.Index,
			Total:      ev.Total,
			QuestionID: ev.QuestionID,
			Expired:    ev.Expired,
		}}, true
	case domain.EventCompleted:
		if ev.Result == nil {
			return outboundMessage{}, false
		}
		return outboundMessage{Type: "result", Payload: *ev.Result}, true
	}
	return outboundMessage{}, false
}

func errorMessage(err error) outboundMessage {
	msg := err.Error()
	if domain.IsNotFound(err) {
		msg = "not found"
	} else if !isClientError(err) {
		msg = "internal error"
	}
	return outboundMessage{Type: "error", Payload: errorPayload{Message: msg}}
}

func isClientError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidOption,
		domain.ErrQuestionClosed,
		domain.ErrSessionClosed,
		domain.ErrNotStarted,
		domain.ErrQuizCompleted,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
