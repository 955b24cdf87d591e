package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"class-quiz-service/internal/app"
	"class-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	headerUserID   = "X-User-ID"
	headerUserName = "X-User-Name"
)

// APIHandler exposes authoring, joining and results over JSON.
// The caller's identity arrives in X-User-ID / X-User-Name from the identity provider.
type APIHandler struct {
	service *app.QuizService
	log     logrus.FieldLogger
}

func NewAPIHandler(service *app.QuizService, log logrus.FieldLogger) *APIHandler {
	return &APIHandler{service: service, log: log}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/classes", h.createClass)
	mux.HandleFunc("POST /api/classes/{code}/questions", h.addQuestion)
	mux.HandleFunc("GET /api/classes/{code}/questions", h.listQuestions)
	mux.HandleFunc("POST /api/classes/{code}/join", h.join)
	mux.HandleFunc("GET /api/classes/{code}/results", h.results)
	mux.HandleFunc("GET /api/classes/{code}/participants/{id}", h.review)
	mux.HandleFunc("GET /api/sessions/{token}/result", h.sessionResult)
	mux.HandleFunc("GET /api/users/{id}/dashboard", h.dashboard)
}

type joinRequest struct {
	Password string `json:"password"`
	Name     string `json:"name"`
}

type joinResponse struct {
	ParticipantID string `json:"participantId"`
	ClassID       string `json:"classId"`
	Token         string `json:"token"`
	Total         int    `json:"total"`
}

func (h *APIHandler) createClass(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in app.NewClass
	if !decode(w, r, &in) {
		return
	}
	class, err := h.service.CreateClass(r.Context(), userID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, class)
}

func (h *APIHandler) addQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in app.NewQuestion
	if !decode(w, r, &in) {
		return
	}
	q, err := h.service.AddQuestion(r.Context(), r.PathValue("code"), userID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *APIHandler) listQuestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	qs, err := h.service.Questions(r.Context(), r.PathValue("code"), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if qs == nil {
		qs = []domain.Question{}
	}
	writeJSON(w, http.StatusOK, qs)
}

func (h *APIHandler) join(w http.ResponseWriter, r *http.Request) {
	var in joinRequest
	if !decode(w, r, &in) {
		return
	}
	who := domain.Identity{
		UserID: r.Header.Get(headerUserID),
		Name:   r.Header.Get(headerUserName),
	}
	if strings.TrimSpace(in.Name) != "" {
		who.Name = in.Name
	}
	if strings.TrimSpace(who.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	p, err := h.service.Join(r.Context(), r.PathValue("code"), in.Password, who)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, joinResponse{
		ParticipantID: p.ID,
		ClassID:       p.ClassID,
		Token:         p.Token,
		Total:         len(p.QuestionSequence),
	})
}

func (h *APIHandler) results(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	class, err := h.ownedClass(r, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.service.Results(r.Context(), class.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *APIHandler) review(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	class, err := h.ownedClass(r, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	review, err := h.service.Review(r.Context(), class.ID, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *APIHandler) sessionResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Result(r.Context(), r.PathValue("token"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *APIHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if caller := r.Header.Get(headerUserID); caller != "" && caller != userID {
		h.writeError(w, r, domain.ErrForbidden)
		return
	}
	dash, err := h.service.Dashboard(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (h *APIHandler) ownedClass(r *http.Request, userID string) (domain.Class, error) {
	class, err := h.service.ClassByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		return domain.Class{}, err
	}
	if class.CreatorID != userID {
		return domain.Class{}, domain.ErrForbidden
	}
	return class, nil
}

// writeError maps domain errors to statuses. Every kind of miss, including a
// credential mismatch, gets the same 404 body.
func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *app.ValidationError
	switch {
	case domain.IsNotFound(err):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.As(err, &validation):
		http.Error(w, validation.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrInvalidPassword):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrCapacityExceeded), errors.Is(err, domain.ErrAlreadyJoined):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get(headerUserID))
	if userID == "" {
		http.Error(w, "missing "+headerUserID, http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
