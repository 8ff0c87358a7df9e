package tasks

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/taskboard/internal/identity"
)

type createTaskRequest struct {
	ID        string   `json:"id"`
	ColumnID  ColumnID `json:"columnId"`
	Content   string   `json:"content"`
	CreatedAt string   `json:"createdAt"`
}

// userIDRequired is the wire body for a missing identity; clients match on it.
const userIDRequired = "User ID required"

type errResponse struct {
	Error string `json:"error"`
}

// RegisterRoutes mounts the task routes on r. Callers are expected to put
// them under /api behind middleware.RequireUserID.
func RegisterRoutes(r chi.Router, repo Repository, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.Get("/tasks", listTasks(repo, logger))
	r.Post("/tasks", createTask(repo, logger))
	r.Put("/tasks/{id}", updateTask(repo, logger))
	r.Delete("/tasks/{id}", deleteTask(repo, logger))
}

func listTasks(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		list, err := repo.List(r.Context(), userID)
		if err != nil {
			writeRepoError(w, r, logger, "list_tasks", err)
			return
		}
		if list == nil {
			list = []Task{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createTask(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		var req createTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid JSON"})
			return
		}

		err := repo.Create(r.Context(), Task{
			ID:        req.ID,
			ColumnID:  req.ColumnID,
			Content:   req.Content,
			UserID:    userID,
			CreatedAt: req.CreatedAt,
		})
		if err != nil {
			writeRepoError(w, r, logger, "create_task", err)
			return
		}
		writeJSON(w, http.StatusOK, Ack{Success: true})
	}
}

func updateTask(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		id, ok := taskID(w, r)
		if !ok {
			return
		}

		var p Patch
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid JSON"})
			return
		}

		if err := repo.Update(r.Context(), userID, id, p); err != nil {
			writeRepoError(w, r, logger, "update_task", err)
			return
		}
		writeJSON(w, http.StatusOK, Ack{Success: true})
	}
}

func deleteTask(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		id, ok := taskID(w, r)
		if !ok {
			return
		}

		if err := repo.Delete(r.Context(), userID, id); err != nil {
			writeRepoError(w, r, logger, "delete_task", err)
			return
		}
		writeJSON(w, http.StatusOK, Ack{Success: true})
	}
}

// taskID returns the decoded {id} segment. chi routes on r.URL.RawPath when
// it is set (an id holding "/" forces that), and then the parameter still
// carries its percent escapes.
func taskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id, true
	}
	id, err := url.PathUnescape(id)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid id"})
		return "", false
	}
	return id, true
}

// requireUser prefers the identifier resolved by middleware and falls back to
// reading the request directly.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := identity.FromContext(r.Context())
	if userID == "" {
		userID = identity.FromRequest(r)
	}
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: userIDRequired})
		return "", false
	}
	return userID, true
}

func writeRepoError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrUserIDRequired):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: userIDRequired})
	case errors.Is(err, ErrIDRequired),
		errors.Is(err, ErrColumnRequired),
		errors.Is(err, ErrContentRequired),
		errors.Is(err, ErrCreatedAtInvalid):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error()})
	case errors.Is(err, ErrConflict):
		writeJSON(w, http.StatusConflict, errResponse{Error: err.Error()})
	default:
		logger.ErrorContext(r.Context(), op+"_failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
