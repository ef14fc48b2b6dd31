package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/steppy/steppy-service/internal/coach"
	"github.com/steppy/steppy-service/internal/growth"
	"github.com/steppy/steppy-service/internal/shared/auth"
	sharederrors "github.com/steppy/steppy-service/internal/shared/errors"
	"github.com/steppy/steppy-service/internal/shared/logging"
)

const (
	serviceTimeout = 8 * time.Second
	maxBodyBytes   = 64 * 1024
)

var errInvalidPayload = errors.New("invalid request body")

// RegisterRoutes registers the Steppy routes.
func RegisterRoutes(r chi.Router, service *coach.Service, logger *slog.Logger) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/today", getToday(service))
		r.Post("/submit", submitResult(service, logger))
		r.Get("/dashboard", getDashboard(service))

		r.Get("/progress", getProgress(service))
		r.Delete("/progress", resetProgress(service))

		r.Get("/tasks", listTasks(service))
		r.Get("/categories", listCategories(service))
		r.Get("/badges", listBadges(service))

		r.Get("/activities", listActivities(service, logger))
		r.Put("/preferences", savePreferences(service, logger))
	})
}

func getToday(service *coach.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		writeJSON(w, http.StatusOK, service.Today(ctx, userIDFromRequest(r)))
	}
}

func submitResult(service *coach.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := service.ResolveUserID(userIDFromRequest(r))

		var body coach.SubmitRequest
		if !decodeBody(w, r, &body) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		resp, err := service.Submit(ctx, userID, body)
		if err != nil {
			if errors.Is(err, coach.ErrInvalidSubmission) || errors.Is(err, coach.ErrUnknownTask) {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			logRequestError(r.Context(), logger, "failed to submit result", err, userID)
			writeError(w, r, http.StatusInternalServerError, "failed to submit result")
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getDashboard(service *coach.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		writeJSON(w, http.StatusOK, service.Dashboard(ctx, userIDFromRequest(r)))
	}
}

func getProgress(service *coach.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		writeJSON(w, http.StatusOK, service.Progress(ctx, userIDFromRequest(r)))
	}
}

func resetProgress(service *coach.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		writeJSON(w, http.StatusOK, service.ResetProgress(ctx, userIDFromRequest(r)))
	}
}

func listTasks(service *coach.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := strings.TrimSpace(r.URL.Query().Get("category"))
		tasks := service.Tasks(category)
		if category != "" && len(tasks) == 0 {
			writeError(w, r, http.StatusNotFound, "unknown category")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
	}
}

func listCategories(service *coach.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"categories": service.Categories()})
	}
}

func listBadges(service *coach.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"badges": service.BadgeDefinitions()})
	}
}

func listActivities(service *coach.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := service.ResolveUserID(userIDFromRequest(r))

		pageSize := 0
		if raw := r.URL.Query().Get("pageSize"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, r, http.StatusBadRequest, "pageSize must be a non-negative integer")
				return
			}
			pageSize = n
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		page, err := service.History(ctx, userID, pageSize, r.URL.Query().Get("pageToken"))
		if err != nil {
			if errors.Is(err, growth.ErrInvalidPageToken) {
				writeError(w, r, http.StatusBadRequest, "invalid pageToken")
				return
			}
			logRequestError(r.Context(), logger, "failed to list activities", err, userID)
			writeError(w, r, http.StatusInternalServerError, "failed to list activities")
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func savePreferences(service *coach.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := service.ResolveUserID(userIDFromRequest(r))

		var body coach.PreferencesRequest
		if !decodeBody(w, r, &body) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		user, err := service.SavePreferences(ctx, userID, body)
		if err != nil {
			if errors.Is(err, coach.ErrInvalidPreferences) {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			logRequestError(r.Context(), logger, "failed to save preferences", err, userID)
			writeError(w, r, http.StatusInternalServerError, "failed to save preferences")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// decodeBody reads exactly one JSON object into dst and answers the request itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(dst)
	if err == nil && decoder.Decode(&struct{}{}) != io.EOF {
		err = errInvalidPayload
	}
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, r, http.StatusRequestEntityTooLarge, "payload too large")
		return false
	}
	writeError(w, r, http.StatusBadRequest, errInvalidPayload.Error())
	return false
}

// userIDFromRequest prefers the authenticated subject, then the user_id query parameter,
// then the X-User-ID header. An empty result selects the default user.
func userIDFromRequest(r *http.Request) string {
	if user, ok := auth.UserFromContext(r.Context()); ok && user.UserID != "" {
		return user.UserID
	}
	if v := strings.TrimSpace(r.URL.Query().Get("user_id")); v != "" {
		return v
	}
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, sharederrors.ErrorResponse{
		Code:      sharederrors.CodeFor(status),
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func logRequestError(ctx context.Context, logger *slog.Logger, message string, err error, userID string) {
	if logger == nil || err == nil {
		return
	}
	logging.WithRequestID(logger, middleware.GetReqID(ctx)).Error(message,
		slog.String("userId", userID),
		slog.Any("error", err),
	)
}
