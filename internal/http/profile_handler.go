package http

import (
	"errors"
	"log/slog"
	"net/http"

	"dsanotes/internal/users"
)

// ProfileHandler serves identity lookups for already validated sessions.
type ProfileHandler struct {
	users  UserFinder
	logger *slog.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(users UserFinder, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, logger: logger}
}

// Current handles GET /auth/user/profile with the profile the provider just
// vouched for.
func (h *ProfileHandler) Current(w http.ResponseWriter, r *http.Request) {
	profile, ok := ProfileFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": profile})
}

// Me handles GET /api/users/me with the locally stored user record.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	subjectID := SubjectFromContext(r.Context())
	if subjectID == "" {
		unauthorized(w)
		return
	}

	user, err := h.users.FindBySubject(r.Context(), subjectID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("load user failed", "subject_id", subjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
