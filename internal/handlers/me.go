package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/tokokita/api/internal/domain"
	"github.com/tokokita/api/internal/platform/auth"
	"github.com/tokokita/api/internal/platform/httpx"
	"github.com/tokokita/api/internal/services"
)

const maxProfileBodySize = 64 * 1024

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

// MeHandlers exposes authenticated profile endpoints for the current user.
type MeHandlers struct {
	authn *auth.Authenticator
	users services.UserService
}

// NewMeHandlers constructs handlers enforcing Firebase authentication before
// invoking the user service.
func NewMeHandlers(authn *auth.Authenticator, users services.UserService) *MeHandlers {
	return &MeHandlers{
		authn: authn,
		users: users,
	}
}

// Routes wires the /me endpoints onto the provided router.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.getProfile)
	r.Put("/", h.updateProfile)
}

// getProfile returns the stored profile, provisioning it from the identity
// token claims on first contact.
func (h *MeHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	profile, err := h.users.GetProfile(ctx, identity.UID)
	if errors.Is(err, services.ErrUserNotFound) {
		profile, err = h.users.SyncProfile(ctx, services.SyncProfileCommand{
			UserID: identity.UID,
			Name:   identity.Name,
			Email:  identity.Email,
			Role:   domain.ParseRole(identity.Role),
		})
	}
	if err != nil {
		writeProfileError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, meResponse{Profile: buildProfilePayload(profile)})
}

// updateProfile syncs caller-editable profile fields. Email and role always
// follow the identity token and cannot be changed here.
func (h *MeHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxProfileBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return
	}

	var req updateProfileRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed request body", http.StatusBadRequest))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "name is required", http.StatusBadRequest))
		return
	}

	profile, err := h.users.SyncProfile(ctx, services.SyncProfileCommand{
		UserID: identity.UID,
		Name:   name,
		Email:  identity.Email,
		Role:   domain.ParseRole(identity.Role),
	})
	if err != nil {
		writeProfileError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, meResponse{Profile: buildProfilePayload(profile)})
}

func (h *MeHandlers) requireIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("profile_service_unavailable", "profile service is unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

type meResponse struct {
	Profile meProfilePayload `json:"profile"`
}

type meProfilePayload struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func buildProfilePayload(user domain.User) meProfilePayload {
	payload := meProfilePayload{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  string(user.Role),
	}
	if !user.CreatedAt.IsZero() {
		payload.CreatedAt = user.CreatedAt.UTC().Format(time.RFC3339)
	}
	return payload
}

func writeProfileError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrUserInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid profile input", http.StatusBadRequest))
	case errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("profile_not_found", "profile not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("profile_failed", "failed to load profile", http.StatusInternalServerError))
	}
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, errEmptyBody
	}
	return body, nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
