package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"chatwire/internal/auth"
	"chatwire/internal/media"
	"chatwire/internal/storage"
)

type userResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	ProfilePic  string `json:"profilePic"`
}

func toUserResponse(u storage.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		ProfilePic:  u.ProfilePic,
	}
}

type signupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"required"`
	Password    string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type googleLoginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

type updateProfileRequest struct {
	ProfilePic string `json:"profilePic" validate:"required"`
}

// signup handles HTTP requests on "/api/auth/signup" endpoint
func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	var in signupRequest
	if err := json.Unmarshal(body, &in); err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Malformed request")
		return
	}
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.DisplayName = strings.TrimSpace(in.DisplayName)

	if err := h.validate.Struct(in); err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Email, display name and a password of at least 6 characters are required")
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		h.internalError(w, err)
		return
	}

	u, err := h.store.CreateUser(r.Context(), in.Email, in.DisplayName, hash)
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			h.errorJSON(w, http.StatusBadRequest, "Email already exists")
			return
		}
		h.internalError(w, err)
		return
	}

	if err := h.issueSession(w, u.ID); err != nil {
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// login handles HTTP requests on "/api/auth/login" endpoint
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	var in loginRequest
	if err := json.Unmarshal(body, &in); err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Malformed request")
		return
	}
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := h.validate.Struct(in); err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, err := h.store.UserByEmail(r.Context(), in.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			h.errorJSON(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		h.internalError(w, err)
		return
	}

	// federated accounts have no password to check
	if u.PasswordHash == "" {
		h.errorJSON(w, http.StatusBadRequest, "Please login using Google")
		return
	}

	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		h.errorJSON(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	if err := h.issueSession(w, u.ID); err != nil {
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toUserResponse(u))
}

// googleLogin handles HTTP requests on "/api/auth/google" endpoint
func (h *handler) googleLogin(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	var in googleLoginRequest
	if err := json.Unmarshal(body, &in); err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Malformed request")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Google credential missing")
		return
	}

	identity, err := h.google.Verify(r.Context(), in.Credential)
	if err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Google authentication failed")
		return
	}

	u, err := h.store.UserByEmail(r.Context(), identity.Email)
	switch {
	case errors.Is(err, storage.ErrUserNotExist):
		displayName := identity.Name
		if displayName == "" {
			displayName = identity.Email
		}
		u, err = h.store.CreateGoogleUser(r.Context(), identity.Email, displayName, identity.Subject, identity.Picture)
		if err != nil {
			h.internalError(w, err)
			return
		}
	case err != nil:
		h.internalError(w, err)
		return
	default:
		// existing account: link the subject if it is not linked yet and
		// backfill a missing profile picture
		if u.GoogleSubject == "" || (u.ProfilePic == "" && identity.Picture != "") {
			u, err = h.store.AttachGoogle(r.Context(), u.ID, identity.Subject, identity.Picture)
			if err != nil {
				h.internalError(w, err)
				return
			}
		}
	}

	if err := h.issueSession(w, u.ID); err != nil {
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toUserResponse(u))
}

// logout handles HTTP requests on "/api/auth/logout" endpoint
func (h *handler) logout(w http.ResponseWriter, _ *http.Request) {
	auth.ClearSessionCookie(w, h.cookieSecure)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// checkAuth handles HTTP requests on "/api/auth/check" endpoint
func (h *handler) checkAuth(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	u, err := h.store.UserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			h.errorJSON(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toUserResponse(u))
}

// updateProfile handles HTTP requests on "/api/auth/update-profile" endpoint
func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	body, _ := io.ReadAll(r.Body)

	var in updateProfileRequest
	if err := json.Unmarshal(body, &in); err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Malformed request")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Profile picture is required")
		return
	}

	url, err := h.blobs.UploadDataURL(r.Context(), in.ProfilePic)
	if err != nil {
		if errors.Is(err, media.ErrBadDataURL) || errors.Is(err, media.ErrNotImage) {
			h.errorJSON(w, http.StatusBadRequest, "Profile picture must be an image")
			return
		}
		h.internalError(w, err)
		return
	}

	u, err := h.store.UpdateProfilePic(r.Context(), userID, url)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			h.errorJSON(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toUserResponse(u))
}

// contacts handles HTTP requests on "/api/users/contacts" endpoint
func (h *handler) contacts(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	users, err := h.store.Contacts(r.Context(), userID)
	if err != nil {
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, lo.Map(users, func(u storage.User, _ int) userResponse {
		return toUserResponse(u)
	}))
}
