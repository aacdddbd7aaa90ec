package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/MJSteenberg/xfinance/internal/domain/user"
	"github.com/MJSteenberg/xfinance/internal/shared/auth"
)

type UserHandler struct {
	users user.Repository
}

func NewUserHandler(users user.Repository) *UserHandler {
	return &UserHandler{users: users}
}

type registerRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister creates a user account.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "username and password are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "bad_request", "password must be at least 8 characters")
		return
	}

	existing, _, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		log.Printf("Error checking username %q: %v", req.Username, err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to create user")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "username_taken", "username is already in use")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to create user")
		return
	}

	created, err := h.users.Create(r.Context(), user.CreateUserParams{
		ID:           uuid.New().String(),
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
	})
	if err != nil {
		log.Printf("Error creating user %q: %v", req.Username, err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to create user")
		return
	}

	writeOK(w, http.StatusCreated, created)
}

// HandleLogin verifies credentials and returns the account. The caller then
// sends the returned id in X-User-ID on subsequent requests.
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	u, passwordHash, err := h.users.GetByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		log.Printf("Error looking up user %q: %v", req.Username, err)
		writeError(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}
	if u == nil || auth.VerifyPassword(passwordHash, req.Password) != nil {
		// Same response for unknown user and wrong password.
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	writeOK(w, http.StatusOK, u)
}
