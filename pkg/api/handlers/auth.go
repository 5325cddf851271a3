package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/api/response"
	"github.com/marmos91/remotefs/pkg/credential"
	"github.com/marmos91/remotefs/pkg/rferrors"
	"github.com/marmos91/remotefs/pkg/session"
	"github.com/marmos91/remotefs/pkg/token"
)

var validate = validator.New()

// AuthHandler implements POST /auth/register and POST /auth/login.
type AuthHandler struct {
	store    *credential.Store
	tokens   *token.Service
	sessions *session.Manager
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(store *credential.Store, tokens *token.Service, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, sessions: sessions}
}

func decodeCredentials(r *http.Request) (credentialsRequest, error) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, rferrors.ErrInvalid
	}
	if err := validate.Struct(req); err != nil {
		return req, rferrors.ErrInvalid
	}
	return req, nil
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	if _, err := h.store.Register(req.Username, req.Password); err != nil {
		response.WriteError(w, err)
		return
	}

	logger.Info("user registered", logger.Username(req.Username))
	response.Text(w, http.StatusCreated, "User registered successfully")
}

// Login handles POST /auth/login. On success it also ensures the user's
// on-disk directory exists and the namespace tree is warm.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	user, err := h.store.Authenticate(req.Username, req.Password)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	if _, err := h.sessions.Tree(user.Username, user.UserID); err != nil {
		response.WriteError(w, err)
		return
	}

	tok, expiresIn, err := h.tokens.Issue(user.Username, user.UserID)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	logger.Info("user logged in", logger.Username(user.Username), logger.UserID(user.UserID))
	response.JSON(w, http.StatusOK, LoginResponse{
		Token:     tok,
		Username:  user.Username,
		UserID:    user.UserID,
		ExpiresIn: expiresIn,
	})
}
