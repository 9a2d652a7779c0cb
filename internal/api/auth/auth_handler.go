package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"github.com/Fonality-code/wayfinder-life-sub000/config"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/api"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

type AuthHandler struct {
	authService AuthService
	jwtCfg      config.JWTConfig
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, jwtCfg config.JWTConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtCfg:      jwtCfg,
		logger:      logger,
	}
}

// ConfigureOAuth registers the OAuth providers with goth. Callers that leave
// provider keys empty get credential-only auth.
func ConfigureOAuth(cfg config.OAuthConfig) {
	gothic.Store = sessions.NewCookieStore([]byte(cfg.SessionSecret))

	if cfg.Google.Key != "" {
		goth.UseProviders(
			google.New(cfg.Google.Key, cfg.Google.Secret, cfg.Google.CallbackURL, "email", "profile"),
		)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	accessToken, refreshToken, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, types.ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		l.ErrorContext(ctx, "Login failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Login failed")
		return
	}

	h.setSessionCookie(w, accessToken)
	api.WriteJSONResponse(w, r, http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Message:      "Login successful",
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	err := h.authService.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			api.ErrorResponse(w, r, http.StatusConflict, "An account with this email already exists")
			return
		}
		l.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Registration failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, types.Response{
		Success: true,
		Message: "Account created",
	})
}

func (h *AuthHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "RefreshSession"))

	var req RefreshTokenRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	accessToken, refreshToken, err := h.authService.RefreshSession(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, types.ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		l.ErrorContext(ctx, "Refresh failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Refresh failed")
		return
	}

	h.setSessionCookie(w, accessToken)
	api.WriteJSONResponse(w, r, http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LogoutRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.Logout(ctx, req.RefreshToken); err != nil {
		h.logger.WarnContext(ctx, "Logout token revocation failed", slog.Any("error", err))
	}

	h.clearSessionCookie(w)
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Logged out",
	})
}

func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdatePassword"))

	userID, err := PrincipalID(ctx)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.NewPassword == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "new password is required")
		return
	}

	err = h.authService.UpdatePassword(ctx, userID, req.OldPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, types.ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid current password")
			return
		}
		l.ErrorContext(ctx, "Password update failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Password update failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Password updated",
	})
}

// BeginOAuth redirects the browser to the provider's consent screen.
func (h *AuthHandler) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	gothic.BeginAuthHandler(w, r)
}

// OAuthCallback completes the provider handshake, reconciles the provider
// user with the local store, and issues a session.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "OAuthCallback"))

	providerUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		l.WarnContext(ctx, "OAuth handshake failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Sign-in failed")
		return
	}

	user, err := h.authService.GetOrCreateUserFromProvider(ctx, providerUser.Provider, providerUser)
	if err != nil {
		l.ErrorContext(ctx, "Provider reconciliation failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Sign-in failed")
		return
	}

	accessToken, refreshToken, err := h.authService.GenerateTokens(ctx, user)
	if err != nil {
		l.ErrorContext(ctx, "Token issuance failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Sign-in failed")
		return
	}

	h.setSessionCookie(w, accessToken)
	api.WriteJSONResponse(w, r, http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Message:      "Login successful",
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, accessToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.jwtCfg.CookieName,
		Value:    accessToken,
		Path:     "/",
		Domain:   h.jwtCfg.CookieDomain,
		MaxAge:   int(h.jwtCfg.AccessTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.jwtCfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.jwtCfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.jwtCfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.jwtCfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
