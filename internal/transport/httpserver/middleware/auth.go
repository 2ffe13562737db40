package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"meetup-app-go/internal/config"
	"meetup-app-go/pkg/logger"
)

// Auth resolves the caller from a bearer token via the external identity
// provider. Provider internals stay out of scope; this middleware is the
// whole integration surface.
type Auth struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	skipAuth bool
	mockUser User
	log      logger.Logger
}

type contextKey int

const userKey contextKey = iota

type User struct {
	ID    string
	Name  string
	Email string
}

type providerResponse struct {
	ID           string         `json:"id"`
	Sub          string         `json:"sub"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func NewAuth(cfg config.AuthConfig, log logger.Logger) *Auth {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &Auth{
		baseURL:  strings.TrimRight(cfg.ProviderURL, "/"),
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		skipAuth: cfg.SkipAuth,
		mockUser: User{
			ID:    strings.TrimSpace(cfg.MockUserID),
			Name:  strings.TrimSpace(cfg.MockUserName),
			Email: strings.TrimSpace(cfg.MockUserEmail),
		},
		log: log,
	}
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipAuth {
			if a.mockUser.ID == "" {
				writeError(w, http.StatusInternalServerError, "auth_not_configured", "auth mock user id not configured")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), a.mockUser)))
			return
		}

		if a.baseURL == "" {
			writeError(w, http.StatusInternalServerError, "auth_not_configured", "auth not configured")
			return
		}

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			unauthorized(w)
			return
		}

		user, ok := a.resolve(r.Context(), token)
		if !ok {
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (a *Auth) resolve(ctx context.Context, token string) (User, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return User{}, false
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if a.apiKey != "" {
		req.Header.Set("apikey", a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn("auth: provider request failed", "err", err)
		return User{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return User{}, false
	}

	var payload providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return User{}, false
	}

	userID := payload.ID
	if userID == "" {
		userID = payload.Sub
	}
	if userID == "" {
		return User{}, false
	}

	return User{
		ID:    userID,
		Name:  stringFromMap(payload.UserMetadata, "name"),
		Email: payload.Email,
	}, true
}

func bearerToken(value string) (string, bool) {
	parts := strings.Fields(value)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userKey).(User)
	if !ok || user.ID == "" {
		return User{}, false
	}
	return user, true
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func stringFromMap(values map[string]any, key string) string {
	if values == nil {
		return ""
	}
	value, _ := values[key].(string)
	return value
}
