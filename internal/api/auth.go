package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"tranzac/internal/config"
	"tranzac/internal/domain"
	"tranzac/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	loginAttemptLimit  = 5
	loginAttemptWindow = time.Minute
)

type ctxKey int

const ctxKeyActor ctxKey = iota

// Claims is the JWT payload issued at login. ID doubles as the session
// key so a token can be revoked before it expires.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Auth issues JWTs for configured admin accounts and guards the
// authenticated routes. Sessions live server-side so logout is immediate.
type Auth struct {
	secret   []byte
	ttl      time.Duration
	admins   map[string]config.AdminCredential
	sessions domain.SessionRepository
	logger   zerolog.Logger
}

func NewAuth(cfg config.APIConfig, sessions domain.SessionRepository, logger *zerolog.Logger) *Auth {
	admins := make(map[string]config.AdminCredential, len(cfg.Admins))
	for _, a := range cfg.Admins {
		admins[strings.ToLower(strings.TrimSpace(a.Email))] = a
	}

	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "auth").Logger()
	}

	return &Auth{
		secret:   []byte(cfg.JWTSecret),
		ttl:      time.Duration(cfg.SessionTTL) * time.Second,
		admins:   admins,
		sessions: sessions,
		logger:   base,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (a *Auth) handleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	allowed, err := a.sessions.CheckRateLimit(r.Context(), "login:"+email, loginAttemptLimit, loginAttemptWindow)
	if err != nil {
		a.logger.Error().Err(err).Msg("Login rate limit check failed")
	} else if !allowed {
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	admin, ok := a.admins[email]
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(body.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	now := time.Now().UTC()
	expiresAt := now.Add(a.ttl)
	claims := &Claims{
		Email: admin.Email,
		Name:  admin.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   admin.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to sign token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	session := &models.Session{
		Token:     claims.ID,
		UserID:    admin.Email,
		Email:     admin.Email,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := a.sessions.SetSession(r.Context(), session, a.ttl); err != nil {
		a.logger.Error().Err(err).Msg("Failed to store session")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.logger.Info().Str("email", admin.Email).Msg("Admin logged in")
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     signed,
		Email:     admin.Email,
		Name:      admin.Name,
		ExpiresAt: expiresAt,
	})
}

func (a *Auth) handleLogout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, err := a.validate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := a.sessions.DeleteSession(r.Context(), claims.ID); err != nil {
		a.logger.Error().Err(err).Msg("Failed to delete session")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Authenticate wraps a handler with bearer-token validation and puts the
// acting admin's email on the request context.
func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		claims, err := a.validate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		session, err := a.sessions.GetSession(r.Context(), claims.ID)
		if err != nil || session == nil || session.Expired(time.Now()) {
			writeError(w, http.StatusUnauthorized, "session expired or revoked")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyActor, claims.Email)
		next(w, r.WithContext(ctx), ps)
	}
}

var errMissingToken = errors.New("missing or invalid authorization header")

func (a *Auth) validate(r *http.Request) (*Claims, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, errMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// actor extracts the authenticated admin email, falling back to "system"
// for unauthenticated contexts such as tests.
func actor(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyActor).(string); ok && v != "" {
		return v
	}
	return "system"
}
