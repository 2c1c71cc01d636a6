package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"slideshow-server/core"
	"time"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const sessionTTL = 24 * time.Hour

// AppClaims represents the custom claims for the JWT.
type AppClaims struct {
	jwt.RegisteredClaims
	Role core.Role `json:"role"`
}

// Authenticator checks passcodes and issues the session tokens the API accepts.
type Authenticator struct {
	jwtSecret []byte
	passcodes []string
}

// New creates an Authenticator. An empty secret is replaced by a random one, so sessions
// do not survive a restart.
func New(secret string, passcodes []string) *Authenticator {
	key := []byte(secret)
	if len(key) == 0 {
		logrus.Warn("JWT_SECRET is not set. Sessions will be invalidated on restart.")
		key = make([]byte, 32)
		rand.Read(key)
	}
	if len(passcodes) == 0 {
		logrus.Warn("No admin passcodes configured. Admin mode is disabled.")
	}
	return &Authenticator{jwtSecret: key, passcodes: passcodes}
}

// CheckPasscode reports whether passcode is one of the accepted admin passcodes.
func (a *Authenticator) CheckPasscode(passcode string) bool {
	ok := false
	for _, accepted := range a.passcodes {
		if subtle.ConstantTimeCompare([]byte(passcode), []byte(accepted)) == 1 {
			ok = true
		}
	}
	return ok
}

func (a *Authenticator) CreateJWT(role core.Role) (string, error) {
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(role),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *Authenticator) ParseJWT(tokenString string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AppClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if _, known := core.ParseRole(string(claims.Role)); !known {
		return nil, fmt.Errorf("invalid role %q", claims.Role)
	}
	return claims, nil
}

type sessionRequest struct {
	Role     string `json:"role"`
	Passcode string `json:"passcode"`
}

type sessionResponse struct {
	Token string    `json:"token"`
	Role  core.Role `json:"role"`
}

// HandleSession starts a guest session, or an admin session when the passcode matches.
func (a *Authenticator) HandleSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid JSON in request body"})
			return
		}

		role, ok := core.ParseRole(req.Role)
		if !ok {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Role must be guest or admin"})
			return
		}
		if role.CanEdit() && !a.CheckPasscode(req.Passcode) {
			logrus.WithField("remote_addr", r.RemoteAddr).Warn("Rejected admin passcode")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Wrong passcode"})
			return
		}

		token, err := a.CreateJWT(role)
		if err != nil {
			logrus.WithError(err).Error("Failed to create JWT")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to create session"})
			return
		}

		logrus.WithField("role", role).Info("Session started")
		render.JSON(w, r, sessionResponse{Token: token, Role: role})
	}
}
