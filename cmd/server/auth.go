package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/internal/config"
)

var (
	errAuthRequired = errors.New("authentication required: send AUTH JWT <token>")
	errTokenExpired = errors.New("token expired: authenticate again")
)

// ConnectionState tracks per-connection authentication state.
type ConnectionState struct {
	sessionID     string
	identity      *core.Identity
	authenticated bool
	tokenExpiry   time.Time
}

// IsAuthenticated returns true if the connection holds an unexpired token.
func (cs *ConnectionState) IsAuthenticated() bool {
	if !cs.authenticated {
		return false
	}
	return cs.tokenExpiry.IsZero() || time.Now().Before(cs.tokenExpiry)
}

// Identity returns the connection's identity, or nil if not authenticated.
func (cs *ConnectionState) Identity() *core.Identity {
	return cs.identity
}

type authResult struct {
	identity  core.Identity
	expiresAt time.Time
	err       error
}

// validateJWT checks an HMAC-signed token against cfg and extracts the
// identity claims.
func validateJWT(cfg config.AuthConfig, tokenString string) authResult {
	if cfg.JWTSecret == "" {
		return authResult{err: errors.New("authentication not configured")}
	}

	nameClaim := cfg.NameClaim
	if nameClaim == "" {
		nameClaim = config.DefaultNameClaim
	}
	emailClaim := cfg.EmailClaim
	if emailClaim == "" {
		emailClaim = config.DefaultEmailClaim
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return authResult{err: fmt.Errorf("invalid token: %w", err)}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return authResult{err: errors.New("invalid token claims")}
	}

	if cfg.Issuer != "" {
		issuer, _ := claims.GetIssuer()
		if issuer != cfg.Issuer {
			return authResult{err: fmt.Errorf("invalid issuer: expected %s, got %s", cfg.Issuer, issuer)}
		}
	}

	if cfg.Audience != "" {
		audiences, _ := claims.GetAudience()
		if !slices.Contains(audiences, cfg.Audience) {
			return authResult{err: fmt.Errorf("invalid audience: expected %s", cfg.Audience)}
		}
	}

	name, _ := claims[nameClaim].(string)
	email, _ := claims[emailClaim].(string)
	if name == "" && email == "" {
		return authResult{err: fmt.Errorf("token missing identity claims (%s or %s)", nameClaim, emailClaim)}
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return authResult{
		identity:  core.Identity{Name: name, Email: email},
		expiresAt: expiresAt,
	}
}

// parseAuthCommand parses "AUTH JWT <token>".
func parseAuthCommand(line string) (authType, token string, err error) {
	line = strings.TrimSpace(line)
	if !isAuthCommand(line) {
		return "", "", errors.New("not an AUTH command")
	}

	parts := strings.Fields(line)
	if len(parts) != 3 {
		return "", "", errors.New("invalid AUTH command: expected AUTH <type> <credentials>")
	}

	authType = strings.ToUpper(parts[1])
	if authType != "JWT" {
		return "", "", fmt.Errorf("unsupported auth type: %s", authType)
	}
	return authType, parts[2], nil
}

func isAuthCommand(line string) bool {
	return strings.HasPrefix(strings.ToUpper(line), "AUTH ")
}

// handleAuth processes an AUTH command, updating state on success.
func (s *Server) handleAuth(line string, state *ConnectionState) Response {
	_, token, err := parseAuthCommand(line)
	if err != nil {
		return Response{Success: false, Type: "auth", Error: err.Error()}
	}

	result := validateJWT(s.auth, token)
	if result.err != nil {
		s.logger.Warn("authentication failed", "session", state.sessionID, "error", result.err)
		return Response{Success: false, Type: "auth", Error: result.err.Error()}
	}

	state.identity = &result.identity
	state.authenticated = true
	state.tokenExpiry = result.expiresAt
	s.logger.Info("client authenticated", "session", state.sessionID, "identity", result.identity.String())

	ar := AuthResponse{
		Authenticated: true,
		Identity:      result.identity.String(),
	}
	if !result.expiresAt.IsZero() {
		ar.ExpiresIn = int(time.Until(result.expiresAt).Seconds())
	}

	data, _ := json.Marshal(ar)
	return Response{Success: true, Type: "auth", Result: data}
}
