package forum

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/rookery-social/rookery/models"
	"github.com/rookery-social/rookery/perms"
)

const tokenLifetime = 7 * 24 * time.Hour

// issueToken mints an HS256 bearer token whose subject is the user id.
func (s *Server) issueToken(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.jwtSigningKey)
}

// resolveIdentity extracts and verifies the bearer credential. Every
// failure mode (missing header, malformed token, bad signature, expiry)
// degrades to ok=false; it never errors out to the handler.
func (s *Server) resolveIdentity(c echo.Context) (uint, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return 0, false
	}
	raw := strings.TrimSpace(header[len("Bearer "):])

	tok, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSigningKey, nil
	})
	if err != nil || !tok.Valid {
		return 0, false
	}

	claims, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return 0, false
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(uid), true
}

var errAuthRequired = echo.NewHTTPError(http.StatusUnauthorized, "authentication required")

// requireAuth resolves the caller or fails with 401.
func (s *Server) requireAuth(c echo.Context) (uint, error) {
	uid, ok := s.resolveIdentity(c)
	if !ok {
		return 0, errAuthRequired
	}
	return uid, nil
}

// requirePermission resolves the caller, aggregates their permissions, and
// applies the capability check before the handler touches any row. An
// identity that no longer maps to an account is unauthenticated (401), not
// an empty permission set (403); the two must never be conflated.
func (s *Server) requirePermission(c echo.Context, allowed func(*models.PermissionSet) bool) (uint, *models.PermissionSet, error) {
	uid, err := s.requireAuth(c)
	if err != nil {
		return 0, nil, err
	}

	ps, err := perms.Aggregate(c.Request().Context(), s.db, uid)
	if errors.Is(err, perms.ErrNoSuchUser) {
		return 0, nil, errAuthRequired
	}
	if err != nil {
		s.log.Error("permission aggregation failed", "user", uid, "err", err)
		return 0, nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if !allowed(ps) {
		return 0, nil, echo.NewHTTPError(http.StatusForbidden, "permission denied")
	}
	return uid, ps, nil
}

func (s *Server) requireModerator(c echo.Context) (uint, error) {
	uid, _, err := s.requirePermission(c, func(ps *models.PermissionSet) bool {
		return ps.IsModerator()
	})
	return uid, err
}
