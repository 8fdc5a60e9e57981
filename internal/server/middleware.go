package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/insurance/screening-service/internal/pkg/logger"
)

const (
	tenantContextKey = "tenant_id"
	actorContextKey  = "actor"
)

// TenantAuth validates the Bearer token and binds the tenant claim, plus the
// acting subject, to the request. Every data route is tenant scoped; a
// request without a valid tenant never reaches a handler.
func TenantAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			tenantID, subject, err := parseClaims(token, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(tenantContextKey, tenantID)
			c.Set(actorContextKey, subject)
			ctx := context.WithValue(c.Request().Context(), logger.TenantIDKey, tenantID.String())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func parseClaims(token, secret string) (uuid.UUID, string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", fmt.Errorf("unexpected claims type")
	}
	raw, ok := claims[tenantContextKey].(string)
	if !ok {
		return uuid.Nil, "", fmt.Errorf("tenant_id claim missing")
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", err
	}

	// Subject is optional; assessments created by machine tokens carry an
	// empty creator.
	subject, _ := claims["sub"].(string)
	return tenantID, subject, nil
}

// tenantID extracts the tenant bound by TenantAuth.
func tenantID(c echo.Context) (uuid.UUID, error) {
	id, ok := c.Get(tenantContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "no tenant in request")
	}
	return id, nil
}

// actor extracts the acting subject bound by TenantAuth.
func actor(c echo.Context) string {
	subject, _ := c.Get(actorContextKey).(string)
	return subject
}
