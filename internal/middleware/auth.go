package middleware

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/policy"
	"github.com/mehdibennis/cinema/internal/utils"
)

const subjectKey = "subject"

// OptionalAuth resolves the caller from a Bearer access token. Requests
// without an Authorization header continue as anonymous; a header carrying
// an invalid or expired token is rejected.
func OptionalAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				c.Set(subjectKey, policy.Anonymous())
				return next(c)
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return apperr.Unauthorized("Malformed Authorization header.").WithCode("INVALID_TOKEN")
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return apperr.Unauthorized("Invalid or expired token.").WithCode("INVALID_TOKEN")
			}
			uid, err := claims.UserID()
			if err != nil {
				return apperr.Unauthorized("Invalid token subject.").WithCode("INVALID_TOKEN")
			}
			role, ok := model.ParseRole(claims.Role)
			if !ok {
				return apperr.Unauthorized("Invalid token role.").WithCode("INVALID_TOKEN")
			}
			c.Set(subjectKey, policy.Subject{UserID: uid, Role: role})
			return next(c)
		}
	}
}

// JWTAuth is OptionalAuth that also refuses anonymous callers.
func JWTAuth(secret string) echo.MiddlewareFunc {
	optional, required := OptionalAuth(secret), RequireAuth()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return optional(required(next))
	}
}

// RequireAuth refuses anonymous callers on routes already behind OptionalAuth.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !Subject(c).Authenticated() {
				return apperr.PermissionDenied("Authentication credentials were not provided.").WithCode(policy.CodeNotAuthenticated)
			}
			return next(c)
		}
	}
}

// Subject returns the caller resolved by OptionalAuth or JWTAuth, or the
// anonymous subject when neither ran.
func Subject(c echo.Context) policy.Subject {
	if s, ok := c.Get(subjectKey).(policy.Subject); ok {
		return s
	}
	return policy.Anonymous()
}

// identity is the cache and rate-limit key component for the caller.
func identity(c echo.Context) string {
	s := Subject(c)
	if !s.Authenticated() {
		return "anon"
	}
	return "u" + strconv.FormatUint(s.UserID, 10)
}
