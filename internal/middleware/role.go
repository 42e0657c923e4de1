package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/policy"
)

// RequireRole admits only authenticated callers holding one of roles. It
// must run after JWTAuth or OptionalAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := Subject(c)
			if !s.Authenticated() {
				return apperr.PermissionDenied("Authentication credentials were not provided.").WithCode(policy.CodeNotAuthenticated)
			}
			if !allowed[s.Role] {
				return apperr.PermissionDenied("")
			}
			return next(c)
		}
	}
}
