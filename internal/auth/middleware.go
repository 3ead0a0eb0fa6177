package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/patric-chuzhbe/wikisubs/internal/logger"
	"github.com/patric-chuzhbe/wikisubs/internal/models"
)

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserEmailKey is the context key under which AuthenticateUser stores the verified email.
const UserEmailKey ContextKey = "userEmail"

const bearerScheme = "bearer"

// UserEmailFromContext returns the email put into ctx by AuthenticateUser.
func UserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailKey).(string)

	return email, ok && email != ""
}

// AuthenticateUser is an HTTP middleware that requires an "Authorization: Bearer <token>" header.
// Requests without a usable token are answered with 401 and never reach h.
func (i *Issuer) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		header := strings.TrimSpace(request.Header.Get("Authorization"))
		if header == "" {
			writeUnauthorized(response, models.MessageNoToken)
			return
		}

		scheme, tokenString, found := strings.Cut(header, " ")
		if !strings.EqualFold(scheme, bearerScheme) {
			writeUnauthorized(response, models.MessageInvalidToken)
			return
		}
		tokenString = strings.TrimSpace(tokenString)
		if !found || tokenString == "" {
			writeUnauthorized(response, models.MessageNoToken)
			return
		}

		email, err := i.Verify(tokenString)
		if err != nil {
			logger.Log.Debugw("Rejected credential", "error", err)
			writeUnauthorized(response, models.MessageInvalidToken)
			return
		}

		ctx := context.WithValue(request.Context(), UserEmailKey, email)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

func writeUnauthorized(response http.ResponseWriter, message string) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(response).Encode(models.ErrorResponse{Success: false, Error: message}); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", err)
	}
}
