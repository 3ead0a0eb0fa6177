// Package router exposes the service over HTTP: the JSON API under /api,
// the /ping health check and the /metrics endpoint.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/wikisubs/internal/auth"
	"github.com/patric-chuzhbe/wikisubs/internal/gzippedhttp"
	"github.com/patric-chuzhbe/wikisubs/internal/logger"
	"github.com/patric-chuzhbe/wikisubs/internal/models"
	"github.com/patric-chuzhbe/wikisubs/internal/service"
	"github.com/patric-chuzhbe/wikisubs/internal/user"
)

type subscriptionService interface {
	SignIn(ctx context.Context, email string) (*service.SignInResult, error)

	GetProfile(ctx context.Context, email string) (*user.User, error)

	GetSubscriptions(ctx context.Context, email string) ([]string, error)

	ReplaceSubscriptions(ctx context.Context, email string, subscriptions []string) ([]string, error)

	ListOptions(ctx context.Context) ([]models.SubscriptionOptionItem, error)

	CountUsers(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
}

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
}

type trustedSubnetGate interface {
	TrustedOnly(h http.Handler) http.Handler
}

var (
	errInvalidSubscriptions = errors.New("invalid subscriptions data")
	errTrailingData         = errors.New("request body holds more than one JSON value")
)

type Router struct {
	service  subscriptionService
	validate *validator.Validate
	metrics  *metrics
}

// New builds the HTTP handler. frontendURL is the only origin allowed by CORS.
func New(
	theService subscriptionService,
	theAuth authenticator,
	ipChecker trustedSubnetGate,
	frontendURL string,
) *chi.Mux {
	myRouter := &Router{
		service:  theService,
		validate: validator.New(),
		metrics:  newMetrics(theService),
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		logger.WithLoggingHTTPMiddleware,
		myRouter.metrics.middleware,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{frontendURL},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		gzippedhttp.DecompressRequest,
		middleware.Compress(5, "application/json", "text/plain"),
	)

	router.Get(`/ping`, myRouter.GetPing)
	router.With(ipChecker.TrustedOnly).Handle(`/metrics`, myRouter.metrics.handler())

	router.Post(`/api/auth/signin`, myRouter.PostApiauthsignin)
	router.With(theAuth.AuthenticateUser).Get(`/api/auth/verify`, myRouter.GetApiauthverify)

	router.Get(`/api/subscriptions/options`, myRouter.GetApisubscriptionsoptions)
	router.With(theAuth.AuthenticateUser).Get(`/api/subscriptions`, myRouter.GetApisubscriptions)
	router.With(theAuth.AuthenticateUser).Put(`/api/subscriptions`, myRouter.PutApisubscriptions)

	return router
}

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", err)
	}
}

func writeError(response http.ResponseWriter, status int, message string) {
	writeJSON(response, status, models.ErrorResponse{Success: false, Error: message})
}

// respondWithError maps service errors onto the API error taxonomy.
// Anything unrecognised is logged and reported as a bare 500.
func respondWithError(response http.ResponseWriter, request *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(response, http.StatusBadRequest, models.MessageInvalidEmail)
	case errors.Is(err, errInvalidSubscriptions):
		writeError(response, http.StatusBadRequest, models.MessageInvalidSubscriptions)
	case errors.Is(err, service.ErrUserNotFound):
		writeError(response, http.StatusNotFound, models.MessageUserNotFound)
	default:
		logger.Log.Errorw(
			"Request failed",
			"uri", request.RequestURI,
			"method", request.Method,
			"request_id", middleware.GetReqID(request.Context()),
			"error", err,
		)
		writeError(response, http.StatusInternalServerError, models.MessageInternal)
	}
}

func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.service.Ping(request.Context()); err != nil {
		logger.Log.Errorw("Storage ping failed", "error", err)
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// decodeJSONBody decodes exactly one JSON value from the request body.
func decodeJSONBody(request *http.Request, dst any) error {
	decoder := json.NewDecoder(request.Body)
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}

	return nil
}

func (router *Router) PostApiauthsignin(response http.ResponseWriter, request *http.Request) {
	var requestDTO models.SignInRequest
	if err := decodeJSONBody(request, &requestDTO); err != nil {
		logger.Log.Debugln("Error calling the `decodeJSONBody()`: ", err)
		respondWithError(response, request, service.ErrInvalidEmail)
		return
	}

	result, err := router.service.SignIn(request.Context(), requestDTO.Email)
	if err != nil {
		respondWithError(response, request, err)
		return
	}
	router.metrics.recordSignIn(result.Created)

	writeJSON(response, http.StatusOK, models.SignInResponse{
		Success: true,
		Token:   result.Token,
		User:    result.User.Profile(),
	})
}

func (router *Router) GetApiauthverify(response http.ResponseWriter, request *http.Request) {
	email, ok := auth.UserEmailFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, models.MessageNoToken)
		return
	}

	usr, err := router.service.GetProfile(request.Context(), email)
	if errors.Is(err, service.ErrUserNotFound) {
		// A valid credential for a user the store no longer knows is an authentication failure here.
		writeError(response, http.StatusUnauthorized, models.MessageUserNotFound)
		return
	}
	if err != nil {
		respondWithError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.VerifyResponse{
		Success: true,
		User:    usr.Profile(),
	})
}

func (router *Router) GetApisubscriptions(response http.ResponseWriter, request *http.Request) {
	email, ok := auth.UserEmailFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, models.MessageNoToken)
		return
	}

	subscriptions, err := router.service.GetSubscriptions(request.Context(), email)
	if err != nil {
		respondWithError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.SubscriptionsResponse{
		Success:       true,
		Subscriptions: subscriptions,
	})
}

func (router *Router) PutApisubscriptions(response http.ResponseWriter, request *http.Request) {
	email, ok := auth.UserEmailFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, models.MessageNoToken)
		return
	}

	var requestDTO models.UpdateSubscriptionsRequest
	if err := decodeJSONBody(request, &requestDTO); err != nil {
		logger.Log.Debugln("Error calling the `decodeJSONBody()`: ", err)
		respondWithError(response, request, errInvalidSubscriptions)
		return
	}
	if err := router.validate.Struct(requestDTO); err != nil {
		logger.Log.Debugln("Error calling the `router.validate.Struct()`: ", err)
		respondWithError(response, request, errInvalidSubscriptions)
		return
	}

	subscriptions, err := router.service.ReplaceSubscriptions(request.Context(), email, *requestDTO.Subscriptions)
	if err != nil {
		respondWithError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.SubscriptionsResponse{
		Success:       true,
		Subscriptions: subscriptions,
	})
}

func (router *Router) GetApisubscriptionsoptions(response http.ResponseWriter, request *http.Request) {
	options, err := router.service.ListOptions(request.Context())
	if err != nil {
		respondWithError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.SubscriptionOptionsResponse{
		Success: true,
		Options: options,
	})
}
