// Package models holds the request and response payloads of the HTTP API
// together with shared constants such as the storage type identifiers.
package models

import "github.com/patric-chuzhbe/wikisubs/internal/user"

type SignInRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type SignInResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    user.Profile `json:"user"`
}

type VerifyResponse struct {
	Success bool         `json:"success"`
	User    user.Profile `json:"user"`
}

// UpdateSubscriptionsRequest uses a pointer so a missing or null list is told apart from an empty one.
type UpdateSubscriptionsRequest struct {
	Subscriptions *[]string `json:"subscriptions" validate:"required"`
}

type SubscriptionsResponse struct {
	Success       bool     `json:"success"`
	Subscriptions []string `json:"subscriptions"`
}

type SubscriptionOptionItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type SubscriptionOptionsResponse struct {
	Success bool                     `json:"success"`
	Options []SubscriptionOptionItem `json:"options"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeSqlite
	StorageTypeRedis
	StorageTypeFile
	StorageTypeMemory
)

// Messages returned in ErrorResponse.Error.
const (
	MessageInvalidEmail         = "Invalid email address"
	MessageNoToken              = "No token provided"
	MessageInvalidToken         = "Invalid token"
	MessageUserNotFound         = "User not found"
	MessageInvalidSubscriptions = "Invalid subscriptions data"
	MessageInternal             = "Internal server error"
)
