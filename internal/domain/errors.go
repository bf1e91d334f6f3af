package domain

import "errors"

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized indicates a wrong group or post password
	ErrUnauthorized = errors.New("invalid password")
	// ErrQuotaExceeded indicates the AI usage quota for the actor is exhausted
	ErrQuotaExceeded = errors.New("usage limit exceeded")
	// ErrAINotConfigured indicates the upstream generative service has no credentials
	ErrAINotConfigured = errors.New("AI service not configured")
	// ErrUpstream indicates the upstream generative service failed
	ErrUpstream = errors.New("AI service request failed")
)
