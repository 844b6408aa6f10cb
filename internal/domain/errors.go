package domain

import "errors"

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrInvalidAccountID     = errors.New("invalid account id")
	ErrPageLoadTimeout      = errors.New("page did not load in time")
	ErrEngineNotInitialized = errors.New("browser engine not initialized")
	ErrEngineDisposed       = errors.New("browser engine disposed")
)
