package repository

import (
	"errors"

	"github.com/okian/lomba/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	// ErrNotFound is model.ErrNotFound so domain code can match it
	// without importing this package.
	ErrNotFound     = model.ErrNotFound
	ErrInvalidID    = errors.New("id is required")
	ErrStoreClosed  = errors.New("store closed")
	ErrInvalidScore = errors.New("score key is incomplete")
)
