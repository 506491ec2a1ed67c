package domain

import (
	"errors"
)

var (
	// ErrCardNotFound signals that no card has the requested name.
	ErrCardNotFound = errors.New("card not found")
	// ErrAborted signals a search or load cancelled before completion.
	ErrAborted = errors.New("aborted")
	// ErrNotLoaded signals that the catalog has not completed its first load.
	ErrNotLoaded = errors.New("catalog not loaded")
	// ErrInvalidRequest signals invalid search parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownFunction signals a worker request with an unsupported function tag.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrInvalidCard signals a card record that violates catalog invariants.
	ErrInvalidCard = errors.New("invalid card")
	// ErrFeedUnavailable signals that the remote catalog feed could not be reached.
	ErrFeedUnavailable = errors.New("feed unavailable")
)
