package model

import "github.com/pkg/errors"

var (
	ErrInvalidEvent    = errors.New("invalid event")
	ErrInvalidScore    = errors.New("invalid score")
	ErrMeasureNotFound = errors.New("measure not found")
	ErrNoScore         = errors.New("no score loaded")
)
