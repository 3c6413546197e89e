package domain

import "errors"

var (
	// ErrValidation marks malformed client input. Nothing is mutated when it is returned.
	ErrValidation = errors.New("validation failed")

	// ErrNoWorkersAvailable is returned when a task is requested against an empty registry.
	ErrNoWorkersAvailable = errors.New("no workers available, configure WORKERS or register a worker first")

	// ErrInvalidArgument is returned by the planner for an empty worker list or negative total.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadySeeded is returned when the startup bulk load is attempted a second time.
	ErrAlreadySeeded = errors.New("worker registry already seeded")
)
