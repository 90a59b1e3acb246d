package domain

import "errors"

var (
	// ErrNotFound indicates that a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates that a caller-provided value violates
	// a precondition.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDeploymentInProgress is returned when another run holds the
	// catalog lease.
	ErrDeploymentInProgress = errors.New("deployment already in progress")

	// ErrPlanChanged is returned when the remote catalog no longer yields
	// the diff the operator confirmed.
	ErrPlanChanged = errors.New("remote catalog changed since preview")
)
