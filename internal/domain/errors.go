package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrEmailNotFound is returned when a stored email cannot be found
	ErrEmailNotFound = errors.New("email not found")

	// ErrInvalidParameters is returned when a job's parameters JSON is malformed
	ErrInvalidParameters = errors.New("invalid job parameters")

	// ErrNoCategories is returned when a DELETE job carries an empty category set
	ErrNoCategories = errors.New("no categories specified for deletion")

	// ErrUnknownJobType is returned when a claimed job has a job_type the
	// worker has no handler for
	ErrUnknownJobType = errors.New("unknown job type")
)
