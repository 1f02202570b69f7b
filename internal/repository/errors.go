// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrProfileNotFound indicates that a profile id does not
// exist within the current user's set, while ErrProfileActive signals
// that an operation cannot proceed because it targets the profile
// currently in effect for the session.
package repository

import "errors"

// ErrProfileNotFound is returned when a profile id does not exist or
// belongs to another user. Handlers should translate this into an
// HTTP 404 response; foreign ids are indistinguishable from missing
// ones so ownership is never leaked.
var ErrProfileNotFound = errors.New("profile not found")

// ErrProfileActive is returned when a delete targets the user's
// currently active profile. Handlers should translate this into an
// HTTP 409 response.
var ErrProfileActive = errors.New("profile is active")

// ErrProfileExists is returned when a profile name collides with an
// existing profile of the same user. Handlers should translate this
// into an HTTP 409 response.
var ErrProfileExists = errors.New("profile name already exists")
