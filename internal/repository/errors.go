// Package repository implements data access against MySQL.  Sentinel
// errors declared here let higher layers distinguish failure scenarios
// with errors.Is: the progress service retries on ErrConcurrencyConflict,
// consumers drop events referencing unknown users or games, and the auth
// handler maps ErrEmailExists to HTTP 409.
package repository

import "errors"

// ErrConcurrencyConflict is returned by MissionRepo.Save when the row's
// stored version no longer matches the expected version, meaning a
// concurrent writer persisted first.  Callers recover by reloading and
// retrying the full compute-update cycle.
var ErrConcurrencyConflict = errors.New("mission version conflict")

// ErrMissionNotFound is returned when no mission row exists for the
// requested (user, mission type) pair.
var ErrMissionNotFound = errors.New("mission not found")

// ErrUserNotFound is returned when a user id does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when registering with an email that is
// already taken.
var ErrEmailExists = errors.New("email already exists")
