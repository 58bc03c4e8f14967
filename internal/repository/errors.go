// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios. ErrSettingsNotFound means the settings row has never been
// written, while ErrConflict signals that a write lost a race with
// another client and could not be resolved by retrying.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrSettingsNotFound is returned by SettingsRepo.Get before the first
// settings write.  Callers treat it as "display off".
var ErrSettingsNotFound = errors.New("settings not found")

// ErrConflict is returned when a scan could not be applied because
// another client changed the same token concurrently, even after one
// retry.
var ErrConflict = errors.New("conflict")

// MySQL server error numbers that mean "another transaction got there
// first" and are worth one retry.
const (
	errDupEntry = 1062
	errDeadlock = 1213
)

// isRetryable reports whether err is a duplicate-key or deadlock error
// from the server.
func isRetryable(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == errDupEntry || me.Number == errDeadlock
}
