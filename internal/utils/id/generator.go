// Package id generates the identifiers SheetGenie hands out and carries them
// through request contexts.
package id

import (
	"strings"

	"github.com/google/uuid"
)

const sessionPrefix = "session-"

func NewSessionID() string { return sessionPrefix + newUUID() }

// NewLogID tags one HTTP request in logs and spans.
func NewLogID() string { return "log-" + newUUID() }

// NewClientID names a live grid connection.
func NewClientID() string { return "ws-" + newUUID() }

// newUUID prefers time-ordered v7 ids so sessions sort by creation.
func newUUID() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v7.String()
}

// IsSessionID reports whether value was produced by NewSessionID.
func IsSessionID(value string) bool {
	body, ok := strings.CutPrefix(strings.TrimSpace(value), sessionPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(body)
	return err == nil
}
