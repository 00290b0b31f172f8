package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes engine failures.
type ErrorCode string

const (
	// ErrCodeBuild indicates the engine rejected the document during build.
	ErrCodeBuild ErrorCode = "EngineBuildError"

	// ErrCodeDeploy indicates the engine rejected the document during deploy.
	ErrCodeDeploy ErrorCode = "EngineDeployError"
)

// Error is an engine failure with the engine's own messages, unmodified.
type Error struct {
	// Code identifies the failed stage.
	Code ErrorCode

	// Messages are the engine diagnostics in the order reported.
	Messages []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch len(e.Messages) {
	case 0:
		return string(e.Code)
	case 1:
		return fmt.Sprintf("%s: %s", e.Code, e.Messages[0])
	}
	return fmt.Sprintf("%s:\n  %s", e.Code, strings.Join(e.Messages, "\n  "))
}

// IsBuildError returns true if err is an engine build failure.
// Uses errors.As to handle wrapped errors.
func IsBuildError(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeBuild
	}
	return false
}

// IsDeployError returns true if err is an engine deploy failure.
// Uses errors.As to handle wrapped errors.
func IsDeployError(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeDeploy
	}
	return false
}

// Messages returns the engine diagnostics carried by err, or err's text
// when it is not an engine error.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	var ee *Error
	if errors.As(err, &ee) && len(ee.Messages) > 0 {
		return ee.Messages
	}
	return []string{err.Error()}
}
