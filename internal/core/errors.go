// Package core provides the shared domain primitives of the Omen analysis
// engine: language detection, source file loading, content sourcing, file-set
// discovery, and the per-run analysis context that every analyzer consumes.
package core

import (
	"errors"
	"fmt"
)

// Kind discriminates the category of an Error, mirroring the tagged error
// sum every analyzer in the pipeline propagates instead of panicking.
type Kind int

// Error kind constants.
const (
	KindIO Kind = iota
	KindFileNotFound
	KindUnsupportedLanguage
	KindParse
	KindGit
	KindConfig
	KindSerialization
	KindAnalysis
	KindInvalidArgument
	KindRemote
	KindMCP
	KindThresholdViolation
	KindTemplate
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindFileNotFound:
		return "file_not_found"
	case KindUnsupportedLanguage:
		return "unsupported_language"
	case KindParse:
		return "parse"
	case KindGit:
		return "git"
	case KindConfig:
		return "config"
	case KindSerialization:
		return "serialization"
	case KindAnalysis:
		return "analysis"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindRemote:
		return "remote"
	case KindMCP:
		return "mcp"
	case KindThresholdViolation:
		return "threshold_violation"
	case KindTemplate:
		return "template"
	default:
		return "unknown"
	}
}

// Error is Omen's tagged error type. It replaces the original implementation's
// enum of error variants with a single struct discriminated by Kind, matching
// errors.Is/errors.As conventions via Unwrap and Is.
type Error struct {
	Kind    Kind
	Path    string
	Message string
	Score   float64 // only meaningful for KindThresholdViolation
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Message != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, &core.Error{Kind: core.KindGit}).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}

	return e.Kind == other.Kind
}

// Sentinel constructors matching original_source's Error::analysis()/git()/
// config()/threshold_violation() helpers.

func IOError(path string, err error) *Error {
	return &Error{Kind: KindIO, Path: path, Err: err}
}

func FileNotFoundError(path string) *Error {
	return &Error{Kind: KindFileNotFound, Path: path}
}

func UnsupportedLanguageError(path string) *Error {
	return &Error{Kind: KindUnsupportedLanguage, Path: path}
}

func ParseError(path, message string) *Error {
	return &Error{Kind: KindParse, Path: path, Message: message}
}

func GitError(message string) *Error {
	return &Error{Kind: KindGit, Message: message}
}

func ConfigError(message string) *Error {
	return &Error{Kind: KindConfig, Message: message}
}

func AnalysisError(message string) *Error {
	return &Error{Kind: KindAnalysis, Message: message}
}

func InvalidArgumentError(message string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: message}
}

func ThresholdViolationError(message string, score float64) *Error {
	return &Error{Kind: KindThresholdViolation, Message: message, Score: score}
}

// IsGit reports whether err is (or wraps) a Git-kind Error.
func IsGit(err error) bool {
	var e *Error

	return errors.As(err, &e) && e.Kind == KindGit
}
