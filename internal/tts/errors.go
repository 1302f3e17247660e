package tts

import (
	"context"
	"errors"
	"fmt"
)

// Common narration errors
var (
	// ErrNoEngineConfigured indicates no TTS engine has been selected
	ErrNoEngineConfigured = errors.New("no TTS engine configured - set drill.engine to piper, gtts or mock")

	// ErrEngineNotAvailable indicates the selected engine is not available
	ErrEngineNotAvailable = errors.New("selected TTS engine is not available")

	// ErrInvalidEngine indicates an unknown engine was specified
	ErrInvalidEngine = errors.New("invalid TTS engine specified")

	// ErrSynthesisFailed indicates synthesis operation failed
	ErrSynthesisFailed = errors.New("text synthesis failed")

	// ErrAudioDeviceUnavailable indicates audio device cannot be accessed
	ErrAudioDeviceUnavailable = errors.New("audio device unavailable")

	// ErrEmptyText indicates there is nothing left to speak after cleaning
	ErrEmptyText = errors.New("nothing to speak")

	// ErrTextTooLong indicates the text exceeds the engine limit
	ErrTextTooLong = errors.New("text too long for engine")

	// ErrCanceled indicates an utterance was canceled before it finished
	ErrCanceled = errors.New("utterance canceled")
)

// TTSError represents a TTS-specific error with additional context
type TTSError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *TTSError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TTSError) Unwrap() error {
	return e.Cause
}

// ErrorCode identifies specific error types
type ErrorCode string

const (
	// Engine errors
	ErrorCodeEngineFailure     ErrorCode = "ENGINE_FAILURE"
	ErrorCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorCodeEngineTimeout     ErrorCode = "ENGINE_TIMEOUT"

	// Audio errors
	ErrorCodeAudioFailure ErrorCode = "AUDIO_FAILURE"
	ErrorCodeAudioDevice  ErrorCode = "AUDIO_DEVICE"
	ErrorCodeAudioFormat  ErrorCode = "AUDIO_FORMAT"

	// Input errors
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorCodeTextTooLong  ErrorCode = "TEXT_TOO_LONG"

	// System errors
	ErrorCodeCanceled ErrorCode = "CANCELED"
)

// NewTTSError creates a new TTS error with context
func NewTTSError(code ErrorCode, message string, cause error) *TTSError {
	return &TTSError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context to the error
func (e *TTSError) WithContext(key string, value interface{}) *TTSError {
	e.Context[key] = value
	return e
}

// IsFatal returns true if the error should stop narration altogether
func (e *TTSError) IsFatal() bool {
	switch e.Code {
	case ErrorCodeEngineUnavailable,
		ErrorCodeAudioDevice:
		return true
	default:
		return false
	}
}

// IsFatal reports whether err means no later utterance can succeed either,
// such as a lost audio device or a missing engine.
func IsFatal(err error) bool {
	var ttsErr *TTSError
	if errors.As(err, &ttsErr) && ttsErr.IsFatal() {
		return true
	}
	return errors.Is(err, ErrAudioDeviceUnavailable) || errors.Is(err, ErrEngineNotAvailable)
}

// IsCanceled reports whether err stems from a canceled utterance or context.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

func canceledError(cause error) *TTSError {
	if cause == nil || errors.Is(cause, ErrCanceled) {
		return NewTTSError(ErrorCodeCanceled, "utterance canceled", ErrCanceled)
	}
	return NewTTSError(ErrorCodeCanceled, "utterance canceled", fmt.Errorf("%w: %w", ErrCanceled, cause))
}
