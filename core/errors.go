package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput        = "SOAP_BAD_INPUT"
	ErrorEncodingFailed  = "SOAP_ENCODING_FAILED"
	ErrorTransportFailed = "SOAP_TRANSPORT_FAILED"
	ErrorParseFailed     = "SOAP_PARSE_FAILED"
	ErrorFault           = "SOAP_FAULT"
	ErrorPollExhausted   = "SOAP_POLL_EXHAUSTED"
	ErrorPollTimedOut    = "SOAP_POLL_TIMED_OUT"
	ErrorPollCanceled    = "SOAP_POLL_CANCELED"
	ErrorCallNotFound    = "SOAP_CALL_NOT_FOUND"
	ErrorInternal        = "SOAP_INTERNAL_ERROR"
)

// Stages reported in error metadata and the call journal.
const (
	StageValidate  = "validate"
	StageEncode    = "encode"
	StageTransport = "transport"
	StageParse     = "parse"
	StageFault     = "fault"
	StageAccept    = "accept"
	StagePoll      = "poll"
)

func soapErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "must not"):
		return newSOAPError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput, nil)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func newSOAPError(message string, category goerrors.Category, textCode string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return ensureErrorEnvelope(err)
}

func wrapSOAPError(source error, category goerrors.Category, textCode string, message string, metadata map[string]any) *goerrors.Error {
	if source == nil {
		return newSOAPError(message, category, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return ensureErrorEnvelope(err)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Code == 0 {
		err.Code = textCodeHTTPStatus(err.TextCode, err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryExternal:
		return ErrorTransportFailed
	case goerrors.CategoryNotFound:
		return ErrorCallNotFound
	default:
		return ErrorInternal
	}
}

func textCodeHTTPStatus(textCode string, category goerrors.Category) int {
	switch textCode {
	case ErrorBadInput, ErrorEncodingFailed:
		return http.StatusBadRequest
	case ErrorTransportFailed, ErrorParseFailed, ErrorFault:
		return http.StatusBadGateway
	case ErrorPollExhausted:
		return http.StatusConflict
	case ErrorPollTimedOut:
		return http.StatusGatewayTimeout
	case ErrorPollCanceled:
		return 499
	case ErrorCallNotFound:
		return http.StatusNotFound
	}
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorTextCode returns the go-errors text code carried by err, if any.
func ErrorTextCode(err error) string {
	var richErr *goerrors.Error
	if err == nil || !goerrors.As(err, &richErr) {
		return ""
	}
	return richErr.TextCode
}

// ErrorStage returns the stage recorded in the error metadata, if any.
func ErrorStage(err error) string {
	var richErr *goerrors.Error
	if err == nil || !goerrors.As(err, &richErr) || richErr.Metadata == nil {
		return ""
	}
	stage, _ := richErr.Metadata["stage"].(string)
	return stage
}

func IsBadInput(err error) bool       { return ErrorTextCode(err) == ErrorBadInput }
func IsEncodingError(err error) bool  { return ErrorTextCode(err) == ErrorEncodingFailed }
func IsTransportError(err error) bool { return ErrorTextCode(err) == ErrorTransportFailed }
func IsParseError(err error) bool     { return ErrorTextCode(err) == ErrorParseFailed }
func IsFaultError(err error) bool     { return ErrorTextCode(err) == ErrorFault }
func IsPollExhausted(err error) bool  { return ErrorTextCode(err) == ErrorPollExhausted }
func IsPollTimedOut(err error) bool   { return ErrorTextCode(err) == ErrorPollTimedOut }
func IsPollCanceled(err error) bool   { return ErrorTextCode(err) == ErrorPollCanceled }
func IsCallNotFound(err error) bool   { return ErrorTextCode(err) == ErrorCallNotFound }
