package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeAuthentication ErrorType = "AUTHENTICATION_ERROR"
	ErrorTypeAuthorization  ErrorType = "AUTHORIZATION_ERROR"
	ErrorTypeValidation     ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound       ErrorType = "NOT_FOUND"
	ErrorTypeInvalidState   ErrorType = "INVALID_STATE"
	ErrorTypeStorage        ErrorType = "STORAGE_ERROR"
	ErrorTypeTransport      ErrorType = "TRANSPORT_ERROR"
	ErrorTypeGeneration     ErrorType = "GENERATION_ERROR"
	ErrorTypeInternal       ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingField        ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidOption       ErrorCode = "INVALID_OPTION"
	ErrCodeInvalidTechnician   ErrorCode = "INVALID_TECHNICIAN"
	ErrCodeIncompleteChecklist ErrorCode = "INCOMPLETE_CHECKLIST"
	ErrCodeInvalidAnswer       ErrorCode = "INVALID_CHECKLIST_ANSWER"
	ErrCodeEmptyTemplate       ErrorCode = "EMPTY_TEMPLATE"
	ErrCodeInvalidAsset        ErrorCode = "INVALID_ASSET"
	ErrCodeInvalidDateRange    ErrorCode = "INVALID_DATE_RANGE"
	ErrCodeEmailTaken          ErrorCode = "EMAIL_TAKEN"

	ErrCodeWorkOrderNotFound ErrorCode = "WORK_ORDER_NOT_FOUND"
	ErrCodeUserNotFound      ErrorCode = "USER_NOT_FOUND"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeNotAssignee       ErrorCode = "NOT_ASSIGNEE"
	ErrCodeRoleNotAllowed    ErrorCode = "ROLE_NOT_ALLOWED"

	ErrCodeMissingSession     ErrorCode = "MISSING_SESSION"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeTransportFailed    ErrorCode = "TRANSPORT_FAILED"
	ErrCodeLayoutUnavailable  ErrorCode = "LAYOUT_UNAVAILABLE"
	ErrCodeRenderFailed       ErrorCode = "RENDER_FAILED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func newAppError(t ErrorType, code ErrorCode, message string, status int) *AppError {
	return &AppError{Type: t, Code: code, Message: message, StatusCode: status}
}

func NewAuthenticationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeAuthentication, code, message, http.StatusUnauthorized)
}

func NewAuthorizationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeAuthorization, code, message, http.StatusForbidden)
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, code, message, http.StatusBadRequest)
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationError("Validation failed", ErrCodeValidationFailed).WithDetails(ValidationErrors{
		Errors: []ValidationError{{Field: field, Message: message, Code: string(code)}},
	})
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeNotFound, code, message, http.StatusNotFound)
}

func NewInvalidStateError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeInvalidState, code, message, http.StatusConflict)
}

// NewStorageError marks a backing store (database, object store, cache) as unreachable
// or as having rejected the request.
func NewStorageError(message string, cause error) *AppError {
	return newAppError(ErrorTypeStorage, ErrCodeStorageUnavailable, message, http.StatusServiceUnavailable).WithCause(cause)
}

func NewTransportError(message string, cause error) *AppError {
	return newAppError(ErrorTypeTransport, ErrCodeTransportFailed, message, http.StatusBadGateway).WithCause(cause)
}

func NewGenerationError(message string, code ErrorCode, cause error) *AppError {
	return newAppError(ErrorTypeGeneration, code, message, http.StatusInternalServerError).WithCause(cause)
}

func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, "INTERNAL_ERROR", message, http.StatusInternalServerError).WithCause(cause)
}

// Sentinel-style constructors. They return fresh values so callers can attach causes.
func ErrMissingSession() *AppError {
	return NewAuthenticationError("authentication required", ErrCodeMissingSession)
}

func ErrInvalidCredentials() *AppError {
	return NewAuthenticationError("invalid email or password", ErrCodeInvalidCredentials)
}

func ErrUserInactive() *AppError {
	return NewAuthenticationError("user account is inactive", ErrCodeUserInactive)
}

func ErrInvalidToken() *AppError {
	return NewAuthenticationError("invalid token", ErrCodeInvalidToken)
}

func ErrTokenExpired() *AppError {
	return NewAuthenticationError("token has expired", ErrCodeTokenExpired)
}

func ErrWorkOrderNotFound() *AppError {
	return NewNotFoundError("work order not found", ErrCodeWorkOrderNotFound)
}

func ErrUserNotFound() *AppError {
	return NewNotFoundError("user not found", ErrCodeUserNotFound)
}

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given type anywhere in its chain.
func IsType(err error, t ErrorType) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Type == t
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
