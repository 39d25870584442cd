package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeResetTokenInvalid  ErrorCode = "RESET_TOKEN_INVALID"

	ErrCodeUserNotFound     ErrorCode = "USER_NOT_FOUND"
	ErrCodeEmailExists      ErrorCode = "EMAIL_EXISTS"
	ErrCodeUsernameExists   ErrorCode = "USERNAME_EXISTS"
	ErrCodePasswordMismatch ErrorCode = "PASSWORD_MISMATCH"
	ErrCodeWrongPassword    ErrorCode = "WRONG_PASSWORD"

	ErrCodeRoleNotFound       ErrorCode = "ROLE_NOT_FOUND"
	ErrCodeRoleExists         ErrorCode = "ROLE_EXISTS"
	ErrCodePermissionNotFound ErrorCode = "PERMISSION_NOT_FOUND"
	ErrCodePermissionExists   ErrorCode = "PERMISSION_EXISTS"

	ErrCodeAgentNotFound      ErrorCode = "AGENT_NOT_FOUND"
	ErrCodeAgentCodeExists    ErrorCode = "AGENT_CODE_EXISTS"
	ErrCodeUserAlreadyAgent   ErrorCode = "USER_ALREADY_AGENT"
	ErrCodeAgentCycle         ErrorCode = "AGENT_CYCLE"
	ErrCodeNotAnAgent         ErrorCode = "NOT_AN_AGENT"
	ErrCodeAgentAccessDenied  ErrorCode = "AGENT_ACCESS_DENIED"
	ErrCodeAgentAsManagedUser ErrorCode = "AGENT_AS_MANAGED_USER"
	ErrCodeNoManagingAgent    ErrorCode = "NO_MANAGING_AGENT"

	ErrCodeInsufficientRoles       ErrorCode = "INSUFFICIENT_ROLES"
	ErrCodeInsufficientPermissions ErrorCode = "INSUFFICIENT_PERMISSIONS"
	ErrCodeNotAuthenticated        ErrorCode = "NOT_AUTHENTICATED"
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

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
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

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

var (
	ErrInvalidCredentials = NewUnauthorizedError("Invalid username/email or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewUnauthorizedError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrResetTokenInvalid  = NewValidationError("Invalid or expired reset token", ErrCodeResetTokenInvalid)

	ErrUserNotFound   = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrEmailExists    = NewConflictError("User with this email already exists", ErrCodeEmailExists)
	ErrUsernameExists = NewConflictError("User with this username already exists", ErrCodeUsernameExists)

	ErrRoleNotFound       = NewNotFoundError("Role not found", ErrCodeRoleNotFound)
	ErrRoleExists         = NewConflictError("Role with this name already exists", ErrCodeRoleExists)
	ErrPermissionNotFound = NewNotFoundError("Permission not found", ErrCodePermissionNotFound)
	ErrPermissionExists   = NewConflictError("Permission with this name already exists", ErrCodePermissionExists)

	ErrAgentNotFound      = NewNotFoundError("Agent not found", ErrCodeAgentNotFound)
	ErrAgentCodeExists    = NewConflictError("Agent with this code already exists", ErrCodeAgentCodeExists)
	ErrUserAlreadyAgent   = NewConflictError("User is already an agent", ErrCodeUserAlreadyAgent)
	ErrAgentCycle         = NewValidationError("Cannot move agent to its own descendant", ErrCodeAgentCycle)
	ErrNotAnAgent         = NewForbiddenError("Only agents can access this resource", ErrCodeNotAnAgent)
	ErrAgentAccessDenied  = NewForbiddenError("Access denied to this agent", ErrCodeAgentAccessDenied)
	ErrAgentAsManagedUser = NewValidationError("Cannot assign an agent as a managed user", ErrCodeAgentAsManagedUser)
	ErrNoManagingAgent    = NewNotFoundError("User or managing agent not found", ErrCodeNoManagingAgent)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
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
