package services

import (
	"errors"

	goa "goa.design/goa/v3/pkg"
)

// Service error names. The HTTP layer maps each name to a status code.
const (
	ErrNameBadRequest   = "bad_request"
	ErrNameUnauthorized = "unauthorized"
	ErrNameStore        = "store_error"
	ErrNameUpload       = "upload_error"
	ErrNameInternal     = "internal_error"
)

// BadRequest reports invalid input. message is shown to the caller.
func BadRequest(message string) *goa.ServiceError {
	return goa.NewServiceError(errors.New(message), ErrNameBadRequest, false, false, false)
}

// Unauthorized reports a missing or rejected session
func Unauthorized() *goa.ServiceError {
	return UnauthorizedWithMessage("Unauthorized")
}

// UnauthorizedWithMessage reports rejected credentials with a custom message
func UnauthorizedWithMessage(message string) *goa.ServiceError {
	return goa.NewServiceError(errors.New(message), ErrNameUnauthorized, false, false, false)
}

// StoreFailure reports a store error. message must be generic; the cause is
// logged by the caller and never returned.
func StoreFailure(message string) *goa.ServiceError {
	return goa.NewServiceError(errors.New(message), ErrNameStore, false, false, true)
}

// UploadFailure reports a rejected image upload
func UploadFailure(message string) *goa.ServiceError {
	return goa.NewServiceError(errors.New(message), ErrNameUpload, false, false, true)
}

// InternalFailure reports an upstream failure outside the store
func InternalFailure(message string) *goa.ServiceError {
	return goa.NewServiceError(errors.New(message), ErrNameInternal, false, true, true)
}

// ErrorName returns the service error name of err, or "" for other errors
func ErrorName(err error) string {
	var se *goa.ServiceError
	if errors.As(err, &se) {
		return se.Name
	}
	return ""
}
