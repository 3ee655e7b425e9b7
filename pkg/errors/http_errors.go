package errors

import "errors"

// FromError converts a standard error to an AppError.
// An AppError anywhere in the chain is returned as-is; anything else becomes
// an opaque internal error so raw causes never reach the client.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return NewInternalServerError("INTERNAL_ERROR", "An unexpected error occurred").Wrap(err)
}
