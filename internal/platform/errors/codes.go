package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Item errors
	CodeItemNameEmpty        Code = "ITEM_NAME_EMPTY"
	CodeItemDescriptionEmpty Code = "ITEM_DESCRIPTION_EMPTY"
	CodeItemPriceInvalid     Code = "ITEM_PRICE_INVALID"
	CodeItemImageMissing     Code = "ITEM_IMAGE_MISSING"
	CodeItemImageTooLarge    Code = "ITEM_IMAGE_TOO_LARGE"

	// Gallery errors
	CodeGalleryViewNotFound  Code = "GALLERY_VIEW_NOT_FOUND"
	CodeGalleryFetchInFlight Code = "GALLERY_FETCH_IN_FLIGHT"
	CodeGalleryNoMorePages   Code = "GALLERY_NO_MORE_PAGES"

	// Auth errors
	CodeAuthInvalidCredentials Code = "AUTH_INVALID_CREDENTIALS"
	CodeAuthSessionInvalid     Code = "AUTH_SESSION_INVALID"
	CodeAuthSessionExpired     Code = "AUTH_SESSION_EXPIRED"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// Generic errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeInternal        Code = "INTERNAL"
)

// HTTPStatus maps the error code to an HTTP status code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeItemNameEmpty, CodeItemDescriptionEmpty, CodeItemPriceInvalid,
		CodeItemImageMissing, CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeItemImageTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeNotFound, CodeGalleryViewNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeGalleryFetchInFlight:
		return http.StatusConflict
	case CodeGalleryNoMorePages:
		return http.StatusNoContent
	case CodeAuthInvalidCredentials, CodeAuthSessionInvalid, CodeAuthSessionExpired:
		return http.StatusUnauthorized
	case CodeUnknown, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
