package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"spellbreak/internal/db"
	"spellbreak/internal/schema"

	"github.com/google/jsonapi"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Error is an HTTP error rendered as a single JSON:API error object.
type Error struct {
	Status int
	Code   string
	Title  string
	Detail string
	Meta   map[string]interface{}
}

func (e *Error) Error() string {
	return e.Detail
}

func NewError(status int, code, title, detail string) *Error {
	return &Error{Status: status, Code: code, Title: title, Detail: detail}
}

func errNotFound(resourceType string, id any) *Error {
	return NewError(http.StatusNotFound, "not_found", "Object not found",
		fmt.Sprintf("%s %v not found", resourceType, id))
}

func errTypeConflict(got, want string) *Error {
	return NewError(http.StatusConflict, "type_conflict", "Type conflict",
		fmt.Sprintf("resource type %q does not match endpoint type %q", got, want))
}

var (
	errMissingType = NewError(http.StatusBadRequest, "missing_type", "Missing type",
		"data.type is required")
	errIDMismatch = NewError(http.StatusBadRequest, "id_mismatch", "Id mismatch",
		"data.id does not match the id in the URL")
	errClientID = NewError(http.StatusForbidden, "client_id", "Client-generated id",
		"client-generated ids are not supported")
	errMediaType = NewError(http.StatusUnsupportedMediaType, "unsupported_media_type", "Unsupported media type",
		"Content-Type must be "+jsonapi.MediaType)
	errRouteNotFound = NewError(http.StatusNotFound, "not_found", "Not found",
		"the requested URL was not found on the server")
	errMethodNotAllowed = NewError(http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed",
		"the method is not allowed for the requested URL")
)

// WriteError renders err as a JSON:API error document. Errors that do not map
// to a client error are logged and reported as 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		apiErr   *Error
		verrs    schema.ValidationErrors
		fieldErr *schema.FieldError
		conflict *db.ConflictError
	)

	switch {
	case errors.As(err, &apiErr):
		writeErrors(w, apiErr.Status, toObject(apiErr))
	case errors.As(err, &verrs):
		objs := make([]*jsonapi.ErrorObject, 0, len(verrs))
		for _, fe := range verrs {
			objs = append(objs, toObject(fieldError(fe)))
		}
		writeErrors(w, http.StatusBadRequest, objs...)
	case errors.As(err, &fieldErr):
		writeErrors(w, http.StatusBadRequest, toObject(fieldError(fieldErr)))
	case errors.Is(err, schema.ErrMalformed):
		writeErrors(w, http.StatusBadRequest, toObject(
			NewError(http.StatusBadRequest, "malformed_document", "Malformed document", err.Error())))
	case errors.As(err, &conflict):
		e := NewError(http.StatusConflict, "conflict", "Uniqueness violation", conflict.Error())
		if conflict.Field != "" {
			e.Meta = map[string]interface{}{
				"field":   conflict.Field,
				"pointer": "/data/attributes/" + conflict.Field,
			}
		}
		writeErrors(w, http.StatusConflict, toObject(e))
	case errors.Is(err, db.ErrNotFound):
		writeErrors(w, http.StatusNotFound, toObject(
			NewError(http.StatusNotFound, "not_found", "Object not found", err.Error())))
	default:
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		writeErrors(w, http.StatusInternalServerError, toObject(
			NewError(http.StatusInternalServerError, "internal_error", "Internal server error",
				"the server encountered an internal error")))
	}
}

func fieldError(fe *schema.FieldError) *Error {
	e := NewError(http.StatusBadRequest, "validation_error", "Validation error", fe.Detail)
	e.Meta = map[string]interface{}{
		"field":   fe.Field,
		"pointer": fe.Pointer(),
	}
	return e
}

func toObject(e *Error) *jsonapi.ErrorObject {
	obj := &jsonapi.ErrorObject{
		ID:     uuid.NewString(),
		Status: strconv.Itoa(e.Status),
		Code:   e.Code,
		Title:  e.Title,
		Detail: e.Detail,
	}
	if e.Meta != nil {
		meta := e.Meta
		obj.Meta = &meta
	}
	return obj
}

func writeErrors(w http.ResponseWriter, status int, objs ...*jsonapi.ErrorObject) {
	w.Header().Set("Content-Type", jsonapi.MediaType)
	w.WriteHeader(status)
	if err := jsonapi.MarshalErrors(w, objs); err != nil {
		log.WithError(err).Error("Failed to write error response")
	}
}

// NotFound and MethodNotAllowed replace the router's plain-text fallbacks.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, errRouteNotFound)
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, errMethodNotAllowed)
}
