package server

import (
	"context"
	"errors"
	"net/http"

	goahttp "goa.design/goa/v3/http"
	goa "goa.design/goa/v3/pkg"

	"rajhholding/internal/logging"
	"rajhholding/internal/services"
)

type errorBody struct {
	Error string `json:"error"`
}

type successBody struct {
	Success bool `json:"success"`
}

var errInvalidBody = services.BadRequest("Invalid request body")

// encode writes v as JSON with the given status
func (s *Server) encode(ctx context.Context, w http.ResponseWriter, status int, v any) {
	ctx = context.WithValue(ctx, goahttp.ContentTypeKey, "application/json")
	enc := goahttp.ResponseEncoder(ctx, w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := enc.Encode(v); err != nil {
		logging.For(ctx, s.logger).Error("failed to encode response", "err", err)
	}
}

// decode reads the JSON request body into v
func decode(r *http.Request, v any) error {
	if err := goahttp.RequestDecoder(r).Decode(v); err != nil {
		return errInvalidBody
	}
	return nil
}

// encodeError maps service errors to status codes. Errors that are not
// service errors never reach the client.
func (s *Server) encodeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "Internal server error"

	var se *goa.ServiceError
	if errors.As(err, &se) {
		switch se.Name {
		case services.ErrNameBadRequest:
			status, msg = http.StatusBadRequest, se.Message
		case services.ErrNameUnauthorized:
			status, msg = http.StatusUnauthorized, se.Message
		case services.ErrNameStore, services.ErrNameUpload, services.ErrNameInternal:
			msg = se.Message
		}
	} else {
		logging.For(ctx, s.logger).Error("unhandled error", "err", err)
	}
	s.encode(ctx, w, status, errorBody{Error: msg})
}
