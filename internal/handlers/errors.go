package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bot-inventory/internal/auth"
	"bot-inventory/internal/ledger"
	"bot-inventory/internal/nlu"
)

const (
	kindInvalidInput = "invalid_input"
	kindUnauthorized = "unauthorized"
	kindEmailTaken   = "email_taken"
	kindInternal     = "internal"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func abortError(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, errorBody{Kind: kind, Message: message})
}

// writeErr maps service errors onto status codes and kinds. Anything
// unrecognised is logged and reported as internal.
func (a *API) writeErr(c *gin.Context, err error) {
	var fieldErr *ledger.InvalidFieldError
	switch {
	case errors.As(err, &fieldErr):
		status := http.StatusBadRequest
		switch fieldErr.Kind {
		case ledger.KindProductNotFound:
			status = http.StatusNotFound
		case ledger.KindInsufficientStock:
			status = http.StatusConflict
		}
		c.JSON(status, errorBody{Kind: fieldErr.Kind, Message: fieldErr.Message, Field: fieldErr.Field})
	case errors.Is(err, nlu.ErrAmbiguousCommand):
		c.JSON(http.StatusUnprocessableEntity, errorBody{Kind: nlu.KindAmbiguousCommand, Message: err.Error()})
	case errors.Is(err, auth.ErrMissingFields):
		c.JSON(http.StatusBadRequest, errorBody{Kind: kindInvalidInput, Message: err.Error()})
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, errorBody{Kind: kindEmailTaken, Message: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, errorBody{Kind: kindUnauthorized, Message: err.Error()})
	default:
		a.logger.Error("request failed", "error", err, "path", c.Request.URL.Path)
		if a.metrics != nil {
			a.metrics.Errors.WithLabelValues("http").Inc()
		}
		c.JSON(http.StatusInternalServerError, errorBody{Kind: kindInternal, Message: "internal error"})
	}
}
