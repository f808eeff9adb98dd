package handler

import (
	"errors"
	"net/http"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/catalog-service/internal/app/catalog/service"
	"productcatalog/pkg/apperr"
	"productcatalog/pkg/logger"

	"github.com/gin-gonic/gin"
)

const codeInternal = "INTERNAL_ERROR"

// общие описания видов ошибок, подробности уходят в details
var kindMessages = map[apperr.Kind]string{
	apperr.KindInvalidParameter: "The server cannot process this request",
	apperr.KindLimitExceeded:    "The requested page size is too large",
	apperr.KindNotFound:         "The requested resource was not found",
	apperr.KindValidationFailed: "One or more fields failed validation",
	apperr.KindConflict:         "The request conflicts with the current state of the resource",
}

// respondError отправляет единый формат ошибки.
// Ожидаемые ошибки несут свой статус, все остальное - 500 без подробностей
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	resp := entity.ErrorResponse{
		Timestamp: time.Now().UTC(),
		Request:   c.Request.Method + " " + c.Request.URL.Path,
	}
	status := http.StatusInternalServerError

	if appErr, ok := apperr.As(err); ok {
		status = apperr.HTTPStatus(appErr.Kind)
		resp.Code = string(appErr.Kind)
		resp.Message = kindMessages[appErr.Kind]
		resp.Details = appErr.Error()
		resp.Suggestion = appErr.Suggestion
		resp.Errors = appErr.Fields
	} else if kind, ok := sentinelKind(err); ok {
		status = apperr.HTTPStatus(kind)
		resp.Code = string(kind)
		resp.Message = kindMessages[kind]
		resp.Details = err.Error()
	} else {
		resp.Code = codeInternal
		resp.Message = "Internal server error"
		logger.Error().
			Err(err).
			Str("request_id", logger.RequestID(c)).
			Str("path", c.FullPath()).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(status, resp)
}

// sentinelKind сопоставляет ошибки сервиса с видом ошибки API
func sentinelKind(err error) (apperr.Kind, bool) {
	switch {
	case errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrProductNotInCategory):
		return apperr.KindNotFound, true
	case errors.Is(err, service.ErrCategoryAlreadyExists),
		errors.Is(err, service.ErrCategoryHasProducts):
		return apperr.KindConflict, true
	}
	return "", false
}
