// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков и единое сопоставление
// доменных ошибок с HTTP‑статусами.
package response

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/marketing-simulator/internal/models"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Data: данные ответа (при успехе).
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ответа с ошибкой. Fields заполняется только
// для ошибок валидации.
type ErrorResponse struct {
	Status string              `json:"status" example:"Error"`
	Error  string              `json:"error" example:"invalid request body"`
	Fields []models.FieldError `json:"fields,omitempty"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// Сообщения, которые уходят клиенту вместо текста внутренних ошибок.
const (
	MsgInternal    = "internal error"
	MsgUpstream    = "payment gateway is unavailable, try again later"
	MsgTimeout     = "payment gateway did not respond in time, try again later"
	MsgBadBody     = "invalid request body"
	MsgMissingAuth = "authorization token is required"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает ответ с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// FromError сопоставляет ошибку сервисного слоя с HTTP-статусом и телом ответа.
// Текст неизвестных ошибок клиенту не передаётся.
func FromError(err error) (int, ErrorResponse) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		resp := Error(verr.Error())
		resp.Fields = verr.Fields
		return http.StatusBadRequest, resp
	}

	switch {
	case errors.Is(err, models.ErrEmailTaken),
		errors.Is(err, models.ErrAlreadyPremium),
		errors.Is(err, models.ErrInvalidRole),
		errors.Is(err, models.ErrWrongCurrentPassword):
		return http.StatusBadRequest, Error(rootMessage(err))
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, Error(models.ErrInvalidCredentials.Error())
	case errors.Is(err, models.ErrInvalidToken):
		return http.StatusForbidden, Error(models.ErrInvalidToken.Error())
	case errors.Is(err, models.ErrForbidden), errors.Is(err, models.ErrUntrustedSource):
		return http.StatusForbidden, Error(models.ErrForbidden.Error())
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound, Error(models.ErrUserNotFound.Error())
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests, Error(models.ErrRateLimited.Error())
	case errors.Is(err, models.ErrPaymentsDisabled):
		return http.StatusServiceUnavailable, Error(models.ErrPaymentsDisabled.Error())
	case errors.Is(err, models.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, Error(MsgTimeout)
	case errors.Is(err, models.ErrUpstream):
		return http.StatusBadGateway, Error(MsgUpstream)
	}
	return http.StatusInternalServerError, Error(MsgInternal)
}

// rootMessage текст доменной ошибки без префиксов op.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		models.ErrEmailTaken,
		models.ErrAlreadyPremium,
		models.ErrInvalidRole,
		models.ErrWrongCurrentPassword,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return MsgInternal
}

// RenderError пишет ответ для ошибки с подходящим статусом.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := FromError(err)
	render.Status(r, status)
	render.JSON(w, r, body)
}

// RenderStatus пишет ответ с ошибкой и явно заданным статусом.
func RenderStatus(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
}
