package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
		http.Error(w, "服务器内部错误", http.StatusInternalServerError)
	}
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, msg string) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: false,
		Message: msg,
		Data:    nil,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		h.errorResponse(w, r, err.Error())
		return
	}

	h.errorResponse(w, r, validationErrors[0].Translate(h.translator))
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.writeJSON(w, r, http.StatusInternalServerError, Response{
		Success: false,
		Message: "服务器内部错误",
		Data:    nil,
	})
}

func (h *Handler) unavailable(w http.ResponseWriter, r *http.Request, err error) {
	slog.Warn("存储暂时不可用", "method", r.Method, "path", r.URL.Path, "error", err)
	h.writeJSON(w, r, http.StatusServiceUnavailable, Response{
		Success: false,
		Message: transientMessage,
		Data:    nil,
	})
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

const transientMessage = "存储暂时不可用，请稍后重试"

type errorKind int

const (
	kindInternal errorKind = iota
	kindRejected
	kindTransient
)

// describeError 把领域错误转换成给操作员看的提示
func describeError(trans ut.Translator, err error) (string, errorKind) {
	var conflictErr *domain.ConflictError
	var validationErrors validator.ValidationErrors

	switch {
	case errors.As(err, &conflictErr):
		return conflictErr.Error(), kindRejected
	case errors.As(err, &validationErrors):
		return validationErrors[0].Translate(trans), kindRejected
	case errors.Is(err, domain.ErrAlreadyClosed):
		return "该人员已签出，无法再修改", kindRejected
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
		return err.Error(), kindRejected
	case errors.Is(err, domain.ErrTransient):
		return transientMessage, kindTransient
	default:
		return "服务器内部错误", kindInternal
	}
}

// domainError 根据错误类别返回响应，校验、冲突、不存在都属于业务错误
func (h *Handler) domainError(w http.ResponseWriter, r *http.Request, err error) {
	msg, kind := describeError(h.translator, err)
	switch kind {
	case kindRejected:
		h.errorResponse(w, r, msg)
	case kindTransient:
		h.unavailable(w, r, err)
	default:
		h.internalServerError(w, r, err)
	}
}
