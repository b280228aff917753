package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		h.errorResponse(w, r, "日期格式应为 YYYY-MM-DD")
		return
	}

	roster, err := h.repository.GetRoster(r.Context(), chi.URLParam(r, "siteId"), date)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取名单成功", roster)
}

func (h *Handler) ImportRoster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url" validate:"required,http_url"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	res, err := h.importer.Import(r.Context(), chi.URLParam(r, "siteId"), chi.URLParam(r, "date"), req.URL)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "导入名单成功", res)
}
