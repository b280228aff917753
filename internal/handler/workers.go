package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/utils"
)

func (h *Handler) GetAllWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.repository.GetAllWorkers(r.Context())
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取人员列表成功", workers)
}

func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	worker := r.Context().Value(WorkerInfoCtx).(*domain.Worker)

	h.successResponse(w, r, "获取人员信息成功", worker)
}

// UpsertWorker 按 workerId 合并写入，请求中没有出现的字段保持原值
func (h *Handler) UpsertWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkerID         string              `json:"-" validate:"required,max=64"`
		Name             *string             `json:"name" validate:"omitnil,min=1,max=64"`
		Company          *string             `json:"company" validate:"omitnil,max=128"`
		EmploymentType   *string             `json:"employmentType" validate:"omitnil,max=32"`
		Agency           *string             `json:"agency" validate:"omitnil,max=128"`
		Skills           []string            `json:"skills" validate:"omitempty,dive,required,max=32"`
		DefaultStartTime *string             `json:"defaultStartTime" validate:"omitnil,clock"`
		DefaultEndTime   *string             `json:"defaultEndTime" validate:"omitnil,clock"`
		Active           *bool               `json:"active"`
		Panel            *domain.WorkerPanel `json:"panel"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	req.WorkerID = chi.URLParam(r, "workerId")
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 合并之后的默认上下班时间也必须合法
	start, end := "", ""
	existing, err := h.repository.GetWorker(r.Context(), req.WorkerID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		h.domainError(w, r, err)
		return
	}
	if existing != nil {
		start, end = existing.DefaultStartTime, existing.DefaultEndTime
	}
	if req.DefaultStartTime != nil {
		start = *req.DefaultStartTime
	}
	if req.DefaultEndTime != nil {
		end = *req.DefaultEndTime
	}
	if err := utils.ValidateWorkerDefaultTime(start, end); err != nil {
		h.badRequest(w, r, err)
		return
	}

	patch := &domain.WorkerPatch{
		Name:             req.Name,
		Company:          req.Company,
		EmploymentType:   req.EmploymentType,
		Agency:           req.Agency,
		Skills:           req.Skills,
		DefaultStartTime: req.DefaultStartTime,
		DefaultEndTime:   req.DefaultEndTime,
		Active:           req.Active,
		Panel:            req.Panel,
	}

	worker, err := h.repository.UpsertWorker(r.Context(), req.WorkerID, patch)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "保存人员信息成功", worker)
}

func (h *Handler) DeleteWorker(w http.ResponseWriter, r *http.Request) {
	worker := r.Context().Value(WorkerInfoCtx).(*domain.Worker)

	if err := h.repository.DeleteWorker(r.Context(), worker.WorkerID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.errorResponse(w, r, "人员不存在")
		default:
			h.domainError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除人员成功", nil)
}
