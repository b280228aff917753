package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/board"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

func (h *Handler) GetActiveAssignments(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteId")
	floorID := chi.URLParam(r, "floorId")

	assignments, err := h.repository.ListActiveAssignments(r.Context(), siteID, floorID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取在场人员成功", assignments)
}

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := h.repository.GetAssignment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取分配记录成功", a)
}

// OpenAssignment 把人员放入区域。先用当前的在场记录做一次本地检查，
// 并发情况下由数据库的唯一索引兜底。
func (h *Handler) OpenAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AreaID   string `json:"areaId" validate:"required,max=64"`
		WorkerID string `json:"workerId" validate:"required,max=64"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	siteID := chi.URLParam(r, "siteId")
	floorID := chi.URLParam(r, "floorId")

	active, err := h.repository.ListActiveAssignments(r.Context(), siteID, floorID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	view := board.NewReconciler().Apply(board.Snapshot{SiteID: siteID, FloorID: floorID, Assignments: active})
	if current, ok := view.Lookup(req.WorkerID); ok {
		h.domainError(w, r, &domain.ConflictError{WorkerID: req.WorkerID, AreaID: current.AreaID})
		return
	}

	id, err := h.lifecycle.Open(r.Context(), siteID, floorID, req.AreaID, req.WorkerID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "入场成功", map[string]string{"assignmentId": id})
}

func (h *Handler) RelocateAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AreaID string `json:"areaId" validate:"required,max=64"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	current, err := h.repository.GetAssignment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	if !current.Active() {
		h.domainError(w, r, domain.ErrAlreadyClosed)
		return
	}
	// 区域没有变化时不写入，updatedAt 保持不变
	if current.AreaID == strings.TrimSpace(req.AreaID) {
		h.successResponse(w, r, "换区成功", nil)
		return
	}

	if err := h.lifecycle.Relocate(r.Context(), current.ID, req.AreaID); err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "换区成功", nil)
}

func (h *Handler) CloseAssignment(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "签出成功", nil)
}
