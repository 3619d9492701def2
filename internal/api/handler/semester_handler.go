package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SORA112117/At00-sub000/internal/dto"
	"github.com/SORA112117/At00-sub000/internal/service"
	"github.com/SORA112117/At00-sub000/pkg/response"
)

// SemesterHandler 学期模块 HTTP 处理器
type SemesterHandler struct {
	semesterSvc service.SemesterService
}

// NewSemesterHandler 创建 SemesterHandler
func NewSemesterHandler(semesterSvc service.SemesterService) *SemesterHandler {
	return &SemesterHandler{semesterSvc: semesterSvc}
}

// ListSemesters 获取学期列表
// GET /api/v1/semesters
func (h *SemesterHandler) ListSemesters(c *gin.Context) {
	semesters, err := h.semesterSvc.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": semesters})
}

// GetSemester 获取学期详情
// GET /api/v1/semesters/:id
func (h *SemesterHandler) GetSemester(c *gin.Context) {
	id, ok := MustGetStringParam(c, "id", "学期ID不能为空")
	if !ok {
		return
	}

	semester, err := h.semesterSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, semester)
}

// GetCurrentSemester 获取当前学期
// GET /api/v1/semesters/current
func (h *SemesterHandler) GetCurrentSemester(c *gin.Context) {
	semester, err := h.semesterSvc.GetCurrent(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, semester)
}

// CreateSemester 创建学期
// POST /api/v1/semesters
func (h *SemesterHandler) CreateSemester(c *gin.Context) {
	var req dto.CreateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, CodeInvalidParams, "参数校验失败")
		return
	}

	semester, err := h.semesterSvc.Create(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Created(c, semester)
}

// UpdateSemester 修改学期名称与日期
// PUT /api/v1/semesters/:id
func (h *SemesterHandler) UpdateSemester(c *gin.Context) {
	id, ok := MustGetStringParam(c, "id", "学期ID不能为空")
	if !ok {
		return
	}

	var req dto.UpdateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, CodeInvalidParams, "参数校验失败")
		return
	}

	semester, err := h.semesterSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, semester)
}

// ActivateSemester 切换当前学期
// PUT /api/v1/semesters/:id/activate
func (h *SemesterHandler) ActivateSemester(c *gin.Context) {
	id, ok := MustGetStringParam(c, "id", "学期ID不能为空")
	if !ok {
		return
	}

	if err := h.semesterSvc.Activate(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// ResetSemester 清空学期课表（按课程名作用，配对学期中的同名课程一并删除）
// POST /api/v1/semesters/:id/reset
func (h *SemesterHandler) ResetSemester(c *gin.Context) {
	id, ok := MustGetStringParam(c, "id", "学期ID不能为空")
	if !ok {
		return
	}

	result, err := h.semesterSvc.Reset(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// SyncSemesters 补齐缺失的通年课程配对行
// POST /api/v1/semesters/sync
func (h *SemesterHandler) SyncSemesters(c *gin.Context) {
	result, err := h.semesterSvc.Sync(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, result)
}
