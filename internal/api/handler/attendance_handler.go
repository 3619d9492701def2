package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SORA112117/At00-sub000/internal/dto"
	"github.com/SORA112117/At00-sub000/internal/service"
	"github.com/SORA112117/At00-sub000/pkg/response"
)

// AttendanceHandler 出欠记录 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// RecordAttendance 记录一次出欠
// POST /api/v1/courses/:id/attendance
//
// 当天记录次数已满时返回 200 + 业务码 16004，数据中带当前计数
func (h *AttendanceHandler) RecordAttendance(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id", "课程ID无效")
	if !ok {
		return
	}

	var req dto.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, CodeInvalidParams, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.Record(c.Request.Context(), id, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if result.Outcome == string(service.RecordDailyLimitReached) {
		response.Outcome(c, CodeDailyLimitReached, "今天的记录次数已达上限", result)
		return
	}
	response.Created(c, result)
}

// UndoAttendance 撤销最近一次缺勤
// POST /api/v1/courses/:id/attendance/undo
func (h *AttendanceHandler) UndoAttendance(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id", "课程ID无效")
	if !ok {
		return
	}

	result, err := h.attendanceSvc.Undo(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// GetRemaining 剩余可缺勤次数
// GET /api/v1/courses/:id/remaining
func (h *AttendanceHandler) GetRemaining(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id", "课程ID无效")
	if !ok {
		return
	}

	result, err := h.attendanceSvc.Remaining(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// ListRecords 该课程名的全部出欠记录
// GET /api/v1/courses/:id/attendance
func (h *AttendanceHandler) ListRecords(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id", "课程ID无效")
	if !ok {
		return
	}

	records, err := h.attendanceSvc.ListRecords(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": records})
}

// DeleteRecord 删除单条出欠记录
// DELETE /api/v1/records/:id
func (h *AttendanceHandler) DeleteRecord(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id", "记录ID无效")
	if !ok {
		return
	}

	if err := h.attendanceSvc.DeleteRecord(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// GetStatistics 学期出欠统计
// GET /api/v1/statistics?semester_id=
func (h *AttendanceHandler) GetStatistics(c *gin.Context) {
	var q dto.SemesterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, CodeInvalidParams, "参数校验失败")
		return
	}

	stats, err := h.attendanceSvc.Statistics(c.Request.Context(), q.SemesterID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": stats})
}

// ListAlerts 待投递的本地提醒
// GET /api/v1/alerts
func (h *AttendanceHandler) ListAlerts(c *gin.Context) {
	alerts, err := h.attendanceSvc.Alerts(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": alerts})
}
