package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SORA112117/At00-sub000/internal/dto"
	"github.com/SORA112117/At00-sub000/internal/service"
	"github.com/SORA112117/At00-sub000/pkg/response"
)

// CourseHandler 课程与课表 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// GetTimetable 获取学期课表（含缺勤次数）
// GET /api/v1/timetable?semester_id=
func (h *CourseHandler) GetTimetable(c *gin.Context) {
	var q dto.SemesterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, CodeInvalidParams, "参数校验失败")
		return
	}

	timetable, err := h.courseSvc.Timetable(c.Request.Context(), q.SemesterID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, timetable)
}

// CreateCourse 在空时间格新建课程
// POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, CodeInvalidParams, "参数校验失败")
		return
	}

	course, err := h.courseSvc.Create(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Created(c, course)
}

// GetCourse 获取课程详情
// GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id", "课程ID无效")
	if !ok {
		return
	}

	course, err := h.courseSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, course)
}

// UpdateCourse 编辑课程；名称、总课时、缺勤上限同步到同名课程
// PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id", "课程ID无效")
	if !ok {
		return
	}

	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, CodeInvalidParams, "参数校验失败")
		return
	}

	course, err := h.courseSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, course)
}

// AssignCourse 将已有课程放入另一个时间格
// POST /api/v1/courses/:id/assign
func (h *CourseHandler) AssignCourse(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id", "课程ID无效")
	if !ok {
		return
	}

	var req dto.SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, CodeInvalidParams, "参数校验失败")
		return
	}

	course, err := h.courseSvc.AssignExisting(c.Request.Context(), id, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Created(c, course)
}

// MoveCourse 移动课程（通年课程连同配对行一起移动）
// PUT /api/v1/courses/:id/move
func (h *CourseHandler) MoveCourse(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id", "课程ID无效")
	if !ok {
		return
	}

	var req dto.SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, CodeInvalidParams, "参数校验失败")
		return
	}

	course, err := h.courseSvc.Move(c.Request.Context(), id, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, course)
}

// DeleteCourse 删除该时间格的课程；同名课程与出欠记录保留
// DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id", "课程ID无效")
	if !ok {
		return
	}

	result, err := h.courseSvc.Delete(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteAllWithSameName 删除所有学期中的同名课程及其出欠记录
// DELETE /api/v1/courses/:id/all
func (h *CourseHandler) DeleteAllWithSameName(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id", "课程ID无效")
	if !ok {
		return
	}

	result, err := h.courseSvc.DeleteAllWithSameName(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, result)
}
