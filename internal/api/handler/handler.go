package handler

import "github.com/SORA112117/At00-sub000/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Semester   *SemesterHandler
	Course     *CourseHandler
	Attendance *AttendanceHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Semester:   NewSemesterHandler(svc.Semester),
		Course:     NewCourseHandler(svc.Course),
		Attendance: NewAttendanceHandler(svc.Attendance),
	}
}
