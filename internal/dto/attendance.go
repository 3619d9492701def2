package dto

// ── 出欠模块 DTO ──

// RecordAttendanceRequest 记录出欠请求
type RecordAttendanceRequest struct {
	Type string `json:"type" binding:"required,oneof=absent late early_leave official_absent"`
	Memo string `json:"memo" binding:"max=500"`
	Date string `json:"date"` // "2025-04-14"，为空时使用今天
}

// RecordAttendanceResponse 记录出欠响应
type RecordAttendanceResponse struct {
	Outcome   string                    `json:"outcome"` // success | daily_limit_reached
	Record    *AttendanceRecordResponse `json:"record,omitempty"`
	Absences  int                       `json:"absences"`
	Remaining int                       `json:"remaining"`
	Alert     string                    `json:"alert,omitempty"`
}

// AttendanceRecordResponse 出欠记录
type AttendanceRecordResponse struct {
	ID         uint64 `json:"id"`
	CourseID   uint64 `json:"course_id"`
	CourseName string `json:"course_name,omitempty"`
	Date       string `json:"date"`
	Type       string `json:"type"`
	Memo       string `json:"memo"`
	CreatedAt  string `json:"created_at"`
}

// UndoResponse 撤销响应
type UndoResponse struct {
	Deleted   int `json:"deleted"`
	Absences  int `json:"absences"`
	Remaining int `json:"remaining"`
}

// RemainingResponse 剩余可缺勤次数
type RemainingResponse struct {
	CourseID  uint64 `json:"course_id"`
	Name      string `json:"name"`
	Absences  int    `json:"absences"`
	Remaining int    `json:"remaining"`
}

// StatisticsResponse 单个课程名的统计
type StatisticsResponse struct {
	Name          string         `json:"name"`
	TotalSessions int            `json:"total_sessions"`
	MaxAbsences   int            `json:"max_absences"`
	Absences      int            `json:"absences"`
	Remaining     int            `json:"remaining"`
	Counts        map[string]int `json:"counts"`
}

// AlertResponse 待投递的本地提醒
type AlertResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	TriggerAt string `json:"trigger_at"`
	Repeats   bool   `json:"repeats"`
}
