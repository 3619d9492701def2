package dto

// ── 课程模块 DTO ──

// CreateCourseRequest 新建课程请求
type CreateCourseRequest struct {
	SemesterID          string `json:"semester_id"          binding:"omitempty,max=36"` // 为空时使用当前学期
	Name                string `json:"name"                 binding:"required,max=100"`
	DayOfWeek           int    `json:"day_of_week"          binding:"required,min=1,max=7"`
	Period              int    `json:"period"               binding:"required,min=1"`
	TotalSessions       int    `json:"total_sessions"       binding:"required,min=1"`
	MaxAbsences         int    `json:"max_absences"         binding:"min=0"`
	ColorIndex          int    `json:"color_index"          binding:"min=0"`
	IsFullYear          bool   `json:"is_full_year"`
	NotificationEnabled bool   `json:"notification_enabled"`
}

// UpdateCourseRequest 编辑课程请求
type UpdateCourseRequest struct {
	Name                *string `json:"name"                 binding:"omitempty,min=1,max=100"`
	TotalSessions       *int    `json:"total_sessions"       binding:"omitempty,min=1"`
	MaxAbsences         *int    `json:"max_absences"         binding:"omitempty,min=0"`
	ColorIndex          *int    `json:"color_index"          binding:"omitempty,min=0"`
	NotificationEnabled *bool   `json:"notification_enabled"`
}

// SlotRequest 时间格请求（分配已有课程 / 移动课程）
type SlotRequest struct {
	SemesterID string `json:"semester_id" binding:"omitempty,max=36"`
	DayOfWeek  int    `json:"day_of_week" binding:"required,min=1,max=7"`
	Period     int    `json:"period"      binding:"required,min=1"`
}

// CourseResponse 课程信息响应
type CourseResponse struct {
	ID                  uint64 `json:"id"`
	SemesterID          string `json:"semester_id"`
	Name                string `json:"name"`
	DayOfWeek           int    `json:"day_of_week"`
	Period              int    `json:"period"`
	TotalSessions       int    `json:"total_sessions"`
	MaxAbsences         int    `json:"max_absences"`
	ColorIndex          int    `json:"color_index"`
	IsFullYear          bool   `json:"is_full_year"`
	NotificationEnabled bool   `json:"notification_enabled"`
}

// DeleteCourseResponse 删除课程响应
type DeleteCourseResponse struct {
	DeletedCourses int `json:"deleted_courses"`
	DeletedRecords int `json:"deleted_records,omitempty"`
}

// ── 课表 ──

// TimetableCell 课表中的一格
type TimetableCell struct {
	Course    CourseResponse `json:"course"`
	Absences  int            `json:"absences"`
	Remaining int            `json:"remaining"`
}

// TimetableResponse 学期课表
type TimetableResponse struct {
	Semester SemesterResponse `json:"semester"`
	Periods  int              `json:"periods"`
	Cells    []TimetableCell  `json:"cells"`
}
