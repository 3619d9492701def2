package dto

// ── 学期模块 DTO ──

// CreateSemesterRequest 创建学期请求
type CreateSemesterRequest struct {
	Name      string `json:"name"       binding:"required,min=1,max=100"`
	Kind      string `json:"kind"       binding:"required,oneof=first_half second_half"`
	StartDate string `json:"start_date" binding:"required"` // "2025-04-01"
	EndDate   string `json:"end_date"   binding:"required"` // "2025-09-30"
}

// UpdateSemesterRequest 更新学期请求；修改日期会联动配对学期
type UpdateSemesterRequest struct {
	Name      *string `json:"name"       binding:"omitempty,min=1,max=100"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// SemesterResponse 学期信息响应
type SemesterResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	AcademicYear int    `json:"academic_year"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	IsActive     bool   `json:"is_active"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// ResetSemesterResponse 清空学期课表响应
type ResetSemesterResponse struct {
	DeletedCourses int `json:"deleted_courses"`
	DeletedRecords int `json:"deleted_records"`
}

// SyncResponse 通年课程同步响应
type SyncResponse struct {
	Created int `json:"created"`
}
