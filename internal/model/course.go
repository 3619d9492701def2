package model

// Course 课程表 — 对应 courses
// 同一学期内 (day_of_week, period) 唯一；同名课程通过名称识别为"同一门课"，
// 通年课程在前期、后期各有一行，按 (名称, 学年, 时间格) 隐式配对，不存外键
type Course struct {
	CourseID            uint64 `gorm:"primaryKey;autoIncrement"                                   json:"course_id"`
	SemesterID          string `gorm:"type:varchar(36);not null;uniqueIndex:idx_course_slot,priority:1" json:"semester_id"`
	Name                string `gorm:"type:varchar(100);not null;index"                            json:"name"`
	DayOfWeek           int    `gorm:"type:smallint;not null;uniqueIndex:idx_course_slot,priority:2" json:"day_of_week"` // 1-7
	Period              int    `gorm:"type:smallint;not null;uniqueIndex:idx_course_slot,priority:3" json:"period"`      // 1-N
	TotalSessions       int    `gorm:"not null"                                                    json:"total_sessions"`
	MaxAbsences         int    `gorm:"not null"                                                    json:"max_absences"`
	ColorIndex          int    `gorm:"not null"                                                    json:"color_index"`
	IsFullYear          bool   `gorm:"not null"                                                    json:"is_full_year"`
	NotificationEnabled bool   `gorm:"not null"                                                    json:"notification_enabled"`
	BaseModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// Slot 时间格
type Slot struct {
	DayOfWeek int
	Period    int
}

// Slot 返回课程所在时间格
func (c *Course) Slot() Slot { return Slot{DayOfWeek: c.DayOfWeek, Period: c.Period} }
