package model

import "time"

// AttendanceType 出欠记录类型
type AttendanceType string

const (
	AttendanceAbsent         AttendanceType = "absent"
	AttendanceLate           AttendanceType = "late"
	AttendanceEarlyLeave     AttendanceType = "early_leave"
	AttendanceOfficialAbsent AttendanceType = "official_absent"
)

// AttendanceTypes 全部记录类型
var AttendanceTypes = []AttendanceType{
	AttendanceAbsent, AttendanceLate, AttendanceEarlyLeave, AttendanceOfficialAbsent,
}

// AffectsCredit 是否计入缺勤上限（目前只有 absent）
func (t AttendanceType) AffectsCredit() bool {
	return t == AttendanceAbsent
}

// Valid 是否为已知类型
func (t AttendanceType) Valid() bool {
	for _, k := range AttendanceTypes {
		if k == t {
			return true
		}
	}
	return false
}

// CreditAffectingTypes 计入缺勤上限的类型集合（查询条件使用）
func CreditAffectingTypes() []AttendanceType {
	out := make([]AttendanceType, 0, 1)
	for _, t := range AttendanceTypes {
		if t.AffectsCredit() {
			out = append(out, t)
		}
	}
	return out
}

// AttendanceRecord 出欠记录表 — 对应 attendance_records
// 同名课程的全部记录挂在代表课程（按 course_id 最小的一行）上
type AttendanceRecord struct {
	RecordID  uint64         `gorm:"primaryKey;autoIncrement"       json:"record_id"`
	CourseID  uint64         `gorm:"not null;index"                 json:"course_id"`
	Date      time.Time      `gorm:"not null;index"                 json:"date"` // 日历日（UTC 零点）
	Type      AttendanceType `gorm:"type:varchar(20);not null"      json:"type"`
	Memo      string         `gorm:"type:text;not null"             json:"memo"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime"        json:"created_at"`

	// 关联（只读预加载；外键约束由迁移 SQL 定义）
	Course *Course `gorm:"foreignKey:CourseID;references:CourseID" json:"course,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }
