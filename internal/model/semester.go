package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SemesterKind 学期种类：前期 / 后期
type SemesterKind string

const (
	SemesterFirstHalf  SemesterKind = "first_half"
	SemesterSecondHalf SemesterKind = "second_half"
)

// Opposite 返回配对学期的种类
func (k SemesterKind) Opposite() SemesterKind {
	if k == SemesterFirstHalf {
		return SemesterSecondHalf
	}
	return SemesterFirstHalf
}

// Valid 是否为已知种类
func (k SemesterKind) Valid() bool {
	return k == SemesterFirstHalf || k == SemesterSecondHalf
}

// Semester 学期表 — 对应 semesters
// 同一学年同一种类可以存在多张学期表，但当前选中的只有一张（is_active）
type Semester struct {
	SemesterID string       `gorm:"type:varchar(36);primaryKey"          json:"semester_id"`
	Name       string       `gorm:"type:varchar(100);not null"           json:"name"`
	Kind       SemesterKind `gorm:"type:varchar(20);not null;index"      json:"kind"`
	StartDate  time.Time    `gorm:"not null"                             json:"start_date"`
	EndDate    time.Time    `gorm:"not null"                             json:"end_date"`
	IsActive   bool         `gorm:"not null;default:false"               json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Semester) TableName() string { return "semesters" }

// BeforeCreate 生成主键（sqlite 无 gen_random_uuid）
func (s *Semester) BeforeCreate(_ *gorm.DB) error {
	if s.SemesterID == "" {
		s.SemesterID = uuid.NewString()
	}
	return nil
}
