package model

import "time"

// LocalAlert 待投递的本地提醒 — 对应 local_alerts
// 投递由系统推送服务负责，这里只保存调度结果；同一 alert_id 重复调度时覆盖
type LocalAlert struct {
	AlertID   string    `gorm:"type:varchar(120);primaryKey" json:"alert_id"`
	Kind      string    `gorm:"type:varchar(30);not null"     json:"kind"` // absence_warning | absence_limit | class_reminder
	Title     string    `gorm:"type:varchar(200);not null"    json:"title"`
	Body      string    `gorm:"type:text;not null"            json:"body"`
	TriggerAt time.Time `gorm:"not null;index"                json:"trigger_at"`
	Repeats   bool      `gorm:"not null"                      json:"repeats"`
	Payload   string    `gorm:"type:text"                     json:"payload,omitempty"` // JSON
	BaseModel
}

// TableName 指定表名
func (LocalAlert) TableName() string { return "local_alerts" }
