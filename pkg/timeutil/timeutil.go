// Package timeutil 提供出欠记录使用的日期工具。
// 记录日期统一以"日历日"保存：取本地时区的年月日，落在 UTC 零点。
package timeutil

import (
	"fmt"
	"time"
)

// CalendarDay 取 t 在 loc 时区下的日历日，返回该日 UTC 零点
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
}

// DayRange 返回日历日 [start, end) 区间
func DayRange(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// SameDay 判断两个日历日是否相同
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// AcademicYear 根据学年起始月份推算学年
// 例如起始月为 4 时，2025-10-01 属于 2025 学年，2026-02-01 仍属于 2025 学年
func AcademicYear(t time.Time, startMonth int) int {
	if startMonth < 1 || startMonth > 12 {
		startMonth = 4
	}
	if int(t.Month()) >= startMonth {
		return t.Year()
	}
	return t.Year() - 1
}

// ISOWeekday 返回 1(周一) - 7(周日)
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// ParseClock 解析 "15:04" 格式的时刻
func ParseClock(s string) (hour, minute int, err error) {
	c, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("无效的时刻 %q: %w", s, err)
	}
	return c.Hour(), c.Minute(), nil
}

// NextWeekly 返回 now 之后（严格晚于）第一个 weekday(1-7) 的 hour:minute 时刻（loc 时区）
func NextWeekly(now time.Time, weekday, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	diff := (weekday - ISOWeekday(local) + 7) % 7
	candidate := time.Date(local.Year(), local.Month(), local.Day()+diff, hour, minute, 0, 0, loc)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}
