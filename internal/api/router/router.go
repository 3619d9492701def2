package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SORA112117/At00-sub000/config"
	"github.com/SORA112117/At00-sub000/internal/api/handler"
	"github.com/SORA112117/At00-sub000/internal/api/middleware"
)

// Setup 初始化并返回 Gin 路由引擎
// db 仅用于健康检查，可为 nil
func Setup(cfg *config.Config, h *handler.Handler, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.SerializeWrites())
	{
		// 学期模块
		semesters := v1.Group("/semesters")
		{
			semesters.GET("", h.Semester.ListSemesters)
			semesters.POST("", h.Semester.CreateSemester)
			semesters.GET("/current", h.Semester.GetCurrentSemester)
			semesters.POST("/sync", h.Semester.SyncSemesters)
			semesters.GET("/:id", h.Semester.GetSemester)
			semesters.PUT("/:id", h.Semester.UpdateSemester)
			semesters.PUT("/:id/activate", h.Semester.ActivateSemester)
			semesters.POST("/:id/reset", h.Semester.ResetSemester)
		}

		// 课表
		v1.GET("/timetable", h.Course.GetTimetable)

		// 课程模块
		courses := v1.Group("/courses")
		{
			courses.POST("", h.Course.CreateCourse)
			courses.GET("/:id", h.Course.GetCourse)
			courses.PUT("/:id", h.Course.UpdateCourse)
			courses.DELETE("/:id", h.Course.DeleteCourse)
			courses.DELETE("/:id/all", h.Course.DeleteAllWithSameName)
			courses.POST("/:id/assign", h.Course.AssignCourse)
			courses.PUT("/:id/move", h.Course.MoveCourse)

			// 出欠
			courses.GET("/:id/attendance", h.Attendance.ListRecords)
			courses.POST("/:id/attendance", h.Attendance.RecordAttendance)
			courses.POST("/:id/attendance/undo", h.Attendance.UndoAttendance)
			courses.GET("/:id/remaining", h.Attendance.GetRemaining)
		}

		v1.DELETE("/records/:id", h.Attendance.DeleteRecord)
		v1.GET("/statistics", h.Attendance.GetStatistics)
		v1.GET("/alerts", h.Attendance.ListAlerts)
	}

	return r
}
