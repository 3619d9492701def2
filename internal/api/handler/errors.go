package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SORA112117/At00-sub000/internal/service"
	apperrors "github.com/SORA112117/At00-sub000/pkg/errors"
	"github.com/SORA112117/At00-sub000/pkg/response"
)

// 业务码
// 10xxx 通用 / 14xxx 学期 / 15xxx 课程 / 16xxx 出欠 / 50xxx 服务端
const (
	CodeInvalidParams = 10001
	CodeBodyTooLarge  = 10005

	CodeSemesterNotFound    = 14001
	CodeSemesterDateInvalid = 14002
	CodeSemesterKindInvalid = 14003
	CodeNoCurrentSemester   = 14004

	CodeCourseNotFound              = 15001
	CodeInvalidCourseDraft          = 15002
	CodeSlotOccupied                = 15003
	CodeCurrentSlotOccupied         = 15004
	CodeOtherSemesterSlotOccupied   = 15005
	CodeBothSlotsOccupied           = 15006
	CodeDuplicateNameInSemester     = 15007
	CodeDuplicateNameAcrossSemester = 15008

	CodeRecordNotFound        = 16001
	CodeInvalidAttendanceType = 16002
	CodeInvalidDate           = 16003
	CodeDailyLimitReached     = 16004

	CodeStorageUnavailable = 50001
)

type errorMapping struct {
	target  error
	status  int
	code    int
	message string
}

// serviceErrors 按顺序匹配，第一个 errors.Is 命中的生效
var serviceErrors = []errorMapping{
	{service.ErrSemesterNotFound, http.StatusNotFound, CodeSemesterNotFound, "学期不存在"},
	{service.ErrSemesterDateInvalid, http.StatusBadRequest, CodeSemesterDateInvalid, "学期日期无效"},
	{service.ErrSemesterKindInvalid, http.StatusBadRequest, CodeSemesterKindInvalid, "无效的学期种类"},
	{service.ErrNoCurrentSemester, http.StatusNotFound, CodeNoCurrentSemester, "尚未选择当前学期"},

	{service.ErrCourseNotFound, http.StatusNotFound, CodeCourseNotFound, "课程不存在"},
	{service.ErrInvalidCourseDraft, http.StatusBadRequest, CodeInvalidCourseDraft, "课程信息无效"},
	{service.ErrSlotOccupied, http.StatusConflict, CodeSlotOccupied, "该时间格已有课程"},
	{service.ErrCurrentSlotOccupied, http.StatusConflict, CodeCurrentSlotOccupied, "当前学期的该时间格已有课程"},
	{service.ErrOtherSemesterSlotOccupied, http.StatusConflict, CodeOtherSemesterSlotOccupied, "配对学期的该时间格已有课程"},
	{service.ErrBothSlotsOccupied, http.StatusConflict, CodeBothSlotsOccupied, "两个学期的该时间格都已有课程"},
	{service.ErrDuplicateNameInSemester, http.StatusConflict, CodeDuplicateNameInSemester, "本学期已有同名课程"},
	{service.ErrDuplicateNameAcrossSemesters, http.StatusConflict, CodeDuplicateNameAcrossSemester, "其他学期已有同名课程"},

	{service.ErrRecordNotFound, http.StatusNotFound, CodeRecordNotFound, "出欠记录不存在"},
	{service.ErrInvalidAttendanceType, http.StatusBadRequest, CodeInvalidAttendanceType, "无效的出欠类型"},
	{service.ErrInvalidDate, http.StatusBadRequest, CodeInvalidDate, "日期格式应为 YYYY-MM-DD"},
}

// writeServiceError 将 service 层错误映射为统一响应
// 存储失败统一返回 503，客户端展示"请重试"提示
func writeServiceError(c *gin.Context, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			response.Error(c, m.status, m.code, m.message)
			return
		}
	}
	if apperrors.IsStorage(err) {
		_ = c.Error(err)
		response.Unavailable(c, CodeStorageUnavailable, "数据暂时无法保存，请稍后重试")
		return
	}
	_ = c.Error(err)
	response.InternalError(c)
}
