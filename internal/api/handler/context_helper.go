package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SORA112117/At00-sub000/pkg/response"
)

// MustGetUintParam 从路径参数中解析正整数 id。
// 解析失败时写入 400 响应并返回 false，调用方应直接 return。
func MustGetUintParam(c *gin.Context, name, message string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, 10001, message)
		return 0, false
	}
	return id, true
}

// MustGetStringParam 读取非空路径参数
func MustGetStringParam(c *gin.Context, name, message string) (string, bool) {
	v := c.Param(name)
	if v == "" {
		response.BadRequest(c, 10001, message)
		return "", false
	}
	return v, true
}
