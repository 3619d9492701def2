package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// SerializeWrites 写请求串行化中间件
// 课表与出欠数据只有一个前台写入者：同一时刻最多处理一个写请求，读请求不受影响
func SerializeWrites() gin.HandlerFunc {
	var mu sync.Mutex

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		mu.Lock()
		defer mu.Unlock()
		c.Next()
	}
}
