package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware 日志中间件，记录请求方法、路径、状态码、耗时和已登录用户
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if query := c.Request.URL.RawQuery; query != "" {
			path += "?" + query
		}

		c.Next()

		user := "-"
		if u, ok := GetCurrentUser(c); ok {
			user = u.Username
		}

		log.Printf("[%s] %s | Status: %d | User: %s | Latency: %v",
			c.Request.Method,
			path,
			c.Writer.Status(),
			user,
			time.Since(start),
		)
		for _, e := range c.Errors {
			log.Printf("[%s] %s | Error: %v", c.Request.Method, path, e.Err)
		}
	}
}
