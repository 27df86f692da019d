package api

import (
	"log/slog"

	"github.com/HorseArcher567/octopus/pkg/prometheus/metrics"
	"github.com/gin-gonic/gin"
)

// Option 用于自定义 HTTP Server 的行为。
type Option func(s *Server)

// WithLogger 使用已有的 logger 实例。
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithEngine 使用外部构造好的 gin.Engine。
// 如果不设置，默认使用 gin.New() 并由 Server 初始化常用中间件。
func WithEngine(engine *gin.Engine) Option {
	return func(s *Server) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithGinMetrics 挂载一个 GinServerMetrics 采集器的请求计数中间件。
// 需要调用方自行将 m 注册到 Prometheus registry；cfg.EnableMetrics 为 true
// 时 Server 会额外挂载 /metrics 供抓取。
func WithGinMetrics(m *metrics.GinServerMetrics) Option {
	return func(s *Server) {
		s.ginMetrics = m
	}
}
