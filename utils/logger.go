package utils

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger 全局日志对象
var Logger = zerolog.New(io.Discard)

// InitLogger 初始化日志系统，debug模式输出可读格式，否则输出JSON
func InitLogger(debug bool) {
	var output io.Writer = os.Stdout
	if debug {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger().
		Level(zerolog.InfoLevel)

	if debug {
		Logger = Logger.Level(zerolog.DebugLevel)
	}

	Logger.Info().Msg("日志系统初始化完成")
}

// LogApiRequest 记录API请求
func LogApiRequest(method, url string, params, body interface{}, headers map[string]string) {
	if auth := headers["Authorization"]; len(auth) > 15 {
		headers["Authorization"] = auth[:15] + "..."
	}

	Logger.Info().
		Str("method", method).
		Str("url", url).
		Interface("params", params).
		Interface("body", body).
		Interface("headers", headers).
		Msg("API请求")
}

// LogApiResponse 记录API响应
func LogApiResponse(method, url string, statusCode int, responseTime time.Duration, responseBody interface{}) {
	event := Logger.Info()
	if statusCode >= 400 {
		event = Logger.Error()
	}
	event.
		Str("method", method).
		Str("url", url).
		Int("statusCode", statusCode).
		Dur("responseTime", responseTime).
		Interface("body", responseBody).
		Msg("API响应")
}

// LogInfo 记录
func LogInfo(context map[string]interface{}, message string) {
	Logger.Info().
		Interface("context", context).
		Msg(message)
}

// LogWarn 记录警告
func LogWarn(err error, context map[string]interface{}, message string) {
	Logger.Warn().
		Err(err).
		Interface("context", context).
		Msg(message)
}

// LogError 记录错误
func LogError(err error, context map[string]interface{}, message string) {
	Logger.Error().
		Err(err).
		Interface("context", context).
		Msg(message)
}

// LogUpstreamCall 记录对CRM服务的调用
func LogUpstreamCall(method, path, requestID string, statusCode int, elapsed time.Duration, err error) {
	event := Logger.Debug()
	if err != nil {
		event = Logger.Warn().Err(err)
	}
	event.
		Str("method", method).
		Str("path", path).
		Str("requestId", requestID).
		Int("statusCode", statusCode).
		Dur("elapsed", elapsed).
		Msg("CRM服务调用")
}
