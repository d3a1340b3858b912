package gateway

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrNoCredential 没有可用的访问凭证
var ErrNoCredential = errors.New("缺少CRM访问凭证")

// Error CRM服务调用失败。
// Uncertain为true表示写请求已发出但未得到确认，调用方需要重新查询。
type Error struct {
	Op         string
	RequestID  string
	StatusCode int
	Message    string
	uncertain  bool
	Err        error
}

// Error 实现error接口
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: 状态码%d: %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.Err
}

// Uncertain 记录可能已被修改
func (e *Error) Uncertain() bool {
	return e.uncertain
}

// UpstreamStatus 远端返回的状态码，未收到响应时为0
func (e *Error) UpstreamStatus() int {
	if e.StatusCode == 0 && errors.Is(e.Err, ErrNoCredential) {
		return http.StatusUnauthorized
	}
	return e.StatusCode
}

// IsUncertain 判断错误是否属于“确认丢失”
func IsUncertain(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.uncertain
}

// isDialError 连接阶段失败，请求一定没有到达服务端
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// uncertainStatus 网关超时类状态码无法确认写操作是否生效
func uncertainStatus(code int) bool {
	return code == http.StatusGatewayTimeout || code == http.StatusBadGateway
}
