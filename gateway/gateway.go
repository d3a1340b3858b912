// Package gateway 是远端CRM REST API的客户端。
// 核心逻辑只产出/消费普通数据结构，由这里负责传输。
package gateway

import (
	"context"

	"github.com/BerniceZTT/crm_followup/models"
)

// SyncGateway 远端CRM服务的最小契约
type SyncGateway interface {
	ListFollowUps(ctx context.Context, status models.CaseStatus) (models.FollowUpPage, error)
	GetFollowUp(ctx context.Context, id string) (models.FollowUpRecord, error)
	UpdateStatus(ctx context.Context, id string, update models.StatusUpdate) error
	AppendComment(ctx context.Context, id string, comment models.CommentEntry) (models.FollowUpRecord, error)
	DeleteFollowUp(ctx context.Context, id string) error
	SubmitAssignment(ctx context.Context, req models.AssignmentRequest) (string, error)
	ListEmployeeCapacity(ctx context.Context) ([]models.EmployeeCapacity, error)
}

// CredentialProvider 提供访问CRM服务的bearer凭证。
// 本服务不解析也不刷新令牌。
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// CredentialFunc 函数适配器
type CredentialFunc func(ctx context.Context) (string, error)

// Token 实现 CredentialProvider
func (f CredentialFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken 固定令牌，用于后台任务的服务账号
type StaticToken string

// Token 实现 CredentialProvider
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", ErrNoCredential
	}
	return string(t), nil
}

type tokenKey struct{}

// WithBearerToken 将调用方的令牌放入上下文，转发给CRM服务
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// BearerTokenFrom 从上下文读取令牌
func BearerTokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// RequestToken 从请求上下文中取调用方令牌，缺失时回退到fallback
func RequestToken(fallback CredentialProvider) CredentialProvider {
	return CredentialFunc(func(ctx context.Context) (string, error) {
		if token, ok := BearerTokenFrom(ctx); ok {
			return token, nil
		}
		if fallback != nil {
			return fallback.Token(ctx)
		}
		return "", ErrNoCredential
	})
}
