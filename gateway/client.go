package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/BerniceZTT/crm_followup/models"
	"github.com/BerniceZTT/crm_followup/utils"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10
)

// Options 客户端配置
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
}

// Client 基于JSON的CRM服务客户端
type Client struct {
	baseURL *url.URL
	http    *http.Client
	creds   CredentialProvider
	limiter *rate.Limiter
}

var _ SyncGateway = (*Client)(nil)

// NewClient 创建客户端，凭证通过provider注入
func NewClient(opts Options, creds CredentialProvider) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("CRM服务地址不能为空")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("解析CRM服务地址失败: %w", err)
	}
	if creds == nil {
		return nil, fmt.Errorf("缺少凭证提供者")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		creds:   creds,
		limiter: limiter,
	}, nil
}

type followUpEnvelope struct {
	FollowUp *models.FollowUpRecord `json:"followUp"`
}

type capacityEnvelope struct {
	Employees []models.EmployeeCapacity `json:"employees"`
}

// ListFollowUps 按状态获取跟进记录
func (c *Client) ListFollowUps(ctx context.Context, status models.CaseStatus) (models.FollowUpPage, error) {
	const op = "ListFollowUps"

	query := url.Values{}
	if status != "" {
		query.Set("caseStatus", string(status))
	}

	var page models.FollowUpPage
	if err := c.do(ctx, op, http.MethodGet, "/api/follow-ups", query, nil, &page); err != nil {
		return models.FollowUpPage{}, err
	}
	for i := range page.FollowUps {
		if err := page.FollowUps[i].Validate(); err != nil {
			return models.FollowUpPage{}, &Error{Op: op, Message: "返回的跟进记录格式错误", Err: err}
		}
	}
	if page.FollowUps == nil {
		page.FollowUps = []models.FollowUpRecord{}
	}
	return page, nil
}

// GetFollowUp 获取单条跟进记录
func (c *Client) GetFollowUp(ctx context.Context, id string) (models.FollowUpRecord, error) {
	const op = "GetFollowUp"

	var env followUpEnvelope
	if err := c.do(ctx, op, http.MethodGet, followUpPath(id), nil, nil, &env); err != nil {
		return models.FollowUpRecord{}, err
	}
	if env.FollowUp == nil {
		return models.FollowUpRecord{}, &Error{Op: op, Message: "返回内容缺少followUp"}
	}
	if err := env.FollowUp.Validate(); err != nil {
		return models.FollowUpRecord{}, &Error{Op: op, Message: "返回的跟进记录格式错误", Err: err}
	}
	return *env.FollowUp, nil
}

// UpdateStatus 同步状态变更
func (c *Client) UpdateStatus(ctx context.Context, id string, update models.StatusUpdate) error {
	return c.do(ctx, "UpdateStatus", http.MethodPut, followUpPath(id)+"/status", nil, update, nil)
}

// AppendComment 同步评论，返回服务端补全作者和时间后的记录
func (c *Client) AppendComment(ctx context.Context, id string, comment models.CommentEntry) (models.FollowUpRecord, error) {
	const op = "AppendComment"

	body := struct {
		Text        string             `json:"text"`
		ActionTaken models.ActionTaken `json:"actionTaken"`
	}{Text: comment.Text, ActionTaken: comment.ActionTaken.OrDefault()}

	var env followUpEnvelope
	if err := c.do(ctx, op, http.MethodPost, followUpPath(id)+"/comments", nil, body, &env); err != nil {
		return models.FollowUpRecord{}, err
	}
	// 写入已完成但返回内容不可用，无法确认最终状态
	if env.FollowUp == nil {
		return models.FollowUpRecord{}, &Error{Op: op, Message: "返回内容缺少followUp", uncertain: true}
	}
	if err := env.FollowUp.Validate(); err != nil {
		return models.FollowUpRecord{}, &Error{Op: op, Message: "返回的跟进记录格式错误", uncertain: true, Err: err}
	}
	return *env.FollowUp, nil
}

// DeleteFollowUp 删除跟进记录
func (c *Client) DeleteFollowUp(ctx context.Context, id string) error {
	return c.do(ctx, "DeleteFollowUp", http.MethodDelete, followUpPath(id), nil, nil, nil)
}

// SubmitAssignment 提交分配请求。单个对象走单条接口，多个对象走批量接口。
// 返回本次请求的请求ID。
func (c *Client) SubmitAssignment(ctx context.Context, req models.AssignmentRequest) (string, error) {
	const op = "SubmitAssignment"

	if len(req.TargetIDs) == 0 {
		return "", &Error{Op: op, Message: "分配对象不能为空"}
	}
	collection := "leads"
	if req.EntityType == models.EntityUser {
		collection = "users"
	}

	requestID := requestIDFrom(ctx)
	ctx = utils.WithRequestID(ctx, requestID)

	if !req.IsBulk() {
		body := map[string]interface{}{"employeeId": req.EmployeeID}
		addAssignmentMeta(body, req)
		path := "/api/" + collection + "/" + url.PathEscape(req.TargetIDs[0]) + "/assign"
		return requestID, c.do(ctx, op, http.MethodPost, path, nil, body, nil)
	}

	idsKey := "leadIds"
	if req.EntityType == models.EntityUser {
		idsKey = "userIds"
	}
	body := map[string]interface{}{
		idsKey:       req.TargetIDs,
		"employeeId": req.EmployeeID,
	}
	addAssignmentMeta(body, req)
	return requestID, c.do(ctx, op, http.MethodPost, "/api/"+collection+"/bulk-assign", nil, body, nil)
}

func addAssignmentMeta(body map[string]interface{}, req models.AssignmentRequest) {
	if req.Priority != "" {
		body["priority"] = req.Priority
	}
	if req.Notes != "" {
		body["notes"] = req.Notes
	}
}

// ListEmployeeCapacity 获取员工负载
func (c *Client) ListEmployeeCapacity(ctx context.Context) ([]models.EmployeeCapacity, error) {
	var env capacityEnvelope
	if err := c.do(ctx, "ListEmployeeCapacity", http.MethodGet, "/api/employees/capacity", nil, nil, &env); err != nil {
		return nil, err
	}
	if env.Employees == nil {
		env.Employees = []models.EmployeeCapacity{}
	}
	return env.Employees, nil
}

func followUpPath(id string) string {
	return "/api/follow-ups/" + url.PathEscape(id)
}

func requestIDFrom(ctx context.Context) string {
	if id := utils.RequestIDFrom(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// do 发送请求。GET以外的方法视为写操作，用于判断失败是否“不确定”。
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out interface{}) (err error) {
	mutating := method != http.MethodGet
	requestID := requestIDFrom(ctx)
	start := time.Now()
	statusCode := 0
	defer func() {
		utils.LogUpstreamCall(method, path, requestID, statusCode, time.Since(start), err)
	}()

	token, err := c.creds.Token(ctx)
	if err != nil {
		return &Error{Op: op, RequestID: requestID, Err: err}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Op: op, RequestID: requestID, Message: "请求被限流或已取消", Err: err}
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, RequestID: requestID, Message: "序列化请求失败", Err: err}
		}
		body = bytes.NewReader(payload)
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return &Error{Op: op, RequestID: requestID, Message: "构建请求失败", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{
			Op:        op,
			RequestID: requestID,
			Message:   "请求CRM服务失败",
			uncertain: mutating && !isDialError(err),
			Err:       err,
		}
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Op:         op,
			RequestID:  requestID,
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
			uncertain:  mutating && uncertainStatus(resp.StatusCode),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &Error{
			Op:         op,
			RequestID:  requestID,
			StatusCode: resp.StatusCode,
			Message:    "解析CRM服务响应失败",
			uncertain:  mutating,
			Err:        err,
		}
	}
	return nil
}

// readErrorMessage 尽量从错误响应中取出可读信息
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return "CRM服务返回错误"
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
