package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/BerniceZTT/crm_followup/models"
)

// MemoryGateway 进程内的CRM服务实现，用于本地联调和测试。
// 行为与远端一致：找不到记录返回404，状态变更追加结果评论，分配会增加员工负载。
type MemoryGateway struct {
	mu         sync.Mutex
	now        func() time.Time
	records    []models.FollowUpRecord
	capacities map[string]models.EmployeeCapacity
	// Assignments 已提交的分配请求
	Assignments []models.AssignmentRequest
}

var _ SyncGateway = (*MemoryGateway)(nil)

// NewMemoryGateway 创建并写入初始数据
func NewMemoryGateway(records []models.FollowUpRecord, capacities []models.EmployeeCapacity) *MemoryGateway {
	g := &MemoryGateway{
		now:        time.Now,
		records:    make([]models.FollowUpRecord, 0, len(records)),
		capacities: make(map[string]models.EmployeeCapacity, len(capacities)),
	}
	for _, r := range records {
		g.records = append(g.records, r.Clone())
	}
	sort.Slice(g.records, func(i, j int) bool { return g.records[i].ID < g.records[j].ID })
	for _, c := range capacities {
		g.capacities[c.EmployeeID] = c
	}
	return g
}

func notFound(op string) error {
	return &Error{Op: op, StatusCode: http.StatusNotFound, Message: "跟进记录不存在"}
}

// find 返回记录下标，不存在为-1
func (g *MemoryGateway) find(id string) int {
	for i := range g.records {
		if g.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (g *MemoryGateway) ListFollowUps(_ context.Context, status models.CaseStatus) (models.FollowUpPage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	page := models.FollowUpPage{FollowUps: []models.FollowUpRecord{}}
	for _, r := range g.records {
		if r.CaseStatus == models.CaseStatusOpen {
			page.Counts.Open++
		} else {
			page.Counts.Closed++
		}
		if status == "" || r.CaseStatus == status {
			page.FollowUps = append(page.FollowUps, r.Clone())
		}
	}
	return page, nil
}

func (g *MemoryGateway) GetFollowUp(_ context.Context, id string) (models.FollowUpRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.find(id)
	if i < 0 {
		return models.FollowUpRecord{}, notFound("GetFollowUp")
	}
	return g.records[i].Clone(), nil
}

func (g *MemoryGateway) UpdateStatus(_ context.Context, id string, update models.StatusUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.find(id)
	if i < 0 {
		return notFound("UpdateStatus")
	}
	r := g.records[i].Clone()
	if r.CaseStatus != models.CaseStatusOpen {
		return &Error{Op: "UpdateStatus", StatusCode: http.StatusConflict, Message: "跟进记录已结束"}
	}
	r.CaseStatus = update.CaseStatus
	r.Result = update.Result
	r.Comments.Append(models.CommentEntry{
		Text:        update.Result,
		ActionTaken: models.ActionOther,
		CommentDate: g.now(),
	})
	g.records[i] = r
	return nil
}

func (g *MemoryGateway) AppendComment(_ context.Context, id string, comment models.CommentEntry) (models.FollowUpRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.find(id)
	if i < 0 {
		return models.FollowUpRecord{}, notFound("AppendComment")
	}
	r := g.records[i].Clone()
	r.Comments.Append(comment)
	g.records[i] = r
	return r.Clone(), nil
}

func (g *MemoryGateway) DeleteFollowUp(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	records, ok := models.DeleteFollowUp(g.records, id)
	if !ok {
		return notFound("DeleteFollowUp")
	}
	g.records = records
	return nil
}

func (g *MemoryGateway) SubmitAssignment(ctx context.Context, req models.AssignmentRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.capacities[req.EmployeeID]
	if !ok {
		return "", &Error{Op: "SubmitAssignment", StatusCode: http.StatusNotFound, Message: fmt.Sprintf("员工 %s 不存在", req.EmployeeID)}
	}
	c.AssignedCount += len(req.TargetIDs)
	g.capacities[req.EmployeeID] = c
	g.Assignments = append(g.Assignments, req)
	return requestIDFrom(ctx), nil
}

func (g *MemoryGateway) ListEmployeeCapacity(context.Context) ([]models.EmployeeCapacity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.EmployeeCapacity, 0, len(g.capacities))
	for _, c := range g.capacities {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}
