package service

import (
	"context"
	"sync"

	"github.com/BerniceZTT/crm_followup/models"
	"github.com/BerniceZTT/crm_followup/utils"
)

// fakeGateway 内存版CRM服务，记录每次写调用
type fakeGateway struct {
	mu          sync.Mutex
	records     map[string]models.FollowUpRecord
	capacities  []models.EmployeeCapacity
	updates     []models.StatusUpdate
	comments    []models.CommentEntry
	deleted     []string
	assignments []models.AssignmentRequest
	capCalls    int

	failWrite error
	failRead  error
}

func newFakeGateway(records ...models.FollowUpRecord) *fakeGateway {
	g := &fakeGateway{records: map[string]models.FollowUpRecord{}}
	for _, r := range records {
		g.records[r.ID] = r
	}
	return g
}

func (g *fakeGateway) ListFollowUps(_ context.Context, status models.CaseStatus) (models.FollowUpPage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failRead != nil {
		return models.FollowUpPage{}, g.failRead
	}
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

func (g *fakeGateway) GetFollowUp(_ context.Context, id string) (models.FollowUpRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failRead != nil {
		return models.FollowUpRecord{}, g.failRead
	}
	r, ok := g.records[id]
	if !ok {
		return models.FollowUpRecord{}, utils.CreateNotFoundError("跟进记录")
	}
	return r.Clone(), nil
}

func (g *fakeGateway) UpdateStatus(_ context.Context, id string, update models.StatusUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWrite != nil {
		return g.failWrite
	}
	g.updates = append(g.updates, update)
	r := g.records[id]
	r.CaseStatus = update.CaseStatus
	r.Result = update.Result
	g.records[id] = r
	return nil
}

func (g *fakeGateway) AppendComment(_ context.Context, id string, comment models.CommentEntry) (models.FollowUpRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWrite != nil {
		return models.FollowUpRecord{}, g.failWrite
	}
	r, ok := g.records[id]
	if !ok {
		return models.FollowUpRecord{}, utils.CreateNotFoundError("跟进记录")
	}
	g.comments = append(g.comments, comment)
	r = r.Clone()
	r.Comments.Append(comment)
	g.records[id] = r
	return r.Clone(), nil
}

func (g *fakeGateway) DeleteFollowUp(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWrite != nil {
		return g.failWrite
	}
	if _, ok := g.records[id]; !ok {
		return utils.CreateNotFoundError("跟进记录")
	}
	delete(g.records, id)
	g.deleted = append(g.deleted, id)
	return nil
}

func (g *fakeGateway) SubmitAssignment(_ context.Context, req models.AssignmentRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWrite != nil {
		return "", g.failWrite
	}
	g.assignments = append(g.assignments, req)
	return "req-" + req.EmployeeID, nil
}

func (g *fakeGateway) ListEmployeeCapacity(context.Context) ([]models.EmployeeCapacity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.capCalls++
	if g.failRead != nil {
		return nil, g.failRead
	}
	return append([]models.EmployeeCapacity(nil), g.capacities...), nil
}

func (g *fakeGateway) writeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.updates) + len(g.comments) + len(g.deleted) + len(g.assignments)
}

// uncertainErr 模拟写请求已发出但结果未知
type uncertainErr struct{}

func (uncertainErr) Error() string       { return "connection reset after write" }
func (uncertainErr) Uncertain() bool     { return true }
func (uncertainErr) UpstreamStatus() int { return 0 }
