package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BerniceZTT/crm_followup/events"
	"github.com/BerniceZTT/crm_followup/gateway"
	"github.com/BerniceZTT/crm_followup/models"
	"github.com/BerniceZTT/crm_followup/utils"
)

// detailCommentCount 详情页展示的最近评论数
const detailCommentCount = 5

// FollowUpService 跟进记录业务：先本地校验，再同步到CRM服务
type FollowUpService struct {
	gateway     gateway.SyncGateway
	machine     *FollowUpMachine
	publisher   events.Publisher
	now         func() time.Time
	phoneRegion string
}

// NewFollowUpService 创建服务
func NewFollowUpService(gw gateway.SyncGateway, publisher events.Publisher, now func() time.Time, phoneRegion string) *FollowUpService {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	return &FollowUpService{
		gateway:     gw,
		machine:     NewFollowUpMachine(now),
		publisher:   publisher,
		now:         now,
		phoneRegion: phoneRegion,
	}
}

// FollowUpList 列表结果
type FollowUpList struct {
	FollowUps []models.FollowUpView `json:"followUps"`
	Counts    models.FollowUpCounts `json:"counts"`
}

// FollowUpOverview 各状态统计
type FollowUpOverview struct {
	Open          int `json:"open"`
	Closed        int `json:"closed"`
	NotInterested int `json:"notInterested"`
	Overdue       int `json:"overdue"`
}

// List 按状态查询，标记逾期并排序
func (s *FollowUpService) List(ctx context.Context, status models.CaseStatus) (FollowUpList, error) {
	if status != "" && !status.IsValid() {
		return FollowUpList{}, utils.ErrInvalidStatus
	}
	page, err := s.gateway.ListFollowUps(ctx, status)
	if err != nil {
		return FollowUpList{}, err
	}

	now := s.now()
	views := make([]models.FollowUpView, 0, len(page.FollowUps))
	for _, r := range page.FollowUps {
		views = append(views, s.view(r, now, 0))
	}
	models.SortForDisplay(views)

	return FollowUpList{FollowUps: views, Counts: page.Counts}, nil
}

// Overview 并发获取各状态列表并统计
func (s *FollowUpService) Overview(ctx context.Context) (FollowUpOverview, error) {
	statuses := []models.CaseStatus{models.CaseStatusOpen, models.CaseStatusClose, models.CaseStatusNotInterested}
	pages := make([]models.FollowUpPage, len(statuses))

	g, gctx := errgroup.WithContext(ctx)
	for i, status := range statuses {
		i, status := i, status
		g.Go(func() error {
			page, err := s.gateway.ListFollowUps(gctx, status)
			if err != nil {
				return err
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FollowUpOverview{}, err
	}

	now := s.now()
	overview := FollowUpOverview{
		Open:          len(pages[0].FollowUps),
		Closed:        len(pages[1].FollowUps),
		NotInterested: len(pages[2].FollowUps),
	}
	for i := range pages[0].FollowUps {
		if pages[0].FollowUps[i].IsOverdueAt(now) {
			overview.Overdue++
		}
	}
	return overview, nil
}

// Detail 单条记录，附带最近的评论
func (s *FollowUpService) Detail(ctx context.Context, id string) (models.FollowUpView, error) {
	record, err := s.gateway.GetFollowUp(ctx, id)
	if err != nil {
		return models.FollowUpView{}, err
	}
	return s.view(record, s.now(), detailCommentCount), nil
}

// Close 关闭跟进记录
func (s *FollowUpService) Close(ctx context.Context, id, resultText string, action models.ActionTaken, operator *utils.LoginUser) (models.FollowUpView, error) {
	return s.transition(ctx, id, models.CaseStatusClose, resultText, action, operator)
}

// MarkNotInterested 标记无意向，未填写原因时使用默认原因
func (s *FollowUpService) MarkNotInterested(ctx context.Context, id, reason string, action models.ActionTaken, operator *utils.LoginUser) (models.FollowUpView, error) {
	if strings.TrimSpace(reason) == "" {
		reason = NotInterestedReason
	}
	return s.transition(ctx, id, models.CaseStatusNotInterested, reason, action, operator)
}

func (s *FollowUpService) transition(ctx context.Context, id string, to models.CaseStatus, text string, action models.ActionTaken, operator *utils.LoginUser) (models.FollowUpView, error) {
	// 不需要远端数据的校验先做
	if strings.TrimSpace(text) == "" {
		return models.FollowUpView{}, utils.ErrEmptyResult
	}
	if !action.OrDefault().IsValid() {
		return models.FollowUpView{}, utils.ErrInvalidAction
	}

	record, err := s.gateway.GetFollowUp(ctx, id)
	if err != nil {
		return models.FollowUpView{}, err
	}
	if err := s.machine.Transition(&record, to, text, action, operatorName(operator)); err != nil {
		return models.FollowUpView{}, err
	}

	if err := s.gateway.UpdateStatus(ctx, id, models.NewStatusUpdate(&record)); err != nil {
		return models.FollowUpView{}, err
	}

	utils.LogInfo(map[string]interface{}{
		"followUpId": id,
		"caseStatus": record.CaseStatus,
		"operator":   operatorID(operator),
	}, "跟进记录状态变更成功")

	eventType := events.TypeFollowUpClosed
	if to == models.CaseStatusNotInterested {
		eventType = events.TypeFollowUpNotInterested
	}
	s.publish(ctx, eventType, events.FollowUpChanged{
		FollowUpID:  id,
		CaseStatus:  string(record.CaseStatus),
		Result:      record.Result,
		ActionTaken: string(action.OrDefault()),
		OperatorID:  operatorID(operator),
	})

	return s.view(record, s.now(), detailCommentCount), nil
}

// AddComment 追加评论，返回服务端确认后的记录
func (s *FollowUpService) AddComment(ctx context.Context, id, text string, action models.ActionTaken, operator *utils.LoginUser) (models.FollowUpView, error) {
	entry, err := s.machine.NewComment(text, action, operatorName(operator))
	if err != nil {
		return models.FollowUpView{}, err
	}

	record, err := s.gateway.AppendComment(ctx, id, entry)
	if err != nil {
		return models.FollowUpView{}, err
	}

	utils.LogInfo(map[string]interface{}{
		"followUpId":  id,
		"actionTaken": entry.ActionTaken,
		"comments":    record.Comments.Len(),
	}, "追加跟进评论成功")

	s.publish(ctx, events.TypeFollowUpCommented, events.FollowUpChanged{
		FollowUpID:  id,
		CaseStatus:  string(record.CaseStatus),
		ActionTaken: string(entry.ActionTaken),
		OperatorID:  operatorID(operator),
	})

	return s.view(record, s.now(), detailCommentCount), nil
}

// Delete 删除跟进记录，不可恢复
func (s *FollowUpService) Delete(ctx context.Context, id string, operator *utils.LoginUser) error {
	if strings.TrimSpace(id) == "" {
		return utils.CreateBadRequestError("跟进记录ID不能为空")
	}
	if err := s.gateway.DeleteFollowUp(ctx, id); err != nil {
		return err
	}

	utils.LogInfo(map[string]interface{}{
		"followUpId": id,
		"operator":   operatorID(operator),
	}, "删除跟进记录成功")

	s.publish(ctx, events.TypeFollowUpDeleted, events.FollowUpChanged{
		FollowUpID: id,
		OperatorID: operatorID(operator),
	})
	return nil
}

// OverdueDigest 统计逾期的跟进记录并发布汇总事件
func (s *FollowUpService) OverdueDigest(ctx context.Context) (events.OverdueDigest, error) {
	page, err := s.gateway.ListFollowUps(ctx, models.CaseStatusOpen)
	if err != nil {
		return events.OverdueDigest{}, err
	}

	now := s.now()
	digest := events.OverdueDigest{
		OpenCount:   len(page.FollowUps),
		OverdueIDs:  []string{},
		GeneratedAt: now,
	}
	for i := range page.FollowUps {
		if page.FollowUps[i].IsOverdueAt(now) {
			digest.OverdueIDs = append(digest.OverdueIDs, page.FollowUps[i].ID)
		}
	}
	digest.OverdueCount = len(digest.OverdueIDs)

	s.publish(ctx, events.TypeOverdueDigest, digest)
	return digest, nil
}

func (s *FollowUpService) view(r models.FollowUpRecord, now time.Time, recent int) models.FollowUpView {
	v := models.FollowUpView{
		FollowUpRecord: r,
		Overdue:        r.IsOverdueAt(now),
		CommentCount:   r.Comments.Len(),
		DisplayPhone:   utils.NormalizePhone(r.LeadData.ClientPhone, s.phoneRegion),
	}
	if v.Comments == nil {
		v.Comments = models.CommentLog{}
	}
	if recent > 0 {
		v.RecentComments = r.Comments.MostRecent(recent)
	}
	return v
}

func (s *FollowUpService) publish(ctx context.Context, eventType string, data any) {
	publishEvent(ctx, s.publisher, eventType, data)
}

// publishEvent 事件发布失败只记录日志，不影响已确认的操作
func publishEvent(ctx context.Context, publisher events.Publisher, eventType string, data any) {
	env := events.NewEnvelope(eventType, utils.RequestIDFrom(ctx), data)
	if err := publisher.Publish(ctx, env); err != nil {
		utils.LogWarn(err, map[string]interface{}{"type": eventType}, "发布领域事件失败")
	}
}

func operatorName(u *utils.LoginUser) string {
	if u == nil {
		return ""
	}
	return u.Username
}

func operatorID(u *utils.LoginUser) string {
	if u == nil {
		return ""
	}
	return u.ID
}
