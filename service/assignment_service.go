package service

import (
	"context"
	"time"

	"github.com/BerniceZTT/crm_followup/cache"
	"github.com/BerniceZTT/crm_followup/events"
	"github.com/BerniceZTT/crm_followup/gateway"
	"github.com/BerniceZTT/crm_followup/models"
	"github.com/BerniceZTT/crm_followup/repository"
	"github.com/BerniceZTT/crm_followup/utils"
)

// AssignmentService 线索/用户分配
type AssignmentService struct {
	gateway   gateway.SyncGateway
	cache     cache.CapacityCache
	audit     repository.AuditStore
	publisher events.Publisher
	now       func() time.Time
}

// NewAssignmentService 创建服务，cache/audit/publisher 可为空
func NewAssignmentService(gw gateway.SyncGateway, capacityCache cache.CapacityCache, audit repository.AuditStore, publisher events.Publisher) *AssignmentService {
	if capacityCache == nil {
		capacityCache = cache.NewNoopCapacityCache()
	}
	if audit == nil {
		audit = repository.NewMemoryAuditStore()
	}
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	return &AssignmentService{
		gateway:   gw,
		cache:     capacityCache,
		audit:     audit,
		publisher: publisher,
		now:       time.Now,
	}
}

// AssignmentResult 分配结果
type AssignmentResult struct {
	RequestID string                   `json:"requestId"`
	Request   models.AssignmentRequest `json:"request"`
	Bulk      bool                     `json:"bulk"`
	// 提交前员工已接近满载时给出提示
	Warning string `json:"warning,omitempty"`
}

// Capacities 员工负载，优先读缓存
func (s *AssignmentService) Capacities(ctx context.Context) ([]models.EmployeeCapacity, error) {
	cached, err := s.cache.Get(ctx)
	if err != nil {
		utils.LogWarn(err, nil, "读取负载缓存失败")
	} else if cached != nil {
		return cached, nil
	}

	list, err := s.gateway.ListEmployeeCapacity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, list); err != nil {
		utils.LogWarn(err, nil, "写入负载缓存失败")
	}
	return list, nil
}

// CapacityViews 带分级的员工负载
func (s *AssignmentService) CapacityViews(ctx context.Context) ([]models.CapacityView, error) {
	list, err := s.Capacities(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.CapacityView, 0, len(list))
	for _, c := range list {
		views = append(views, models.NewCapacityView(c))
	}
	return views, nil
}

// Assign 校验并提交分配。远端确认后记录历史、清空负载缓存并发布事件。
func (s *AssignmentService) Assign(
	ctx context.Context,
	targets []models.AssignmentTarget,
	employeeID string,
	priority models.Priority,
	notes string,
	operator *utils.LoginUser,
) (AssignmentResult, error) {
	if len(targets) == 0 {
		return AssignmentResult{}, utils.ErrEmptyTargets
	}

	capacities, err := s.Capacities(ctx)
	if err != nil {
		return AssignmentResult{}, err
	}
	index := models.CapacityIndex(capacities)

	req, err := PlanAssignment(targets, employeeID, index, priority, notes)
	if err != nil {
		return AssignmentResult{}, err
	}

	requestID, err := s.gateway.SubmitAssignment(ctx, req)
	// 远端状态可能已变化，成功与否都清掉缓存
	if evictErr := s.cache.Evict(ctx); evictErr != nil {
		utils.LogWarn(evictErr, nil, "清除负载缓存失败")
	}
	if err != nil {
		return AssignmentResult{}, err
	}

	result := AssignmentResult{
		RequestID: requestID,
		Request:   req,
		Bulk:      req.IsBulk(),
	}
	employee := index[req.EmployeeID]
	if employee.Tier() == models.CapacityNearCapacity {
		result.Warning = "员工负载接近上限"
	}

	opType := models.AssignmentOperationSingle
	if req.IsBulk() {
		opType = models.AssignmentOperationBulk
	}
	history := &models.AssignmentHistory{
		RequestID:     requestID,
		EntityType:    req.EntityType,
		TargetIDs:     req.TargetIDs,
		EmployeeID:    req.EmployeeID,
		EmployeeName:  employee.EmployeeName,
		Priority:      req.Priority,
		Notes:         req.Notes,
		OperatorID:    operatorID(operator),
		OperatorName:  operatorName(operator),
		OperationType: opType,
		CreatedAt:     s.now(),
	}
	// 分配已经生效，历史写入失败只记录日志
	if err := s.audit.SaveAssignmentHistory(ctx, history); err != nil {
		utils.LogError(err, map[string]interface{}{"requestId": requestID}, "保存分配历史失败")
	}

	utils.LogInfo(map[string]interface{}{
		"requestId":  requestID,
		"entityType": req.EntityType,
		"count":      len(req.TargetIDs),
		"employeeId": req.EmployeeID,
	}, "分配提交成功")

	publishEvent(ctx, s.publisher, events.TypeAssignmentSubmitted, events.AssignmentSubmitted{
		RequestID:  requestID,
		EntityType: string(req.EntityType),
		TargetIDs:  req.TargetIDs,
		EmployeeID: req.EmployeeID,
		Bulk:       req.IsBulk(),
		OperatorID: operatorID(operator),
	})

	return result, nil
}

// History 查询分配历史
func (s *AssignmentService) History(ctx context.Context, filter models.AssignmentHistoryFilter) ([]models.AssignmentHistory, error) {
	if filter.EntityType != "" && !filter.EntityType.IsValid() {
		return nil, utils.CreateBadRequestError("无效的分配对象类型: " + string(filter.EntityType))
	}
	return s.audit.ListAssignmentHistory(ctx, filter)
}
