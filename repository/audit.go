package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BerniceZTT/crm_followup/models"
)

const defaultHistoryLimit = 100

// AuditStore 本地审计数据：写操作日志与分配历史
type AuditStore interface {
	SaveOperationLog(ctx context.Context, log *models.OperationLog) error
	SaveAssignmentHistory(ctx context.Context, h *models.AssignmentHistory) error
	ListAssignmentHistory(ctx context.Context, filter models.AssignmentHistoryFilter) ([]models.AssignmentHistory, error)
}

type mongoAuditStore struct {
	db *mongo.Database
}

// NewMongoAuditStore 基于MongoDB的审计存储
func NewMongoAuditStore(database *mongo.Database) AuditStore {
	return &mongoAuditStore{db: database}
}

func (s *mongoAuditStore) SaveOperationLog(ctx context.Context, log *models.OperationLog) error {
	return ExecuteDbOperation(ctx, func(ctx context.Context) error {
		_, err := s.db.Collection(ApiOperationLogsCollection).InsertOne(ctx, log)
		return err
	}, 2)
}

func (s *mongoAuditStore) SaveAssignmentHistory(ctx context.Context, h *models.AssignmentHistory) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	return ExecuteDbOperation(ctx, func(ctx context.Context) error {
		result, err := s.db.Collection(AssignmentHistoryCollection).InsertOne(ctx, h)
		if err != nil {
			return err
		}
		if id, ok := result.InsertedID.(primitive.ObjectID); ok {
			h.ID = id
		}
		return nil
	}, 3)
}

func (s *mongoAuditStore) ListAssignmentHistory(ctx context.Context, filter models.AssignmentHistoryFilter) ([]models.AssignmentHistory, error) {
	query := bson.M{}
	if filter.EmployeeID != "" {
		query["employeeid"] = filter.EmployeeID
	}
	if filter.EntityType != "" {
		query["entitytype"] = filter.EntityType
	}
	if filter.TargetID != "" {
		query["targetids"] = filter.TargetID
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	findOptions := options.Find().SetSort(bson.M{"createdat": -1}).SetLimit(limit)

	cursor, err := s.db.Collection(AssignmentHistoryCollection).Find(ctx, query, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	history := []models.AssignmentHistory{}
	if err := cursor.All(ctx, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// MemoryAuditStore 未配置MongoDB时使用，进程内保存
type MemoryAuditStore struct {
	mu      sync.RWMutex
	logs    []models.OperationLog
	history []models.AssignmentHistory
}

// NewMemoryAuditStore 创建内存审计存储
func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

func (s *MemoryAuditStore) SaveOperationLog(_ context.Context, log *models.OperationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	s.logs = append(s.logs, *log)
	return nil
}

func (s *MemoryAuditStore) SaveAssignmentHistory(_ context.Context, h *models.AssignmentHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID.IsZero() {
		h.ID = primitive.NewObjectID()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	stored := *h
	stored.TargetIDs = append([]string(nil), h.TargetIDs...)
	s.history = append(s.history, stored)
	return nil
}

func (s *MemoryAuditStore) ListAssignmentHistory(_ context.Context, filter models.AssignmentHistoryFilter) ([]models.AssignmentHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.AssignmentHistory{}
	for _, h := range s.history {
		if filter.EmployeeID != "" && h.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.EntityType != "" && h.EntityType != filter.EntityType {
			continue
		}
		if filter.TargetID != "" && !containsID(h.TargetIDs, filter.TargetID) {
			continue
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	limit := int(filter.Limit)
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// OperationLogs 已记录的操作日志
func (s *MemoryAuditStore) OperationLogs() []models.OperationLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.OperationLog(nil), s.logs...)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
