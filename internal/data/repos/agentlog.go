package repos

import (
	"gorm.io/gorm"

	"github.com/reai/reai-backend/internal/platform/dbctx"
	"github.com/reai/reai-backend/internal/platform/logger"
	"github.com/reai/reai-backend/internal/types"
)

type AgentLogRepo interface {
	Create(dbc dbctx.Context, entry *types.AgentLog) (*types.AgentLog, error)
	ListByReviewID(dbc dbctx.Context, reviewID int64) ([]*types.AgentLog, error)
}

type agentLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentLogRepo(db *gorm.DB, baseLog *logger.Logger) AgentLogRepo {
	repoLog := baseLog.With("repo", "AgentLogRepo")
	return &agentLogRepo{db: db, log: repoLog}
}

func (r *agentLogRepo) Create(dbc dbctx.Context, entry *types.AgentLog) (*types.AgentLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *agentLogRepo) ListByReviewID(dbc dbctx.Context, reviewID int64) ([]*types.AgentLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AgentLog
	if err := transaction.WithContext(dbc.Ctx).
		Where("review_id = ?", reviewID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
