package repos

import (
	"errors"

	"gorm.io/gorm"

	pkgerr "github.com/reai/reai-backend/internal/pkg/errors"
	"github.com/reai/reai-backend/internal/platform/dbctx"
	"github.com/reai/reai-backend/internal/platform/logger"
	"github.com/reai/reai-backend/internal/types"
)

type DepartmentRepo interface {
	Create(dbc dbctx.Context, department *types.Department) (*types.Department, error)
	GetByID(dbc dbctx.Context, id int64) (*types.Department, error)
	GetByName(dbc dbctx.Context, name string) (*types.Department, error)
	List(dbc dbctx.Context) ([]*types.Department, error)
}

type departmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDepartmentRepo(db *gorm.DB, baseLog *logger.Logger) DepartmentRepo {
	repoLog := baseLog.With("repo", "DepartmentRepo")
	return &departmentRepo{db: db, log: repoLog}
}

func (r *departmentRepo) Create(dbc dbctx.Context, department *types.Department) (*types.Department, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).Create(department).Error; err != nil {
		return nil, err
	}
	return department, nil
}

func (r *departmentRepo) GetByID(dbc dbctx.Context, id int64) (*types.Department, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var department types.Department
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&department).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerr.ErrNotFound
		}
		return nil, err
	}
	return &department, nil
}

func (r *departmentRepo) GetByName(dbc dbctx.Context, name string) (*types.Department, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var department types.Department
	if err := transaction.WithContext(dbc.Ctx).
		Where("name = ?", name).
		First(&department).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerr.ErrNotFound
		}
		return nil, err
	}
	return &department, nil
}

func (r *departmentRepo) List(dbc dbctx.Context) ([]*types.Department, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Department
	if err := transaction.WithContext(dbc.Ctx).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
