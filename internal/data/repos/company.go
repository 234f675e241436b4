package repos

import (
	"errors"

	"gorm.io/gorm"

	pkgerr "github.com/reai/reai-backend/internal/pkg/errors"
	"github.com/reai/reai-backend/internal/platform/dbctx"
	"github.com/reai/reai-backend/internal/platform/logger"
	"github.com/reai/reai-backend/internal/types"
)

type CompanyRepo interface {
	Create(dbc dbctx.Context, company *types.FinancialCompany) (*types.FinancialCompany, error)
	GetByID(dbc dbctx.Context, id int64) (*types.FinancialCompany, error)
	GetByAppID(dbc dbctx.Context, appID string) (*types.FinancialCompany, error)
	List(dbc dbctx.Context) ([]*types.FinancialCompany, error)
}

type companyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompanyRepo(db *gorm.DB, baseLog *logger.Logger) CompanyRepo {
	repoLog := baseLog.With("repo", "CompanyRepo")
	return &companyRepo{db: db, log: repoLog}
}

func (r *companyRepo) Create(dbc dbctx.Context, company *types.FinancialCompany) (*types.FinancialCompany, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).Create(company).Error; err != nil {
		return nil, err
	}
	return company, nil
}

func (r *companyRepo) GetByID(dbc dbctx.Context, id int64) (*types.FinancialCompany, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var company types.FinancialCompany
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerr.ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

func (r *companyRepo) GetByAppID(dbc dbctx.Context, appID string) (*types.FinancialCompany, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var company types.FinancialCompany
	if err := transaction.WithContext(dbc.Ctx).
		Where("app_id = ?", appID).
		First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerr.ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

func (r *companyRepo) List(dbc dbctx.Context) ([]*types.FinancialCompany, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.FinancialCompany
	if err := transaction.WithContext(dbc.Ctx).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
