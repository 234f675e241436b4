package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/reai/reai-backend/internal/data/repos"
	pkgerr "github.com/reai/reai-backend/internal/pkg/errors"
	"github.com/reai/reai-backend/internal/platform/dbctx"
	"github.com/reai/reai-backend/internal/platform/logger"
	"github.com/reai/reai-backend/internal/types"
)

type CreateCompanyInput struct {
	Name     string `json:"name"`
	AppID    string `json:"app_id"`
	Category string `json:"category"`
}

type CompanyService interface {
	Create(ctx context.Context, input CreateCompanyInput) (*types.FinancialCompany, error)
	Get(ctx context.Context, id int64) (*types.FinancialCompany, error)
	GetByAppID(ctx context.Context, appID string) (*types.FinancialCompany, error)
	List(ctx context.Context) ([]*types.FinancialCompany, error)
}

type companyService struct {
	db        *gorm.DB
	log       *logger.Logger
	companies repos.CompanyRepo
}

func NewCompanyService(db *gorm.DB, log *logger.Logger, companies repos.CompanyRepo) CompanyService {
	serviceLog := log.With("service", "CompanyService")
	return &companyService{db: db, log: serviceLog, companies: companies}
}

func (s *companyService) Create(ctx context.Context, input CreateCompanyInput) (*types.FinancialCompany, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", pkgerr.ErrInvalidArgument)
	}
	if input.AppID == "" {
		return nil, fmt.Errorf("%w: app_id is required", pkgerr.ErrInvalidArgument)
	}

	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.companies.GetByAppID(dbc, input.AppID); err == nil {
		return nil, fmt.Errorf("%w: app_id %q", pkgerr.ErrAlreadyExists, input.AppID)
	} else if !errors.Is(err, pkgerr.ErrNotFound) {
		return nil, err
	}

	company, err := s.companies.Create(dbc, &types.FinancialCompany{
		Name:     input.Name,
		AppID:    input.AppID,
		Category: input.Category,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Company created", "company_id", company.ID, "app_id", company.AppID)
	return company, nil
}

func (s *companyService) Get(ctx context.Context, id int64) (*types.FinancialCompany, error) {
	return s.companies.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *companyService) GetByAppID(ctx context.Context, appID string) (*types.FinancialCompany, error) {
	return s.companies.GetByAppID(dbctx.Context{Ctx: ctx}, appID)
}

func (s *companyService) List(ctx context.Context) ([]*types.FinancialCompany, error) {
	return s.companies.List(dbctx.Context{Ctx: ctx})
}
