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

type CreateDepartmentInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

type DepartmentService interface {
	Create(ctx context.Context, input CreateDepartmentInput) (*types.Department, error)
	Get(ctx context.Context, id int64) (*types.Department, error)
	List(ctx context.Context) ([]*types.Department, error)
}

type departmentService struct {
	db          *gorm.DB
	log         *logger.Logger
	departments repos.DepartmentRepo
}

func NewDepartmentService(db *gorm.DB, log *logger.Logger, departments repos.DepartmentRepo) DepartmentService {
	serviceLog := log.With("service", "DepartmentService")
	return &departmentService{db: db, log: serviceLog, departments: departments}
}

func (s *departmentService) Create(ctx context.Context, input CreateDepartmentInput) (*types.Department, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", pkgerr.ErrInvalidArgument)
	}

	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.departments.GetByName(dbc, input.Name); err == nil {
		return nil, fmt.Errorf("%w: department %q", pkgerr.ErrAlreadyExists, input.Name)
	} else if !errors.Is(err, pkgerr.ErrNotFound) {
		return nil, err
	}

	department := &types.Department{
		Name:        input.Name,
		Description: input.Description,
	}
	if err := department.SetKeywords(input.Keywords); err != nil {
		return nil, fmt.Errorf("%w: keywords: %v", pkgerr.ErrInvalidArgument, err)
	}

	created, err := s.departments.Create(dbc, department)
	if err != nil {
		return nil, err
	}
	s.log.Info("Department created", "department_id", created.ID, "name", created.Name)
	return created, nil
}

func (s *departmentService) Get(ctx context.Context, id int64) (*types.Department, error) {
	return s.departments.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *departmentService) List(ctx context.Context) ([]*types.Department, error) {
	return s.departments.List(dbctx.Context{Ctx: ctx})
}
