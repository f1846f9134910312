package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/skillhut/skillhut/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo identitydomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo identitydomain.Repository
}

func NewService(p Params) identitydomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("identity.service"),
		repo: p.Repo,
	}
}

func (s *Service) FindUserByEmail(ctx context.Context, email string) (*identitydomain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	return s.repo.FindByEmail(ctx, s.db, email)
}

func (s *Service) FindUserByCustomerRef(ctx context.Context, customerRef string) (*identitydomain.User, error) {
	customerRef = strings.TrimSpace(customerRef)
	if customerRef == "" {
		return nil, nil
	}
	return s.repo.FindByCustomerRef(ctx, s.db, customerRef)
}

func (s *Service) LinkGatewayCustomer(ctx context.Context, userID snowflake.ID, customerRef string) error {
	customerRef = strings.TrimSpace(customerRef)
	if userID == 0 || customerRef == "" {
		return nil
	}
	return s.repo.SetGatewayCustomerRef(ctx, s.db, userID, customerRef)
}

func (s *Service) SetSubscriptionStatus(ctx context.Context, userID snowflake.ID, status string) error {
	if userID == 0 {
		return nil
	}
	status = strings.TrimSpace(status)
	if status == "" {
		status = identitydomain.SubscriptionStatusNone
	}
	return s.repo.SetSubscriptionStatus(ctx, s.db, userID, status)
}
