package customers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/boticalabs/botica-backend/pkg/db"
	"github.com/boticalabs/botica-backend/pkg/enums"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
	"github.com/boticalabs/botica-backend/pkg/outbox"
	"github.com/boticalabs/botica-backend/pkg/outbox/payloads"
	"github.com/boticalabs/botica-backend/pkg/pagination"
	"github.com/boticalabs/botica-backend/pkg/types"
)

// Service exposes customer profile and wholesale verification operations.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*CustomerDTO, error)
	UpdateShippingAddress(ctx context.Context, customerID uuid.UUID, address types.Address) (*CustomerDTO, error)
	ListPendingWholesale(ctx context.Context, page pagination.Params) (*PendingListResult, error)
	Verify(ctx context.Context, customerID, verifiedBy uuid.UUID) (*CustomerDTO, error)
}

type service struct {
	repo     *Repository
	dbClient *dbpkg.Client
	outbox   *outbox.Service
}

// NewService constructs a customers service instance.
func NewService(repo *Repository, dbClient *dbpkg.Client, outboxSvc *outbox.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{repo: repo, dbClient: dbClient, outbox: outboxSvc}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*CustomerDTO, error) {
	customer, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer profile")
	}
	return NewCustomerDTO(customer), nil
}

func (s *service) UpdateShippingAddress(ctx context.Context, customerID uuid.UUID, address types.Address) (*CustomerDTO, error) {
	if err := s.repo.UpdateShippingAddress(ctx, customerID, &address); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update shipping address")
	}
	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload customer")
	}
	return NewCustomerDTO(customer), nil
}

func (s *service) ListPendingWholesale(ctx context.Context, page pagination.Params) (*PendingListResult, error) {
	rows, nextCursor, err := s.repo.ListPendingWholesale(ctx, page)
	if err != nil {
		if pkgErr := pkgerrors.As(err); pkgErr != nil {
			return nil, pkgErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending wholesale customers")
	}
	result := &PendingListResult{
		Customers:  make([]CustomerDTO, 0, len(rows)),
		NextCursor: nextCursor,
	}
	for i := range rows {
		result.Customers = append(result.Customers, *NewCustomerDTO(&rows[i]))
	}
	return result, nil
}

// Verify approves a wholesale application. The verification stamp and the
// customer_verified event commit in the same transaction; verifying an
// already-verified or retail account is rejected.
func (s *service) Verify(ctx context.Context, customerID, verifiedBy uuid.UUID) (*CustomerDTO, error) {
	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}
	if customer.Type != enums.CustomerTypeWholesale {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only wholesale accounts require verification")
	}
	if customer.IsVerified() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "customer already verified")
	}

	now := time.Now().UTC()
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.repo.WithTx(tx).MarkVerified(ctx, customerID, verifiedBy, now)
		if err != nil {
			return err
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "customer already verified")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCustomerVerified,
			AggregateType: enums.AggregateCustomer,
			AggregateID:   customer.ID,
			Actor:         &outbox.ActorRef{UserID: verifiedBy, Role: enums.RoleAdmin.String()},
			Data: payloads.CustomerVerifiedEvent{
				CustomerID:   customer.ID,
				UserID:       customer.UserID,
				CustomerType: customer.Type,
				VerifiedBy:   verifiedBy,
				VerifiedAt:   now,
			},
			Version: 1,
		})
	})
	if err != nil {
		if pkgErr := pkgerrors.As(err); pkgErr != nil {
			return nil, pkgErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify customer")
	}

	customer.VerifiedAt = &now
	customer.VerifiedBy = &verifiedBy
	return NewCustomerDTO(customer), nil
}
