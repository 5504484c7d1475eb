package prescriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boticalabs/botica-backend/pkg/config"
	"github.com/boticalabs/botica-backend/pkg/db/models"
	dbtypes "github.com/boticalabs/botica-backend/pkg/db/types"
	"github.com/boticalabs/botica-backend/pkg/enums"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
	"github.com/boticalabs/botica-backend/pkg/logger"
	"github.com/boticalabs/botica-backend/pkg/outbox"
	"github.com/boticalabs/botica-backend/pkg/outbox/payloads"
	"github.com/boticalabs/botica-backend/pkg/pagination"
)

// Prescription scans and photos only. Videos and office formats have no
// business here.
var allowedContentTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"application/pdf": {},
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// documentSigner is the slice of the GCS client the service needs: pre-signed
// upload and download URLs against the prescriptions bucket.
type documentSigner interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
}

// SubmitInput registers an uploaded document for pharmacist review.
type SubmitInput struct {
	CustomerID  uuid.UUID
	ActorUserID uuid.UUID
	ObjectPath  string
	ContentType string
}

// ReviewInput carries a pharmacist's decision on a submitted prescription.
type ReviewInput struct {
	PrescriptionID  uuid.UUID
	ReviewerID      uuid.UUID
	Approve         bool
	ProductIDs      []uuid.UUID
	RejectionReason *string
}

// Service manages prescription uploads and the pharmacist review queue.
type Service interface {
	RequestUpload(ctx context.Context, customerID uuid.UUID, contentType string) (*UploadTicketDTO, error)
	Submit(ctx context.Context, input SubmitInput) (*PrescriptionDTO, error)
	GetPrescription(ctx context.Context, id uuid.UUID, forCustomer *uuid.UUID) (*PrescriptionDTO, error)
	ListCustomerPrescriptions(ctx context.Context, customerID uuid.UUID, page pagination.Params) (*PrescriptionList, error)
	ListPendingReview(ctx context.Context, page pagination.Params) (*PrescriptionList, error)
	Review(ctx context.Context, input ReviewInput) (*PrescriptionDTO, error)
}

type service struct {
	repo   *Repository
	signer documentSigner
	tx     txRunner
	outbox outboxPublisher
	cfg    config.GCSConfig
	logg   *logger.Logger
}

// NewService builds a prescription service with the required dependencies.
func NewService(repo *Repository, signer documentSigner, tx txRunner, outboxSvc outboxPublisher, cfg config.GCSConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("prescriptions repository required")
	}
	if signer == nil {
		return nil, fmt.Errorf("document signer required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		signer: signer,
		tx:     tx,
		outbox: outboxSvc,
		cfg:    cfg,
		logg:   logg,
	}, nil
}

// RequestUpload issues a pre-signed PUT URL. Documents land under the
// customer's own prefix so ownership is encoded in the path.
func (s *service) RequestUpload(ctx context.Context, customerID uuid.UUID, contentType string) (*UploadTicketDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if _, ok := allowedContentTypes[contentType]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unsupported content type %q: prescriptions accept JPEG, PNG, WebP, or PDF", contentType))
	}

	objectPath := objectPathFor(customerID)
	uploadURL, err := s.signer.SignedURL(s.cfg.BucketName, objectPath, contentType, s.cfg.UploadURLExpiry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	return &UploadTicketDTO{
		UploadURL:   uploadURL,
		ObjectPath:  objectPath,
		ContentType: contentType,
		ExpiresAt:   time.Now().UTC().Add(s.cfg.UploadURLExpiry),
		MaxSizeMB:   s.cfg.MaxUploadMB,
	}, nil
}

// Submit records the uploaded document and queues it for pharmacist review.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*PrescriptionDTO, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	if _, ok := allowedContentTypes[contentType]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported content type")
	}
	objectPath := strings.TrimSpace(input.ObjectPath)
	if !strings.HasPrefix(objectPath, objectPrefixFor(input.CustomerID)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "object path does not match the upload ticket")
	}

	rx := &models.Prescription{
		CustomerID:  input.CustomerID,
		ObjectPath:  objectPath,
		ContentType: contentType,
		Status:      enums.PrescriptionStatusSubmitted,
		ProductIDs:  dbtypes.UUIDArray{},
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, rx); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create prescription")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPrescriptionSubmitted,
			AggregateType: enums.AggregatePrescription,
			AggregateID:   rx.ID,
			Version:       1,
			Actor: &outbox.ActorRef{
				UserID:     input.ActorUserID,
				CustomerID: &input.CustomerID,
				Role:       enums.RoleCustomer.String(),
			},
			Data: payloads.PrescriptionSubmittedEvent{
				PrescriptionID: rx.ID,
				CustomerID:     rx.CustomerID,
				SubmittedAt:    time.Now().UTC(),
			},
		})
	})
	if err != nil {
		if pkgErr := pkgerrors.As(err); pkgErr != nil {
			return nil, pkgErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "submit prescription")
	}
	return NewPrescriptionDTO(rx), nil
}

// GetPrescription loads a prescription and attaches a signed read URL.
// Customers only see their own documents.
func (s *service) GetPrescription(ctx context.Context, id uuid.UUID, forCustomer *uuid.UUID) (*PrescriptionDTO, error) {
	rx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load prescription")
	}
	if forCustomer != nil && rx.CustomerID != *forCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
	}

	dto := NewPrescriptionDTO(rx)
	s.attachDocumentURL(ctx, dto, rx.ObjectPath)
	return dto, nil
}

// ListCustomerPrescriptions pages through the customer's own documents.
func (s *service) ListCustomerPrescriptions(ctx context.Context, customerID uuid.UUID, page pagination.Params) (*PrescriptionList, error) {
	rows, nextCursor, err := s.repo.ListByCustomer(ctx, customerID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list prescriptions")
	}
	return s.toList(ctx, rows, nextCursor, false), nil
}

// ListPendingReview pages the pharmacist queue with signed read URLs so the
// documents open straight from the list.
func (s *service) ListPendingReview(ctx context.Context, page pagination.Params) (*PrescriptionList, error) {
	rows, nextCursor, err := s.repo.ListPendingReview(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending prescriptions")
	}
	return s.toList(ctx, rows, nextCursor, true), nil
}

// Review applies an approve or reject decision. Approval names the products
// the document covers; rejection carries the reason back to the customer.
func (s *service) Review(ctx context.Context, input ReviewInput) (*PrescriptionDTO, error) {
	if input.ReviewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviewer id required")
	}
	if input.Approve && len(input.ProductIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approval must name at least one covered product")
	}
	if !input.Approve && (input.RejectionReason == nil || strings.TrimSpace(*input.RejectionReason) == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection requires a reason")
	}

	rx, err := s.repo.FindByID(ctx, input.PrescriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load prescription")
	}
	if rx.Status != enums.PrescriptionStatusSubmitted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "prescription already reviewed")
	}

	now := time.Now().UTC()
	status := enums.PrescriptionStatusRejected
	updates := map[string]any{
		"reviewed_by": input.ReviewerID,
		"reviewed_at": now,
	}
	if input.Approve {
		status = enums.PrescriptionStatusApproved
		updates["product_ids"] = dbtypes.UUIDArray(input.ProductIDs)
	} else {
		updates["rejection_reason"] = strings.TrimSpace(*input.RejectionReason)
	}
	updates["status"] = status

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.repo.WithTx(tx).Review(ctx, rx.ID, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "review prescription")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "prescription already reviewed")
		}

		reason := ""
		if !input.Approve {
			reason = strings.TrimSpace(*input.RejectionReason)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPrescriptionReviewed,
			AggregateType: enums.AggregatePrescription,
			AggregateID:   rx.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ReviewerID, Role: enums.RolePharmacist.String()},
			Data: payloads.PrescriptionReviewedEvent{
				PrescriptionID:  rx.ID,
				CustomerID:      rx.CustomerID,
				OrderID:         rx.OrderID,
				Status:          status,
				ReviewedBy:      input.ReviewerID,
				RejectionReason: reason,
			},
		})
	})
	if err != nil {
		if pkgErr := pkgerrors.As(err); pkgErr != nil {
			return nil, pkgErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "review prescription")
	}

	rx.Status = status
	rx.ReviewedBy = &input.ReviewerID
	rx.ReviewedAt = &now
	if input.Approve {
		rx.ProductIDs = dbtypes.UUIDArray(input.ProductIDs)
	} else {
		reason := strings.TrimSpace(*input.RejectionReason)
		rx.RejectionReason = &reason
	}
	return NewPrescriptionDTO(rx), nil
}

func (s *service) toList(ctx context.Context, rows []models.Prescription, nextCursor string, withURLs bool) *PrescriptionList {
	items := make([]PrescriptionDTO, 0, len(rows))
	for i := range rows {
		dto := NewPrescriptionDTO(&rows[i])
		if withURLs {
			s.attachDocumentURL(ctx, dto, rows[i].ObjectPath)
		}
		items = append(items, *dto)
	}
	return &PrescriptionList{Items: items, NextCursor: nextCursor}
}

// attachDocumentURL signs a read URL for the stored object. Signing failures
// degrade to a DTO without a URL rather than failing the read.
func (s *service) attachDocumentURL(ctx context.Context, dto *PrescriptionDTO, objectPath string) {
	url, err := s.signer.SignedReadURL(s.cfg.BucketName, objectPath, s.cfg.DownloadURLExpiry)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "failed to sign prescription read url")
		}
		return
	}
	dto.DocumentURL = url
}

func objectPrefixFor(customerID uuid.UUID) string {
	return "prescriptions/" + customerID.String() + "/"
}

func objectPathFor(customerID uuid.UUID) string {
	return objectPrefixFor(customerID) + uuid.NewString()
}
