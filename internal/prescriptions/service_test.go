package prescriptions

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/pkg/config"
	"github.com/boticalabs/botica-backend/pkg/db"
	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
	"github.com/boticalabs/botica-backend/pkg/outbox"
	"github.com/boticalabs/botica-backend/pkg/pagination"
)

const prescriptionsSchema = `
CREATE TABLE IF NOT EXISTS prescriptions (
	id uuid PRIMARY KEY,
	customer_id uuid NOT NULL,
	order_id uuid,
	object_path text NOT NULL,
	content_type text NOT NULL,
	status text NOT NULL DEFAULT 'submitted',
	product_ids text NOT NULL DEFAULT '{}',
	reviewed_by uuid,
	reviewed_at datetime,
	rejection_reason text,
	created_at datetime,
	updated_at datetime
);
CREATE TABLE IF NOT EXISTS outbox_events (
	id uuid PRIMARY KEY,
	event_type text NOT NULL,
	aggregate_type text NOT NULL,
	aggregate_id uuid NOT NULL,
	payload text NOT NULL,
	created_at datetime,
	published_at datetime,
	attempt_count integer NOT NULL DEFAULT 0,
	last_error text
);
`

type stubSigner struct {
	uploads   []string
	downloads []string
}

func (s *stubSigner) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	s.uploads = append(s.uploads, object)
	return "https://storage.example.com/upload/" + object, nil
}

func (s *stubSigner) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	s.downloads = append(s.downloads, object)
	return "https://storage.example.com/read/" + object, nil
}

func newPrescriptionsEnv(t *testing.T) (Service, *db.Client, *stubSigner) {
	t.Helper()

	client, err := db.New(context.Background(), config.DBConfig{
		Driver: "sqlite",
		DSN:    "file:botica_rx_" + uuid.NewString() + "?mode=memory&cache=shared",
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	if err := client.DB().Exec(prescriptionsSchema).Error; err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	signer := &stubSigner{}
	outboxSvc := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	svc, err := NewService(NewRepository(client.DB()), signer, client, outboxSvc, config.GCSConfig{
		BucketName:        "botica-prescriptions",
		UploadURLExpiry:   15 * time.Minute,
		DownloadURLExpiry: 5 * time.Minute,
		MaxUploadMB:       20,
	}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, client, signer
}

func countEvents(t *testing.T, client *db.Client, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	if err := client.DB().Model(&models.OutboxEvent{}).
		Where("event_type = ?", eventType).Count(&count).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	return count
}

func TestRequestUploadScopesPathToCustomer(t *testing.T) {
	svc, _, signer := newPrescriptionsEnv(t)

	customerID := uuid.New()
	ticket, err := svc.RequestUpload(context.Background(), customerID, "application/pdf")
	if err != nil {
		t.Fatalf("request upload: %v", err)
	}
	if !strings.HasPrefix(ticket.ObjectPath, "prescriptions/"+customerID.String()+"/") {
		t.Fatalf("object path must live under the customer prefix, got %s", ticket.ObjectPath)
	}
	if ticket.UploadURL == "" || ticket.MaxSizeMB != 20 {
		t.Fatalf("unexpected ticket %+v", ticket)
	}
	if len(signer.uploads) != 1 {
		t.Fatalf("expected one signed upload, got %d", len(signer.uploads))
	}
}

func TestRequestUploadRejectsContentType(t *testing.T) {
	svc, _, _ := newPrescriptionsEnv(t)

	_, err := svc.RequestUpload(context.Background(), uuid.New(), "video/mp4")
	pkgErr := pkgerrors.As(err)
	if pkgErr == nil || pkgErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestSubmitQueuesForReview(t *testing.T) {
	svc, client, _ := newPrescriptionsEnv(t)
	ctx := context.Background()

	customerID := uuid.New()
	ticket, err := svc.RequestUpload(ctx, customerID, "image/jpeg")
	if err != nil {
		t.Fatalf("request upload: %v", err)
	}

	rx, err := svc.Submit(ctx, SubmitInput{
		CustomerID:  customerID,
		ActorUserID: uuid.New(),
		ObjectPath:  ticket.ObjectPath,
		ContentType: ticket.ContentType,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rx.Status != enums.PrescriptionStatusSubmitted {
		t.Fatalf("expected submitted, got %s", rx.Status)
	}
	if got := countEvents(t, client, enums.EventPrescriptionSubmitted); got != 1 {
		t.Fatalf("expected one prescription_submitted event, got %d", got)
	}
}

func TestSubmitRejectsForeignObjectPath(t *testing.T) {
	svc, _, _ := newPrescriptionsEnv(t)

	_, err := svc.Submit(context.Background(), SubmitInput{
		CustomerID:  uuid.New(),
		ActorUserID: uuid.New(),
		ObjectPath:  "prescriptions/" + uuid.NewString() + "/" + uuid.NewString(),
		ContentType: "image/png",
	})
	pkgErr := pkgerrors.As(err)
	if pkgErr == nil || pkgErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for foreign path, got %v", err)
	}
}

func TestReviewApproveRecordsCoverage(t *testing.T) {
	svc, client, _ := newPrescriptionsEnv(t)
	ctx := context.Background()

	customerID := uuid.New()
	ticket, _ := svc.RequestUpload(ctx, customerID, "application/pdf")
	rx, err := svc.Submit(ctx, SubmitInput{
		CustomerID:  customerID,
		ActorUserID: uuid.New(),
		ObjectPath:  ticket.ObjectPath,
		ContentType: ticket.ContentType,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	reviewer := uuid.New()
	productID := uuid.New()
	reviewed, err := svc.Review(ctx, ReviewInput{
		PrescriptionID: rx.ID,
		ReviewerID:     reviewer,
		Approve:        true,
		ProductIDs:     []uuid.UUID{productID},
	})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != enums.PrescriptionStatusApproved {
		t.Fatalf("expected approved, got %s", reviewed.Status)
	}
	if len(reviewed.ProductIDs) != 1 || reviewed.ProductIDs[0] != productID {
		t.Fatalf("expected coverage to record the product, got %v", reviewed.ProductIDs)
	}
	if got := countEvents(t, client, enums.EventPrescriptionReviewed); got != 1 {
		t.Fatalf("expected one prescription_reviewed event, got %d", got)
	}

	// A second decision on the same document conflicts.
	reason := "duplicate"
	_, err = svc.Review(ctx, ReviewInput{
		PrescriptionID:  rx.ID,
		ReviewerID:      reviewer,
		Approve:         false,
		RejectionReason: &reason,
	})
	pkgErr := pkgerrors.As(err)
	if pkgErr == nil || pkgErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT on double review, got %v", err)
	}
}

func TestReviewRejectRequiresReason(t *testing.T) {
	svc, _, _ := newPrescriptionsEnv(t)

	_, err := svc.Review(context.Background(), ReviewInput{
		PrescriptionID: uuid.New(),
		ReviewerID:     uuid.New(),
		Approve:        false,
	})
	pkgErr := pkgerrors.As(err)
	if pkgErr == nil || pkgErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestGetPrescriptionHidesForeignDocuments(t *testing.T) {
	svc, _, signer := newPrescriptionsEnv(t)
	ctx := context.Background()

	customerID := uuid.New()
	ticket, _ := svc.RequestUpload(ctx, customerID, "image/png")
	rx, err := svc.Submit(ctx, SubmitInput{
		CustomerID:  customerID,
		ActorUserID: uuid.New(),
		ObjectPath:  ticket.ObjectPath,
		ContentType: ticket.ContentType,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	other := uuid.New()
	if _, err := svc.GetPrescription(ctx, rx.ID, &other); err == nil {
		t.Fatalf("expected foreign prescription to be hidden")
	}

	own, err := svc.GetPrescription(ctx, rx.ID, &customerID)
	if err != nil {
		t.Fatalf("get own prescription: %v", err)
	}
	if own.DocumentURL == "" {
		t.Fatalf("expected a signed read url")
	}
	if len(signer.downloads) != 1 {
		t.Fatalf("expected one signed download, got %d", len(signer.downloads))
	}
}

func TestListPendingReviewOldestFirst(t *testing.T) {
	svc, client, _ := newPrescriptionsEnv(t)
	ctx := context.Background()

	customerID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		ticket, _ := svc.RequestUpload(ctx, customerID, "application/pdf")
		rx, err := svc.Submit(ctx, SubmitInput{
			CustomerID:  customerID,
			ActorUserID: uuid.New(),
			ObjectPath:  ticket.ObjectPath,
			ContentType: ticket.ContentType,
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if err := client.DB().Model(&models.Prescription{}).
			Where("id = ?", rx.ID).
			UpdateColumn("created_at", base.Add(time.Duration(i)*time.Minute)).Error; err != nil {
			t.Fatalf("backdate: %v", err)
		}
		ids = append(ids, rx.ID)
	}

	list, err := svc.ListPendingReview(ctx, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(list.Items) != 2 || list.NextCursor == "" {
		t.Fatalf("expected a full first page with a cursor, got %d items", len(list.Items))
	}
	if list.Items[0].ID != ids[0] {
		t.Fatalf("queue must be oldest first")
	}

	rest, err := svc.ListPendingReview(ctx, pagination.Params{Limit: 2, Cursor: list.NextCursor})
	if err != nil {
		t.Fatalf("list rest: %v", err)
	}
	if len(rest.Items) != 1 || rest.Items[0].ID != ids[2] {
		t.Fatalf("expected the last document on the second page")
	}
}
