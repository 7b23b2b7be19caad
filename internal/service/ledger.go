package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"fileflow/internal/model"
	"fileflow/internal/repository"
)

const (
	transactionIDPrefix   = "TXN"
	transactionIDBytes    = 16
	maxTransactionIDTries = 5

	defaultListLimit = 50
	maxListLimit     = 100
)

// SendRequest is the input of LedgerService.Send.
type SendRequest struct {
	ContentID        string
	SenderID         string
	RecipientEmail   string
	RecipientPhone   string
	TargetFolderName string
	Message          string
	// Type is one of direct, link or qr; empty means direct.
	Type string
}

// ShareListResult is the service-level DTO for paginated shares.
type ShareListResult struct {
	Items []model.Share `json:"data"`
	Total int           `json:"total"`
}

// LedgerService creates shares and moves them through sent -> delivered -> viewed.
type LedgerService interface {
	// Send records a new share. A recipient matching a registered account receives a
	// content record pointing at the sender's bytes, inside the named folder, and the
	// share is delivered. Otherwise the share stays sent. Any failure leaves no trace.
	Send(ctx context.Context, req SendRequest) (*model.Share, error)

	// MarkViewed moves a delivered share to viewed. Repeat calls return the share unchanged.
	MarkViewed(ctx context.Context, transactionID, viewerID string) (*model.Share, error)

	// Lookup returns the share if requesterID is its sender or resolved recipient and
	// ErrNotFound otherwise.
	Lookup(ctx context.Context, transactionID, requesterID string) (*model.Share, error)

	ListSent(ctx context.Context, accountID string, limit, offset int) (*ShareListResult, error)

	// ListReceived includes pending shares addressed to the account's email.
	ListReceived(ctx context.Context, accountID string, limit, offset int) (*ShareListResult, error)

	GetReceipt(ctx context.Context, transactionID, requesterID string) (*model.Receipt, error)
}

type ledgerService struct {
	uow     repository.UnitOfWork
	quota   *QuotaLedger
	metrics *Metrics
	log     logrus.FieldLogger

	now     func() time.Time
	newTxID func() (string, error)
}

// NewLedgerService constructs a new LedgerService. metrics may be nil.
func NewLedgerService(uow repository.UnitOfWork, quota *QuotaLedger, metrics *Metrics, log logrus.FieldLogger) LedgerService {
	return &ledgerService{
		uow:     uow,
		quota:   quota,
		metrics: metrics,
		log:     log,
		now:     time.Now,
		newTxID: NewTransactionID,
	}
}

// NewTransactionID returns "TXN" followed by 16 random bytes in base58.
func NewTransactionID() (string, error) {
	b := make([]byte, transactionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return transactionIDPrefix + base58.Encode(b), nil
}

func (s *ledgerService) Send(ctx context.Context, req SendRequest) (_ *model.Share, err error) {
	ctx, span := tracer.Start(ctx, "ledger.Send")
	defer func() { endSpan(span, err) }()

	email := NormalizeEmail(req.RecipientEmail)
	phone := NormalizePhone(req.RecipientPhone)
	if email == "" && phone == "" {
		return nil, ErrInvalidRecipient
	}
	folderName := strings.TrimSpace(req.TargetFolderName)
	if req.ContentID == "" || req.SenderID == "" || folderName == "" {
		return nil, ErrInvalidRequest
	}
	shareType, err := model.ParseShareType(req.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	var out *model.Share
	err = s.uow.Do(ctx, func(ctx context.Context, r repository.Repositories) error {
		src, err := s.sourceContent(ctx, r.Contents, req.ContentID, req.SenderID)
		if err != nil {
			return err
		}
		sender, err := r.Accounts.FindByID(ctx, req.SenderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		now := s.now().UTC()
		contact := model.Contact{Email: email, Phone: phone}
		share := &model.Share{
			ID:               uuid.NewString(),
			ContentID:        src.ID,
			Sender:           model.Sender{AccountID: sender.ID, Name: sender.DisplayName, Email: sender.Email},
			Recipient:        model.PendingContact{Address: contact},
			TargetFolderName: folderName,
			Message:          req.Message,
			Type:             shareType,
			Status:           model.StatusSent,
			CreatedAt:        now,
		}

		recipient, err := Resolve(ctx, r.Accounts, email, phone)
		if err != nil {
			return fmt.Errorf("resolve recipient: %w", err)
		}
		if recipient != nil {
			share.Recipient = model.ResolvedAccount{AccountID: recipient.ID, Name: recipient.DisplayName, Address: contact}
			if err := s.deliver(ctx, r, src, recipient.ID, folderName, now); err != nil {
				return err
			}
			if err := share.Transition(model.StatusDelivered, now); err != nil {
				return err
			}
		}

		out, err = s.insertShare(ctx, r.Shares, share)
		return err
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("share.transaction_id", out.TransactionID),
		attribute.String("share.status", string(out.Status)),
	)
	s.metrics.shareStatus(out.Status)
	s.log.WithFields(logrus.Fields{
		"transaction_id": out.TransactionID,
		"sender_id":      out.Sender.AccountID,
		"status":         out.Status,
	}).Info("share_created")
	return out, nil
}

// sourceContent loads the content being sent. Anything but a live, fully uploaded record
// owned by the sender is reported as ErrContentNotReady.
func (s *ledgerService) sourceContent(ctx context.Context, contents repository.ContentRepository, id, ownerID string) (*model.Content, error) {
	c, err := contents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContentNotReady
		}
		return nil, err
	}
	if c.OwnerID != ownerID || !c.Shareable() {
		return nil, ErrContentNotReady
	}
	return c, nil
}

// deliver gives the recipient its own record of src in the named folder and charges its
// quota. It must run inside the send's unit of work.
func (s *ledgerService) deliver(ctx context.Context, r repository.Repositories, src *model.Content, recipientID, folderName string, now time.Time) error {
	folder, err := findOrCreateFolder(ctx, r.Folders, recipientID, folderName, now)
	if err != nil {
		return fmt.Errorf("materialize folder: %w", err)
	}

	rc := src.CloneFor(recipientID, folder.ID, now)
	rc.ID = uuid.NewString()
	if _, err := r.Contents.Create(ctx, &rc); err != nil {
		return fmt.Errorf("create recipient content: %w", err)
	}

	return s.quota.Reserve(ctx, r.Accounts, recipientID, src.Size)
}

// findOrCreateFolder returns the owner's folder named name, creating it at the next
// position. Losing a creation race to a concurrent send re-reads the winner's folder.
func findOrCreateFolder(ctx context.Context, folders repository.FolderRepository, ownerID, name string, now time.Time) (*model.Folder, error) {
	f, err := folders.FindByOwnerAndName(ctx, ownerID, name)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	maxPos, err := folders.MaxPosition(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	f, err = folders.Create(ctx, &model.Folder{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Icon:      model.DefaultFolderIcon,
		Color:     model.DefaultFolderColor,
		Position:  maxPos + 1,
		CreatedAt: now,
	})
	if errors.Is(err, repository.ErrConflict) {
		return folders.FindByOwnerAndName(ctx, ownerID, name)
	}
	return f, err
}

// insertShare assigns a fresh transaction id to share and stores it, drawing a new id on
// every collision.
func (s *ledgerService) insertShare(ctx context.Context, shares repository.ShareRepository, share *model.Share) (*model.Share, error) {
	for attempt := 1; attempt <= maxTransactionIDTries; attempt++ {
		id, err := s.newTxID()
		if err != nil {
			return nil, err
		}
		share.TransactionID = id

		stored, err := shares.Create(ctx, share)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("create share: %w", err)
		}
		s.log.WithFields(logrus.Fields{
			"transaction_id": id,
			"attempt":        attempt,
		}).Warn("transaction_id_collision")
	}
	return nil, ErrTransactionIDCollision
}

func (s *ledgerService) MarkViewed(ctx context.Context, transactionID, viewerID string) (_ *model.Share, err error) {
	ctx, span := tracer.Start(ctx, "ledger.MarkViewed")
	defer func() { endSpan(span, err) }()

	var (
		out      *model.Share
		advanced bool
	)
	err = s.uow.Do(ctx, func(ctx context.Context, r repository.Repositories) error {
		share, err := findVisible(ctx, r.Shares, transactionID, viewerID)
		if err != nil {
			return err
		}
		if id, ok := share.RecipientAccountID(); !ok || id != viewerID {
			return ErrForbidden
		}
		if share.Status == model.StatusViewed {
			out = share
			return nil
		}
		if !share.Status.CanTransition(model.StatusViewed) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, share.Status, model.StatusViewed)
		}

		updated, err := r.Shares.AdvanceStatus(ctx, share.ID, share.Status, model.StatusViewed, s.now().UTC())
		if errors.Is(err, sql.ErrNoRows) {
			// A concurrent call got there first.
			current, ferr := r.Shares.FindByTransactionID(ctx, transactionID)
			if ferr != nil {
				return ferr
			}
			if current.Status != model.StatusViewed {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, model.StatusViewed)
			}
			out = current
			return nil
		}
		if err != nil {
			return err
		}
		out, advanced = updated, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if advanced {
		s.metrics.shareStatus(model.StatusViewed)
		s.log.WithField("transaction_id", out.TransactionID).Info("share_viewed")
	}
	return out, nil
}

func (s *ledgerService) Lookup(ctx context.Context, transactionID, requesterID string) (_ *model.Share, err error) {
	ctx, span := tracer.Start(ctx, "ledger.Lookup")
	defer func() { endSpan(span, err) }()

	return findVisible(ctx, s.uow.Repos().Shares, transactionID, requesterID)
}

// findVisible hides shares from everyone who is not a party to them.
func findVisible(ctx context.Context, shares repository.ShareRepository, transactionID, requesterID string) (*model.Share, error) {
	if transactionID == "" {
		return nil, ErrNotFound
	}
	share, err := shares.FindByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !share.VisibleTo(requesterID) {
		return nil, ErrNotFound
	}
	return share, nil
}

func pageQuery(limit, offset int) repository.PageQuery {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.PageQuery{Limit: limit, Offset: offset}
}

func (s *ledgerService) ListSent(ctx context.Context, accountID string, limit, offset int) (*ShareListResult, error) {
	res, err := s.uow.Repos().Shares.ListBySender(ctx, accountID, pageQuery(limit, offset))
	if err != nil {
		return nil, err
	}
	return &ShareListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *ledgerService) ListReceived(ctx context.Context, accountID string, limit, offset int) (*ShareListResult, error) {
	repos := s.uow.Repos()
	acc, err := repos.Accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	res, err := repos.Shares.ListByRecipient(ctx, acc.ID, NormalizeEmail(acc.Email), pageQuery(limit, offset))
	if err != nil {
		return nil, err
	}
	return &ShareListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *ledgerService) GetReceipt(ctx context.Context, transactionID, requesterID string) (_ *model.Receipt, err error) {
	ctx, span := tracer.Start(ctx, "ledger.GetReceipt")
	defer func() { endSpan(span, err) }()

	repos := s.uow.Repos()
	share, err := findVisible(ctx, repos.Shares, transactionID, requesterID)
	if err != nil {
		return nil, err
	}
	content, err := repos.Contents.FindByID(ctx, share.ContentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	receipt := BuildReceipt(*share, *content)
	return &receipt, nil
}
