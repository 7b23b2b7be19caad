package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fileflow/internal/logging"
	"fileflow/internal/model"
	"fileflow/internal/repository"
	"fileflow/internal/repository/memory"
	"fileflow/internal/repository/postgres"
	repoMocks "fileflow/internal/repository/mocks"
)

var t0 = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

const srcChecksum = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

type ledgerFixture struct {
	svc     *ledgerService
	store   *memory.Store
	metrics *Metrics
	logs    *bytes.Buffer
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store := memory.NewStore()
	store.PutAccount(model.Account{ID: "alice", Email: "alice@example.com", DisplayName: "Alice", StorageUsed: 200, StorageQuota: 1000, CreatedAt: t0})
	store.PutAccount(model.Account{ID: "bob", Email: "bob@example.com", Phone: "+15550100", DisplayName: "Bob", StorageUsed: 100, StorageQuota: 500, CreatedAt: t0})
	store.PutAccount(model.Account{ID: "carol", Email: "carol@example.com", DisplayName: "Carol", StorageQuota: 1000, CreatedAt: t0})
	store.PutContent(model.Content{
		ID: "src", OwnerID: "alice", Filename: "bill.pdf", OriginalFilename: "bill.pdf", Size: 300,
		MimeType: "application/pdf", StorageKey: "users/alice/files/0011223344556677/bill.pdf",
		Checksum: srcChecksum, Status: model.ContentUploaded, CreatedAt: t0,
	})

	var buf bytes.Buffer
	log := logging.New(&buf, time.UTC, "debug")
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	svc := NewLedgerService(store, NewQuotaLedger(log, m), m, log).(*ledgerService)
	svc.now = func() time.Time { return t0 }
	return &ledgerFixture{svc: svc, store: store, metrics: m, logs: &buf}
}

func (f *ledgerFixture) used(t *testing.T, id string) int64 {
	t.Helper()
	acc, ok := f.store.Account(id)
	require.True(t, ok)
	return acc.StorageUsed
}

func TestLedgerService_SendToRegisteredRecipient(t *testing.T) {
	f := newLedgerFixture(t)

	share, err := f.svc.Send(context.Background(), SendRequest{
		ContentID:        "src",
		SenderID:         "alice",
		RecipientEmail:   "bob@example.com",
		TargetFolderName: "Bills",
		Message:          "March invoice",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(share.TransactionID, "TXN"))
	assert.Greater(t, len(share.TransactionID), len("TXN"))
	assert.Equal(t, model.StatusDelivered, share.Status)
	require.NotNil(t, share.DeliveredAt)
	assert.Equal(t, t0, *share.DeliveredAt)
	assert.Nil(t, share.FirstViewedAt)
	assert.Equal(t, model.ShareDirect, share.Type)
	assert.Equal(t, model.Sender{AccountID: "alice", Name: "Alice", Email: "alice@example.com"}, share.Sender)
	id, ok := share.RecipientAccountID()
	assert.True(t, ok)
	assert.Equal(t, "bob", id)

	folders := f.store.Folders("bob")
	require.Len(t, folders, 1)
	assert.Equal(t, "Bills", folders[0].Name)
	assert.Equal(t, 0, folders[0].Position)
	assert.Equal(t, model.DefaultFolderIcon, folders[0].Icon)

	contents := f.store.Contents("bob")
	require.Len(t, contents, 1)
	assert.Equal(t, "users/alice/files/0011223344556677/bill.pdf", contents[0].StorageKey)
	assert.Equal(t, srcChecksum, contents[0].Checksum)
	assert.Equal(t, model.ContentUploaded, contents[0].Status)
	assert.Equal(t, folders[0].ID, *contents[0].FolderID)
	assert.NotEqual(t, "src", contents[0].ID)

	assert.Equal(t, int64(400), f.used(t, "bob"))
	assert.Equal(t, int64(200), f.used(t, "alice"))
	assert.Equal(t, 1, f.store.ShareCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.shares.WithLabelValues("delivered")))
	assert.Contains(t, f.logs.String(), "share_created")
}

func TestLedgerService_SendToUnregisteredEmail(t *testing.T) {
	f := newLedgerFixture(t)

	share, err := f.svc.Send(context.Background(), SendRequest{
		ContentID:        "src",
		SenderID:         "alice",
		RecipientEmail:   "X@Example.com",
		TargetFolderName: "Bills",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusSent, share.Status)
	assert.Nil(t, share.DeliveredAt)
	_, ok := share.RecipientAccountID()
	assert.False(t, ok)
	assert.Equal(t, model.PendingContact{Address: model.Contact{Email: "x@example.com"}}, share.Recipient)

	assert.Empty(t, f.store.Folders("bob"))
	assert.Empty(t, f.store.Contents("bob"))
	assert.Len(t, f.store.Contents("alice"), 1)
	assert.Equal(t, int64(200), f.used(t, "alice"))
	assert.Equal(t, int64(100), f.used(t, "bob"))
	assert.Equal(t, 1, f.store.ShareCount())
}

func TestLedgerService_SendQuotaExceededLeavesNoTrace(t *testing.T) {
	f := newLedgerFixture(t)
	f.store.PutAccount(model.Account{ID: "bob", Email: "bob@example.com", DisplayName: "Bob", StorageUsed: 100, StorageQuota: 350})

	_, err := f.svc.Send(context.Background(), SendRequest{
		ContentID:        "src",
		SenderID:         "alice",
		RecipientEmail:   "bob@example.com",
		TargetFolderName: "Bills",
	})

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Zero(t, f.store.ShareCount())
	assert.Empty(t, f.store.Folders("bob"))
	assert.Empty(t, f.store.Contents("bob"))
	assert.Equal(t, int64(100), f.used(t, "bob"))
	assert.Equal(t, int64(200), f.used(t, "alice"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.quotaRejections))
}

func TestLedgerService_SendValidation(t *testing.T) {
	f := newLedgerFixture(t)
	f.store.PutContent(model.Content{ID: "uploading", OwnerID: "alice", Size: 1, Status: model.ContentUploading})
	deletedAt := t0
	f.store.PutContent(model.Content{ID: "deleted", OwnerID: "alice", Size: 1, Status: model.ContentDeleted, DeletedAt: &deletedAt})
	f.store.PutContent(model.Content{ID: "hidden", OwnerID: "alice", Size: 1, Checksum: srcChecksum, Status: model.ContentHidden})
	f.store.PutContent(model.Content{ID: "carols", OwnerID: "carol", Size: 1, Status: model.ContentUploaded})

	tests := []struct {
		name    string
		req     SendRequest
		wantErr error
	}{
		{
			name:    "no recipient contact",
			req:     SendRequest{ContentID: "src", SenderID: "alice", RecipientEmail: "  ", TargetFolderName: "Bills"},
			wantErr: ErrInvalidRecipient,
		},
		{
			name:    "no target folder",
			req:     SendRequest{ContentID: "src", SenderID: "alice", RecipientEmail: "bob@example.com", TargetFolderName: " "},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "unknown share type",
			req:     SendRequest{ContentID: "src", SenderID: "alice", RecipientEmail: "bob@example.com", TargetFolderName: "Bills", Type: "fax"},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "upload not completed",
			req:     SendRequest{ContentID: "uploading", SenderID: "alice", RecipientEmail: "bob@example.com", TargetFolderName: "Bills"},
			wantErr: ErrContentNotReady,
		},
		{
			name:    "soft deleted",
			req:     SendRequest{ContentID: "deleted", SenderID: "alice", RecipientEmail: "bob@example.com", TargetFolderName: "Bills"},
			wantErr: ErrContentNotReady,
		},
		{
			name:    "owned by someone else",
			req:     SendRequest{ContentID: "carols", SenderID: "alice", RecipientEmail: "bob@example.com", TargetFolderName: "Bills"},
			wantErr: ErrContentNotReady,
		},
		{
			name:    "missing content",
			req:     SendRequest{ContentID: "nope", SenderID: "alice", RecipientEmail: "bob@example.com", TargetFolderName: "Bills"},
			wantErr: ErrContentNotReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Send(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Zero(t, f.store.ShareCount())

	t.Run("hidden content can be sent", func(t *testing.T) {
		share, err := f.svc.Send(context.Background(), SendRequest{
			ContentID: "hidden", SenderID: "alice", RecipientPhone: "+1 555-0100", TargetFolderName: "Bills", Type: "qr",
		})
		require.NoError(t, err)
		assert.Equal(t, model.ShareQR, share.Type)
		assert.Equal(t, model.StatusDelivered, share.Status)
	})
}

func TestLedgerService_SendMalformedContentIDOverPostgres(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(regexp.QuoteMeta("FROM contents WHERE id = $1")).
		WithArgs("not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "not-a-uuid"`})
	sqlMock.ExpectRollback()

	log := logging.New(&bytes.Buffer{}, time.UTC, "info")
	svc := NewLedgerService(postgres.NewUnitOfWork(db), NewQuotaLedger(log, nil), nil, log)

	_, err = svc.Send(context.Background(), SendRequest{
		ContentID:        "not-a-uuid",
		SenderID:         "3f0c2a64-9d0b-4c55-8a51-2b7f0d0d4e11",
		RecipientEmail:   "bob@example.com",
		TargetFolderName: "Bills",
	})

	assert.ErrorIs(t, err, ErrContentNotReady)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestLedgerService_SendResolvesCaseInsensitiveEmail(t *testing.T) {
	f := newLedgerFixture(t)

	share, err := f.svc.Send(context.Background(), SendRequest{
		ContentID: "src", SenderID: "alice", RecipientEmail: "  BOB@Example.COM ", TargetFolderName: "Bills",
	})

	require.NoError(t, err)
	id, ok := share.RecipientAccountID()
	assert.True(t, ok)
	assert.Equal(t, "bob", id)
	assert.Equal(t, "bob@example.com", share.Recipient.Contact().Email)
}

func TestLedgerService_SendReusesFolderAndAppendsPosition(t *testing.T) {
	f := newLedgerFixture(t)
	f.store.PutAccount(model.Account{ID: "bob", Email: "bob@example.com", DisplayName: "Bob", StorageQuota: 10_000})
	ctx := context.Background()
	_, err := f.store.Repos().Folders.Create(ctx, &model.Folder{OwnerID: "bob", Name: "Docs", Position: 4})
	require.NoError(t, err)

	req := SendRequest{ContentID: "src", SenderID: "alice", RecipientEmail: "bob@example.com", TargetFolderName: "Bills"}
	_, err = f.svc.Send(ctx, req)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, req)
	require.NoError(t, err)

	folders := f.store.Folders("bob")
	require.Len(t, folders, 2)
	assert.Equal(t, "Bills", folders[1].Name)
	assert.Equal(t, 5, folders[1].Position)
	assert.Len(t, f.store.Contents("bob"), 2)
	assert.Equal(t, int64(600), f.used(t, "bob"))
}

func TestLedgerService_ConcurrentSendsShareOneFolder(t *testing.T) {
	f := newLedgerFixture(t)
	f.store.PutAccount(model.Account{ID: "bob", Email: "bob@example.com", DisplayName: "Bob", StorageQuota: 10_000})
	f.store.PutContent(model.Content{ID: "carol-src", OwnerID: "carol", Size: 50, StorageKey: "users/carol/files/k/notes.txt", Checksum: srcChecksum, Status: model.ContentUploaded})

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, req := range []SendRequest{
		{ContentID: "src", SenderID: "alice", RecipientEmail: "bob@example.com", TargetFolderName: "Education"},
		{ContentID: "carol-src", SenderID: "carol", RecipientEmail: "bob@example.com", TargetFolderName: "Education"},
	} {
		wg.Add(1)
		go func(req SendRequest) {
			defer wg.Done()
			_, err := f.svc.Send(context.Background(), req)
			errs <- err
		}(req)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	folders := f.store.Folders("bob")
	require.Len(t, folders, 1)
	assert.Equal(t, "Education", folders[0].Name)
	assert.Len(t, f.store.Contents("bob"), 2)
	assert.Equal(t, int64(350), f.used(t, "bob"))
}

func TestLedgerService_TransactionIDCollision(t *testing.T) {
	f := newLedgerFixture(t)
	f.store.PutAccount(model.Account{ID: "bob", Email: "bob@example.com", DisplayName: "Bob", StorageUsed: 100, StorageQuota: 10_000})
	ctx := context.Background()
	req := SendRequest{ContentID: "src", SenderID: "alice", RecipientEmail: "bob@example.com", TargetFolderName: "Bills"}

	f.svc.newTxID = func() (string, error) { return "TXNdup", nil }
	_, err := f.svc.Send(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, req)
	assert.ErrorIs(t, err, ErrTransactionIDCollision)
	assert.Equal(t, 1, f.store.ShareCount())
	assert.Len(t, f.store.Contents("bob"), 1)
	assert.Equal(t, int64(400), f.used(t, "bob"))
	assert.Contains(t, f.logs.String(), "transaction_id_collision")

	ids := []string{"TXNdup", "TXNdup", "TXNfresh"}
	f.svc.newTxID = func() (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}
	share, err := f.svc.Send(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "TXNfresh", share.TransactionID)
}

func TestLedgerService_MarkViewed(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	delivered, err := f.svc.Send(ctx, SendRequest{ContentID: "src", SenderID: "alice", RecipientEmail: "bob@example.com", TargetFolderName: "Bills"})
	require.NoError(t, err)
	pending, err := f.svc.Send(ctx, SendRequest{ContentID: "src", SenderID: "alice", RecipientEmail: "nobody@example.com", TargetFolderName: "Bills"})
	require.NoError(t, err)

	_, err = f.svc.MarkViewed(ctx, delivered.TransactionID, "alice")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.MarkViewed(ctx, delivered.TransactionID, "carol")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.MarkViewed(ctx, pending.TransactionID, "alice")
	assert.ErrorIs(t, err, ErrForbidden)

	firstView := t0.Add(time.Hour)
	f.svc.now = func() time.Time { return firstView }
	viewed, err := f.svc.MarkViewed(ctx, delivered.TransactionID, "bob")
	require.NoError(t, err)
	assert.Equal(t, model.StatusViewed, viewed.Status)
	assert.Equal(t, firstView, *viewed.FirstViewedAt)
	assert.Equal(t, t0, *viewed.DeliveredAt)

	f.svc.now = func() time.Time { return firstView.Add(time.Hour) }
	again, err := f.svc.MarkViewed(ctx, delivered.TransactionID, "bob")
	require.NoError(t, err)
	assert.Equal(t, firstView, *again.FirstViewedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.shares.WithLabelValues("viewed")))

	looked, err := f.svc.Lookup(ctx, delivered.TransactionID, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.StatusViewed, looked.Status)
}

func TestLedgerService_Lookup(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	share, err := f.svc.Send(ctx, SendRequest{ContentID: "src", SenderID: "alice", RecipientEmail: "bob@example.com", TargetFolderName: "Bills"})
	require.NoError(t, err)

	for _, who := range []string{"alice", "bob"} {
		got, err := f.svc.Lookup(ctx, share.TransactionID, who)
		require.NoError(t, err, who)
		assert.Equal(t, share.TransactionID, got.TransactionID)
	}

	_, errStranger := f.svc.Lookup(ctx, share.TransactionID, "carol")
	_, errMissing := f.svc.Lookup(ctx, "TXNdoesnotexist", "carol")
	assert.ErrorIs(t, errStranger, ErrNotFound)
	assert.ErrorIs(t, errMissing, ErrNotFound)
	assert.Equal(t, errMissing.Error(), errStranger.Error())
}

func TestLedgerService_Lists(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, SendRequest{ContentID: "src", SenderID: "alice", RecipientEmail: "bob@example.com", TargetFolderName: "Bills"})
	require.NoError(t, err)
	// Addressed to bob's email before bob registered.
	_, err = f.store.Repos().Shares.Create(ctx, &model.Share{
		ID: "early", TransactionID: "TXNearly", ContentID: "src", Sender: model.Sender{AccountID: "carol"},
		Recipient: model.PendingContact{Address: model.Contact{Email: "bob@example.com"}},
		Status:    model.StatusSent, CreatedAt: t0.Add(-time.Hour),
	})
	require.NoError(t, err)

	received, err := f.svc.ListReceived(ctx, "bob", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, received.Total)
	require.Len(t, received.Items, 2)
	assert.Equal(t, "TXNearly", received.Items[1].TransactionID)

	sent, err := f.svc.ListSent(ctx, "alice", 10, -5)
	require.NoError(t, err)
	assert.Equal(t, 1, sent.Total)

	_, err = f.svc.ListReceived(ctx, "ghost", 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerService_GetReceipt(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	share, err := f.svc.Send(ctx, SendRequest{ContentID: "src", SenderID: "alice", RecipientEmail: "bob@example.com", TargetFolderName: "Bills"})
	require.NoError(t, err)

	receipt, err := f.svc.GetReceipt(ctx, share.TransactionID, "bob")
	require.NoError(t, err)

	assert.Equal(t, "RCPT-"+share.TransactionID[len(share.TransactionID)-8:], receipt.ReceiptID)
	assert.Equal(t, "SUCCESS", receipt.Status)
	assert.Equal(t, "bill.pdf", receipt.Item.Name)
	assert.Equal(t, int64(300), receipt.Item.Size)
	require.NotNil(t, receipt.Recipient.ID)
	assert.Equal(t, "bob", *receipt.Recipient.ID)
	assert.True(t, Verify(SignatureFields{
		TransactionID: share.TransactionID,
		CreatedAt:     t0,
		SenderID:      "alice",
		RecipientID:   "bob",
		Checksum:      srcChecksum,
	}, receipt.Signature))

	_, err = f.svc.GetReceipt(ctx, share.TransactionID, "carol")
	assert.ErrorIs(t, err, ErrNotFound)
}

func newMockedLedger() (*ledgerService, *repoMocks.MockAccountRepository, *repoMocks.MockFolderRepository, *repoMocks.MockContentRepository, *repoMocks.MockShareRepository) {
	accounts := new(repoMocks.MockAccountRepository)
	folders := new(repoMocks.MockFolderRepository)
	contents := new(repoMocks.MockContentRepository)
	shares := new(repoMocks.MockShareRepository)
	uow := &repoMocks.UnitOfWork{Repositories: repository.Repositories{
		Accounts: accounts, Folders: folders, Contents: contents, Shares: shares,
	}}
	log := logging.New(&bytes.Buffer{}, time.UTC, "info")
	svc := NewLedgerService(uow, NewQuotaLedger(log, nil), nil, log).(*ledgerService)
	svc.now = func() time.Time { return t0 }
	return svc, accounts, folders, contents, shares
}

func TestLedgerService_SendWithMocks(t *testing.T) {
	ctx := context.Background()
	src := &model.Content{ID: "src", OwnerID: "alice", Size: 300, StorageKey: "k", Checksum: srcChecksum, Status: model.ContentUploaded}
	alice := &model.Account{ID: "alice", DisplayName: "Alice", Email: "alice@example.com"}
	bob := &model.Account{ID: "bob", DisplayName: "Bob", Email: "bob@example.com"}
	req := SendRequest{ContentID: "src", SenderID: "alice", RecipientEmail: "bob@example.com", TargetFolderName: "Education"}

	tests := []struct {
		name       string
		setupMocks func(a *repoMocks.MockAccountRepository, f *repoMocks.MockFolderRepository, c *repoMocks.MockContentRepository, s *repoMocks.MockShareRepository)
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "folder creation race re-reads the existing folder",
			setupMocks: func(a *repoMocks.MockAccountRepository, f *repoMocks.MockFolderRepository, c *repoMocks.MockContentRepository, s *repoMocks.MockShareRepository) {
				c.On("FindByID", mock.Anything, "src").Return(src, nil)
				a.On("FindByID", mock.Anything, "alice").Return(alice, nil)
				a.On("FindByEmail", mock.Anything, "bob@example.com").Return(bob, nil)
				f.On("FindByOwnerAndName", mock.Anything, "bob", "Education").Return(nil, sql.ErrNoRows).Once()
				f.On("MaxPosition", mock.Anything, "bob").Return(2, nil)
				f.On("Create", mock.Anything, mock.MatchedBy(func(fo *model.Folder) bool {
					return fo.Position == 3 && fo.Name == "Education"
				})).Return(nil, repository.ErrConflict)
				f.On("FindByOwnerAndName", mock.Anything, "bob", "Education").Return(&model.Folder{ID: "winner", OwnerID: "bob", Name: "Education"}, nil).Once()
				c.On("Create", mock.Anything, mock.MatchedBy(func(rc *model.Content) bool {
					return rc.OwnerID == "bob" && *rc.FolderID == "winner" && rc.StorageKey == "k"
				})).Return(&model.Content{ID: "copy"}, nil)
				a.On("ReserveStorage", mock.Anything, "bob", int64(300)).Return(int64(300), nil)
				s.On("Create", mock.Anything, mock.Anything).Return(func(sh *model.Share) *model.Share { return sh }, nil)
			},
		},
		{
			name: "resolver failure propagates",
			setupMocks: func(a *repoMocks.MockAccountRepository, f *repoMocks.MockFolderRepository, c *repoMocks.MockContentRepository, s *repoMocks.MockShareRepository) {
				c.On("FindByID", mock.Anything, "src").Return(src, nil)
				a.On("FindByID", mock.Anything, "alice").Return(alice, nil)
				a.On("FindByEmail", mock.Anything, "bob@example.com").Return(nil, errors.New("connection refused"))
			},
			wantErrMsg: "resolve recipient: connection refused",
		},
		{
			name: "content store failure propagates",
			setupMocks: func(a *repoMocks.MockAccountRepository, f *repoMocks.MockFolderRepository, c *repoMocks.MockContentRepository, s *repoMocks.MockShareRepository) {
				c.On("FindByID", mock.Anything, "src").Return(src, nil)
				a.On("FindByID", mock.Anything, "alice").Return(alice, nil)
				a.On("FindByEmail", mock.Anything, "bob@example.com").Return(bob, nil)
				f.On("FindByOwnerAndName", mock.Anything, "bob", "Education").Return(&model.Folder{ID: "f1"}, nil)
				c.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))
			},
			wantErrMsg: "create recipient content: disk full",
		},
		{
			name: "share store failure propagates",
			setupMocks: func(a *repoMocks.MockAccountRepository, f *repoMocks.MockFolderRepository, c *repoMocks.MockContentRepository, s *repoMocks.MockShareRepository) {
				c.On("FindByID", mock.Anything, "src").Return(src, nil)
				a.On("FindByID", mock.Anything, "alice").Return(alice, nil)
				a.On("FindByEmail", mock.Anything, "bob@example.com").Return(nil, sql.ErrNoRows)
				s.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("deadlock"))
			},
			wantErrMsg: "create share: deadlock",
		},
		{
			name: "recipient account disappears during reservation",
			setupMocks: func(a *repoMocks.MockAccountRepository, f *repoMocks.MockFolderRepository, c *repoMocks.MockContentRepository, s *repoMocks.MockShareRepository) {
				c.On("FindByID", mock.Anything, "src").Return(src, nil)
				a.On("FindByID", mock.Anything, "alice").Return(alice, nil)
				a.On("FindByEmail", mock.Anything, "bob@example.com").Return(bob, nil)
				f.On("FindByOwnerAndName", mock.Anything, "bob", "Education").Return(&model.Folder{ID: "f1"}, nil)
				c.On("Create", mock.Anything, mock.Anything).Return(&model.Content{ID: "copy"}, nil)
				a.On("ReserveStorage", mock.Anything, "bob", int64(300)).Return(int64(0), sql.ErrNoRows)
				a.On("FindByID", mock.Anything, "bob").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, a, f, c, s := newMockedLedger()
			tt.setupMocks(a, f, c, s)

			share, err := svc.Send(ctx, req)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				assert.EqualError(t, err, tt.wantErrMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, model.StatusDelivered, share.Status)
			}
			a.AssertExpectations(t)
			f.AssertExpectations(t)
			c.AssertExpectations(t)
			s.AssertExpectations(t)
		})
	}
}

func TestLedgerService_MarkViewedWithMocks(t *testing.T) {
	ctx := context.Background()
	resolved := func(st model.Status) *model.Share {
		return &model.Share{
			ID: "s1", TransactionID: "TXN1", Sender: model.Sender{AccountID: "alice"},
			Recipient: model.ResolvedAccount{AccountID: "bob"}, Status: st,
		}
	}

	t.Run("sent and failed shares cannot be viewed", func(t *testing.T) {
		for _, st := range []model.Status{model.StatusSent, model.StatusFailed} {
			svc, _, _, _, s := newMockedLedger()
			s.On("FindByTransactionID", mock.Anything, "TXN1").Return(resolved(st), nil)

			_, err := svc.MarkViewed(ctx, "TXN1", "bob")

			assert.ErrorIs(t, err, ErrInvalidTransition, string(st))
			s.AssertNotCalled(t, "AdvanceStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		}
	})

	t.Run("losing a concurrent view returns the viewed share", func(t *testing.T) {
		svc, _, _, _, s := newMockedLedger()
		viewedAt := t0.Add(-time.Minute)
		winner := resolved(model.StatusViewed)
		winner.FirstViewedAt = &viewedAt

		s.On("FindByTransactionID", mock.Anything, "TXN1").Return(resolved(model.StatusDelivered), nil).Once()
		s.On("AdvanceStatus", mock.Anything, "s1", model.StatusDelivered, model.StatusViewed, t0).Return(nil, sql.ErrNoRows)
		s.On("FindByTransactionID", mock.Anything, "TXN1").Return(winner, nil).Once()

		got, err := svc.MarkViewed(ctx, "TXN1", "bob")

		require.NoError(t, err)
		assert.Equal(t, viewedAt, *got.FirstViewedAt)
		s.AssertExpectations(t)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		svc, _, _, _, s := newMockedLedger()
		boom := fmt.Errorf("timeout")
		s.On("FindByTransactionID", mock.Anything, "TXN1").Return(nil, boom)

		_, err := svc.MarkViewed(ctx, "TXN1", "bob")

		assert.ErrorIs(t, err, boom)
	})
}

func TestLedgerService_ListClampsPagination(t *testing.T) {
	svc, _, _, _, s := newMockedLedger()
	s.On("ListBySender", mock.Anything, "alice", repository.PageQuery{Limit: 100, Offset: 0}).
		Return(&repository.PageResult[model.Share]{Items: []model.Share{}, Total: 0}, nil)
	s.On("ListBySender", mock.Anything, "alice", repository.PageQuery{Limit: 50, Offset: 20}).
		Return(&repository.PageResult[model.Share]{Items: []model.Share{}, Total: 0}, nil)

	_, err := svc.ListSent(context.Background(), "alice", 1000, -1)
	require.NoError(t, err)
	_, err = svc.ListSent(context.Background(), "alice", 0, 20)
	require.NoError(t, err)
	s.AssertExpectations(t)
}

func TestNewTransactionID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := NewTransactionID()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id, "TXN"))
		assert.GreaterOrEqual(t, len(id), 3+16)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
