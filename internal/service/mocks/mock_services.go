package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fileflow/internal/model"
	"fileflow/internal/service"
)

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Send(ctx context.Context, req service.SendRequest) (*model.Share, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Share), args.Error(1)
}

func (m *MockLedgerService) MarkViewed(ctx context.Context, transactionID, viewerID string) (*model.Share, error) {
	args := m.Called(ctx, transactionID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Share), args.Error(1)
}

func (m *MockLedgerService) Lookup(ctx context.Context, transactionID, requesterID string) (*model.Share, error) {
	args := m.Called(ctx, transactionID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Share), args.Error(1)
}

func (m *MockLedgerService) ListSent(ctx context.Context, accountID string, limit, offset int) (*service.ShareListResult, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ShareListResult), args.Error(1)
}

func (m *MockLedgerService) ListReceived(ctx context.Context, accountID string, limit, offset int) (*service.ShareListResult, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ShareListResult), args.Error(1)
}

func (m *MockLedgerService) GetReceipt(ctx context.Context, transactionID, requesterID string) (*model.Receipt, error) {
	args := m.Called(ctx, transactionID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Receipt), args.Error(1)
}

type MockContentService struct {
	mock.Mock
}

func (m *MockContentService) InitUpload(ctx context.Context, req service.UploadRequest) (*service.UploadTicket, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadTicket), args.Error(1)
}

func (m *MockContentService) CompleteUpload(ctx context.Context, ownerID, id, checksum string) (*model.Content, error) {
	args := m.Called(ctx, ownerID, id, checksum)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Content), args.Error(1)
}

func (m *MockContentService) AbortUpload(ctx context.Context, ownerID, id string) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}

func (m *MockContentService) List(ctx context.Context, ownerID, folderID string, limit, offset int) (*service.ContentListResult, error) {
	args := m.Called(ctx, ownerID, folderID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ContentListResult), args.Error(1)
}

func (m *MockContentService) DownloadURL(ctx context.Context, ownerID, id string) (*service.DownloadLink, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DownloadLink), args.Error(1)
}

func (m *MockContentService) Delete(ctx context.Context, ownerID, id string) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}
