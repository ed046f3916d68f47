package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"qphub/internal/model"
	"qphub/internal/service"
	"qphub/internal/storage"
)

type MockPaperService struct {
	mock.Mock
}

func (m *MockPaperService) Ingest(ctx context.Context, pdf []byte, filename string) (*service.IngestResult, error) {
	args := m.Called(ctx, pdf, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockPaperService) List(ctx context.Context, limit, offset int) (*service.PaperListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PaperListResult), args.Error(1)
}

func (m *MockPaperService) Get(ctx context.Context, id string) (*model.Paper, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Paper), args.Error(1)
}

func (m *MockPaperService) OpenFile(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.ObjectInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}
