package provenance

import (
	"context"

	"github.com/ruteri/tee-provenance-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockLedger mocks the interfaces.CertificateLedger interface
type MockLedger struct {
	mock.Mock
}

var _ interfaces.CertificateLedger = (*MockLedger)(nil)

func (m *MockLedger) Initialize(ctx context.Context, authority interfaces.Principal) error {
	args := m.Called(ctx, authority)
	return args.Error(0)
}

func (m *MockLedger) Mint(ctx context.Context, owner interfaces.Principal, details interfaces.CertificateDetails) (uint64, error) {
	args := m.Called(ctx, owner, details)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedger) GetCertificate(ctx context.Context, id uint64) (*interfaces.Certificate, error) {
	args := m.Called(ctx, id)
	cert, _ := args.Get(0).(*interfaces.Certificate)
	return cert, args.Error(1)
}

func (m *MockLedger) CertificateByManifest(ctx context.Context, manifestHash string) (*interfaces.Certificate, error) {
	args := m.Called(ctx, manifestHash)
	cert, _ := args.Get(0).(*interfaces.Certificate)
	return cert, args.Error(1)
}

func (m *MockLedger) CertificateCount(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}
