package oracle

import (
	"context"

	"github.com/ruteri/tee-provenance-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockOracle mocks the interfaces.VerificationOracle interface
type MockOracle struct {
	mock.Mock
}

var _ interfaces.VerificationOracle = (*MockOracle)(nil)

func (m *MockOracle) Initialize(ctx context.Context, registry, provenance, admin interfaces.Principal) error {
	args := m.Called(ctx, registry, provenance, admin)
	return args.Error(0)
}

func (m *MockOracle) VerifyTeeHash(ctx context.Context, hash interfaces.TeeHash) error {
	args := m.Called(ctx, hash)
	return args.Error(0)
}

func (m *MockOracle) VerifyAttestation(ctx context.Context, provider interfaces.PublicKey, hash interfaces.TeeHash, payload []byte, signature interfaces.Signature) error {
	args := m.Called(ctx, provider, hash, payload, signature)
	return args.Error(0)
}

func (m *MockOracle) AddProvider(ctx context.Context, relayer interfaces.Principal) error {
	args := m.Called(ctx, relayer)
	return args.Error(0)
}

func (m *MockOracle) RemoveProvider(ctx context.Context, relayer interfaces.Principal) error {
	args := m.Called(ctx, relayer)
	return args.Error(0)
}

func (m *MockOracle) IsProvider(ctx context.Context, relayer interfaces.Principal) (bool, error) {
	args := m.Called(ctx, relayer)
	return args.Bool(0), args.Error(1)
}

func (m *MockOracle) VerifyAndMint(ctx context.Context, relayer, owner interfaces.Principal, requestID uint64, details interfaces.CertificateDetails) (*interfaces.MintResult, error) {
	args := m.Called(ctx, relayer, owner, requestID, details)
	res, _ := args.Get(0).(*interfaces.MintResult)
	return res, args.Error(1)
}
