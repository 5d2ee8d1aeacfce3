package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/tee-provenance-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the interfaces.TrustRegistry interface
type MockRegistry struct {
	mock.Mock
}

var _ interfaces.TrustRegistry = (*MockRegistry)(nil)

func (m *MockRegistry) Initialize(ctx context.Context, admin interfaces.Principal) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *MockRegistry) Admin(ctx context.Context) (*interfaces.Principal, error) {
	args := m.Called(ctx)
	admin, _ := args.Get(0).(*interfaces.Principal)
	return admin, args.Error(1)
}

func (m *MockRegistry) AddProvider(ctx context.Context, key interfaces.PublicKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockRegistry) RemoveProvider(ctx context.Context, key interfaces.PublicKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockRegistry) HasProvider(ctx context.Context, key interfaces.PublicKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockRegistry) AddTeeHash(ctx context.Context, hash interfaces.TeeHash) error {
	args := m.Called(ctx, hash)
	return args.Error(0)
}

func (m *MockRegistry) RemoveTeeHash(ctx context.Context, hash interfaces.TeeHash) error {
	args := m.Called(ctx, hash)
	return args.Error(0)
}

func (m *MockRegistry) HasTeeHash(ctx context.Context, hash interfaces.TeeHash) (bool, error) {
	args := m.Called(ctx, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockRegistry) IsVerified(ctx context.Context, hash interfaces.TeeHash, provider interfaces.PublicKey) (bool, error) {
	args := m.Called(ctx, hash, provider)
	return args.Bool(0), args.Error(1)
}

func (m *MockRegistry) SubmitRequest(ctx context.Context, contentHash common.Hash) (uint64, error) {
	args := m.Called(ctx, contentHash)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockRegistry) GetRequest(ctx context.Context, id uint64) (*interfaces.VerificationRequest, error) {
	args := m.Called(ctx, id)
	req, _ := args.Get(0).(*interfaces.VerificationRequest)
	return req, args.Error(1)
}

func (m *MockRegistry) ProcessVerification(ctx context.Context, id uint64, attestation interfaces.Attestation, signature interfaces.Signature) (interfaces.RequestState, error) {
	args := m.Called(ctx, id, attestation, signature)
	return args.Get(0).(interfaces.RequestState), args.Error(1)
}
