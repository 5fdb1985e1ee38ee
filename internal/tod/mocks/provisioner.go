package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tod-bot/internal/tod"
)

// Provisioner is a mock implementation of tod.Provisioner
type Provisioner struct {
	mock.Mock
}

func (m *Provisioner) ProvisionComms(ctx context.Context, guildID string, initial tod.PlayerID) (tod.CommsHandle, error) {
	args := m.Called(ctx, guildID, initial)
	return args.Get(0).(tod.CommsHandle), args.Error(1)
}

func (m *Provisioner) GrantAccess(ctx context.Context, h tod.CommsHandle, p tod.PlayerID) error {
	args := m.Called(ctx, h, p)
	return args.Error(0)
}

func (m *Provisioner) RevokeAccess(ctx context.Context, h tod.CommsHandle, p tod.PlayerID) error {
	args := m.Called(ctx, h, p)
	return args.Error(0)
}

func (m *Provisioner) TeardownComms(ctx context.Context, h tod.CommsHandle) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

// Authorizer is a mock implementation of tod.Authorizer
type Authorizer struct {
	mock.Mock
}

func (m *Authorizer) IsCallerAuthorized(ctx context.Context, guildID string, requester tod.PlayerID, role tod.Role) (bool, error) {
	args := m.Called(ctx, guildID, requester, role)
	return args.Bool(0), args.Error(1)
}
