package domain_test

import (
	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Recover(
	digest domain.Hash, sig []byte,
) (domain.Address, error) {
	args := m.Called(digest, sig)

	var res domain.Address
	if a := args.Get(0); a != nil {
		res = a.(domain.Address)
	}
	return res, args.Error(1)
}
