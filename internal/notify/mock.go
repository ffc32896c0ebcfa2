package notify

import "github.com/stretchr/testify/mock"

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Deliver(token, title, body string) error {
	args := m.Called(token, title, body)
	return args.Error(0)
}
