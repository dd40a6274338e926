package network

import (
	"github.com/stretchr/testify/mock"
	"github.com/vishvananda/netlink"
)

// MockNetlinker is a mock implementation of the Netlinker interface.
type MockNetlinker struct {
	mock.Mock
}

func (m *MockNetlinker) LinkList() ([]netlink.Link, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]netlink.Link), args.Error(1)
}

// MockPermAddrReader is a mock implementation of PermAddrReader.
type MockPermAddrReader struct {
	mock.Mock
}

func (m *MockPermAddrReader) PermAddr(name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

func (m *MockPermAddrReader) Close() {
	m.Called()
}
