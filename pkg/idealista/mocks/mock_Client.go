// Package mocks provides test doubles for the idealista client.
package mocks

import (
	"context"

	idealista "github.com/urbeneye/leadsync/pkg/idealista"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, req
func (_m *MockClient) Search(ctx context.Context, req idealista.SearchRequest) (*idealista.SearchResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 *idealista.SearchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, idealista.SearchRequest) (*idealista.SearchResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, idealista.SearchRequest) *idealista.SearchResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*idealista.SearchResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, idealista.SearchRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
