// Package mocks provides test doubles for the graph client.
package mocks

import (
	"context"

	graph "github.com/urbeneye/leadsync/pkg/graph"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// ListUnreadMessages provides a mock function with given fields: ctx, sender
func (_m *MockClient) ListUnreadMessages(ctx context.Context, sender string) ([]graph.Message, error) {
	ret := _m.Called(ctx, sender)

	if len(ret) == 0 {
		panic("no return value specified for ListUnreadMessages")
	}

	var r0 []graph.Message
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) ([]graph.Message, error)); ok {
		return rf(ctx, sender)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) []graph.Message); ok {
		r0 = rf(ctx, sender)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]graph.Message)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, sender)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MarkRead provides a mock function with given fields: ctx, messageID
func (_m *MockClient) MarkRead(ctx context.Context, messageID string) error {
	ret := _m.Called(ctx, messageID)

	if len(ret) == 0 {
		panic("no return value specified for MarkRead")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, messageID)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// SendMail provides a mock function with given fields: ctx, subject, htmlBody, to
func (_m *MockClient) SendMail(ctx context.Context, subject string, htmlBody string, to []string) error {
	ret := _m.Called(ctx, subject, htmlBody, to)

	if len(ret) == 0 {
		panic("no return value specified for SendMail")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, []string) error); ok {
		r0 = rf(ctx, subject, htmlBody, to)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// DownloadFile provides a mock function with given fields: ctx, path
func (_m *MockClient) DownloadFile(ctx context.Context, path string) ([]byte, error) {
	ret := _m.Called(ctx, path)

	if len(ret) == 0 {
		panic("no return value specified for DownloadFile")
	}

	var r0 []byte
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) ([]byte, error)); ok {
		return rf(ctx, path)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) []byte); ok {
		r0 = rf(ctx, path)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]byte)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, path)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// UploadFile provides a mock function with given fields: ctx, path, content
func (_m *MockClient) UploadFile(ctx context.Context, path string, content []byte) error {
	ret := _m.Called(ctx, path, content)

	if len(ret) == 0 {
		panic("no return value specified for UploadFile")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, []byte) error); ok {
		r0 = rf(ctx, path, content)
	} else {
		r0 = ret.Error(0)
	}

	return r0
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
