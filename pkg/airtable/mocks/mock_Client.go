// Package mocks provides test doubles for the airtable client.
package mocks

import (
	"context"

	airtable "github.com/urbeneye/leadsync/pkg/airtable"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// CreateRecord provides a mock function with given fields: ctx, tableID, fields
func (_m *MockClient) CreateRecord(ctx context.Context, tableID string, fields map[string]any) (string, error) {
	ret := _m.Called(ctx, tableID, fields)

	if len(ret) == 0 {
		panic("no return value specified for CreateRecord")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, map[string]any) (string, error)); ok {
		return rf(ctx, tableID, fields)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, map[string]any) string); ok {
		r0 = rf(ctx, tableID, fields)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, map[string]any) error); ok {
		r1 = rf(ctx, tableID, fields)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListRecords provides a mock function with given fields: ctx, tableID, formula
func (_m *MockClient) ListRecords(ctx context.Context, tableID string, formula string) ([]airtable.Record, error) {
	ret := _m.Called(ctx, tableID, formula)

	if len(ret) == 0 {
		panic("no return value specified for ListRecords")
	}

	var r0 []airtable.Record
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) ([]airtable.Record, error)); ok {
		return rf(ctx, tableID, formula)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string) []airtable.Record); ok {
		r0 = rf(ctx, tableID, formula)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]airtable.Record)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, tableID, formula)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// UpdateRecord provides a mock function with given fields: ctx, tableID, recordID, fields
func (_m *MockClient) UpdateRecord(ctx context.Context, tableID string, recordID string, fields map[string]any) error {
	ret := _m.Called(ctx, tableID, recordID, fields)

	if len(ret) == 0 {
		panic("no return value specified for UpdateRecord")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, map[string]any) error); ok {
		r0 = rf(ctx, tableID, recordID, fields)
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
