package mocks

import (
	"context"

	"github.com/ebrains-prov/provenance-api/pkg/eventbus"
	"github.com/ebrains-prov/provenance-api/pkg/events"
	"github.com/stretchr/testify/mock"
)

// MockEventBus records published record events.
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, event events.RecordChanged) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventBus) Handle(eventType events.EventType, handler eventbus.Handler) error {
	return m.Called(eventType, handler).Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockEventBus) Close() error {
	return m.Called().Error(0)
}

// Published returns every event passed to Publish, in call order.
func (m *MockEventBus) Published() []events.RecordChanged {
	var published []events.RecordChanged

	for _, call := range m.Calls {
		if call.Method != "Publish" {
			continue
		}

		if event, ok := call.Arguments.Get(1).(events.RecordChanged); ok {
			published = append(published, event)
		}
	}

	return published
}
