package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ebrains-prov/provenance-api/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	for _, brokers := range [][]string{nil, {""}} {
		_, _, err := CreateChannel(watermill.NopLogger{}, Config{Brokers: brokers, ServiceName: "provenance-api"})
		assert.Error(t, err)
	}
}

func TestRecordKey(t *testing.T) {
	msg := message.NewMessage("m1", nil)
	msg.Metadata.Set(events.EventMetadataKey, "6f1c3c4e-0000-4000-8000-000000000001")

	key, err := recordKey(events.Topic, msg)
	require.NoError(t, err)
	assert.Equal(t, "6f1c3c4e-0000-4000-8000-000000000001", key)
}
