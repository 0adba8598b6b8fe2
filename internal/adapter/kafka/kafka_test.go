package kafka

import (
	"testing"

	"github.com/couchcryptid/zerodelay-service/internal/config"
	"github.com/couchcryptid/zerodelay-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	summary := domain.Summary{
		UpdatedAt: "2024-07-01T10:00:00+09:00",
		Buckets: domain.Buckets{
			Special:  []string{},
			Warning:  []string{"大雨警報（加賀）"},
			Advisory: []string{},
		},
		HasAny: true,
	}

	msg, err := serializeToMessage(domain.RegionIshikawa, summary)
	require.NoError(t, err)

	assert.Equal(t, []byte("170000"), msg.Key)
	assert.JSONEq(t, `{
		"updatedAt": "2024-07-01T10:00:00+09:00",
		"buckets": {"special": [], "warning": ["大雨警報（加賀）"], "advisory": []},
		"hasAny": true
	}`, string(msg.Value))
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "has_any", msg.Headers[0].Key)
	assert.Equal(t, []byte("true"), msg.Headers[0].Value)
	assert.Equal(t, "updated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-07-01T10:00:00+09:00"), msg.Headers[1].Value)
}

func TestSerializeToMessage_Empty(t *testing.T) {
	msg, err := serializeToMessage(domain.RegionToyama, domain.Summary{
		UpdatedAt: "2024-07-01T01:00:00.000Z",
		Buckets:   domain.Buckets{Special: []string{}, Warning: []string{}, Advisory: []string{}},
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("160000"), msg.Key)
	assert.Equal(t, []byte("false"), msg.Headers[0].Value)
	assert.Contains(t, string(msg.Value), `"special":[]`)
}

func TestNewWriter_UsesAlertTopic(t *testing.T) {
	w := NewWriter(&config.Config{
		KafkaBrokers:    []string{"localhost:9092"},
		KafkaAlertTopic: "advisory-summaries",
	}, nil)
	t.Cleanup(func() { _ = w.Close() })

	assert.Equal(t, "advisory-summaries", w.writer.Topic)
	assert.Equal(t, kafkago.RequireAll, w.writer.RequiredAcks)
}
