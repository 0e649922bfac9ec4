package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
)

type mockKafkaConn struct {
	createFunc func(topics ...kafka.TopicConfig) error
	readFunc   func(topics ...string) ([]kafka.Partition, error)
	created    []kafka.TopicConfig
}

func (m *mockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	m.created = append(m.created, topics...)
	if m.createFunc != nil {
		return m.createFunc(topics...)
	}
	return nil
}

func (m *mockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.readFunc != nil {
		return m.readFunc(topics...)
	}
	return nil, nil
}

func (m *mockKafkaConn) Close() error { return nil }

func newTestTopicManager(conn ConnInterface) *TopicManager {
	return &TopicManager{conn: conn, logger: logging.NewNopLogger()}
}

func TestDefaultTopics(t *testing.T) {
	names := map[string]bool{}
	for _, tc := range DefaultTopics() {
		names[tc.Name] = true
		assert.Positive(t, tc.NumPartitions)
	}
	for _, want := range []string{TopicAnalysisRequested, TopicAnalysisCompleted, TopicAnalysisFailed, TopicDeadLetter} {
		assert.True(t, names[want], want)
	}
}

func TestTopicManager_EnsureDefaultTopics(t *testing.T) {
	conn := &mockKafkaConn{}
	m := newTestTopicManager(conn)
	require.NoError(t, m.EnsureDefaultTopics(context.Background()))
	require.Len(t, conn.created, len(DefaultTopics()))
	assert.Equal(t, "retention.ms", conn.created[0].ConfigEntries[0].ConfigName)
}

func TestTopicManager_CreateTopicExisting(t *testing.T) {
	conn := &mockKafkaConn{
		createFunc: func(...kafka.TopicConfig) error { return errors.New("topic already exists") },
		readFunc: func(...string) ([]kafka.Partition, error) {
			return []kafka.Partition{{Topic: TopicAnalysisRequested}}, nil
		},
	}
	m := newTestTopicManager(conn)
	assert.NoError(t, m.CreateTopic(context.Background(), TopicConfig{Name: TopicAnalysisRequested, NumPartitions: 1, ReplicationFactor: 1}))
}

func TestTopicManager_CreateTopicValidation(t *testing.T) {
	m := newTestTopicManager(&mockKafkaConn{})
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{}))
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{Name: "x"}))
}

func TestEventEnvelope_RoundTrip(t *testing.T) {
	type payload struct {
		AnalysisID string `json:"analysis_id"`
	}
	env, err := NewEventEnvelope(EventAnalysisCompleted, "keygap-worker", payload{AnalysisID: "a1"})
	require.NoError(t, err)
	env.TraceID = "trace-1"

	msg, err := env.ToMessage(TopicAnalysisCompleted, "a1")
	require.NoError(t, err)
	assert.Equal(t, TopicAnalysisCompleted, msg.Topic)
	assert.Equal(t, "a1", string(msg.Key))
	assert.Equal(t, EventAnalysisCompleted, msg.Headers["event_type"])
	assert.Equal(t, "trace-1", msg.Headers["trace_id"])

	decoded, err := MessageToEventEnvelope(&Message{Value: msg.Value})
	require.NoError(t, err)
	assert.Equal(t, env.EventID, decoded.EventID)

	var p payload
	require.NoError(t, decoded.DecodePayload(&p))
	assert.Equal(t, "a1", p.AnalysisID)
}

func TestEventEnvelope_Errors(t *testing.T) {
	_, err := MessageToEventEnvelope(&Message{})
	assert.Error(t, err)
	_, err = MessageToEventEnvelope(&Message{Value: []byte("{")})
	assert.Error(t, err)

	var target map[string]interface{}
	assert.Error(t, (&EventEnvelope{}).DecodePayload(&target))
}

//Personal.AI order the ending
