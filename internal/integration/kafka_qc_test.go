//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/obs-qc-service/internal/adapter/kafka"
	"github.com/couchcryptid/obs-qc-service/internal/config"
	"github.com/couchcryptid/obs-qc-service/internal/observability"
	"github.com/couchcryptid/obs-qc-service/internal/obsspace"
	"github.com/couchcryptid/obs-qc-service/internal/pipeline"
	"github.com/couchcryptid/obs-qc-service/internal/qc"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	testSourceTopic = "test-obs-batches"
	testSinkTopic   = "test-qc-reports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// makeBatch builds the canonical five-location scenario: after QC it reports
// pass=2, missing=2, Hfailed=1.
func makeBatch() obsspace.RawBatch {
	return obsspace.RawBatch{
		Obstype:   "Radiosonde",
		Variables: []string{"airTemperature"},
		Nlocs:     5,
		Flags:     [][]int{{0, 0, 0, 0, 0}},
		Values:    [][]float64{{1, 2, obsspace.MissingFloat, 4, 5}},
		Errors:    [][]float64{{0.1, 0.1, 0.1, 0.1, obsspace.MissingFloat}},
		Hofx:      []float64{1, obsspace.MissingFloat, obsspace.MissingFloat, 4, obsspace.MissingFloat},
	}
}

// readSummary reads a single message from the sink consumer and deserializes it.
func readSummary(ctx context.Context, t *testing.T, consumer *kafkago.Reader) (qc.Summary, map[string]string) {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var summary qc.Summary
	require.NoError(t, json.Unmarshal(msg.Value, &summary), "unmarshal sink message")
	return summary, headers
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (extractor)
// and kafka.Writer (loader) correctly round-trip through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-reader-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	payload, err := json.Marshal(makeBatch())
	require.NoError(t, err)

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("Radiosonde"),
		Value: payload,
	}))

	// Extract via kafka.Reader.
	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []obsspace.RawEvent
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		if err == nil && len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("Radiosonde"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	// Run QC on the extracted batch.
	processor := pipeline.NewProcessor("diagonal", discardLogger(), observability.NewMetricsForTesting())
	summary, err := processor.Process(ctx, raw)
	require.NoError(t, err)

	// Load via kafka.Writer.
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.LoadBatch(ctx, []qc.Summary{summary}))

	// Read from the sink topic and verify headers + counts.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got, headers := readSummary(ctx, t, consumer)
	assert.Equal(t, "Radiosonde", headers["obstype"])
	assert.Contains(t, headers, "generated_at")
	_, err = time.Parse(time.RFC3339, headers["generated_at"])
	assert.NoError(t, err, "generated_at should be valid RFC3339")

	require.Len(t, got.Variables, 1)
	v := got.Variables[0]
	assert.Equal(t, int64(5), v.Total)
	assert.Equal(t, int64(2), v.Count(qc.CategoryPass))
	assert.Equal(t, int64(2), v.Count(qc.CategoryMissing))
	assert.Equal(t, int64(1), v.Count(qc.CategoryHfailed))
}

// TestPipelineEndToEnd wires the full pipeline (Reader → Processor → Writer)
// with real Kafka and verifies QC reports for several observation types.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-pipeline-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	// Publish one well-formed batch per obstype plus a poison pill.
	obstypes := []string{"Radiosonde", "Aircraft", "Satwind"}
	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	msgs := []kafkago.Message{
		{Key: []byte("bad"), Value: []byte("not-json{{{")},
	}
	for _, obstype := range obstypes {
		batch := makeBatch()
		batch.Obstype = obstype
		payload, err := json.Marshal(batch)
		require.NoError(t, err)
		msgs = append(msgs, kafkago.Message{Key: []byte(obstype), Value: payload})
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	// Wire up the pipeline.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	processor := pipeline.NewProcessor("diagonal", discardLogger(), observability.NewMetricsForTesting())

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, processor, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Read the reports from the sink topic; the poison pill must not appear.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	seen := map[string]qc.Summary{}
	for len(seen) < len(obstypes) {
		summary, headers := readSummary(ctx, t, consumer)
		seen[summary.Obstype] = summary
		assert.Equal(t, summary.Obstype, headers["obstype"])
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	for _, obstype := range obstypes {
		summary, ok := seen[obstype]
		require.True(t, ok, "missing report for %s", obstype)
		require.Len(t, summary.Variables, 1)
		v := summary.Variables[0]
		assert.Equal(t, int64(5), v.Total, "%s total", obstype)
		assert.Equal(t, int64(2), v.Count(qc.CategoryPass), "%s pass", obstype)
		assert.Equal(t, int64(2), v.Count(qc.CategoryMissing), "%s missing", obstype)
		assert.Equal(t, int64(1), v.Count(qc.CategoryHfailed), "%s Hfailed", obstype)
	}

	// Verify no extra message arrives (the poison pill was skipped).
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no further messages on sink topic")
}
