package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	appconfig "github.com/r29878448-pixel/Rk-shortner-sub000/internal/config"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/events"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/db"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/metrics"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/telemetry"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/messaging/kafka"
	mongoStorage "github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage/mongo"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type consumerConfig struct {
	env         string
	name        string
	version     string
	logLevel    string
	metricsAddr string

	otelEnabled     bool
	otelEndpoint    string
	otelSampleRatio float64

	mongoURI      string
	mongoDatabase string

	brokers []string
	topic   string
	groupID string

	maxWait time.Duration
	opTTL   time.Duration
	backoff time.Duration
}

// dailyProjector is the part of the stats repository the consumer writes to.
type dailyProjector interface {
	IncDaily(ctx context.Context, eventID, code string, at time.Time, earned float64) (bool, error)
}

// messageReader is the subset of *kafka.Reader used by the consume loop.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

type consumer struct {
	reader  messageReader
	stats   dailyProjector
	opTTL   time.Duration
	backoff time.Duration
}

func main() {
	cfg, err := loadConsumerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid consumer config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.env, cfg.logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.otelEnabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Options{
			Endpoint:    cfg.otelEndpoint,
			ServiceName: cfg.name + "-click-consumer",
			Version:     cfg.version,
			Environment: cfg.env,
			SampleRatio: cfg.otelSampleRatio,
		})
		if err != nil {
			logger.Warn("tracing disabled", zap.Error(err))
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Warn("tracer shutdown failed", zap.Error(err))
				}
			}()
		}
	}

	mongoConn, err := db.ConnectMongo(ctx, cfg.mongoURI, cfg.mongoDatabase)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = mongoConn.Disconnect() }()

	statsRepo, err := mongoStorage.NewClickStatsRepository(mongoConn)
	if err != nil {
		logger.Fatal("failed to initialize stats repository", zap.Error(err))
	}

	if cfg.metricsAddr != "" {
		go serveMetrics(cfg.metricsAddr)
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.brokers,
		Topic:       cfg.topic,
		GroupID:     cfg.groupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     cfg.maxWait,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("failed to close kafka reader", zap.Error(err))
		}
	}()

	logger.Info("click projection consumer started",
		zap.Strings("brokers", cfg.brokers),
		zap.String("topic", cfg.topic),
		zap.String("group", cfg.groupID),
	)

	c := &consumer{reader: reader, stats: statsRepo, opTTL: cfg.opTTL, backoff: cfg.backoff}
	c.run(ctx)
	logger.Info("click projection consumer stopped")
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics listener failed", zap.Error(err))
	}
}

// run fetches, projects and commits until ctx is cancelled. A message that
// fails is retried in place: committing a later offset on the partition
// would skip it for good.
func (c *consumer) run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to fetch kafka message", zap.Error(err))
			if !c.wait(ctx) {
				return
			}
			continue
		}
		if !c.consumeUntilDone(ctx, msg) {
			return
		}
	}
}

// consumeUntilDone reports false if ctx ended before msg was committed.
func (c *consumer) consumeUntilDone(ctx context.Context, msg kafkago.Message) bool {
	for attempt := 1; ; attempt++ {
		err := c.consume(ctx, msg)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		logger.Error("click event not projected, retrying",
			zap.Error(err),
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
		)
		if !c.wait(ctx) {
			return false
		}
	}
}

func (c *consumer) consume(ctx context.Context, msg kafkago.Message) error {
	ctx, span := telemetry.StartKindSpan(kafka.ContextFromHeaders(ctx, msg.Headers), "kafka.consume.click_recorded", trace.SpanKindConsumer,
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination.name", msg.Topic),
		attribute.String("messaging.operation", "process"),
		attribute.Int("messaging.kafka.partition", msg.Partition),
		attribute.Int64("messaging.kafka.offset", msg.Offset),
	)
	defer span.End()

	if err := processMessage(ctx, msg, c.stats, c.opTTL); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "project click event failed")
		return err
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit kafka offset failed")
		return fmt.Errorf("commit offset: %w", err)
	}
	return nil
}

// wait sleeps for the backoff and reports false if ctx ended first.
func (c *consumer) wait(ctx context.Context) bool {
	t := time.NewTimer(c.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// processMessage projects one ClickRecorded event into the daily counters.
// Malformed payloads are skipped so they do not block the partition.
func processMessage(ctx context.Context, msg kafkago.Message, stats dailyProjector, opTTL time.Duration) error {
	var event events.ClickRecorded
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		metrics.ClicksProjected.WithLabelValues("skipped").Inc()
		logger.Warn("invalid click event payload, skipping",
			zap.Error(err),
			zap.ByteString("payload", msg.Value),
		)
		return nil
	}
	if strings.TrimSpace(event.ShortCode) == "" {
		metrics.ClicksProjected.WithLabelValues("skipped").Inc()
		logger.Warn("click event missing short code, skipping", zap.String("event_id", event.EventID))
		return nil
	}

	at, err := event.OccurredTime(msg.Time)
	if err != nil {
		logger.Warn("invalid event occurredAt, using kafka timestamp",
			zap.Error(err),
			zap.String("event_id", event.EventID),
		)
	}

	opCtx, cancel := context.WithTimeout(ctx, opTTL)
	defer cancel()

	applied, err := stats.IncDaily(opCtx, event.EventID, event.ShortCode, at, event.Earned)
	if err != nil {
		metrics.ClicksProjected.WithLabelValues("error").Inc()
		return err
	}
	if !applied {
		metrics.ClicksProjected.WithLabelValues("duplicate").Inc()
		logger.Debug("click event already projected", zap.String("event_id", event.EventID))
		return nil
	}
	metrics.ClicksProjected.WithLabelValues("applied").Inc()
	return nil
}

func loadConsumerConfig() (consumerConfig, error) {
	cfg := consumerConfig{
		env:             appconfig.GetEnv("APP_ENV", "production"),
		name:            appconfig.GetEnv("APP_NAME", "rk-shortner"),
		version:         appconfig.GetEnv("APP_VERSION", "0.1.0"),
		logLevel:        appconfig.GetEnv("LOG_LEVEL", "info"),
		metricsAddr:     appconfig.GetEnv("CONSUMER_METRICS_ADDR", ""),
		otelEnabled:     appconfig.GetEnvBool("OTEL_ENABLED", false),
		otelEndpoint:    appconfig.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		otelSampleRatio: appconfig.GetEnvFloat("OTEL_SAMPLE_RATIO", 1),
		mongoURI:        appconfig.GetEnv("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		mongoDatabase:   appconfig.GetEnv("MONGODB_DATABASE", "shortner"),
		brokers:         appconfig.SplitCSV(appconfig.GetEnv("KAFKA_BROKERS", "localhost:9092")),
		topic:           appconfig.GetEnv("KAFKA_CLICK_TOPIC", "clicks.recorded"),
		groupID:         appconfig.GetEnv("KAFKA_CLICK_GROUP_ID", "click-projection"),
		maxWait:         appconfig.GetEnvDuration("KAFKA_CONSUMER_MAX_WAIT", 500*time.Millisecond),
		opTTL:           appconfig.GetEnvDuration("KAFKA_CONSUMER_OPERATION_TIMEOUT", 5*time.Second),
		backoff:         appconfig.GetEnvDuration("KAFKA_CONSUMER_BACKOFF", 500*time.Millisecond),
	}

	switch {
	case len(cfg.brokers) == 0:
		return cfg, errors.New("KAFKA_BROKERS must contain at least one broker")
	case cfg.opTTL <= 0:
		return cfg, errors.New("KAFKA_CONSUMER_OPERATION_TIMEOUT must be > 0")
	case cfg.backoff <= 0:
		return cfg, errors.New("KAFKA_CONSUMER_BACKOFF must be > 0")
	}
	return cfg, nil
}
