package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
	"github.com/kirillkom/knowledge-assistant/internal/infrastructure/resilience"
)

// ChangeFeed carries per-user "documents changed" notifications over NATS so
// that every process holding a subscription reloads its partition.
type ChangeFeed struct {
	conn     *nats.Conn
	prefix   string
	executor *resilience.Executor
	logger   *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, subjectPrefix string) (*ChangeFeed, error) {
	return NewWithOptions(url, subjectPrefix, Options{})
}

func NewWithOptions(url, subjectPrefix string, options Options) (*ChangeFeed, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("knowledge-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &ChangeFeed{
		conn:     conn,
		prefix:   strings.TrimRight(subjectPrefix, "."),
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (f *ChangeFeed) Close() {
	if f.conn != nil {
		f.conn.Close()
	}
}

func (f *ChangeFeed) PublishCollectionChanged(ctx context.Context, userID string) error {
	subject := SubjectFor(f.prefix, userID)
	call := func(_ context.Context) error {
		if err := f.conn.Publish(subject, nil); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if f.executor != nil {
		err = f.executor.Execute(ctx, "nats.publish", call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	return resilience.Temporary("publish collection change", err, classifyPublishError)
}

// classifyPublishError retries only connection-level failures. A cancelled
// publish says nothing about the server and is not counted by the breaker.
func classifyPublishError(err error) resilience.Verdict {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.Verdict{}
	case errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrDisconnected),
		errors.Is(err, nats.ErrReconnectBufExceeded):
		return resilience.Verdict{Retry: true, CountAsFailure: true}
	default:
		return resilience.Verdict{CountAsFailure: true}
	}
}

// SubscribeCollectionChanged calls handler for every notification on the
// user's subject. Closing the subscription drains pending messages.
func (f *ChangeFeed) SubscribeCollectionChanged(userID string, handler func()) (ports.Subscription, error) {
	subject := SubjectFor(f.prefix, userID)
	sub, err := f.conn.Subscribe(subject, func(*nats.Msg) {
		handler()
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}
	if err := f.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("nats flush: %w", err)
	}

	return ports.SubscriptionFunc(func() error {
		if err := sub.Drain(); err != nil {
			return fmt.Errorf("nats drain subscription: %w", err)
		}
		return nil
	}), nil
}

// SubjectFor maps a user id onto a single NATS subject token. Characters that
// NATS treats as separators or wildcards are replaced.
func SubjectFor(prefix, userID string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, userID)
	if token == "" {
		token = "_"
	}
	return prefix + "." + token
}
