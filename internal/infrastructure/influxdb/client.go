package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/config"
)

var (
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrNotConnected     = errors.New("influxdb: client closed")
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// pointWriter is the subset of api.WriteAPI in use.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

type pinger interface {
	Ping(ctx context.Context) (bool, error)
}

// Client batches telemetry points into one bucket. Writes never block; an
// asynchronous write failure is passed to the SetOnError callback.
type Client struct {
	client   influxdb2.Client // nil in tests
	ping     pinger
	writeAPI pointWriter
	closed   atomic.Bool

	mu      sync.RWMutex
	onError func(err error)
}

// Connect pings the server at cfg.URL and starts a batching writer for
// cfg.Org/cfg.Bucket. It returns ErrDisabled when cfg is not enabled.
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := checkPing(pingCtx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	c := newClient(client, writeAPI)
	c.client = client
	go c.handleWriteErrors(writeAPI.Errors())
	return c, nil
}

func clientOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds())) // #nosec G115 -- positive
}

func newClient(ping pinger, w pointWriter) *Client {
	return &Client{ping: ping, writeAPI: w}
}

func checkPing(ctx context.Context, p pinger) error {
	healthy, err := p.Ping(ctx)
	if err != nil {
		return err
	}
	if !healthy {
		return errors.New("server reports unhealthy")
	}
	return nil
}

func (c *Client) handleWriteErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		fn := c.onError
		c.mu.RUnlock()
		if fn != nil {
			fn(err)
		}
	}
}

// SetOnError sets the callback for failed batch writes.
func (c *Client) SetOnError(fn func(err error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// IsConnected reports whether Close has not been called yet.
func (c *Client) IsConnected() bool { return !c.closed.Load() }

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := checkPing(ctx, c.ping); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Flush sends buffered points now. No-op after Close.
func (c *Client) Flush() {
	if !c.closed.Load() {
		c.writeAPI.Flush()
	}
}

// Close flushes once and releases the connection. Later writes are dropped.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.writeAPI.Flush()
	if c.client != nil {
		c.client.Close()
	}
	return nil
}
