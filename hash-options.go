// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import (
	"hash"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// FallbackFactory creates a software hash for the named algorithm. The
// returned hash must implement encoding.BinaryMarshaler and
// encoding.BinaryUnmarshaler so request state can be exported and imported.
type FallbackFactory func(name string) (hash.Hash, error)

// Config holds the tunables of an Engine.
type Config struct {
	Logger *zap.Logger

	// StagingSize is the capacity of the DMA staging buffer used for
	// unaligned input. Must be a positive multiple of 4.
	StagingSize int

	// SettleInterval and SettleRetries bound the poll for the hash core
	// result after the last burst.
	SettleInterval time.Duration
	SettleRetries  int

	// BurstTimeout bounds the wait for a burst interrupt.
	BurstTimeout time.Duration

	// BusyRetries and BusyBackoff control restaging when the device
	// reports it cannot map a chunk.
	BusyRetries int
	BusyBackoff time.Duration

	// QueueDepth is the number of requests that may wait for the engine.
	QueueDepth int

	Fallback FallbackFactory

	// BatchConcurrency bounds the number of outstanding requests of
	// Transform.DigestMany.
	BatchConcurrency int
}

// Option configures an Engine.
type Option func(*Config)

// pageSize is the staging capacity used when none is configured.
const pageSize = 4096

// Estimated settle time after the last DMA transfer. 10us keeps the poll
// from spinning while still reacting quickly.
const defaultSettleInterval = 10 * time.Microsecond

func defaultConfig() Config {
	return Config{
		Logger:           zap.NewNop(),
		StagingSize:      pageSize,
		SettleInterval:   defaultSettleInterval,
		SettleRetries:    10000,
		BurstTimeout:     time.Second,
		BusyRetries:      16,
		BusyBackoff:      50 * time.Microsecond,
		QueueDepth:       64,
		Fallback:         softwareFallback,
		BatchConcurrency: 8,
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l == nil {
			l = zap.NewNop()
		}
		c.Logger = l
	}
}

// WithStagingSize sets the DMA staging buffer capacity.
func WithStagingSize(n int) Option {
	return func(c *Config) { c.StagingSize = n }
}

// WithSettlePolling sets the interval and maximum number of polls for the
// hash core to settle after the final burst.
func WithSettlePolling(interval time.Duration, retries int) Option {
	return func(c *Config) {
		c.SettleInterval = interval
		c.SettleRetries = retries
	}
}

// WithBurstTimeout sets how long to wait for a burst interrupt.
func WithBurstTimeout(d time.Duration) Option {
	return func(c *Config) { c.BurstTimeout = d }
}

// WithBusyRetry sets how often and how fast a busy device is retried.
func WithBusyRetry(retries int, backoff time.Duration) Option {
	return func(c *Config) {
		c.BusyRetries = retries
		c.BusyBackoff = backoff
	}
}

// WithQueueDepth sets the number of requests that may wait for the engine.
func WithQueueDepth(n int) Option {
	return func(c *Config) { c.QueueDepth = n }
}

// WithFallback replaces the software hash factory.
func WithFallback(f FallbackFactory) Option {
	return func(c *Config) { c.Fallback = f }
}

// WithBatchConcurrency bounds Transform.DigestMany.
func WithBatchConcurrency(n int) Option {
	return func(c *Config) { c.BatchConcurrency = n }
}

func (c *Config) validate() error {
	switch {
	case c.StagingSize <= 0 || c.StagingSize%alignSize != 0:
		return errors.Wrapf(ErrInvalidArgument, "staging size %d", c.StagingSize)
	case c.SettleRetries <= 0:
		return errors.Wrapf(ErrInvalidArgument, "settle retries %d", c.SettleRetries)
	case c.SettleInterval < 0:
		return errors.Wrapf(ErrInvalidArgument, "settle interval %v", c.SettleInterval)
	case c.BurstTimeout <= 0:
		return errors.Wrapf(ErrInvalidArgument, "burst timeout %v", c.BurstTimeout)
	case c.BusyRetries < 0:
		return errors.Wrapf(ErrInvalidArgument, "busy retries %d", c.BusyRetries)
	case c.QueueDepth < 0:
		return errors.Wrapf(ErrInvalidArgument, "queue depth %d", c.QueueDepth)
	case c.Fallback == nil:
		return errors.Wrap(ErrInvalidArgument, "nil fallback factory")
	case c.BatchConcurrency <= 0:
		return errors.Wrapf(ErrInvalidArgument, "batch concurrency %d", c.BatchConcurrency)
	}
	return nil
}
