// Package redis connects the optional Redis server that backs the database
// image, the offline caches and the settings document.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

// ConnectOptions defines the client and its startup retry policy.
type ConnectOptions struct {
	Addr         string // ex: "localhost:6379"
	User         string
	Password     string
	RedisDB      int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	ConnectTimeout time.Duration // total budget for the first successful ping (ex: 30s)
	RetryInterval  time.Duration // first wait, doubled after each failure (ex: 2s)
	MaxWait        time.Duration // cap on a single wait (ex: 10s)
	PingTimeout    time.Duration // per ping (ex: 2s)
	WarnThreshold  int           // failures logged at warn before switching to error
}

func (o ConnectOptions) validate() error {
	var errs []error
	positive := func(name string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", name, d))
		}
	}
	positive("ConnectTimeout", o.ConnectTimeout)
	positive("RetryInterval", o.RetryInterval)
	positive("MaxWait", o.MaxWait)
	positive("PingTimeout", o.PingTimeout)
	if o.WarnThreshold < 0 {
		errs = append(errs, fmt.Errorf("WarnThreshold must be >= 0, got %d", o.WarnThreshold))
	}
	return errors.Join(errs...)
}

func (o ConnectOptions) policy() backoff.BackOff {
	p := backoff.NewExponentialBackOff()
	p.InitialInterval = o.RetryInterval
	p.MaxInterval = o.MaxWait
	p.MaxElapsedTime = o.ConnectTimeout
	p.Multiplier = 2
	p.RandomizationFactor = 0
	return p
}

// New creates a client and blocks until Redis answers a ping or
// ConnectTimeout runs out, in which case the client is closed.
func New(opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid redis options: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.RedisDB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	log = log.With(logger.String("addr", opts.Addr))
	log.Info("🔌 Connecting to redis", logger.Duration("timeout", opts.ConnectTimeout))

	start := time.Now()
	attempts := 0
	ping := func() error {
		attempts++
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		defer pingCancel()
		return client.Ping(pingCtx).Err()
	}
	notify := func(err error, next time.Duration) {
		fields := []logger.Field{
			logger.Int("attempt", attempts),
			logger.Duration("next_retry_in", next),
			logger.Error(err),
		}
		if attempts <= opts.WarnThreshold {
			log.Warn("redis connection failed, retrying", fields...)
			return
		}
		if deadline, ok := ctx.Deadline(); ok {
			fields = append(fields, logger.Duration("remaining", time.Until(deadline)))
		}
		log.Error("redis still unavailable", fields...)
	}

	if err := backoff.RetryNotify(ping, backoff.WithContext(opts.policy(), ctx), notify); err != nil {
		log.Error("redis unavailable, giving up",
			logger.Int("attempts", attempts),
			logger.Error(err))
		_ = client.Close()
		return nil, fmt.Errorf("redis unavailable at %s after %d attempts (timeout: %v): %w",
			opts.Addr, attempts, opts.ConnectTimeout, err)
	}

	if attempts > 1 {
		log.Warn("connected to redis after retry",
			logger.Int("attempts", attempts),
			logger.Duration("elapsed", time.Since(start)))
	} else {
		log.Info("✅ Connected to redis")
	}
	return client, nil
}
