package orgvault

import (
	"net/http"
	"time"

	"github.com/orgvault/client-go/internal/api"
	"github.com/orgvault/client-go/internal/crypto"
)

const (
	defaultMigrationQueueSize   = 64
	defaultMigrationMaxAttempts = 3
	defaultMigrationBaseDelay   = time.Second
)

// clientConfig holds configuration for the client.
type clientConfig struct {
	httpClient *http.Client
	timeout    time.Duration
	retries    int
	retryOn    []int

	kdfIterations int

	// Migration queue configuration
	migrationQueueSize   int
	migrationMaxAttempts int
	migrationBaseDelay   time.Duration
	onMigrationError     func(itemID string, err error)
}

// Option configures the client.
type Option func(*clientConfig)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithTimeout sets the default timeout for API calls.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the number of retries for API calls.
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.retries = count
	}
}

// WithRetryOn sets the HTTP status codes that trigger a retry.
// Default: [408, 429, 500, 502, 503, 504]
func WithRetryOn(statusCodes []int) Option {
	return func(c *clientConfig) {
		c.retryOn = statusCodes
	}
}

// WithKDFIterations raises the PBKDF2 iteration count used for new
// identities. Values below the default work factor are ignored; login
// always uses the count the server recorded for the account.
func WithKDFIterations(iterations int) Option {
	return func(c *clientConfig) {
		if iterations > crypto.KDFIterations {
			c.kdfIterations = iterations
		}
	}
}

// WithMigrationQueueSize sets the capacity of the background migration
// queue. When the queue is full new migrations are skipped; the next
// read re-enqueues them.
// Default: 64
func WithMigrationQueueSize(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.migrationQueueSize = n
		}
	}
}

// WithMigrationMaxAttempts sets how many times one item migration is
// attempted before it is dropped back to read-triggered retry.
// Default: 3
func WithMigrationMaxAttempts(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.migrationMaxAttempts = n
		}
	}
}

// WithMigrationErrorHandler sets a callback invoked when a background
// migration gives up on an item. Without a handler the failure is
// silent; the record stays at version 1 and migrates on a later read.
func WithMigrationErrorHandler(fn func(itemID string, err error)) Option {
	return func(c *clientConfig) {
		c.onMigrationError = fn
	}
}

// buildRetryPolicy maps client retry options onto the API retry policy.
func (cfg *clientConfig) buildRetryPolicy() *api.RetryPolicy {
	p := api.DefaultRetryPolicy()
	if cfg.retries > 0 {
		p.MaxRetries = cfg.retries
	}
	if len(cfg.retryOn) > 0 {
		codes := make(map[int]struct{}, len(cfg.retryOn))
		for _, code := range cfg.retryOn {
			codes[code] = struct{}{}
		}
		p.RetryableStatus = func(statusCode int) bool {
			_, ok := codes[statusCode]
			return ok
		}
	}
	return p
}
