package clickhouse

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"
)

// Default ports of the two clickhouse-go transports.
const (
	NativePort = 9000
	HTTPPort   = 8123
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig describes where forecasts are written and how the pool behaves.
type ClientConfig struct {
	Host     string
	Port     int
	UseHTTP  bool
	Database string
	User     string
	Password string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	DialTimeout time.Duration
	ReadTimeout time.Duration

	AsyncInsert  bool
	WaitForAsync bool
	MaxExecTime  time.Duration
}

func defaultConfig() *ClientConfig {
	return &ClientConfig{
		Database:        "default",
		User:            "default",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     10 * time.Second,
	}
}

// validate rejects configs that cannot be dialed. The database name ends up
// inside DDL and INSERT statements, so it must be a plain identifier.
func (c *ClientConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if !identifier.MatchString(c.Database) {
		return fmt.Errorf("invalid database name %q", c.Database)
	}
	return nil
}

// DSN renders the clickhouse-go connection string. A zero port picks the
// default of the selected transport.
func (c ClientConfig) DSN() string {
	scheme, port := "clickhouse", c.Port
	if c.UseHTTP {
		scheme = "http"
	}
	if port == 0 {
		port = NativePort
		if c.UseHTTP {
			port = HTTPPort
		}
	}

	q := url.Values{}
	if c.DialTimeout > 0 {
		q.Set("dial_timeout", c.DialTimeout.String())
	}
	if c.ReadTimeout > 0 {
		q.Set("read_timeout", c.ReadTimeout.String())
	}
	if c.MaxExecTime >= time.Second {
		q.Set("max_execution_time", strconv.Itoa(int(c.MaxExecTime/time.Second)))
	}
	if c.AsyncInsert {
		q.Set("async_insert", "1")
		if c.WaitForAsync {
			q.Set("wait_for_async_insert", "1")
		}
	}

	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(port),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// WithAddr sets host and port; port 0 keeps the transport default.
func WithAddr(host string, port int) ClientOption {
	return func(c *ClientConfig) {
		c.Host = host
		c.Port = port
	}
}

// WithHTTP switches from the native protocol to HTTP.
func WithHTTP(useHTTP bool) ClientOption {
	return func(c *ClientConfig) { c.UseHTTP = useHTTP }
}

func WithDatabase(database string) ClientOption {
	return func(c *ClientConfig) { c.Database = database }
}

func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.User = user
		c.Password = password
	}
}

// WithPool sizes the database/sql pool. Zero values keep the defaults.
func WithPool(maxOpen, maxIdle int, lifetime time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if maxOpen > 0 {
			c.MaxOpenConns = maxOpen
		}
		if maxIdle > 0 {
			c.MaxIdleConns = maxIdle
		}
		if lifetime > 0 {
			c.ConnMaxLifetime = lifetime
		}
	}
}

// WithTimeouts sets dial and read timeouts. Zero values keep the defaults.
func WithTimeouts(dial, read time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if dial > 0 {
			c.DialTimeout = dial
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

// WithInserts configures server-side async inserts and the per-query time limit.
func WithInserts(async, wait bool, maxExec time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.AsyncInsert = async
		c.WaitForAsync = wait
		c.MaxExecTime = maxExec
	}
}
