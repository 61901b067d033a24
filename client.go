package s3stream

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/multipart"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// Client creates streaming writers against one object store.
// It is safe for concurrent use; the writers it returns are not.
type Client struct {
	// uploader performs the remote multipart operations
	uploader s3types.PartUploader

	// config holds the AWS configuration, zero for non-AWS stores
	config aws.Config

	// partSize is the default part capacity for new writers
	partSize int

	logger *slog.Logger

	// mu protects fs
	mu sync.RWMutex

	// fs is the filesystem UploadFile reads from
	fs billy.Filesystem

	// rootFS is set while fs is the default OS filesystem rooted at "/"
	rootFS bool
}

func newClientConfig(opts []s3types.Option) *s3types.ClientConfig {
	cfg := &s3types.ClientConfig{
		MaxRetries: 3,
		PartSize:   s3types.DefaultPartSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// New creates a client for AWS S3 or an S3-compatible endpoint.
// It loads AWS credentials using the default credential chain
// and applies the specified configuration options.
//
// Example:
//
//	client, err := s3stream.New(
//	    s3stream.WithRegion("us-west-2"),
//	    s3stream.WithPartSize(16*1024*1024),
//	)
func New(opts ...s3types.Option) (*Client, error) {
	clientCfg := newClientConfig(opts)

	var cfg aws.Config
	if clientCfg.CustomAWSConfig != nil {
		cfg = *clientCfg.CustomAWSConfig
	} else {
		var err error
		cfg, err = config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, errors.NewError("client initialization", err)
		}
	}

	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	if clientCfg.MaxRetries > 0 {
		cfg.RetryMaxAttempts = clientCfg.MaxRetries
	}

	var s3Opts []func(*s3.Options)
	if clientCfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(clientCfg.Endpoint)
		})
	}
	if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	httpClient := clientCfg.HTTPClient
	if httpClient == nil && clientCfg.Timeout > 0 {
		httpClient = &http.Client{Timeout: clientCfg.Timeout}
	}
	if httpClient != nil {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	client := newClient(multipart.NewS3Uploader(s3.NewFromConfig(cfg, s3Opts...)), clientCfg)
	client.config = cfg
	return client, nil
}

// NewWithClient creates a client with a custom S3API implementation.
// This is primarily used for testing with mocked clients.
func NewWithClient(s3Client s3api.S3API, opts ...s3types.Option) *Client {
	return newClient(multipart.NewS3Uploader(s3Client), newClientConfig(opts))
}

// NewWithUploader creates a client for any store that implements
// s3types.PartUploader, such as the one in the minio package.
func NewWithUploader(uploader s3types.PartUploader, opts ...s3types.Option) *Client {
	return newClient(uploader, newClientConfig(opts))
}

func newClient(uploader s3types.PartUploader, cfg *s3types.ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	filesystem, rootFS := cfg.Filesystem, false
	if filesystem == nil {
		filesystem, rootFS = osfs.New("/"), true
	}

	return &Client{
		uploader: uploader,
		partSize: cfg.PartSize,
		logger:   logger,
		fs:       filesystem,
		rootFS:   rootFS,
	}
}

// Region returns the AWS region the client was configured with, or an empty
// string for clients not created by New.
func (c *Client) Region() string {
	return c.config.Region
}

// SetFilesystem sets the filesystem UploadFile reads from.
func (c *Client) SetFilesystem(filesystem billy.Filesystem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fs = filesystem
	c.rootFS = false
}

func (c *Client) filesystem() billy.Filesystem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fs
}

// resolvePath returns the filesystem to read path from. On the default
// filesystem rooted at "/", a relative path is resolved against the working
// directory.
func (c *Client) resolvePath(path string) (billy.Filesystem, string, error) {
	c.mu.RLock()
	fs, rootFS := c.fs, c.rootFS
	c.mu.RUnlock()

	if !rootFS || filepath.IsAbs(path) {
		return fs, path, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	return fs, abs, nil
}
