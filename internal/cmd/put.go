package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/config"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/minio"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// ClientFactory builds the client for the configured backend.
type ClientFactory func(cfg *config.Config, logger *slog.Logger) (*s3stream.Client, error)

type PutOptions struct {
	Bucket       string
	Key          string
	ContentType  string
	StorageClass string
	Backend      string
	PartSize     int
	Metadata     map[string]string

	// Path is the file to upload; empty reads standard input.
	Path string

	// LoadConfig reads the environment. Flags are applied on top and the
	// result is validated once, in Validate.
	LoadConfig func() (*config.Config, error)
	NewClient  ClientFactory

	cfg    *config.Config
	logger *slog.Logger

	iooption.IOStreams
}

var (
	putLong = templates.LongDesc(`
		Upload standard input, or the given file, as one object.

		The object is committed only once all input was read and every part
		was stored. On failure the partial upload is aborted.`)

	putExample = templates.Examples(`
		# Stream stdin with an explicit key
		tar cz ./logs | s3stream put --bucket archive --key logs.tar.gz

		# Upload a file under a generated key
		s3stream put ./report.pdf --bucket reports`)
)

func NewPutOptions(streams iooption.IOStreams) *PutOptions {
	return &PutOptions{
		LoadConfig: config.Read,
		NewClient:  NewClient,
		IOStreams:  streams,
	}
}

func NewPutCommand(o *PutOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "put [FILE]",
		DisableFlagsInUseLine: true,
		Short:                 "Stream a file or standard input into an object",
		Long:                  putLong,
		Example:               putExample,
		Args:                  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return o.Run(ctx)
		},
	}

	flags := cmd.Flags()

	flags.StringVarP(&o.Bucket, "bucket", "b", "", "Destination bucket")
	flags.StringVarP(&o.Key, "key", "k", "", "Destination key (default: random UUID plus the file extension)")
	flags.StringVar(&o.ContentType, "content-type", "", "Content type (default: detected)")
	flags.StringVar(&o.StorageClass, "storage-class", "", "Storage class, e.g. STANDARD_IA")
	flags.StringVar(&o.Backend, "backend", "", "Backend to use: aws or minio (default: $S3STREAM_BACKEND)")
	flags.IntVar(&o.PartSize, "part-size", 0, "Part size in bytes (default: $S3STREAM_PART_SIZE)")
	flags.StringToStringVar(&o.Metadata, "metadata", nil, "User metadata as key=value pairs")

	return cmd
}

func (o *PutOptions) Complete(_ *cobra.Command, args []string) error {
	if len(args) == 1 && args[0] != "-" {
		o.Path = args[0]
	}

	cfg, err := o.LoadConfig()
	if err != nil {
		return err
	}
	if o.Backend != "" {
		cfg.Backend = strings.ToLower(o.Backend)
	}
	if o.PartSize > 0 {
		cfg.PartSize = o.PartSize
	}
	o.cfg = cfg
	o.logger = cfg.Logger(o.ErrOut)

	if o.Key == "" {
		o.Key = uuid.NewString() + filepath.Ext(o.Path)
	}
	return nil
}

func (o *PutOptions) Validate() error {
	if o.Bucket == "" {
		return fmt.Errorf("--bucket is required")
	}
	return o.cfg.Validate()
}

func (o *PutOptions) Run(ctx context.Context) error {
	client, err := o.NewClient(o.cfg, o.logger)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	opts := []s3types.WriterOption{
		s3stream.WithProgress(&logProgress{ctx: ctx, logger: o.logger}),
	}
	if o.ContentType != "" {
		opts = append(opts, s3stream.WithContentType(o.ContentType))
	}
	if o.StorageClass != "" {
		opts = append(opts, s3stream.WithStorageClass(s3types.StorageClass(o.StorageClass)))
	}
	if len(o.Metadata) > 0 {
		opts = append(opts, s3stream.WithMetadata(o.Metadata))
	}

	var obj *s3types.CommittedObject
	if o.Path != "" {
		var path string
		path, err = filepath.Abs(o.Path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", o.Path, err)
		}
		obj, err = client.UploadFile(ctx, o.Bucket, o.Key, path, opts...)
	} else {
		obj, err = client.Upload(ctx, o.Bucket, o.Key, o.In, opts...)
	}
	if err != nil {
		return fmt.Errorf("upload failed (%s): %w", errors.Code(err), err)
	}

	dest := s3types.Destination{Bucket: o.Bucket, Key: o.Key}
	fmt.Fprintf(o.Out, "%s etag=%s parts=%d size=%d\n", dest, obj.ETag, obj.Parts, obj.Size)
	return nil
}

// NewClient builds an s3stream client for cfg.Backend.
func NewClient(cfg *config.Config, logger *slog.Logger) (*s3stream.Client, error) {
	opts := []s3types.Option{
		s3stream.WithPartSize(cfg.PartSize),
		s3stream.WithLogger(logger),
	}

	if cfg.Backend == config.BackendMinio {
		uploader, err := minio.New(minio.Config{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
			Region:    cfg.Minio.Region,
		})
		if err != nil {
			return nil, err
		}
		return s3stream.NewWithUploader(uploader, opts...), nil
	}

	opts = append(opts,
		s3stream.WithRegion(cfg.Region),
		s3stream.WithEndpoint(cfg.Endpoint),
		s3stream.WithForcePathStyle(cfg.PathStyle),
		s3stream.WithMaxRetries(cfg.MaxRetries),
	)
	return s3stream.New(opts...)
}

// logProgress reports upload progress at debug level.
type logProgress struct {
	ctx    context.Context
	logger *slog.Logger
}

func (p *logProgress) Update(bytesTransferred, _ int64) {
	p.logger.DebugContext(p.ctx, "progress", slog.Int64("uploaded", bytesTransferred))
}

func (p *logProgress) Complete() {}

func (p *logProgress) Error(error) {}
