package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"
)

var (
	rootLong = templates.LongDesc(`
		Stream data of unknown length into a single S3 object.

		Input is cut into fixed-size parts that upload while the rest is
		still being read. Backend settings come from S3STREAM_* environment
		variables.`)

	rootExamples = templates.Examples(`
		# Stream a database dump straight into S3
		pg_dump mydb | s3stream put --bucket backups --key db/mydb.sql

		# Upload a file to MinIO
		S3STREAM_BACKEND=minio S3STREAM_MINIO_ENDPOINT=localhost:9000 \
		  s3stream put ./video.mp4 --bucket media`)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// RootOptions defines the options for the `s3stream` command.
type RootOptions struct {
	iooption.IOStreams
}

// NewRootOptions provides an initialised RootOptions instance.
func NewRootOptions(streams iooption.IOStreams) *RootOptions {
	return &RootOptions{
		IOStreams: streams,
	}
}

// NewRootCommand creates the `s3stream` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewRootOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})

	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `s3stream` command and its nested
// children.
func NewRootCommandWithArgs(o *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "s3stream [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Streaming multipart uploads to S3-compatible stores",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}

	cmd.AddCommand(NewPutCommand(NewPutOptions(o.IOStreams)))

	return cmd
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
