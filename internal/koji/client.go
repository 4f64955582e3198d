// SPDX-License-Identifier: MPL-2.0

package koji

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/invowk/imagekit/pkg/artifact"
)

// DefaultBinary is the metadata client used when none is configured.
const DefaultBinary = "brew"

// ErrCommandFailed is the sentinel error wrapped by CommandError.
var ErrCommandFailed = errors.New("metadata command failed")

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Option configures a Client.
	Option func(*Client)

	// Client runs the Koji command line client to answer metadata queries.
	Client struct {
		binary      string
		execCommand ExecCommandFunc
		logger      *slog.Logger
	}

	// CommandError is returned when the client exits with an error or cannot
	// be started. Stderr holds the trimmed error output of the client.
	CommandError struct {
		Binary string
		Args   []string
		Stderr string
		Err    error
	}
)

var _ artifact.MetadataService = (*Client)(nil)

// WithBinary sets the client binary (name looked up in PATH, or a path).
func WithBinary(binary string) Option {
	return func(c *Client) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(c *Client) {
		c.execCommand = fn
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		binary:      DefaultBinary,
		execCommand: exec.CommandContext,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Binary returns the configured client binary.
func (c *Client) Binary() string { return c.binary }

// ListArchives returns the Maven archives matching checksum.
func (c *Client) ListArchives(ctx context.Context, checksum string) ([]artifact.Archive, error) {
	out, err := c.call(ctx, "listArchives", "checksum="+checksum, "type=maven")
	if err != nil {
		return nil, err
	}

	var archives []artifact.Archive
	if err := decode(out, &archives); err != nil {
		return nil, fmt.Errorf("failed to decode listArchives output: %w", err)
	}
	return archives, nil
}

// GetBuild returns the build with the given id.
func (c *Client) GetBuild(ctx context.Context, id artifact.BuildID) (*artifact.Build, error) {
	out, err := c.call(ctx, "getBuild", id.String())
	if err != nil {
		return nil, err
	}

	var build *artifact.Build
	if err := decode(out, &build); err != nil {
		return nil, fmt.Errorf("failed to decode getBuild output: %w", err)
	}
	if build == nil {
		return nil, fmt.Errorf("build %s not found", id)
	}
	return build, nil
}

// call runs "<binary> call --json-output <method> <args...>" and returns stdout.
func (c *Client) call(ctx context.Context, method string, args ...string) ([]byte, error) {
	cmdArgs := append([]string{"call", "--json-output", method}, args...)
	c.logger.Debug("querying build metadata", "binary", c.binary, "args", cmdArgs)

	cmd := c.execCommand(ctx, c.binary, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &CommandError{
			Binary: c.binary,
			Args:   cmdArgs,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.Bytes(), nil
}

// decode parses lenient JSON output. Empty output decodes as null.
func decode(data []byte, v any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		data = []byte("null")
	}
	return json.Unmarshal(jsonc.ToJSON(data), v)
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %s %s failed: %v", e.Binary, strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap returns ErrCommandFailed and the underlying execution error.
func (e *CommandError) Unwrap() []error { return []error{ErrCommandFailed, e.Err} }
