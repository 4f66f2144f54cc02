// Package wasi configures the WASI preview 1 environment of an
// instance: arguments, environment variables, standard streams and
// preopened directories.
package wasi

import (
	"io"
	"os"
	"strings"

	"github.com/tetratelabs/wazero"

	errs "github.com/wasmlite/wasmlite/errors"
)

// Config accumulates the WASI settings for one instantiation. The zero
// value is not usable; call NewConfig. A Config owns any files opened
// through the *File setters until Close is called, which the owning
// store does on shutdown.
type Config struct {
	moduleConfig wazero.ModuleConfig
	fsConfig     wazero.FSConfig
	closers      []io.Closer
}

// NewConfig returns an empty WASI configuration: no arguments, no
// environment, and all standard streams discarded.
func NewConfig() *Config {
	return &Config{
		moduleConfig: wazero.NewModuleConfig(),
		fsConfig:     wazero.NewFSConfig(),
	}
}

// SetArgv sets the argument list the guest sees, including argv[0].
func (c *Config) SetArgv(argv []string) {
	c.moduleConfig = c.moduleConfig.WithArgs(argv...)
}

// InheritArgv passes the host process arguments through.
func (c *Config) InheritArgv() {
	c.moduleConfig = c.moduleConfig.WithArgs(os.Args...)
}

// SetEnv sets the guest environment from parallel key and value slices.
func (c *Config) SetEnv(keys, values []string) error {
	if len(keys) != len(values) {
		return errs.New(errs.PhaseWasi, errs.KindInvalidInput).
			Detail("%d keys but %d values", len(keys), len(values)).Build()
	}
	for i := range keys {
		c.moduleConfig = c.moduleConfig.WithEnv(keys[i], values[i])
	}
	return nil
}

// InheritEnv passes the host process environment through.
func (c *Config) InheritEnv() {
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			c.moduleConfig = c.moduleConfig.WithEnv(k, v)
		}
	}
}

// SetStdin feeds the guest's stdin from r.
func (c *Config) SetStdin(r io.Reader) {
	c.moduleConfig = c.moduleConfig.WithStdin(r)
}

// SetStdinFile feeds the guest's stdin from the named file.
func (c *Config) SetStdinFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errs.New(errs.PhaseWasi, errs.KindInvalidInput).Subject(path).Cause(err).Build()
	}
	c.closers = append(c.closers, f)
	c.moduleConfig = c.moduleConfig.WithStdin(f)
	return nil
}

// InheritStdin connects the guest's stdin to the host's.
func (c *Config) InheritStdin() {
	c.moduleConfig = c.moduleConfig.WithStdin(os.Stdin)
}

// SetStdout sends the guest's stdout to w.
func (c *Config) SetStdout(w io.Writer) {
	c.moduleConfig = c.moduleConfig.WithStdout(w)
}

// SetStdoutFile sends the guest's stdout to the named file, truncating
// it first.
func (c *Config) SetStdoutFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.New(errs.PhaseWasi, errs.KindInvalidInput).Subject(path).Cause(err).Build()
	}
	c.closers = append(c.closers, f)
	c.moduleConfig = c.moduleConfig.WithStdout(f)
	return nil
}

// InheritStdout connects the guest's stdout to the host's.
func (c *Config) InheritStdout() {
	c.moduleConfig = c.moduleConfig.WithStdout(os.Stdout)
}

// SetStderr sends the guest's stderr to w.
func (c *Config) SetStderr(w io.Writer) {
	c.moduleConfig = c.moduleConfig.WithStderr(w)
}

// SetStderrFile sends the guest's stderr to the named file, truncating
// it first.
func (c *Config) SetStderrFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.New(errs.PhaseWasi, errs.KindInvalidInput).Subject(path).Cause(err).Build()
	}
	c.closers = append(c.closers, f)
	c.moduleConfig = c.moduleConfig.WithStderr(f)
	return nil
}

// InheritStderr connects the guest's stderr to the host's.
func (c *Config) InheritStderr() {
	c.moduleConfig = c.moduleConfig.WithStderr(os.Stderr)
}

// PreopenDir mounts the host directory at guestPath inside the guest's
// filesystem.
func (c *Config) PreopenDir(hostPath, guestPath string) error {
	info, err := os.Stat(hostPath)
	if err != nil {
		return errs.New(errs.PhaseWasi, errs.KindInvalidInput).Subject(hostPath).Cause(err).Build()
	}
	if !info.IsDir() {
		return errs.New(errs.PhaseWasi, errs.KindInvalidInput).Subject(hostPath).
			Detail("preopen path is not a directory").Build()
	}
	c.fsConfig = c.fsConfig.WithDirMount(hostPath, guestPath)
	return nil
}

// PreopenReadonlyDir mounts the host directory read-only.
func (c *Config) PreopenReadonlyDir(hostPath, guestPath string) error {
	info, err := os.Stat(hostPath)
	if err != nil {
		return errs.New(errs.PhaseWasi, errs.KindInvalidInput).Subject(hostPath).Cause(err).Build()
	}
	if !info.IsDir() {
		return errs.New(errs.PhaseWasi, errs.KindInvalidInput).Subject(hostPath).
			Detail("preopen path is not a directory").Build()
	}
	c.fsConfig = c.fsConfig.WithReadOnlyDirMount(hostPath, guestPath)
	return nil
}

// ModuleConfig materializes the accumulated settings for one
// instantiation.
func (c *Config) ModuleConfig() wazero.ModuleConfig {
	return c.moduleConfig.WithFSConfig(c.fsConfig)
}

// Close releases any files opened by the *File setters.
func (c *Config) Close() error {
	var first error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
