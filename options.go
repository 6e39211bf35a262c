package servicer

import (
	"os"
	"time"

	"go.uber.org/zap"
)

// options is shared by the orchestrator, the status monitor and the systemd client
type options struct {
	unitDir        string
	logger         *zap.SugaredLogger
	concurrency    int
	timeout        time.Duration
	sampleInterval time.Duration
	finder         BinaryFinder
	getenv         func(string) string
	interpreters   InterpreterTable
	reloadPolicy   ReloadPolicy
	waitJobs       bool
}

// Option configures an Orchestrator, Monitor or SystemdClient
type Option func(*options)

func buildOptions(opts []Option) options {
	o := options{
		unitDir:        DefaultUnitDir,
		logger:         zap.NewNop().Sugar(),
		concurrency:    DefaultConcurrency,
		timeout:        DefaultTimeout,
		sampleInterval: DefaultSampleInterval,
		getenv:         os.Getenv,
		reloadPolicy:   ReloadFailedOnly,
		waitJobs:       true,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.concurrency < 1 {
		o.concurrency = 1
	}
	if o.finder == nil {
		o.finder = NewSudoFinder()
	}
	if o.interpreters == nil {
		o.interpreters = NewInterpreterTable(nil)
	}
	return o
}

// WithUnitDir sets the unit configuration directory
func WithUnitDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.unitDir = dir
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithConcurrency sets the maximum number of concurrent queries
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithTimeout sets the per-query timeout
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithSampleInterval sets the shared CPU sampling window
func WithSampleInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sampleInterval = d
		}
	}
}

// WithBinaryFinder sets how interpreters are located on the invoker's PATH
func WithBinaryFinder(f BinaryFinder) Option {
	return func(o *options) {
		o.finder = f
	}
}

// WithEnv sets the environment lookup used to recover the invoker
func WithEnv(getenv func(string) string) Option {
	return func(o *options) {
		if getenv != nil {
			o.getenv = getenv
		}
	}
}

// WithInterpreters extends the extension to interpreter table
func WithInterpreters(extra map[string]string) Option {
	return func(o *options) {
		o.interpreters = NewInterpreterTable(extra)
	}
}

// WithReloadPolicy selects when Reload forwards to the unit
func WithReloadPolicy(p ReloadPolicy) Option {
	return func(o *options) {
		o.reloadPolicy = p
	}
}

// WithJobWait controls whether start, stop and reload wait for their job to finish
func WithJobWait(wait bool) Option {
	return func(o *options) {
		o.waitJobs = wait
	}
}
