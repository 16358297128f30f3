package editor

import "go.uber.org/zap"

// Options configures a Document.
type Options struct {
	// IncludeDebug keeps debug instructions in listings.
	IncludeDebug bool
	// SugarLocals rewrites getlocal/setlocal 0-3 to their short forms when
	// encoding.
	SugarLocals bool
	// Logger overrides the package logger.
	Logger *zap.Logger
}

// Option configures a Document.
type Option func(*Options)

// WithLogger sets the logger used for the document's jobs.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithIncludeDebug keeps debug instructions in listings.
func WithIncludeDebug(include bool) Option {
	return func(o *Options) {
		o.IncludeDebug = include
	}
}

// WithSugarLocals enables the short getlocal/setlocal forms when encoding.
func WithSugarLocals(sugar bool) Option {
	return func(o *Options) {
		o.SugarLocals = sugar
	}
}
