package moinmoin

import "log/slog"

// Option configures conversion.
type Option func(*convertConfig)

type convertConfig struct {
	banner        bool
	headingMarker bool
	codeMarker    bool
	logger        *slog.Logger
}

func defaultConfig() convertConfig {
	return convertConfig{
		banner:        true,
		headingMarker: true,
		logger:        slog.New(slog.DiscardHandler),
	}
}

func buildConfig(opts []Option) convertConfig {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithBanner enables or disables the two-line export banner.
func WithBanner(enabled bool) Option {
	return func(cfg *convertConfig) {
		cfg.banner = enabled
	}
}

// WithHeadingMarker controls whether the first character of a heading line
// is dropped. Etherpad puts a '*' line marker there; other sources may not.
func WithHeadingMarker(strip bool) Option {
	return func(cfg *convertConfig) {
		cfg.headingMarker = strip
	}
}

// WithCodeMarker controls whether the first character of every code line
// is dropped. Pads written with Etherpad's headings plugin store code
// lines with a '*' line marker like headings; exports of those pads need
// this set, or the marker shows up at the start of each code line.
func WithCodeMarker(strip bool) Option {
	return func(cfg *convertConfig) {
		cfg.codeMarker = strip
	}
}

// WithLogger sets the logger for debug output. A nil logger discards.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *convertConfig) {
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		cfg.logger = logger
	}
}
