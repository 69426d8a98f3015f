package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey is the context key a request identifier is stored under.
type RequestIDKey struct{}

// New builds a zap logger for the given environment. Production gets JSON
// output at info level; everything else gets a colored console encoder.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProductionConfig().Build()
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

// MaskEmail hides the local part of an address except its first characters,
// keeping the domain intact: john.doe@example.com -> joh***@example.com.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}

	keep := at
	if keep > 3 {
		keep = 3
	}

	return email[:keep] + "***" + email[at:]
}

// MaskIP keeps the first two IPv4 octets or the first four IPv6 groups and
// blanks the rest, enough for coarse geography without identifying a host.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}

	if octets := strings.Split(ip, "."); len(octets) == 4 {
		return octets[0] + "." + octets[1] + ".*.*"
	}

	if groups := strings.Split(ip, ":"); len(groups) >= 4 {
		return strings.Join(groups[:4], ":") + ":*:*:*:*"
	}

	return "***"
}
