package app

import (
	"strings"
	"time"

	"github.com/casaluz/incidents-backend/internal/platform/envutil"
	"github.com/casaluz/incidents-backend/internal/platform/logger"
	"github.com/casaluz/incidents-backend/internal/report"
)

type Config struct {
	SequencePrefix  string
	DispatchTimeout time.Duration
	Report          report.Config
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		SequencePrefix:  envutil.Str("SEQUENCE_PREFIX", "REM"),
		DispatchTimeout: envutil.Seconds("DISPATCH_TIMEOUT_SECONDS", 60),
		Report: report.Config{
			CompanyName:  envutil.Str("COMPANY_NAME", "Casa Luz"),
			CompanyLines: splitLines(envutil.Str("COMPANY_ADDRESS_LINES", "")),
			ContactLines: splitLines(envutil.Str("COMPANY_CONTACT_LINES", "")),
			LogoPath:     envutil.Str("COMPANY_LOGO_PATH", ""),
		},
	}
	log.Info("Config loaded", "sequence_prefix", cfg.SequencePrefix)
	return cfg
}

// splitLines turns a pipe-separated env value into letterhead lines.
func splitLines(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, "|")
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			lines = append(lines, p)
		}
	}
	return lines
}
