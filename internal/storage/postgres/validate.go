package postgres

import (
	"fmt"
	"net/url"
	"strings"
)

// validateDSN 接受 postgres:// URI 或 key=value 形式，两者都必须指定 host
func validateDSN(dsn string) error {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return fmt.Errorf("empty postgres dsn")
	}

	if !strings.Contains(dsn, "://") {
		for _, kv := range strings.Fields(dsn) {
			if k, v, ok := strings.Cut(kv, "="); ok && k == "host" && v != "" {
				return nil
			}
		}
		return fmt.Errorf("postgres dsn missing host")
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("unsupported dsn scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("postgres dsn missing host")
	}
	return nil
}
