package postgres

import (
	"fmt"

	"github.com/koustreak/sqlstage/internal/database"
)

const defaultPort = 5432

// buildDSN returns cfg.DSN, or a keyword/value connection string built
// from the individual settings. Both pgx and lib/pq accept that form.
func buildDSN(cfg *database.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslMode)
	if cfg.User != "" {
		dsn += " user=" + cfg.User
	}
	if cfg.Password != "" {
		dsn += " password=" + quoteValue(cfg.Password)
	}
	return dsn
}

// quoteValue quotes a keyword/value parameter when it contains spaces or
// quotes.
func quoteValue(v string) string {
	needs := v == ""
	for _, r := range v {
		if r == ' ' || r == '\'' || r == '\\' {
			needs = true
			break
		}
	}
	if !needs {
		return v
	}
	out := make([]rune, 0, len(v)+2)
	out = append(out, '\'')
	for _, r := range v {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '\''))
}
