package mysql

import (
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/koustreak/sqlstage/internal/database"
)

const defaultPort = 3306

// buildDSN returns a DSN with parseTime enabled, taking cfg.DSN as the
// base when set and the individual settings otherwise.
func buildDSN(cfg *database.Config) (string, error) {
	if cfg.DSN != "" {
		mc, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "", err
		}
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	}

	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	if cfg.ConnectTimeout > 0 {
		mc.Timeout = cfg.ConnectTimeout
	}
	return mc.FormatDSN(), nil
}
