package data

import (
	"fmt"
	"os"
	"strings"
)

// GetMySQLDSN returns the database DSN configured via environment. Besides a
// MySQL DSN it accepts sqlite://<path> for local runs.
func GetMySQLDSN() (string, error) {
	dsn := os.Getenv("MYSQL_DSN")
	if strings.TrimSpace(dsn) == "" {
		return "", fmt.Errorf("MYSQL_DSN is not set")
	}
	return dsn, nil
}
