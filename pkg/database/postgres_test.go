package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-transcript-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "registrar",
		Password: "secret",
		Name:     "school_records",
		SSLMode:  "disable",
	})
	assert.Equal(t, "host=db port=5433 user=registrar password=secret dbname=school_records sslmode=disable", dsn)
}
