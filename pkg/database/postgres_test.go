package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/class-scheduler/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "sched", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=sched sslmode=disable application_name=class-scheduler connect_timeout=5", dsn)
}
