package events

import (
	"context"
	"os"
	"testing"

	"github.com/testcontainers/testcontainers-go"

	"boxoffice/db"
)

func TestMain(m *testing.M) {
	var container testcontainers.Container
	if os.Getenv("POSTGRES_URL") == "" {
		var connStr string
		container, connStr = db.StartPostgresContainer()
		os.Setenv("POSTGRES_URL", connStr)
	}

	code := m.Run()

	if container != nil {
		_ = container.Terminate(context.Background())
	}
	os.Exit(code)
}
