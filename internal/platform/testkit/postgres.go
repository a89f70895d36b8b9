//go:build integration_pg

package testkit

import (
	"context"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const pgImage = "postgres:16-alpine"

// StartPostgres runs a throwaway Postgres with an empty firewatch database and
// returns its URL. The container is removed when t finishes.
func StartPostgres(t testing.TB) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		Started: true,
		ContainerRequest: tc.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "fw",
				"POSTGRES_PASSWORD": "fw",
				"POSTGRES_DB":       "firewatch",
			},
			// the entrypoint restarts the server once after initdb
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
	})
	tc.CleanupContainer(t, c)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}

	hostPort, err := c.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("postgres endpoint: %v", err)
	}
	return "postgres://fw:fw@" + hostPort + "/firewatch?sslmode=disable"
}
