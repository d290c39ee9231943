//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/itemwatch/itemwatch/core"
	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/internal/iostore"
	"github.com/itemwatch/itemwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const integrationTenant = "tenant-integration"

func ptr[T any](v T) *T { return &v }

// startPostgres launches a throwaway Postgres container and returns a
// connection string for it.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432:5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	time.Sleep(5 * time.Second)

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())
}

// integrationConfig returns a validated config pointed at the container.
func integrationConfig(t *testing.T, connStr string) *contract.Config {
	t.Helper()

	cfg := &contract.Config{}
	input := &contract.ConfigRawInput{
		Tenant:     integrationTenant,
		WindowDays: 30,
		Workers:    4,
		Backend:    string(schema.PostgreSQLBackend),
		DBConnect:  connStr,
		Output:     string(schema.TextOut),
		Limit:      50,
		Color:      "no",
		Format:     string(schema.ParquetExport),
	}
	require.NoError(t, contract.ProcessAndValidate(cfg, input, time.Now()))
	return cfg
}

// seedResponses inserts one response batch for two items across sessions.
// Item q1 is answered correctly pCorrect of the time.
func seedResponses(ctx context.Context, t *testing.T, store *iostore.Store, answeredAt time.Time, correctQ1 int) {
	t.Helper()

	const sessions = 40
	for i := range sessions {
		session := fmt.Sprintf("s%02d", i)
		q1 := schema.ResponseRecord{
			ItemID:         "q1",
			SessionID:      session,
			IsCorrect:      ptr(i < correctQ1),
			ResponseTimeMs: ptr(int64(1500 + i*10)),
			AnsweredAt:     answeredAt,
		}
		require.NoError(t, store.InsertResponse(ctx, integrationTenant, &q1))

		q2 := schema.ResponseRecord{
			ItemID:     "q2",
			SessionID:  session,
			IsCorrect:  ptr(i%2 == 0),
			AnsweredAt: answeredAt,
		}
		require.NoError(t, store.InsertResponse(ctx, integrationTenant, &q2))
	}
}

// TestPostgresEndToEnd runs the full pipeline against a real Postgres
// backend: seed, two CTT runs with drifting difficulty, then detection.
func TestPostgresEndToEnd(t *testing.T) {
	ctx := context.Background()
	connStr := startPostgres(ctx, t)

	store, err := iostore.NewStore(schema.PostgreSQLBackend, connStr)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	cfg := integrationConfig(t, connStr)

	// First batch: q1 is easy (75% correct).
	seedResponses(ctx, t, store, time.Now().Add(-48*time.Hour), 30)
	summary, err := core.ExecuteCtt(ctx, cfg, store)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ItemCount)

	// Second batch: q1 collapses to 25% correct, enough to trip the
	// default p-value drift threshold.
	seedResponses(ctx, t, store, time.Now().Add(-24*time.Hour), 10)
	summary, err = core.ExecuteCtt(ctx, cfg, store)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ItemCount)

	ranked, err := store.LatestTwoCttStats(ctx, integrationTenant)
	require.NoError(t, err)
	assert.Len(t, ranked, 4) // two rows for each of two items

	detSummary, err := core.ExecuteDetection(ctx, cfg, store)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, detSummary.IpdCount, 1)

	results, err := store.AllDetectionResults(ctx, integrationTenant, 50)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	var sawQ1Drift bool
	for _, r := range results {
		if r.ItemID == "q1" && r.DetectionType == schema.IpdDetection {
			sawQ1Drift = true
			assert.Equal(t, schema.MetricPDiff, r.MetricName)
			assert.Equal(t, schema.StatusFlagged, r.Status)
		}
	}
	assert.True(t, sawQ1Drift, "expected a p-value drift flag for q1")

	// Ledger should now hold three runs, newest first.
	runs, err := store.AllRuns(ctx, integrationTenant, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, schema.DetectionRun, runs[0].RunType)
}

// TestPostgresIrtPipeline exercises IRT estimation and parameter history
// against Postgres.
func TestPostgresIrtPipeline(t *testing.T) {
	ctx := context.Background()
	connStr := startPostgres(ctx, t)

	store, err := iostore.NewStore(schema.PostgreSQLBackend, connStr)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	cfg := integrationConfig(t, connStr)

	seedResponses(ctx, t, store, time.Now().Add(-24*time.Hour), 30)
	summary, err := core.ExecuteIrt(ctx, cfg, store)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ItemCount)

	params, err := store.AllIrtParams(ctx, integrationTenant, 10)
	require.NoError(t, err)
	require.Len(t, params, 2)
	for _, p := range params {
		assert.Equal(t, schema.TwoPL, p.Model)
		assert.GreaterOrEqual(t, p.AParam, cfg.Irt.MinA)
		assert.LessOrEqual(t, p.AParam, cfg.Irt.MaxA)
		assert.GreaterOrEqual(t, p.BParam, cfg.Irt.MinB)
		assert.LessOrEqual(t, p.BParam, cfg.Irt.MaxB)
	}
}

// TestPostgresMigrate applies the migration chain to a fresh database.
func TestPostgresMigrate(t *testing.T) {
	ctx := context.Background()
	connStr := startPostgres(ctx, t)

	require.NoError(t, iostore.Migrate(schema.PostgreSQLBackend, connStr, -1))

	// Migrated schema must be usable by the store as-is.
	store, err := iostore.NewStore(schema.PostgreSQLBackend, connStr)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	status, err := store.Status(ctx, integrationTenant)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Zero(t, status.TotalRuns)
}
