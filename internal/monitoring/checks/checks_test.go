package checks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/taskhub/internal/app/maintenance"
	"github.com/charlesng35/taskhub/internal/catalog"
	"github.com/charlesng35/taskhub/internal/database/testutil"
	"github.com/charlesng35/taskhub/internal/monitoring"
)

func TestDatabaseCheck(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	require.Equal(t, monitoring.StatusUp, Database(db).Run(context.Background()).Status)
	require.Equal(t, monitoring.StatusDown, Database(nil).Run(context.Background()).Status)
}

func TestRedisCheck(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, monitoring.StatusUp, Redis(nil, false).Run(ctx).Status)
	require.Equal(t, monitoring.StatusDegraded, Redis(nil, true).Run(ctx).Status)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	require.Equal(t, monitoring.StatusUp, Redis(client, true).Run(ctx).Status)

	mr.Close()
	require.Equal(t, monitoring.StatusDegraded, Redis(client, true).Run(ctx).Status)
}

func TestCatalogCheck(t *testing.T) {
	built, err := catalog.Build([]catalog.CategoryDefinition{{Code: "TASK"}})
	require.NoError(t, err)
	result := Catalog(catalog.NewProvider(built)).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Contains(t, result.Details, "1 categories")

	degraded := Catalog(catalog.Load("testdata/missing.json")).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, degraded.Status)
	require.NotEmpty(t, degraded.Details)
}

type sessionCounter int

func (s sessionCounter) SessionCount() int { return int(s) }

func TestRealtimeCheck(t *testing.T) {
	result := Realtime(sessionCounter(3)).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Equal(t, "3 sessions", result.Details)
	require.Equal(t, monitoring.StatusDegraded, Realtime(nil).Run(context.Background()).Status)
}

type relayState struct {
	subscribed bool
	err        error
}

func (r relayState) Subscribed() bool { return r.subscribed }
func (r relayState) Err() error       { return r.err }

func TestRelayCheck(t *testing.T) {
	ctx := context.Background()

	require.Equal(t, monitoring.StatusUp, Relay(nil).Run(ctx).Status)
	require.Equal(t, monitoring.StatusUp, Relay(relayState{subscribed: true}).Run(ctx).Status)

	lost := Relay(relayState{err: errors.New("connection refused")}).Run(ctx)
	require.Equal(t, monitoring.StatusDegraded, lost.Status)
	require.Contains(t, lost.Details, "connection refused")
}

type fixedSweep maintenance.RunStatus

func (f fixedSweep) Status() maintenance.RunStatus { return maintenance.RunStatus(f) }

func TestSweeperCheck(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ctx := context.Background()

	require.Equal(t, monitoring.StatusUp, Sweeper(nil, 0, clock).Run(ctx).Status)
	require.Equal(t, "pending first run", Sweeper(fixedSweep{}, 0, clock).Run(ctx).Details)

	fresh := fixedSweep{Runs: 2, LastRunAt: now.Add(-time.Minute)}
	require.Equal(t, monitoring.StatusUp, Sweeper(fresh, 5*time.Minute, clock).Run(ctx).Status)

	stale := fixedSweep{Runs: 2, LastRunAt: now.Add(-time.Hour)}
	require.Equal(t, monitoring.StatusDegraded, Sweeper(stale, 5*time.Minute, clock).Run(ctx).Status)

	failed := fixedSweep{Runs: 1, LastRunAt: now, LastError: "db locked"}
	result := Sweeper(failed, 5*time.Minute, clock).Run(ctx)
	require.Equal(t, monitoring.StatusDegraded, result.Status)
	require.Equal(t, "db locked", result.Details)
}
