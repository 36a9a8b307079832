package history

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devender15/wework-claude-mcp-integration/pkg/booking"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		content, err := migrationsFS.ReadFile("migrations/" + e.Name())
		require.NoError(t, err)

		sql := string(content)
		up := strings.Index(sql, "-- +goose Up")
		down := strings.Index(sql, "-- +goose Down")
		assert.GreaterOrEqual(t, up, 0, "%s has no Up section", e.Name())
		assert.Greater(t, down, up, "%s has no Down section after Up", e.Name())
	}
}

func TestOpen_Unreachable(t *testing.T) {
	_, err := Open(context.Background(), "postgres://deskbook@127.0.0.1:1/deskbook?sslmode=disable&connect_timeout=1", nil)
	assert.ErrorContains(t, err, "failed to ping database")
}

// TestStore_RoundTrip needs a disposable database, e.g.
// DESKBOOK_TEST_DATABASE_URL=postgres://postgres@localhost/deskbook_test?sslmode=disable
func TestStore_RoundTrip(t *testing.T) {
	url := os.Getenv("DESKBOOK_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DESKBOOK_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, url, nil)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx), "second migrate is a no-op")

	started := time.Now().UTC().Truncate(time.Millisecond)
	r := &booking.Report{
		RunID:      uuid.NewString(),
		DeviceID:   "UORC",
		Building:   "Two Horizon Center",
		Relaunches: 1,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Outcomes: []booking.Outcome{
			{Date: "2026-02-11", Status: booking.StatusBooked, Reached: "book", Duration: 40 * time.Second},
			{Date: "2026-02-12", Status: booking.StatusFailed, Reason: "boom", Reached: "building", Screenshot: "/tmp/x.png"},
		},
	}
	require.NoError(t, s.Record(ctx, r))

	runs, err := s.List(ctx, 50)
	require.NoError(t, err)

	var got *booking.Report
	for _, run := range runs {
		if run.RunID == r.RunID {
			got = run
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, "UORC", got.DeviceID)
	assert.Equal(t, 1, got.Relaunches)
	assert.True(t, started.Equal(got.StartedAt))
	require.Len(t, got.Outcomes, 2)
	assert.Equal(t, "2026-02-11", got.Outcomes[0].Date)
	assert.Equal(t, 40*time.Second, got.Outcomes[0].Duration)
	assert.Equal(t, booking.StatusFailed, got.Outcomes[1].Status)
	assert.Equal(t, "/tmp/x.png", got.Outcomes[1].Screenshot)
}
