package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dispatch/models"
)

func TestSweepExpired(t *testing.T) {
	e, store, clock := newTestEngine(t)
	seedCompany(t, store, "acme", true)
	seedMember(t, store, "tech-1", "acme", models.RoleTechnician)
	ctx := context.Background()

	stale := openCall(t, e, "acme", 1)
	fresh := openCall(t, e, "acme", 600)
	bid, err := e.SubmitBid(ctx, stale.ID, "tech-1", 20)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	swept, err := e.SweepExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{stale.ID}, swept)

	expired, err := store.GetCall(ctx, stale.ID)
	require.NoError(t, err)
	require.Equal(t, models.CallExpired, expired.Status)
	require.Empty(t, expired.AssignedTo)

	// Pending bids on the expired call go down with it.
	storedBid, err := store.GetBid(ctx, bid.ID)
	require.NoError(t, err)
	require.Equal(t, models.BidSuperseded, storedBid.Status)

	// The unexpired call is untouched.
	kept, err := store.GetCall(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, models.CallOpen, kept.Status)

	events, err := store.ListCallEvents(ctx, stale.ID)
	require.NoError(t, err)
	require.Equal(t, models.EventExpired, events[len(events)-1].Type)
}

func TestSweepExpiredIdempotent(t *testing.T) {
	e, store, clock := newTestEngine(t)
	seedCompany(t, store, "acme", false)
	ctx := context.Background()

	openCall(t, e, "acme", 1)
	clock.Advance(2 * time.Second)

	swept, err := e.SweepExpired(ctx)
	require.NoError(t, err)
	require.Len(t, swept, 1)

	swept, err = e.SweepExpired(ctx)
	require.NoError(t, err)
	require.Empty(t, swept)
}

func TestLateClaimAfterSweep(t *testing.T) {
	e, store, clock := newTestEngine(t)
	seedCompany(t, store, "acme", false)
	seedMember(t, store, "tech-1", "acme", models.RoleTechnician)
	ctx := context.Background()

	call := openCall(t, e, "acme", 1)
	clock.Advance(2 * time.Second)
	_, err := e.SweepExpired(ctx)
	require.NoError(t, err)

	_, err = e.ClaimDirect(ctx, call.ID, "tech-1")
	require.ErrorIs(t, err, models.ErrInvalidState)
}

func TestSweeperStartStop(t *testing.T) {
	e, store, clock := newTestEngine(t)
	seedCompany(t, store, "acme", false)
	ctx := context.Background()

	call := openCall(t, e, "acme", 1)
	clock.Advance(2 * time.Second)

	sweeper := NewSweeper(e, e.log)
	require.NoError(t, sweeper.Start(time.Second))
	defer sweeper.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for {
		swept, err := store.GetCall(ctx, call.ID)
		require.NoError(t, err)
		if swept.Status == models.CallExpired {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("call %s not swept, status %s", call.ID, swept.Status)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
