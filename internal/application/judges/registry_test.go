package judges_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/wagerbook/internal/adapters/clock"
	"github.com/alejandrodnm/wagerbook/internal/adapters/storage"
	"github.com/alejandrodnm/wagerbook/internal/application/judges"
	"github.com/alejandrodnm/wagerbook/internal/domain"
	"github.com/alejandrodnm/wagerbook/internal/ports"
)

var t0 = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store  *storage.MemoryStore
	clock  *clock.Manual
	events *recorder
	reg    *judges.Registry
}

func setup(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		store:  storage.NewMemoryStore(),
		clock:  clock.NewManual(t0),
		events: &recorder{},
	}
	reg, err := judges.New(f.store, f.clock, domain.DefaultJudgeConfig(), f.events)
	require.NoError(t, err)
	f.reg = reg
	return f
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := domain.DefaultJudgeConfig()
	cfg.MinStake = domain.Zero
	_, err := judges.New(storage.NewMemoryStore(), clock.NewManual(t0), cfg, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestRegistry_RegisterJudge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.reg.RegisterJudge(ctx, "0xjudge", domain.MustAmount("150"))
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.Equal(t, 5000, p.ReputationScore)
	assert.True(t, p.RegistrationTime.Equal(t0))

	ok, err := f.reg.IsEligible(ctx, "0xjudge")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.reg.RegisterJudge(ctx, "0xjudge", domain.MustAmount("150"))
	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)

	_, err = f.reg.RegisterJudge(ctx, "0xpoor", domain.MustAmount("50"))
	assert.ErrorIs(t, err, domain.ErrInsufficientStake)
	_, err = f.reg.GetProfile(ctx, "0xpoor")
	assert.ErrorIs(t, err, domain.ErrJudgeNotFound, "failed registration leaves no profile")

	_, err = f.reg.RegisterJudge(ctx, "", domain.MustAmount("150"))
	assert.ErrorIs(t, err, domain.ErrInvalidTerms)

	assert.Equal(t, []domain.EventType{domain.EventJudgeRegistered}, f.events.types())
}

func TestRegistry_IsEligible_UnknownJudge(t *testing.T) {
	f := setup(t)
	ok, err := f.reg.IsEligible(context.Background(), "0xnobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_WithdrawalFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	lock := f.reg.Config().LockPeriod

	_, err := f.reg.RegisterJudge(ctx, "0xjudge", domain.MustAmount("200"))
	require.NoError(t, err)

	p, err := f.reg.RequestWithdrawal(ctx, "0xjudge")
	require.NoError(t, err)
	assert.True(t, p.Withdrawing())

	ok, err := f.reg.IsEligible(ctx, "0xjudge")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.reg.IncreaseStake(ctx, "0xjudge", domain.MustAmount("10"))
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	f.clock.Advance(lock - time.Second)
	_, err = f.reg.CompleteWithdrawal(ctx, "0xjudge")
	assert.ErrorIs(t, err, domain.ErrWithdrawalLocked)

	f.clock.Advance(time.Second)
	released, err := f.reg.CompleteWithdrawal(ctx, "0xjudge")
	require.NoError(t, err)
	assert.True(t, released.Equal(domain.MustAmount("200")))

	p, err = f.reg.GetProfile(ctx, "0xjudge")
	require.NoError(t, err)
	assert.True(t, p.StakedAmount.IsZero())
	assert.False(t, p.IsActive)

	var payouts []domain.Payout
	require.NoError(t, f.store.Atomic(ctx, func(r ports.Repositories) error {
		payouts, err = r.ListPayouts(ctx, "")
		return err
	}))
	require.Len(t, payouts, 1)
	assert.Equal(t, domain.PayoutUnstake, payouts[0].Reason)
	assert.Equal(t, domain.Party("0xjudge"), payouts[0].To)
}

func TestRegistry_CompleteWithdrawal_BlockedByOpenCase(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.reg.RegisterJudge(ctx, "0xjudge", domain.MustAmount("100"))
	require.NoError(t, err)
	require.NoError(t, f.store.Atomic(ctx, func(r ports.Repositories) error {
		return f.reg.AssignCase(ctx, r, "0xjudge")
	}))
	_, err = f.reg.RequestWithdrawal(ctx, "0xjudge")
	require.NoError(t, err)

	f.clock.Advance(f.reg.Config().LockPeriod)
	_, err = f.reg.CompleteWithdrawal(ctx, "0xjudge")
	assert.ErrorIs(t, err, domain.ErrOpenCases)

	require.NoError(t, f.store.Atomic(ctx, func(r ports.Repositories) error {
		_, err := f.reg.RecordCase(ctx, r, "0xjudge", true)
		return err
	}))
	_, err = f.reg.CompleteWithdrawal(ctx, "0xjudge")
	assert.NoError(t, err)
}

func TestRegistry_Candidates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, addr := range []domain.Party{"0xj1", "0xj2", "0xj3", "0xj4", "0xalice"} {
		_, err := f.reg.RegisterJudge(ctx, addr, domain.MustAmount("100"))
		require.NoError(t, err)
	}
	_, err := f.reg.DeclareConflict(ctx, "0xj2", "0xbob")
	require.NoError(t, err)
	_, err = f.reg.RequestWithdrawal(ctx, "0xj4")
	require.NoError(t, err)

	var got []domain.Party
	require.NoError(t, f.store.Atomic(ctx, func(r ports.Repositories) error {
		cands, err := f.reg.Candidates(ctx, r, []domain.Party{"0xalice", "0xbob"}, []domain.Party{"0xj3"})
		for _, c := range cands {
			got = append(got, c.Address)
		}
		return err
	}))
	assert.Equal(t, []domain.Party{"0xj1"}, got,
		"party, conflicted, excluded and withdrawing judges are filtered out")
}

func TestRegistry_AssignCase_RequiresEligibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.reg.RegisterJudge(ctx, "0xjudge", domain.MustAmount("100"))
	require.NoError(t, err)
	_, err = f.reg.RequestWithdrawal(ctx, "0xjudge")
	require.NoError(t, err)

	err = f.store.Atomic(ctx, func(r ports.Repositories) error {
		return f.reg.AssignCase(ctx, r, "0xjudge")
	})
	assert.ErrorIs(t, err, domain.ErrNoEligibleJudge)
}

func TestRegistry_SlashDefaultsToPercentage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.reg.RegisterJudge(ctx, "0xjudge", domain.MustAmount("300"))
	require.NoError(t, err)

	var taken domain.Amount
	require.NoError(t, f.store.Atomic(ctx, func(r ports.Repositories) error {
		var err error
		taken, err = f.reg.Slash(ctx, r, "0xjudge", domain.Zero, t0)
		return err
	}))
	assert.True(t, taken.Equal(domain.MustAmount("30")))

	p, err := f.reg.GetProfile(ctx, "0xjudge")
	require.NoError(t, err)
	assert.True(t, p.StakedAmount.Equal(domain.MustAmount("270")))
	assert.True(t, p.SlashedTotal.Equal(domain.MustAmount("30")))
	assert.Equal(t, 4500, p.ReputationScore)
}

func TestRegistry_ListJudges(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, addr := range []domain.Party{"0xc", "0xa", "0xb"} {
		_, err := f.reg.RegisterJudge(ctx, addr, domain.MustAmount("100"))
		require.NoError(t, err)
	}
	all, err := f.reg.ListJudges(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, domain.Party("0xa"), all[0].Address)
	assert.Equal(t, domain.Party("0xc"), all[2].Address)
}
