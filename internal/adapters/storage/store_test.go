package storage_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/wagerbook/internal/adapters/storage"
	"github.com/alejandrodnm/wagerbook/internal/domain"
	"github.com/alejandrodnm/wagerbook/internal/ports"
)

var t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

// stores runs fn against every Store implementation.
func stores(t *testing.T, fn func(t *testing.T, s ports.Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, storage.NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := storage.NewSQLiteStore(":memory:")
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
}

func makeBet(id string, creator, opponent domain.Party, createdAt time.Time) domain.Bet {
	return domain.Bet{
		ID:              id,
		Creator:         creator,
		Opponent:        domain.SpecificOpponent(opponent),
		Description:     "Will it rain on Sunday?",
		OutcomeCriteria: "Met office report",
		Tags:            []string{"weather", "uk"},
		CreatedAt:       createdAt,
		ExpiresAt:       createdAt.Add(48 * time.Hour),
		Ledger:          domain.StakeLedger{Stake: domain.MustAmount("12.50")},
		State:           domain.StateCreated,
		DeclaredOutcome: domain.OutcomePending,
	}
}

func makeHouseBet(id string, creator, operator domain.Party, createdAt time.Time) domain.Bet {
	b := makeBet(id, creator, "", createdAt)
	b.Opponent = domain.HouseOpponent("pool-1")
	b.PoolOperator = operator
	b.RiskScore = 35
	return b
}

func save(t *testing.T, s ports.Store, bets ...domain.Bet) {
	t.Helper()
	err := s.Atomic(context.Background(), func(r ports.Repositories) error {
		for _, b := range bets {
			if err := r.SaveBet(context.Background(), b); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func getBet(t *testing.T, s ports.Store, id string) (domain.Bet, error) {
	t.Helper()
	var b domain.Bet
	err := s.Atomic(context.Background(), func(r ports.Repositories) error {
		var err error
		b, err = r.GetBet(context.Background(), id)
		return err
	})
	return b, err
}

func TestStore_BetRoundTrip(t *testing.T) {
	stores(t, func(t *testing.T, s ports.Store) {
		b := makeHouseBet("bet-1", "0xalice", "0xhouse", t0)
		b.Ledger.CreatorFunded = true
		b.Ledger.OpponentFunded = true
		b.State = domain.StateAwaitingResolution
		b.DeclaredOutcome = domain.OutcomeCreatorWins
		b.DeclaredBy = "0xalice"
		b.DeclaredAt = t0.Add(49 * time.Hour)
		b.DisputeDeadline = b.DeclaredAt.Add(24 * time.Hour)
		save(t, s, b)

		got, err := getBet(t, s, "bet-1")
		require.NoError(t, err)
		assert.Equal(t, b.Creator, got.Creator)
		assert.Equal(t, b.Opponent, got.Opponent)
		assert.True(t, got.IsHouse())
		assert.Equal(t, domain.Party("0xhouse"), got.PoolOperator)
		assert.Equal(t, 35, got.RiskScore)
		assert.Equal(t, []string{"weather", "uk"}, got.Tags)
		assert.True(t, got.Ledger.Stake.Equal(domain.MustAmount("12.5")))
		assert.True(t, got.Ledger.FullyFunded())
		assert.Equal(t, domain.StateAwaitingResolution, got.State)
		assert.Equal(t, domain.OutcomeCreatorWins, got.DeclaredOutcome)
		assert.True(t, got.CreatedAt.Equal(t0))
		assert.True(t, got.DisputeDeadline.Equal(b.DisputeDeadline))
		assert.True(t, got.ResolvedAt.IsZero())
	})
}

func TestStore_BetRoundTrip_LatestExpiry(t *testing.T) {
	stores(t, func(t *testing.T, s ports.Store) {
		b := makeBet("bet-far", "0xalice", "0xbob", t0)
		b.ExpiresAt = domain.MaxExpiry
		save(t, s, b)

		got, err := getBet(t, s, "bet-far")
		require.NoError(t, err)
		assert.True(t, got.ExpiresAt.Equal(domain.MaxExpiry), "got %s", got.ExpiresAt)
	})
}

func TestSQLiteStore_RejectsUnrepresentableExpiry(t *testing.T) {
	s, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	b := makeBet("bet-2300", "0xalice", "0xbob", t0)
	b.ExpiresAt = time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)
	err = s.Atomic(ctx, func(r ports.Repositories) error {
		return r.SaveBet(ctx, b)
	})
	require.Error(t, err)

	_, err = getBet(t, s, "bet-2300")
	assert.ErrorIs(t, err, domain.ErrBetNotFound)
}

func TestStore_GetBet_NotFound(t *testing.T) {
	stores(t, func(t *testing.T, s ports.Store) {
		_, err := getBet(t, s, "nope")
		assert.ErrorIs(t, err, domain.ErrBetNotFound)
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})
}

func TestStore_UpdateOverwritesMutableFields(t *testing.T) {
	stores(t, func(t *testing.T, s ports.Store) {
		b := makeBet("bet-1", "0xalice", "0xbob", t0)
		save(t, s, b)

		b.Ledger.CreatorFunded = true
		b.State = domain.StateCancelled
		b.Ledger.CreatorPaid = true
		save(t, s, b)

		got, err := getBet(t, s, "bet-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StateCancelled, got.State)
		assert.True(t, got.Ledger.CreatorPaid)
		assert.True(t, got.Ledger.TotalEscrowed().IsZero())
	})
}

func TestStore_ListBetsByParty(t *testing.T) {
	stores(t, func(t *testing.T, s ports.Store) {
		save(t, s,
			makeBet("b1", "0xalice", "0xbob", t0),
			makeBet("b2", "0xcarol", "0xalice", t0.Add(time.Minute)),
			makeBet("b3", "0xbob", "0xcarol", t0.Add(2*time.Minute)),
			makeHouseBet("b4", "0xbob", "0xalice", t0.Add(3*time.Minute)),
		)

		var bets []domain.Bet
		err := s.Atomic(context.Background(), func(r ports.Repositories) error {
			var err error
			bets, err = r.ListBetsByParty(context.Background(), "0xalice")
			return err
		})
		require.NoError(t, err)
		require.Len(t, bets, 3)
		assert.Equal(t, "b4", bets[0].ID, "newest first; operator counts as party")
		assert.Equal(t, "b2", bets[1].ID)
		assert.Equal(t, "b1", bets[2].ID)
	})
}

func TestStore_ListAwaitingResolution(t *testing.T) {
	stores(t, func(t *testing.T, s ports.Store) {
		due := makeBet("due", "0xa", "0xb", t0)
		due.State = domain.StateAwaitingResolution
		due.DisputeDeadline = t0.Add(time.Hour)

		open := makeBet("open", "0xa", "0xb", t0)
		open.State = domain.StateAwaitingResolution
		open.DisputeDeadline = t0.Add(3 * time.Hour)

		disputed := makeBet("disputed", "0xa", "0xb", t0)
		disputed.State = domain.StateInDispute
		disputed.DisputeDeadline = t0.Add(time.Hour)

		save(t, s, due, open, disputed)

		var bets []domain.Bet
		err := s.Atomic(context.Background(), func(r ports.Repositories) error {
			var err error
			bets, err = r.ListAwaitingResolution(context.Background(), t0.Add(2*time.Hour))
			return err
		})
		require.NoError(t, err)
		require.Len(t, bets, 1)
		assert.Equal(t, "due", bets[0].ID)
	})
}

func TestStore_JudgeRoundTrip(t *testing.T) {
	stores(t, func(t *testing.T, s ports.Store) {
		j := domain.JudgeProfile{
			Address:               "0xjudge",
			StakedAmount:          domain.MustAmount("250.75"),
			ReputationScore:       6100,
			CasesJudged:           3,
			SuccessfulCases:       2,
			OpenCases:             1,
			IsActive:              false,
			RegistrationTime:      t0,
			WithdrawalRequestTime: t0.Add(time.Hour),
			SlashedTotal:          domain.MustAmount("10"),
			Conflicts:             []domain.Party{"0xalice"},
		}
		ctx := context.Background()
		require.NoError(t, s.Atomic(ctx, func(r ports.Repositories) error {
			if err := r.SaveJudge(ctx, j); err != nil {
				return err
			}
			return r.SaveJudge(ctx, domain.JudgeProfile{Address: "0xaaa", StakedAmount: domain.Zero, SlashedTotal: domain.Zero})
		}))

		var got domain.JudgeProfile
		var all []domain.JudgeProfile
		require.NoError(t, s.Atomic(ctx, func(r ports.Repositories) error {
			var err error
			if got, err = r.GetJudge(ctx, "0xjudge"); err != nil {
				return err
			}
			all, err = r.ListJudges(ctx)
			return err
		}))

		assert.True(t, got.StakedAmount.Equal(j.StakedAmount))
		assert.Equal(t, 6100, got.ReputationScore)
		assert.Equal(t, 1, got.OpenCases)
		assert.True(t, got.Withdrawing())
		assert.True(t, got.WithdrawalRequestTime.Equal(j.WithdrawalRequestTime))
		assert.Equal(t, []domain.Party{"0xalice"}, got.Conflicts)

		require.Len(t, all, 2)
		assert.Equal(t, domain.Party("0xaaa"), all[0].Address, "ordered by address")

		err := s.Atomic(ctx, func(r ports.Repositories) error {
			_, err := r.GetJudge(ctx, "0xghost")
			return err
		})
		assert.ErrorIs(t, err, domain.ErrJudgeNotFound)
	})
}

func TestStore_DisputeAndPayouts(t *testing.T) {
	stores(t, func(t *testing.T, s ports.Store) {
		ctx := context.Background()
		save(t, s, makeBet("bet-1", "0xalice", "0xbob", t0))

		d := domain.Dispute{
			ID:              "d-1",
			BetID:           "bet-1",
			RaisedBy:        "0xbob",
			Reason:          "wrong score",
			OriginalOutcome: domain.OutcomeCreatorWins,
			Judge:           "0xjudge2",
			PreviousJudges:  []domain.Party{"0xjudge1"},
			RaisedAt:        t0,
			AssignedAt:      t0.Add(time.Hour),
			Status:          domain.DisputeOpen,
			Verdict:         domain.OutcomePending,
		}
		require.NoError(t, s.Atomic(ctx, func(r ports.Repositories) error {
			if err := r.SaveDispute(ctx, d); err != nil {
				return err
			}
			for i, reason := range []domain.PayoutReason{domain.PayoutDraw, domain.PayoutDraw} {
				side := domain.SideCreator
				if i == 1 {
					side = domain.SideOpponent
				}
				p := domain.Payout{ID: string(rune('a' + i)), BetID: "bet-1", To: "0xx", Side: side,
					Amount: domain.MustAmount("12.5"), Reason: reason, CreatedAt: t0.Add(time.Duration(i) * time.Minute)}
				if err := r.SavePayout(ctx, p); err != nil {
					return err
				}
			}
			return r.SavePayout(ctx, domain.Payout{ID: "z", To: "0xjudge1", Amount: domain.MustAmount("1"),
				Reason: domain.PayoutSlash, CreatedAt: t0})
		}))

		var got domain.Dispute
		var payouts []domain.Payout
		require.NoError(t, s.Atomic(ctx, func(r ports.Repositories) error {
			var err error
			if got, err = r.GetDispute(ctx, "bet-1"); err != nil {
				return err
			}
			payouts, err = r.ListPayouts(ctx, "bet-1")
			return err
		}))

		assert.Equal(t, "d-1", got.ID)
		assert.Equal(t, domain.Party("0xjudge2"), got.Judge)
		assert.Equal(t, []domain.Party{"0xjudge1"}, got.PreviousJudges)
		assert.True(t, got.AssignedAt.Equal(d.AssignedAt))
		assert.Equal(t, domain.DisputeOpen, got.Status)

		require.Len(t, payouts, 2, "judge payouts are not listed under the bet")
		assert.Equal(t, domain.SideCreator, payouts[0].Side)
		assert.True(t, payouts[1].Amount.Equal(domain.MustAmount("12.5")))

		err := s.Atomic(ctx, func(r ports.Repositories) error {
			_, err := r.GetDispute(ctx, "bet-2")
			return err
		})
		assert.ErrorIs(t, err, domain.ErrDisputeNotFound)
	})
}

func TestStore_AtomicRollsBackOnError(t *testing.T) {
	stores(t, func(t *testing.T, s ports.Store) {
		ctx := context.Background()
		save(t, s, makeBet("bet-1", "0xalice", "0xbob", t0))

		boom := errors.New("boom")
		err := s.Atomic(ctx, func(r ports.Repositories) error {
			b, err := r.GetBet(ctx, "bet-1")
			if err != nil {
				return err
			}
			b.State = domain.StateCancelled
			if err := r.SaveBet(ctx, b); err != nil {
				return err
			}
			if err := r.SavePayout(ctx, domain.Payout{ID: "p", BetID: "bet-1", To: "0xalice",
				Amount: domain.MustAmount("1"), Reason: domain.PayoutRefund, CreatedAt: t0}); err != nil {
				return err
			}
			staged, err := r.GetBet(ctx, "bet-1")
			if err != nil {
				return err
			}
			if staged.State != domain.StateCancelled {
				return errors.New("unit does not read its own writes")
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := getBet(t, s, "bet-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StateCreated, got.State)

		var payouts []domain.Payout
		require.NoError(t, s.Atomic(ctx, func(r ports.Repositories) error {
			var err error
			payouts, err = r.ListPayouts(ctx, "bet-1")
			return err
		}))
		assert.Empty(t, payouts)
	})
}

func TestStore_AtomicSerializesReadModifyWrite(t *testing.T) {
	stores(t, func(t *testing.T, s ports.Store) {
		ctx := context.Background()
		require.NoError(t, s.Atomic(ctx, func(r ports.Repositories) error {
			return r.SaveJudge(ctx, domain.JudgeProfile{
				Address:      "0xcounter",
				StakedAmount: domain.MustAmount("100"),
				SlashedTotal: domain.Zero,
				IsActive:     true,
			})
		}))

		const workers = 20
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.Atomic(ctx, func(r ports.Repositories) error {
					j, err := r.GetJudge(ctx, "0xcounter")
					if err != nil {
						return err
					}
					j.CasesJudged++
					return r.SaveJudge(ctx, j)
				})
			}()
		}
		wg.Wait()

		var got domain.JudgeProfile
		require.NoError(t, s.Atomic(ctx, func(r ports.Repositories) error {
			var err error
			got, err = r.GetJudge(ctx, "0xcounter")
			return err
		}))
		assert.Equal(t, workers, got.CasesJudged)
	})
}
