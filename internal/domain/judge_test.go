package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/wagerbook/internal/domain"
)

func registered(t *testing.T, cfg domain.JudgeConfig, stake string) domain.JudgeProfile {
	t.Helper()
	p := domain.NewJudgeProfile("0xjudge", cfg)
	require.NoError(t, p.Register(domain.MustAmount(stake), cfg, t0))
	return p
}

func TestJudgeConfig_Validate(t *testing.T) {
	require.NoError(t, domain.DefaultJudgeConfig().Validate())

	cfg := domain.DefaultJudgeConfig()
	cfg.MinStake = domain.Zero
	assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidAmount)

	cfg = domain.DefaultJudgeConfig()
	cfg.SlashPercentage = 101
	assert.Error(t, cfg.Validate())

	cfg = domain.DefaultJudgeConfig()
	cfg.VerdictTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestJudge_Register(t *testing.T) {
	cfg := domain.DefaultJudgeConfig()
	p := domain.NewJudgeProfile("0xjudge", cfg)
	assert.False(t, p.Eligible(cfg))

	err := p.Register(domain.MustAmount("99.99"), cfg, t0)
	assert.ErrorIs(t, err, domain.ErrInsufficientStake)
	assert.Equal(t, domain.KindInsufficientFunds, domain.KindOf(err))

	require.NoError(t, p.Register(domain.MustAmount("100"), cfg, t0))
	assert.True(t, p.Eligible(cfg))
	assert.Equal(t, cfg.InitialReputation, p.ReputationScore)

	assert.ErrorIs(t, p.Register(domain.MustAmount("100"), cfg, t0), domain.ErrAlreadyRegistered)
}

func TestJudge_WithdrawalLifecycle(t *testing.T) {
	cfg := domain.DefaultJudgeConfig()
	p := registered(t, cfg, "150")

	require.NoError(t, p.RequestWithdrawal(t0))
	assert.False(t, p.Eligible(cfg), "withdrawing judges are never eligible")
	assert.ErrorIs(t, p.RequestWithdrawal(t0), domain.ErrWithdrawalPending)
	assert.ErrorIs(t, p.Register(domain.MustAmount("100"), cfg, t0), domain.ErrWithdrawalPending)

	_, err := p.CompleteWithdrawal(t0.Add(cfg.LockPeriod-time.Second), cfg)
	assert.ErrorIs(t, err, domain.ErrWithdrawalLocked)

	p.OpenCases = 1
	_, err = p.CompleteWithdrawal(t0.Add(cfg.LockPeriod), cfg)
	assert.ErrorIs(t, err, domain.ErrOpenCases)
	p.OpenCases = 0

	amt, err := p.CompleteWithdrawal(t0.Add(cfg.LockPeriod), cfg)
	require.NoError(t, err)
	assert.True(t, amt.Equal(domain.MustAmount("150")))
	assert.True(t, p.StakedAmount.IsZero())
	assert.False(t, p.Withdrawing())

	_, err = p.CompleteWithdrawal(t0.Add(cfg.LockPeriod), cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	require.NoError(t, p.Register(domain.MustAmount("100"), cfg, t0.Add(cfg.LockPeriod)), "re-registration keeps history")
	assert.True(t, p.Eligible(cfg))
}

func TestJudge_SlashReducesStakeAndReputation(t *testing.T) {
	cfg := domain.DefaultJudgeConfig()
	p := registered(t, cfg, "200")

	assert.True(t, p.DefaultSlashAmount(cfg).Equal(domain.MustAmount("20")))

	taken, err := p.Slash(p.DefaultSlashAmount(cfg), cfg)
	require.NoError(t, err)
	assert.True(t, taken.Equal(domain.MustAmount("20")))
	assert.True(t, p.StakedAmount.Equal(domain.MustAmount("180")))
	assert.Equal(t, cfg.InitialReputation-cfg.SlashReputationPenalty, p.ReputationScore)

	taken, err = p.Slash(domain.MustAmount("1000"), cfg)
	require.NoError(t, err)
	assert.True(t, taken.Equal(domain.MustAmount("180")), "capped at stake")
	assert.True(t, p.StakedAmount.IsZero())
	assert.True(t, p.SlashedTotal.Equal(domain.MustAmount("200")))
	assert.False(t, p.Eligible(cfg))

	_, err = p.Slash(domain.MustAmount("-1"), cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestJudge_SlashBelowMinimumRemovesEligibility(t *testing.T) {
	cfg := domain.DefaultJudgeConfig()
	p := registered(t, cfg, "100")

	_, err := p.Slash(p.DefaultSlashAmount(cfg), cfg)
	require.NoError(t, err)
	assert.True(t, p.StakedAmount.Equal(domain.MustAmount("90")))
	assert.False(t, p.Eligible(cfg))
}

func TestJudge_RecordCaseClampsReputation(t *testing.T) {
	cfg := domain.DefaultJudgeConfig()
	p := registered(t, cfg, "100")

	p.ReputationScore = domain.MaxReputation - 50
	p.RecordCase(true, cfg)
	assert.Equal(t, domain.MaxReputation, p.ReputationScore)
	assert.Equal(t, 1, p.CasesJudged)
	assert.Equal(t, 1, p.SuccessfulCases)

	p.ReputationScore = 50
	p.RecordCase(false, cfg)
	assert.Equal(t, 0, p.ReputationScore)
	assert.Equal(t, 2, p.CasesJudged)
	assert.Equal(t, 1, p.SuccessfulCases)
}

func TestJudge_ReputationBelowMinimum(t *testing.T) {
	cfg := domain.DefaultJudgeConfig()
	p := registered(t, cfg, "500")
	p.ReputationScore = cfg.MinReputation - 1
	assert.False(t, p.Eligible(cfg))
}

func TestJudge_IncreaseStake(t *testing.T) {
	cfg := domain.DefaultJudgeConfig()
	p := registered(t, cfg, "100")

	require.NoError(t, p.IncreaseStake(domain.MustAmount("0.5")))
	assert.True(t, p.StakedAmount.Equal(domain.MustAmount("100.5")))
	assert.ErrorIs(t, p.IncreaseStake(domain.Zero), domain.ErrInvalidAmount)

	require.NoError(t, p.RequestWithdrawal(t0))
	assert.ErrorIs(t, p.IncreaseStake(domain.MustAmount("1")), domain.ErrInvalidState)
}

func TestJudge_DeclareConflict(t *testing.T) {
	cfg := domain.DefaultJudgeConfig()
	p := registered(t, cfg, "100")

	require.NoError(t, p.DeclareConflict(alice))
	assert.True(t, p.HasConflict(alice))
	assert.False(t, p.HasConflict(bob))
	assert.ErrorIs(t, p.DeclareConflict(alice), domain.ErrAlreadyDeclared)
	assert.ErrorIs(t, p.DeclareConflict(""), domain.ErrInvalidTerms)
}

func TestDispute_StaleAndReason(t *testing.T) {
	d := domain.Dispute{Status: domain.DisputeOpen, AssignedAt: t0}
	assert.False(t, d.Stale(t0.Add(time.Hour), 2*time.Hour))
	assert.True(t, d.Stale(t0.Add(2*time.Hour), 2*time.Hour))

	d.Status = domain.DisputeResolved
	assert.False(t, d.Stale(t0.Add(10*time.Hour), 2*time.Hour))

	assert.ErrorIs(t, domain.ValidateReason(""), domain.ErrInvalidTerms)
	assert.NoError(t, domain.ValidateReason("score was 2-1, not 1-2"))
}

func TestBestPool(t *testing.T) {
	pools := []domain.Pool{
		{ID: "deep", Category: "sports", Operator: "0xa", AvailableLiquidity: domain.MustAmount("1000"), RiskScore: 40},
		{ID: "safe", Category: "sports", Operator: "0xb", AvailableLiquidity: domain.MustAmount("150"), RiskScore: 10},
		{ID: "tiny", Category: "sports", Operator: "0xc", AvailableLiquidity: domain.MustAmount("10"), RiskScore: 0},
		{ID: "orphan", Category: "sports", AvailableLiquidity: domain.MustAmount("1000"), RiskScore: 0},
	}

	best, ok := domain.BestPool(pools, "sports", domain.MustAmount("100"))
	require.True(t, ok)
	assert.Equal(t, domain.PoolID("safe"), best.ID)

	best, ok = domain.BestPool(pools, "sports", domain.MustAmount("500"))
	require.True(t, ok)
	assert.Equal(t, domain.PoolID("deep"), best.ID)

	_, ok = domain.BestPool(pools, "politics", domain.MustAmount("1"))
	assert.False(t, ok)
}
