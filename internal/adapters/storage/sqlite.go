package storage

// sqlite.go: persistencia del escrow en SQLite (pure Go, sin CGo).
//
// Estrategia:
//   - `bets`: una fila por escrow; términos inmutables + ledger + estado.
//   - `judges`: una fila por juez, nunca se borra (auditoría).
//   - `disputes`: una fila por bet disputada; el motivo vive aquí, no en la bet.
//   - `payouts`: journal append-only de todo lo que sale de custodia.
//   - Una sola conexión: cada Atomic es una transacción y las transacciones
//     quedan serializadas, que es justo el single-writer que necesita el core.
//   - Timestamps como INTEGER unix nanos (0 = sin valor), montos como TEXT decimal.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/wagerbook/internal/domain"
	"github.com/alejandrodnm/wagerbook/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS bets (
    id               TEXT PRIMARY KEY,
    creator          TEXT    NOT NULL,
    opponent         TEXT    NOT NULL DEFAULT '',
    pool_id          TEXT    NOT NULL DEFAULT '',
    pool_operator    TEXT    NOT NULL DEFAULT '',
    risk_score       INTEGER NOT NULL DEFAULT 0,
    description      TEXT    NOT NULL,
    outcome_criteria TEXT    NOT NULL,
    tags             TEXT    NOT NULL DEFAULT '[]',
    created_at       INTEGER NOT NULL,
    expires_at       INTEGER NOT NULL,
    stake            TEXT    NOT NULL,
    creator_funded   INTEGER NOT NULL DEFAULT 0,
    opponent_funded  INTEGER NOT NULL DEFAULT 0,
    creator_paid     INTEGER NOT NULL DEFAULT 0,
    opponent_paid    INTEGER NOT NULL DEFAULT 0,
    state            TEXT    NOT NULL,
    declared_outcome TEXT    NOT NULL,
    declared_by      TEXT    NOT NULL DEFAULT '',
    declared_at      INTEGER NOT NULL DEFAULT 0,
    dispute_deadline INTEGER NOT NULL DEFAULT 0,
    resolved_at      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS judges (
    address            TEXT PRIMARY KEY,
    staked_amount      TEXT    NOT NULL,
    reputation_score   INTEGER NOT NULL,
    cases_judged       INTEGER NOT NULL DEFAULT 0,
    successful_cases   INTEGER NOT NULL DEFAULT 0,
    open_cases         INTEGER NOT NULL DEFAULT 0,
    is_active          INTEGER NOT NULL DEFAULT 0,
    registration_time  INTEGER NOT NULL DEFAULT 0,
    withdrawal_request INTEGER NOT NULL DEFAULT 0,
    slashed_total      TEXT    NOT NULL DEFAULT '0',
    conflicts          TEXT    NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS disputes (
    bet_id           TEXT PRIMARY KEY,
    id               TEXT    NOT NULL,
    raised_by        TEXT    NOT NULL,
    reason           TEXT    NOT NULL,
    original_outcome TEXT    NOT NULL,
    judge            TEXT    NOT NULL DEFAULT '',
    previous_judges  TEXT    NOT NULL DEFAULT '[]',
    raised_at        INTEGER NOT NULL,
    assigned_at      INTEGER NOT NULL DEFAULT 0,
    status           TEXT    NOT NULL,
    verdict          TEXT    NOT NULL DEFAULT 'PENDING',
    resolved_at      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS payouts (
    id         TEXT PRIMARY KEY,
    bet_id     TEXT    NOT NULL DEFAULT '',
    recipient  TEXT    NOT NULL,
    side       TEXT    NOT NULL DEFAULT '',
    amount     TEXT    NOT NULL,
    reason     TEXT    NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bets_creator  ON bets(creator);
CREATE INDEX IF NOT EXISTS idx_bets_opponent ON bets(opponent);
CREATE INDEX IF NOT EXISTS idx_bets_operator ON bets(pool_operator);
CREATE INDEX IF NOT EXISTS idx_bets_state    ON bets(state, dispute_deadline);
CREATE INDEX IF NOT EXISTS idx_payouts_bet   ON payouts(bet_id);
`

const betColumns = `id, creator, opponent, pool_id, pool_operator, risk_score, description,
	outcome_criteria, tags, created_at, expires_at, stake, creator_funded, opponent_funded,
	creator_paid, opponent_paid, state, declared_outcome, declared_by, declared_at,
	dispute_deadline, resolved_at`

const judgeColumns = `address, staked_amount, reputation_score, cases_judged, successful_cases,
	open_cases, is_active, registration_time, withdrawal_request, slashed_total, conflicts`

// SQLiteStore implementa ports.Store usando SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.Store = (*SQLiteStore)(nil)

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Atomic ejecuta fn dentro de una transacción.
func (s *SQLiteStore) Atomic(ctx context.Context, fn func(r ports.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.Atomic: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.Atomic: commit: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqlTx struct {
	tx *sql.Tx
}

// --- bets ---

func (t *sqlTx) GetBet(ctx context.Context, id string) (domain.Bet, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id = ?`, id)
	b, err := scanBet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bet{}, domain.ErrBetNotFound.WithMsg("bet " + id)
	}
	if err != nil {
		return domain.Bet{}, fmt.Errorf("storage.GetBet %s: %w", id, err)
	}
	return b, nil
}

func (t *sqlTx) SaveBet(ctx context.Context, b domain.Bet) error {
	if b.ExpiresAt.After(domain.MaxExpiry) {
		return fmt.Errorf("storage.SaveBet %s: expiry %s overflows unix nanos", b.ID, b.ExpiresAt)
	}
	tags, err := json.Marshal(b.Tags)
	if err != nil {
		return fmt.Errorf("storage.SaveBet: marshal tags: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO bets (`+betColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			creator_funded   = excluded.creator_funded,
			opponent_funded  = excluded.opponent_funded,
			creator_paid     = excluded.creator_paid,
			opponent_paid    = excluded.opponent_paid,
			state            = excluded.state,
			declared_outcome = excluded.declared_outcome,
			declared_by      = excluded.declared_by,
			declared_at      = excluded.declared_at,
			dispute_deadline = excluded.dispute_deadline,
			resolved_at      = excluded.resolved_at
	`,
		b.ID,
		string(b.Creator),
		string(b.Opponent.Party()),
		string(b.Opponent.Pool()),
		string(b.PoolOperator),
		b.RiskScore,
		b.Description,
		b.OutcomeCriteria,
		string(tags),
		unixNano(b.CreatedAt),
		unixNano(b.ExpiresAt),
		b.Ledger.Stake.String(),
		boolInt(b.Ledger.CreatorFunded),
		boolInt(b.Ledger.OpponentFunded),
		boolInt(b.Ledger.CreatorPaid),
		boolInt(b.Ledger.OpponentPaid),
		string(b.State),
		string(b.DeclaredOutcome),
		string(b.DeclaredBy),
		unixNano(b.DeclaredAt),
		unixNano(b.DisputeDeadline),
		unixNano(b.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveBet %s: %w", b.ID, err)
	}
	return nil
}

func (t *sqlTx) ListBets(ctx context.Context) ([]domain.Bet, error) {
	return t.queryBets(ctx, `SELECT `+betColumns+` FROM bets ORDER BY created_at DESC, id`)
}

func (t *sqlTx) ListBetsByParty(ctx context.Context, party domain.Party) ([]domain.Bet, error) {
	return t.queryBets(ctx, `
		SELECT `+betColumns+` FROM bets
		WHERE creator = ? OR (pool_id = '' AND opponent = ?) OR (pool_id <> '' AND pool_operator = ?)
		ORDER BY created_at DESC, id
	`, string(party), string(party), string(party))
}

func (t *sqlTx) ListAwaitingResolution(ctx context.Context, deadline time.Time) ([]domain.Bet, error) {
	return t.queryBets(ctx, `
		SELECT `+betColumns+` FROM bets
		WHERE state = ? AND dispute_deadline <= ?
		ORDER BY dispute_deadline, id
	`, string(domain.StateAwaitingResolution), unixNano(deadline))
}

func (t *sqlTx) queryBets(ctx context.Context, query string, args ...any) ([]domain.Bet, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.queryBets: %w", err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.queryBets: scan row: %w", err)
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// --- judges ---

func (t *sqlTx) GetJudge(ctx context.Context, addr domain.Party) (domain.JudgeProfile, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+judgeColumns+` FROM judges WHERE address = ?`, string(addr))
	j, err := scanJudge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.JudgeProfile{}, domain.ErrJudgeNotFound.WithMsg("judge " + string(addr))
	}
	if err != nil {
		return domain.JudgeProfile{}, fmt.Errorf("storage.GetJudge %s: %w", addr, err)
	}
	return j, nil
}

func (t *sqlTx) SaveJudge(ctx context.Context, j domain.JudgeProfile) error {
	conflicts, err := json.Marshal(j.Conflicts)
	if err != nil {
		return fmt.Errorf("storage.SaveJudge: marshal conflicts: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO judges (`+judgeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			staked_amount      = excluded.staked_amount,
			reputation_score   = excluded.reputation_score,
			cases_judged       = excluded.cases_judged,
			successful_cases   = excluded.successful_cases,
			open_cases         = excluded.open_cases,
			is_active          = excluded.is_active,
			registration_time  = excluded.registration_time,
			withdrawal_request = excluded.withdrawal_request,
			slashed_total      = excluded.slashed_total,
			conflicts          = excluded.conflicts
	`,
		string(j.Address),
		j.StakedAmount.String(),
		j.ReputationScore,
		j.CasesJudged,
		j.SuccessfulCases,
		j.OpenCases,
		boolInt(j.IsActive),
		unixNano(j.RegistrationTime),
		unixNano(j.WithdrawalRequestTime),
		j.SlashedTotal.String(),
		string(conflicts),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveJudge %s: %w", j.Address, err)
	}
	return nil
}

func (t *sqlTx) ListJudges(ctx context.Context) ([]domain.JudgeProfile, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+judgeColumns+` FROM judges ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListJudges: query: %w", err)
	}
	defer rows.Close()

	var judges []domain.JudgeProfile
	for rows.Next() {
		j, err := scanJudge(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListJudges: scan row: %w", err)
		}
		judges = append(judges, j)
	}
	return judges, rows.Err()
}

// --- disputes ---

func (t *sqlTx) GetDispute(ctx context.Context, betID string) (domain.Dispute, error) {
	var (
		d                                domain.Dispute
		raisedBy, original, judge, prev  string
		status, verdict                  string
		raisedAt, assignedAt, resolvedAt int64
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT bet_id, id, raised_by, reason, original_outcome, judge, previous_judges,
		       raised_at, assigned_at, status, verdict, resolved_at
		FROM disputes WHERE bet_id = ?
	`, betID).Scan(
		&d.BetID, &d.ID, &raisedBy, &d.Reason, &original, &judge, &prev,
		&raisedAt, &assignedAt, &status, &verdict, &resolvedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Dispute{}, domain.ErrDisputeNotFound.WithMsg("bet " + betID)
	}
	if err != nil {
		return domain.Dispute{}, fmt.Errorf("storage.GetDispute %s: %w", betID, err)
	}
	if err := json.Unmarshal([]byte(prev), &d.PreviousJudges); err != nil {
		return domain.Dispute{}, fmt.Errorf("storage.GetDispute %s: previous judges: %w", betID, err)
	}
	d.RaisedBy = domain.Party(raisedBy)
	d.OriginalOutcome = domain.Outcome(original)
	d.Judge = domain.Party(judge)
	d.RaisedAt = fromUnixNano(raisedAt)
	d.AssignedAt = fromUnixNano(assignedAt)
	d.Status = domain.DisputeStatus(status)
	d.Verdict = domain.Outcome(verdict)
	d.ResolvedAt = fromUnixNano(resolvedAt)
	return d, nil
}

func (t *sqlTx) SaveDispute(ctx context.Context, d domain.Dispute) error {
	prev, err := json.Marshal(d.PreviousJudges)
	if err != nil {
		return fmt.Errorf("storage.SaveDispute: marshal previous judges: %w", err)
	}
	verdict := d.Verdict
	if verdict == "" {
		verdict = domain.OutcomePending
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO disputes
			(bet_id, id, raised_by, reason, original_outcome, judge, previous_judges,
			 raised_at, assigned_at, status, verdict, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bet_id) DO UPDATE SET
			judge           = excluded.judge,
			previous_judges = excluded.previous_judges,
			assigned_at     = excluded.assigned_at,
			status          = excluded.status,
			verdict         = excluded.verdict,
			resolved_at     = excluded.resolved_at
	`,
		d.BetID, d.ID, string(d.RaisedBy), d.Reason, string(d.OriginalOutcome),
		string(d.Judge), string(prev),
		unixNano(d.RaisedAt), unixNano(d.AssignedAt), string(d.Status), string(verdict),
		unixNano(d.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveDispute %s: %w", d.BetID, err)
	}
	return nil
}

// --- payouts ---

func (t *sqlTx) SavePayout(ctx context.Context, p domain.Payout) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO payouts (id, bet_id, recipient, side, amount, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.BetID, string(p.To), string(p.Side), p.Amount.String(), string(p.Reason), unixNano(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("storage.SavePayout %s: %w", p.ID, err)
	}
	return nil
}

func (t *sqlTx) ListPayouts(ctx context.Context, betID string) ([]domain.Payout, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, bet_id, recipient, side, amount, reason, created_at
		FROM payouts WHERE bet_id = ? ORDER BY created_at, id
	`, betID)
	if err != nil {
		return nil, fmt.Errorf("storage.ListPayouts: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Payout
	for rows.Next() {
		var (
			p                        domain.Payout
			to, side, amount, reason string
			createdAt                int64
		)
		if err := rows.Scan(&p.ID, &p.BetID, &to, &side, &amount, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("storage.ListPayouts: scan row: %w", err)
		}
		if p.Amount, err = domain.ParseAmount(amount); err != nil {
			return nil, fmt.Errorf("storage.ListPayouts: amount: %w", err)
		}
		p.To = domain.Party(to)
		p.Side = domain.Side(side)
		p.Reason = domain.PayoutReason(reason)
		p.CreatedAt = fromUnixNano(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- helpers internos ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(row rowScanner) (domain.Bet, error) {
	var (
		b                                                    domain.Bet
		creator, opponent, poolID, operator, tags, stake     string
		state, outcome, declaredBy                           string
		createdAt, expiresAt, declaredAt, deadline, resolved int64
		cFunded, oFunded, cPaid, oPaid                       int
	)
	if err := row.Scan(
		&b.ID, &creator, &opponent, &poolID, &operator, &b.RiskScore, &b.Description,
		&b.OutcomeCriteria, &tags, &createdAt, &expiresAt, &stake, &cFunded, &oFunded,
		&cPaid, &oPaid, &state, &outcome, &declaredBy, &declaredAt,
		&deadline, &resolved,
	); err != nil {
		return domain.Bet{}, err
	}
	if err := json.Unmarshal([]byte(tags), &b.Tags); err != nil {
		return domain.Bet{}, fmt.Errorf("tags: %w", err)
	}
	amt, err := domain.ParseAmount(stake)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("stake: %w", err)
	}

	b.Creator = domain.Party(creator)
	if poolID != "" {
		b.Opponent = domain.HouseOpponent(domain.PoolID(poolID))
	} else {
		b.Opponent = domain.SpecificOpponent(domain.Party(opponent))
	}
	b.PoolOperator = domain.Party(operator)
	b.CreatedAt = fromUnixNano(createdAt)
	b.ExpiresAt = fromUnixNano(expiresAt)
	b.Ledger = domain.StakeLedger{
		Stake:          amt,
		CreatorFunded:  cFunded == 1,
		OpponentFunded: oFunded == 1,
		CreatorPaid:    cPaid == 1,
		OpponentPaid:   oPaid == 1,
	}
	b.State = domain.BetState(state)
	b.DeclaredOutcome = domain.Outcome(outcome)
	b.DeclaredBy = domain.Party(declaredBy)
	b.DeclaredAt = fromUnixNano(declaredAt)
	b.DisputeDeadline = fromUnixNano(deadline)
	b.ResolvedAt = fromUnixNano(resolved)
	return b, nil
}

func scanJudge(row rowScanner) (domain.JudgeProfile, error) {
	var (
		j                                domain.JudgeProfile
		addr, staked, slashed, conflicts string
		active                           int
		registered, withdrawal           int64
	)
	if err := row.Scan(
		&addr, &staked, &j.ReputationScore, &j.CasesJudged, &j.SuccessfulCases,
		&j.OpenCases, &active, &registered, &withdrawal, &slashed, &conflicts,
	); err != nil {
		return domain.JudgeProfile{}, err
	}
	var err error
	if j.StakedAmount, err = domain.ParseAmount(staked); err != nil {
		return domain.JudgeProfile{}, fmt.Errorf("staked amount: %w", err)
	}
	if j.SlashedTotal, err = domain.ParseAmount(slashed); err != nil {
		return domain.JudgeProfile{}, fmt.Errorf("slashed total: %w", err)
	}
	if err := json.Unmarshal([]byte(conflicts), &j.Conflicts); err != nil {
		return domain.JudgeProfile{}, fmt.Errorf("conflicts: %w", err)
	}
	j.Address = domain.Party(addr)
	j.IsActive = active == 1
	j.RegistrationTime = fromUnixNano(registered)
	j.WithdrawalRequestTime = fromUnixNano(withdrawal)
	return j, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
