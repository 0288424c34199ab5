package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/wagerbook/internal/domain"
	"github.com/alejandrodnm/wagerbook/internal/ports"
)

var _ ports.EventSink = (*Console)(nil)

// Console implementa ports.EventSink y los reportes de la CLI.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Publish imprime una línea por evento confirmado.
func (c *Console) Publish(_ context.Context, ev domain.Event) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %-26s", ev.At.Format("15:04:05"), ev.Type)
	if ev.BetID != "" {
		fmt.Fprintf(&sb, " bet=%s", shortID(ev.BetID))
	}
	if ev.Actor != "" {
		fmt.Fprintf(&sb, " by=%s", ev.Actor)
	}
	if ev.Judge != "" {
		fmt.Fprintf(&sb, " judge=%s", ev.Judge)
	}
	if ev.State != "" {
		fmt.Fprintf(&sb, " state=%s", ev.State)
	}
	if ev.Outcome != "" && ev.Outcome != domain.OutcomePending {
		fmt.Fprintf(&sb, " outcome=%s", ev.Outcome)
	}
	if !ev.Amount.IsZero() {
		fmt.Fprintf(&sb, " amount=%s", ev.Amount.StringFixed(2))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.out, sb.String())
	return err
}

// PrintBets imprime la tabla de bets con su estado y plazos.
func (c *Console) PrintBets(bets []domain.Bet, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(bets) == 0 {
		fmt.Fprintf(c.out, "[%s] no bets found\n", now.Format("15:04:05"))
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Bet", "Creator", "Opponent", "Stake", "Funded", "State", "Outcome", "Deadline")
	states := make(map[domain.BetState]int)
	escrowed := domain.Zero
	for i, b := range bets {
		states[b.State]++
		escrowed = escrowed.Add(b.Ledger.TotalEscrowed())
		table.Append(
			fmt.Sprintf("%d", i+1),
			shortID(b.ID),
			truncate(string(b.Creator), 14),
			truncate(b.Opponent.String(), 14),
			b.Ledger.Stake.StringFixed(2),
			fundedLabel(b.Ledger),
			string(b.State),
			outcomeLabel(b.DeclaredOutcome),
			deadlineLabel(b, now),
		)
	}
	table.Render()

	fmt.Fprintf(c.out, "  %d bets | escrowed %s |", len(bets), escrowed.StringFixed(2))
	for _, s := range []domain.BetState{
		domain.StateCreated, domain.StateActive, domain.StateAwaitingResolution,
		domain.StateInDispute, domain.StateResolved, domain.StateCancelled,
	} {
		if n := states[s]; n > 0 {
			fmt.Fprintf(c.out, " %s:%d", s, n)
		}
	}
	fmt.Fprintln(c.out)
}

// PrintJudges imprime el registro de jueces con elegibilidad.
func (c *Console) PrintJudges(judges []domain.JudgeProfile, cfg domain.JudgeConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(judges) == 0 {
		fmt.Fprintln(c.out, "  no judges registered")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Judge", "Stake", "Rep", "Cases", "Success", "Open", "Slashed", "Status")
	eligible := 0
	for _, j := range judges {
		status := judgeStatus(j, cfg)
		if status == "ELIGIBLE" {
			eligible++
		}
		table.Append(
			truncate(string(j.Address), 20),
			j.StakedAmount.StringFixed(2),
			fmt.Sprintf("%d", j.ReputationScore),
			fmt.Sprintf("%d", j.CasesJudged),
			successLabel(j),
			fmt.Sprintf("%d", j.OpenCases),
			j.SlashedTotal.StringFixed(2),
			status,
		)
	}
	table.Render()
	fmt.Fprintf(c.out, "  %d judges | %d eligible (min stake %s, min rep %d)\n",
		len(judges), eligible, cfg.MinStake.StringFixed(2), cfg.MinReputation)
}

// PrintFinalizable lista las bets listas para FinalizeResolution.
func (c *Console) PrintFinalizable(bets []domain.Bet, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "[%s] %d bets finalizable\n", now.Format("15:04:05"), len(bets))
	for _, b := range bets {
		fmt.Fprintf(c.out, "  %s  declared %s by %s  window closed %s ago\n",
			b.ID, b.DeclaredOutcome, b.DeclaredBy, now.Sub(b.DisputeDeadline).Truncate(time.Minute))
	}
}

// --- helpers ---

func fundedLabel(l domain.StakeLedger) string {
	mark := func(ok bool) string {
		if ok {
			return "Y"
		}
		return "-"
	}
	return mark(l.CreatorFunded) + "/" + mark(l.OpponentFunded)
}

func outcomeLabel(o domain.Outcome) string {
	if o == "" || o == domain.OutcomePending {
		return "-"
	}
	return string(o)
}

func deadlineLabel(b domain.Bet, now time.Time) string {
	switch b.State {
	case domain.StateCreated, domain.StateActive:
		if !now.Before(b.ExpiresAt) {
			return "expired"
		}
		return "exp " + b.ExpiresAt.Format("01-02 15:04")
	case domain.StateAwaitingResolution:
		if domain.IsFinalizable(b, now) {
			return "finalizable"
		}
		return "window " + b.DisputeDeadline.Format("01-02 15:04")
	}
	return "-"
}

func judgeStatus(j domain.JudgeProfile, cfg domain.JudgeConfig) string {
	switch {
	case j.Eligible(cfg):
		return "ELIGIBLE"
	case j.Withdrawing():
		return "WITHDRAWING"
	case !j.IsActive:
		return "INACTIVE"
	}
	return "BELOW MIN"
}

func successLabel(j domain.JudgeProfile) string {
	if j.CasesJudged == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", float64(j.SuccessfulCases)/float64(j.CasesJudged)*100)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
