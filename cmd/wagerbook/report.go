package main

import (
	"context"

	"github.com/alejandrodnm/wagerbook/internal/domain"
)

func runReport(ctx context.Context, a *app, party string) error {
	bets, err := a.escrow.ListBets(ctx, domain.Party(party))
	if err != nil {
		return err
	}
	judges, err := a.registry.ListJudges(ctx)
	if err != nil {
		return err
	}
	now := a.clock.Now()
	a.console.PrintBets(bets, now)
	a.console.PrintJudges(judges, a.registry.Config())
	return nil
}
