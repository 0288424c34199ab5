package main

import (
	"context"
	"log/slog"
)

// runSweep lista las bets finalizables para un keeper externo. No finaliza
// nada: FinalizeResolution lo llama una de las partes.
func runSweep(ctx context.Context, a *app) error {
	bets, err := a.escrow.Finalizable(ctx)
	if err != nil {
		return err
	}
	a.console.PrintFinalizable(bets, a.clock.Now())
	slog.Info("sweep complete", "finalizable", len(bets))
	return nil
}
