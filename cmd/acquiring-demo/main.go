package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cassiomorais/acquiring/internal/application/process"
	"github.com/cassiomorais/acquiring/internal/application/projection"
	"github.com/cassiomorais/acquiring/internal/bootstrap"
	"github.com/cassiomorais/acquiring/internal/domain/payment"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	source := flag.String("source", "card", "payment source: card, 3ds, declined, rebill, sbp")
	cvc := flag.String("cvc", "123", "CVC entered when the gateway asks for one")
	paRes := flag.String("pares", "issuer-approved", "PaRes posted back by the 3-D Secure page; \"fail\" declines")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "acquiring-demo", "acquiring_demo")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close(context.Background())

	src, err := sourceFor(*source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	demo := app.Config.Demo
	opts := payment.Options{
		OrderID:     fmt.Sprintf("%s-%d", demo.OrderPrefix, time.Now().Unix()),
		Amount:      payment.Amount{ValueCents: demo.AmountCents, Currency: demo.Currency},
		Description: "acquiring demo order",
	}

	manager := app.NewManager(app.Gateway())
	defer manager.Shutdown()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)
	states := manager.Subscribe(gCtx)

	// 1. Screen: renders every state and answers challenges.
	g.Go(func() error {
		return runScreen(gCtx, app.Logger, manager, states, *cvc, *paRes)
	})

	// 2. Navigation: the first event closes the screen.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return nil
		case e, ok := <-manager.Events():
			if ok {
				app.Logger.Info().Str("event", e.Name()).Msg("Closing payment screen")
			}
			cancel()
			return nil
		}
	})

	// 3. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return nil
		case <-quit:
			app.Logger.Info().Msg("Payment cancelled by user")
			manager.Stop()
			return nil
		}
	})

	if err := manager.Start(gCtx, src, opts, demo.Email); err != nil {
		sheet := projection.ProjectStartError(err)
		app.Logger.Error().Err(err).Str("sheet", string(sheet.Kind)).Msg("Failed to start payment")
		cancel()
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Demo error")
	}

	if a, ok := manager.Attempt(); ok {
		app.Logger.Info().Str("state", string(a.State.Kind())).Int64("payment_id", a.PaymentID).Msg("Demo finished")
	}
}

func runScreen(
	ctx context.Context,
	logger zerolog.Logger,
	manager *process.Manager,
	states <-chan payment.State,
	cvc string,
	paRes string,
) error {
	for {
		var s payment.State
		select {
		case <-ctx.Done():
			return nil
		case next, ok := <-states:
			if !ok {
				return nil
			}
			s = next
		}

		sheet := projection.Project(s)
		ev := logger.Info().Str("state", string(s.Kind())).Str("sheet", string(sheet.Kind))
		if sheet.PaymentID != 0 {
			ev = ev.Int64("payment_id", sheet.PaymentID)
		}
		if !sheet.Status.IsNone() {
			ev = ev.Str("status", sheet.Status.String())
		}
		if sheet.Err != nil {
			ev = ev.AnErr("cause", sheet.Err).Bool("retryable", sheet.Retryable)
		}
		ev.Msg("Payment sheet")

		var err error
		switch st := s.(type) {
		case payment.CvcUiNeeded:
			err = manager.SubmitCvc(cvc)
		case payment.ThreeDsUiNeeded:
			logger.Info().Str("acs_url", st.Challenge.ACSURL).Msg("Opening 3-D Secure page")
			err = manager.OnThreeDsUiInProcess()
		case payment.ThreeDsInProcess:
			logger.Info().Msg("Issuer page answered")
			err = manager.SubmitThreeDsResponse(paRes)
		case payment.Started:
			if st.RedirectURL != "" {
				logger.Info().Str("url", st.RedirectURL).Msg("Customer left for the bank app")
				err = manager.StartCheckingStatus(ctx)
			}
		case payment.Success, payment.Error:
			manager.RequestClose()
		}
		if err != nil {
			logger.Warn().Err(err).Msg("Screen action rejected")
		}
	}
}

func sourceFor(name string) (payment.Source, error) {
	switch name {
	case "card":
		return payment.CardData{PAN: "4111111111111111", Expiry: "1230", CVC: "123"}, nil
	case "3ds":
		return payment.CardData{PAN: "2200000000000004", Expiry: "1230", CVC: "123"}, nil
	case "declined":
		return payment.CardData{PAN: "4000000000000002", Expiry: "1230", CVC: "123"}, nil
	case "rebill":
		return payment.AttachedCard{CardID: "card-1", RebillID: "rebill-1"}, nil
	case "sbp":
		return payment.Redirect{Bank: "sbp"}, nil
	default:
		return nil, fmt.Errorf("unknown source %q", name)
	}
}
