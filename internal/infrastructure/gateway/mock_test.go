package gateway

import (
	"context"
	"testing"
	"time"

	domainerrors "github.com/cassiomorais/acquiring/internal/domain/errors"
	"github.com/cassiomorais/acquiring/internal/domain/payment"
	"github.com/cassiomorais/acquiring/internal/domain/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOptions = payment.Options{
	OrderID: "order-1",
	Amount:  payment.Amount{ValueCents: 1000, Currency: "RUB"},
}

func fastMock(opts ...MockOption) *MockGateway {
	return NewMockGateway(append([]MockOption{WithLatency(0), WithRand(func() float64 { return 0.5 })}, opts...)...)
}

func TestMockGateway_ConfirmsAfterPolls(t *testing.T) {
	g := fastMock(WithPollsUntilConfirmed(3))
	ctx := context.Background()

	sub, err := g.SubmitPayment(ctx, payment.CardData{PAN: "4111111111111111", Expiry: "1230", CVC: "123"}, testOptions)
	require.NoError(t, err)
	assert.Equal(t, payment.ActionNone, sub.Action)
	assert.Equal(t, status.New, sub.Status)

	var got []status.ResponseStatus
	for range 4 {
		st, err := g.GetStatus(ctx, sub.PaymentID)
		require.NoError(t, err)
		got = append(got, st)
	}
	assert.Equal(t, []status.ResponseStatus{status.Authorizing, status.Authorizing, status.Confirmed, status.Confirmed}, got)
}

func TestMockGateway_SourceRouting(t *testing.T) {
	tests := []struct {
		name   string
		source payment.Source
		action payment.Action
		status status.ResponseStatus
	}{
		{"3ds card", payment.CardData{PAN: "2200000000000004", Expiry: "1230", CVC: "123"}, payment.ActionThreeDs, status.ThreeDsChecking},
		{"declined card", payment.CardData{PAN: "4000000000000002", Expiry: "1230", CVC: "123"}, payment.ActionNone, status.Rejected},
		{"rebill without cvc", payment.AttachedCard{RebillID: "rebill-1"}, payment.ActionCvc, status.None},
		{"stored card", payment.AttachedCard{CardID: "card-1"}, payment.ActionNone, status.New},
		{"redirect", payment.Redirect{}, payment.ActionRedirect, status.FormShowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := fastMock().SubmitPayment(context.Background(), tt.source, testOptions)
			require.NoError(t, err)
			assert.Equal(t, tt.action, sub.Action)
			assert.Equal(t, tt.status, sub.Status)
		})
	}
}

func TestMockGateway_ThreeDsWaitsForConfirmation(t *testing.T) {
	g := fastMock(WithPollsUntilConfirmed(1))
	ctx := context.Background()

	sub, err := g.SubmitPayment(ctx, payment.CardData{PAN: "2200000000000004", Expiry: "1230", CVC: "123"}, testOptions)
	require.NoError(t, err)

	st, err := g.GetStatus(ctx, sub.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, status.ThreeDsChecking, st)

	ch := sub.Challenge
	ch.PaRes = "issuer-pares"
	res, err := g.ConfirmStepUp(ctx, ch)
	require.NoError(t, err)
	assert.Equal(t, sub.PaymentID, res.PaymentID)

	st, err = g.GetStatus(ctx, sub.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, status.Confirmed, st)
}

func TestMockGateway_FailedStepUp(t *testing.T) {
	g := fastMock()
	ctx := context.Background()

	sub, err := g.SubmitPayment(ctx, payment.CardData{PAN: "2200000000000004", Expiry: "1230", CVC: "123"}, testOptions)
	require.NoError(t, err)

	ch := sub.Challenge
	ch.PaRes = FailedStepUpPaRes
	_, err = g.ConfirmStepUp(ctx, ch)
	assert.ErrorIs(t, err, domainerrors.ErrPaymentRejected)

	st, err := g.GetStatus(ctx, sub.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, status.Rejected, st)
}

func TestMockGateway_FailureRate(t *testing.T) {
	g := fastMock(WithFailureRate(1.0))

	sub, err := g.SubmitPayment(context.Background(), payment.CardData{PAN: "4111111111111111", Expiry: "1230", CVC: "123"}, testOptions)
	require.NoError(t, err)
	assert.Equal(t, status.Rejected, sub.Status)
}

func TestMockGateway_TimeoutRate(t *testing.T) {
	g := fastMock(WithTimeoutRate(1.0))

	_, err := g.GetStatus(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrTransport)
	assert.ErrorIs(t, err, domainerrors.ErrGatewayUnavailable)
}

func TestMockGateway_UnknownPayment(t *testing.T) {
	_, err := fastMock().GetStatus(context.Background(), 42)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestMockGateway_Latency(t *testing.T) {
	latency := 50 * time.Millisecond
	g := NewMockGateway(WithLatency(latency))

	start := time.Now()
	_, err := g.SubmitPayment(context.Background(), payment.Redirect{}, testOptions)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), latency)
}

func TestMockGateway_CancelledDuringLatency(t *testing.T) {
	g := NewMockGateway(WithLatency(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.SubmitPayment(ctx, payment.Redirect{}, testOptions)
	assert.True(t, domainerrors.IsCancelled(err))
}

func TestTestCardSuffixes(t *testing.T) {
	assert.True(t, RequiresThreeDs("2200000000000004"))
	assert.False(t, RequiresThreeDs("4111111111111111"))
	assert.True(t, Declines("4000000000000002"))
	assert.False(t, Declines("2200000000000004"))
}
