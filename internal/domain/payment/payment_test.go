package payment_test

import (
	"testing"

	"github.com/cassiomorais/acquiring/internal/domain/errors"
	"github.com/cassiomorais/acquiring/internal/domain/payment"
	"github.com/cassiomorais/acquiring/internal/domain/status"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() payment.Options {
	return payment.Options{
		OrderID: "order-1",
		Amount:  payment.Amount{ValueCents: 10000, Currency: "RUB"},
	}
}

func TestAmount_String(t *testing.T) {
	a := payment.Amount{ValueCents: 10050, Currency: "USD"}
	assert.Equal(t, "100.50 USD", a.String())

	a2 := payment.Amount{ValueCents: 5000, Currency: "EUR"}
	assert.Equal(t, "50.00 EUR", a2.String())
}

func TestAmount_Validate(t *testing.T) {
	valid := payment.Amount{ValueCents: 100, Currency: "USD"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		a     payment.Amount
		field string
	}{
		{"zero", payment.Amount{ValueCents: 0, Currency: "USD"}, "amount"},
		{"negative", payment.Amount{ValueCents: -1, Currency: "USD"}, "amount"},
		{"empty currency", payment.Amount{ValueCents: 100}, "currency"},
		{"short currency", payment.Amount{ValueCents: 100, Currency: "US"}, "currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.a.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrValidationFailed)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestMaskPAN(t *testing.T) {
	assert.Equal(t, "411111******1111", payment.MaskPAN("4111111111111111"))
	assert.Equal(t, "****", payment.MaskPAN("4111"))
	assert.Equal(t, "card 220000******0004", payment.CardData{PAN: "2200000000000004"}.String())
}

func TestSources(t *testing.T) {
	assert.Equal(t, payment.SourceCard, payment.CardData{}.Kind())
	assert.Equal(t, payment.SourceAttachedCard, payment.AttachedCard{}.Kind())
	assert.Equal(t, payment.SourceRedirect, payment.Redirect{}.Kind())

	card := payment.AttachedCard{RebillID: "rebill-1"}
	assert.True(t, card.Recurrent())
	withCvc := card.WithCVC("123")
	assert.Equal(t, "123", withCvc.CVC)
	assert.Empty(t, card.CVC)
}

func TestNewAttempt(t *testing.T) {
	a := payment.NewAttempt(payment.AttachedCard{CardID: "card-1"}, testOptions(), "a@b.c")

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.Equal(t, payment.Created{}, a.State)
	assert.Zero(t, a.PaymentID)
	assert.False(t, a.IsTerminal())
	assert.False(t, a.StartedAt.IsZero())
}

func TestAttempt_Apply(t *testing.T) {
	a := payment.NewAttempt(payment.Redirect{}, testOptions(), "")

	require.NoError(t, a.Apply(payment.Start{}))
	require.NoError(t, a.Apply(payment.Pending{PaymentID: 77, Status: status.New, RedirectURL: "bank://pay"}))
	assert.Equal(t, int64(77), a.PaymentID)
	assert.Equal(t, payment.Started{PaymentID: 77, Status: status.New, RedirectURL: "bank://pay"}, a.State)

	err := a.Apply(payment.CvcSubmitted{})
	assert.ErrorIs(t, err, errors.ErrInvalidStateTransition)
	assert.Equal(t, payment.KindStarted, a.State.Kind())

	require.NoError(t, a.Apply(payment.Succeeded{}))
	assert.True(t, a.IsTerminal())
	assert.Equal(t, payment.Success{Result: payment.Result{PaymentID: 77}}, a.State)
}
