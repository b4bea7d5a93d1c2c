package testutil

import (
	"github.com/cassiomorais/acquiring/internal/domain/payment"
	"github.com/cassiomorais/acquiring/internal/domain/status"
)

const TestPaymentID int64 = 424242

func NewTestCard() payment.CardData {
	return payment.CardData{PAN: "2200000000000004", Expiry: "1230", CVC: "123"}
}

func NewTestAttachedCard() payment.AttachedCard {
	return payment.AttachedCard{CardID: "card-1"}
}

func NewTestOptions(amountCents int64, currency string) payment.Options {
	return payment.Options{
		OrderID:     "order-1",
		Amount:      payment.Amount{ValueCents: amountCents, Currency: currency},
		Description: "test order",
		CustomerKey: "customer-1",
	}
}

// PendingSubmission is a submission accepted without step-up.
func PendingSubmission() payment.Submission {
	return payment.Submission{PaymentID: TestPaymentID, Status: status.New, Action: payment.ActionNone}
}

func ThreeDsSubmission() payment.Submission {
	return payment.Submission{
		PaymentID: TestPaymentID,
		Status:    status.ThreeDsChecking,
		Action:    payment.ActionThreeDs,
		Challenge: payment.Challenge{
			PaymentID: TestPaymentID,
			ACSURL:    "https://acs.example.test/challenge",
			MD:        "md-1",
			PaReq:     "pareq-1",
			TermURL:   "https://gateway.example.test/term",
			Version:   "2.1.0",
		},
	}
}

func CvcSubmission() payment.Submission {
	return payment.Submission{
		PaymentID: TestPaymentID,
		Action:    payment.ActionCvc,
		Card:      payment.AttachedCard{CardID: "card-1", RebillID: "rebill-1"},
	}
}

func RedirectSubmission() payment.Submission {
	return payment.Submission{
		PaymentID:   TestPaymentID,
		Status:      status.FormShowed,
		Action:      payment.ActionRedirect,
		RedirectURL: "https://qr.example.test/pay/424242",
	}
}
