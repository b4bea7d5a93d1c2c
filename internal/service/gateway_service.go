package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/cassiomorais/acquiring/internal/domain/status"
	"github.com/cassiomorais/acquiring/internal/infrastructure/gateway"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GatewayConfig drives the simulated gateway.
type GatewayConfig struct {
	// PollsUntilConfirmed is the number of GetState calls after which a
	// pending payment becomes CONFIRMED.
	PollsUntilConfirmed int
	// PublicURL is the externally visible base URL, used for term and
	// redirect links.
	PublicURL string
}

type simulatedPayment struct {
	id       int64
	orderID  string
	amount   int64
	currency string
	status   status.ResponseStatus
	md       string
	polls    int
	cardID   string
	rebillID string
}

// GatewayService implements the acquiring gateway API in memory. Card
// numbers ending in 0004 require 3-D Secure, numbers ending in 0002 are
// declined and rebill charges without a CVV ask for one.
type GatewayService struct {
	cfg    GatewayConfig
	logger zerolog.Logger

	mu       sync.Mutex
	nextID   int64
	payments map[int64]*simulatedPayment
}

// NewGatewayService creates a new GatewayService.
func NewGatewayService(cfg GatewayConfig, logger zerolog.Logger) *GatewayService {
	return &GatewayService{
		cfg:      cfg,
		logger:   logger,
		nextID:   100000,
		payments: make(map[int64]*simulatedPayment),
	}
}

// Init registers a new payment in the NEW status.
func (s *GatewayService) Init(_ context.Context, req gateway.InitRequest) gateway.InitResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	p := &simulatedPayment{
		id:       s.nextID,
		orderID:  req.OrderID,
		amount:   req.Amount,
		currency: req.Currency,
		status:   status.New,
	}
	s.payments[p.id] = p

	s.logger.Info().Int64("payment_id", p.id).Str("order_id", p.orderID).Int64("amount", p.amount).Msg("payment initialized")

	return gateway.InitResponse{
		Response:  ok(),
		PaymentID: p.id,
		Status:    p.status.String(),
		Amount:    p.amount,
		OrderID:   p.orderID,
	}
}

// FinishAuthorize charges the payment with the given source.
func (s *GatewayService) FinishAuthorize(_ context.Context, req gateway.FinishAuthorizeRequest) gateway.FinishAuthorizeResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, errResp := s.lookupLocked(req.PaymentID)
	if errResp != nil {
		return gateway.FinishAuthorizeResponse{Response: *errResp, PaymentID: req.PaymentID}
	}
	if p.status != status.New {
		return gateway.FinishAuthorizeResponse{
			Response:  failed(gateway.ErrorCodeInvalidState, "payment is not awaiting authorization", "status "+p.status.String()),
			PaymentID: p.id,
			Status:    p.status.String(),
		}
	}

	resp := gateway.FinishAuthorizeResponse{Response: ok(), PaymentID: p.id}

	switch {
	case req.PaymentMethod == gateway.PaymentMethodSBP:
		p.status = status.FormShowed
		resp.RedirectURL = fmt.Sprintf("%s/qr/%d", s.cfg.PublicURL, p.id)

	case req.CardData != nil:
		switch {
		case gateway.Declines(req.CardData.PAN):
			p.status = status.Rejected
		case gateway.RequiresThreeDs(req.CardData.PAN):
			p.status = status.ThreeDsChecking
			p.md = uuid.NewString()
			resp.ACSURL = s.cfg.PublicURL + "/acs"
			resp.MD = p.md
			resp.PaReq = strconv.FormatInt(p.id, 10)
			resp.TermURL = s.cfg.PublicURL + "/term"
			resp.ThreeDSVersion = "2.1.0"
		default:
			p.status = status.Authorizing
		}
		p.cardID = "card-" + req.CardData.PAN[len(req.CardData.PAN)-4:]

	case req.CardID != "" || req.RebillID != "":
		if req.RebillID != "" && req.CVV == "" {
			resp.Response = failed(gateway.ErrorCodeCvcRequired, "CVC is required", "")
			return resp
		}
		p.status = status.Authorizing
		p.cardID = req.CardID
		p.rebillID = req.RebillID

	default:
		resp.Response = failed(gateway.ErrorCodeBadRequest, "payment source is missing", "")
		return resp
	}

	resp.Status = p.status.String()
	resp.CardID = p.cardID
	resp.RebillID = p.rebillID

	s.logger.Info().Int64("payment_id", p.id).Str("status", resp.Status).Msg("payment authorization requested")
	return resp
}

// GetState reports the payment status. Pending payments advance to
// CONFIRMED after the configured number of polls.
func (s *GatewayService) GetState(_ context.Context, req gateway.GetStateRequest) gateway.GetStateResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, errResp := s.lookupLocked(req.PaymentID)
	if errResp != nil {
		return gateway.GetStateResponse{Response: *errResp, PaymentID: req.PaymentID}
	}

	if p.status.IsInProgress() && p.status != status.New && p.status != status.ThreeDsChecking {
		p.polls++
		if p.polls >= s.cfg.PollsUntilConfirmed {
			p.status = status.Confirmed
			s.logger.Info().Int64("payment_id", p.id).Int("polls", p.polls).Msg("payment confirmed")
		}
	}

	return gateway.GetStateResponse{Response: ok(), PaymentID: p.id, Status: p.status.String()}
}

// Submit3DS completes a 3-D Secure challenge. A PaRes of "fail" declines
// the payment.
func (s *GatewayService) Submit3DS(_ context.Context, req gateway.Submit3DSRequest) gateway.Submit3DSResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, errResp := s.lookupLocked(req.PaymentID)
	if errResp != nil {
		return gateway.Submit3DSResponse{Response: *errResp, PaymentID: req.PaymentID}
	}
	if p.status != status.ThreeDsChecking {
		return gateway.Submit3DSResponse{
			Response:  failed(gateway.ErrorCodeInvalidState, "payment is not awaiting 3-D Secure", "status "+p.status.String()),
			PaymentID: p.id,
			Status:    p.status.String(),
		}
	}
	if req.MD != p.md {
		return gateway.Submit3DSResponse{
			Response:  failed(gateway.ErrorCodeBadRequest, "MD does not match", ""),
			PaymentID: p.id,
			Status:    p.status.String(),
		}
	}

	if req.PaRes == gateway.FailedStepUpPaRes {
		p.status = status.Rejected
	} else {
		p.status = status.Confirmed
	}

	s.logger.Info().Int64("payment_id", p.id).Str("status", p.status.String()).Msg("3-D Secure completed")

	return gateway.Submit3DSResponse{
		Response:  ok(),
		PaymentID: p.id,
		Status:    p.status.String(),
		CardID:    p.cardID,
		RebillID:  p.rebillID,
	}
}

// Count returns the number of known payments.
func (s *GatewayService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func (s *GatewayService) lookupLocked(id int64) (*simulatedPayment, *gateway.Response) {
	p, found := s.payments[id]
	if !found {
		resp := failed(gateway.ErrorCodeNotFound, "payment not found", fmt.Sprintf("PaymentId %d", id))
		return nil, &resp
	}
	return p, nil
}

func ok() gateway.Response {
	return gateway.Response{Success: true, ErrorCode: gateway.ErrorCodeNone}
}

func failed(code, message, details string) gateway.Response {
	return gateway.Response{ErrorCode: code, Message: message, Details: details}
}
