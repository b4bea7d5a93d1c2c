// Package gateway talks to the acquiring gateway over HTTP.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	domainerrors "github.com/cassiomorais/acquiring/internal/domain/errors"
	"github.com/cassiomorais/acquiring/internal/domain/payment"
	"github.com/cassiomorais/acquiring/internal/domain/status"
	"github.com/cassiomorais/acquiring/internal/infrastructure/config"
	"github.com/cassiomorais/acquiring/internal/infrastructure/observability"
	"github.com/cassiomorais/acquiring/pkg/retry"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const breakerName = "acquiring-gateway"

// Client implements the process Gateway and StepUpConfirmer ports.
type Client struct {
	http        *resty.Client
	terminalKey string
	breaker     *gobreaker.CircuitBreaker[*resty.Response]
	retry       retry.Config
	retryOpts   []retry.Option
	logger      zerolog.Logger
	metrics     *observability.Metrics
}

type Option func(*Client)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the underlying HTTP client, keeping base URL and
// timeout from the config.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc).
			SetBaseURL(c.http.BaseURL).
			SetTimeout(hc.Timeout).
			SetHeader("Content-Type", "application/json")
	}
}

// WithRetryOptions adds options to every GetState retry loop.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(c *Client) { c.retryOpts = append(c.retryOpts, opts...) }
}

func NewClient(cfg config.GatewayConfig, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetHeader("Content-Type", "application/json"),
		terminalKey: cfg.TerminalKey,
		retry: retry.Config{
			MaxAttempts:  max(cfg.MaxAttempts, 1),
			InitialDelay: cfg.RetryDelay,
			MaxDelay:     10 * cfg.RetryDelay,
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	threshold := uint32(max(cfg.CircuitBreakerThreshold, 1))
	c.breaker = gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.CircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			c.metrics.BreakerState(name, float64(to))
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
	c.metrics.BreakerState(breakerName, float64(gobreaker.StateClosed))
	return c
}

// SubmitPayment registers the order with Init and authorizes it with the
// given source. The gateway answer is mapped onto a Submission.
func (c *Client) SubmitPayment(ctx context.Context, src payment.Source, opts payment.Options) (payment.Submission, error) {
	initReq := InitRequest{
		TerminalKey: c.terminalKey,
		Amount:      opts.Amount.ValueCents,
		Currency:    opts.Amount.Currency,
		OrderID:     opts.OrderID,
		Description: opts.Description,
		CustomerKey: opts.CustomerKey,
	}
	if card, ok := src.(payment.AttachedCard); ok && card.Recurrent() {
		initReq.Recurrent = "Y"
	}

	var initResp InitResponse
	if err := c.call(ctx, "init", PathInit, initReq, &initResp); err != nil {
		return payment.Submission{}, err
	}
	if !initResp.Success {
		return payment.Submission{}, gatewayError("init", initResp.Response)
	}

	finishReq := FinishAuthorizeRequest{
		TerminalKey: c.terminalKey,
		PaymentID:   initResp.PaymentID,
	}
	switch s := src.(type) {
	case payment.CardData:
		finishReq.CardData = &CardData{PAN: s.PAN, ExpDate: s.Expiry, CVV: s.CVC}
	case payment.AttachedCard:
		finishReq.CardID = s.CardID
		finishReq.RebillID = s.RebillID
		finishReq.CVV = s.CVC
	case payment.Redirect:
		finishReq.PaymentMethod = PaymentMethodSBP
	}

	var finishResp FinishAuthorizeResponse
	if err := c.call(ctx, "finish_authorize", PathFinishAuthorize, finishReq, &finishResp); err != nil {
		return payment.Submission{}, err
	}
	return submissionFrom(src, initResp.PaymentID, finishResp)
}

// GetStatus reads the payment status. The call is idempotent and retried on
// transport failures.
func (c *Client) GetStatus(ctx context.Context, paymentID int64) (status.ResponseStatus, error) {
	req := GetStateRequest{TerminalKey: c.terminalKey, PaymentID: paymentID}

	opts := append([]retry.Option{
		retry.If(func(err error) bool {
			return errors.Is(err, domainerrors.ErrTransport) && !domainerrors.IsCancelled(err)
		}),
		retry.OnRetry(func(attempt uint, err error) {
			c.logger.Debug().Err(err).Uint("attempt", attempt+1).Int64("payment_id", paymentID).Msg("retrying get state")
		}),
	}, c.retryOpts...)

	return retry.DoWithResult(ctx, c.retry, func() (status.ResponseStatus, error) {
		var resp GetStateResponse
		if err := c.call(ctx, "get_state", PathGetState, req, &resp); err != nil {
			return status.None, err
		}
		if !resp.Success {
			return status.None, gatewayError("get_state", resp.Response)
		}
		return status.Parse(resp.Status), nil
	}, opts...)
}

// ConfirmStepUp completes a 3-D Secure challenge with the PaRes returned by
// the issuer page. A challenge without one is refused before any call.
func (c *Client) ConfirmStepUp(ctx context.Context, ch payment.Challenge) (payment.Result, error) {
	if ch.PaRes == "" {
		return payment.Result{}, domainerrors.NewValidationError("PaRes", "issuer response is required")
	}
	req := Submit3DSRequest{
		TerminalKey: c.terminalKey,
		PaymentID:   ch.PaymentID,
		MD:          ch.MD,
		PaRes:       ch.PaRes,
	}

	var resp Submit3DSResponse
	if err := c.call(ctx, "submit_3ds", PathSubmit3DS, req, &resp); err != nil {
		return payment.Result{}, err
	}
	if !resp.Success {
		return payment.Result{}, gatewayError("submit_3ds", resp.Response)
	}

	st := status.Parse(resp.Status)
	switch st.Classify() {
	case status.ClassSuccess:
		return payment.Result{PaymentID: ch.PaymentID, CardID: resp.CardID, RebillID: resp.RebillID}, nil
	case status.ClassDeadlineExpired:
		return payment.Result{}, domainerrors.NewTimeoutError(ch.PaymentID, &st)
	default:
		return payment.Result{}, domainerrors.NewRejectedError(ch.PaymentID)
	}
}

// call posts body to path through the circuit breaker and decodes the JSON
// answer into out. Every failure is returned as a TransportError.
func (c *Client) call(ctx context.Context, op, path string, body, out any) error {
	start := time.Now()

	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		r, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			Post(path)
		if err != nil {
			return nil, err
		}
		if r.StatusCode() >= http.StatusInternalServerError {
			return r, fmt.Errorf("gateway returned %s", r.Status())
		}
		return r, nil
	})

	result := "success"
	defer func() {
		c.metrics.GatewayRequest(op, result, time.Since(start).Seconds())
	}()

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "breaker_open"
		return domainerrors.NewTransportError(op, fmt.Errorf("%w: %w", domainerrors.ErrGatewayUnavailable, err))
	case err != nil:
		result = "error"
		c.logger.Warn().Err(err).Str("op", op).Msg("gateway call failed")
		return domainerrors.NewTransportError(op, err)
	}

	if resp.StatusCode() != http.StatusOK {
		result = "bad_status"
		return domainerrors.NewTransportError(op, fmt.Errorf("unexpected status %s", resp.Status()))
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		result = "decode_error"
		return domainerrors.NewTransportError(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func submissionFrom(src payment.Source, paymentID int64, resp FinishAuthorizeResponse) (payment.Submission, error) {
	id := resp.PaymentID
	if id == 0 {
		id = paymentID
	}
	sub := payment.Submission{
		PaymentID: id,
		Status:    status.Parse(resp.Status),
		Action:    payment.ActionNone,
		Result:    payment.Result{PaymentID: id, CardID: resp.CardID, RebillID: resp.RebillID},
	}

	if !resp.Success {
		if resp.ErrorCode == ErrorCodeCvcRequired {
			sub.Action = payment.ActionCvc
			if card, ok := src.(payment.AttachedCard); ok {
				sub.Card = card
			}
			return sub, nil
		}
		return payment.Submission{}, gatewayError("finish_authorize", resp.Response)
	}

	switch {
	case sub.Status == status.ThreeDsChecking && resp.ACSURL != "":
		sub.Action = payment.ActionThreeDs
		sub.Challenge = payment.Challenge{
			PaymentID: id,
			ACSURL:    resp.ACSURL,
			MD:        resp.MD,
			PaReq:     resp.PaReq,
			TermURL:   resp.TermURL,
			Version:   resp.ThreeDSVersion,
		}
	case resp.RedirectURL != "":
		sub.Action = payment.ActionRedirect
		sub.RedirectURL = resp.RedirectURL
	}
	return sub, nil
}

// gatewayError reports a request the gateway processed and refused.
func gatewayError(op string, resp Response) error {
	msg := resp.Message
	if msg == "" {
		msg = "gateway refused " + op
	}
	if resp.Details != "" {
		msg += ": " + resp.Details
	}
	return domainerrors.NewDomainError("gateway_"+resp.ErrorCode, msg, domainerrors.ErrPaymentRejected)
}
