package gateway

// Wire types of the acquiring gateway API. All endpoints take and return
// JSON over POST.

const (
	PathInit            = "/v2/Init"
	PathFinishAuthorize = "/v2/FinishAuthorize"
	PathGetState        = "/v2/GetState"
	PathSubmit3DS       = "/v2/Submit3DSAuthorization"
)

// Gateway error codes. ErrorCodeCvcRequired is returned by FinishAuthorize
// when a stored card can only be charged after the customer re-enters its CVC.
const (
	ErrorCodeNone         = "0"
	ErrorCodeBadRequest   = "9"
	ErrorCodeNotFound     = "7"
	ErrorCodeInvalidState = "8"
	ErrorCodeCvcRequired  = "104"
)

// PaymentMethodSBP selects the fast payment system redirect flow.
const PaymentMethodSBP = "SBP"

type Response struct {
	Success   bool   `json:"Success"`
	ErrorCode string `json:"ErrorCode"`
	Message   string `json:"Message,omitempty"`
	Details   string `json:"Details,omitempty"`
}

type InitRequest struct {
	TerminalKey string `json:"TerminalKey"`
	Amount      int64  `json:"Amount" validate:"gt=0"`
	Currency    string `json:"Currency,omitempty" validate:"omitempty,len=3"`
	OrderID     string `json:"OrderId" validate:"required,max=50"`
	Description string `json:"Description,omitempty" validate:"max=250"`
	CustomerKey string `json:"CustomerKey,omitempty"`
	Recurrent   string `json:"Recurrent,omitempty"`
}

type InitResponse struct {
	Response
	PaymentID int64  `json:"PaymentId,string"`
	Status    string `json:"Status"`
	Amount    int64  `json:"Amount"`
	OrderID   string `json:"OrderId"`
}

type CardData struct {
	PAN     string `json:"PAN" validate:"required,numeric,min=13,max=19"`
	ExpDate string `json:"ExpDate" validate:"required,numeric,len=4"`
	CVV     string `json:"CVV" validate:"required,numeric,min=3,max=4"`
}

type FinishAuthorizeRequest struct {
	TerminalKey   string    `json:"TerminalKey"`
	PaymentID     int64     `json:"PaymentId,string" validate:"gt=0"`
	CardData      *CardData `json:"CardData,omitempty"`
	CardID        string    `json:"CardId,omitempty"`
	RebillID      string    `json:"RebillId,omitempty"`
	CVV           string    `json:"CVV,omitempty"`
	PaymentMethod string    `json:"PaymentMethod,omitempty"`
	InfoEmail     string    `json:"InfoEmail,omitempty"`
	SendEmail     bool      `json:"SendEmail,omitempty"`
}

type FinishAuthorizeResponse struct {
	Response
	PaymentID      int64  `json:"PaymentId,string"`
	Status         string `json:"Status"`
	CardID         string `json:"CardId,omitempty"`
	RebillID       string `json:"RebillId,omitempty"`
	ACSURL         string `json:"ACSUrl,omitempty"`
	MD             string `json:"MD,omitempty"`
	PaReq          string `json:"PaReq,omitempty"`
	TermURL        string `json:"TermUrl,omitempty"`
	ThreeDSVersion string `json:"Version,omitempty"`
	RedirectURL    string `json:"RedirectUrl,omitempty"`
}

type GetStateRequest struct {
	TerminalKey string `json:"TerminalKey"`
	PaymentID   int64  `json:"PaymentId,string" validate:"gt=0"`
}

type GetStateResponse struct {
	Response
	PaymentID int64  `json:"PaymentId,string"`
	Status    string `json:"Status"`
}

type Submit3DSRequest struct {
	TerminalKey string `json:"TerminalKey"`
	PaymentID   int64  `json:"PaymentId,string" validate:"gt=0"`
	MD          string `json:"MD" validate:"required"`
	PaRes       string `json:"PaRes" validate:"required"`
}

type Submit3DSResponse struct {
	Response
	PaymentID int64  `json:"PaymentId,string"`
	Status    string `json:"Status"`
	CardID    string `json:"CardId,omitempty"`
	RebillID  string `json:"RebillId,omitempty"`
}
