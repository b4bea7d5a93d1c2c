package controller

import (
	"net/http"

	"github.com/cassiomorais/acquiring/internal/infrastructure/gateway"
	"github.com/cassiomorais/acquiring/internal/service"
)

// GatewayController serves the acquiring gateway API.
type GatewayController struct {
	gatewayService *service.GatewayService
}

// NewGatewayController creates a new GatewayController.
func NewGatewayController(gatewayService *service.GatewayService) *GatewayController {
	return &GatewayController{gatewayService: gatewayService}
}

// Init handles POST /v2/Init
func (h *GatewayController) Init(w http.ResponseWriter, r *http.Request) {
	var req gateway.InitRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.gatewayService.Init(r.Context(), req))
}

// FinishAuthorize handles POST /v2/FinishAuthorize
func (h *GatewayController) FinishAuthorize(w http.ResponseWriter, r *http.Request) {
	var req gateway.FinishAuthorizeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.gatewayService.FinishAuthorize(r.Context(), req))
}

// GetState handles POST /v2/GetState
func (h *GatewayController) GetState(w http.ResponseWriter, r *http.Request) {
	var req gateway.GetStateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.gatewayService.GetState(r.Context(), req))
}

// Submit3DS handles POST /v2/Submit3DSAuthorization
func (h *GatewayController) Submit3DS(w http.ResponseWriter, r *http.Request) {
	var req gateway.Submit3DSRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.gatewayService.Submit3DS(r.Context(), req))
}
