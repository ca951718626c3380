package handler

import (
	"net/http"

	"vidiooh/internal/api/v1/dto"
	"vidiooh/internal/hardware"
	"vidiooh/internal/service"

	"github.com/rs/zerolog"
)

// CapabilityHandler reports host readiness for encode work. The low-spec
// flag is advisory only; requests are never blocked on it.
type CapabilityHandler struct {
	transcode service.TranscodeService
	logger    zerolog.Logger
}

// NewCapabilityHandler creates a new CapabilityHandler.
func NewCapabilityHandler(transcode service.TranscodeService, logger zerolog.Logger) *CapabilityHandler {
	return &CapabilityHandler{transcode: transcode, logger: logger}
}

// RegisterRoutes mounts capability routes. The endpoint carries no auth:
// it reports host facts, nothing account-specific.
func (h *CapabilityHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/capabilities", http.HandlerFunc(h.getCapabilities))
}

// getCapabilities godoc
// @Summary Get host capabilities
// @Description Reports the encode host's core count, the low-spec advisory, and codec runtime availability.
// @Tags capabilities
// @Produce json
// @Success 200 {object} dto.CapabilitiesResponseDTO
// @Router /capabilities [get]
func (h *CapabilityHandler) getCapabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	hw := hardware.Probe()
	resp := dto.CapabilitiesResponseDTO{
		CoreCount:  hw.CoreCount,
		LowSpec:    hw.LowSpec,
		CodecReady: true,
	}
	if err := h.transcode.Verify(); err != nil {
		resp.CodecReady = false
		resp.CodecMessage = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
