package handlers

import (
	"net/http"

	"github.com/wingopay/backend/internal/services"
)

type SettingsHandler struct {
	service   *services.SettingsService
	validator *services.ValidationHelper
}

func NewSettingsHandler(service *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GetPaymentInfo returns the deposit payment details for players
// @Summary Deposit payment info
// @Description UPI id and QR code players pay to before submitting a deposit request
// @Tags deposit
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.DepositInfo
// @Failure 500 {object} services.ErrorResponse
// @Router /deposit/payment-info [get]
func (h *SettingsHandler) GetPaymentInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.DepositInfo(r.Context())
	if err != nil {
		services.SendErrorResponse(w, "Failed to load payment info", http.StatusInternalServerError, nil)
		return
	}
	services.SendJSON(w, http.StatusOK, info)
}

// GetPaymentSettings returns the current settings for the admin panel
// @Summary Get payment settings
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.PaymentSettings
// @Failure 500 {object} services.ErrorResponse
// @Router /admin/payment-settings [get]
func (h *SettingsHandler) GetPaymentSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Get(r.Context())
	if err != nil {
		services.SendErrorResponse(w, "Failed to load payment settings", http.StatusInternalServerError, nil)
		return
	}
	services.SendJSON(w, http.StatusOK, settings)
}

// UpdatePaymentSettings overwrites the payment settings
// @Summary Update payment settings
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{upi_id=string,qr_code_url=string} true "Payment settings"
// @Success 200 {object} models.PaymentSettings
// @Failure 400 {object} services.ErrorResponse
// @Router /admin/payment-settings [put]
func (h *SettingsHandler) UpdatePaymentSettings(w http.ResponseWriter, r *http.Request) {
	adminID, _ := r.Context().Value("userID").(string)

	var req struct {
		UPIID     string `json:"upi_id" validate:"required,min=3,max=100"`
		QRCodeURL string `json:"qr_code_url" validate:"omitempty,url,max=500"`
	}
	if err := services.DecodeStrict(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	settings, err := h.service.Update(r.Context(), req.UPIID, req.QRCodeURL, adminID)
	if err != nil {
		services.SendErrorResponse(w, "Failed to update payment settings", http.StatusInternalServerError, nil)
		return
	}
	services.SendJSON(w, http.StatusOK, settings)
}
