package handlers

import (
	"context"
	"net/http"

	"github.com/safecircle/server/internal/model"
)

// OTPService is the account verification flow used by AuthHandler
type OTPService interface {
	RequestOTP(ctx context.Context, email, name, phone string) (string, error)
	VerifyOTP(ctx context.Context, email, code string) (model.Account, error)
}

// AuthHandler handles OTP endpoints
type AuthHandler struct {
	svc     OTPService
	devMode bool
}

// NewAuthHandler creates a new auth handler. In dev mode the issued code is
// echoed in the response.
func NewAuthHandler(svc OTPService, devMode bool) *AuthHandler {
	return &AuthHandler{svc: svc, devMode: devMode}
}

type requestOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
	Phone string `json:"phone" validate:"required"`
}

type requestOTPResponse struct {
	Detail string `json:"detail"`
	DevOTP string `json:"dev_otp,omitempty"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

type verifyOTPResponse struct {
	Detail string `json:"detail"`
	UserID int64  `json:"user_id"`
}

// HandleRequestOTP handles POST /auth/request-otp
func (h *AuthHandler) HandleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req requestOTPRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	code, err := h.svc.RequestOTP(r.Context(), req.Email, req.Name, req.Phone)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	resp := requestOTPResponse{Detail: "OTP sent"}
	if h.devMode {
		resp.DevOTP = code
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// HandleVerifyOTP handles POST /auth/verify-otp
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.svc.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, verifyOTPResponse{Detail: "verified", UserID: account.ID})
}
