package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"clinic-auth/internal/dto/request"
	"clinic-auth/internal/usecase"
	"clinic-auth/pkg/utils"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

type AuthHandler struct {
	service usecase.AuthService
	log     *zap.Logger
}

func NewAuthHandler(service usecase.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		log:     log.With(zap.String("handler", "auth")),
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	response, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "register")
		return
	}

	utils.ResponseCreated(w, "Registration successful. Enter the verification code we sent you.", response)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), &req, clientMeta(r))
	if err != nil {
		h.handleServiceError(w, err, "login")
		return
	}

	if result.Unverified != nil {
		utils.ResponseAccepted(w, "Account not verified. Enter the verification code.", result.Unverified)
		return
	}

	utils.ResponseSuccess(w, "Login successful", result.Session)
}

// VerifyOTP handles POST /api/auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyOTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	response, err := h.service.VerifyOTP(r.Context(), &req, clientMeta(r))
	if err != nil {
		h.handleServiceError(w, err, "verify OTP")
		return
	}

	utils.ResponseSuccess(w, "Account verified", response)
}

// ResendOTP handles POST /api/auth/resend-otp
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req request.ResendOTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	response, err := h.service.ResendOTP(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "resend OTP")
		return
	}

	utils.ResponseSuccess(w, "Verification code sent", response)
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req request.RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", nil, validationErrors)
		return
	}

	response, err := h.service.RefreshSession(r.Context(), req.RefreshToken, clientMeta(r))
	if err != nil {
		h.handleServiceError(w, err, "refresh")
		return
	}

	utils.ResponseSuccess(w, "Session refreshed", response)
}

// Logout handles POST /api/auth/logout. It always succeeds so clients can
// clear local state unconditionally.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req request.RefreshRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Debug("Ignoring malformed logout body", zap.Error(err))
	}

	if req.RefreshToken != "" {
		h.service.Logout(r.Context(), req.RefreshToken)
	}

	utils.ResponseSuccess(w, "Logout successful", nil)
}

// handleServiceError handles different types of errors
func (h *AuthHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	respondServiceError(w, h.log, err, operation)
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// clientMeta collects what is recorded on the session row. RemoteAddr is
// already rewritten by chi's RealIP.
func clientMeta(r *http.Request) usecase.ClientMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return usecase.ClientMeta{
		DeviceID:  r.Header.Get("X-Device-ID"),
		UserAgent: r.UserAgent(),
		IPAddress: ip,
	}
}
