package usecase

import (
	"strings"

	"clinic-auth/internal/data/entity"
	"clinic-auth/internal/dto/request"
	"clinic-auth/pkg/utils"
)

// ValidateRegistration normalizes a copy of req and checks every rule on it.
// The returned request is the one to persist.
func ValidateRegistration(req *request.RegisterRequest) (*request.RegisterRequest, error) {
	normalized := &request.RegisterRequest{
		FullName: strings.Join(strings.Fields(req.FullName), " "),
		Email:    NormalizeEmail(req.Email),
		Password: req.Password,
		Role:     strings.ToLower(strings.TrimSpace(req.Role)),
	}
	if normalized.Role == "" {
		normalized.Role = string(entity.RolePatient)
	}
	if req.Phone != nil {
		if phone := strings.TrimSpace(*req.Phone); phone != "" {
			normalized.Phone = &phone
		}
	}

	if errs := utils.ValidateStruct(normalized); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return normalized, nil
}

// ValidateLogin only checks the shape of the input. Password rules are never
// reported here so a login cannot reveal which rule a stored password follows.
func ValidateLogin(req *request.LoginRequest) (*request.LoginRequest, error) {
	normalized := &request.LoginRequest{
		Email:    NormalizeEmail(req.Email),
		Password: req.Password,
	}

	if errs := utils.ValidateStruct(normalized); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return normalized, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Destination is the landing path a client should navigate to after login.
func Destination(role entity.UserRole) string {
	if role == entity.RoleAdmin {
		return "/admin"
	}
	return "/dashboard"
}
