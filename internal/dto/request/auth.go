package request

type RegisterRequest struct {
	FullName string  `json:"full_name" validate:"required,min=2,max=100,fullname"`
	Email    string  `json:"email" validate:"required,email,max=254"`
	Password string  `json:"password" validate:"required,min=8,bcryptlen,strongpassword"`
	Role     string  `json:"role" validate:"required,oneof=patient doctor admin"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,e164"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Code   string `json:"code" validate:"required,numeric,min=4,max=10"`
}

type ResendOTPRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// RefreshRequest is used by both /refresh and /logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
