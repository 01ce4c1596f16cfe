package entity

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	FirstName        string `json:"first_name" validate:"required"`
	OrganizationName string `json:"organization_name,omitempty"`
}

// TokenPair is the bearer pair issued on login and refresh.
// Refresh may be empty on refresh responses when the backend does not rotate it.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,nefield=OldPassword"`
}
