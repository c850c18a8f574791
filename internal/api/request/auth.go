package request

// Login holds the request body for a dashboard login.
type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfile holds the request body for updating the current user.
type UpdateProfile struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=1,max=255"`
	Password    *string `json:"password" validate:"omitempty,min=8"`
}
