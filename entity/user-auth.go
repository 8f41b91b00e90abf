package entity

// UserAuth is the signed-in dashboard user taken from a verified token.
type UserAuth struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Token    string `json:"-" validate:"required,min=1"`
}
