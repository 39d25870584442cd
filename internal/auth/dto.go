package auth

import (
	errors "github.com/frahmantamala/agent-management/internal"
	"github.com/frahmantamala/agent-management/internal/core/common/validation"
)

type LoginDTO struct {
	UsernameOrEmail string `json:"username_or_email"`
	Password        string `json:"password"`
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("username_or_email", d.UsernameOrEmail).Required()
	v.Field("password", d.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type RegisterDTO struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func (d RegisterDTO) Validate() error {
	if err := validation.ValidateUsername(d.Username); err != nil {
		return err
	}
	if err := validation.ValidateEmail(d.Email); err != nil {
		return err
	}
	if err := validation.ValidatePassword(d.Password); err != nil {
		return err
	}
	return nil
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d RefreshTokenDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("refresh_token", d.RefreshToken).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type ForgotPasswordDTO struct {
	Email string `json:"email"`
}

func (d ForgotPasswordDTO) Validate() error {
	return errOrNil(validation.ValidateEmail(d.Email))
}

type ResetPasswordDTO struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (d ResetPasswordDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("token", d.Token).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return errOrNil(validation.ValidatePassword(d.NewPassword))
}

func dtoValidatePassword(password string) error {
	return errOrNil(validation.ValidatePassword(password))
}

// errOrNil avoids returning a typed-nil *AppError as a non-nil error.
func errOrNil(err *errors.AppError) error {
	if err != nil {
		return err
	}
	return nil
}
