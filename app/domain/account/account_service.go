package account

import (
	"context"
	"fmt"
	"time"

	"careertrack.dev/careertrack-go/app/domain/forms"
	"careertrack.dev/careertrack-go/app/domain/session"
	"careertrack.dev/careertrack-go/app/infrastructure/apiclient"
	"careertrack.dev/careertrack-go/app/infrastructure/cache"
)

const basePath = "/api/v1/account"

type Profile struct {
	ID               uint      `json:"id"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name"`
	Headline         string    `json:"headline,omitempty"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	OTPCode  string `json:"otp_code,omitempty" validate:"omitempty,len=6,numeric"`
}

type ProfileInput struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Headline string `json:"headline,omitempty" validate:"max=300"`
}

type PasswordInput struct {
	Current string `json:"current_password" validate:"required"`
	New     string `json:"new_password" validate:"required,min=10,max=128"`
	Confirm string `json:"confirm_password" validate:"required,eqfield=New"`
}

// TwoFactorSetup is the backend's response to starting the 2FA wizard. The
// secret and provisioning URI come from the backend's TOTP implementation;
// the client only relays them to the authenticator app.
type TwoFactorSetup struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

type TwoFactorConfirmInput struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// RecoveryCodes is issued once when 2FA is confirmed; never cached.
type RecoveryCodes struct {
	Codes []string `json:"codes"`
}

type Service struct {
	api     *apiclient.Client
	store   *cache.Store
	session *session.Session
}

func NewService(api *apiclient.Client, store *cache.Store, sess *session.Session) *Service {
	return &Service{
		api:     api,
		store:   store,
		session: sess,
	}
}

// Login exchanges credentials for a token pair and installs it on the
// session. Accounts with 2FA enabled must supply the OTP code.
func (s *Service) Login(ctx context.Context, input LoginInput) error {
	if err := forms.Check(input); err != nil {
		return err
	}
	var tokens session.Tokens
	if err := s.api.Post(ctx, "/api/v1/auth/login", input, &tokens); err != nil {
		return err
	}
	return s.session.SetTokens(tokens)
}

// Logout tears the session down and drops every cached entry, since all of
// it belonged to the authenticated user.
func (s *Service) Logout() {
	s.session.Teardown()
	s.store.Close()
}

func (s *Service) Profile(ctx context.Context) cache.Entry {
	key := cache.ProfileKey()
	s.store.Register(key, s.profileLoader())
	return s.store.Get(ctx, key)
}

func (s *Service) ProfileNow(ctx context.Context) (Profile, error) {
	key := cache.ProfileKey()
	s.store.Register(key, s.profileLoader())
	entry, err := s.store.Fetch(ctx, key)
	if err != nil {
		return Profile{}, err
	}
	profile, ok := entry.Data.(Profile)
	if !ok {
		return Profile{}, fmt.Errorf("account: unexpected cache data for %s", key)
	}
	return profile, nil
}

func (s *Service) profileLoader() cache.Loader {
	return func(ctx context.Context) (any, error) {
		var profile Profile
		if err := s.api.Get(ctx, basePath+"/profile", nil, &profile); err != nil {
			return nil, err
		}
		return profile, nil
	}
}

func (s *Service) UpdateProfile(ctx context.Context, input ProfileInput) (Profile, error) {
	if err := forms.Check(input); err != nil {
		return Profile{}, err
	}
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			var updated Profile
			if err := s.api.Put(ctx, basePath+"/profile", input, &updated); err != nil {
				return nil, err
			}
			return updated, nil
		},
		Invalidate: profileInvalidation(),
	}
	result, err := cache.NewMutation(s.store).Execute(ctx, op)
	if err != nil {
		return Profile{}, err
	}
	updated, _ := result.(Profile)
	return updated, nil
}

func (s *Service) ChangePassword(ctx context.Context, input PasswordInput) error {
	if err := forms.Check(input); err != nil {
		return err
	}
	return s.api.Post(ctx, basePath+"/password", input, nil)
}

// BeginTwoFactorSetup starts the 2FA wizard. The response is returned
// directly, never cached: the secret must not outlive the wizard.
func (s *Service) BeginTwoFactorSetup(ctx context.Context) (TwoFactorSetup, error) {
	var setup TwoFactorSetup
	if err := s.api.Post(ctx, basePath+"/2fa/setup", nil, &setup); err != nil {
		return TwoFactorSetup{}, err
	}
	return setup, nil
}

// ConfirmTwoFactor completes the wizard with a code from the authenticator
// app and returns the one-time recovery codes.
func (s *Service) ConfirmTwoFactor(ctx context.Context, input TwoFactorConfirmInput) (RecoveryCodes, error) {
	if err := forms.Check(input); err != nil {
		return RecoveryCodes{}, err
	}
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			var codes RecoveryCodes
			if err := s.api.Post(ctx, basePath+"/2fa/confirm", input, &codes); err != nil {
				return nil, err
			}
			return codes, nil
		},
		Invalidate: profileInvalidation(),
	}
	result, err := cache.NewMutation(s.store).Execute(ctx, op)
	if err != nil {
		return RecoveryCodes{}, err
	}
	codes, _ := result.(RecoveryCodes)
	return codes, nil
}

func (s *Service) DisableTwoFactor(ctx context.Context, input TwoFactorConfirmInput) error {
	if err := forms.Check(input); err != nil {
		return err
	}
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			return nil, s.api.Post(ctx, basePath+"/2fa/disable", input, nil)
		},
		Invalidate: profileInvalidation(),
	}
	_, err := cache.NewMutation(s.store).Execute(ctx, op)
	return err
}

func profileInvalidation() []cache.Pattern {
	return []cache.Pattern{cache.ResourcePattern(cache.ProfileResource)}
}
