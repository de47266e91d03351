package users

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	autherrors "github.com/jrsteele09/go-otp-auth-server/internal/errors"
)

const otpSecretSize = 20 // bytes, 160 bits of base32 secret

// Enrollment is returned once at registration. The secret is handed to the
// caller so a provisioning QR code can be built; it is not retrievable via
// the API afterwards.
type Enrollment struct {
	Secret          string
	ProvisioningURI string
}

// CredentialService owns user identity, password hashes and the TOTP second
// factor. It is the authorization gate behind the password grant.
type CredentialService struct {
	repo    UserRepo
	issuer  string
	nowTime func() time.Time
}

type CredentialServiceOption func(*CredentialService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CredentialServiceOption {
	return func(cs *CredentialService) {
		cs.nowTime = nowFunc
	}
}

func NewCredentialService(repo UserRepo, issuer string, options ...CredentialServiceOption) (*CredentialService, error) {
	if repo == nil {
		return nil, errors.New("[NewCredentialService] user repo is required")
	}
	if issuer == "" {
		return nil, errors.New("[NewCredentialService] issuer is required")
	}

	cs := &CredentialService{
		repo:    repo,
		issuer:  issuer,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(cs)
	}
	return cs, nil
}

// Register creates a user with a freshly generated TOTP secret and
// OTPVerified=false. The returned enrollment carries the provisioning URI
// for the one-time setup QR code.
func (cs *CredentialService) Register(ctx context.Context, username, password string) (*Enrollment, error) {
	if username == "" || password == "" {
		return nil, errors.Wrap(autherrors.ErrInvalidInput, "[CredentialService.Register] username and password are required")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      cs.issuer,
		AccountName: username,
		SecretSize:  otpSecretSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[CredentialService.Register] totp.Generate")
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "[CredentialService.Register] HashPassword")
	}

	if err := cs.repo.Create(ctx, &User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		OTPSecret:    key.Secret(),
		OTPVerified:  false,
		CreatedAt:    cs.nowTime(),
	}); err != nil {
		return nil, errors.Wrap(err, "[CredentialService.Register] repo.Create")
	}

	return &Enrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// VerifyOTP checks a TOTP code against the user's stored secret, tolerating
// one time-step of clock skew in either direction. A match sets OTPVerified;
// this is the only path that can set the flag.
func (cs *CredentialService) VerifyOTP(ctx context.Context, username, code string) (bool, error) {
	user, err := cs.repo.GetByUsername(ctx, username)
	if err != nil {
		return false, errors.Wrap(err, "[CredentialService.VerifyOTP] GetByUsername")
	}

	valid, err := totp.ValidateCustom(code, user.OTPSecret, cs.nowTime(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !valid {
		return false, nil
	}

	if err := cs.repo.SetOTPVerified(ctx, username, true); err != nil {
		return false, errors.Wrap(err, "[CredentialService.VerifyOTP] SetOTPVerified")
	}
	return true, nil
}

// ProvisioningURI rebuilds the otpauth:// URI for an existing user, used to
// re-render the setup QR code.
func (cs *CredentialService) ProvisioningURI(ctx context.Context, username string) (string, error) {
	user, err := cs.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", errors.Wrap(err, "[CredentialService.ProvisioningURI] GetByUsername")
	}

	v := url.Values{}
	v.Set("secret", user.OTPSecret)
	v.Set("issuer", cs.issuer)
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + cs.issuer + ":" + username,
		RawQuery: v.Encode(),
	}
	return u.String(), nil
}

// Authenticate returns the user only when the username exists, the password
// matches AND the TOTP second factor has been verified. A correct password
// alone is insufficient: callers must treat nil as a generic grant failure
// without distinguishing which precondition failed.
func (cs *CredentialService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := cs.repo.GetByUsername(ctx, username)
	if err != nil {
		if autherrors.Is(err, autherrors.ErrUserNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "[CredentialService.Authenticate] GetByUsername")
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil
	}
	if !user.OTPVerified {
		return nil, nil
	}
	return user, nil
}
