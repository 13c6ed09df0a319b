// Package service implements TOTP two-factor enrollment and verification with
// encrypted secrets and single-use recovery codes.
package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"authcore/internal/security"
	"authcore/internal/twofactor/domain"
	"authcore/internal/twofactor/repository"
)

// totpSkew is the accepted clock drift in 30s time steps on either side.
const totpSkew = 2

// Sentinel errors for two-factor flows.
var (
	ErrNotEnrolled         = errors.New("two-factor not enrolled")
	ErrInvalidCode         = errors.New("invalid two-factor code")
	ErrRecoveryCodeInvalid = errors.New("invalid recovery code")
)

const recoveryCodeCount = 8

// Service owns two-factor credentials.
type Service struct {
	repo   repository.Repository
	enc    *security.Encryptor
	issuer string
}

// NewService returns a two-factor Service. issuer labels otpauth:// URIs.
func NewService(repo repository.Repository, enc *security.Encryptor, issuer string) *Service {
	return &Service{repo: repo, enc: enc, issuer: issuer}
}

// GenerateSecret creates a fresh random base32 TOTP secret for the account
// and returns it with its otpauth:// provisioning URI. Nothing is persisted
// until Enable confirms the user's authenticator works.
func (s *Service) GenerateSecret(account string) (secret, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: account,
	})
	if err != nil {
		return "", "", fmt.Errorf("twofactor: generate secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// QRCodePNG renders the provisioning URI as a PNG QR code.
func (s *Service) QRCodePNG(uri string) ([]byte, error) {
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return nil, fmt.Errorf("twofactor: parse uri: %w", err)
	}
	img, err := key.Image(256, 256)
	if err != nil {
		return nil, fmt.Errorf("twofactor: render qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("twofactor: encode qr: %w", err)
	}
	return buf.Bytes(), nil
}

// VerifyTOTP checks code against secret with the configured drift tolerance.
// A code that is not exactly six digits fails fast without any HMAC work.
func (s *Service) VerifyTOTP(secret, code string) bool {
	return s.verifyTOTPAt(secret, code, time.Now().UTC())
}

func (s *Service) verifyTOTPAt(secret, code string, at time.Time) bool {
	if !isSixDigits(code) {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func isSixDigits(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// Enable turns on two-factor for the user after proving the presented secret
// works. It stores the secret and a fresh set of recovery codes encrypted,
// and returns the recovery codes in plaintext exactly once; they are never
// retrievable in plaintext again without a step-up verification.
func (s *Service) Enable(ctx context.Context, userID, secret, code string) ([]string, error) {
	if !s.VerifyTOTP(secret, code) {
		return nil, ErrInvalidCode
	}

	plaintextCodes, stored, err := s.newRecoveryCodes()
	if err != nil {
		return nil, err
	}
	encSecret, err := s.enc.Encrypt(secret)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cred := &domain.Credential{
		UserID:          userID,
		EncryptedSecret: encSecret,
		Enabled:         true,
		VerifiedAt:      &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.SaveEnrollment(ctx, cred, stored); err != nil {
		return nil, err
	}
	return plaintextCodes, nil
}

func (s *Service) newRecoveryCodes() ([]string, []domain.RecoveryCode, error) {
	plaintext := make([]string, 0, recoveryCodeCount)
	stored := make([]domain.RecoveryCode, 0, recoveryCodeCount)
	seen := make(map[string]bool, recoveryCodeCount)
	for len(plaintext) < recoveryCodeCount {
		code, err := newRecoveryCode()
		if err != nil {
			return nil, nil, err
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		encCode, err := s.enc.Encrypt(code)
		if err != nil {
			return nil, nil, err
		}
		plaintext = append(plaintext, code)
		stored = append(stored, domain.RecoveryCode{
			CodeHash:      security.HashSecret(code),
			EncryptedCode: encCode,
		})
	}
	return plaintext, stored, nil
}

// newRecoveryCode returns a fresh code in the XXXX-XXXX-XXXX-XXXX hex format.
func newRecoveryCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	h := strings.ToUpper(hex.EncodeToString(b))
	return h[0:4] + "-" + h[4:8] + "-" + h[8:12] + "-" + h[12:16], nil
}

// IsEnabled reports whether the user has two-factor turned on.
func (s *Service) IsEnabled(ctx context.Context, userID string) (bool, error) {
	cred, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	return cred != nil && cred.Enabled, nil
}

// Verify checks a login code: TOTP first, then the stored recovery codes.
// A matched recovery code is consumed atomically: it can never match twice,
// even under concurrent verification attempts.
func (s *Service) Verify(ctx context.Context, userID, code string) error {
	cred, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if cred == nil || !cred.Enabled {
		return ErrNotEnrolled
	}

	code = strings.TrimSpace(code)
	if isSixDigits(code) {
		secret, err := s.enc.Decrypt(cred.EncryptedSecret)
		if err != nil {
			return err
		}
		if s.VerifyTOTP(secret, code) {
			return nil
		}
		return ErrInvalidCode
	}

	consumed, err := s.repo.ConsumeRecoveryCode(ctx, userID, security.HashSecret(normalizeRecoveryCode(code)))
	if err != nil {
		return err
	}
	if !consumed {
		return ErrRecoveryCodeInvalid
	}
	return nil
}

func normalizeRecoveryCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Disable turns two-factor off. The caller must present a fresh valid code
// (TOTP or recovery) first: step-up re-authentication before the destructive
// action.
func (s *Service) Disable(ctx context.Context, userID, code string) error {
	if err := s.Verify(ctx, userID, code); err != nil {
		return err
	}
	return s.repo.Delete(ctx, userID)
}

// RecoveryCodes returns the user's remaining recovery codes in plaintext.
// Step-up: requires a fresh successful Verify with the presented code.
func (s *Service) RecoveryCodes(ctx context.Context, userID, code string) ([]string, error) {
	if err := s.Verify(ctx, userID, code); err != nil {
		return nil, err
	}
	stored, err := s.repo.ListRecoveryCodes(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(stored))
	for _, c := range stored {
		plain, err := s.enc.Decrypt(c.EncryptedCode)
		if err != nil {
			return nil, err
		}
		out = append(out, plain)
	}
	return out, nil
}
