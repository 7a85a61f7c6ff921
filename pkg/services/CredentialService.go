package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/adampresley/photoportfolio/pkg/models"
	"golang.org/x/crypto/argon2"
)

const (
	DefaultMaxFailedAttempts = 5
	DefaultLockoutDuration   = 30 * time.Second

	credentialScheme = "argon2id"
	saltLength       = 16
)

type CredentialServicer interface {
	Deauthorize()
	IsAuthorized() bool
	Prompt(ctx context.Context, editRequested bool) (models.Prompt, error)
	Provision(ctx context.Context, password string) error
	State(ctx context.Context) (models.GateState, error)
	Verify(ctx context.Context, password string) error
}

type CredentialServiceConfig struct {
	LockoutDuration   time.Duration
	MaxFailedAttempts int
	Now               func() time.Time
	RecordService     RecordServicer
}

/*
CredentialService guards owner editing. The password is stored as a
salted argon2id hash under the credential record. Authorization lives
only in memory and starts out false.
*/
type CredentialService struct {
	lockoutDuration   time.Duration
	maxFailedAttempts int
	now               func() time.Time
	records           RecordServicer
	session           *authSession
}

type authSession struct {
	mu             sync.Mutex
	authorized     bool
	failedAttempts int
	lockedUntil    time.Time
}

func NewCredentialService(config CredentialServiceConfig) CredentialService {
	if config.MaxFailedAttempts == 0 {
		config.MaxFailedAttempts = DefaultMaxFailedAttempts
	}

	if config.LockoutDuration <= 0 {
		config.LockoutDuration = DefaultLockoutDuration
	}

	if config.Now == nil {
		config.Now = time.Now
	}

	return CredentialService{
		lockoutDuration:   config.LockoutDuration,
		maxFailedAttempts: config.MaxFailedAttempts,
		now:               config.Now,
		records:           config.RecordService,
		session:           &authSession{},
	}
}

func (s CredentialService) IsAuthorized() bool {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	return s.session.authorized
}

func (s CredentialService) Deauthorize() {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	s.session.authorized = false
	slog.Info("owner signed out")
}

func (s CredentialService) State(ctx context.Context) (models.GateState, error) {
	var (
		err   error
		found bool
	)

	if _, found, err = s.records.Load(ctx, RecordKeyCredential); err != nil {
		return models.GateUnprovisioned, fmt.Errorf("error reading credential: %w", err)
	}

	if !found {
		return models.GateUnprovisioned, nil
	}

	if s.IsAuthorized() {
		return models.GateUnlocked, nil
	}

	return models.GateLocked, nil
}

/*
Prompt decides which form, if any, the owner should be shown. Nothing
is prompted unless editing was requested, and nothing is prompted once
the owner is signed in.
*/
func (s CredentialService) Prompt(ctx context.Context, editRequested bool) (models.Prompt, error) {
	var (
		err   error
		state models.GateState
	)

	if !editRequested {
		return models.PromptNone, nil
	}

	if state, err = s.State(ctx); err != nil {
		return models.PromptNone, err
	}

	switch state {
	case models.GateUnprovisioned:
		return models.PromptProvision, nil
	case models.GateLocked:
		return models.PromptVerify, nil
	}

	return models.PromptNone, nil
}

func (s CredentialService) Provision(ctx context.Context, password string) error {
	var (
		err     error
		found   bool
		encoded string
	)

	if utf8.RuneCountInString(password) < models.MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", models.ErrValidation, models.MinPasswordLength)
	}

	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	if _, found, err = s.records.Load(ctx, RecordKeyCredential); err != nil {
		return fmt.Errorf("error reading credential: %w", err)
	}

	if found {
		return models.ErrAlreadyProvisioned
	}

	if encoded, err = hashPassword(password); err != nil {
		return err
	}

	if err = s.records.Save(ctx, RecordKeyCredential, encoded); err != nil {
		return fmt.Errorf("error saving credential: %w", err)
	}

	s.session.authorized = true
	s.session.failedAttempts = 0

	slog.Info("owner password set")
	return nil
}

func (s CredentialService) Verify(ctx context.Context, password string) error {
	var (
		err     error
		found   bool
		stored  string
		matches bool
	)

	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	now := s.now()

	if now.Before(s.session.lockedUntil) {
		return fmt.Errorf("%w: try again in %s", models.ErrLockedOut, s.session.lockedUntil.Sub(now).Round(time.Second))
	}

	if stored, found, err = s.records.Load(ctx, RecordKeyCredential); err != nil {
		return fmt.Errorf("error reading credential: %w", err)
	}

	if !found {
		return models.ErrNotProvisioned
	}

	if matches, err = comparePassword(stored, password); err != nil {
		return err
	}

	if !matches {
		s.session.failedAttempts++
		slog.Warn("incorrect owner password", "failedAttempts", s.session.failedAttempts)

		if s.maxFailedAttempts > 0 && s.session.failedAttempts >= s.maxFailedAttempts {
			s.session.lockedUntil = now.Add(s.lockoutDuration)
			s.session.failedAttempts = 0
			slog.Warn("owner sign in locked", "until", s.session.lockedUntil)
		}

		return models.ErrIncorrectCredential
	}

	/*
	 * Credentials written before hashing was introduced are plain text.
	 * Upgrade them now that we know the password.
	 */
	if !isHashedCredential(stored) {
		if err = s.upgradeLegacyCredential(ctx, password); err != nil {
			slog.Error("error upgrading stored credential", "error", err)
		}
	}

	s.session.authorized = true
	s.session.failedAttempts = 0

	slog.Info("owner signed in")
	return nil
}

func (s CredentialService) upgradeLegacyCredential(ctx context.Context, password string) error {
	encoded, err := hashPassword(password)

	if err != nil {
		return err
	}

	return s.records.Save(ctx, RecordKeyCredential, encoded)
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)

	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("error generating salt: %w", err)
	}

	hash := deriveKey(password, salt)

	return strings.Join([]string{
		credentialScheme,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	}, "$"), nil
}

func comparePassword(stored, password string) (bool, error) {
	var (
		err  error
		salt []byte
		hash []byte
	)

	if !isHashedCredential(stored) {
		return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1, nil
	}

	parts := strings.Split(stored, "$")

	if len(parts) != 3 {
		return false, fmt.Errorf("stored credential is malformed")
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[1]); err != nil {
		return false, fmt.Errorf("error decoding credential salt: %w", err)
	}

	if hash, err = base64.RawStdEncoding.DecodeString(parts[2]); err != nil {
		return false, fmt.Errorf("error decoding credential hash: %w", err)
	}

	return subtle.ConstantTimeCompare(hash, deriveKey(password, salt)) == 1, nil
}

func isHashedCredential(stored string) bool {
	return strings.HasPrefix(stored, credentialScheme+"$")
}

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
}
