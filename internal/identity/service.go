package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/gofrs/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"zenfocus/backend/internal/logger"
	"zenfocus/backend/internal/models"
)

const MinPasswordLength = 6

// Identity is the signed-in user as the rest of the system sees it.
type Identity struct {
	UserID      uuid.UUID `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	Provider    string    `json:"provider"`
}

func (i Identity) IsZero() bool {
	return i.UserID.IsNil()
}

func (i Identity) GreetingName() string {
	return models.User{Email: i.Email, DisplayName: i.DisplayName}.GreetingName()
}

func identityOf(u models.User) Identity {
	return Identity{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Provider:    u.Provider,
	}
}

// AuthEvent is delivered to auth-state observers. A zero Identity with
// SignedIn false never occurs; sign-out carries the identity leaving.
type AuthEvent struct {
	Identity Identity
	SignedIn bool
}

type Observer func(AuthEvent)

type Service interface {
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignOut(ctx context.Context, id Identity)
	Lookup(ctx context.Context, userID uuid.UUID) (Identity, error)
	OnAuthStateChanged(fn Observer) (unsubscribe func())
}

type ServiceImpl struct {
	db         *gorm.DB
	bcryptCost int

	mu        sync.RWMutex
	observers map[int]Observer
	nextID    int
}

var _ Service = (*ServiceImpl)(nil)

func NewService(db *gorm.DB, bcryptCost int) *ServiceImpl {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &ServiceImpl{
		db:         db,
		bcryptCost: bcryptCost,
		observers:  make(map[int]Observer),
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", NewAuthError(CodeInvalidEmail, nil)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", NewAuthError(CodeInvalidEmail, err)
	}
	return email, nil
}

func (s *ServiceImpl) SignUp(ctx context.Context, email, password string) (Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Identity{}, err
	}
	password = strings.TrimSpace(password)
	if len(password) < MinPasswordLength {
		return Identity{}, NewAuthError(CodeWeakPassword, nil)
	}

	var existing models.User
	err = s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return Identity{}, NewAuthError(CodeEmailInUse, nil)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, NewAuthError(CodeUnknown, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return Identity{}, NewAuthError(CodeUnknown, err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
		Provider:     models.ProviderPassword,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Identity{}, NewAuthError(CodeEmailInUse, err)
		}
		return Identity{}, NewAuthError(CodeUnknown, err)
	}

	id := identityOf(user)
	logger.Info("account created", "user_id", id.UserID, "provider", id.Provider)
	s.emit(AuthEvent{Identity: id, SignedIn: true})
	return id, nil
}

func (s *ServiceImpl) SignIn(ctx context.Context, email, password string) (Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Identity{}, NewAuthError(CodeInvalidEmail, nil)
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, NewAuthError(CodeInvalidCredentials, nil)
	}
	if err != nil {
		return Identity{}, NewAuthError(CodeUnknown, err)
	}

	// Federated accounts have no password to compare against.
	if user.PasswordHash == "" {
		return Identity{}, NewAuthError(CodeInvalidCredentials, nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Identity{}, NewAuthError(CodeInvalidCredentials, nil)
	}

	id := identityOf(user)
	s.emit(AuthEvent{Identity: id, SignedIn: true})
	return id, nil
}

func (s *ServiceImpl) SignOut(ctx context.Context, id Identity) {
	if id.IsZero() {
		return
	}
	s.emit(AuthEvent{Identity: id, SignedIn: false})
}

func (s *ServiceImpl) Lookup(ctx context.Context, userID uuid.UUID) (Identity, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, NewAuthError(CodeInvalidToken, fmt.Errorf("user %s no longer exists", userID))
	}
	if err != nil {
		return Identity{}, NewAuthError(CodeUnknown, err)
	}
	return identityOf(user), nil
}

// LinkFederated finds or creates the account for a federated profile. An
// existing password account with the same email is reused.
func (s *ServiceImpl) LinkFederated(ctx context.Context, profile FederatedProfile) (Identity, error) {
	email, err := normalizeEmail(profile.Email)
	if err != nil {
		return Identity{}, err
	}

	var user models.User
	err = s.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", profile.Provider, profile.ProviderUserID).
		Or("email = ?", email).
		First(&user).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:          email,
			DisplayName:    profile.Name,
			Provider:       profile.Provider,
			ProviderUserID: profile.ProviderUserID,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return Identity{}, NewAuthError(CodeUnknown, err)
		}
		logger.Info("account created", "user_id", user.ID, "provider", user.Provider)
	case err != nil:
		return Identity{}, NewAuthError(CodeUnknown, err)
	default:
		if user.DisplayName == "" && profile.Name != "" {
			user.DisplayName = profile.Name
			if err := s.db.WithContext(ctx).Model(&user).Update("display_name", profile.Name).Error; err != nil {
				logger.Warn("failed to store display name", "user_id", user.ID, "error", err)
			}
		}
	}

	id := identityOf(user)
	s.emit(AuthEvent{Identity: id, SignedIn: true})
	return id, nil
}

func (s *ServiceImpl) OnAuthStateChanged(fn Observer) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *ServiceImpl) emit(event AuthEvent) {
	s.mu.RLock()
	observers := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.RUnlock()

	for _, fn := range observers {
		fn(event)
	}
}
