package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"fabtrack/internal/config"
	apperrors "fabtrack/internal/errors"
	"fabtrack/internal/logger"
	"fabtrack/internal/models"
	"fabtrack/internal/pagination"
)

// resetTokenTTL is how long a password reset token stays usable.
const resetTokenTTL = time.Hour

// userService handles user management and authentication.
type userService struct {
	db     *gorm.DB
	cfg    *config.Config
	mailer Mailer
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB, cfg *config.Config, mailer Mailer) UserServicer {
	return &userService{db: db, cfg: cfg, mailer: mailer}
}

// Create adds a user with a bcrypt-hashed password. When sendEmail is set
// the initial credentials are mailed out; a mail failure is logged, not
// returned, so account creation never depends on SMTP being up.
func (s *userService) Create(email, password, firstName, lastName string, role models.Role, sendEmail bool) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hash),
		FirstName: firstName,
		LastName:  lastName,
		Role:      role,
		IsActive:  true,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if sendEmail {
		if err := s.mailer.SendCredentials(user.Email, password, user.FirstName); err != nil {
			logger.Get().Errorw("failed to send credentials email",
				"error", err,
				"email", user.Email,
			)
		}
	}
	return user, nil
}

// List returns a page of users, newest first. A non-empty search matches
// first name, last name, and email case-insensitively.
func (s *userService) List(search string, page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	page.Defaults()

	query := s.db.Model(&models.User{})
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var users []models.User
	if err := query.Order("created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(users, page.Page, page.Limit, total)
	return &resp, nil
}

func (s *userService) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

func (s *userService) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// Update applies the non-nil fields of upd. Changing the email enforces
// uniqueness against the other users.
func (s *userService) Update(id uint, upd UserUpdate) (*models.User, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		if email != user.Email {
			var count int64
			if err := s.db.Model(&models.User{}).
				Where("email = ? AND id <> ?", email, id).
				Count(&count).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count > 0 {
				return nil, apperrors.ErrDuplicateEmail
			}
		}
		user.Email = email
	}
	if upd.FirstName != nil {
		user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		user.LastName = *upd.LastName
	}
	if upd.Role != nil {
		user.Role = *upd.Role
	}
	if upd.IsActive != nil {
		user.IsActive = *upd.IsActive
	}

	if err := s.db.Save(user).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, nil
}

func (s *userService) Delete(id uint) error {
	res := s.db.Delete(&models.User{}, id)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// AttemptLogin verifies the credentials and that the account is active.
// Unknown email and wrong password produce the same error.
func (s *userService) AttemptLogin(email, password string) (*models.User, error) {
	user, err := s.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountInactive
	}
	return user, nil
}

// ForgotPassword issues a reset token and mails the reset link. It never
// reveals whether the email exists: unknown addresses return nil too.
func (s *userService) ForgotPassword(email string) error {
	user, err := s.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil
		}
		return err
	}

	token := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.db.Create(token).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resetLink := s.cfg.FrontendURL + "/reset-password?token=" + token.Token
	if err := s.mailer.SendPasswordReset(user.Email, resetLink, user.FirstName); err != nil {
		logger.Get().Errorw("failed to send password reset email",
			"error", err,
			"email", user.Email,
		)
	}
	return nil
}

// ResetPassword consumes a token and sets the new password. Used or
// expired tokens are rejected; all other tokens for the user are removed
// once one succeeds.
func (s *userService) ResetPassword(token, newPassword string) error {
	var reset models.PasswordResetToken
	err := s.db.Where("token = ?", token).First(&reset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidResetToken
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if reset.Used || time.Now().After(reset.ExpiresAt) {
		return apperrors.ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", reset.UserID).
			Update("password", string(hash)).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.PasswordResetToken{}).
			Where("id = ?", reset.ID).
			Update("used", true).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		// Invalidate any other outstanding tokens for the same user.
		if err := tx.Where("user_id = ? AND id <> ?", reset.UserID, reset.ID).
			Delete(&models.PasswordResetToken{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// ChangePassword swaps the password after verifying the current one.
func (s *userService) ChangePassword(id uint, currentPassword, newPassword string) error {
	user, err := s.GetByID(id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)); err != nil {
		return apperrors.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Model(&models.User{}).
		Where("id = ?", id).
		Update("password", string(hash)).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
