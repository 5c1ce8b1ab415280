package services

import (
	"errors"
	"strings"

	"parktime/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

// redacted stands in for password values in audit records; hashes are
// never written to the trail.
const redacted = "[redacted]"

// UserService manages accounts. Accounts are created by admins (no
// self-registration) and deactivated rather than deleted.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UserPayload struct {
	Username  string
	FullName  string
	Role      models.Role
	ManagerID *uint
	Active    bool
}

// Create adds an account with a starting password the user must change
// at first login.
func (s *UserService) Create(actor *models.User, p UserPayload, password string) (*models.User, error) {
	if !actor.Role.Can(models.ActionUserManage) {
		return nil, &AuthorizationError{Action: models.ActionUserManage}
	}
	if err := validateUserPayload(&p); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &PersistenceError{Op: "hash password", Err: err}
	}

	var user *models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := requireUniqueUsername(tx, p.Username, 0); err != nil {
			return err
		}
		if err := requireValidManager(tx, p.ManagerID, 0); err != nil {
			return err
		}

		user = &models.User{
			Username:           p.Username,
			FullName:           p.FullName,
			PasswordHash:       string(hash),
			Role:               p.Role,
			ManagerID:          p.ManagerID,
			Active:             p.Active,
			MustChangePassword: true,
		}
		if result := tx.Create(user); result.Error != nil {
			return result.Error
		}

		audit := NewAuditor(actor)
		return audit.Record(tx, models.AuditCreate, models.EntityUser, user.ID, nil, SnapshotUser(user))
	})
	if err != nil {
		return nil, wrapPersistence("create user", err)
	}
	return user, nil
}

// Update changes account fields. Admins cannot demote or deactivate
// themselves; that would orphan the admin role mid-session.
func (s *UserService) Update(actor *models.User, userID uint, p UserPayload) (*models.User, error) {
	if !actor.Role.Can(models.ActionUserManage) {
		return nil, &AuthorizationError{Action: models.ActionUserManage}
	}
	if err := validateUserPayload(&p); err != nil {
		return nil, err
	}
	if userID == actor.ID && p.Role != models.RoleAdmin {
		return nil, &ValidationError{Field: "role", Reason: "cannot change your own role"}
	}
	if userID == actor.ID && !p.Active {
		return nil, &ValidationError{Field: "active", Reason: "cannot deactivate your own account"}
	}

	var user *models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = loadUser(tx, userID)
		if err != nil {
			return err
		}
		if err := requireUniqueUsername(tx, p.Username, userID); err != nil {
			return err
		}
		if err := requireValidManager(tx, p.ManagerID, userID); err != nil {
			return err
		}

		oldState := SnapshotUser(user)

		user.Username = p.Username
		user.FullName = p.FullName
		user.Role = p.Role
		user.ManagerID = p.ManagerID
		user.Active = p.Active

		if result := tx.Save(user); result.Error != nil {
			return result.Error
		}

		audit := NewAuditor(actor)
		return audit.Record(tx, models.AuditUpdate, models.EntityUser, user.ID, oldState, SnapshotUser(user))
	})
	if err != nil {
		return nil, wrapPersistence("update user", err)
	}
	return user, nil
}

// Deactivate flags an account inactive, preserving its entries and
// audit history.
func (s *UserService) Deactivate(actor *models.User, userID uint) (*models.User, error) {
	if !actor.Role.Can(models.ActionUserManage) {
		return nil, &AuthorizationError{Action: models.ActionUserManage}
	}
	if userID == actor.ID {
		return nil, &ValidationError{Field: "active", Reason: "cannot deactivate your own account"}
	}

	var user *models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = loadUser(tx, userID)
		if err != nil {
			return err
		}
		if !user.Active {
			return nil
		}

		oldState := SnapshotUser(user)
		user.Active = false
		if result := tx.Save(user); result.Error != nil {
			return result.Error
		}

		audit := NewAuditor(actor)
		return audit.Record(tx, models.AuditUpdate, models.EntityUser, user.ID, oldState, SnapshotUser(user))
	})
	if err != nil {
		return nil, wrapPersistence("deactivate user", err)
	}
	return user, nil
}

// ChangePassword sets a new password after verifying the current one.
// Used by users on their own account.
func (s *UserService) ChangePassword(actor *models.User, current, newPassword string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(actor.PasswordHash), []byte(current)); err != nil {
		return &ValidationError{Field: "current_password", Reason: "current password is incorrect"}
	}
	return s.setPassword(actor, actor.ID, newPassword, false)
}

// ResetPassword sets a user's password without the current one and
// forces a change at next login. Admin only.
func (s *UserService) ResetPassword(actor *models.User, userID uint, newPassword string) error {
	if !actor.Role.Can(models.ActionUserManage) {
		return &AuthorizationError{Action: models.ActionUserManage}
	}
	return s.setPassword(actor, userID, newPassword, true)
}

func (s *UserService) setPassword(actor *models.User, userID uint, newPassword string, mustChange bool) error {
	if len(newPassword) < minPasswordLength {
		return &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return &PersistenceError{Op: "hash password", Err: err}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}

		user.PasswordHash = string(hash)
		user.MustChangePassword = mustChange
		if result := tx.Save(user); result.Error != nil {
			return result.Error
		}

		audit := NewAuditor(actor)
		return audit.RecordField(tx, models.AuditUpdate, models.EntityUser, user.ID, "password", redacted, redacted)
	})
	return wrapPersistence("set password", err)
}

// Authenticate checks credentials for login. Deactivated accounts
// cannot log in.
func (s *UserService) Authenticate(username, password string) (*models.User, error) {
	var user models.User
	result := s.db.Where("username = ?", username).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Reason: "invalid credentials"}
		}
		return nil, &PersistenceError{Op: "load user", Err: result.Error}
	}
	if !user.Active {
		return nil, &ValidationError{Reason: "invalid credentials"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, &ValidationError{Reason: "invalid credentials"}
	}
	return &user, nil
}

// List returns accounts for the admin screens.
func (s *UserService) List(actor *models.User, includeInactive bool) ([]models.User, error) {
	if !actor.Role.Can(models.ActionUserManage) {
		return nil, &AuthorizationError{Action: models.ActionUserManage}
	}

	query := s.db.Preload("Manager").Order("username asc")
	if !includeInactive {
		query = query.Where("active = ?", true)
	}

	var users []models.User
	if result := query.Find(&users); result.Error != nil {
		return nil, &PersistenceError{Op: "list users", Err: result.Error}
	}
	return users, nil
}

func validateUserPayload(p *UserPayload) error {
	p.Username = strings.ToLower(strings.TrimSpace(p.Username))
	p.FullName = strings.TrimSpace(p.FullName)

	if p.Username == "" {
		return &ValidationError{Field: "username", Reason: "is required"}
	}
	if p.FullName == "" {
		return &ValidationError{Field: "full_name", Reason: "is required"}
	}
	if !p.Role.Valid() {
		return &ValidationError{Field: "role", Reason: "unknown role"}
	}
	return nil
}

func requireUniqueUsername(tx *gorm.DB, username string, selfID uint) error {
	var count int64
	query := tx.Model(&models.User{}).Where("username = ?", username)
	if selfID != 0 {
		query = query.Where("id <> ?", selfID)
	}
	if result := query.Count(&count); result.Error != nil {
		return result.Error
	}
	if count > 0 {
		return &ValidationError{Field: "username", Reason: "is already taken"}
	}
	return nil
}

// requireValidManager checks the manager reference points at an active
// manager or admin and not at the user themselves.
func requireValidManager(tx *gorm.DB, managerID *uint, selfID uint) error {
	if managerID == nil {
		return nil
	}
	if selfID != 0 && *managerID == selfID {
		return &ValidationError{Field: "manager_id", Reason: "cannot be your own manager"}
	}

	var manager models.User
	if result := tx.First(&manager, *managerID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return &ValidationError{Field: "manager_id", Reason: "unknown manager"}
		}
		return result.Error
	}
	if !manager.Active || (manager.Role != models.RoleManager && manager.Role != models.RoleAdmin) {
		return &ValidationError{Field: "manager_id", Reason: "must be an active manager or admin"}
	}
	return nil
}

func loadUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if result := tx.First(&user, userID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "user", ID: userID}
		}
		return nil, result.Error
	}
	return &user, nil
}
