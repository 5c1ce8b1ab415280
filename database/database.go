package database

import (
	"log"

	"parktime/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(dsn string) error {
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}

	return Migrate(DB)
}

// Migrate creates the schema and seeds the default admin and work
// codes. Safe to run repeatedly.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.WorkCode{},
		&models.TimeEntry{},
		&models.AuditRecord{},
		&models.BusinessRule{},
	)
	if err != nil {
		return err
	}

	if err := seedDefaultAdmin(db); err != nil {
		return err
	}
	if err := seedWorkCodes(db); err != nil {
		return err
	}
	return seedBusinessRules(db)
}

func seedDefaultAdmin(db *gorm.DB) error {
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Username:           "admin",
		FullName:           "Administrator",
		PasswordHash:       string(hashedPassword),
		Role:               models.RoleAdmin,
		Active:             true,
		MustChangePassword: true,
	}

	if result := db.Create(&admin); result.Error != nil {
		return result.Error
	}

	log.Println("Default admin user created (username: admin, password: admin)")
	return nil
}

func seedWorkCodes(db *gorm.DB) error {
	var count int64
	db.Model(&models.WorkCode{}).Count(&count)
	if count > 0 {
		return nil
	}

	for _, code := range models.DefaultWorkCodes {
		wc := code
		wc.Active = true
		if result := db.Create(&wc); result.Error != nil {
			return result.Error
		}
	}

	log.Printf("Seeded %d default work codes", len(models.DefaultWorkCodes))
	return nil
}

// seedBusinessRules inserts any default rule whose key is missing, so
// new rules added in later releases get seeded on upgrade too.
func seedBusinessRules(db *gorm.DB) error {
	for _, rule := range models.DefaultBusinessRules {
		var count int64
		if result := db.Model(&models.BusinessRule{}).Where("rule_key = ?", rule.RuleKey).Count(&count); result.Error != nil {
			return result.Error
		}
		if count > 0 {
			continue
		}
		r := rule
		if result := db.Create(&r); result.Error != nil {
			return result.Error
		}
	}
	return nil
}

func GetDB() *gorm.DB {
	return DB
}
