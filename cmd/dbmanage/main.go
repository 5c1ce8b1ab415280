// Command dbmanage administers the parktime database.
//
// Usage:
//
//	dbmanage check                  test the database connection
//	dbmanage migrate                create/update schema and seed defaults
//	dbmanage reset                  drop everything and recreate (APP_DEBUG=1 only)
//	dbmanage setpassword <username> set a user's password from stdin
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"parktime/config"
	"parktime/database"
	"parktime/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()

	var err error
	switch os.Args[1] {
	case "check":
		err = cmdCheck(cfg)
	case "migrate":
		err = cmdMigrate(cfg)
	case "reset":
		err = cmdReset(cfg)
	case "setpassword":
		if len(os.Args) < 3 {
			usage()
			os.Exit(2)
		}
		err = cmdSetPassword(cfg, os.Args[2])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: dbmanage check|migrate|reset|setpassword <username>")
}

func open(cfg *config.Config) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func cmdCheck(cfg *config.Config) error {
	db, err := open(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Ping(); err != nil {
		return err
	}
	fmt.Println("Connection successful")
	return nil
}

func cmdMigrate(cfg *config.Config) error {
	db, err := open(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	fmt.Println("Migrations complete")
	return nil
}

func cmdReset(cfg *config.Config) error {
	if !cfg.Debug {
		return fmt.Errorf("reset is only available with APP_DEBUG=1")
	}

	db, err := open(cfg)
	if err != nil {
		return err
	}

	tables := []interface{}{
		&models.AuditRecord{},
		&models.TimeEntry{},
		&models.WorkCode{},
		&models.BusinessRule{},
		&models.User{},
	}
	for _, table := range tables {
		if err := db.Migrator().DropTable(table); err != nil {
			return err
		}
	}

	if err := database.Migrate(db); err != nil {
		return err
	}
	fmt.Println("Database reset")
	return nil
}

func cmdSetPassword(cfg *config.Config, username string) error {
	db, err := open(cfg)
	if err != nil {
		return err
	}

	var user models.User
	if result := db.Where("username = ?", username).First(&user); result.Error != nil {
		return fmt.Errorf("user %q: %w", username, result.Error)
	}

	fmt.Printf("New password for %s: ", username)
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	password = strings.TrimRight(password, "\r\n")
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hash)
	user.MustChangePassword = true
	if result := db.Save(&user); result.Error != nil {
		return result.Error
	}

	fmt.Println("Password updated")
	return nil
}
