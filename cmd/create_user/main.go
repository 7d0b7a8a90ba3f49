package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"payledger/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	username := flag.String("username", "", "username for the new account")
	password := flag.String("password", "", "password (min 6 chars)")
	staffID := flag.Uint("staff-id", 0, "optional staff record to link the account to")
	admin := flag.Bool("admin", false, "grant the administrator role")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Println("usage: go run ./cmd/create_user --username u --password p [--staff-id N] [--admin]")
		os.Exit(2)
	}

	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	roleName := "user"
	if *admin {
		roleName = "administrator"
	}
	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		role = models.Role{Name: roleName}
		db.Create(&role)
	}

	// check existing
	var existing models.User
	if err := db.Where("username = ?", *username).First(&existing).Error; err == nil {
		fmt.Printf("user %s already exists (id=%d)\n", *username, existing.ID)
		os.Exit(0)
	}

	hpw, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}
	rid := role.ID
	user := models.User{Username: *username, HashedPassword: hpw, RoleID: &rid}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	if *staffID != 0 {
		var staff models.Staff
		if err := db.First(&staff, *staffID).Error; err != nil {
			log.Fatalf("staff %d not found: %v", *staffID, err)
		}
		uid := user.ID
		staff.UserID = &uid
		if err := db.Save(&staff).Error; err != nil {
			log.Fatalf("failed to link staff: %v", err)
		}
		fmt.Printf("linked staff %d to user %s\n", staff.ID, *username)
	}
	fmt.Printf("created user %s id=%d role=%s\n", *username, user.ID, roleName)
}
