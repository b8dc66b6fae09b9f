package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/stemsi/proctored-mcq/internal/config"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// hash-password prints a bcrypt hash for ADMIN_PASSWORD_HASH.
func main() {
	cfg := config.Load()

	fmt.Println("=== Hash Administrator Password ===")

	fmt.Print("Enter Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	if len(first) < 8 {
		fmt.Println("Error: Password must be at least 8 characters")
		os.Exit(1)
	}

	fmt.Print("Confirm Password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	if string(first) != string(second) {
		fmt.Println("Error: Passwords do not match")
		os.Exit(1)
	}

	cost := cfg.BcryptCost
	if cost < bcrypt.DefaultCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword(first, cost)
	if err != nil {
		fmt.Printf("Error hashing password: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nADMIN_PASSWORD_HASH=%s\n", hash)
}
