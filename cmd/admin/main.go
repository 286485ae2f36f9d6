// Command admin provides operator utilities for the admin console and the
// facility review queue.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"jeevandhara/internal/cache"
	"jeevandhara/internal/config"
	"jeevandhara/internal/database"
	"jeevandhara/internal/models"
	"jeevandhara/internal/repository"
	"jeevandhara/internal/service"

	"golang.org/x/crypto/bcrypt"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  admin hash-password <password>       - Print an ADMIN_PASSWORD_HASH value")
	fmt.Println("  admin pending                        - List facilities awaiting verification")
	fmt.Println("  admin verify-hospital <id>           - Approve a hospital")
	fmt.Println("  admin verify-blood-bank <id>         - Approve a blood bank")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	if os.Args[1] == "hash-password" {
		if len(os.Args) < 3 {
			usage()
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[2]), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		fmt.Println(string(hash))
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	db, err := database.Connect(ctx, cfg, database.Options{SkipSchema: true})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	review := service.NewVerificationService(
		repository.NewHospitalRepository(db),
		repository.NewBloodBankRepository(db),
		cache.New(cache.Connect(ctx, cfg.RedisURL)),
	)

	switch os.Args[1] {
	case "pending":
		err = listPending(ctx, review)
	case "verify-hospital":
		var h *models.Hospital
		if h, err = withID(func(id uint) (*models.Hospital, error) { return review.ApproveHospital(ctx, id) }); err == nil {
			fmt.Printf("Hospital %q (ID: %d) verified\n", h.HospitalName, h.ID)
		}
	case "verify-blood-bank":
		var b *models.BloodBank
		if b, err = withID(func(id uint) (*models.BloodBank, error) { return review.ApproveBloodBank(ctx, id) }); err == nil {
			fmt.Printf("Blood bank %q (ID: %d) verified\n", b.BloodBankName, b.ID)
		}
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func withID[T any](fn func(uint) (*T, error)) (*T, error) {
	if len(os.Args) < 3 {
		usage()
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 64)
	if err != nil || id == 0 {
		return nil, errors.New("id must be a positive integer")
	}
	return fn(uint(id))
}

func listPending(ctx context.Context, review *service.VerificationService) error {
	hospitals, err := review.Hospitals(ctx, models.VerificationPending)
	if err != nil {
		return err
	}
	banks, err := review.BloodBanks(ctx, models.VerificationPending)
	if err != nil {
		return err
	}

	fmt.Printf("Pending hospitals (%d):\n", len(hospitals))
	for _, h := range hospitals {
		fmt.Printf("  ID: %d, Name: %s, Email: %s, Reg: %s\n", h.ID, h.HospitalName, h.Email, h.HospitalRegistrationID)
	}
	fmt.Printf("Pending blood banks (%d):\n", len(banks))
	for _, b := range banks {
		fmt.Printf("  ID: %d, Name: %s, Email: %s, Reg: %s\n", b.ID, b.BloodBankName, b.Email, b.RegistrationNumber)
	}
	return nil
}
