package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tendant/loginapp/pkg/account"
	"github.com/tendant/loginapp/pkg/config"
	"github.com/tendant/loginapp/pkg/errors"
	"github.com/tendant/loginapp/pkg/twofa"
)

func main() {
	// Parse command line arguments
	id := flag.String("id", "", "Login id, usually an email address (required)")
	password := flag.String("password", "", "Password for the new account (required)")
	name := flag.String("name", "", "Display name")
	org := flag.String("org", "", "Organization")
	role := flag.String("role", "user", "Role to assign to the account")
	approved := flag.Bool("approved", true, "Create the account approved")
	hasher := flag.String("hasher", "bcrypt", "Password hasher: bcrypt or argon2")
	flag.Parse()

	if *id == "" || *password == "" {
		fmt.Println("Error: id and password are required")
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true, // Enables line number & file path
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	repo, closeRepo, err := openAccountRepository(ctx, cfg)
	if err != nil {
		slog.Error("Failed opening account store", "store", cfg.AccountStore, "err", err)
		os.Exit(1)
	}
	defer closeRepo()

	totp := twofa.NewTotpVerifier(
		twofa.WithIssuer(cfg.Totp.Issuer),
		twofa.WithPeriod(cfg.Totp.Period),
	)
	secret, otpURL, err := totp.GenerateSecret(account.NormalizeID(*id))
	if err != nil {
		slog.Error("Failed generating TOTP secret", "err", err)
		os.Exit(1)
	}

	service := account.NewService(repo, account.WithHasher(hasherFor(*hasher)))
	acct, err := service.CreateAccount(ctx, account.CreateParams{
		ID:         *id,
		Org:        *org,
		Name:       *name,
		Role:       *role,
		Password:   *password,
		Approved:   *approved,
		Verified:   true,
		TotpSecret: secret,
	})
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeAlreadyExists) {
			slog.Error("Account already exists", "id", *id)
		} else {
			slog.Error("Failed creating account", "id", *id, "err", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Created account %s (role %s, approved %t)\n", acct.ID, acct.Role, acct.Approved)
	fmt.Printf("Add it to an authenticator app with:\n%s\n", otpURL)
}

func hasherFor(name string) account.PasswordHasher {
	if name == "argon2" {
		return account.NewArgon2Hasher()
	}
	return &account.BcryptHasher{}
}
