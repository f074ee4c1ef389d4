package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	adomain "github.com/corvusHold/certmail/internal/accounts/domain"
	arepo "github.com/corvusHold/certmail/internal/accounts/repository"
	amw "github.com/corvusHold/certmail/internal/auth/middleware"
	"github.com/corvusHold/certmail/internal/config"
	srepo "github.com/corvusHold/certmail/internal/settings/repository"
)

// accountStore is the slice of the accounts repository the seeder uses.
type accountStore interface {
	CreateAccount(ctx context.Context, id uuid.UUID, email, name string, monthlyLimit int) (adomain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (adomain.Account, error)
	CreateSender(ctx context.Context, s adomain.SenderIdentity) (adomain.SenderIdentity, error)
	GetSenderByEmail(ctx context.Context, email string) (adomain.SenderIdentity, error)
	ListSenders(ctx context.Context, accountID uuid.UUID) ([]adomain.SenderIdentity, error)
	MarkSenderVerified(ctx context.Context, id uuid.UUID) error
}

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("load config: %v", err)
	}
	sub := os.Args[1]

	// token needs no database.
	if sub == "token" {
		fs := flag.NewFlagSet("token", flag.ExitOnError)
		email := fs.String("email", os.Getenv("EMAIL"), "account email the token resolves to")
		ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
		output := fs.String("output", "env", "output format: env or json")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*email) == "" {
			fatalf("email is required")
		}
		tok, err := amw.Sign(cfg.JWTSigningKey, strings.ToLower(strings.TrimSpace(*email)), *ttl)
		if err != nil {
			fatalf("sign token: %v", err)
		}
		emit(*output, map[string]string{"EMAIL": *email, "TOKEN": tok})
		return
	}

	ctx := context.Background()
	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		fatalf("invalid DATABASE_URL: %v", err)
	}
	pgPool, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		fatalf("pg pool: %v", err)
	}
	defer pgPool.Close()

	accounts := arepo.New(pgPool)

	switch sub {
	case "account":
		fs := flag.NewFlagSet("account", flag.ExitOnError)
		email := fs.String("email", os.Getenv("EMAIL"), "account email")
		name := fs.String("name", envOr("NAME", "Test Account"), "display name")
		limit := fs.Int("limit", envOrInt("MONTHLY_LIMIT", cfg.DefaultMonthlyLimit), "monthly send limit")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*email) == "" {
			fatalf("email is required")
		}
		acct, created, err := ensureAccount(ctx, accounts, *email, *name, *limit)
		if err != nil {
			fatalf("account create: %v", err)
		}
		if !created {
			stderr("account %s already exists", acct.Email)
		}
		printEnv(map[string]string{"ACCOUNT_ID": acct.ID.String(), "EMAIL": acct.Email, "MONTHLY_LIMIT": strconv.Itoa(acct.MonthlyLimit)})
	case "sender":
		fs := flag.NewFlagSet("sender", flag.ExitOnError)
		accountEmail := fs.String("account", os.Getenv("EMAIL"), "owning account email")
		email := fs.String("email", os.Getenv("SENDER_EMAIL"), "sender address")
		verified := fs.Bool("verified", envOrBool("SENDER_VERIFIED", true), "mark the sender verified without asking the provider")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*accountEmail) == "" || strings.TrimSpace(*email) == "" {
			fatalf("account and email are required")
		}
		s, err := ensureSender(ctx, accounts, *accountEmail, *email, *verified)
		if err != nil {
			fatalf("sender create: %v", err)
		}
		printEnv(map[string]string{"SENDER_ID": s.ID.String(), "SENDER_EMAIL": s.Email, "SENDER_SLOT": string(s.Slot), "SENDER_VERIFIED": strconv.FormatBool(s.IsVerified)})
	case "setting":
		fs := flag.NewFlagSet("setting", flag.ExitOnError)
		key := fs.String("key", "", "setting key, e.g. email.provider")
		value := fs.String("value", "", "setting value")
		accountEmail := fs.String("account", "", "account email; empty writes the global value")
		secret := fs.Bool("secret", false, "store as secret")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*key) == "" {
			fatalf("key is required")
		}
		var accountID *uuid.UUID
		if strings.TrimSpace(*accountEmail) != "" {
			acct, err := accounts.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(*accountEmail)))
			if err != nil {
				fatalf("lookup account: %v", err)
			}
			accountID = &acct.ID
		}
		if err := srepo.New(pgPool).Upsert(ctx, *key, accountID, *value, *secret); err != nil {
			fatalf("upsert setting: %v", err)
		}
		stderr("setting %s stored", *key)
	default:
		usage()
		os.Exit(2)
	}
}

func ensureAccount(ctx context.Context, repo accountStore, email, name string, limit int) (adomain.Account, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	acct, err := repo.CreateAccount(ctx, uuid.New(), email, name, limit)
	if err == nil {
		return acct, true, nil
	}
	if !errors.Is(err, adomain.ErrAccountExists) {
		return adomain.Account{}, false, err
	}
	acct, err = repo.GetAccountByEmail(ctx, email)
	return acct, false, err
}

// ensureSender registers email on the account in the next free slot and
// optionally marks it verified. An existing identity is reused.
func ensureSender(ctx context.Context, repo accountStore, accountEmail, email string, verified bool) (adomain.SenderIdentity, error) {
	acct, err := repo.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(accountEmail)))
	if err != nil {
		return adomain.SenderIdentity{}, fmt.Errorf("lookup account: %w", err)
	}
	email = strings.ToLower(strings.TrimSpace(email))

	s, err := repo.GetSenderByEmail(ctx, email)
	switch {
	case err == nil:
		if s.AccountID != acct.ID {
			return adomain.SenderIdentity{}, adomain.ErrSenderNotOwned
		}
	case errors.Is(err, adomain.ErrSenderNotFound):
		existing, err := repo.ListSenders(ctx, acct.ID)
		if err != nil {
			return adomain.SenderIdentity{}, err
		}
		if len(existing) >= adomain.MaxSenders {
			return adomain.SenderIdentity{}, adomain.ErrSenderLimit
		}
		slot := adomain.SlotFirst
		for _, e := range existing {
			if e.Slot == adomain.SlotFirst {
				slot = adomain.SlotSecond
			}
		}
		s, err = repo.CreateSender(ctx, adomain.SenderIdentity{
			ID:        uuid.New(),
			AccountID: acct.ID,
			Email:     email,
			Slot:      slot,
			IsPrimary: len(existing) == 0,
		})
		if err != nil {
			return adomain.SenderIdentity{}, err
		}
	default:
		return adomain.SenderIdentity{}, err
	}

	if verified && !s.IsVerified {
		if err := repo.MarkSenderVerified(ctx, s.ID); err != nil {
			return adomain.SenderIdentity{}, err
		}
		s.IsVerified = true
	}
	return s, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "seed: create development data for certmail")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  seed account --email you@example.com [--name N] [--limit 100]")
	fmt.Fprintln(os.Stderr, "  seed sender  --account you@example.com --email certs@example.com [--verified=true]")
	fmt.Fprintln(os.Stderr, "  seed setting --key email.provider --value smtp [--account you@example.com] [--secret]")
	fmt.Fprintln(os.Stderr, "  seed token   --email you@example.com [--ttl 24h] [--output env|json]")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envOrInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func emit(format string, kv map[string]string) {
	if strings.EqualFold(format, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(kv)
		return
	}
	printEnv(kv)
}

func printEnv(kv map[string]string) {
	// Print as KEY=VALUE lines so callers can tee into a .env file and `source` it.
	for k, v := range kv {
		fmt.Printf("%s=%s\n", k, v)
	}
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}

func stderr(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
}
