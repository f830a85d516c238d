package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aliuyar1234/tasktally/internal/auth"
	"github.com/aliuyar1234/tasktally/internal/db"
	"github.com/aliuyar1234/tasktally/internal/validation"
	"github.com/jackc/pgx/v5/pgxpool"
)

func runAdmin(args []string) int {
	if len(args) == 0 {
		printAdminUsage()
		return 2
	}

	switch args[0] {
	case "reset-password":
		return runResetPassword(args[1:])
	case "grant-super-admin":
		return runGrantSuperAdmin(args[1:])
	case "migrate":
		return runMigrate(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown admin command: %s\n", args[0])
		printAdminUsage()
		return 2
	}
}

func printAdminUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  tasktally admin reset-password --email user@example.com [--password <new>] [--db-dsn <dsn>]")
	fmt.Fprintln(os.Stderr, "  tasktally admin grant-super-admin --email user@example.com [--db-dsn <dsn>]")
	fmt.Fprintln(os.Stderr, "  tasktally admin migrate [--db-dsn <dsn>]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Notes:")
	fmt.Fprintln(os.Stderr, "  - If --password is omitted, a random password is generated and printed.")
	fmt.Fprintln(os.Stderr, "  - --db-dsn defaults to TT_DB_DSN.")
}

// adminFlags parses the flags shared by every admin command
type adminFlags struct {
	fs    *flag.FlagSet
	email string
	dbDSN string
}

func newAdminFlags(name string, withEmail bool) *adminFlags {
	f := &adminFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	f.fs.SetOutput(os.Stderr)
	if withEmail {
		f.fs.StringVar(&f.email, "email", "", "User email")
	}
	f.fs.StringVar(&f.dbDSN, "db-dsn", "", "Postgres DSN (defaults to TT_DB_DSN)")
	return f
}

// parse returns an exit code when the command should stop
func (f *adminFlags) parse(args []string) (int, bool) {
	if err := f.fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}

	if f.fs.Lookup("email") != nil {
		f.email = validation.NormalizeEmail(f.email)
		if f.email == "" {
			fmt.Fprintln(os.Stderr, "--email is required")
			return 2, false
		}
	}

	if f.dbDSN == "" {
		f.dbDSN = strings.TrimSpace(os.Getenv("TT_DB_DSN"))
	}
	if f.dbDSN == "" {
		fmt.Fprintln(os.Stderr, "--db-dsn is required (or set TT_DB_DSN)")
		return 2, false
	}
	return 0, true
}

func runResetPassword(args []string) int {
	f := newAdminFlags("reset-password", true)
	var password string
	f.fs.StringVar(&password, "password", "", "New password (if empty, generates one)")
	if code, ok := f.parse(args); !ok {
		return code
	}

	generated := false
	if password == "" {
		pw, err := generatePassword(24)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate password: %v\n", err)
			return 1
		}
		password = pw
		generated = true
	}

	if err := auth.ValidatePassword(password); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid password: %v\n", err)
		return 2
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash password: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, f.dbDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	tag, err := pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE email = $1`, f.email, passwordHash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to update password: %v\n", err)
		return 1
	}
	if tag.RowsAffected() == 0 {
		fmt.Fprintf(os.Stderr, "No user found with email %q\n", f.email)
		return 1
	}

	fmt.Fprintln(os.Stdout, "Password updated.")
	if generated {
		fmt.Fprintln(os.Stdout, password)
	}

	return 0
}

// runGrantSuperAdmin bootstraps the first administrator, who is also approved.
func runGrantSuperAdmin(args []string) int {
	f := newAdminFlags("grant-super-admin", true)
	if code, ok := f.parse(args); !ok {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, f.dbDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	tag, err := pool.Exec(ctx, `
		UPDATE users SET role = 'super_admin', is_approved = TRUE, updated_at = NOW()
		WHERE email = $1
	`, f.email)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to update user: %v\n", err)
		return 1
	}
	if tag.RowsAffected() == 0 {
		fmt.Fprintf(os.Stderr, "No user found with email %q\n", f.email)
		return 1
	}

	fmt.Fprintf(os.Stdout, "%s is now a super admin.\n", f.email)
	return 0
}

func runMigrate(args []string) int {
	f := newAdminFlags("migrate", false)
	if code, ok := f.parse(args); !ok {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, f.dbDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		return 1
	}

	fmt.Fprintln(os.Stdout, "Migrations applied.")
	return 0
}

func generatePassword(bytesLen int) (string, error) {
	if bytesLen < 8 {
		bytesLen = 8
	}

	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	// URL-safe, printable, without padding.
	return base64.RawURLEncoding.EncodeToString(b), nil
}
