// Package passhash derives the bcrypt hash for the admin login password.
package passhash

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/pulseritas/storefront/internal/auth"
)

// Config holds configuration for password hashing.
type Config struct {
	Password string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.Password, "password", "", "admin password to hash")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run hashes the password and writes the env assignment to out.
func Run(cfg Config, out io.Writer) error {
	if cfg.Password == "" {
		return errors.New("password is required")
	}
	if out == nil {
		return errors.New("output is required")
	}

	hash, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = fmt.Fprintf(out, "PULSERITAS_ADMIN_PASSWORD_HASH=%s\n", hash)
	return err
}
