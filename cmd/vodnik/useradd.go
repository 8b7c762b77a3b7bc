package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/erazemk/vodnik/internal/model"
	"github.com/erazemk/vodnik/internal/store"
)

func cmdUserAdd(args []string) error {
	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)

	var common commonFlags
	common.register(fs)

	var user model.User
	fs.StringVar(&user.UserID, "id", "", "")
	fs.StringVar(&user.FirstName, "first", "", "")
	fs.StringVar(&user.LastName, "last", "", "")
	fs.StringVar(&user.Password, "password", "", "")
	fs.StringVar(&user.Password, "p", "", "")

	var favorite string
	fs.StringVar(&favorite, "favorite", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: vodnik useradd -id <user_id> -password <password> [flags]

Flags:
      -id <user_id>        user id (required)
  -p, -password <pw>       password (required)
      -first <name>        first name
      -last <name>         last name
      -favorite <ids>      comma-separated initial favorite item ids
  -b, -backend <name>      sqlite, redis, postgres or dynamodb
  -e, -env <path>          environment file to load if present (default: .env)
  -h, -help                show this help and exit
`)
	}

	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if user.UserID == "" || user.Password == "" {
		fs.Usage()
		return errors.New("-id and -password are required")
	}
	if favorite != "" {
		user.Favorite = model.NormalizeSet(strings.Split(favorite, ","))
	}

	cfg, closeLog, err := common.load(fs)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening %s backend: %w", cfg.Backend, err)
	}
	defer backend.Close()

	if err := backend.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return fmt.Errorf("user %q already exists", user.UserID)
		}
		return fmt.Errorf("creating user: %w", err)
	}

	fmt.Printf("User created: %s (%s)\n", user.UserID, user.FullName())
	return nil
}
