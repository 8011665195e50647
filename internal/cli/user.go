package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrlokans/biblioteca/internal/auth"
	"github.com/mrlokans/biblioteca/internal/config"
	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/query"
	"github.com/mrlokans/biblioteca/internal/database/users"
)

var errPasswordMismatch = errors.New("passwords do not match")

func newUserCommand(cfg *config.Config) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage login accounts",
	}

	add := &UserAddCommand{}
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a user that can log in",
		Example: "  biblioteca user add alice --role ADMIN\n" +
			"  echo secret | biblioteca user add bob --bcrypt",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			add.Name = args[0]
			add.BcryptCost = cfg.Auth.BcryptCost
			add.In = cmd.InOrStdin()
			add.Out = cmd.OutOrStdout()

			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			id, err := add.Run(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(add.Out, "User %s created with id %d\n", add.Name, id)
			return nil
		},
	}
	addCmd.Flags().StringVar(&add.Role, "role", "", "role stored with the user")
	addCmd.Flags().StringVar(&add.FullName, "full-name", "", "display name")
	addCmd.Flags().BoolVar(&add.Bcrypt, "bcrypt", false, "store a bcrypt hash instead of the plain password")

	user.AddCommand(addCmd)
	return user
}

// UserAddCommand creates a user row with a credential. The password is read
// from the terminal without echo, or as the first line of In when In is not
// a terminal.
type UserAddCommand struct {
	Name       string
	FullName   string
	Role       string
	Bcrypt     bool
	BcryptCost int

	In  io.Reader
	Out io.Writer
}

func (cmd *UserAddCommand) Run(ctx context.Context, db *database.Database) (int64, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return 0, auth.ErrUsernameRequired
	}

	password, err := cmd.readPassword()
	if err != nil {
		return 0, err
	}
	if password == "" {
		return 0, auth.ErrPasswordRequired
	}

	credential := password
	if cmd.Bcrypt {
		if credential, err = auth.HashPassword(password, cmd.BcryptCost); err != nil {
			return 0, err
		}
	}

	fields := query.Fields{
		"NOMBRE":              name,
		users.CredentialField: credential,
	}
	if cmd.Role != "" {
		fields["ROL"] = cmd.Role
	}
	if cmd.FullName != "" {
		fields["NOMBRE_COMPLETO"] = cmd.FullName
	}

	id, err := users.NewRepository(db).Create(ctx, fields)
	if database.IsUniqueViolation(err) {
		return 0, fmt.Errorf("user %q already exists", name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	log.Info().Str("user", name).Int64("id", id).Bool("bcrypt", cmd.Bcrypt).Msg("User created")
	return id, nil
}

func (cmd *UserAddCommand) readPassword() (string, error) {
	if f, ok := cmd.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		first, err := promptPassword(cmd.Out, f, "Password: ")
		if err != nil {
			return "", err
		}
		second, err := promptPassword(cmd.Out, f, "Repeat password: ")
		if err != nil {
			return "", err
		}
		if first != second {
			return "", errPasswordMismatch
		}
		return first, nil
	}

	line, err := bufio.NewReader(cmd.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptPassword reads a password with masking.
func promptPassword(out io.Writer, f *os.File, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
