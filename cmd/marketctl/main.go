package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/config"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/db"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/logger"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/repository"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/workflow"
)

// opener connects to the configured store; tests swap it for sqlite.
type opener func(ctx context.Context) (*gorm.DB, *zap.Logger, error)

func fromConfig(ctx context.Context) (*gorm.DB, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	gdb, err := db.Connect(ctx, db.Options{
		Driver:     cfg.DBDriver,
		DSN:        cfg.DBDSN,
		MaxRetries: cfg.DBMaxRetries,
		RetryDelay: cfg.DBRetryDelay,
		Logger:     log,
	})
	if err != nil {
		return nil, nil, err
	}
	return gdb, log, nil
}

func main() {
	if err := newRootCmd(fromConfig).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "marketctl",
		Short:         "Operate the freelance marketplace store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(open), newSeedAdminCmd(open))
	return root
}

func newMigrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, log, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close(gdb)
			if err := db.Migrate(gdb); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("schema up to date")
			fmt.Fprintln(cmd.OutOrStdout(), "migrated")
			return nil
		},
	}
}

type seedFlags struct {
	email    string
	username string
	password string
}

func newSeedAdminCmd(open opener) *cobra.Command {
	var flags seedFlags
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an admin account (admins cannot self-register)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			gdb, log, err := open(ctx)
			if err != nil {
				return err
			}
			defer db.Close(gdb)
			if err := db.Migrate(gdb); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			eng := workflow.New(repository.NewGormStore(gdb), workflow.WithLogger(log))
			u, err := eng.SeedAdmin(ctx, workflow.Registration{
				Username: flags.username,
				Email:    flags.email,
				Password: flags.password,
			})
			if err != nil {
				return describe(err)
			}
			printAdmin(cmd.OutOrStdout(), u.ID.String(), u.Email)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.email, "email", "", "Admin email (required)")
	f.StringVar(&flags.username, "username", "admin", "Admin display name")
	f.StringVar(&flags.password, "password", "", "Admin password, at least 6 characters (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func printAdmin(w io.Writer, id, email string) {
	fmt.Fprintf(w, "admin created: %s <%s>\n", id, email)
}

// describe flattens field errors into one readable line.
func describe(err error) error {
	var ae *apperr.AppError
	if !errors.As(err, &ae) || len(ae.Fields) == 0 {
		return err
	}
	msg := ae.Message
	for field, problems := range ae.Fields {
		for _, p := range problems {
			msg += fmt.Sprintf("; %s: %s", field, p)
		}
	}
	return errors.New(msg)
}
