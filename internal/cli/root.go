package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/Domenick1991/parkus/internal/service/availability"
	"github.com/Domenick1991/parkus/internal/service/booking"
	"github.com/spf13/cobra"
)

var Version = "dev"

// Env is what the admin commands operate on.
type Env struct {
	Availability availability.AvailabilityUseCase
	Bookings     booking.BookingUseCase
	Migrate      func(ctx context.Context) ([]string, error)
	Close        func()
}

// EnvFactory opens an Env from the config file at path.
type EnvFactory func(ctx context.Context, cfgPath string) (*Env, error)

type rootOptions struct {
	cfgPath string
	actorID int64
	open    EnvFactory
}

func (o *rootOptions) actor() domain.Actor {
	return domain.Actor{ID: o.actorID, Role: domain.RoleAdmin}
}

// withEnv opens the env for the duration of one command.
func (o *rootOptions) withEnv(cmd *cobra.Command, fn func(ctx context.Context, env *Env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := o.open(ctx, o.cfgPath)
	if err != nil {
		return err
	}
	if env.Close != nil {
		defer env.Close()
	}
	return fn(ctx, env)
}

func NewRootCmd(open EnvFactory) *cobra.Command {
	opts := &rootOptions{open: open}

	root := &cobra.Command{
		Use:           "parkadm",
		Short:         "Administrative tasks for the parking reservation engine",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.cfgPath, "config", envOr("CONFIG_PATH", "config.yaml"), "path to config.yaml")
	root.PersistentFlags().Int64Var(&opts.actorID, "actor-id", 1, "admin user id recorded as the actor")

	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newBookingsCmd(opts))
	root.AddCommand(newWindowsCmd(opts))
	root.AddCommand(newSweepCmd(opts))

	return root
}

func Execute(open EnvFactory) {
	if err := NewRootCmd(open).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
