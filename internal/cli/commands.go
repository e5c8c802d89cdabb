package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEnv(cmd, func(ctx context.Context, env *Env) error {
				if env.Migrate == nil {
					return fmt.Errorf("migrations need the postgres storage driver")
				}
				applied, err := env.Migrate(ctx)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				}
				for _, name := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
				}
				return nil
			})
		},
	}
}

func newBookingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "Inspect and manage bookings",
	}
	cmd.AddCommand(newBookingsListCmd(opts))
	cmd.AddCommand(newBookingsHistoryCmd(opts))
	cmd.AddCommand(newBookingsCancelCmd(opts))
	cmd.AddCommand(newBookingsDeleteCmd(opts))
	return cmd
}

func newBookingsListCmd(opts *rootOptions) *cobra.Command {
	var status string
	c := &cobra.Command{
		Use:   "list",
		Short: "List bookings with a given status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEnv(cmd, func(ctx context.Context, env *Env) error {
				bookings, err := env.Bookings.ListBookingsByStatus(ctx, status)
				if err != nil {
					return err
				}
				printBookings(cmd.OutOrStdout(), bookings)
				return nil
			})
		},
	}
	c.Flags().StringVar(&status, "status", string(domain.BookingStatusConfirmed), "pending|confirmed|cancelled|completed")
	return c
}

func newBookingsHistoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <booking-id>",
		Short: "Show the audit trail of a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withEnv(cmd, func(ctx context.Context, env *Env) error {
				entries, err := env.Bookings.BookingHistory(ctx, id)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "LOGGED AT\tSTATUS\tHOURS\tTOTAL\tEVENT")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", e.LoggedAt.Format(time.RFC3339), e.Status, e.DurationHours, e.TotalAmount, e.EventID)
				}
				return tw.Flush()
			})
		},
	}
}

func newBookingsCancelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <booking-id>",
		Short: "Cancel a booking regardless of its start time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withEnv(cmd, func(ctx context.Context, env *Env) error {
				b, err := env.Bookings.CancelBooking(ctx, id, opts.actor())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "booking %d is %s\n", b.ID, b.Status)
				return nil
			})
		},
	}
}

func newBookingsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <booking-id>",
		Short: "Delete a booking and free its window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withEnv(cmd, func(ctx context.Context, env *Env) error {
				if err := env.Bookings.DeleteBooking(ctx, id, opts.actor()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "booking %d deleted\n", id)
				return nil
			})
		},
	}
}

func newWindowsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Manage availability windows",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <window-id>",
		Short: "Delete an unbooked window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withEnv(cmd, func(ctx context.Context, env *Env) error {
				if err := env.Availability.DeleteWindow(ctx, id, opts.actor()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "window %d deleted\n", id)
				return nil
			})
		},
	})
	return cmd
}

func newSweepCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run maintenance sweeps once",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "complete",
		Short: "Complete confirmed bookings whose window has ended",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEnv(cmd, func(ctx context.Context, env *Env) error {
				completed, err := env.Bookings.CompleteElapsedBookings(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "completed %d bookings\n", len(completed))
				return nil
			})
		},
	})
	return cmd
}

func printBookings(w io.Writer, bookings []domain.Booking) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWINDOW\tSPOT\tRENTER\tSTATUS\tTOTAL\tBOOKED AT")
	for _, b := range bookings {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\t%s\t%s\n", b.ID, b.WindowID, b.SpotID, b.RenterID, b.Status, b.TotalAmount, b.BookedAt.Format(time.RFC3339))
	}
	tw.Flush()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
