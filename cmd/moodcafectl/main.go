package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/kirinyoku/moodcafe/internal/app"
	"github.com/kirinyoku/moodcafe/internal/config"
	"github.com/kirinyoku/moodcafe/internal/idgen"
	"github.com/kirinyoku/moodcafe/internal/service/booking"
	"github.com/spf13/cobra"
)

const (
	flagVerbose = "verbose"
	flagNodeID  = "node-id"
	flagZone    = "zone"
	flagEvent   = "event"
	flagName    = "name"
	flagEmail   = "email"
	flagDate    = "date"
	flagTime    = "time"
	flagSeats   = "seats"
	flagTickets = "tickets"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "moodcafectl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "moodcafectl",
		Short:         "Inspect and book against the MoodCafe store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().Bool(flagVerbose, false, "log runtime activity to stderr")
	cmd.PersistentFlags().Int64(flagNodeID, -1, "id generator node; derived per process when unset")

	cmd.AddCommand(
		newListCommand("zones", "List zones", func(ctx context.Context, rt *app.Runtime) (any, error) {
			return rt.Services.Booking.Zones(ctx)
		}),
		newListCommand("events", "List events with booked counters", func(ctx context.Context, rt *app.Runtime) (any, error) {
			return rt.Services.Booking.Events(ctx)
		}),
		newListCommand("bookings", "List bookings", func(ctx context.Context, rt *app.Runtime) (any, error) {
			return rt.Services.Booking.Bookings(ctx)
		}),
		newListCommand("stats", "Show dashboard stats", func(ctx context.Context, rt *app.Runtime) (any, error) {
			data, err := rt.Services.Admin.Data(ctx)
			if err != nil {
				return nil, err
			}
			return data.Stats, nil
		}),
		newBookCommand(),
	)

	return cmd
}

type runFunc func(ctx context.Context, rt *app.Runtime) (any, error)

func newListCommand(use, short string, fn runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, fn)
		},
	}
}

func newBookCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Create a booking",
	}

	zone := &cobra.Command{
		Use:   "zone",
		Short: "Book seats in a zone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := booking.ZoneRequest{}
			req.ZoneID, _ = cmd.Flags().GetString(flagZone)
			req.UserName, _ = cmd.Flags().GetString(flagName)
			req.Email, _ = cmd.Flags().GetString(flagEmail)
			req.Date, _ = cmd.Flags().GetString(flagDate)
			req.Time, _ = cmd.Flags().GetString(flagTime)
			req.Seats, _ = cmd.Flags().GetInt(flagSeats)

			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) (any, error) {
				return rt.Services.Booking.BookZone(ctx, req)
			})
		},
	}
	zone.Flags().String(flagZone, "", "zone id")
	zone.Flags().String(flagName, "", "guest name")
	zone.Flags().String(flagEmail, "", "guest email")
	zone.Flags().String(flagDate, "", "booking date")
	zone.Flags().String(flagTime, "", "booking time slot")
	zone.Flags().Int(flagSeats, 1, "number of seats")
	_ = zone.MarkFlagRequired(flagZone)
	_ = zone.MarkFlagRequired(flagName)

	event := &cobra.Command{
		Use:   "event",
		Short: "Buy tickets for an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := booking.EventRequest{}
			req.EventID, _ = cmd.Flags().GetString(flagEvent)
			req.UserName, _ = cmd.Flags().GetString(flagName)
			req.Email, _ = cmd.Flags().GetString(flagEmail)
			req.TicketCount, _ = cmd.Flags().GetInt(flagTickets)

			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) (any, error) {
				return rt.Services.Booking.BookEvent(ctx, req)
			})
		},
	}
	event.Flags().String(flagEvent, "", "event id")
	event.Flags().String(flagName, "", "guest name")
	event.Flags().String(flagEmail, "", "guest email")
	event.Flags().Int(flagTickets, 1, "number of tickets")
	_ = event.MarkFlagRequired(flagEvent)
	_ = event.MarkFlagRequired(flagName)

	cmd.AddCommand(zone, event)

	return cmd
}

// nodeID returns --node-id if given, else a node outside the server range.
func nodeID(cmd *cobra.Command) (int64, error) {
	n, _ := cmd.Flags().GetInt64(flagNodeID)
	if n < 0 {
		return idgen.EphemeralNode(uuid.NewString()), nil
	}
	if n <= idgen.MaxServerNode {
		return 0, fmt.Errorf("--%s %d is reserved for servers, use a value above %d", flagNodeID, n, idgen.MaxServerNode)
	}
	return n, nil
}

// withRuntime opens the configured store, runs fn and prints its result as JSON.
func withRuntime(cmd *cobra.Command, fn runFunc) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		return err
	}

	// NODE_ID belongs to the server; reusing it here could mint ids it also mints.
	cfg.NodeID, err = nodeID(cmd)
	if err != nil {
		return err
	}

	var out io.Writer = io.Discard
	if verbose, _ := cmd.Flags().GetBool(flagVerbose); verbose {
		out = cmd.ErrOrStderr()
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.LogLevel}))

	rt, err := app.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := fn(ctx, rt)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
