package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/padel-booking/internal/auth"
	"github.com/example/padel-booking/internal/booking"
	"github.com/example/padel-booking/internal/config"
	"github.com/example/padel-booking/internal/db"
	"github.com/example/padel-booking/internal/logging"
	"github.com/example/padel-booking/internal/migrate"
	"github.com/example/padel-booking/internal/notify"
	"github.com/example/padel-booking/internal/slots"
	"github.com/example/padel-booking/internal/web"
	"github.com/spf13/cobra"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the booking web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			logger := logging.New(cfg.Environment)
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}

			if migrateUp {
				if err := migrate.Up(ctx, d.Pool()); err != nil {
					return err
				}
			}

			var mailer notify.Mailer
			if cfg.SMTPConfigured() {
				mailer = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
			} else {
				logger.Warn("smtp not configured, email notifications disabled")
				mailer = notify.Disabled(logger)
			}
			queue := notify.NewQueue(mailer, 64, logger)
			go queue.Run(ctx)

			sessions := auth.NewSessions(cfg.CookieHashKey, cfg.CookieBlockKey, cfg.CoachPassword)
			store := slots.NewStore(d)
			svc := booking.NewService(store, queue, cfg.CoachEmail, logger)

			ws := &web.Server{
				Auth:     sessions,
				Bookings: svc,
				Log:      logger,
			}
			return web.Start(ctx, cfg.ListenAddr, ws.Routes(), logger)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
