package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mitranim/sqlkit"
	"github.com/mitranim/sqlkit/listen"
	"github.com/mitranim/sqlkit/pgxdb"
	"github.com/spf13/cobra"
)

// One printed notification, in JSON-lines output.
type notificationLine struct {
	Time    time.Time `json:"time"`
	Channel string    `json:"channel"`
	Payload any       `json:"payload"`
}

func newListenCmd(glob *globals) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   `listen CHANNEL...`,
		Short: `Print notifications of LISTEN channels`,
		Long: `Subscribe to the channels on a dedicated connection and print every
notification until interrupted. Reconnects with exponential backoff when the
connection drops. Requires a PostgreSQL-family dialect.`,
		Example: `  # Tail two channels with the connection from sqlkit.yaml
  sqlkit listen orders audit

  # JSON lines with decoded payloads
  sqlkit listen --json orders`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := glob.loadConfig()
			if err != nil {
				return err
			}
			if conf.SQLDialect() == sqlkit.SQLite {
				return fmt.Errorf(`listen needs a PostgreSQL-family dialect, got %v`, conf.SQLDialect())
			}

			log, _ := conf.Logger(cmd.ErrOrStderr())
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			lis := listen.New(listen.Options{Dial: pgxdb.Dialer(conf.DSN()), Logger: log})
			defer func() {
				if err := lis.Close(context.WithoutCancel(ctx)); err != nil {
					log.Warn(`failed to close listener`, `error`, err)
				}
			}()

			handle := printer(cmd, asJSON)
			for _, channel := range args {
				if _, err := lis.Subscribe(ctx, channel, handle); err != nil {
					return err
				}
			}
			log.Info(`listening`, `channels`, args)

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, `json`, false, `print JSON lines with decoded payloads`)
	return cmd
}

// Handlers run one at a time on the dispatcher, so output needs no locking.
func printer(cmd *cobra.Command, asJSON bool) func(listen.Notification) {
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)

	return func(val listen.Notification) {
		if asJSON {
			_ = enc.Encode(notificationLine{Time: time.Now().UTC(), Channel: val.Channel, Payload: val.Payload})
			return
		}
		fmt.Fprintf(out, "%s\t%s\n", val.Channel, val.Raw)
	}
}
