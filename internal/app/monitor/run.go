// Package monitor tails the change-event exchange and logs every committed
// document change. Useful for watching a fleet of terminals from a shell.
package monitor

import (
	"context"
	"fmt"

	"cafe-system/internal/common/config"
	"cafe-system/internal/common/logger"
	"cafe-system/internal/common/mq"
)

func Run(ctx context.Context, configPath string) error {
	lg := logger.New("cafe-monitor")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	mqc, err := mq.Dial(cfg.Rabbit.URL())
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	defer mqc.Close()
	if err := mqc.DeclareEvents(); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	events, err := mqc.ConsumeEvents(ctx, lg)
	if err != nil {
		return fmt.Errorf("consume change events: %w", err)
	}
	lg.Info().Msg("watching change events")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			lg.Info().
				Str("collection", ev.Collection).
				Str("id", ev.ID).
				Str("op", string(ev.Op)).
				Msg("document changed")
		}
	}
}
