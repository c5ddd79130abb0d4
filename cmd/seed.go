package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arogyabot/health-gateway/internal/config"
	"github.com/arogyabot/health-gateway/internal/db"
	"github.com/arogyabot/health-gateway/internal/model"
	"github.com/arogyabot/health-gateway/internal/repository"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo recipients",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		users := repository.NewUsersRepository(sqlDB)

		demo := []struct {
			phone string
			ch    model.Channel
		}{
			{"+919876500001", model.ChannelWhatsApp},
			{"+919876500002", model.ChannelWhatsApp},
			{"+919876500003", model.ChannelSMS},
			{"+919876500004", model.ChannelWhatsApp},
			{"+919876500005", model.ChannelSMS},
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		for _, d := range demo {
			if _, err := users.RegisterOrTouch(ctx, d.phone, d.ch); err != nil {
				return fmt.Errorf("seed user %s: %w", d.phone, err)
			}
		}

		fmt.Printf(">> Seeded %d demo recipients\n", len(demo))
		return nil
	},
}
