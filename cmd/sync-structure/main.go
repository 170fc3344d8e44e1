package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"heatmanager-data/internal/config"
	"heatmanager-data/internal/database"
	"heatmanager-data/internal/logger"
	"heatmanager-data/internal/repository"
	"heatmanager-data/internal/service"
	"heatmanager-data/internal/store"
	"heatmanager-data/internal/thingsboard"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tokenFlag string

var rootCmd = &cobra.Command{
	Use:   "sync-structure <customer-id>",
	Short: "Rebuilds a customer's asset tree from ThingsBoard and stores the snapshot.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSync,
}

func init() {
	rootCmd.Flags().StringVarP(&tokenFlag, "token", "t", "", "ThingsBoard bearer token (default: stored customer token, then THINGSBOARD_TOKEN)")
	rootCmd.SilenceUsage = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	customerID := args[0]
	if _, err := uuid.Parse(customerID); err != nil {
		return fmt.Errorf("customer id %q is not a valid UUID", customerID)
	}

	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "sync-structure")
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer database.Close(db)

	settingsRepo := repository.NewPostgresCustomerSettingsRepository(db)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	token := tokenFlag
	if token == "" {
		stored, err := settingsRepo.GetToken(ctx, customerID)
		switch {
		case err == nil:
			token = stored
		case errors.Is(err, repository.ErrNotFound):
			token = cfg.ThingsBoard.Token
		default:
			return fmt.Errorf("stored token lookup failed: %w", err)
		}
	}
	if token == "" {
		return fmt.Errorf("no ThingsBoard token: pass --token, store one for the customer, or set THINGSBOARD_TOKEN")
	}

	structureLog := service.NewStructureLog(cfg.StructureLog, log)
	defer structureLog.Close()

	deviceCache := store.NewDeviceCache(nil, log)
	tbClient := thingsboard.NewClient(cfg.ThingsBoard.URL, log)
	syncService := service.NewSyncService(tbClient, settingsRepo, deviceCache, structureLog, log)

	result, err := syncService.Sync(ctx, customerID, token)
	if err != nil {
		log.Error("synchronization failed", zap.String("customer_id", customerID), zap.Error(err))
		return err
	}

	summary, _ := json.MarshalIndent(result.Summary, "", "  ")
	fmt.Printf("Synchronization %s completed for customer %s\n%s\n", result.SessionID, customerID, summary)
	return nil
}
