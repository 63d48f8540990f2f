package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tradelab/discord-trading/src/config"
	"github.com/tradelab/discord-trading/src/eventconsumers"
	"github.com/tradelab/discord-trading/src/eventproducers/adminapi"
	pubsub "github.com/tradelab/discord-trading/src/eventpubsub"
	"github.com/tradelab/discord-trading/src/eventservices"
	"github.com/tradelab/discord-trading/src/utils"
)

var rootCmd = &cobra.Command{
	Use:   "discord-trading",
	Short: "Discord alert-driven options trading bot",
	Long:  `Watches a Discord channel for trade alerts, converts them into signals, runs them through risk checks and submits bracket orders to TradeStation.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			log.Fatalf("error getting config flag: %v", err)
		}

		if err := run(configPath); err != nil {
			log.Fatalf("error running bot: %v", err)
		}
	},
}

func run(configPath string) error {
	if err := utils.InitEnvironmentVariables(); err != nil {
		return err
	}

	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Discord.Token == "" {
		return errors.New("run: discord token not provided in environment or config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := pubsub.NewBus()
	risk := eventservices.NewRiskManager(cfg.Risk)
	controls := eventservices.NewEmergencyControls(risk, cfg.Controls.MaxConsecutiveFailures)

	tsClient, err := eventservices.NewTradeStationClient(ctx, cfg.TradeStation)
	if err != nil {
		return err
	}

	eventconsumers.NewExecutionWorker(bus, tsClient, risk, cfg.Trade.Quantity)
	eventconsumers.NewBreakerWorker(bus, controls)
	eventconsumers.NewMetricsWorker(bus, risk, controls, prometheus.DefaultRegisterer)
	journal := eventconsumers.NewJournalWorker(bus, cfg.Journal.CsvPath)

	// The kill switch sits between the monitor and the bus: once the
	// breaker trips, alerts are suppressed before they reach the
	// execution worker.
	gated := pubsub.NewGatedPublisher(bus, controls.IsEnabled)

	router := mux.NewRouter()
	adminapi.SetupHandler(router.PathPrefix("/admin").Subrouter(), risk, controls)
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    cfg.Admin.Addr,
		Handler: router,
	}

	go func() {
		log.Infof("admin server listening on %s", cfg.Admin.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("admin server: %v", err)
		}
	}()

	wg := &sync.WaitGroup{}
	monitor := eventconsumers.NewDiscordMonitor(cfg.Discord.Token, cfg.Discord.ChannelID, gated)
	monitor.Start(ctx, wg)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("admin server shutdown: %v", err)
	}

	wg.Wait()

	if err := journal.Flush(); err != nil {
		log.Errorf("journal flush: %v", err)
	}

	return nil
}

func main() {
	rootCmd.Flags().String("config", "config.yaml", "path to the YAML config file")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
