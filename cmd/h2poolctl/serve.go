package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/mtlabs/h2pool/internal/obs"
	"github.com/mtlabs/h2pool/streammgr"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// occupancyMonitor adapts the latest Occupancy snapshot into something the
// periodic cron job can read without taking the manager's own lock.
type occupancyMonitor struct {
	latest atomic.Value // streammgr.Occupancy
}

func (m *occupancyMonitor) ObserveOccupancy(occ streammgr.Occupancy) {
	m.latest.Store(occ)
}

func (m *occupancyMonitor) snapshot() (streammgr.Occupancy, bool) {
	v := m.latest.Load()
	if v == nil {
		return streammgr.Occupancy{}, false
	}
	return v.(streammgr.Occupancy), true
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the connection pool and log periodic occupancy reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger := obs.New(obs.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
		defer logger.Sync()

		connMgr := streammgr.NewTCPConnectionManager(
			cfg.Target.Addr,
			streammgr.SocketOptions{},
			streammgr.TLSOptions{ServerName: cfg.Target.ServerName},
			logger,
		)

		monitor := &occupancyMonitor{}
		manager := streammgr.NewManager(streammgr.ManagerOptions{
			ConnectionManager:          connMgr,
			AssumeMaxConcurrentStreams: cfg.Pool.AssumeMaxConcurrentStreams,
			Monitor:                    monitor,
			Logger:                     logger,
		})

		c := cron.New()
		if _, err := c.AddFunc(cfg.ReportSchedule, func() {
			occ, ok := monitor.snapshot()
			if !ok {
				logger.Info("pool occupancy: no activity yet")
				return
			}
			logger.Info("pool occupancy",
				zap.Int("open_connections", occ.OpenConnections),
				zap.Int("streams_open", occ.StreamsOpen),
				zap.Int("pending_acquisitions", occ.PendingAcquisitions),
				zap.Int("pending_connection_requests", occ.PendingConnectionReq),
			)
		}); err != nil {
			return fmt.Errorf("scheduling occupancy report: %w", err)
		}
		c.Start()
		defer c.Stop()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		logger.Info("h2poolctl serving", zap.String("target", cfg.Target.Addr))
		<-ctx.Done()

		logger.Info("shutting down")
		done := make(chan struct{})
		manager.Shutdown(func() { close(done) })
		<-done
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
