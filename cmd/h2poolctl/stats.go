package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mtlabs/h2pool/internal/obs"
	"github.com/mtlabs/h2pool/streammgr"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Acquire one stream against the target and print pool occupancy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger := obs.New(obs.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
		defer logger.Sync()

		connMgr := streammgr.NewTCPConnectionManager(
			cfg.Target.Addr,
			streammgr.SocketOptions{ConnectTimeout: 5 * time.Second},
			streammgr.TLSOptions{ServerName: cfg.Target.ServerName},
			logger,
		)

		var occ streammgr.Occupancy
		monitor := monitorFunc(func(o streammgr.Occupancy) { occ = o })
		manager := streammgr.NewManager(streammgr.ManagerOptions{
			ConnectionManager:          connMgr,
			AssumeMaxConcurrentStreams: cfg.Pool.AssumeMaxConcurrentStreams,
			Monitor:                    monitor,
			Logger:                     logger,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result := make(chan error, 1)
		manager.AcquireStream(ctx, streammgr.AcquireStreamOptions{
			Request: &streammgr.Request{Method: "GET", Path: "/"},
		}, func(s streammgr.Stream, err error) {
			result <- err
		})

		select {
		case err := <-result:
			if err != nil {
				return fmt.Errorf("acquiring stream: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}

		fmt.Printf("open_connections=%d streams_open=%d pending_acquisitions=%d pending_connection_requests=%d\n",
			occ.OpenConnections, occ.StreamsOpen, occ.PendingAcquisitions, occ.PendingConnectionReq)

		done := make(chan struct{})
		manager.Shutdown(func() { close(done) })
		<-done
		return nil
	},
}

type monitorFunc func(streammgr.Occupancy)

func (f monitorFunc) ObserveOccupancy(occ streammgr.Occupancy) { f(occ) }

func init() {
	rootCmd.AddCommand(statsCmd)
}
