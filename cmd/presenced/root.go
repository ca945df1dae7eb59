// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/attendify/presence/internal/capture"
	"github.com/attendify/presence/internal/config"
	"github.com/attendify/presence/internal/daemon"
	"github.com/attendify/presence/internal/geofence"
	xglog "github.com/attendify/presence/internal/log"
	"github.com/attendify/presence/internal/version"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "presenced",
		Short:         "Live proof-of-presence daemon",
		Long:          "presenced samples a camera for face recognition and checks the operator's position against a geofence.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd(), newStreamURLCmd(), newDistanceCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			xglog.Configure(xglog.Config{Level: "info", Service: "presenced", Version: version.Version})
			if configPath == "" {
				configPath = config.ParseString(config.EnvConfigPath, "")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := daemon.Bootstrap(ctx, daemon.Options{ConfigPath: configPath, Version: version.Version})
			if err != nil {
				return err
			}
			return daemon.NewAppFromRuntime(rt).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func newStreamURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stream-url <address>",
		Short: "Print the normalized network camera stream URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := capture.NormalizeStreamAddress(args[0])
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), capture.UserMessage(err))
				return &exitError{code: 2, err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
}

func newDistanceCmd() *cobra.Command {
	def := config.Defaults().Geofence
	zone := geofence.Zone{CenterLat: def.CenterLat, CenterLng: def.CenterLng, RadiusM: def.RadiusM}

	cmd := &cobra.Command{
		Use:     "distance <lat> <lng>",
		Short:   "Classify a position against the reference zone",
		Example: "  presenced distance --center-lat 40.7128 --center-lng -74.006 --radius 500 -- 40.713 -74.0062",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := zone.Validate(); err != nil {
				return err
			}
			lat, err := parseCoord(args[0], 90)
			if err != nil {
				return fmt.Errorf("latitude: %w", err)
			}
			lng, err := parseCoord(args[1], 180)
			if err != nil {
				return fmt.Errorf("longitude: %w", err)
			}
			status, d := zone.Classify(geofence.Sample{Latitude: lat, Longitude: lng})
			fmt.Fprintf(cmd.OutOrStdout(), "%.1f m %s\n", d, status)
			return nil
		},
	}
	cmd.Flags().Float64Var(&zone.CenterLat, "center-lat", zone.CenterLat, "reference center latitude")
	cmd.Flags().Float64Var(&zone.CenterLng, "center-lng", zone.CenterLng, "reference center longitude")
	cmd.Flags().Float64Var(&zone.RadiusM, "radius", zone.RadiusM, "reference radius in meters")
	return cmd
}

func parseCoord(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("%v out of range", v)
	}
	return v, nil
}
