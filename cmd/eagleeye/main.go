// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/eagle_eye/internal/app"
	"github.com/relabs-tech/eagle_eye/internal/config"
	"github.com/relabs-tech/eagle_eye/internal/gps"
	"github.com/relabs-tech/eagle_eye/internal/osgrid"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "eagleeye",
	Short: "Field dashboard: live GPS grid reference and camera object detection",
	Long: `Eagle Eye shows the newest GPS fix as an Ordnance Survey grid reference
next to a live camera view annotated with object detections.`,
	SilenceUsage: true,
	RunE:         runDashboard,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the dashboard",
	RunE:  runDashboard,
}

var gridrefCmd = &cobra.Command{
	Use:   "gridref [--] LAT LON",
	Short: "Print the OS grid reference for a WGS84 position",
	Long: `Print the OS grid reference for a WGS84 position given in decimal degrees.
Put "--" before the coordinates when one is negative, so it is not read as a
flag: "eagleeye gridref -- 51.5 -0.12".`,
	Example: "  eagleeye gridref 57.1497 2.0943\n  eagleeye gridref -- 51.5 -0.12",
	Args:    cobra.ExactArgs(2),
	RunE:    runGridref,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports a GPS receiver could be on",
	Args:  cobra.NoArgs,
	RunE:  runPorts,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "eagleeye_config.txt", "Config file path (.txt, .yaml or .yml)")
	rootCmd.AddCommand(runCmd, gridrefCmd, portsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Printf("starting eagle eye (GPS %s, vision %s)", cfg.GPSSerialPort, cfg.VisionSource)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.RunDashboard(ctx, cfg)
}

func parseLatLon(args []string) (lat, lon float64, err error) {
	lat, err = strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", args[0], err)
	}
	lon, err = strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", args[1], err)
	}
	return lat, lon, nil
}

func runGridref(cmd *cobra.Command, args []string) error {
	lat, lon, err := parseLatLon(args)
	if err != nil {
		return err
	}

	projector, err := osgrid.NewPROJProjector()
	if err != nil {
		return err
	}
	defer projector.Close()

	ref, err := osgrid.NewEncoder(projector).Encode(lat, lon)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ref.String())
	return nil
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := gps.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
