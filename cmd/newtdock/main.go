package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/wonderivan/logger"
	"go.bug.st/serial"

	"github.com/xiwh/newtdock/newtdock"
)

var version = "0.1"

func main() {
	root := &cobra.Command{
		Use:     "newtdock",
		Short:   "Install packages on a Newton device over a serial dock link",
		Version: version,
		Long: `newtdock speaks the serial docking protocol a Newton uses to receive
application packages. Start an install, then tap "Connect over serial"
on the device.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(portsCmd(), installCmd())
	if err := root.Execute(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List available serial ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := serial.GetPortsList()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("no serial ports found")
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func installCmd() *cobra.Command {
	var (
		port    string
		baud    int
		timeout time.Duration
		retries int
	)
	cmd := &cobra.Command{
		Use:   "install <package.pkg>...",
		Short: "Push one or more packages to a waiting device",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgs := make([]*newtdock.Package, 0, len(args))
			for _, path := range args {
				pkg, err := newtdock.LoadPackage(path)
				if err != nil {
					return err
				}
				if !pkg.Valid() {
					logger.Warn("%s does not look like a Newton package, sending anyway", pkg.Name)
				}
				pkgs = append(pkgs, pkg)
			}

			stream, err := serial.Open(port, &serial.Mode{BaudRate: baud})
			if err != nil {
				return fmt.Errorf("opening %s: %w", port, err)
			}
			logger.Info("port %s opened at %d baud", port, baud)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			lastPct := -1
			session := newtdock.New(newtdock.Consumer{
				NextPackage: newtdock.Queue(pkgs...),
				OnProgress: func(fraction float64) {
					pct := int(fraction * 100)
					if pct/10 != lastPct/10 {
						logger.Info("progress %d%%", pct)
					}
					lastPct = pct
				},
				OnLog: func(msg string) {
					logger.Info(msg)
				},
			},
				newtdock.WithReadTimeout(timeout),
				newtdock.WithAckRetries(retries),
			)

			result, err := session.Run(ctx, stream)
			if err != nil {
				return err
			}
			logger.Info("installed %d package(s)", result.PackagesSent)
			return nil
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "serial port device")
	cmd.Flags().IntVarP(&baud, "baud", "b", 38400, "baud rate")
	cmd.Flags().DurationVar(&timeout, "timeout", newtdock.DefaultReadTimeout, "wait per peer reply")
	cmd.Flags().IntVar(&retries, "retries", 0, "resends after an acknowledgement timeout")
	_ = cmd.MarkFlagRequired("port")
	return cmd
}
