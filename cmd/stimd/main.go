package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"regexp"
	"runtime"

	"github.com/mdouchement/logger"
	"github.com/mdouchement/stimd"
	showports "github.com/mdouchement/stimd/cmd/stimd/show_ports"
	showramps "github.com/mdouchement/stimd/cmd/stimd/show_ramps"
	"github.com/mdouchement/stimd/firmware"
	"github.com/mdouchement/stimd/stimpico"
	"github.com/spf13/cobra"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cpath string
	dummy bool
	sim   bool
)

func main() {
	cmd := &cobra.Command{
		Use:     "stimd",
		Short:   "A controller for Pico-driven stimulator switchbox hardware",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    cobra.NoArgs,
		RunE:    daemon,
	}
	cmd.Flags().StringVarP(&cpath, "config", "c", "/etc/stimd/stimd.yml", "Configfile path")
	cmd.Flags().BoolVarP(&dummy, "dummy", "", false, "Start stimd with a dummy stimulator")
	cmd.Flags().BoolVarP(&sim, "sim", "", false, "Start stimd against an in-process simulated switchbox")
	cmd.AddCommand(showramps.Command())
	cmd.AddCommand(showports.Command())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Version for stimd",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(cmd.Version)
		},
	})

	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func daemon(_ *cobra.Command, args []string) error {
	cfg, err := stimd.Load(cpath)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	h := logger.NewSlogTextHandler(os.Stdout, &logger.SlogTextOption{
		Level:            level,
		ForceColors:      true,
		ForceFormatting:  true,
		PrefixRE:         regexp.MustCompile(`^(\[.*?\])\s`),
		DisableTimestamp: true, // Provided by journalctl
	})
	log := logger.WrapSlogHandler(h)
	ctx := logger.WithLogger(context.Background(), log)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Infof("stimd version %s", version)

	stim, err := stimulator(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stim.Close()

	log.Infof("Stimulator port `%s`", stim.Port())
	log.Infof("Electrodes: %s mode, %d channel(s)", cfg.Electrode.Mode, cfg.Electrode.Count)

	controler, err := stimd.New(cfg, stim)
	if err != nil {
		return err
	}
	controler.Launch(ctx)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	<-ctx.Done()
	cancel()

	log.Info("Gracefully shutdown")
	return nil
}

func stimulator(ctx context.Context, cfg stimd.Config, log logger.Logger) (stimd.Stimulator, error) {
	if dummy {
		stim := stimd.NewDummyStimulator()
		if cfg.Debug {
			stim.SetLogger(log)
		}
		return stim, nil
	}

	if sim {
		host, device := net.Pipe()

		board := firmware.NewSimBoard()
		loop := firmware.New(device, board)
		if cfg.Debug {
			loop.SetLogger(log)
		}
		go loop.Run(ctx)

		log.Info("Simulated switchbox started")
		return stimpico.NewClient(host), nil
	}

	var client *stimpico.Client
	var err error
	if cfg.Port == "" {
		client, err = stimpico.OpenAuto()
	} else {
		client, err = stimpico.Open(cfg.Port)
	}
	if err != nil {
		return nil, fmt.Errorf("stimpico: %w", err)
	}

	if cfg.Debug {
		client.SetLogger(log)
	}
	return client, nil
}
