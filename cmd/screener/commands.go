package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"DipScreener/internal/logger"
	"DipScreener/internal/model"
	"DipScreener/internal/notifier"
	"DipScreener/internal/recorder"
	"DipScreener/internal/report"
	"DipScreener/internal/scheduler"
	"DipScreener/internal/screener"
	"DipScreener/internal/universe"
)

func newRootCmd() *cobra.Command {
	var cfgPath, logLevel string
	app := &App{}

	root := &cobra.Command{
		Use:          "screener",
		Short:        "BIST dip and volume-surge stock screener",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if v := os.Getenv("CONFIG_PATH"); v != "" && !cmd.Flags().Changed("config") {
				cfgPath = v
			}
			a, err := newApp(cfgPath, logLevel)
			if err != nil {
				return err
			}
			*app = *a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "configs/config.yaml", "Path to the YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(newScanCmd(app))
	root.AddCommand(newChartCmd(app))
	root.AddCommand(newSymbolsCmd(app))
	root.AddCommand(newServeCmd(app))
	return root
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newScanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the symbol universe with the configured filters",
		Example: `  screener scan
  screener scan --format json --out out/scan.json
  screener scan --symbols THYAO,GARAN --rsi-below 35`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			format, _ := cmd.Flags().GetString("format")
			if format == "" {
				format = app.Config.Output.Format
			}
			outPath, _ := cmd.Flags().GetString("out")
			codes, _ := cmd.Flags().GetStringSlice("symbols")
			noRecord, _ := cmd.Flags().GetBool("no-record")
			notify, _ := cmd.Flags().GetBool("notify")

			filter := app.Filter
			if cmd.Flags().Changed("extras") {
				filter.Extras, _ = cmd.Flags().GetBool("extras")
			}
			if cmd.Flags().Changed("rsi-below") {
				filter.UseRSI = true
				filter.RSIMode = screener.RSIModeBelow
				filter.RSIThreshold, _ = cmd.Flags().GetFloat64("rsi-below")
			}
			if cmd.Flags().Changed("ceiling") {
				pct, _ := cmd.Flags().GetFloat64("ceiling")
				filter.CeilingChangeThreshold = screener.Ceiling(pct)
			}

			var symbols []string
			if len(codes) > 0 {
				symbols = universe.Dedup(codes, app.Config.DataSource.Suffix)
			} else {
				var err error
				if symbols, err = app.Universe.Symbols(ctx); err != nil {
					return fmt.Errorf("load universe: %w", err)
				}
			}

			app.Screener.OnResult = func(r model.ScanResult) {
				logger.Debug("match %s close=%.2f ratio=%.2f", r.Symbol, r.Close, r.VolumeRatio)
			}
			rep, scanErr := app.Screener.Scan(ctx, symbols, filter)
			if rep == nil {
				return scanErr
			}

			if !noRecord {
				rec := app.newRecorder()
				if err := rec.RecordScan(recorder.NewScanRun(rep, recorder.TriggerCLI, scanErr)); err != nil {
					logger.Error("record scan: %v", err)
				}
				rec.Close()
			}

			w := cmd.OutOrStdout()
			if outPath != "" {
				f, err := createFile(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := writeReport(w, format, rep, app); err != nil {
				return err
			}

			if notify {
				if err := sendReport(ctx, app, rep); err != nil {
					logger.Error("send report: %v", err)
				}
			}
			return scanErr
		},
	}
	cmd.Flags().StringP("format", "f", "", "Output format: table, json or csv (default from config)")
	cmd.Flags().StringP("out", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringSlice("symbols", nil, "Scan these codes instead of the configured universe")
	cmd.Flags().Bool("extras", false, "Compute market breadth and Supertrend")
	cmd.Flags().Float64("rsi-below", 30, "Enable the RSI filter with this threshold")
	cmd.Flags().Float64("ceiling", 9.5, "Enable the ceiling-day filter with this change %")
	cmd.Flags().Bool("no-record", false, "Do not write the run to the audit log")
	cmd.Flags().Bool("notify", false, "Also send the report to Telegram")
	return cmd
}

func writeReport(w io.Writer, format string, rep *screener.Report, app *App) error {
	switch strings.ToLower(format) {
	case "json":
		return report.WriteJSON(w, rep)
	case "csv":
		return report.WriteCSV(w, rep.Results)
	case "table", "":
		return report.NewTerminal(w, app.refStore()).Render(rep)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func sendReport(ctx context.Context, app *App, rep *screener.Report) error {
	tg := app.Config.Telegram
	if !tg.Enabled {
		return errors.New("telegram is not enabled")
	}
	tn, err := notifier.NewTelegramNotifier(tg.BotToken, tg.ChatID, app.Config.Proxy, tg.MaxRetries, tg.RetryDelay)
	if err != nil {
		return err
	}
	return tn.Send(ctx, notifier.FormatScanReport(rep, app.refStore()))
}

func newChartCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart <symbol>",
		Short: "Render an HTML technical chart for one symbol",
		Example: `  screener chart THYAO
  screener chart ASELS --out asels.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			symbol := universe.Normalize(args[0], app.Config.DataSource.Suffix)
			extras, _ := cmd.Flags().GetBool("extras")
			outPath, _ := cmd.Flags().GetString("out")
			if outPath == "" {
				outPath = filepath.Join(app.Config.Output.Dir, universe.BaseCode(symbol)+".html")
			}

			table, err := app.Screener.Detail(ctx, symbol, extras || app.Filter.Extras)
			if err != nil {
				return err
			}
			f, err := createFile(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := report.WriteChart(f, table); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chart written to %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "Output HTML path (default <output.dir>/<CODE>.html)")
	cmd.Flags().Bool("extras", true, "Overlay Supertrend")
	return cmd
}

func newSymbolsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols",
		Short: "List the symbol universe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			symbols, err := app.Universe.Symbols(ctx)
			if err != nil {
				return err
			}
			for _, s := range universe.Sorted(symbols) {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daily scan on schedule and answer Telegram commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			rec := app.newRecorder()
			defer rec.Close()

			var sender notifier.Sender
			var tn *notifier.TelegramNotifier
			if tg := app.Config.Telegram; tg.Enabled {
				var err error
				tn, err = notifier.NewTelegramNotifier(tg.BotToken, tg.ChatID, app.Config.Proxy, tg.MaxRetries, tg.RetryDelay)
				if err != nil {
					return fmt.Errorf("init telegram: %w", err)
				}
				sender = tn
			} else {
				logger.Warn("telegram disabled, scan reports are only logged")
			}

			sched := scheduler.NewScheduler(ctx, app.Screener, app.Universe, app.Refs, app.Filter,
				app.Config.DataSource.Suffix, sender, rec, app.location())
			if err := sched.Register(app.Config.Schedule.ScanCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			var wg sync.WaitGroup
			defer wg.Wait()
			if tn != nil {
				wg.Add(1)
				go func() {
					defer wg.Done()
					tn.ListenForCommands(ctx, sched.HandleCommand)
				}()
			}

			runOnStart, _ := cmd.Flags().GetBool("run-on-start")
			if runOnStart || os.Getenv("RUN_ON_START") == "true" {
				logger.Info("run-on-start enabled, executing scan now")
				sched.RunScanAsync(ctx, recorder.TriggerCLI)
			}

			logger.Info("screener is running, press Ctrl+C to stop")
			<-ctx.Done()
			logger.Info("shutdown signal received, stopping")
			return nil
		},
	}
	cmd.Flags().Bool("run-on-start", false, "Run one scan immediately")
	return cmd
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
