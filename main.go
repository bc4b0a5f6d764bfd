package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"plcdb/beamclass"
	"plcdb/config"
	"plcdb/discovery"
	"plcdb/export"
	"plcdb/fileops"
	"plcdb/journal"
	"plcdb/transport"
)

const (
	exitFailure  = 1
	exitMismatch = 2
)

// errMismatch marks a successful comparison whose sides differ.
var errMismatch = errors.New("contents differ")

type app struct {
	cfg    *config.Config
	client *fileops.Client
	store  *journal.Store
	log    zerolog.Logger
}

func main() {
	cfgPath := flag.String("config", "", "explicit config file")
	timeout := flag.Duration("timeout", 0, "per-connection dial timeout override")
	limit := flag.Int("limit", 20, "history rows to show")
	line := flag.String("line", "", "accelerator line for decode (l or k)")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	logger := newLogger(*verbose)

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(exitFailure)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	var store *journal.Store
	if cfg.JournalPath != "" {
		store, err = journal.OpenPath(cfg.JournalPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.JournalPath).Msg("journal unavailable")
		} else {
			defer store.Close()
		}
	}

	client := fileops.NewClient(fileops.ClientOptions{
		Transport: transportOptions(cfg, *timeout),
		Journal:   store,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, client: client, store: store, log: logger}

	cmd, cmdArgs := args[0], args[1:]
	var cmdErr error
	switch cmd {
	case "list", "ls":
		cmdErr = a.cmdList(ctx, cmdArgs)
	case "download", "get":
		cmdErr = a.cmdDownload(ctx, cmdArgs)
	case "upload", "put":
		cmdErr = a.cmdUpload(ctx, cmdArgs)
	case "compare":
		cmdErr = a.cmdCompare(ctx, cmdArgs)
	case "diff":
		cmdErr = a.cmdDiff(ctx, cmdArgs)
	case "show":
		cmdErr = a.cmdShow(ctx, cmdArgs)
	case "probe":
		cmdErr = a.cmdProbe(cmdArgs)
	case "discover":
		cmdErr = a.cmdDiscover(ctx)
	case "history":
		cmdErr = a.cmdHistory(cmdArgs, *limit)
	case "exports":
		cmdErr = a.cmdExports()
	case "classes":
		cmdErr = a.cmdClasses()
	case "decode":
		cmdErr = a.cmdDecode(cmdArgs, *line)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitFailure)
	}

	if cmdErr != nil {
		if errors.Is(cmdErr, errMismatch) {
			os.Exit(exitMismatch)
		}
		logger.Error().Err(cmdErr).Str("command", cmd).Msg("command failed")
		os.Exit(exitFailure)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func transportOptions(cfg *config.Config, timeout time.Duration) func(string) transport.Options {
	return func(host string) transport.Options {
		opts := cfg.Transport(host)
		if timeout > 0 {
			opts.DialTimeout = timeout
		}
		return opts
	}
}

func (a *app) cmdList(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: plcdb list <host>")
	}
	files, err := a.client.ListFileInfo(ctx, args[0])
	if err != nil {
		return err
	}
	for _, file := range files {
		fmt.Printf("%s uploaded at %s (%d bytes)\n", file.Filename, file.LastChanged.Format(time.ANSIC), file.SizeBytes)
	}
	return nil
}

func (a *app) cmdDownload(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: plcdb download <host> [remote-file]")
	}
	host := args[0]
	remoteName := fileops.HostFilename(host)
	if len(args) == 2 {
		remoteName = args[1]
	}
	text, err := a.client.DownloadText(ctx, host, remoteName)
	if err != nil {
		return err
	}
	file, err := export.Write(a.cfg.ExportDir, host, []byte(text), time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("saved %s\n", file.Path)
	return nil
}

func (a *app) cmdUpload(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return errors.New("usage: plcdb upload <host> [local-file] [remote-file]")
	}
	host := args[0]
	localPath := ""
	remoteName := ""
	if len(args) == 1 {
		latest, err := export.LatestFor(a.cfg.ExportDir, host)
		if err != nil {
			return err
		}
		localPath = latest.Path
		remoteName = fileops.HostFilename(host)
	} else {
		localPath = args[1]
		if len(args) == 3 {
			remoteName = args[2]
		}
	}
	if err := a.client.Upload(ctx, host, localPath, remoteName); err != nil {
		return err
	}
	fmt.Printf("uploaded %s\n", localPath)
	return nil
}

func (a *app) cmdCompare(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: plcdb compare <host> <local-file>")
	}
	equal, err := a.client.Compare(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if !equal {
		fmt.Println("files differ")
		return errMismatch
	}
	fmt.Println("files match")
	return nil
}

func (a *app) cmdDiff(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: plcdb diff <host> <local-file>")
	}
	diff, err := a.client.CompareContents(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if len(diff.Findings) == 0 {
		fmt.Println("contents match")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tKIND\tFIELD\tLOCAL\tREMOTE")
	for _, finding := range diff.Findings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", finding.Path, finding.Kind, finding.Field, finding.ValueA, finding.ValueB)
	}
	w.Flush()
	return errMismatch
}

func (a *app) cmdShow(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: plcdb show <host>")
	}
	host := args[0]
	contents, err := a.client.DownloadJSON(ctx, host, fileops.HostFilename(host))
	if err != nil {
		return err
	}
	fmt.Printf("PLC %s\n", contents.PLCName)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tSTATE\tRATE\tTRANS\tBEAM CLASSES")
	for _, device := range slices.Sorted(maps.Keys(contents.Devices)) {
		states := contents.Devices[device]
		for _, state := range slices.Sorted(maps.Keys(states)) {
			params := states[state]
			classes := strings.ReplaceAll(params.BeamClassRange.Description, "\n", ", ")
			fmt.Fprintf(w, "%s\t%s\t%d\t%g\t%s\n", device, state, params.RateLimit, params.TransmissionLimit, classes)
		}
	}
	return w.Flush()
}

func (a *app) cmdProbe(args []string) error {
	hosts := args
	if len(hosts) == 0 {
		hosts = slices.Sorted(maps.Keys(a.cfg.PLCs))
	}
	if len(hosts) == 0 {
		return errors.New("usage: plcdb probe <host> [host...]")
	}
	for _, host := range hosts {
		status := "offline"
		if transport.Probe(host, a.cfg.Transport(host)) {
			status = "online"
		}
		line := fmt.Sprintf("%s\t%s", host, status)
		if a.store != nil {
			if op, err := a.store.LastUpload(host, fileops.HostFilename(host)); err == nil {
				line += fmt.Sprintf("\tlast upload %s", time.UnixMilli(op.FinishedAt).Format(time.DateTime))
			}
		}
		fmt.Println(line)
	}
	return nil
}

func (a *app) cmdDiscover(ctx context.Context) error {
	endpoints, err := discovery.Scan(ctx, discovery.Config{
		ScanTimeout: a.cfg.ScanTimeout,
		Logger:      a.log,
	})
	if err != nil {
		return err
	}
	if len(endpoints) == 0 {
		fmt.Println("no controllers found")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HOST\tADDR\tPORT\tPROTOCOL")
	for _, endpoint := range endpoints {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", endpoint.Host, endpoint.Addr, endpoint.Port, endpoint.Protocol)
	}
	return w.Flush()
}

func (a *app) cmdHistory(args []string, limit int) error {
	if a.store == nil {
		return errors.New("journaling is disabled")
	}
	if len(args) > 1 {
		return errors.New("usage: plcdb history [host]")
	}
	host := ""
	if len(args) == 1 {
		host = args[0]
	}
	ops, err := a.store.RecentForHost(host, limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tHOST\tVERB\tFILE\tBYTES\tSTATUS\tDETAIL")
	for _, op := range ops {
		started := time.UnixMilli(op.StartedAt).Format(time.Stamp)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			started, op.Host, op.Verb, op.Filename, op.SizeBytes, op.Status, op.Detail)
	}
	return w.Flush()
}

func (a *app) cmdExports() error {
	files, err := export.List(a.cfg.ExportDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("no exports")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLC\tSTAMP\tPATH")
	for _, file := range files {
		fmt.Fprintf(w, "%s\t%s\t%s\n", file.PLC, file.Stamp.Format(time.DateTime), file.Path)
	}
	return w.Flush()
}

func (a *app) cmdClasses() error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tRATE\tCURRENT\tPOWER\tNOTES")
	for _, class := range beamclass.Classes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			class.Index, class.Name, fmtCount(class.MaxRate), fmtLimit(class.Current), fmtLimit(class.Power), class.Notes)
	}
	return w.Flush()
}

func (a *app) cmdDecode(args []string, line string) error {
	if len(args) != 1 {
		return errors.New("usage: plcdb decode [-line l|k] <binary-mask>")
	}
	mask, err := beamclass.ParseMask(args[0])
	if err != nil {
		return err
	}
	if line != "" {
		desc, err := beamclass.DecodeEnergyMask(mask, rune(line[0]))
		if err != nil {
			return err
		}
		fmt.Println(desc)
		return nil
	}
	fmt.Println(beamclass.DecodeBeamClassMask(mask))
	return nil
}

func fmtLimit(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

func fmtCount(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func printUsage() {
	fmt.Println(`plcdb - PLC configuration database tool

Usage: plcdb [flags] <command> [args]

Commands:
  list <host>                      list deployed files on a controller
  download <host> [remote-file]    download a database into the export directory
  upload <host> [local] [remote]   deploy a database file (newest export when no file given)
  compare <host> <local-file>      byte-compare a local file with its deployed copy
  diff <host> <local-file>         structurally compare a local database with the deployed one
  show <host>                      print the deployed database with decoded masks
  probe [host...]                  check which controllers answer on their file port
  discover                         find controllers announcing file services via mDNS
  history [host]                   show recent operations from the journal
  exports                          list saved exports, newest first
  classes                          print the beam class table
  decode <binary-mask>             decode a beam class mask (-line l|k for energy masks)

Flags:
  -config <path>    explicit config file
  -timeout <dur>    per-connection dial timeout override
  -limit <n>        history rows to show (default 20)
  -line <l|k>       accelerator line for decode
  -verbose          debug logging`)
}
