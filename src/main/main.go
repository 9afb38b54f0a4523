package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"snapclip/src/capture"
	"snapclip/src/clipboard"
	"snapclip/src/config"
	"snapclip/src/eventloop"
	"snapclip/src/host"
	"snapclip/src/hotkey"
	"snapclip/src/logutil"
	"snapclip/src/mousehook"
	"snapclip/src/runtimeinit"
	"snapclip/src/screenshot"
	"snapclip/src/singleinstance"
	"snapclip/src/tray"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const autotestDelay = 2 * time.Second

type mainOptions struct {
	envFile  string
	hotkey   string
	autotest bool
	noTray   bool
}

// commandSender is the part of singleinstance.Client used by subcommands.
type commandSender interface {
	Send(ctx context.Context, command string) (bool, string, error)
}

func main() {
	// Ensure DPI awareness before creating any windows or querying metrics,
	// so hook coordinates and grabbed pixels agree.
	enableDPIAwareness()

	// The tray message loop must stay on the main thread.
	runtime.LockOSThread()

	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(normalizeLegacyArgs(os.Args)[1:])
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Printf("snapclip: %v", err)
		fmt.Fprintf(os.Stderr, "snapclip: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "snapclip",
		Short:         "Drag a screen region after a global hotkey and copy it to the clipboard",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResident(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Path to a .env file (default: .env next to the executable, then $SNAPCLIP_ENV)")
	cmd.Flags().StringVar(&opts.hotkey, "hotkey", "", "Arm hotkey, e.g. Alt+Shift+A (overrides HOTKEY)")
	cmd.Flags().BoolVar(&opts.autotest, "autotest", false, "Start, then exit after two seconds")
	cmd.Flags().BoolVar(&opts.noTray, "no-tray", false, "Run without a tray icon")
	cmd.AddCommand(newExitCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	return cmd
}

func newExitCmd(opts *mainOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exit",
		Short: "Ask the running instance to exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadEnvOnly(opts)
			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			defer cancel()
			_, err := sendCommand(ctx, singleinstance.NewClient(), singleinstance.CommandExit)
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exit requested")
			}
			return err
		},
	}
}

func newStatusCmd(opts *mainOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the state of the running instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadEnvOnly(opts)
			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			defer cancel()
			text, err := sendCommand(ctx, singleinstance.NewClient(), singleinstance.CommandStatus)
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), text)
			}
			return err
		},
	}
}

// loadEnvOnly applies .env so SINGLEINSTANCE_PORT_* reach the client.
func loadEnvOnly(opts *mainOptions) {
	if _, err := config.LoadWithOptions(config.LoadOptions{EnvFileOverride: opts.envFile}); err != nil {
		log.Printf("Config: %v", err)
	}
}

var errNoResident = errors.New("no running instance found")

func sendCommand(ctx context.Context, client commandSender, command string) (string, error) {
	found, text, err := client.Send(ctx, command)
	if err != nil {
		return "", fmt.Errorf("%s: %w", strings.ToLower(command), err)
	}
	if !found {
		return "", errNoResident
	}
	return text, nil
}

// normalizeLegacyArgs maps single-dash long flags (-hotkey) to the GNU form cobra expects.
func normalizeLegacyArgs(args []string) []string {
	legacy := []string{"env-file", "hotkey", "autotest", "no-tray"}
	out := make([]string, len(args))
	copy(out, args)
	for i := 1; i < len(out); i++ {
		arg := out[i]
		for _, name := range legacy {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				out[i] = "-" + arg
				break
			}
		}
	}
	return out
}

func runResident(ctx context.Context, opts *mainOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			EnvFileOverride: opts.envFile,
			HotkeyOverride:  opts.hotkey,
			Autotest:        opts.autotest,
		},
		SetupLogging: logutil.Setup,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", capture.ErrStartupFatal, err)
	}
	log.Printf("SnapClip %s starting (pid %d)", version, os.Getpid())
	logMonitorConfiguration()
	screenshot.LogDisplays()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := singleinstance.NewServer()
	if err := srv.Start(ctx); err != nil {
		if errors.Is(err, singleinstance.ErrAlreadyRunning) {
			port, ok := singleinstance.DetectResidentPort(ctx)
			if !ok {
				port, _ = singleinstance.PortRange()
			}
			fmt.Printf("one is already running on port %d\n", port)
		}
		return fmt.Errorf("%w: %v", capture.ErrStartupFatal, err)
	}
	defer srv.Close()

	loop := eventloop.New()
	loop.Serve(srv)

	h := host.New(loop)
	if err := h.Start(); err != nil {
		return fmt.Errorf("%w: host: %v", capture.ErrStartupFatal, err)
	}
	defer h.Close()

	backend, encoder, err := clipboard.NewSystemBackend(h.Window())
	if err != nil {
		return fmt.Errorf("%w: %v", capture.ErrStartupFatal, err)
	}

	orch := capture.New(capture.Options{
		Arm:       rt.Arm,
		Cancel:    rt.Cancel,
		Hooks:     mousehook.NewController(h.Hooks()),
		Hotkeys:   hotkey.NewRegistrar(h.Hotkeys()),
		Grabber:   rt.Grabber,
		Clipboard: clipboard.NewWriter(backend, encoder, rt.Policy),
		Poster:    loop,
	})
	if err := orch.Start(); err != nil {
		return err
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-ch:
			log.Printf("Received %v, exiting", sig)
			loop.RequestExit()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()

	if rt.Config.Autotest {
		log.Printf("Autotest: exiting in %v", autotestDelay)
		time.AfterFunc(autotestDelay, loop.RequestExit)
	}

	if opts.noTray {
		return runLoop(ctx, loop, orch)
	}

	t := tray.New(tray.Config{
		Title:   "SnapClip",
		Tooltip: fmt.Sprintf("SnapClip - press %s to capture", rt.Arm),
		Version: version,
		OnExit:  loop.RequestExit,
	})
	loopErr := make(chan error, 1)
	go func() {
		loopErr <- runLoop(ctx, loop, orch)
		t.Quit()
	}()
	t.Run()
	return <-loopErr
}

func runLoop(ctx context.Context, loop *eventloop.Loop, orch *capture.Orchestrator) error {
	err := loop.Run(ctx, orch)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("event loop stopped: %v", err)
		return err
	}
	log.Printf("SnapClip stopped")
	return nil
}
