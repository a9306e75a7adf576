package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"iconch/audio"
	"iconch/conch"
	"iconch/config"
	"iconch/doctor"
	"iconch/hotkey"
	"iconch/log"
	"iconch/shutdown"
	"iconch/sounds"
)

var version = "dev"

// cliFlags is the parsed command line. set records which flags were given
// explicitly, so only those override the config file and environment.
type cliFlags struct {
	ui         string
	device     string
	configPath string
	logPath    string
	volume     float64
	hold       time.Duration
	setup      bool
	version    bool
	doctor     bool
	test       bool
	args       []string

	set map[string]bool
}

func parseFlags(args []string, output io.Writer) (*cliFlags, error) {
	fs := flag.NewFlagSet("iconch", flag.ContinueOnError)
	fs.SetOutput(output)

	f := &cliFlags{set: map[string]bool{}}
	fs.StringVar(&f.ui, "ui", "tui", "Interface: tui, gui or none (headless, hotkey only)")
	fs.StringVar(&f.device, "device", "", "Use named microphone device")
	fs.StringVar(&f.configPath, "config", "", "Config file path (default: OS config dir/iconch/config.toml)")
	fs.StringVar(&f.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	fs.Float64Var(&f.volume, "volume", 1, "Playback volume, 0 < v <= 1")
	fs.DurationVar(&f.hold, "hold", 350*time.Millisecond, "Hotkey hold threshold: shorter presses toggle, longer ones conch until release")
	fs.BoolVar(&f.setup, "setup", false, "Select microphone device (otherwise uses system default)")
	fs.BoolVar(&f.version, "version", false, "Print version and exit")
	fs.BoolVar(&f.doctor, "doctor", false, "Run system diagnostics and exit")
	fs.BoolVar(&f.test, "test", false, "Test mode (headless, stdin-driven); takes a WAV file argument")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	f.args = fs.Args()
	return f, nil
}

// loadConfig layers defaults, the config file, ICONCH_* variables and
// explicit flags, then validates the result.
func loadConfig(ctx context.Context, f *cliFlags) (config.Config, error) {
	loader := config.Loader{Path: f.configPath}
	if loader.Path == "" {
		path, err := config.DefaultPath()
		if err == nil {
			loader.Path = path
		}
		loader.Optional = true
	}
	cfg, err := loader.Load(ctx)
	if err != nil {
		return config.Config{}, err
	}

	if f.set["ui"] {
		cfg.UI = f.ui
	}
	if f.set["device"] {
		cfg.Device = f.device
	}
	if f.set["logpath"] {
		cfg.LogPath = f.logPath
	}
	if f.set["volume"] {
		cfg.Volume = f.volume
	}
	if f.set["hold"] {
		cfg.HoldThreshold = f.hold
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// startup is everything main needs before picking an interface.
type startup struct {
	cfg   config.Config
	flags *cliFlags
}

// boot parses flags, loads config and opens the logs. It exits the process
// itself for -version, -doctor and configuration errors.
func boot() *startup {
	f, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if f.version {
		fmt.Printf("iconch %s\n", version)
		os.Exit(0)
	}

	cfg, err := loadConfig(context.Background(), f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if f.doctor {
		os.Exit(doctor.Run(doctor.Options{Device: cfg.Device, Volume: cfg.Volume}))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	log.Infof("iconch %s starting: ui=%s volume=%.2f", version, cfg.UI, cfg.Volume)
	return &startup{cfg: cfg, flags: f}
}

// initCrashLog sends fatal runtime errors to crash_log.txt next to the
// diagnostics log.
func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

// resolveDevice picks the capture device: the interactive picker with
// -setup, otherwise the configured name. Failures fall back to the default.
func resolveDevice(ctx audio.Context, cfg config.Config, setup bool) *audio.DeviceInfo {
	if setup {
		dev, err := audio.SelectDevice(ctx)
		if errors.Is(err, audio.ErrPickCancelled) {
			os.Exit(0)
		}
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			return nil
		}
		return dev
	}
	dev, err := audio.FindDevice(ctx, cfg.Device)
	if err != nil {
		log.Warnf("%v, using default device", err)
		fmt.Fprintf(os.Stderr, "Warning: %v, using default device\n", err)
		return nil
	}
	return dev
}

// conchApp is the wired core shared by every interface.
type conchApp struct {
	player  *conch.Player
	monitor *conch.Monitor
}

func newConchApp(ctx audio.Context, clips conch.ClipSource, cfg config.Config, device *audio.DeviceInfo, sink EventSink, post func(func())) *conchApp {
	player := conch.NewPlayer(ctx, clips, conch.WithVolume(cfg.Volume))
	opts := append(monitorOptions(sink, post), conch.WithDevice(device))
	return &conchApp{
		player:  player,
		monitor: conch.NewMonitor(ctx, player, opts...),
	}
}

func (a *conchApp) stop() {
	a.monitor.Stop()
	a.player.Stop()
}

// bindHotkey drives the monitor from chord presses until the returned
// function is called. A press starts conching if it is off; a tap that did
// not start it stops it, and releasing a hold always stops it.
func bindHotkey(hk hotkey.Hotkey, hold time.Duration, monitor *conch.Monitor) func() {
	trigger := hotkey.NewTrigger(hk, hold)
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		started := false
		for {
			select {
			case ev := <-trigger.Events():
				log.Info("hotkey_" + ev.String())
				switch ev {
				case hotkey.Press:
					started = !monitor.Running()
					if started {
						monitor.Start()
					}
				case hotkey.Tap:
					if !started {
						monitor.Stop()
					}
				case hotkey.HoldRelease:
					monitor.Stop()
				}
			case <-quit:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			trigger.Close()
			close(quit)
			<-done
		})
	}
}

func loadClips() *sounds.Bank {
	bank := sounds.NewBank()
	if err := bank.Preload(); err != nil {
		// the player reports the same failure on every transition that hits it
		log.Errorf("clip preload failed: %v", err)
	}
	return bank
}

func run(s *startup) {
	if s.flags.test {
		if len(s.flags.args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: iconch -test <wav-file>")
			os.Exit(1)
		}
		runTestMode(s.flags.args[0], s.cfg)
		return
	}

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	device := resolveDevice(ctx, s.cfg, s.flags.setup)
	clips := loadClips()

	switch s.cfg.UI {
	case "none":
		runHeadless(ctx, clips, s.cfg, device)
	default:
		runTUI(ctx, clips, s.cfg, device)
	}
	log.Close()
}

func runTUI(ctx audio.Context, clips conch.ClipSource, cfg config.Config, device *audio.DeviceInfo) {
	sink := &tuiSink{}
	app := newConchApp(ctx, clips, cfg, device, sink, func(fn func()) { fn() })
	program := NewTUIProgram(app.monitor, ctx)
	sink.p = program

	unbind := func() {}
	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Warnf("hotkey register error: %v", err)
	} else {
		defer hk.Unregister()
		unbind = bindHotkey(hk, cfg.HoldThreshold, app.monitor)
	}

	defer shutdown.OnSignal(program.Quit)()

	go sink.DeviceLine(deviceLineText(device))

	if _, err := program.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
	}
	unbind()
	app.stop()
}

func runHeadless(ctx audio.Context, clips conch.ClipSource, cfg config.Config, device *audio.DeviceInfo) {
	sink := lineSink{w: os.Stdout}
	app := newConchApp(ctx, clips, cfg, device, sink, func(fn func()) { fn() })

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Printf("Error registering hotkey: %v\n", err)
		os.Exit(1)
	}
	defer hk.Unregister()
	unbind := bindHotkey(hk, cfg.HoldThreshold, app.monitor)

	sink.DeviceLine(deviceLineText(device))
	fmt.Printf("Press %s to start or stop conching, Ctrl+C to quit\n", hotkey.Label)

	shutdown.Wait()

	unbind()
	app.stop()
}
