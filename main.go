package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"StepBoard/internal/config"
	"StepBoard/internal/export"
	stepnet "StepBoard/internal/net"
	"StepBoard/internal/playback"
	"StepBoard/internal/render"
	"StepBoard/internal/sequence"
	"StepBoard/internal/service"
	"StepBoard/internal/state"
	"StepBoard/internal/ui"
	"StepBoard/internal/view"

	"fyne.io/fyne/v2/app"
	"golang.org/x/sync/errgroup"
)

const usage = `usage:
  stepboard [flags]                 run the player
  stepboard serve [flags]           run the step service
  stepboard watch [flags] <ws-url>  mirror a shared player
  stepboard export [flags]          write every step to a PDF
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	cmd := "play"
	if len(args) > 0 {
		switch args[0] {
		case "serve", "watch", "export", "play":
			cmd, args = args[0], args[1:]
		case "help", "-h", "--help":
			fmt.Fprint(os.Stderr, usage)
			return
		}
	}

	var err error
	switch cmd {
	case "play":
		err = runPlayer(ctx, args)
	case "serve":
		err = runServe(ctx, args)
	case "watch":
		err = runWatch(ctx, args)
	case "export":
		err = runExport(ctx, args)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("%s: %v", cmd, err)
	}
}

// settings parses the flags shared by every command on top of the config file.
// Only flags given explicitly override the file.
type settings struct {
	fs      *flag.FlagSet
	path    *string
	service *string
	listen  *string
	seqFile *string
	delay   *time.Duration
	manual  *bool
	share   *int
	mdns    *bool
	verbose *bool
}

func newSettings(name string) *settings {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &settings{
		fs:      fs,
		path:    fs.String("config", "", "YAML config file"),
		service: fs.String("service", "", "step service URL"),
		listen:  fs.String("listen", "", "service listen address"),
		seqFile: fs.String("sequence", "", "serve this precomputed sequence file"),
		delay:   fs.Duration("delay", 0, "initial delay between steps"),
		manual:  fs.Bool("manual", false, "start in manual mode"),
		share:   fs.Int("share", 0, "share playback with spectators on this port"),
		mdns:    fs.Bool("mdns", true, "advertise or discover the service over mDNS"),
		verbose: fs.Bool("verbose", false, "log playback details"),
	}
}

func (s *settings) load(args []string) (config.Config, error) {
	if err := s.fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(*s.path)
	if err != nil {
		return cfg, err
	}
	s.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "service":
			cfg.ServiceURL = *s.service
		case "listen":
			cfg.Listen = *s.listen
		case "sequence":
			cfg.SequenceFile = *s.seqFile
		case "delay":
			cfg.Playback.Delay = *s.delay
		case "manual":
			cfg.Playback.Manual = *s.manual
		case "share":
			cfg.SharePort = *s.share
		case "mdns":
			cfg.MDNS = *s.mdns
		}
	})
	if *s.verbose {
		playback.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	return cfg, cfg.Validate()
}

func runPlayer(ctx context.Context, args []string) error {
	s := newSettings("play")
	discover := s.fs.Bool("discover", false, "find the step service over mDNS instead of -service")
	cfg, err := s.load(args)
	if err != nil {
		return err
	}

	serviceURL := cfg.ServiceURL
	if *discover && cfg.MDNS {
		url, err := stepnet.Discover(ctx, 3*time.Second)
		if err != nil {
			log.Printf("[MDNS] Discovery failed, using %s: %v", serviceURL, err)
		} else {
			serviceURL = url
		}
	}
	client := stepnet.NewClient(serviceURL, nil)
	log.Printf("Starting player against %s", serviceURL)

	board := ui.NewBoard(cfg.Canvas)
	var surface render.Surface = board
	var hub *stepnet.Hub
	shareLink := ""
	if cfg.SharePort > 0 {
		hub = stepnet.NewHub()
		defer hub.Close()
		surface = render.Multi{board, hub}
		shareLink = stepnet.ShareURL(cfg.SharePort)
		go serveHub(hub, cfg.SharePort)
	}

	mode := playback.Automatic
	if cfg.Playback.Manual {
		mode = playback.Manual
	}
	ctl := playback.NewController(surface, playback.Options{
		Size:     cfg.Canvas,
		View:     cfg.View,
		Delay:    cfg.Playback.Delay,
		MinDelay: cfg.Playback.MinDelay,
		MaxDelay: cfg.Playback.MaxDelay,
		Mode:     mode,
	})
	if hub != nil {
		ctl.OnChange(func(st playback.State) {
			hub.Publish(stepnet.Status{
				Mode:  st.Mode.String(),
				State: st.Status.String(),
				Index: st.Index,
				Total: st.Total,
				Text:  playback.Controls(st).StatusText,
			})
		})
	}

	player := ui.NewPlayer(ctx, app.New(), ctl, board, client, ui.PlayerOptions{
		MinDelay:  cfg.Playback.MinDelay,
		MaxDelay:  cfg.Playback.MaxDelay,
		ShareLink: shareLink,
	})
	player.Run()
	ctl.Clear()
	return nil
}

func serveHub(hub *stepnet.Hub, port int) {
	mux := http.NewServeMux()
	mux.Handle("/watch", hub)
	log.Printf("[HOST] Sharing playback at %s", stepnet.ShareURL(port))
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		log.Printf("[HOST] Share server stopped: %v", err)
	}
}

func runServe(ctx context.Context, args []string) error {
	s := newSettings("serve")
	cfg, err := s.load(args)
	if err != nil {
		return err
	}

	var builder service.Builder = service.PolylineBuilder{}
	if cfg.SequenceFile != "" {
		builder = service.FileBuilder{Path: cfg.SequenceFile}
		log.Printf("[SERVICE] Serving sequence file %s", cfg.SequenceFile)
	}
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           service.New(state.NewPointSet(), builder),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[SERVICE] Listening on %s", cfg.Listen)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.MDNS {
		g.Go(func() error {
			port, err := listenPort(cfg.Listen)
			if err != nil {
				return err
			}
			server, err := stepnet.Advertise(port)
			if err != nil {
				// The service still works without discovery.
				log.Printf("[MDNS] %v", err)
				return nil
			}
			<-gctx.Done()
			return server.Shutdown()
		})
	}
	return g.Wait()
}

func listenPort(addr string) (int, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("listen address %q: %w", addr, err)
	}
	return strconv.Atoi(port)
}

func runWatch(ctx context.Context, args []string) error {
	s := newSettings("watch")
	cfg, err := s.load(args)
	if err != nil {
		return err
	}
	if s.fs.NArg() != 1 {
		return errors.New("watch needs the share URL, e.g. ws://10.0.0.5:9090/watch")
	}
	log.Println("[WATCH] Starting as spectator")
	ui.RunViewer(ctx, app.New(), s.fs.Arg(0), cfg.Canvas)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	s := newSettings("export")
	in := s.fs.String("in", "", "sequence JSON file (default: fetch from the service)")
	out := s.fs.String("out", "stepboard.pdf", "PDF to write")
	cfg, err := s.load(args)
	if err != nil {
		return err
	}

	var seq sequence.Sequence
	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			return err
		}
		seq, err = sequence.Decode(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", *in, err)
		}
	} else {
		seq, err = stepnet.NewClient(cfg.ServiceURL, nil).FetchSequence(ctx)
		if err != nil {
			return err
		}
	}

	tr, err := view.Fit(seq, cfg.Canvas.Width, cfg.Canvas.Height, cfg.View)
	if err != nil {
		return err
	}
	if err := export.WriteFile(*out, seq, tr, cfg.Canvas); err != nil {
		return err
	}
	log.Printf("Exported %d steps to %s", len(seq), *out)
	return nil
}
