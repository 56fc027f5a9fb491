package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voxelplanet/config"
	"voxelplanet/physics"
	"voxelplanet/server"
	"voxelplanet/session"
	"voxelplanet/streaming"
)

func main() {
	var (
		configPath = flag.String("config", "planet.yaml", "Settings file (YAML); missing file means defaults")
		addr       = flag.String("addr", "", "Listen address, overrides server.addr")
		resolution = flag.Uint("res", 0, "Planet resolution, overrides world.resolution")
	)
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("settings: %v", err)
	}
	if *addr != "" {
		settings.Server.Addr = *addr
	}
	if *resolution != 0 {
		settings.World.Resolution = uint32(*resolution)
		if err := settings.Validate(); err != nil {
			log.Fatalf("settings: %v", err)
		}
	}

	fmt.Println("=== Voxel Planet (headless) ===")
	fmt.Println(settings.Summary())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, settings *config.Settings) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sess := session.New(settings, log.New(os.Stderr, "[planet] ", log.LstdFlags), streaming.NewMetrics(reg))
	defer sess.Streamer.Wait()

	hub, err := server.NewHub(server.Options{
		MaxClients: settings.Server.MaxClients,
		Compress:   settings.Server.CompressFrames,
		Logger:     log.New(os.Stderr, "[server] ", log.LstdFlags),
		Registerer: reg,
	})
	if err != nil {
		return fmt.Errorf("create hub: %w", err)
	}
	defer hub.Close()
	hub.SetWorld(sess.Planet.Resolution(), sess.Planet.Seed())

	mux := http.NewServeMux()
	mux.Handle("/ws", hub.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: settings.Server.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	fmt.Printf("Server starting on http://%s (ws at /ws, metrics at /metrics)\n", settings.Server.Addr)

	loopErr := frameLoop(ctx, sess, hub, settings)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	default:
	}
	return loopErr
}

// frameLoop is the single goroutine that owns the session.
func frameLoop(ctx context.Context, sess *session.Session, hub *server.Hub, settings *config.Settings) error {
	ticker := time.NewTicker(settings.Server.TickInterval)
	defer ticker.Stop()

	var input physics.Input
	last := time.Now()
	lastBroadcast := time.Time{}
	lastStats := time.Now()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down")
			return nil
		case now := <-ticker.C:
			input = applyCommands(sess, hub, input, now)

			dt := now.Sub(last).Seconds()
			last = now
			sess.Step(dt, input, now)
			input.MouseDX, input.MouseDY, input.Jump = 0, 0, false

			if now.Sub(lastBroadcast) >= settings.Server.BroadcastInterval {
				lastBroadcast = now
				hub.Publish(sess.Streamer.Visible(now), stateOf(sess))
			}
			if now.Sub(lastStats) >= 10*time.Second {
				lastStats = now
				st := sess.Streamer.Stats()
				fmt.Printf("chunks=%d lods=%d pending=%d/%d queued=%d viewers=%d\n",
					st.Chunks, st.Lods, st.PendingChunks, st.PendingLods, st.Queued, hub.Clients())
			}
		}
	}
}

// applyCommands drains viewer commands without blocking. Movement input is
// held until the next input message; look deltas and jumps accumulate
// until the next step consumes them.
func applyCommands(sess *session.Session, hub *server.Hub, input physics.Input, now time.Time) physics.Input {
	for {
		select {
		case cmd := <-hub.Commands():
			switch cmd.Type {
			case server.TypeInput:
				dx, dy, jump := input.MouseDX, input.MouseDY, input.Jump
				input = cmd.Input
				input.MouseDX += dx
				input.MouseDY += dy
				input.Jump = input.Jump || jump
				if cmd.Input.Fly != sess.Flying {
					sess.ToggleFly()
				}
			case server.TypeEdit:
				if id, ok := sess.Edit(cmd.Remove, now); ok {
					log.Printf("client %s edited %v", cmd.Client, id)
				}
			case server.TypeResize:
				sess.Resize(cmd.Grow)
				hub.Reset(sess.Planet.Resolution(), sess.Planet.Seed())
			}
		default:
			return input
		}
	}
}

func stateOf(sess *session.Session) server.State {
	return server.State{
		Resolution: sess.Planet.Resolution(),
		Position:   sess.Player.Position,
		Forward:    sess.Player.Forward(),
		Grounded:   sess.Player.Grounded,
		Flying:     sess.Flying,
		Stats:      sess.Streamer.Stats(),
	}
}
