package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/netkit-project/netkit/internal/config"
	"github.com/netkit-project/netkit/internal/control"
	"github.com/netkit-project/netkit/internal/topology"
)

var mainLog = log.New(os.Stdout, "EMULATION INFO: ", log.Ltime)

func main() {
	cfg := config.Load()
	mainLog.Println("bind_addr", cfg.BindAddr, "shell", cfg.Shell)

	topo, err := topology.NewManager(cfg)
	if err != nil {
		mainLog.Fatal(err)
	}

	srv := control.NewServer(cfg, topo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	select {
	case err := <-errCh:
		if err != nil {
			mainLog.Println("server exited:", err)
		}
	case <-ctx.Done():
		mainLog.Println("shutting down")
		<-errCh
	}

	teardown(topo)
}

// teardown removes every device, which per spec.md §4.3's ordering tears
// down its links, PTY sessions, and observers before the namespace itself,
// guaranteeing no leaked kernel resources on process shutdown (spec.md §8
// scenario 6).
func teardown(topo *topology.Manager) {
	snap := topo.Snapshot()
	for _, dev := range snap.Devices {
		if err := topo.RemoveDevice(context.Background(), dev.Name); err != nil {
			mainLog.Println("teardown:", dev.Name, err)
		}
	}
}
