package observer

import (
	"bufio"
	"context"
	"os/exec"
	"sync"
	"time"
)

// observer captures packets on one (device, iface) pair and restarts the
// capture process with backoff if it dies, per spec.md §4.5.
type observer struct {
	device string
	iface  string

	backoff     []time.Duration
	maxRestarts int

	onEvent EventFunc
	emit    func(PacketEvent)

	cancel context.CancelFunc
	done   chan struct{}
}

func newObserver(device, iface string, backoff []time.Duration, maxRestarts int, onEvent EventFunc, emit func(PacketEvent)) *observer {
	return &observer{
		device:      device,
		iface:       iface,
		backoff:     backoff,
		maxRestarts: maxRestarts,
		onEvent:     onEvent,
		emit:        emit,
		done:        make(chan struct{}),
	}
}

func (o *observer) start() {
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	go o.run(ctx)
}

func (o *observer) stop() {
	if o.cancel != nil {
		o.cancel()
	}
	<-o.done
}

func (o *observer) run(ctx context.Context) {
	defer close(o.done)

	restarts := 0
	for {
		if ctx.Err() != nil {
			return
		}
		err := o.captureOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			// capture loop exited cleanly (interface removed); stop.
			return
		}

		o.onEvent(o.device, o.iface, "failed", err)
		if restarts >= o.maxRestarts {
			o.onEvent(o.device, o.iface, "gave-up", err)
			return
		}

		delay := o.backoff[len(o.backoff)-1]
		if restarts < len(o.backoff) {
			delay = o.backoff[restarts]
		}
		restarts++
		o.onEvent(o.device, o.iface, "restarting", nil)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func (o *observer) captureOnce(ctx context.Context) error {
	// -e prints link-layer headers, -l line-buffers stdout so events stream
	// as they're captured rather than batching on exit, -n/-tt keep
	// addresses and timestamps numeric for parseLine. The "not port 22"
	// filter excludes the management traffic spec.md §4.5 calls out by name;
	// this capture process generates no traffic of its own on the interface
	// it's observing, so no further self-exclusion is needed.
	cmd := exec.CommandContext(ctx, "ip", "netns", "exec", o.device,
		"tcpdump", "-l", "-n", "-tt", "-e", "-i", o.iface, "not", "port", "22")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 0, 4096), 1<<20)
		for sc.Scan() {
			if ev, ok := parseLine(o.device, o.iface, sc.Text()); ok {
				o.emit(ev)
			}
		}
	}()

	wg.Wait()
	return cmd.Wait()
}
