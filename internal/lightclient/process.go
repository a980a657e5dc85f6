package lightclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/dot_balance/internal/chain"
	"github.com/congo-pay/dot_balance/internal/substrate/rpc"
)

const (
	defaultStartTimeout = 30 * time.Second
	defaultStopGrace    = 5 * time.Second
	dialRetryInterval   = 200 * time.Millisecond

	placeholderChainSpec = "{chain_spec}"
	placeholderListen    = "{listen}"
)

// DefaultProcessArgs is the argument template handed to the worker executable.
var DefaultProcessArgs = []string{"--chain", placeholderChainSpec, "--rpc-listen", placeholderListen}

// ProcessLauncher runs the light client as a child OS process exposing a
// JSON-RPC WebSocket endpoint on a loopback port.
type ProcessLauncher struct {
	Binary       string
	Args         []string
	Spec         chain.Spec
	StartTimeout time.Duration
	StopGrace    time.Duration
	Logger       *slog.Logger
}

// Resolve locates the worker executable on PATH or at an explicit path.
func (l *ProcessLauncher) Resolve() (string, error) {
	if l.Binary == "" {
		return "", fmt.Errorf("%w: no executable configured", ErrWorkerResolution)
	}
	path, err := exec.LookPath(l.Binary)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWorkerResolution, err)
	}
	return path, nil
}

// Start spawns the worker process.
func (l *ProcessLauncher) Start(ctx context.Context, path string) (Worker, error) {
	listen, err := loopbackAddr()
	if err != nil {
		return nil, fmt.Errorf("%w: reserve port: %v", ErrWorkerStart, err)
	}

	args := l.Args
	if len(args) == 0 {
		args = DefaultProcessArgs
	}
	expanded := make([]string, len(args))
	for i, a := range args {
		a = strings.ReplaceAll(a, placeholderChainSpec, l.Spec.Path)
		expanded[i] = strings.ReplaceAll(a, placeholderListen, listen)
	}

	id := uuid.NewString()
	logger := l.logger().With(slog.String("worker_id", id))

	// The process outlives the Start call, so it is not bound to ctx.
	cmd := exec.Command(path, expanded...)
	cmd.Stdout = &lineLogger{logger: logger, stream: "stdout"}
	cmd.Stderr = &lineLogger{logger: logger, stream: "stderr"}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkerStart, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkerStart, err)
	}

	w := &processWorker{
		id:           id,
		cmd:          cmd,
		endpoint:     "ws://" + listen,
		chain:        l.Spec.Name,
		startTimeout: l.StartTimeout,
		stopGrace:    l.StopGrace,
		exited:       make(chan struct{}),
		logger:       logger,
	}
	if w.startTimeout <= 0 {
		w.startTimeout = defaultStartTimeout
	}
	if w.stopGrace <= 0 {
		w.stopGrace = defaultStopGrace
	}
	go w.wait()
	logger.Debug("light client worker started", slog.Int("pid", cmd.Process.Pid), slog.String("endpoint", w.endpoint))
	return w, nil
}

func (l *ProcessLauncher) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

type processWorker struct {
	id           string
	cmd          *exec.Cmd
	endpoint     string
	chain        string
	startTimeout time.Duration
	stopGrace    time.Duration
	logger       *slog.Logger

	exited  chan struct{}
	exitErr error
	once    sync.Once
}

func (w *processWorker) ID() string { return w.id }

func (w *processWorker) wait() {
	w.exitErr = w.cmd.Wait()
	close(w.exited)
}

// AddChain dials the worker's endpoint, retrying until it accepts connections.
func (w *processWorker) AddChain(ctx context.Context, spec chain.Spec) (Provider, error) {
	if spec.Name != w.chain {
		return nil, fmt.Errorf("%w: worker runs %q, requested %q", ErrWorkerStart, w.chain, spec.Name)
	}
	ctx, cancel := context.WithTimeout(ctx, w.startTimeout)
	defer cancel()

	ticker := time.NewTicker(dialRetryInterval)
	defer ticker.Stop()
	for {
		client, err := rpc.Dial(ctx, w.endpoint)
		if err == nil {
			return client, nil
		}
		select {
		case <-w.exited:
			return nil, fmt.Errorf("%w: worker exited: %v", ErrWorkerStart, w.exitErr)
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: endpoint not ready: %v", ErrWorkerStart, err)
		case <-ticker.C:
		}
	}
}

// Terminate sends SIGTERM and escalates to SIGKILL after the grace period.
func (w *processWorker) Terminate(ctx context.Context) error {
	var err error
	w.once.Do(func() {
		select {
		case <-w.exited:
			return
		default:
		}
		if serr := w.cmd.Process.Signal(syscall.SIGTERM); serr != nil {
			err = fmt.Errorf("signal worker: %w", serr)
		}
		grace := time.NewTimer(w.stopGrace)
		defer grace.Stop()
		select {
		case <-w.exited:
			return
		case <-grace.C:
		case <-ctx.Done():
		}
		w.logger.Warn("light client worker did not stop, killing", slog.Duration("grace", w.stopGrace))
		if kerr := w.cmd.Process.Kill(); kerr != nil {
			err = fmt.Errorf("kill worker: %w", kerr)
			return
		}
		<-w.exited
	})
	return err
}

func loopbackAddr() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		return "", err
	}
	return addr, nil
}

// lineLogger forwards worker output to the structured logger line by line.
type lineLogger struct {
	logger *slog.Logger
	stream string
	mu     sync.Mutex
	buf    bytes.Buffer
}

var _ io.Writer = (*lineLogger)(nil)

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Write(p)
	for {
		i := bytes.IndexByte(l.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(l.buf.Next(i+1)[:i]), "\r")
		l.logger.Debug("worker output", slog.String("stream", l.stream), slog.String("line", line))
	}
	return len(p), nil
}
