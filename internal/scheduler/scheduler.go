// Package scheduler implements the cooperative multi-probe scheduler:
// it runs every configured monitored server's probe script on its own
// timer, logging connection attempts, stage transitions, and failures,
// per spec.md §5 ("the runtime must provide a cooperative task
// scheduler that can host hundreds of probes with blocking I/O modeled
// as suspension points") and SPEC_FULL §A.1. It is the repurposed
// teacher engine: per-endpoint goroutine and mutex-guarded status map
// become per-server goroutine and mutex-guarded probe.Result map.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/CaptianFluffy100/net-sentinel/internal/probe"
	"github.com/CaptianFluffy100/net-sentinel/internal/script"
	"github.com/CaptianFluffy100/net-sentinel/internal/transport"
)

// Server is the tuple spec.md §6 names as the persisted monitored-server
// shape: (name, address, port, protocol, timeout_ms, script_text).
type Server struct {
	Name      string
	Address   string
	Port      int
	Protocol  string
	TimeoutMs int
	Script    string

	// Interval is how often this server is probed. The admin subsystem
	// that owns monitored-server configuration (out of scope) is
	// expected to set this; it defaults to TimeoutMs*2 if zero.
	Interval time.Duration

	// Trace logs every block the probe executes, at debug granularity,
	// through the scheduler's Logger. Off by default.
	Trace bool
}

// State is a server's most recent scheduling state, safe to read
// concurrently with Scheduler.State.
type State struct {
	Running  bool
	LastRun  time.Time
	LastErr  error
	LastProbe *probe.Result
}

// Scheduler drives the cooperative per-server probe loop described
// above. The engine itself is single-threaded within one probe
// (spec.md §5); the scheduler's only job is fanning many such probes
// out across goroutines and serializing access to shared status.
type Scheduler struct {
	mu      sync.Mutex
	servers map[string]*Server
	scripts map[string]*script.Script
	active  map[string]bool
	state   map[string]State

	Log *Logger

	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup
}

// New returns a Scheduler whose Logger persists to logPath (empty to
// disable file logging) with a ring buffer of logLines capacity.
func New(logPath string, logLines int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		servers: make(map[string]*Server),
		scripts: make(map[string]*script.Script),
		active:  make(map[string]bool),
		state:   make(map[string]State),
		Log:     NewLogger(logPath, logLines),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddServer registers srv, parsing its script text once up front so a
// syntax error surfaces immediately rather than on the first tick.
func (s *Scheduler) AddServer(srv *Server) error {
	scr, err := script.Parse(srv.Script)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[srv.Name] = srv
	s.scripts[srv.Name] = scr
	s.state[srv.Name] = State{}
	return nil
}

// Start begins probing every registered server on its own ticker. It
// does not block; call StopAll (or cancel the context passed to New's
// caller indirectly via StopAll) to stop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	names := make([]string, 0, len(s.servers))
	for name := range s.servers {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		s.startServer(name)
	}
}

func (s *Scheduler) startServer(name string) {
	s.mu.Lock()
	if s.active[name] {
		s.mu.Unlock()
		return
	}
	s.active[name] = true
	srv := s.servers[name]
	scr := s.scripts[name]
	s.mu.Unlock()

	interval := srv.Interval
	if interval <= 0 {
		interval = time.Duration(srv.TimeoutMs) * time.Millisecond * 2
	}
	if interval <= 0 {
		interval = transport.DefaultTimeout * 2
	}

	s.wg.Add(1)
	go s.run(name, srv, scr, interval)
}

func (s *Scheduler) run(name string, srv *Server, scr *script.Script, interval time.Duration) {
	defer s.wg.Done()
	defer s.markInactive(name)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(name, srv, scr)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick(name, srv, scr)
		}
	}
}

func (s *Scheduler) tick(name string, srv *Server, scr *script.Script) {
	proto, err := transport.ParseProtocol(srv.Protocol)
	if err != nil {
		s.recordResult(name, nil, err)
		return
	}
	timeout := time.Duration(srv.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = transport.DefaultTimeout
	}
	target := transport.Target{Host: srv.Address, Port: srv.Port, Protocol: proto, Timeout: timeout}

	s.Log.Write("probing %s (%s:%d/%s)...", name, srv.Address, srv.Port, srv.Protocol)

	ctx, cancel := context.WithTimeout(s.ctx, timeout*3)
	defer cancel()

	var res *probe.Result
	if srv.Trace {
		res, err = probe.Run(ctx, scr, target, func(msg string) {
			s.Log.Write("%s: trace: %s", name, msg)
		})
	} else {
		res, err = probe.Run(ctx, scr, target)
	}
	if err == nil && !res.Success {
		err = res.Err
	}
	if err != nil {
		s.Log.Write("%s: probe error: %v", name, err)
	} else {
		s.Log.Write("%s: %s", name, res.Label)
	}
	s.recordResult(name, res, err)
}

func (s *Scheduler) recordResult(name string, res *probe.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[name] = State{Running: s.active[name], LastRun: time.Now(), LastErr: err, LastProbe: res}
}

func (s *Scheduler) markInactive(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, name)
	st := s.state[name]
	st.Running = false
	s.state[name] = st
}

// Names returns every registered server's name, for the TUI to seed
// its server list.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.servers))
	for name := range s.servers {
		names = append(names, name)
	}
	return names
}

// State returns the most recently recorded scheduling state for name.
func (s *Scheduler) State(name string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[name]
}

// States returns a snapshot of every server's state, for the TUI
// dashboard to render.
func (s *Scheduler) States() map[string]State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]State, len(s.state))
	for k, v := range s.state {
		out[k] = v
	}
	return out
}

// StopAll cancels every running probe loop and waits for them to exit,
// then closes the Logger.
func (s *Scheduler) StopAll() {
	s.cancel()
	s.wg.Wait()
	s.Log.Close()
}
