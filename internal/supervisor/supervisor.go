/* *****************************************************************************
 * Nehonix Cyrupd Service Supervisor
 *
 * ACCESS RESTRICTIONS:
 * - This software is exclusively for use by Authorized Personnel of NEHONIX
 * - Intended for Internal Use only within NEHONIX operations
 * - No rights granted to unauthorized individuals or entities
 * - All modifications are works made for hire assigned to NEHONIX
 *
 * PROHIBITED ACTIVITIES:
 * - Copying, distributing, or sublicensing without written permission
 * - Reverse engineering, decompiling, or disassembling
 * - Creating derivative works without explicit authorization
 * - External use or commercial distribution outside NEHONIX
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 * For questions or permissions, contact:
 * NEHONIX Legal Department
 * Email: legal@nehonix.com
 * Website: www.nehonix.com
 ***************************************************************************** */

// Package supervisor constructs the worker fleet, fans wall-clock ticks out
// to it, polls the signal word, and drains the event bus into the logging
// sink. The supervisor never inspects per-service state; every per-service
// reaction lives inside the owning worker.
package supervisor

import (
	"errors"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/Nehonix-Team/cyrupd/internal/bus"
	"github.com/Nehonix-Team/cyrupd/internal/config"
	"github.com/Nehonix-Team/cyrupd/internal/logsink"
	"github.com/Nehonix-Team/cyrupd/internal/signals"
	"github.com/Nehonix-Team/cyrupd/internal/worker"
)

const (
	// TickInterval is the coarse timer driving signal polling and the tick
	// divisors below.
	TickInterval = 200 * time.Millisecond

	// healthEvery and rotateEvery divide the timer into the health (5s) and
	// log-rotation (1h) cadences.
	healthEvery = 25
	rotateEvery = 18000

	// JoinDeadline bounds the wait for worker goroutines at shutdown; a
	// worker that has not finished by then is abandoned and its child left
	// for the OS to reap.
	JoinDeadline = 30 * time.Second
)

// ErrAllWorkersFailed is returned when every service sits in Failed with no
// restart pending; the daemon exits with status 2.
var ErrAllWorkersFailed = errors.New("all services failed with auto-restart disabled")

// Supervisor owns the worker fleet.
type Supervisor struct {
	cfg    *config.DaemonConfig
	events *bus.Bus
	sink   *logsink.Sink
	logger hclog.Logger

	workers []*worker.Worker
	byName  map[string]*worker.Worker

	// notifyReady is called once every worker has been commanded to start;
	// under systemd this is sd_notify, elsewhere a no-op.
	notifyReady func()

	// cred is the identity children are spawned with; nil inherits.
	cred *syscall.Credential

	// last reported state kind per service, fed only by bus events
	lastState   map[*bus.Name]string
	anyRestarts bool
}

// Option tweaks supervisor construction.
type Option func(*Supervisor)

// WithReadyNotifier installs the init-system readiness hook.
func WithReadyNotifier(fn func()) Option {
	return Option(func(s *Supervisor) {
		s.notifyReady = fn
	})
}

// WithCredential spawns every child as the given identity.
func WithCredential(cred *syscall.Credential) Option {
	return Option(func(s *Supervisor) {
		s.cred = cred
	})
}

// New builds the fleet from a validated config. Each service gets a fresh
// bounded command queue and its name interned for the process lifetime.
func New(cfg *config.DaemonConfig, logger hclog.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:       cfg,
		events:    bus.NewBus(bus.DefaultCapacity),
		sink:      logsink.New(logger),
		logger:    logger,
		byName:    make(map[string]*worker.Worker, len(cfg.Services)),
		lastState: make(map[*bus.Name]string, len(cfg.Services)),
	}
	for _, o := range opts {
		o(s)
	}

	for i := range cfg.Services {
		def := cfg.Services[i]
		auto := cfg.AutoRestartFor(&def)
		if auto {
			s.anyRestarts = true
		}
		w := worker.New(def, auto, cfg.LogDir, s.events, logger)
		w.SetCredential(s.cred)
		s.workers = append(s.workers, w)
		s.byName[def.Name] = w
	}
	return s
}

// Bus exposes the event queue for tests.
func (s *Supervisor) Bus() *bus.Bus { return s.events }

// Run spawns the workers, starts services in dependency order, and drives
// the main loop until a shutdown signal arrives. The returned error is nil
// on clean shutdown.
func (s *Supervisor) Run() error {
	signals.Install()

	instance := uuid.NewString()
	s.logger.Info("supervisor starting",
		"instance", instance, "services", len(s.workers), "pid", syscall.Getpid())

	for _, w := range s.workers {
		go w.Run()
	}

	// Start in dependency order. After a service that others depend on, a
	// bounded pause gives the upstream child time to come up; dependents do
	// not block on it reaching Running.
	for _, def := range s.cfg.StartupOrder() {
		w := s.byName[def.Name]
		if !w.Enqueue(worker.Start) {
			s.logger.Error("start command dropped", "service", def.Name)
			continue
		}
		s.logger.Debug("start issued", "service", def.Name)
		if s.cfg.DependedOn(def.Name) {
			time.Sleep(s.cfg.StartupPause())
		}
	}

	if s.notifyReady != nil {
		s.notifyReady()
	}

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case ev := <-s.events.C():
			s.consume(ev)
			if s.allFailed() {
				s.logger.Error("no runnable services remain")
				s.shutdown()
				return ErrAllWorkersFailed
			}

		case <-ticker.C:
			switch sig := signals.Poll(); {
			case signals.IsShutdown(sig):
				s.logger.Info("shutdown signal", "signal", sig.String())
				s.shutdown()
				return nil
			case sig == syscall.SIGHUP:
				// Reserved; reload is not supported.
				s.logger.Info("SIGHUP ignored")
			}

			tick++
			if tick%healthEvery == 0 {
				s.fanout(worker.TickHealth)
			}
			if tick%rotateEvery == 0 {
				s.fanout(worker.TickLogRotate)
			}
		}
	}
}

// consume renders one event and records state kinds for the all-failed
// check.
func (s *Supervisor) consume(ev bus.ServiceEvent) {
	s.sink.Render(ev)
	if ev.Kind == bus.KindState {
		s.lastState[ev.Name] = ev.State
	}
}

// allFailed reports whether every service has reported Failed and no worker
// will ever restart one. Auto-restarting fleets are never "all failed":
// a restart is always pending.
func (s *Supervisor) allFailed() bool {
	if s.anyRestarts || len(s.lastState) < len(s.workers) {
		return false
	}
	for _, kind := range s.lastState {
		if kind != "failed" {
			return false
		}
	}
	return true
}

// fanout try-sends cmd to every worker. A full queue drops the tick for
// that worker this cycle; it is already behind, queueing more only grows
// latency.
func (s *Supervisor) fanout(cmd worker.Cmd) {
	for _, w := range s.workers {
		if !w.Enqueue(cmd) {
			s.logger.Debug("tick dropped, worker behind", "service", w.Name().String())
		}
	}
}

// shutdown broadcasts Shutdown, then joins the fleet under a deadline while
// draining terminal events. Workers that miss the deadline are abandoned.
func (s *Supervisor) shutdown() {
	for _, w := range s.workers {
		if !s.sendShutdown(w) {
			s.logger.Warn("shutdown command not accepted", "service", w.Name().String())
		}
	}

	deadline := time.After(JoinDeadline)
	for _, w := range s.workers {
		for joined := false; !joined; {
			select {
			case <-w.Done():
				joined = true
			case ev := <-s.events.C():
				s.consume(ev)
			case <-deadline:
				s.logger.Error("worker join deadline exceeded, abandoning",
					"service", w.Name().String())
				s.sink.Render(bus.FatalEvent(w.Name(), "join deadline exceeded"))
				joined = true
			}
		}
	}

	// Render whatever terminal events are still buffered.
	for {
		select {
		case ev := <-s.events.C():
			s.consume(ev)
		default:
			if n := s.events.Dropped(); n > 0 {
				s.logger.Warn("events dropped under back-pressure", "count", n)
			}
			s.logger.Info("supervisor stopped")
			return
		}
	}
}

// sendShutdown retries the try-send briefly; Shutdown competes with queued
// ticks, and the worker drains its queue continuously.
func (s *Supervisor) sendShutdown(w *worker.Worker) bool {
	for i := 0; i < 20; i++ {
		if w.Enqueue(worker.Shutdown) {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}
