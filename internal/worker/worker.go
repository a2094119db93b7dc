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

// Package worker owns supervised child processes, one worker goroutine per
// service. A worker receives typed commands over its bounded queue, drives
// the lifecycle state machine, and publishes events on the shared bus. The
// child process handle is owned exclusively by its worker; no other
// goroutine inspects or signals it.
package worker

import (
	"fmt"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/Nehonix-Team/cyrupd/internal/bus"
	"github.com/Nehonix-Team/cyrupd/internal/config"
	"github.com/Nehonix-Team/cyrupd/internal/machine"
)

// Cmd is a command delivered on a worker's queue. Commands originate from
// the supervisor, except Restart which a worker may also enqueue to itself
// after a failure.
type Cmd uint8

const (
	Start Cmd = iota
	Stop
	Restart
	Shutdown
	TickHealth
	TickLogRotate
)

// QueueDepth bounds a worker's command queue. Fanout uses try-send; a full
// queue means the worker is behind and the tick is dropped for this cycle.
const QueueDepth = 16

// Rapid-restart protection, so a crash-looping service cannot spin the
// supervisor: more than maxRapidRestarts scheduled within rapidRestartWindow
// of each other pushes the next attempt out to respawnCooldown.
const (
	maxRapidRestarts   = 5
	rapidRestartWindow = 10 * time.Second
	respawnCooldown    = 30 * time.Second
)

// Worker supervises exactly one service.
type Worker struct {
	def    config.ServiceDefinition
	name   *bus.Name
	events *bus.Bus
	logger hclog.Logger

	// The worker holds both ends of its own queue so it can enqueue
	// Restart to itself; the channel is never closed.
	cmds chan Cmd
	done chan struct{}

	state    machine.State
	lastKind string
	child    *child
	exitCh   chan exitResult
	lastPID  int

	autoRestart bool
	grace       time.Duration
	cred        *syscall.Credential

	// restart throttle bookkeeping, touched only by the worker goroutine
	restartCount int
	lastRestart  time.Time

	probeFails int
	logw       *serviceLog
}

// New builds a worker for def. The bus and log directory are shared daemon
// state; autoRestart is the resolved per-service flag.
func New(def config.ServiceDefinition, autoRestart bool, logDir string, events *bus.Bus, logger hclog.Logger) *Worker {
	return &Worker{
		def:         def,
		name:        bus.Intern(def.Name),
		events:      events,
		logger:      logger.Named(def.Name),
		cmds:        make(chan Cmd, QueueDepth),
		done:        make(chan struct{}),
		state:       machine.Stopped,
		exitCh:      make(chan exitResult, 1),
		autoRestart: autoRestart,
		grace:       def.StopGrace(),
		logw:        newServiceLog(logDir, def.Name, def.LogRotate),
	}
}

// SetCredential makes future spawns run children as the given identity.
// Call before Run; the default is to inherit the daemon's identity.
func (w *Worker) SetCredential(cred *syscall.Credential) {
	w.cred = cred
}

// Name returns the interned service name.
func (w *Worker) Name() *bus.Name { return w.name }

// State returns the worker's current lifecycle state. Only meaningful from
// the worker goroutine or after Done is closed; the supervisor never calls it.
func (w *Worker) State() machine.State { return w.state }

// Enqueue try-sends c onto the command queue. It never blocks; false means
// the queue was full and the command was dropped.
func (w *Worker) Enqueue(c Cmd) bool {
	select {
	case w.cmds <- c:
		return true
	default:
		return false
	}
}

// Done is closed when the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Run is the worker goroutine body. It selects between the command queue
// and the child exit notification until Shutdown arrives.
func (w *Worker) Run() {
	defer close(w.done)
	defer w.logw.Close()

	for {
		select {
		case c := <-w.cmds:
			if w.dispatch(c) {
				return
			}
		case res := <-w.exitCh:
			w.childExited(res)
		}
	}
}

// dispatch handles one command; true means the worker must exit.
func (w *Worker) dispatch(c Cmd) bool {
	switch c {
	case Start:
		w.apply(machine.CmdStart)
	case Stop:
		w.apply(machine.CmdStop)
	case Restart:
		w.apply(machine.CmdRestart)
	case TickHealth:
		w.healthTick()
	case TickLogRotate:
		w.rotateTick()
	case Shutdown:
		w.logger.Debug("shutdown command received")
		w.apply(machine.CmdStop)
		return true
	}
	return false
}

// apply feeds one event through the state machine, emits the transition on
// the bus, executes the returned action, and arms the auto-restart timer on
// entry into Failed. Spawn and kill feed their outcomes straight back in,
// so a failed spawn lands in Failed within the same pass.
func (w *Worker) apply(ev machine.Event) {
	prev := w.state
	next, act := machine.Next(prev, ev)
	w.state = next
	if next != prev {
		w.logger.Debug("transition", "event", ev, "from", prev, "to", next, "action", act)
		w.emitState()
	}

	switch act {
	case machine.NotifyHealthy:
		w.events.Publish(bus.HealthEvent(w.name, true))
	case machine.NotifyUnhealthy:
		w.events.Publish(bus.HealthEvent(w.name, false))
	case machine.SpawnProcess:
		w.execSpawn()
	case machine.KillProcess:
		w.execKill()
	}

	if next == machine.Failed && prev != machine.Failed && w.autoRestart {
		w.scheduleRestart()
	}
}

func (w *Worker) execSpawn() {
	if err := w.spawn(); err != nil {
		w.logger.Error("spawn failed", "error", err)
		w.events.Publish(bus.FatalEvent(w.name, fmt.Sprintf("spawn: %v", err)))
		w.apply(machine.StartErr)
		return
	}
	w.apply(machine.StartedOk)
}

func (w *Worker) execKill() {
	if err := w.kill(); err != nil {
		w.logger.Error("kill failed", "error", err)
		w.events.Publish(bus.FatalEvent(w.name, fmt.Sprintf("kill: %v", err)))
	}
	w.apply(machine.StopDone)
}

// childExited consumes a reaper notification. A stale notification for a
// child that kill already confirmed never reaches here; kill drains the
// channel before the worker returns to its loop.
func (w *Worker) childExited(res exitResult) {
	w.child = nil
	if res.code != 0 {
		w.logger.Warn("process exited", "pid", w.lastPID, "code", res.code)
		w.events.Publish(bus.FatalEvent(w.name,
			fmt.Sprintf("process %d exited with code %d", w.lastPID, res.code)))
	} else {
		w.logger.Info("process exited cleanly", "pid", w.lastPID)
	}
	w.apply(machine.ProcExit)
}

// emitState publishes the current state on the bus unless it repeats the
// last published kind (kill already reports "stopped" on confirmed exit).
func (w *Worker) emitState() {
	kind := w.state.String()
	if kind == w.lastKind {
		return
	}
	w.lastKind = kind
	pid := w.lastPID
	if w.child != nil {
		pid = w.child.pid
	}
	w.events.Publish(bus.StateEvent(w.name, kind, pid))
}

// scheduleRestart arms a one-shot timer that try-sends Restart onto the
// worker's own queue. The send never blocks; if the queue is full the
// attempt is dropped and the next health tick will find the service Failed.
func (w *Worker) scheduleRestart() {
	delay := w.def.RestartDelay()

	now := time.Now()
	if now.Sub(w.lastRestart) < rapidRestartWindow {
		w.restartCount++
	} else {
		w.restartCount = 1
	}
	w.lastRestart = now
	if w.restartCount > maxRapidRestarts {
		w.logger.Warn("restarting too fast, entering cooldown",
			"attempts", w.restartCount, "cooldown", respawnCooldown)
		delay = respawnCooldown
		w.restartCount = 0
	}

	w.logger.Info("scheduling restart", "delay", delay)
	time.AfterFunc(delay, func() {
		w.Enqueue(Restart)
	})
}
