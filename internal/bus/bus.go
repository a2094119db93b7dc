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

// Package bus carries service events from workers to the supervisor over a
// single bounded multi-producer single-consumer queue. Service names are
// interned once at startup; every event references the interned value so the
// steady state publishes without allocating.
package bus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Name is an interned service name. Interned names live for the daemon
// process lifetime; events reference them by pointer.
type Name struct {
	s string
}

func (n *Name) String() string {
	if n == nil {
		return ""
	}
	return n.s
}

var names struct {
	mu sync.Mutex
	m  map[string]*Name
}

// Intern returns the process-lifetime Name for s, allocating it on first use.
// Interned names are never freed while the daemon runs.
func Intern(s string) *Name {
	names.mu.Lock()
	defer names.mu.Unlock()
	if names.m == nil {
		names.m = make(map[string]*Name)
	}
	if n, ok := names.m[s]; ok {
		return n
	}
	n := &Name{s: s}
	names.m[s] = n
	return n
}

// EventKind discriminates the ServiceEvent payload.
type EventKind uint8

const (
	KindState EventKind = iota
	KindHealth
	KindLogRotate
	KindFatal
)

// ServiceEvent is the tagged record workers publish. Exactly one payload is
// meaningful per Kind: State/PID for KindState, Healthy for KindHealth,
// Message for KindFatal.
type ServiceEvent struct {
	Name *Name
	Time time.Time
	Kind EventKind

	State   string
	PID     int
	Healthy bool
	Message string
}

// StateEvent reports a new lifecycle condition. pid is 0 when no child is
// associated with the new state.
func StateEvent(n *Name, state string, pid int) ServiceEvent {
	return ServiceEvent{Name: n, Time: time.Now(), Kind: KindState, State: state, PID: pid}
}

// HealthEvent reports a probe outcome.
func HealthEvent(n *Name, healthy bool) ServiceEvent {
	return ServiceEvent{Name: n, Time: time.Now(), Kind: KindHealth, Healthy: healthy}
}

// RotateEvent reports a log-rotation attempt.
func RotateEvent(n *Name) ServiceEvent {
	return ServiceEvent{Name: n, Time: time.Now(), Kind: KindLogRotate}
}

// FatalEvent surfaces an OS error the worker absorbed.
func FatalEvent(n *Name, msg string) ServiceEvent {
	return ServiceEvent{Name: n, Time: time.Now(), Kind: KindFatal, Message: msg}
}

// Bus is the bounded MPSC event queue. Workers publish, the supervisor
// drains. Publish never blocks: when the consumer is behind the event is
// dropped and counted.
type Bus struct {
	ch      chan ServiceEvent
	dropped uint64
}

// DefaultCapacity is the event buffer depth used by the supervisor.
const DefaultCapacity = 128

func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{ch: make(chan ServiceEvent, capacity)}
}

// Publish enqueues ev without blocking. Returns false if the bus was full.
func (b *Bus) Publish(ev ServiceEvent) bool {
	select {
	case b.ch <- ev:
		return true
	default:
		atomic.AddUint64(&b.dropped, 1)
		return false
	}
}

// C is the receive end, owned by the supervisor.
func (b *Bus) C() <-chan ServiceEvent {
	return b.ch
}

// Dropped returns the number of events discarded under back-pressure.
func (b *Bus) Dropped() uint64 {
	return atomic.LoadUint64(&b.dropped)
}
