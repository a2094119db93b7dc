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

package worker

import (
	"context"
	"net"
	"net/http"
	"os/exec"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/Nehonix-Team/cyrupd/internal/bus"
	"github.com/Nehonix-Team/cyrupd/internal/machine"
)

// healthTick runs one probe cycle. A healthy outcome that causes no
// transition is still published so operators can observe probe cadence; an
// unhealthy outcome is tolerated up to the configured retry count before
// HealthBad reaches the state machine.
func (w *Worker) healthTick() {
	if w.state == machine.Stopped || w.state == machine.Stopping {
		return
	}
	// With no probe spec, health in a quiescent state is meaningless: there
	// is no child to be alive.
	if w.state.Quiescent() && w.def.HealthCheck == nil {
		return
	}

	healthy, reason := w.probe()
	if healthy {
		w.probeFails = 0
		prev := w.state
		w.apply(machine.HealthOk)
		if w.state == prev {
			w.events.Publish(bus.HealthEvent(w.name, true))
		}
		return
	}

	w.probeFails++
	retries := 0
	if w.def.HealthCheck != nil {
		retries = w.def.HealthCheck.Retries
	}
	if w.probeFails <= retries {
		w.logger.Warn("health probe failed, tolerating",
			"reason", reason, "failures", w.probeFails, "retries", retries)
		return
	}

	w.logger.Warn("health probe exhausted retries", "reason", reason)
	w.probeFails = 0
	prev := w.state
	w.apply(machine.HealthBad)
	if w.state == prev {
		w.events.Publish(bus.HealthEvent(w.name, false))
	}
}

// probe evaluates the service's health. Liveness of the owned child is a
// precondition for every probe type while a child exists; configured probes
// additionally exercise the service itself. Timeouts count as unhealthy.
func (w *Worker) probe() (bool, string) {
	alive := w.childAlive()
	hc := w.def.HealthCheck

	if hc == nil {
		if !alive {
			return false, "process not running"
		}
		if ok, reason := w.withinLimits(); !ok {
			return false, reason
		}
		return true, ""
	}

	if w.child != nil && !alive {
		return false, "process not running"
	}
	if alive {
		if ok, reason := w.withinLimits(); !ok {
			return false, reason
		}
	}

	switch hc.Type {
	case "http":
		client := &http.Client{Timeout: hc.Timeout()}
		resp, err := client.Get(hc.Target)
		if err != nil {
			return false, "http probe: " + err.Error()
		}
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return false, "http probe: status " + resp.Status
		}
		return true, ""
	case "tcp":
		conn, err := net.DialTimeout("tcp", hc.Target, hc.Timeout())
		if err != nil {
			return false, "tcp probe: " + err.Error()
		}
		conn.Close()
		return true, ""
	case "script":
		ctx, cancel := context.WithTimeout(context.Background(), hc.Timeout())
		defer cancel()
		cmd := exec.CommandContext(ctx, "sh", "-c", hc.Target)
		if err := cmd.Run(); err != nil {
			return false, "script probe: " + err.Error()
		}
		return true, ""
	}
	return false, "unknown probe type " + hc.Type
}

// withinLimits enforces the optional per-service resource ceilings by
// sampling the child. A breach counts as an unhealthy probe, so the state
// machine decides what happens next.
func (w *Worker) withinLimits() (bool, string) {
	if w.def.MaxMemoryMB <= 0 && w.def.MaxCPUPercent <= 0 {
		return true, ""
	}
	if w.child == nil {
		return true, ""
	}

	p, err := process.NewProcess(int32(w.child.pid))
	if err != nil {
		// The exit notification will arrive on its own; don't fail the
		// probe on a sampling race.
		return true, ""
	}

	if w.def.MaxMemoryMB > 0 {
		if mem, err := p.MemoryInfo(); err == nil {
			limit := uint64(w.def.MaxMemoryMB) * 1024 * 1024
			if mem.RSS > limit {
				return false, "memory limit exceeded"
			}
		}
	}
	if w.def.MaxCPUPercent > 0 {
		if cpu, err := p.CPUPercent(); err == nil && int(cpu) > w.def.MaxCPUPercent {
			return false, "cpu limit exceeded"
		}
	}
	return true, ""
}
