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

// Package logsink renders bus events for operators. The bus is the internal
// interface; this sink is its only consumer besides tests.
package logsink

import (
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/Nehonix-Team/cyrupd/internal/bus"
)

// NewLogger builds the daemon's root logger. verbose and quiet shift the
// level; quiet wins when both are set.
func NewLogger(verbose, quiet bool) hclog.Logger {
	level := hclog.Info
	if verbose {
		level = hclog.Debug
	}
	if quiet {
		level = hclog.Warn
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "cyrupd",
		Level:  level,
		Output: os.Stderr,
	})
}

// Sink renders service events.
type Sink struct {
	logger hclog.Logger
}

func New(logger hclog.Logger) *Sink {
	return &Sink{logger: logger.Named("events")}
}

// Render logs one event. The sink never reacts; per-service reactions live
// inside the workers.
func (s *Sink) Render(ev bus.ServiceEvent) {
	switch ev.Kind {
	case bus.KindState:
		s.logger.Info("service state changed",
			"service", ev.Name.String(), "state", ev.State, "pid", ev.PID)
	case bus.KindHealth:
		if ev.Healthy {
			s.logger.Debug("service healthy", "service", ev.Name.String())
		} else {
			s.logger.Warn("service unhealthy", "service", ev.Name.String())
		}
	case bus.KindLogRotate:
		s.logger.Debug("log rotation attempted", "service", ev.Name.String())
	case bus.KindFatal:
		s.logger.Error("service fault",
			"service", ev.Name.String(), "message", ev.Message)
	}
}
