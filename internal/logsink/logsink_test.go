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

package logsink

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/Nehonix-Team/cyrupd/internal/bus"
)

func newSink(level hclog.Level) (*Sink, *bytes.Buffer) {
	var out bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Name: "cyrupd", Level: level, Output: &out})
	return New(logger), &out
}

func TestRenderStateEvent(t *testing.T) {
	s, out := newSink(hclog.Debug)
	s.Render(bus.StateEvent(bus.Intern("redis"), "running", 4242))

	assert.Contains(t, out.String(), "service state changed")
	assert.Contains(t, out.String(), "service=redis")
	assert.Contains(t, out.String(), "state=running")
	assert.Contains(t, out.String(), "pid=4242")
}

func TestRenderHealthLevels(t *testing.T) {
	s, out := newSink(hclog.Debug)
	s.Render(bus.HealthEvent(bus.Intern("redis"), true))
	s.Render(bus.HealthEvent(bus.Intern("redis"), false))

	log := out.String()
	assert.Contains(t, log, "service healthy")
	assert.Contains(t, log, "service unhealthy")
}

func TestRenderFatal(t *testing.T) {
	s, out := newSink(hclog.Warn)
	s.Render(bus.FatalEvent(bus.Intern("redis"), "spawn: permission denied"))

	assert.Contains(t, out.String(), "service fault")
	assert.Contains(t, out.String(), "permission denied")
}

func TestQuietLevelSuppressesRoutineEvents(t *testing.T) {
	s, out := newSink(hclog.Warn)
	s.Render(bus.HealthEvent(bus.Intern("redis"), true))
	s.Render(bus.RotateEvent(bus.Intern("redis")))

	assert.Empty(t, out.String())
}

func TestNewLoggerLevels(t *testing.T) {
	assert.True(t, NewLogger(true, false).IsDebug())
	assert.False(t, NewLogger(false, false).IsDebug())
	assert.False(t, NewLogger(true, true).IsInfo(), "quiet wins over verbose")
}
