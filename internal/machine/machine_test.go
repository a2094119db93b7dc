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

package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allStates = []State{Stopped, Starting, Running, Stopping, Restarting, Failed}

var allEvents = []Event{
	CmdStart, CmdStop, CmdRestart,
	StartedOk, StartErr, ProcExit,
	HealthOk, HealthBad, StopDone,
}

func TestNextIsTotalAndPure(t *testing.T) {
	for _, s := range allStates {
		for _, e := range allEvents {
			s1, a1 := Next(s, e)
			s2, a2 := Next(s, e)
			assert.Equal(t, s1, s2, "state for (%s,%s) not stable", s, e)
			assert.Equal(t, a1, a2, "action for (%s,%s) not stable", s, e)
			assert.LessOrEqual(t, s1, Failed)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from   State
		event  Event
		to     State
		action Action
	}{
		{Stopped, CmdStart, Starting, SpawnProcess},
		{Stopped, CmdStop, Stopped, Noop},
		{Stopped, CmdRestart, Starting, SpawnProcess},
		{Stopped, ProcExit, Stopped, Noop},

		{Starting, CmdStart, Starting, Noop},
		{Starting, CmdStop, Stopping, KillProcess},
		{Starting, CmdRestart, Restarting, KillProcess},
		{Starting, StartedOk, Running, NotifyHealthy},
		{Starting, StartErr, Failed, NotifyUnhealthy},
		{Starting, ProcExit, Failed, NotifyUnhealthy},
		{Starting, HealthOk, Starting, Noop},

		{Running, CmdStart, Running, Noop},
		{Running, CmdStop, Stopping, KillProcess},
		{Running, CmdRestart, Restarting, KillProcess},
		{Running, StartedOk, Running, Noop},
		{Running, ProcExit, Failed, NotifyUnhealthy},
		{Running, HealthOk, Running, Noop},
		{Running, HealthBad, Failed, NotifyUnhealthy},

		{Stopping, CmdStart, Stopping, Noop},
		{Stopping, CmdStop, Stopping, Noop},
		{Stopping, CmdRestart, Stopping, Noop},
		{Stopping, ProcExit, Stopped, Noop},
		{Stopping, StopDone, Stopped, Noop},
		{Stopping, HealthBad, Stopping, Noop},

		{Restarting, CmdStart, Restarting, Noop},
		{Restarting, CmdStop, Restarting, Noop},
		{Restarting, StartedOk, Running, NotifyHealthy},
		{Restarting, StartErr, Failed, NotifyUnhealthy},
		{Restarting, ProcExit, Starting, SpawnProcess},
		{Restarting, StopDone, Starting, SpawnProcess},

		{Failed, CmdStart, Starting, SpawnProcess},
		{Failed, CmdStop, Stopped, Noop},
		{Failed, CmdRestart, Starting, SpawnProcess},
		{Failed, StartedOk, Failed, Noop},
		{Failed, HealthOk, Running, NotifyHealthy},
		{Failed, HealthBad, Failed, Noop},
	}

	for _, c := range cases {
		got, act := Next(c.from, c.event)
		assert.Equal(t, c.to, got, "%s + %s", c.from, c.event)
		assert.Equal(t, c.action, act, "%s + %s", c.from, c.event)
	}
}

// Repeated CmdStop from Stopped or Stopping never re-enters a killing state.
func TestStopIsIdempotent(t *testing.T) {
	s := Stopped
	for i := 0; i < 5; i++ {
		next, act := Next(s, CmdStop)
		assert.Equal(t, Stopped, next)
		assert.Equal(t, Noop, act)
		s = next
	}

	s = Stopping
	for i := 0; i < 5; i++ {
		next, act := Next(s, CmdStop)
		assert.Equal(t, Stopping, next)
		assert.Equal(t, Noop, act)
		s = next
	}
}

// The restart round-trip from Running passes through Restarting and spawns
// exactly once, on confirmation that the old child is gone.
func TestRestartRoundTrip(t *testing.T) {
	s, act := Next(Running, CmdRestart)
	assert.Equal(t, Restarting, s)
	assert.Equal(t, KillProcess, act)

	s, act = Next(s, StopDone)
	assert.Equal(t, Starting, s)
	assert.Equal(t, SpawnProcess, act)

	s, act = Next(s, StartedOk)
	assert.Equal(t, Running, s)
	assert.Equal(t, NotifyHealthy, act)
}

func TestQuiescentStates(t *testing.T) {
	assert.True(t, Stopped.Quiescent())
	assert.True(t, Failed.Quiescent())
	assert.False(t, Starting.Quiescent())
	assert.False(t, Running.Quiescent())
	assert.False(t, Stopping.Quiescent())
	assert.False(t, Restarting.Quiescent())
}

func TestOutOfRangeInputs(t *testing.T) {
	s, act := Next(State(200), CmdStart)
	assert.Equal(t, Stopped, s)
	assert.Equal(t, Noop, act)

	s, act = Next(Running, Event(200))
	assert.Equal(t, Stopped, s)
	assert.Equal(t, Noop, act)
}

func TestStringNames(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "cmd_restart", CmdRestart.String())
	assert.Equal(t, "spawn", SpawnProcess.String())
	assert.Equal(t, "unknown", State(99).String())
}
