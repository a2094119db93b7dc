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

// Package machine holds the per-service lifecycle state machine. Next is a
// pure dispatch-table lookup: no I/O, no allocation, no failure path. The
// worker owns the current state and executes the returned action; nothing
// else in the daemon may transition a service.
package machine

// State is the lifecycle state of one supervised service.
type State uint8

const (
	Stopped State = iota
	Starting
	Running
	Stopping
	Restarting
	Failed
)

var stateNames = [...]string{
	Stopped:    "stopped",
	Starting:   "starting",
	Running:    "running",
	Stopping:   "stopping",
	Restarting: "restarting",
	Failed:     "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Quiescent reports whether the state owns no child process.
func (s State) Quiescent() bool {
	return s == Stopped || s == Failed
}

// Event is an input to the state machine. Cmd* variants originate from the
// supervisor; the rest are facts the worker observes about its own child.
type Event uint8

const (
	CmdStart Event = iota
	CmdStop
	CmdRestart
	StartedOk
	StartErr
	ProcExit
	HealthOk
	HealthBad
	StopDone
	numEvents
)

var eventNames = [...]string{
	CmdStart:   "cmd_start",
	CmdStop:    "cmd_stop",
	CmdRestart: "cmd_restart",
	StartedOk:  "started_ok",
	StartErr:   "start_err",
	ProcExit:   "proc_exit",
	HealthOk:   "health_ok",
	HealthBad:  "health_bad",
	StopDone:   "stop_done",
}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return "unknown"
}

// Action is a side-effect request returned by Next. The worker executes it.
type Action uint8

const (
	Noop Action = iota
	SpawnProcess
	KillProcess
	NotifyHealthy
	NotifyUnhealthy
)

var actionNames = [...]string{
	Noop:            "noop",
	SpawnProcess:    "spawn",
	KillProcess:     "kill",
	NotifyHealthy:   "notify_healthy",
	NotifyUnhealthy: "notify_unhealthy",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

type transition struct {
	next   State
	action Action
}

// table is indexed by [State][Event]. Events processed strictly in arrival
// order on the command queue; there is no re-ordering.
var table = [Failed + 1][numEvents]transition{
	Stopped: {
		CmdStart:   {Starting, SpawnProcess},
		CmdStop:    {Stopped, Noop},
		CmdRestart: {Starting, SpawnProcess},
		StartedOk:  {Stopped, Noop},
		StartErr:   {Stopped, Noop},
		ProcExit:   {Stopped, Noop},
		HealthOk:   {Stopped, Noop},
		HealthBad:  {Stopped, Noop},
		StopDone:   {Stopped, Noop},
	},
	Starting: {
		CmdStart:   {Starting, Noop},
		CmdStop:    {Stopping, KillProcess},
		CmdRestart: {Restarting, KillProcess},
		StartedOk:  {Running, NotifyHealthy},
		StartErr:   {Failed, NotifyUnhealthy},
		ProcExit:   {Failed, NotifyUnhealthy},
		HealthOk:   {Starting, Noop},
		HealthBad:  {Starting, Noop},
		StopDone:   {Starting, Noop},
	},
	Running: {
		CmdStart:   {Running, Noop},
		CmdStop:    {Stopping, KillProcess},
		CmdRestart: {Restarting, KillProcess},
		StartedOk:  {Running, Noop},
		StartErr:   {Running, Noop},
		ProcExit:   {Failed, NotifyUnhealthy},
		HealthOk:   {Running, Noop},
		HealthBad:  {Failed, NotifyUnhealthy},
		StopDone:   {Running, Noop},
	},
	Stopping: {
		CmdStart:   {Stopping, Noop},
		CmdStop:    {Stopping, Noop},
		CmdRestart: {Stopping, Noop},
		StartedOk:  {Stopping, Noop},
		StartErr:   {Stopping, Noop},
		ProcExit:   {Stopped, Noop},
		HealthOk:   {Stopping, Noop},
		HealthBad:  {Stopping, Noop},
		StopDone:   {Stopped, Noop},
	},
	Restarting: {
		CmdStart:   {Restarting, Noop},
		CmdStop:    {Restarting, Noop},
		CmdRestart: {Restarting, Noop},
		StartedOk:  {Running, NotifyHealthy},
		StartErr:   {Failed, NotifyUnhealthy},
		ProcExit:   {Starting, SpawnProcess},
		HealthOk:   {Restarting, Noop},
		HealthBad:  {Restarting, Noop},
		StopDone:   {Starting, SpawnProcess},
	},
	Failed: {
		CmdStart:   {Starting, SpawnProcess},
		CmdStop:    {Stopped, Noop},
		CmdRestart: {Starting, SpawnProcess},
		StartedOk:  {Failed, Noop},
		StartErr:   {Failed, Noop},
		ProcExit:   {Failed, Noop},
		HealthOk:   {Running, NotifyHealthy},
		HealthBad:  {Failed, Noop},
		StopDone:   {Failed, Noop},
	},
}

// Next returns the successor state and the action the worker must execute.
// It is total over the declared states and events; out-of-range inputs map
// to (Stopped, Noop) rather than panicking.
func Next(s State, e Event) (State, Action) {
	if s > Failed || e >= numEvents {
		return Stopped, Noop
	}
	t := table[s][e]
	return t.next, t.action
}
