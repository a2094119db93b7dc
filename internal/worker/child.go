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
	"bufio"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/Nehonix-Team/cyrupd/internal/bus"
)

type exitResult struct {
	code int
	err  error
}

// child is the exclusive handle on one spawned process. done is closed when
// cmd.Wait returns; the reaper goroutine also posts the exit result on the
// worker's exit channel.
type child struct {
	cmd     *exec.Cmd
	pid     int
	started time.Time
	done    chan struct{}
}

// spawn runs the service command under `sh -c`, in its own process group,
// with stdout and stderr pumped line-wise into the service log file.
func (w *Worker) spawn() error {
	// Discard any notification left over from a previous child so the new
	// process cannot be blamed for an old exit.
	select {
	case <-w.exitCh:
	default:
	}

	cmd := exec.Command("sh", "-c", w.def.Command)
	cmd.Dir = w.def.Dir
	cmd.Env = buildEnv(w.def.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Credential: w.cred}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	c := &child{
		cmd:     cmd,
		pid:     cmd.Process.Pid,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	w.child = c
	w.lastPID = c.pid
	w.logger.Info("process started", "pid", c.pid)

	var pumps sync.WaitGroup
	pumps.Add(2)
	go w.pump(stdout, &pumps)
	go w.pump(stderr, &pumps)

	// Reap the child so it does not become a zombie. Wait must not run
	// until the pumps have hit EOF, or it would close the pipes under them.
	go func() {
		pumps.Wait()
		waitErr := cmd.Wait()

		res := exitResult{}
		if waitErr != nil {
			res.err = waitErr
			if exitErr, ok := waitErr.(*exec.ExitError); ok {
				res.code = exitErr.ExitCode()
			} else {
				res.code = -1
			}
		}
		// Post the result before closing done: kill waits on done and then
		// drains the channel, so the notification must already be there.
		w.exitCh <- res
		close(c.done)
	}()

	return nil
}

// kill terminates the current child: SIGTERM to the process group, a grace
// period, then SIGKILL. On confirmed exit it publishes the stopped event and
// drains the reaper notification so the exit is not double-counted.
func (w *Worker) kill() error {
	c := w.child
	if c == nil {
		return nil
	}

	alreadyDead := false
	select {
	case <-c.done:
		alreadyDead = true
	default:
	}

	if !alreadyDead {
		w.logger.Info("sending SIGTERM", "pid", c.pid, "grace", w.grace)
		if err := signalGroup(c, syscall.SIGTERM); err != nil {
			w.logger.Warn("SIGTERM failed, forcing kill", "pid", c.pid, "error", err)
			_ = c.cmd.Process.Kill()
		}

		select {
		case <-c.done:
		case <-time.After(w.grace):
			w.logger.Warn("grace period expired, sending SIGKILL", "pid", c.pid)
			if err := signalGroup(c, syscall.SIGKILL); err != nil {
				_ = c.cmd.Process.Kill()
			}
			<-c.done
		}
	}

	// Consume the reaper's notification for this child.
	select {
	case <-w.exitCh:
	default:
	}

	w.child = nil
	w.lastKind = "stopped"
	w.events.Publish(bus.StateEvent(w.name, "stopped", c.pid))
	w.logger.Info("process stopped", "pid", c.pid)
	return nil
}

// childAlive reports whether the worker owns a live child.
func (w *Worker) childAlive() bool {
	if w.child == nil {
		return false
	}
	select {
	case <-w.child.done:
		return false
	default:
		return true
	}
}

// signalGroup signals the child's whole process group, falling back to the
// process itself when the group is gone.
func signalGroup(c *child, sig syscall.Signal) error {
	if err := syscall.Kill(-c.pid, sig); err != nil {
		return syscall.Kill(c.pid, sig)
	}
	return nil
}

// buildEnv augments the daemon environment with the definition's mapping.
func buildEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

// pump copies child output line-wise into the service log.
func (w *Worker) pump(r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 256*1024)
	for scanner.Scan() {
		w.logw.WriteLine(scanner.Bytes())
	}
}
