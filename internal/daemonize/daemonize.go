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

// Package daemonize decides the daemon's execution mode and, in background
// mode, performs the classic Unix double detach as a two-stage re-exec of
// the same binary. The wrapper runs once before the supervisor loop and
// never re-enters.
package daemonize

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	sdnotify "github.com/coreos/go-systemd/v22/daemon"
	"github.com/hashicorp/go-hclog"
)

// Mode is the execution mode selected before the supervisor starts.
type Mode uint8

const (
	// Foreground keeps the process attached to its launcher: an init
	// system that supervises child output directly, or a terminal.
	Foreground Mode = iota
	// Background is the classic detached daemon with a PID file.
	Background
)

func (m Mode) String() string {
	if m == Foreground {
		return "foreground"
	}
	return "background"
}

// stageEnv tracks progress through the two-stage detach across re-execs.
const stageEnv = "CYRUPD_DAEMON_STAGE"

// Detect evaluates the mode rules in order: systemd invocation, launchd
// invocation, an explicit operator request, otherwise background. The
// environment variables are detection-only and never parsed.
func Detect(forceForeground bool) (Mode, string) {
	if os.Getenv("INVOCATION_ID") != "" {
		return Foreground, "systemd"
	}
	if os.Getenv("LAUNCHD_JOB") != "" {
		return Foreground, "launchd"
	}
	if forceForeground {
		return Foreground, "operator"
	}
	return Background, ""
}

// Detach advances the double-fork protocol. It returns true in the final
// detached child, which continues into the supervisor; in the two
// intermediate parents it returns false and the caller exits 0.
//
// Stage layout: the original process re-execs itself in a new session
// (fork + setsid), that session leader re-execs once more so the final
// child cannot reacquire a controlling terminal, and the final child
// resets its working directory, umask and standard streams.
func Detach(logger hclog.Logger) (bool, error) {
	switch os.Getenv(stageEnv) {
	case "":
		logger.Debug("detaching from terminal")
		return false, respawn("1", true)
	case "1":
		// Descriptors Go opened are close-on-exec already; mark anything
		// inherited from the launching environment the same way so the
		// final child starts with only its standard streams.
		markInheritedCloseOnExec()
		return false, respawn("2", false)
	case "2":
		_ = os.Unsetenv(stageEnv)
		if err := os.Chdir("/"); err != nil {
			return false, fmt.Errorf("chdir /: %w", err)
		}
		syscall.Umask(0)
		logger.Debug("running detached", "pid", os.Getpid())
		return true, nil
	default:
		return false, fmt.Errorf("unexpected %s value %q", stageEnv, os.Getenv(stageEnv))
	}
}

// respawn re-execs the current binary with the same arguments, standard
// streams on /dev/null and the next stage marker. newSession starts the
// child in its own session (the setsid step of the double fork).
func respawn(stage string, newSession bool) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("opening %s: %w", os.DevNull, err)
	}
	defer devnull.Close()

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), stageEnv+"="+stage)
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: newSession}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("respawning stage %s: %w", stage, err)
	}
	// The child outlives this process by design; it is not waited on.
	return nil
}

// markInheritedCloseOnExec flags every descriptor above the standard
// streams close-on-exec, so the next re-exec sheds them. Descriptors the Go
// runtime owns are flagged too, which is harmless: they stay open in this
// short-lived intermediate process.
func markInheritedCloseOnExec() {
	var limit syscall.Rlimit
	maxFD := uintptr(4096)
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err == nil {
		if limit.Cur > 0 && limit.Cur < 65536 {
			maxFD = uintptr(limit.Cur)
		} else {
			maxFD = 65536
		}
	}
	for fd := uintptr(3); fd < maxFD; fd++ {
		_, _, _ = syscall.Syscall(syscall.SYS_FCNTL, fd, syscall.F_SETFD, syscall.FD_CLOEXEC)
	}
}

// NotifyReady tells the init system the fleet has been started. Under
// systemd this is sd_notify(READY=1); without a notify socket it is a
// no-op.
func NotifyReady(logger hclog.Logger) {
	sent, err := sdnotify.SdNotify(false, sdnotify.SdNotifyReady)
	switch {
	case err != nil:
		logger.Warn("readiness notification failed", "error", err)
	case sent:
		logger.Debug("readiness notified")
	default:
		logger.Debug("no notify socket, readiness not sent")
	}
}
