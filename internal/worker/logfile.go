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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Nehonix-Team/cyrupd/internal/bus"
	"github.com/Nehonix-Team/cyrupd/internal/config"
)

// Defaults when a service has no rotation spec: size-capped with a small
// backlog, no compression.
const (
	defaultLogMaxSizeMB = 50
	defaultLogMaxFiles  = 7
)

// serviceLog is the rotating log file receiving a service's stdout and
// stderr. Writes come from the two pump goroutines; lumberjack serializes
// them internally.
type serviceLog struct {
	lj         *lumberjack.Logger
	spec       *config.RotationSpec
	lastRotate time.Time
}

func newServiceLog(dir, name string, spec *config.RotationSpec) *serviceLog {
	maxSize := defaultLogMaxSizeMB
	maxFiles := defaultLogMaxFiles
	compress := false
	if spec != nil {
		if spec.MaxSizeMB > 0 {
			maxSize = spec.MaxSizeMB
		}
		if spec.MaxFiles > 0 {
			maxFiles = spec.MaxFiles
		}
		compress = spec.Compress
	}

	return &serviceLog{
		lj: &lumberjack.Logger{
			Filename:   filepath.Join(dir, name+".log"),
			MaxSize:    maxSize,
			MaxBackups: maxFiles,
			Compress:   compress,
		},
		spec:       spec,
		lastRotate: time.Now(),
	}
}

// WriteLine appends one line of child output.
func (l *serviceLog) WriteLine(line []byte) {
	_, _ = l.lj.Write(append(line, '\n'))
}

// shouldRotate checks the rotation thresholds: file size against the spec's
// cap, and elapsed time against interval_days.
func (l *serviceLog) shouldRotate() bool {
	if l.spec == nil {
		return false
	}
	if l.spec.IntervalDays > 0 {
		interval := time.Duration(l.spec.IntervalDays) * 24 * time.Hour
		if time.Since(l.lastRotate) >= interval {
			return true
		}
	}
	if l.spec.MaxSizeMB > 0 {
		if info, err := os.Stat(l.lj.Filename); err == nil {
			if info.Size() >= int64(l.spec.MaxSizeMB)*1024*1024 {
				return true
			}
		}
	}
	return false
}

// rotate renames the current file to a timestamped backup, compresses and
// prunes per the spec, and reopens the log.
func (l *serviceLog) rotate() error {
	if err := l.lj.Rotate(); err != nil {
		return err
	}
	l.lastRotate = time.Now()
	return nil
}

func (l *serviceLog) Close() {
	_ = l.lj.Close()
}

// rotateTick evaluates rotation on the supervisor's cadence. The rotate
// event is published on every attempt so operators can observe cadence even
// when no bytes move; an I/O failure surfaces as Fatal without changing the
// service state.
func (w *Worker) rotateTick() {
	if w.logw.shouldRotate() {
		if err := w.logw.rotate(); err != nil {
			w.logger.Error("log rotation failed", "error", err)
			w.events.Publish(bus.FatalEvent(w.name, fmt.Sprintf("log rotation: %v", err)))
			return
		}
		w.logger.Info("log rotated", "file", w.logw.lj.Filename)
	}
	w.events.Publish(bus.RotateEvent(w.name))
}
