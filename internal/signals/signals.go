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

// Package signals captures OS signals into a single word-sized atomic that
// the supervisor polls on its tick cadence. Capture stores, never allocates,
// never locks; duplicate arrivals within one poll cycle coalesce into one
// observation. Reaction latency is bounded by the supervisor tick (~200ms).
package signals

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

var pending int32

// None is returned by Poll when no signal arrived since the previous poll.
const None = syscall.Signal(0)

// Install registers capture for SIGTERM, SIGINT and SIGHUP. Call once at
// startup, before the supervisor loop begins.
func Install() {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	go func() {
		for sig := range ch {
			if s, ok := sig.(syscall.Signal); ok {
				atomic.StoreInt32(&pending, int32(s))
			}
		}
	}()
}

// Poll swaps the pending word to zero and returns the last captured signal,
// or None. One arrival is observed exactly once.
func Poll() syscall.Signal {
	return syscall.Signal(atomic.SwapInt32(&pending, 0))
}

// Raise records sig as if it had been delivered by the kernel. Tests use it
// to drive the supervisor without sending real signals.
func Raise(sig syscall.Signal) {
	atomic.StoreInt32(&pending, int32(sig))
}

// IsShutdown reports whether sig requests graceful daemon shutdown.
func IsShutdown(sig syscall.Signal) bool {
	return sig == syscall.SIGTERM || sig == syscall.SIGINT
}
