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

package signals

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollReturnsNoneWhenIdle(t *testing.T) {
	Poll() // clear any residue from other tests
	assert.Equal(t, None, Poll())
}

func TestRaiseThenPoll(t *testing.T) {
	Raise(syscall.SIGTERM)
	assert.Equal(t, syscall.SIGTERM, Poll())
	assert.Equal(t, None, Poll(), "a signal is observed exactly once")
}

func TestDuplicateSignalsCoalesce(t *testing.T) {
	Raise(syscall.SIGTERM)
	Raise(syscall.SIGTERM)
	Raise(syscall.SIGTERM)
	assert.Equal(t, syscall.SIGTERM, Poll())
	assert.Equal(t, None, Poll())
}

func TestLastSignalWins(t *testing.T) {
	Raise(syscall.SIGHUP)
	Raise(syscall.SIGINT)
	assert.Equal(t, syscall.SIGINT, Poll())
}

func TestInstallDeliversRealSignal(t *testing.T) {
	Install()
	Poll()

	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGHUP))

	// Capture runs on a goroutine; give it a moment before reading the word.
	var got syscall.Signal
	for i := 0; i < 100; i++ {
		if got = Poll(); got != None {
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, syscall.SIGHUP, got)
}

func TestIsShutdown(t *testing.T) {
	assert.True(t, IsShutdown(syscall.SIGTERM))
	assert.True(t, IsShutdown(syscall.SIGINT))
	assert.False(t, IsShutdown(syscall.SIGHUP))
	assert.False(t, IsShutdown(None))
}
