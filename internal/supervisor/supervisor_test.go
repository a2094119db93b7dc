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

package supervisor

import (
	"bytes"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nehonix-Team/cyrupd/internal/config"
	"github.com/Nehonix-Team/cyrupd/internal/signals"
)

// syncBuffer guards the log buffer: the supervisor goroutine writes while
// the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestSupervisor(t *testing.T, services []config.ServiceDefinition, opts ...Option) (*Supervisor, *syncBuffer) {
	t.Helper()
	cfg := &config.DaemonConfig{
		LogDir:         t.TempDir(),
		PIDFile:        "/dev/null",
		StartupPauseMS: 50,
		Services:       services,
	}
	require.NoError(t, cfg.Validate())

	out := &syncBuffer{}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "cyrupd",
		Level:  hclog.Debug,
		Output: out,
	})
	return New(cfg, logger, opts...), out
}

func waitForLog(t *testing.T, out *syncBuffer, timeout time.Duration, substr string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), substr)
	}, timeout, 25*time.Millisecond, "log line %q not observed", substr)
}

func TestRunCleanShutdownOnSigterm(t *testing.T) {
	s, out := newTestSupervisor(t, []config.ServiceDefinition{
		{Name: "echo", Command: "sleep 3600"},
	})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()

	waitForLog(t, out, 10*time.Second, "state=running")

	signals.Raise(syscall.SIGTERM)

	select {
	case err := <-errCh:
		assert.NoError(t, err, "SIGTERM must produce a clean exit")
	case <-time.After(30 * time.Second):
		t.Fatal("supervisor did not shut down")
	}

	log := out.String()
	assert.Contains(t, log, "state=stopped")
	assert.Contains(t, log, "supervisor stopped")
}

func TestSigintAlsoShutsDown(t *testing.T) {
	s, out := newTestSupervisor(t, []config.ServiceDefinition{
		{Name: "sleeper", Command: "trap exit TERM; sleep 99999 & wait"},
	})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()
	waitForLog(t, out, 10*time.Second, "state=running")

	signals.Raise(syscall.SIGINT)

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(30 * time.Second):
		t.Fatal("supervisor did not shut down")
	}
}

func TestDependencyOrdering(t *testing.T) {
	s, out := newTestSupervisor(t, []config.ServiceDefinition{
		{Name: "b", Command: "sleep 3600", DependsOn: []string{"a"}},
		{Name: "a", Command: "sleep 3600"},
	})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()

	waitForLog(t, out, 10*time.Second, "service=b state=running")

	log := out.String()
	aRunning := strings.Index(log, "service=a state=running")
	bRunning := strings.Index(log, "service=b state=running")
	require.GreaterOrEqual(t, aRunning, 0)
	require.GreaterOrEqual(t, bRunning, 0)
	assert.Less(t, aRunning, bRunning, "dependency must report running first")

	signals.Raise(syscall.SIGTERM)
	select {
	case <-errCh:
	case <-time.After(30 * time.Second):
		t.Fatal("supervisor did not shut down")
	}
}

func TestAllFailedWithoutRestartsExitsError(t *testing.T) {
	s, _ := newTestSupervisor(t, []config.ServiceDefinition{
		{Name: "hopeless", Command: "exit 1"},
	})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrAllWorkersFailed)
	case <-time.After(30 * time.Second):
		t.Fatal("supervisor did not detect dead fleet")
	}
}

func TestSighupIsIgnored(t *testing.T) {
	s, out := newTestSupervisor(t, []config.ServiceDefinition{
		{Name: "steady", Command: "sleep 3600"},
	})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()
	waitForLog(t, out, 10*time.Second, "state=running")

	signals.Raise(syscall.SIGHUP)
	waitForLog(t, out, 5*time.Second, "SIGHUP ignored")

	select {
	case err := <-errCh:
		t.Fatalf("SIGHUP must not stop the daemon: %v", err)
	default:
	}

	signals.Raise(syscall.SIGTERM)
	select {
	case <-errCh:
	case <-time.After(30 * time.Second):
		t.Fatal("supervisor did not shut down")
	}
}

func TestReadyNotifierCalledOnce(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	s, out := newTestSupervisor(t, []config.ServiceDefinition{
		{Name: "notified", Command: "sleep 3600"},
	}, WithReadyNotifier(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	}))

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()
	waitForLog(t, out, 10*time.Second, "state=running")

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()

	signals.Raise(syscall.SIGTERM)
	select {
	case <-errCh:
	case <-time.After(30 * time.Second):
		t.Fatal("supervisor did not shut down")
	}
}
