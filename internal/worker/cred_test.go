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
	"os/user"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCredentialEmptyUserInherits(t *testing.T) {
	cred, err := ResolveCredential("", "")
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestResolveCredentialCurrentUser(t *testing.T) {
	me, err := user.Current()
	require.NoError(t, err)

	cred, err := ResolveCredential(me.Username, "")
	require.NoError(t, err)
	require.NotNil(t, cred)

	uid, _ := strconv.ParseUint(me.Uid, 10, 32)
	assert.Equal(t, uint32(uid), cred.Uid)
}

func TestResolveCredentialUnknownUser(t *testing.T) {
	_, err := ResolveCredential("cyrupd-no-such-user-xyzzy", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolving user")
}

func TestResolveCredentialUnknownGroup(t *testing.T) {
	me, err := user.Current()
	require.NoError(t, err)

	_, err = ResolveCredential(me.Username, "cyrupd-no-such-group-xyzzy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolving group")
}
