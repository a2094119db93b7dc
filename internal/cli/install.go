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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/Nehonix-Team/cyrupd/internal/config"
	"github.com/Nehonix-Team/cyrupd/internal/install"
	"github.com/Nehonix-Team/cyrupd/internal/logsink"
)

var (
	installDryRun    bool
	installSign      bool
	installIdentity  string
	installUnmanaged bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the daemon and its init unit",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logsink.NewLogger(verbose, quiet)

		in := install.New(install.Options{
			DryRun:     installDryRun,
			Sign:       installSign,
			Identity:   installIdentity,
			Unmanaged:  installUnmanaged,
			ConfigPath: config.DefaultConfigPath,
		}, logger)

		return in.Run()
	},
}

func init() {
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "Print what would be installed without writing")
	installCmd.Flags().BoolVar(&installSign, "sign", false, "Code-sign the installed binary")
	installCmd.Flags().StringVar(&installIdentity, "identity", "", "Signing identity")
	installCmd.Flags().BoolVar(&installUnmanaged, "unmanaged", false, "Emit a manual-start snippet instead of an init unit")

	rootCmd.AddCommand(installCmd)
}
