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
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const CyrupdLogo = `
   ____                            _
  / ___|   _ _ __ _   _ _ __   __| |
 | |  | | | | '__| | | | '_ \ / _` + "`" + ` |
 | |__| |_| | |  | |_| | |_) | (_| |
  \____\__, |_|   \__,_| .__/ \__,_|
       |___/           |_|
`

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:           "cyrupd",
	Short:         "Cyrupd Service Supervisor",
	Long:          `A lock-free supervisor daemon for long-running services on Unix hosts.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute dispatches the CLI. Startup errors print one diagnostic line and
// exit 1; runtime exit codes are handled by the run command itself.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		red := color.New(color.FgRed, color.Bold)
		red.Fprint(os.Stderr, "Error: ")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Silence non-essential output")
}
