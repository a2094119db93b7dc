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
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/Nehonix-Team/cyrupd/internal/config"
	"github.com/Nehonix-Team/cyrupd/internal/daemonize"
	"github.com/Nehonix-Team/cyrupd/internal/logsink"
	"github.com/Nehonix-Team/cyrupd/internal/supervisor"
	"github.com/Nehonix-Team/cyrupd/internal/watcher"
	"github.com/Nehonix-Team/cyrupd/internal/worker"
)

var (
	runForeground bool
	runConfigPath string
	runPIDFile    string
	runUnmanaged  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		// --unmanaged implies --foreground and suppresses the PID file and
		// init notification.
		foreground := runForeground || runUnmanaged
		mode, reason := daemonize.Detect(foreground)

		logger := logsink.NewLogger(verbose, quiet)
		if mode == daemonize.Foreground && reason == "operator" && !quiet {
			cmd.Print(CyrupdLogo)
		}

		cfg, err := config.Load(runConfigPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("pid-file") {
			cfg.PIDFile = runPIDFile
		}

		cred, err := worker.ResolveCredential(cfg.User, cfg.Group)
		if err != nil {
			return err
		}

		if mode == daemonize.Background {
			detached, err := daemonize.Detach(logger)
			if err != nil {
				return err
			}
			if !detached {
				// Intermediate parent of the double fork.
				os.Exit(0)
			}
		}

		// Background mode always records its PID; foreground only when the
		// operator asked for a PID file explicitly. Unmanaged never does.
		writePID := !runUnmanaged &&
			(mode == daemonize.Background || cmd.Flags().Changed("pid-file"))
		if writePID {
			if err := daemonize.WritePIDFile(cfg.PIDFile); err != nil {
				return err
			}
			defer daemonize.RemovePIDFile(cfg.PIDFile)
		}

		if cw, werr := watcher.New(runConfigPath, logger); werr == nil {
			cw.Start()
			defer cw.Close()
		} else {
			logger.Warn("config watcher unavailable", "error", werr)
		}

		logger.Info("daemon starting", "mode", mode.String(), "config", runConfigPath)

		opts := []supervisor.Option{}
		if cred != nil {
			opts = append(opts, supervisor.WithCredential(cred))
		}
		if !runUnmanaged {
			opts = append(opts, supervisor.WithReadyNotifier(func() {
				daemonize.NotifyReady(logger)
			}))
		}

		sup := supervisor.New(cfg, logger, opts...)
		if err := sup.Run(); err != nil {
			if errors.Is(err, supervisor.ErrAllWorkersFailed) {
				logger.Error("unrecoverable runtime error", "error", err)
				if writePID {
					daemonize.RemovePIDFile(cfg.PIDFile)
				}
				os.Exit(2)
			}
			return err
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runForeground, "foreground", false, "Stay attached to the terminal")
	runCmd.Flags().StringVar(&runConfigPath, "config", config.DefaultConfigPath, "Path to the configuration file")
	runCmd.Flags().StringVar(&runPIDFile, "pid-file", config.DefaultPIDFile, "Path to the PID file")
	runCmd.Flags().BoolVar(&runUnmanaged, "unmanaged", false, "Imply --foreground; skip PID file and init notification")

	rootCmd.AddCommand(runCmd)
}
