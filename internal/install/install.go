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

// Package install authors the init-system integration for the daemon: a
// systemd unit on Linux, a launchd property list on macOS, or a plain rc
// snippet when the host is unmanaged. It also copies the binary into place
// and optionally code-signs it.
package install

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/hashicorp/go-hclog"
)

// Options come from the install CLI flags.
type Options struct {
	// DryRun renders everything to stdout without touching the filesystem.
	DryRun bool
	// Sign runs the platform code-signing tool over the installed binary.
	Sign bool
	// Identity is the signing identity passed to the signing tool.
	Identity string
	// Unmanaged skips init-unit authoring and emits a manual-start snippet.
	Unmanaged bool

	// ConfigPath is baked into the generated unit.
	ConfigPath string
	// BinDir receives the copied binary; defaults to /usr/local/bin.
	BinDir string
}

const (
	systemdUnitPath = "/etc/systemd/system/cyrupd.service"
	launchdPlistPath = "/Library/LaunchDaemons/com.nehonix.cyrupd.plist"
	defaultBinDir    = "/usr/local/bin"
)

// Installer carries the resolved plan.
type Installer struct {
	opts   Options
	logger hclog.Logger
	stdout io.Writer
}

func New(opts Options, logger hclog.Logger) *Installer {
	if opts.BinDir == "" {
		opts.BinDir = defaultBinDir
	}
	return &Installer{opts: opts, logger: logger, stdout: os.Stdout}
}

// Run performs (or previews) the installation.
func (in *Installer) Run() error {
	binPath := filepath.Join(in.opts.BinDir, "cyrupd")

	unit, unitPath, err := in.renderUnit(binPath)
	if err != nil {
		return err
	}

	if in.opts.DryRun {
		fmt.Fprintf(in.stdout, "# would install binary to %s\n", binPath)
		fmt.Fprintf(in.stdout, "# would write %s:\n%s", unitPath, unit)
		return nil
	}

	if err := in.copyBinary(binPath); err != nil {
		return err
	}
	if err := os.WriteFile(unitPath, []byte(unit), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", unitPath, err)
	}
	in.logger.Info("init unit written", "path", unitPath)

	if in.opts.Sign {
		if err := in.sign(binPath); err != nil {
			return err
		}
	}
	return nil
}

// renderUnit picks the unit flavor for this host.
func (in *Installer) renderUnit(binPath string) (string, string, error) {
	params := unitParams{
		BinPath:    binPath,
		ConfigPath: in.opts.ConfigPath,
	}
	switch {
	case in.opts.Unmanaged:
		out, err := renderTemplate(rcTmpl, params)
		return out, filepath.Join(in.opts.BinDir, "cyrupd-start.sh"), err
	case runtime.GOOS == "darwin":
		out, err := renderTemplate(launchdTmpl, params)
		return out, launchdPlistPath, err
	default:
		out, err := renderTemplate(systemdTmpl, params)
		return out, systemdUnitPath, err
	}
}

// copyBinary installs the currently running executable.
func (in *Installer) copyBinary(dst string) error {
	src, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	if src == dst {
		return nil
	}

	from, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer from.Close()

	tmp := dst + ".tmp"
	to, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	if _, err := io.Copy(to, from); err != nil {
		to.Close()
		os.Remove(tmp)
		return fmt.Errorf("copying binary: %w", err)
	}
	if err := to.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("copying binary: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("installing binary: %w", err)
	}
	in.logger.Info("binary installed", "path", dst)
	return nil
}

// sign invokes the platform signing tool. Only darwin has one today;
// elsewhere the request is refused so the operator notices.
func (in *Installer) sign(binPath string) error {
	if runtime.GOOS != "darwin" {
		return fmt.Errorf("code signing not supported on %s", runtime.GOOS)
	}
	identity := in.opts.Identity
	if identity == "" {
		identity = "-"
	}
	cmd := exec.Command("codesign", "--force", "--sign", identity, binPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("codesign: %v: %s", err, out)
	}
	in.logger.Info("binary signed", "identity", identity)
	return nil
}
