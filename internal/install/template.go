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

package install

import (
	"bytes"
	"text/template"
)

type unitParams struct {
	BinPath    string
	ConfigPath string
}

const systemdTemplate = `[Unit]
Description=Cyrupd service supervisor
After=network.target

[Service]
Type=notify
ExecStart={{ .BinPath }} run --config {{ .ConfigPath }}
Restart=on-failure
KillMode=mixed
TimeoutStopSec=35

[Install]
WantedBy=multi-user.target
`

const launchdTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>com.nehonix.cyrupd</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{ .BinPath }}</string>
		<string>run</string>
		<string>--config</string>
		<string>{{ .ConfigPath }}</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
</dict>
</plist>
`

const rcTemplate = `#!/bin/sh
# Manual start for hosts without a managed init system.
exec {{ .BinPath }} run --config {{ .ConfigPath }} --unmanaged
`

var (
	systemdTmpl = template.Must(template.New("systemd").Parse(systemdTemplate))
	launchdTmpl = template.Must(template.New("launchd").Parse(launchdTemplate))
	rcTmpl      = template.Must(template.New("rc").Parse(rcTemplate))
)

func renderTemplate(tmpl *template.Template, params unitParams) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", err
	}
	return buf.String(), nil
}
