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

// Package config loads and validates the daemon configuration. The file is
// TOML; unknown keys are rejected. Validation runs once at startup and the
// daemon refuses to spawn any worker on a bad document.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath = "/etc/cyrupd/cyrupd.toml"
	DefaultPIDFile    = "/var/run/cyrupd.pid"
	DefaultLogDir     = "/var/log/cyrupd"

	// MaxNameLen bounds service names so interned names and thread labels
	// stay small.
	MaxNameLen = 64

	DefaultStopGraceS    = 5
	DefaultStartupPauseMS = 500
)

// HealthCheckSpec describes how a service is probed on the health tick.
type HealthCheckSpec struct {
	Type     string `toml:"type"` // http, tcp or script
	Target   string `toml:"target"`
	TimeoutS int    `toml:"timeout_s"`
	IntervalS int   `toml:"interval_s"`
	Retries  int    `toml:"retries"`
}

// Timeout returns the probe timeout with a 5s fallback.
func (h *HealthCheckSpec) Timeout() time.Duration {
	if h.TimeoutS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(h.TimeoutS) * time.Second
}

// RotationSpec controls rotation of a service's log file.
type RotationSpec struct {
	MaxSizeMB    int  `toml:"max_size_mb"`
	MaxFiles     int  `toml:"max_files"`
	IntervalDays int  `toml:"interval_days"`
	Compress     bool `toml:"compress"`
}

// ServiceDefinition is the immutable description of one supervised service.
// One copy moves into the owning worker; the supervisor retains only the name.
type ServiceDefinition struct {
	Name          string            `toml:"name"`
	Command       string            `toml:"command"`
	Dir           string            `toml:"dir"`
	Env           map[string]string `toml:"env"`
	AutoRestart   *bool             `toml:"auto_restart"`
	RestartDelayS int               `toml:"restart_delay_s"`
	DependsOn     []string          `toml:"depends_on"`
	StopGraceS    int               `toml:"stop_grace_s"`
	MaxMemoryMB   int               `toml:"max_memory_mb"`
	MaxCPUPercent int               `toml:"max_cpu_percent"`
	HealthCheck   *HealthCheckSpec  `toml:"health_check"`
	LogRotate     *RotationSpec     `toml:"log_rotate"`
}

// RestartDelay returns the delay honored between Failed and the self-enqueued
// restart.
func (s *ServiceDefinition) RestartDelay() time.Duration {
	if s.RestartDelayS <= 0 {
		return time.Second
	}
	return time.Duration(s.RestartDelayS) * time.Second
}

// StopGrace returns how long the worker waits after SIGTERM before SIGKILL.
func (s *ServiceDefinition) StopGrace() time.Duration {
	if s.StopGraceS <= 0 {
		return DefaultStopGraceS * time.Second
	}
	return time.Duration(s.StopGraceS) * time.Second
}

// DaemonConfig is the validated top-level document.
type DaemonConfig struct {
	LogDir        string `toml:"log_dir"`
	PIDFile       string `toml:"pid_file"`
	User          string `toml:"user"`
	Group         string `toml:"group"`
	AutoRestart   bool   `toml:"auto_restart"`
	StartupPauseMS int   `toml:"startup_pause_ms"`

	Services []ServiceDefinition `toml:"services"`

	// startup order computed by Validate; indexes into Services.
	order []int
}

// StartupPause is the pause inserted after starting a service that others
// depend on.
func (c *DaemonConfig) StartupPause() time.Duration {
	if c.StartupPauseMS <= 0 {
		return DefaultStartupPauseMS * time.Millisecond
	}
	return time.Duration(c.StartupPauseMS) * time.Millisecond
}

// AutoRestartFor resolves a service's auto-restart flag against the global
// default.
func (c *DaemonConfig) AutoRestartFor(s *ServiceDefinition) bool {
	if s.AutoRestart != nil {
		return *s.AutoRestart
	}
	return c.AutoRestart
}

// StartupOrder returns the services in dependency order, declaration order
// breaking ties. Only valid after Validate succeeded.
func (c *DaemonConfig) StartupOrder() []*ServiceDefinition {
	out := make([]*ServiceDefinition, 0, len(c.order))
	for _, i := range c.order {
		out = append(out, &c.Services[i])
	}
	return out
}

// DependedOn reports whether any other service lists name as a dependency.
func (c *DaemonConfig) DependedOn(name string) bool {
	for i := range c.Services {
		for _, dep := range c.Services[i].DependsOn {
			if dep == name {
				return true
			}
		}
	}
	return false
}

// Load reads, decodes and validates the TOML document at path.
func Load(path string) (*DaemonConfig, error) {
	var cfg DaemonConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the invariants the supervisor relies on: unique valid
// names, declared dependencies, no dependency cycles, sane probe specs. It
// also fills in global defaults and computes the startup order.
func (c *DaemonConfig) Validate() error {
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.PIDFile == "" {
		c.PIDFile = DefaultPIDFile
	}
	if len(c.Services) == 0 {
		return fmt.Errorf("no services declared")
	}

	index := make(map[string]int, len(c.Services))
	for i := range c.Services {
		s := &c.Services[i]
		if err := validateName(s.Name); err != nil {
			return err
		}
		if _, dup := index[s.Name]; dup {
			return fmt.Errorf("duplicate service name %q", s.Name)
		}
		index[s.Name] = i

		if strings.TrimSpace(s.Command) == "" {
			return fmt.Errorf("service %q: empty command", s.Name)
		}
		if hc := s.HealthCheck; hc != nil {
			switch hc.Type {
			case "http", "tcp", "script":
			default:
				return fmt.Errorf("service %q: unknown health check type %q", s.Name, hc.Type)
			}
			if hc.Target == "" {
				return fmt.Errorf("service %q: health check has no target", s.Name)
			}
			if hc.Retries < 0 {
				return fmt.Errorf("service %q: negative health check retries", s.Name)
			}
		}
		if lr := s.LogRotate; lr != nil {
			if lr.MaxSizeMB < 0 || lr.MaxFiles < 0 || lr.IntervalDays < 0 {
				return fmt.Errorf("service %q: negative log rotation value", s.Name)
			}
		}
	}

	for i := range c.Services {
		s := &c.Services[i]
		for _, dep := range s.DependsOn {
			if dep == s.Name {
				return fmt.Errorf("service %q depends on itself", s.Name)
			}
			if _, ok := index[dep]; !ok {
				return fmt.Errorf("service %q depends on undeclared service %q", s.Name, dep)
			}
		}
	}

	order, err := topoSort(c.Services, index)
	if err != nil {
		return err
	}
	c.order = order
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("service with empty name")
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("service name %q longer than %d bytes", name, MaxNameLen)
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9' && i > 0:
		case (ch == '_' || ch == '-') && i > 0:
		case ch == '_' && i == 0:
		default:
			return fmt.Errorf("service name %q is not an ASCII identifier", name)
		}
	}
	return nil
}

// topoSort is Kahn's algorithm with declaration order breaking ties, so a
// config without dependencies starts in the order it was written.
func topoSort(services []ServiceDefinition, index map[string]int) ([]int, error) {
	n := len(services)
	indegree := make([]int, n)
	dependents := make([][]int, n)
	for i := range services {
		for _, dep := range services[i].DependsOn {
			j := index[dep]
			dependents[j] = append(dependents[j], i)
			indegree[i]++
		}
	}

	order := make([]int, 0, n)
	// ready is scanned lowest-index-first instead of kept as a queue; n is
	// small and this keeps ties in declaration order.
	ready := make([]bool, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready[i] = true
		}
	}

	for len(order) < n {
		picked := -1
		for i := 0; i < n; i++ {
			if ready[i] {
				picked = i
				break
			}
		}
		if picked == -1 {
			cycle := make([]string, 0)
			for i := 0; i < n; i++ {
				if indegree[i] > 0 {
					cycle = append(cycle, services[i].Name)
				}
			}
			return nil, fmt.Errorf("dependency cycle involving: %s", strings.Join(cycle, ", "))
		}
		ready[picked] = false
		order = append(order, picked)
		for _, d := range dependents[picked] {
			indegree[d]--
			if indegree[d] == 0 {
				ready[d] = true
			}
		}
	}
	return order, nil
}
