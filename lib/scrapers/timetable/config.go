package timetable

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/browser"
	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/restyutil"
)

type Backend string

const (
	BackendChrome Backend = "chrome"
	BackendStatic Backend = "static"
)

const DefaultBaseURL = "http://timetable.unsw.edu.au"

// ChromeConfig leaves the flags as pointers so an absent key keeps its
// default of true.
type ChromeConfig struct {
	ExecPath   string `json:"exec_path"`
	Headless   *bool  `json:"headless"`
	NoSandbox  *bool  `json:"no_sandbox"`
	DisableGPU *bool  `json:"disable_gpu"`
	UserAgent  string `json:"user_agent"`
}

type StaticConfig struct {
	CloudflareBypass bool   `json:"cloudflare_bypass"`
	UserAgent        string `json:"user_agent"`
	// raw request/response dumps for debugging, off when empty
	DumpDir string `json:"dump_dir"`
}

type Config struct {
	BaseURL                  string `json:"base_url"`
	NavigationTimeoutSeconds int    `json:"navigation_timeout_seconds"`
	RunTimeoutSeconds        int    `json:"run_timeout_seconds"`
	// 0 scans every course at once, 1 scans them one after another
	Parallelism int          `json:"parallelism"`
	Backend     Backend      `json:"backend"`
	Chrome      ChromeConfig `json:"chrome"`
	Static      StaticConfig `json:"static"`

	// default courses for the cli when none are given on the command line
	Courses []TargetCourse `json:"courses"`
}

func boolOr(value *bool, fallback bool) *bool {
	if value != nil {
		return value
	}
	return &fallback
}

func (c Config) WithDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.NavigationTimeoutSeconds <= 0 {
		c.NavigationTimeoutSeconds = 30
	}
	if c.RunTimeoutSeconds <= 0 {
		c.RunTimeoutSeconds = 120
	}
	if c.Parallelism < 0 {
		c.Parallelism = 0
	}
	if c.Backend == "" {
		c.Backend = BackendChrome
	}
	c.Chrome.Headless = boolOr(c.Chrome.Headless, true)
	c.Chrome.NoSandbox = boolOr(c.Chrome.NoSandbox, true)
	c.Chrome.DisableGPU = boolOr(c.Chrome.DisableGPU, true)
	return c
}

func (c Config) NavigationTimeout() time.Duration {
	return time.Duration(c.NavigationTimeoutSeconds) * time.Second
}

func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

func (c ChromeConfig) Options() browser.ChromeOptions {
	opts := browser.ChromeOptions{
		ExecPath:  c.ExecPath,
		UserAgent: c.UserAgent,
	}
	if c.Headless != nil {
		opts.Headless = *c.Headless
	}
	if c.NoSandbox != nil {
		opts.NoSandbox = *c.NoSandbox
	}
	if c.DisableGPU != nil {
		opts.DisableGPU = *c.DisableGPU
	}
	return opts
}

// Launcher builds the browser backend the config asks for. Call it on a
// config that has had WithDefaults applied.
func (c Config) Launcher() (browser.Launcher, error) {
	switch c.Backend {
	case BackendChrome:
		return browser.NewChromeLauncher(c.Chrome.Options()), nil
	case BackendStatic:
		base, err := url.Parse(c.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base_url: %w", err)
		}
		opts := browser.StaticOptions{
			Timeout:          c.NavigationTimeout(),
			UserAgent:        c.Static.UserAgent,
			AllowedHost:      base.Hostname(),
			CloudflareBypass: c.Static.CloudflareBypass,
		}
		if c.Static.DumpDir != "" {
			output, err := restyutil.NewFilesystemOutput(c.Static.DumpDir)
			if err != nil {
				return nil, err
			}
			opts.Output = output
		}
		return browser.NewStaticLauncher(opts), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", c.Backend)
	}
}
