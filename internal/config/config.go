// Package config loads the compositor's YAML configuration and turns it
// into the options the tree, seat and transaction packages take.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	catppuccin "github.com/catppuccin/go"
	"gopkg.in/yaml.v3"

	"tessera/internal/layout"
	"tessera/internal/seat"
	"tessera/internal/transaction"
	"tessera/internal/tree"
)

type Config struct {
	LogLevel    string            `yaml:"log_level"`
	Theme       string            `yaml:"theme"`
	Gaps        GapsConfig        `yaml:"gaps"`
	Border      BorderConfig      `yaml:"border"`
	Titlebar    TitlebarConfig    `yaml:"titlebar"`
	Floating    FloatingConfig    `yaml:"floating"`
	Focus       FocusConfig       `yaml:"focus"`
	TilingDrag  TilingDragConfig  `yaml:"tiling_drag"`
	Transaction TransactionConfig `yaml:"transaction"`
	Preview     PreviewConfig     `yaml:"preview"`
	IPC         IPCConfig         `yaml:"ipc"`
	Bar         BarConfig         `yaml:"bar"`
	Autostart   []string          `yaml:"autostart"`
	Outputs     []OutputConfig    `yaml:"outputs"`
}

type GapsConfig struct {
	Inner int `yaml:"inner"`
	Outer int `yaml:"outer"`
}

type BorderConfig struct {
	Style     string `yaml:"style"`
	Thickness int    `yaml:"thickness"`
}

type TitlebarConfig struct {
	Height int `yaml:"height"`
}

type FloatingConfig struct {
	Border    BorderConfig `yaml:"border"`
	MinWidth  int          `yaml:"min_width"`
	MinHeight int          `yaml:"min_height"`
	// Zero means the size of the workspace.
	MaxWidth  int `yaml:"max_width"`
	MaxHeight int `yaml:"max_height"`
}

type FocusConfig struct {
	FollowsMouse bool   `yaml:"follows_mouse"`
	Wrapping     string `yaml:"wrapping"`
}

type TilingDragConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Modifier  string `yaml:"modifier"`
	Threshold int    `yaml:"threshold"`
}

type TransactionConfig struct {
	TimeoutMS int `yaml:"timeout_ms"`
}

type PreviewConfig struct {
	HeightFraction float64 `yaml:"height_fraction"`
}

type IPCConfig struct {
	Bind string `yaml:"bind"`
	// Zero picks a free port.
	Port int `yaml:"port"`
}

type BarConfig struct {
	Command string `yaml:"command"`
	Restart bool   `yaml:"restart"`
}

// OutputConfig describes one headless output.
type OutputConfig struct {
	Name   string `yaml:"name"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Box returns the output's layout box.
func (o OutputConfig) Box() layout.Box {
	return layout.Box{X: float64(o.X), Y: float64(o.Y), Width: float64(o.Width), Height: float64(o.Height)}
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Theme:    "mocha",
		Border:   BorderConfig{Style: "normal", Thickness: 2},
		Titlebar: TitlebarConfig{Height: 24},
		Floating: FloatingConfig{
			Border:    BorderConfig{Style: "normal", Thickness: 2},
			MinWidth:  75,
			MinHeight: 50,
		},
		Focus:       FocusConfig{Wrapping: "yes"},
		TilingDrag:  TilingDragConfig{Enabled: true, Modifier: "logo", Threshold: seat.DefaultDragThreshold},
		Transaction: TransactionConfig{TimeoutMS: int(transaction.DefaultTimeout / time.Millisecond)},
		Preview:     PreviewConfig{HeightFraction: 0.2},
		IPC:         IPCConfig{Bind: "127.0.0.1"},
		Bar:         BarConfig{Restart: true},
		Outputs: []OutputConfig{
			{Name: "HEADLESS-1", Width: 1920, Height: 1080},
		},
	}
}

func Load() (Config, error) {
	return LoadFrom(getConfigPath())
}

// LoadFrom reads configPath over the defaults, then every drop-in under
// the config.d directory next to it. A missing file yields the defaults.
func LoadFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	dropIns, err := LoadDropInsFrom(filepath.Join(filepath.Dir(configPath), dropInDir))
	if err != nil {
		return DefaultConfig(), err
	}
	for _, d := range dropIns {
		if err := yaml.Unmarshal(d.Data, &cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("parse %s: %w", d.Path, err)
		}
	}

	if cfg.Theme == "" {
		cfg.Theme = "mocha"
	}

	return cfg, nil
}

// Path returns the config file Load reads.
func Path() string {
	return getConfigPath()
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := parseBorder(c.Border.Style); !ok {
		errs = append(errs, fmt.Errorf("border.style: unknown style %q", c.Border.Style))
	}
	if _, ok := parseBorder(c.Floating.Border.Style); !ok {
		errs = append(errs, fmt.Errorf("floating.border.style: unknown style %q", c.Floating.Border.Style))
	}
	if _, ok := parseWrapping(c.Focus.Wrapping); !ok {
		errs = append(errs, fmt.Errorf("focus.wrapping: unknown mode %q", c.Focus.Wrapping))
	}
	if _, ok := ParseModifier(c.TilingDrag.Modifier); !ok {
		errs = append(errs, fmt.Errorf("tiling_drag.modifier: unknown modifier %q", c.TilingDrag.Modifier))
	}
	if !isFlavor(c.Theme) {
		errs = append(errs, fmt.Errorf("theme: unknown flavour %q", c.Theme))
	}
	for name, v := range map[string]int{
		"gaps.inner":            c.Gaps.Inner,
		"gaps.outer":            c.Gaps.Outer,
		"border.thickness":      c.Border.Thickness,
		"titlebar.height":       c.Titlebar.Height,
		"floating.min_width":    c.Floating.MinWidth,
		"floating.min_height":   c.Floating.MinHeight,
		"floating.max_width":    c.Floating.MaxWidth,
		"floating.max_height":   c.Floating.MaxHeight,
		"tiling_drag.threshold": c.TilingDrag.Threshold,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative", name))
		}
	}
	if c.Transaction.TimeoutMS <= 0 {
		errs = append(errs, errors.New("transaction.timeout_ms: must be positive"))
	}
	if f := c.Preview.HeightFraction; f <= 0 || f >= 1 {
		errs = append(errs, errors.New("preview.height_fraction: must be between 0 and 1"))
	}
	if c.IPC.Port < 0 || c.IPC.Port > 65535 {
		errs = append(errs, fmt.Errorf("ipc.port: %d out of range", c.IPC.Port))
	}
	seen := make(map[string]bool)
	for i, o := range c.Outputs {
		switch {
		case o.Name == "":
			errs = append(errs, fmt.Errorf("outputs[%d]: name is required", i))
		case seen[o.Name]:
			errs = append(errs, fmt.Errorf("outputs[%d]: duplicate name %q", i, o.Name))
		}
		seen[o.Name] = true
		if o.Width <= 0 || o.Height <= 0 {
			errs = append(errs, fmt.Errorf("outputs[%d]: size must be positive", i))
		}
	}
	return errors.Join(errs...)
}

// TreeOptions converts the config to tree tunables. Unknown names fall
// back to the defaults; call Validate first to reject them.
func (c *Config) TreeOptions() tree.Options {
	opts := tree.DefaultOptions()
	opts.GapsInner = float64(c.Gaps.Inner)
	opts.GapsOuter = float64(c.Gaps.Outer)
	if b, ok := parseBorder(c.Border.Style); ok {
		opts.Border = b
	}
	opts.BorderThickness = float64(c.Border.Thickness)
	if b, ok := parseBorder(c.Floating.Border.Style); ok {
		opts.FloatingBorder = b
	}
	opts.FloatingBorderThickness = float64(c.Floating.Border.Thickness)
	opts.TitlebarHeight = float64(c.Titlebar.Height)
	opts.FloatingMinWidth = float64(c.Floating.MinWidth)
	opts.FloatingMinHeight = float64(c.Floating.MinHeight)
	opts.FloatingMaxWidth = float64(c.Floating.MaxWidth)
	opts.FloatingMaxHeight = float64(c.Floating.MaxHeight)
	if w, ok := parseWrapping(c.Focus.Wrapping); ok {
		opts.FocusWrapping = w
	}
	if f := c.Preview.HeightFraction; f > 0 && f < 1 {
		opts.PreviewFraction = f
	}
	return opts
}

// SeatOptions converts the config to seat options.
func (c *Config) SeatOptions() seat.Options {
	opts := seat.DefaultOptions()
	if m, ok := ParseModifier(c.TilingDrag.Modifier); ok {
		opts.Modifier = m
	}
	opts.TilingDrag = c.TilingDrag.Enabled
	opts.DragThreshold = float64(c.TilingDrag.Threshold)
	opts.FocusFollowsMouse = c.Focus.FollowsMouse
	return opts
}

// TransactionTimeout returns how long a transaction waits for clients.
func (c *Config) TransactionTimeout() time.Duration {
	if c.Transaction.TimeoutMS <= 0 {
		return transaction.DefaultTimeout
	}
	return time.Duration(c.Transaction.TimeoutMS) * time.Millisecond
}

// Colors are the border colours of the theme, as hex strings.
type Colors struct {
	Focused   string `json:"focused"`
	Unfocused string `json:"unfocused"`
	Urgent    string `json:"urgent"`
	Preview   string `json:"preview"`
}

// Colors returns the border colours of the configured catppuccin flavour.
func (c *Config) Colors() Colors {
	f := FlavorFromName(c.Theme)
	return Colors{
		Focused:   f.Mauve().Hex,
		Unfocused: f.Surface1().Hex,
		Urgent:    f.Red().Hex,
		Preview:   f.Teal().Hex,
	}
}

// FlavorFromName maps a theme name to a catppuccin flavour, defaulting to
// mocha.
func FlavorFromName(name string) catppuccin.Flavor {
	switch strings.ToLower(name) {
	case "latte":
		return catppuccin.Latte
	case "frappe":
		return catppuccin.Frappe
	case "macchiato":
		return catppuccin.Macchiato
	default:
		return catppuccin.Mocha
	}
}

func isFlavor(name string) bool {
	switch strings.ToLower(name) {
	case "latte", "frappe", "macchiato", "mocha":
		return true
	}
	return false
}

func parseBorder(s string) (tree.BorderMode, bool) {
	switch strings.ToLower(s) {
	case "none":
		return tree.BorderNone, true
	case "pixel":
		return tree.BorderPixel, true
	case "normal":
		return tree.BorderNormal, true
	case "csd":
		return tree.BorderCSD, true
	}
	return 0, false
}

func parseWrapping(s string) (tree.WrapMode, bool) {
	switch strings.ToLower(s) {
	case "no", "false":
		return tree.WrapNo, true
	case "yes", "true":
		return tree.WrapYes, true
	case "force":
		return tree.WrapForce, true
	case "workspace":
		return tree.WrapWorkspace, true
	}
	return 0, false
}

// ParseModifier parses a modifier name such as logo, alt, ctrl or shift.
// "none" disables modifier drags.
func ParseModifier(s string) (uint32, bool) {
	switch strings.ToLower(s) {
	case "logo", "super", "mod4":
		return seat.ModLogo, true
	case "alt", "mod1":
		return seat.ModAlt, true
	case "ctrl", "control":
		return seat.ModCtrl, true
	case "shift":
		return seat.ModShift, true
	case "none":
		return 0, true
	}
	return 0, false
}

func getConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Dir returns the tessera config directory.
func Dir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "tessera")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "tessera")
	}

	return filepath.Join(home, ".config", "tessera")
}
