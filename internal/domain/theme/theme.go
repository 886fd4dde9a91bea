// Package theme switches between the visual presentation modes and
// remembers the choice.
package theme

import (
	"context"
	"sync"

	"github.com/okian/detective/internal/adapters/kv"
	"github.com/okian/detective/pkg/logger"
	"github.com/okian/detective/pkg/metrics"
)

// Mode is a presentation mode.
type Mode string

const (
	Dark         Mode = "dark"
	Light        Mode = "light"
	HighContrast Mode = "high-contrast"
)

// Store keys.
const (
	Key         = "theme"
	ContrastKey = "theme_contrast"
)

// Body classes and editor themes.
const (
	ClassLight        = "light-theme"
	ClassHighContrast = "high-contrast"

	EditorLight = "github"
	EditorDark  = "monokai"

	IconLight = "☀"
	IconDark  = "🌙"
)

// Announcements for assistive technology.
const (
	AnnounceLight       = "Light theme enabled"
	AnnounceDark        = "Dark theme enabled"
	AnnounceContrastOn  = "High contrast enabled"
	AnnounceContrastOff = "High contrast disabled"
)

// ParseMode maps s onto a known mode; anything else is Dark.
func ParseMode(s string) Mode {
	switch m := Mode(s); m {
	case Dark, Light, HighContrast:
		return m
	default:
		return Dark
	}
}

// Presentation describes how the interface should look after a change.
type Presentation struct {
	Mode         Mode     `json:"mode"`
	Primary      Mode     `json:"primary"`
	HighContrast bool     `json:"high_contrast"`
	BodyClasses  []string `json:"body_classes"`
	ToggleIcon   string   `json:"toggle_icon"`
	EditorTheme  string   `json:"editor_theme"`
	Announcement string   `json:"announcement,omitempty"`
}

// Controller holds the primary mode (dark or light) and an independent
// high-contrast flag. Every change is persisted.
type Controller struct {
	kv     *kv.Adapter
	logger logger.Logger

	mu       sync.Mutex
	primary  Mode
	contrast bool
}

// New returns a controller in the default dark mode. Call Init to restore
// the persisted state.
func New(s kv.Store, opts ...Option) *Controller {
	c := &Controller{
		logger:  logger.Get().Named("theme"),
		primary: Dark,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.kv = kv.NewAdapter(s, kv.WithKind("theme"), kv.WithLogger(c.logger))
	return c
}

// Init restores the persisted mode and contrast flag.
func (c *Controller) Init(ctx context.Context) Presentation {
	c.mu.Lock()
	defer c.mu.Unlock()

	var saved string
	if c.kv.Load(ctx, Key, &saved) {
		switch ParseMode(saved) {
		case Light:
			c.primary = Light
		case HighContrast:
			// Older stores kept high contrast as the only mode.
			c.primary = Dark
			c.contrast = true
		default:
			c.primary = Dark
		}
	}
	var contrast bool
	if c.kv.Load(ctx, ContrastKey, &contrast) {
		c.contrast = contrast
	}
	return c.present("")
}

// Current returns the presentation without changing anything.
func (c *Controller) Current() Presentation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.present("")
}

// Apply sets mode. Dark and light replace the primary mode and clear high
// contrast; high-contrast only sets the flag. Unknown modes mean dark.
func (c *Controller) Apply(ctx context.Context, mode string) Presentation {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch m := ParseMode(mode); m {
	case HighContrast:
		c.contrast = true
	default:
		c.primary = m
		c.contrast = false
	}
	c.persist(ctx)
	return c.present("")
}

// Toggle flips the primary mode between light and dark.
func (c *Controller) Toggle(ctx context.Context) Presentation {
	c.mu.Lock()
	defer c.mu.Unlock()

	announcement := AnnounceLight
	if c.primary == Light {
		c.primary = Dark
		announcement = AnnounceDark
	} else {
		c.primary = Light
	}
	c.persist(ctx)
	return c.present(announcement)
}

// ToggleContrast flips high contrast; the primary mode is untouched.
func (c *Controller) ToggleContrast(ctx context.Context) Presentation {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.contrast = !c.contrast
	announcement := AnnounceContrastOff
	if c.contrast {
		announcement = AnnounceContrastOn
	}
	c.kv.Save(ctx, ContrastKey, c.contrast)
	metrics.RecordThemeChange(string(c.mode()))
	return c.present(announcement)
}

func (c *Controller) persist(ctx context.Context) {
	c.kv.Save(ctx, Key, string(c.primary))
	c.kv.Save(ctx, ContrastKey, c.contrast)
	metrics.RecordThemeChange(string(c.mode()))
	c.logger.Debug(ctx, "theme changed", logger.String("primary", string(c.primary)), logger.Bool("high_contrast", c.contrast))
}

// mode is the effective mode; high contrast wins over the primary mode.
func (c *Controller) mode() Mode {
	if c.contrast {
		return HighContrast
	}
	return c.primary
}

func (c *Controller) present(announcement string) Presentation {
	p := Presentation{
		Mode:         c.mode(),
		Primary:      c.primary,
		HighContrast: c.contrast,
		BodyClasses:  []string{},
		ToggleIcon:   IconDark,
		EditorTheme:  EditorDark,
		Announcement: announcement,
	}
	switch p.Mode {
	case Light:
		p.BodyClasses = append(p.BodyClasses, ClassLight)
		p.ToggleIcon = IconLight
		p.EditorTheme = EditorLight
	case HighContrast:
		p.BodyClasses = append(p.BodyClasses, ClassHighContrast)
	}
	return p
}
