package store

import (
	"context"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/nailedit/internal/model"
)

// Preferences stores UI choices that survive restarts.
type Preferences struct {
	kv  KV
	log *log.Logger
}

// NewPreferences wraps kv.
func NewPreferences(kv KV, logger *log.Logger) *Preferences {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Preferences{kv: kv, log: logger}
}

// SelectedCategory returns the saved column for kind. A missing value, or
// one that is not a category of kind, yields the default category.
func (p *Preferences) SelectedCategory(ctx context.Context, kind model.Kind) model.Category {
	raw, found, err := p.kv.Get(ctx, KeySelectedCategory)
	if err != nil {
		p.log.WithError(err).Warn("reading selected category")
		return model.DefaultCategory(kind)
	}
	if !found {
		return model.DefaultCategory(kind)
	}
	c, err := model.ParseCategory(kind, raw)
	if err != nil {
		return model.DefaultCategory(kind)
	}
	return c
}

// SetSelectedCategory saves the focused column.
func (p *Preferences) SetSelectedCategory(ctx context.Context, c model.Category) error {
	return p.kv.Set(ctx, KeySelectedCategory, string(c))
}

// DarkMode returns the saved theme choice and whether one was saved.
func (p *Preferences) DarkMode(ctx context.Context) (dark bool, ok bool) {
	raw, found, err := p.kv.Get(ctx, KeyDarkMode)
	if err != nil {
		p.log.WithError(err).Warn("reading dark mode")
		return false, false
	}
	if !found {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// SetDarkMode saves the theme choice.
func (p *Preferences) SetDarkMode(ctx context.Context, dark bool) error {
	return p.kv.Set(ctx, KeyDarkMode, strconv.FormatBool(dark))
}
