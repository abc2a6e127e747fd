/*
   Khabarchin - Telegram news watchdog and approval pipeline
   Copyright (C) 2025  Khabarchin contributors

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package publish formats approved candidates and pushes them to the
// target channel: category glyph up front, attribution and a Tehran-time
// Jalali timestamp at the bottom. Media is re-fetched from Telegram at
// publish time since file urls of old updates go stale.
package publish

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	jalaali "github.com/jalaali/go-jalaali"
	"go.uber.org/zap"

	"khabarchin/internal/domain"
)

// Telegram hard limits, with a little slack for our trailer lines.
const (
	maxTextRunes    = 4000
	maxCaptionRunes = 1000
)

const DefaultMediaCooldown = 90 * time.Second

// Transport posts to the configured target channel.
type Transport interface {
	SendText(ctx context.Context, text string) (int, error)
	SendPhoto(ctx context.Context, path, caption string) (int, error)
	SendVideo(ctx context.Context, path, caption string) (int, error)
	SendDocument(ctx context.Context, path, caption string) (int, error)
}

// MediaFetcher downloads a Telegram-hosted file and returns its local path.
type MediaFetcher interface {
	Fetch(ctx context.Context, ref domain.MediaRef) (string, error)
}

type Config struct {
	Attribution    string `json:"attribution"` // e.g. "🆔 @khabarchin", empty disables
	MediaCooldownS int    `json:"media_cooldown_seconds"`
}

func DefaultConfig() Config {
	return Config{
		Attribution:    "",
		MediaCooldownS: int(DefaultMediaCooldown / time.Second),
	}
}

var glyphs = map[domain.Category]string{
	domain.CategoryUrgent:    "🔴",
	domain.CategoryConflict:  "⚔️",
	domain.CategoryActor:     "🌍",
	domain.CategoryFinancial: "💰",
	domain.CategoryGeneral:   "📰",
}

type Publisher struct {
	transport Transport
	media     MediaFetcher
	cfg       Config
	log       *zap.Logger
	tehran    *time.Location
	now       func() time.Time
}

func New(transport Transport, media MediaFetcher, cfg Config, log *zap.Logger) *Publisher {
	loc, err := time.LoadLocation("Asia/Tehran")
	if err != nil {
		loc = time.FixedZone("IRST", int((3*time.Hour + 30*time.Minute).Seconds()))
	}
	return &Publisher{
		transport: transport,
		media:     media,
		cfg:       cfg,
		log:       log,
		tehran:    loc,
		now:       time.Now,
	}
}

// Publish sends the candidate and returns the posted message id. A failed
// media fetch degrades to a text-only post; a failed send is the caller's
// problem (the approval machine keeps the candidate retryable).
func (p *Publisher) Publish(ctx context.Context, c domain.Candidate) (int, error) {
	text := p.Compose(c)

	if c.Media == nil {
		return p.transport.SendText(ctx, clip(text, maxTextRunes))
	}

	path, err := p.media.Fetch(ctx, *c.Media)
	if err != nil {
		p.log.Warn("media fetch failed, publishing text only",
			zap.String("id", c.ID), zap.Error(err))
		return p.transport.SendText(ctx, clip(text, maxTextRunes))
	}
	p.scheduleCleanup(path)

	caption := clip(text, maxCaptionRunes)
	switch c.Media.Kind {
	case domain.MediaPhoto:
		return p.transport.SendPhoto(ctx, path, caption)
	case domain.MediaVideo:
		return p.transport.SendVideo(ctx, path, caption)
	default:
		return p.transport.SendDocument(ctx, path, caption)
	}
}

// Compose builds the outgoing text: glyph, body, attribution, timestamp.
// Lines already present in the body are not duplicated.
func (p *Publisher) Compose(c domain.Candidate) string {
	var b strings.Builder

	body := strings.TrimSpace(c.Text)
	if !hasGlyph(body) {
		glyph, ok := glyphs[c.Category]
		if !ok {
			glyph = glyphs[domain.CategoryGeneral]
		}
		b.WriteString(glyph)
		b.WriteString(" ")
	}
	b.WriteString(body)

	if p.cfg.Attribution != "" && !strings.Contains(body, p.cfg.Attribution) {
		b.WriteString("\n\n")
		b.WriteString(p.cfg.Attribution)
	}

	b.WriteString("\n🕐 ")
	b.WriteString(p.stamp(p.now()))
	return b.String()
}

func hasGlyph(text string) bool {
	for _, g := range glyphs {
		if strings.HasPrefix(text, g) {
			return true
		}
	}
	return false
}

// stamp renders Tehran time on the Jalali calendar with Persian digits.
func (p *Publisher) stamp(t time.Time) string {
	t = t.In(p.tehran)
	jy, jm, jd, err := jalaali.ToJalaali(t.Year(), t.Month(), t.Day())
	if err != nil {
		return toPersianDigits(t.Format("2006/01/02 15:04"))
	}
	s := fmt.Sprintf("%04d/%02d/%02d %02d:%02d", jy, int(jm), jd, t.Hour(), t.Minute())
	return toPersianDigits(s)
}

var persianDigits = map[rune]rune{
	'0': '۰', '1': '۱', '2': '۲', '3': '۳', '4': '۴',
	'5': '۵', '6': '۶', '7': '۷', '8': '۸', '9': '۹',
}

func toPersianDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if p, ok := persianDigits[r]; ok {
			return p
		}
		return r
	}, s)
}

func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

func (p *Publisher) scheduleCleanup(path string) {
	cooldown := time.Duration(p.cfg.MediaCooldownS) * time.Second
	if cooldown <= 0 {
		cooldown = DefaultMediaCooldown
	}
	time.AfterFunc(cooldown, func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.log.Debug("media cleanup failed", zap.String("path", path), zap.Error(err))
		}
	})
}
