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

package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khabarchin/internal/domain"
)

func TestMinDistance(t *testing.T) {
	t.Helper()

	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"identical", "stats", "stats", 0},
		{"one insertion", "stat", "stats", 1},
		{"empty against word", "", "abc", 3},
		{"classic", "kitten", "sitting", 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, minDistance(tc.a, tc.b))
		})
	}
}

func TestFindSimilarCommands(t *testing.T) {
	b := &Bot{commands: []Command{
		{Name: "/help"},
		{Name: "/stats"},
		{Name: "/status"},
		{Name: "/pending"},
		{Name: "/channels"},
	}}

	got := b.findSimilarCommands("/stat")
	require.Len(t, got, 3)
	assert.Equal(t, "/stats", got[0])
	assert.Equal(t, "/status", got[1])

	// Fewer commands than suggestion slots.
	b = &Bot{commands: []Command{{Name: "/help"}}}
	assert.Equal(t, []string{"/help"}, b.findSimilarCommands("/halp"))
}

func TestCallerName(t *testing.T) {
	assert.Equal(t, "dashboard", callerName(nil))
	assert.Equal(t, "unknown", callerName(&tgbotapi.Message{}))
	assert.Equal(t, "@admin", callerFromUser(&tgbotapi.User{UserName: "admin"}))
	assert.Equal(t, "12345", callerFromUser(&tgbotapi.User{ID: 12345}))
}

func TestStatusFa(t *testing.T) {
	tests := []struct {
		status domain.Status
		want   string
	}{
		{domain.StatusQueued, "در صف"},
		{domain.StatusSent, "منتظر تصمیم"},
		{domain.StatusPublished, "منتشرشده"},
		{domain.StatusRejected, "ردشده"},
		{domain.StatusExpired, "منقضی"},
		{domain.Status("weird"), "weird"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, statusFa(tc.status))
	}
}
