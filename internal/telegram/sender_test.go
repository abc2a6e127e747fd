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

package telegram_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"khabarchin/internal/telegram"
)

func TestParseCallback(t *testing.T) {
	t.Helper()

	tests := []struct {
		name       string
		data       string
		wantAction string
		wantID     string
		wantOK     bool
	}{
		{"approve", "approve:00000001-aaaaaaaa", "approve", "00000001-aaaaaaaa", true},
		{"reject", "reject:00000001-aaaaaaaa", "reject", "00000001-aaaaaaaa", true},
		{"id may itself contain colons", "reject:x:y", "reject", "x:y", true},
		{"missing id", "approve:", "", "", false},
		{"unknown action", "publish:abc", "", "", false},
		{"no separator", "approve", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			action, id, ok := telegram.ParseCallback(tc.data)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantAction, action)
			assert.Equal(t, tc.wantID, id)
		})
	}
}

func TestCallbackDataRoundTrip(t *testing.T) {
	data := telegram.CallbackData(telegram.CallbackApprove, "00000001-aaaaaaaa")
	action, id, ok := telegram.ParseCallback(data)

	assert.True(t, ok)
	assert.Equal(t, telegram.CallbackApprove, action)
	assert.Equal(t, "00000001-aaaaaaaa", id)
}
