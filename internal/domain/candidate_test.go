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

package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"khabarchin/internal/domain"
)

func TestNewIDSortsByCreationTime(t *testing.T) {
	earlier := domain.NewID("متن دوم", time.Unix(1700000001, 0))
	later := domain.NewID("متن اول", time.Unix(1700000002, 0))

	assert.Less(t, earlier, later)
}

func TestNewIDShape(t *testing.T) {
	id := domain.NewID("خبر", time.Unix(1700000000, 0))

	prefix, hash, ok := strings.Cut(id, "-")
	assert.True(t, ok)
	assert.Len(t, prefix, 8)
	assert.Len(t, hash, 8)

	// Same text in the same second maps to the same id.
	assert.Equal(t, id, domain.NewID("خبر", time.Unix(1700000000, 0)))
	// Different text in the same second does not.
	assert.NotEqual(t, id, domain.NewID("خبر دیگر", time.Unix(1700000000, 0)))
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "varzesh:42", domain.DedupKey("varzesh", 42))
}

func TestStatusTerminal(t *testing.T) {
	t.Helper()

	tests := []struct {
		status domain.Status
		want   bool
	}{
		{domain.StatusQueued, false},
		{domain.StatusSent, false},
		{domain.StatusApproved, false},
		{domain.StatusPublished, true},
		{domain.StatusRejected, true},
		{domain.StatusExpired, true},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.status.Terminal(), "status %s", tc.status)
	}
}
