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

package pipeline

import (
	"time"

	"go.uber.org/zap"
)

// Sweep runs one maintenance pass: stale pending candidates expire, old
// seen keys are forgotten. The ticker calls it, the admin command does too.
func (p *Pipeline) Sweep() (expired, pruned int) {
	var err error

	expired, err = p.machine.Expire(p.cfg.MaxAge)
	if err != nil {
		p.log.Warn("expire sweep failed", zap.Error(err))
	}

	pruned, err = p.store.PruneSeen(time.Now().Add(-p.cfg.SeenRetention))
	if err != nil {
		p.log.Warn("seen prune failed", zap.Error(err))
	}

	if expired > 0 || pruned > 0 {
		p.log.Info("sweep done",
			zap.Int("expired", expired), zap.Int("seen_pruned", pruned))
	}
	return expired, pruned
}
