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

package approval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"khabarchin/internal/domain"
)

type Verdict int

const (
	// VerdictHuman routes the candidate to the admin group as usual.
	VerdictHuman Verdict = iota
	VerdictApprove
	VerdictReject
)

type Decision struct {
	Verdict    Verdict
	Confidence int // 0..100, only meaningful for automated decisions
	Note       string
}

// Provider decides what happens to a freshly queued candidate.
type Provider interface {
	Decide(ctx context.Context, c domain.Candidate) (Decision, error)
}

// HumanProvider is the default: every candidate goes to the admins.
type HumanProvider struct{}

func (HumanProvider) Decide(context.Context, domain.Candidate) (Decision, error) {
	return Decision{Verdict: VerdictHuman}, nil
}

// Scorer rates a text 0..100 for publishability.
type Scorer interface {
	Score(ctx context.Context, text string) (int, error)
}

// AutoProvider resolves clear-cut candidates with a model score and leaves
// the middle band to the humans. Scorer trouble also falls back to the
// human path, the pipeline must not stall on a dead model server.
type AutoProvider struct {
	scorer    Scorer
	approveAt int
	rejectAt  int
	log       *zap.Logger
}

func NewAutoProvider(scorer Scorer, approveAt, rejectAt int, log *zap.Logger) *AutoProvider {
	if approveAt <= 0 || approveAt > 100 {
		approveAt = 85
	}
	if rejectAt < 0 || rejectAt >= approveAt {
		rejectAt = 20
	}
	return &AutoProvider{scorer: scorer, approveAt: approveAt, rejectAt: rejectAt, log: log}
}

func (p *AutoProvider) Decide(ctx context.Context, c domain.Candidate) (Decision, error) {
	score, err := p.scorer.Score(ctx, c.CleanedText)
	if err != nil {
		p.log.Warn("auto scorer unavailable, deferring to humans",
			zap.String("id", c.ID), zap.Error(err))
		return Decision{Verdict: VerdictHuman, Note: "auto: scorer error"}, nil
	}

	note := fmt.Sprintf("auto score %d", score)
	switch {
	case score >= p.approveAt:
		return Decision{Verdict: VerdictApprove, Confidence: score, Note: note}, nil
	case score <= p.rejectAt:
		return Decision{Verdict: VerdictReject, Confidence: score, Note: note}, nil
	default:
		return Decision{Verdict: VerdictHuman, Confidence: score, Note: note + ", needs review"}, nil
	}
}
