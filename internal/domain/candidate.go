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

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusSent      Status = "sent"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusPublished Status = "published"
)

// Terminal reports whether a candidate in this status can still move.
func (s Status) Terminal() bool {
	switch s {
	case StatusPublished, StatusRejected, StatusExpired:
		return true
	}
	return false
}

type Category string

const (
	CategoryUrgent    Category = "urgent"
	CategoryConflict  Category = "conflict"
	CategoryActor     Category = "actor"
	CategoryFinancial Category = "financial"
	CategoryGeneral   Category = "general"
)

type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

// MediaRef points at a Telegram-hosted file. Only the file id is stored;
// bytes are re-fetched at publish time.
type MediaRef struct {
	Kind   MediaKind `json:"kind"`
	FileID string    `json:"file_id"`
}

// Candidate is one publishable news segment moving through the approval
// workflow. It is the unit persisted in the pending store.
type Candidate struct {
	ID            string    `json:"id"`
	Channel       string    `json:"channel"`
	MessageID     int       `json:"message_id"`
	Segment       int       `json:"segment"`
	Text          string    `json:"text"`         // original segment text, published verbatim
	CleanedText   string    `json:"cleaned_text"` // normalized text the scoring ran on
	Category      Category  `json:"category"`
	LexicalScore  int       `json:"lexical_score"`
	Relevance     int       `json:"relevance"`
	Priority      int       `json:"priority"` // 1 (highest) .. 5
	Topics        []string  `json:"topics,omitempty"`
	Media         *MediaRef `json:"media,omitempty"`
	Status        Status    `json:"status"`
	Note          string    `json:"note,omitempty"` // decision provider remark
	PromptChatID  int64     `json:"prompt_chat_id,omitempty"`
	PromptMsgID   int       `json:"prompt_msg_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	SentAt        time.Time `json:"sent_at,omitempty"`
	ResolvedAt    time.Time `json:"resolved_at,omitempty"`
	ResolvedBy    string    `json:"resolved_by,omitempty"`
	PublishedMsg  int       `json:"published_msg,omitempty"`
	SourceContext string    `json:"source_context,omitempty"` // fetched link text, not published
}

// DedupKey identifies a source message across restarts.
func DedupKey(channel string, messageID int) string {
	return fmt.Sprintf("%s:%d", channel, messageID)
}

// NewID builds a candidate id that sorts by creation time. The hex unix
// prefix keeps lexicographic order, the content hash keeps same-second
// bursts apart.
func NewID(text string, createdAt time.Time) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%08x-%s", createdAt.Unix(), hex.EncodeToString(sum[:4]))
}
