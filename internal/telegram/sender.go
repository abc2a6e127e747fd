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

package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"khabarchin/internal/domain"
)

const sendAttempts = 3

// Callback data carried by the approve/reject buttons.
const (
	CallbackApprove = "approve"
	CallbackReject  = "reject"
)

func CallbackData(action, id string) string {
	return action + ":" + id
}

// ParseCallback splits button data back into action and candidate id.
func ParseCallback(data string) (action, id string, ok bool) {
	action, id, ok = strings.Cut(data, ":")
	if !ok || id == "" {
		return "", "", false
	}
	if action != CallbackApprove && action != CallbackReject {
		return "", "", false
	}
	return action, id, true
}

// sendWithRetry pushes one prepared message, backing off linearly like all
// our outbound calls do. Context cancellation cuts the waiting short.
func sendWithRetry(ctx context.Context, api *tgbotapi.BotAPI, c tgbotapi.Chattable, log *zap.Logger) (tgbotapi.Message, error) {
	var lastErr error
	for i := 0; i < sendAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return tgbotapi.Message{}, ctx.Err()
			case <-time.After(time.Second * time.Duration(i)):
			}
		}
		msg, err := api.Send(c)
		if err == nil {
			return msg, nil
		}
		lastErr = err
		log.Warn("telegram send failed", zap.Int("attempt", i+1), zap.Error(err))
	}
	return tgbotapi.Message{}, lastErr
}

// Sender delivers approval prompts to the admin group.
type Sender struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

func NewSender(api *tgbotapi.BotAPI, approvalChatID int64, log *zap.Logger) *Sender {
	return &Sender{api: api, chatID: approvalChatID, log: log}
}

func (s *Sender) ChatID() int64 {
	return s.chatID
}

var priorityMarks = map[int]string{1: "🔴", 2: "🟠", 3: "🟡", 4: "🔵", 5: "⚪️"}

// SendPrompt posts the candidate with approve/reject buttons and returns
// the prompt's message id.
func (s *Sender) SendPrompt(ctx context.Context, c domain.Candidate) (int, error) {
	var b strings.Builder
	mark := priorityMarks[c.Priority]
	if mark == "" {
		mark = "⚪️"
	}
	b.WriteString(fmt.Sprintf("%s خبر در انتظار تایید\n", mark))
	b.WriteString(fmt.Sprintf("شناسه: %s\n", c.ID))
	b.WriteString(fmt.Sprintf("منبع: @%s\n", c.Channel))
	b.WriteString(fmt.Sprintf("دسته: %s | امتیاز: %d | اولویت: %d\n", c.Category, c.Relevance, c.Priority))
	if len(c.Topics) > 0 {
		b.WriteString("موضوعات: " + strings.Join(c.Topics, "، ") + "\n")
	}
	if c.Note != "" {
		b.WriteString(c.Note + "\n")
	}
	b.WriteString("\n")
	b.WriteString(c.Text)

	msg := tgbotapi.NewMessage(s.chatID, b.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ تایید", CallbackData(CallbackApprove, c.ID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ رد", CallbackData(CallbackReject, c.ID)),
		),
	)

	sent, err := sendWithRetry(ctx, s.api, msg, s.log)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// ChannelPublisher implements the publisher's transport against the target
// channel. Target is either "@username" or a raw chat id.
type ChannelPublisher struct {
	api    *tgbotapi.BotAPI
	target string
	log    *zap.Logger
}

func NewChannelPublisher(api *tgbotapi.BotAPI, target string, log *zap.Logger) *ChannelPublisher {
	return &ChannelPublisher{api: api, target: target, log: log}
}

func (p *ChannelPublisher) baseChat() tgbotapi.BaseChat {
	if id, err := strconv.ParseInt(p.target, 10, 64); err == nil {
		return tgbotapi.BaseChat{ChatID: id}
	}
	username := p.target
	if !strings.HasPrefix(username, "@") {
		username = "@" + username
	}
	return tgbotapi.BaseChat{ChannelUsername: username}
}

func (p *ChannelPublisher) SendText(ctx context.Context, text string) (int, error) {
	msg := tgbotapi.MessageConfig{BaseChat: p.baseChat(), Text: text}
	sent, err := sendWithRetry(ctx, p.api, msg, p.log)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (p *ChannelPublisher) SendPhoto(ctx context.Context, path, caption string) (int, error) {
	photo := tgbotapi.PhotoConfig{
		BaseFile: tgbotapi.BaseFile{BaseChat: p.baseChat(), File: tgbotapi.FilePath(path)},
		Caption:  caption,
	}
	sent, err := sendWithRetry(ctx, p.api, photo, p.log)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (p *ChannelPublisher) SendVideo(ctx context.Context, path, caption string) (int, error) {
	video := tgbotapi.VideoConfig{
		BaseFile: tgbotapi.BaseFile{BaseChat: p.baseChat(), File: tgbotapi.FilePath(path)},
		Caption:  caption,
	}
	sent, err := sendWithRetry(ctx, p.api, video, p.log)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (p *ChannelPublisher) SendDocument(ctx context.Context, path, caption string) (int, error) {
	doc := tgbotapi.DocumentConfig{
		BaseFile: tgbotapi.BaseFile{BaseChat: p.baseChat(), File: tgbotapi.FilePath(path)},
		Caption:  caption,
	}
	sent, err := sendWithRetry(ctx, p.api, doc, p.log)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}
