package telegram

import (
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"khabarchin/internal/domain"
)

// Message is one channel post as the pipeline sees it.
type Message struct {
	Channel   string
	MessageID int
	Text      string
	Media     *domain.MediaRef
	At        time.Time
}

// keep per channel; old posts fall off the back.
const bufferCap = 200

// Reader buffers channel_post updates for the pipeline to poll. The bot's
// update loop feeds it; the pipeline drains it on its own schedule.
type Reader struct {
	mu       sync.Mutex
	channels map[string]bool
	buf      map[string][]Message
}

func NewReader(channels []string) *Reader {
	r := &Reader{
		channels: make(map[string]bool),
		buf:      make(map[string][]Message),
	}
	r.SetChannels(channels)
	return r
}

func normalizeChannel(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}

func (r *Reader) SetChannels(channels []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = make(map[string]bool, len(channels))
	for _, c := range channels {
		if n := normalizeChannel(c); n != "" {
			r.channels[n] = true
		}
	}
}

func (r *Reader) Channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.channels))
	for c := range r.channels {
		out = append(out, c)
	}
	return out
}

func (r *Reader) Monitors(channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels[normalizeChannel(channel)]
}

// Buffer stores a post from a monitored channel. Posts from anywhere else
// are dropped silently.
func (r *Reader) Buffer(post *tgbotapi.Message) {
	if post == nil || post.Chat == nil {
		return
	}
	channel := normalizeChannel(post.Chat.UserName)
	if channel == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.channels[channel] {
		return
	}

	msg := Message{
		Channel:   channel,
		MessageID: post.MessageID,
		Text:      postText(post),
		Media:     postMedia(post),
		At:        time.Unix(int64(post.Date), 0),
	}
	buf := append(r.buf[channel], msg)
	if len(buf) > bufferCap {
		buf = buf[len(buf)-bufferCap:]
	}
	r.buf[channel] = buf
}

// IterRecent returns up to limit buffered posts of a channel newer than
// since, oldest first, and removes them from the buffer.
func (r *Reader) IterRecent(channel string, limit int, since time.Time) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	channel = normalizeChannel(channel)
	buf := r.buf[channel]
	if len(buf) == 0 {
		return nil
	}

	out := make([]Message, 0, limit)
	rest := buf[:0]
	for _, m := range buf {
		switch {
		case !m.At.After(since):
			// stale, drop it
		case len(out) < limit:
			out = append(out, m)
		default:
			rest = append(rest, m)
		}
	}
	r.buf[channel] = rest
	return out
}

func postText(post *tgbotapi.Message) string {
	if post.Text != "" {
		return post.Text
	}
	return post.Caption
}

func postMedia(post *tgbotapi.Message) *domain.MediaRef {
	switch {
	case len(post.Photo) > 0:
		// last size is the largest
		return &domain.MediaRef{
			Kind:   domain.MediaPhoto,
			FileID: post.Photo[len(post.Photo)-1].FileID,
		}
	case post.Video != nil:
		return &domain.MediaRef{Kind: domain.MediaVideo, FileID: post.Video.FileID}
	case post.Document != nil:
		return &domain.MediaRef{Kind: domain.MediaDocument, FileID: post.Document.FileID}
	}
	return nil
}
