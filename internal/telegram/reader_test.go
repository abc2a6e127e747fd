package telegram_test

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khabarchin/internal/domain"
	"khabarchin/internal/telegram"
)

var base = time.Unix(1700000000, 0)

func post(channel string, id int, text string, at time.Time) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: id,
		Chat:      &tgbotapi.Chat{UserName: channel},
		Text:      text,
		Date:      int(at.Unix()),
	}
}

func TestBufferDropsUnmonitoredChannels(t *testing.T) {
	r := telegram.NewReader([]string{"news"})

	r.Buffer(post("other", 1, "متن", base.Add(time.Second)))
	r.Buffer(post("news", 2, "متن", base.Add(time.Second)))

	assert.Nil(t, r.IterRecent("other", 10, base))
	got := r.IterRecent("news", 10, base)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].MessageID)
}

func TestIterRecentDrainsOldestFirst(t *testing.T) {
	r := telegram.NewReader([]string{"news"})
	for i := 1; i <= 5; i++ {
		r.Buffer(post("news", i, "متن", base.Add(time.Duration(i)*time.Second)))
	}

	first := r.IterRecent("news", 3, base)
	require.Len(t, first, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{first[0].MessageID, first[1].MessageID, first[2].MessageID})

	// The overflow stays buffered for the next poll.
	second := r.IterRecent("news", 10, base)
	require.Len(t, second, 2)
	assert.Equal(t, 4, second[0].MessageID)
	assert.Equal(t, 5, second[1].MessageID)

	assert.Nil(t, r.IterRecent("news", 10, base))
}

func TestIterRecentDropsStalePosts(t *testing.T) {
	r := telegram.NewReader([]string{"news"})
	since := base.Add(3 * time.Second)

	r.Buffer(post("news", 1, "قدیمی", base.Add(time.Second)))
	r.Buffer(post("news", 2, "مرزی", since))
	r.Buffer(post("news", 3, "تازه", base.Add(5*time.Second)))

	got := r.IterRecent("news", 10, since)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].MessageID)

	// Stale posts are discarded, not retained for a later, earlier cursor.
	assert.Nil(t, r.IterRecent("news", 10, time.Time{}))
}

func TestBufferCapsPerChannel(t *testing.T) {
	r := telegram.NewReader([]string{"news"})
	for i := 1; i <= 205; i++ {
		r.Buffer(post("news", i, "متن", base.Add(time.Duration(i)*time.Second)))
	}

	got := r.IterRecent("news", 300, time.Time{})
	require.Len(t, got, 200)
	assert.Equal(t, 6, got[0].MessageID, "oldest posts fall off the back")
	assert.Equal(t, 205, got[199].MessageID)
}

func TestPostMediaAndCaption(t *testing.T) {
	r := telegram.NewReader([]string{"news"})

	photo := post("news", 1, "", base.Add(time.Second))
	photo.Caption = "زیرنویس عکس"
	photo.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "big"}}
	r.Buffer(photo)

	video := post("news", 2, "", base.Add(2*time.Second))
	video.Caption = "زیرنویس ویدیو"
	video.Video = &tgbotapi.Video{FileID: "v1"}
	r.Buffer(video)

	doc := post("news", 3, "", base.Add(3*time.Second))
	doc.Document = &tgbotapi.Document{FileID: "d1"}
	r.Buffer(doc)

	r.Buffer(post("news", 4, "فقط متن", base.Add(4*time.Second)))

	got := r.IterRecent("news", 10, base)
	require.Len(t, got, 4)

	require.NotNil(t, got[0].Media)
	assert.Equal(t, domain.MediaPhoto, got[0].Media.Kind)
	assert.Equal(t, "big", got[0].Media.FileID, "the largest photo size wins")
	assert.Equal(t, "زیرنویس عکس", got[0].Text, "caption stands in for missing text")

	require.NotNil(t, got[1].Media)
	assert.Equal(t, domain.MediaVideo, got[1].Media.Kind)

	require.NotNil(t, got[2].Media)
	assert.Equal(t, domain.MediaDocument, got[2].Media.Kind)

	assert.Nil(t, got[3].Media)
	assert.Equal(t, "فقط متن", got[3].Text)
}

func TestChannelNormalization(t *testing.T) {
	r := telegram.NewReader([]string{" @News ", "VARZESH"})

	assert.True(t, r.Monitors("news"))
	assert.True(t, r.Monitors("@NEWS"))
	assert.True(t, r.Monitors("varzesh"))
	assert.False(t, r.Monitors("other"))
	assert.ElementsMatch(t, []string{"news", "varzesh"}, r.Channels())

	r.Buffer(post("News", 1, "متن", base.Add(time.Second)))
	got := r.IterRecent("@news", 10, base)
	require.Len(t, got, 1)
	assert.Equal(t, "news", got[0].Channel)

	r.SetChannels([]string{"other"})
	assert.False(t, r.Monitors("news"))
}

func TestBufferToleratesBrokenUpdates(t *testing.T) {
	r := telegram.NewReader([]string{"news"})

	r.Buffer(nil)
	r.Buffer(&tgbotapi.Message{MessageID: 1}) // no chat
	r.Buffer(&tgbotapi.Message{MessageID: 2, Chat: &tgbotapi.Chat{}})

	assert.Nil(t, r.IterRecent("news", 10, time.Time{}))
}
