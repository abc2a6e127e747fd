package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"khabarchin/internal/approval"
	"khabarchin/internal/classify"
	"khabarchin/internal/domain"
	"khabarchin/internal/metrics"
	"khabarchin/internal/queue"
	"khabarchin/internal/relevance"
	"khabarchin/internal/segment"
	"khabarchin/internal/store"
	"khabarchin/internal/telegram"
)

// promauto registers on the default registry, so the package shares one
// instance across all tests.
var met = metrics.New()

const (
	goldText   = "قیمت طلای ۱۸ عیار امروز ۲ میلیون تومان اعلام شد"
	sportsText = "تیم ملی فوتبال ایران برنده شد"
	strikeText = "حمله موشکی سپاه به تل‌آویو، به گزارش خبرگزاری"
)

type pubStub struct {
	msgID int
	err   error
	calls int
}

func (p *pubStub) Publish(context.Context, domain.Candidate) (int, error) {
	p.calls++
	return p.msgID, p.err
}

type scoreStub struct {
	score int
	err   error
}

func (s scoreStub) Score(context.Context, string) (int, error) {
	return s.score, s.err
}

func newTestPipeline(t *testing.T, provider approval.Provider, pub *pubStub) (*Pipeline, *store.Store, chan queue.Entry) {
	t.Helper()
	log := zap.NewNop()

	st, err := store.Open(filepath.Join(t.TempDir(), "state.json"), log)
	require.NoError(t, err)

	machine := approval.NewMachine(st, pub, nil, log, nil)

	sent := make(chan queue.Entry, 16)
	send := func(ctx context.Context, e queue.Entry) error {
		sent <- e
		return nil
	}
	q := queue.New(queue.Config{Capacity: 16, MinDelayMS: 1}, send, log, nil)
	t.Cleanup(q.Stop)

	if provider == nil {
		provider = approval.HumanProvider{}
	}

	p := New(
		Config{},
		telegram.NewReader([]string{"news"}),
		classify.New(classify.DefaultKeywords(), 20),
		segment.NewSplitter(10),
		relevance.NewFilter(relevance.DefaultTaxonomy(), 0),
		st,
		machine,
		provider,
		q,
		nil,
		log,
		met,
	)
	return p, st, sent
}

func msg(id int, text string) telegram.Message {
	return telegram.Message{Channel: "news", MessageID: id, Text: text, At: time.Now()}
}

func awaitEntry(t *testing.T, sent <-chan queue.Entry) queue.Entry {
	t.Helper()
	select {
	case e := <-sent:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("prompt never reached the send func")
		return queue.Entry{}
	}
}

func TestProcessCreatesCandidate(t *testing.T) {
	p, st, sent := newTestPipeline(t, nil, &pubStub{})

	ok := p.process(context.Background(), msg(1, goldText))
	assert.True(t, ok)

	pending := st.Pending()
	require.Len(t, pending, 1)
	c := pending[0]
	assert.Equal(t, domain.StatusQueued, c.Status)
	assert.Equal(t, domain.CategoryFinancial, c.Category)
	assert.Equal(t, 14, c.LexicalScore)
	assert.Equal(t, 14, c.Relevance)
	assert.Equal(t, 4, c.Priority)
	assert.Equal(t, goldText, c.Text)
	assert.True(t, st.IsSeen("news:1"))

	e := awaitEntry(t, sent)
	assert.Equal(t, c.ID, e.CandidateID)
	assert.Equal(t, 4, e.Priority)
}

func TestProcessDedup(t *testing.T) {
	p, st, sent := newTestPipeline(t, nil, &pubStub{})

	require.True(t, p.process(context.Background(), msg(1, goldText)))
	awaitEntry(t, sent)

	assert.False(t, p.process(context.Background(), msg(1, goldText)),
		"the same channel message must not produce a second candidate")
	assert.Len(t, st.Pending(), 1)
}

func TestProcessRejectsSports(t *testing.T) {
	p, st, _ := newTestPipeline(t, nil, &pubStub{})

	ok := p.process(context.Background(), msg(9, sportsText))
	assert.False(t, ok)
	assert.Empty(t, st.Pending())

	// Only accepted messages enter the seen set; a re-post gets another look.
	assert.False(t, st.IsSeen("news:9"))
}

func TestProcessSplitsSegments(t *testing.T) {
	p, st, sent := newTestPipeline(t, nil, &pubStub{})

	m := msg(2, goldText+"\n➖➖➖\n"+strikeText)
	m.Media = &domain.MediaRef{Kind: domain.MediaPhoto, FileID: "f1"}

	ok := p.process(context.Background(), m)
	assert.True(t, ok)

	pending := st.Pending()
	require.Len(t, pending, 2)
	bySegment := make(map[int]domain.Candidate, 2)
	for _, c := range pending {
		bySegment[c.Segment] = c
	}

	first, ok := bySegment[0]
	require.True(t, ok)
	assert.Equal(t, goldText, first.Text)
	require.NotNil(t, first.Media, "post media rides on the first segment")
	assert.Equal(t, "f1", first.Media.FileID)

	second, ok := bySegment[1]
	require.True(t, ok)
	assert.Equal(t, strikeText, second.Text)
	assert.Nil(t, second.Media)
	assert.Equal(t, 2, second.Priority)

	awaitEntry(t, sent)
	awaitEntry(t, sent)
}

func TestProcessAutoApprove(t *testing.T) {
	pub := &pubStub{msgID: 42}
	provider := approval.NewAutoProvider(scoreStub{score: 95}, 85, 20, zap.NewNop())
	p, st, sent := newTestPipeline(t, provider, pub)

	ok := p.process(context.Background(), msg(1, goldText))
	assert.True(t, ok)

	assert.Empty(t, st.Pending(), "auto-approved candidates resolve immediately")
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, int64(1), st.Stats().Published)

	select {
	case e := <-sent:
		t.Fatalf("no prompt expected, got %q", e.CandidateID)
	default:
	}
}

func TestProcessAutoReject(t *testing.T) {
	pub := &pubStub{}
	provider := approval.NewAutoProvider(scoreStub{score: 5}, 85, 20, zap.NewNop())
	p, st, sent := newTestPipeline(t, provider, pub)

	ok := p.process(context.Background(), msg(1, goldText))
	assert.True(t, ok)

	assert.Empty(t, st.Pending())
	assert.Equal(t, 0, pub.calls)
	assert.Equal(t, int64(1), st.Stats().Rejected)

	select {
	case e := <-sent:
		t.Fatalf("no prompt expected, got %q", e.CandidateID)
	default:
	}
}

func TestProcessScorerErrorDefersToHumans(t *testing.T) {
	pub := &pubStub{}
	provider := approval.NewAutoProvider(scoreStub{err: context.DeadlineExceeded}, 85, 20, zap.NewNop())
	p, st, sent := newTestPipeline(t, provider, pub)

	require.True(t, p.process(context.Background(), msg(1, goldText)))

	e := awaitEntry(t, sent)
	c, ok := st.Get(e.CandidateID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusQueued, c.Status)
	assert.Equal(t, "auto: scorer error", c.Note)
	assert.Equal(t, 0, pub.calls)
}

func TestResend(t *testing.T) {
	p, st, sent := newTestPipeline(t, nil, &pubStub{})

	waiting := domain.Candidate{
		ID:        "00000001-aaaaaaaa",
		Channel:   "news",
		Text:      "متن",
		Priority:  3,
		Status:    domain.StatusQueued,
		CreatedAt: time.Now(),
	}
	prompted := domain.Candidate{
		ID:        "00000002-bbbbbbbb",
		Channel:   "news",
		Text:      "متن",
		Priority:  3,
		Status:    domain.StatusSent,
		CreatedAt: time.Now(),
	}
	require.NoError(t, st.Put(waiting))
	require.NoError(t, st.Put(prompted))

	assert.Equal(t, 1, p.Resend(), "only candidates without a prompt go back out")
	e := awaitEntry(t, sent)
	assert.Equal(t, waiting.ID, e.CandidateID)
}

func TestSweep(t *testing.T) {
	p, st, _ := newTestPipeline(t, nil, &pubStub{})

	require.NoError(t, st.Put(domain.Candidate{
		ID:        "00000001-aaaaaaaa",
		Channel:   "news",
		Text:      "متن",
		Status:    domain.StatusQueued,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}))
	require.NoError(t, st.MarkSeen("news:old", time.Now().Add(-8*24*time.Hour)))
	require.NoError(t, st.MarkSeen("news:new", time.Now()))

	expired, pruned := p.Sweep()
	assert.Equal(t, 1, expired)
	assert.Equal(t, 1, pruned)

	assert.Empty(t, st.Pending())
	assert.False(t, st.IsSeen("news:old"))
	assert.True(t, st.IsSeen("news:new"))
}
