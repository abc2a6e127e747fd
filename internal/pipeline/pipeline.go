// Package pipeline polls buffered channel posts and walks each one through
// classification, segmentation, relevance scoring and the approval workflow.
package pipeline

import (
	"context"
	"sync"
	"time"

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
	"khabarchin/internal/webfetch"
)

type Config struct {
	PollInterval  time.Duration
	SweepInterval time.Duration
	BatchLimit    int
	MaxAge        time.Duration // pending candidates older than this expire
	SeenRetention time.Duration
	FetchLinks    bool
}

type Pipeline struct {
	cfg        Config
	reader     *telegram.Reader
	classifier *classify.Classifier
	splitter   *segment.Splitter
	filter     *relevance.Filter
	store      *store.Store
	machine    *approval.Machine
	queue      *queue.Queue
	fetcher    *webfetch.Fetcher // nil unless link fetching is on
	log        *zap.Logger
	met        *metrics.Metrics
	started    time.Time

	mu       sync.RWMutex
	provider approval.Provider
}

func New(
	cfg Config,
	reader *telegram.Reader,
	classifier *classify.Classifier,
	splitter *segment.Splitter,
	filter *relevance.Filter,
	st *store.Store,
	machine *approval.Machine,
	provider approval.Provider,
	q *queue.Queue,
	fetcher *webfetch.Fetcher,
	log *zap.Logger,
	met *metrics.Metrics,
) *Pipeline {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Minute
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 50
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if cfg.SeenRetention <= 0 {
		cfg.SeenRetention = 7 * 24 * time.Hour
	}
	if !cfg.FetchLinks {
		fetcher = nil
	}
	return &Pipeline{
		cfg:        cfg,
		reader:     reader,
		classifier: classifier,
		splitter:   splitter,
		filter:     filter,
		store:      st,
		machine:    machine,
		provider:   provider,
		queue:      q,
		fetcher:    fetcher,
		log:        log,
		met:        met,
		started:    time.Now(),
	}
}

// Run blocks until ctx is canceled. One sweep runs right away so a restart
// does not leave last week's pending entries sitting around for another
// sweep interval.
func (p *Pipeline) Run(ctx context.Context) {
	p.Sweep()

	poll := time.NewTicker(p.cfg.PollInterval)
	defer poll.Stop()
	sweep := time.NewTicker(p.cfg.SweepInterval)
	defer sweep.Stop()

	p.log.Info("pipeline running",
		zap.Duration("poll", p.cfg.PollInterval),
		zap.Int("channels", len(p.reader.Channels())))

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			p.poll(ctx)
		case <-sweep.C:
			p.Sweep()
		}
	}
}

func (p *Pipeline) poll(ctx context.Context) {
	var received, accepted int64
	for _, channel := range p.reader.Channels() {
		for _, m := range p.reader.IterRecent(channel, p.cfg.BatchLimit, p.started) {
			if ctx.Err() != nil {
				return
			}
			received++
			if p.process(ctx, m) {
				accepted++
			}
		}
	}
	if received > 0 {
		_ = p.store.Bump(func(s *store.Stats) {
			s.Received += received
			s.Accepted += accepted
		})
	}
}

// process runs one message end to end and reports whether it produced at
// least one candidate.
func (p *Pipeline) process(ctx context.Context, m telegram.Message) bool {
	p.met.MessagesSeen.Inc()

	key := domain.DedupKey(m.Channel, m.MessageID)
	if p.store.IsSeen(key) {
		p.met.MessagesDropped.WithLabelValues("duplicate").Inc()
		return false
	}

	verdict := p.classifier.Classify(classify.Normalize(m.Text))
	if !verdict.Accepted {
		p.met.MessagesDropped.WithLabelValues(verdict.Reason).Inc()
		p.log.Debug("message dropped",
			zap.String("channel", m.Channel),
			zap.Int("msg", m.MessageID),
			zap.String("reason", verdict.Reason))
		return false
	}
	p.met.MessagesAccepted.WithLabelValues(string(verdict.Category)).Inc()

	if err := p.store.MarkSeen(key, time.Now()); err != nil {
		p.log.Warn("mark seen failed", zap.String("key", key), zap.Error(err))
	}

	source := p.fetchLinked(ctx, m.Text)

	made := false
	for i, seg := range p.splitter.Split(m.Text) {
		cleaned := classify.Normalize(seg)
		rel := p.filter.Score(cleaned)
		if !rel.Relevant {
			p.met.MessagesDropped.WithLabelValues("irrelevant").Inc()
			continue
		}

		now := time.Now()
		c := domain.Candidate{
			ID:            domain.NewID(seg, now),
			Channel:       m.Channel,
			MessageID:     m.MessageID,
			Segment:       i,
			Text:          seg,
			CleanedText:   cleaned,
			Category:      verdict.Category,
			LexicalScore:  verdict.Score,
			Relevance:     rel.Score,
			Priority:      rel.Priority,
			Topics:        rel.Topics,
			Status:        domain.StatusQueued,
			CreatedAt:     now,
			SourceContext: source,
		}
		if i == 0 {
			// media belongs to the post, it rides on the first segment
			c.Media = m.Media
		}

		if err := p.store.Put(c); err != nil {
			p.log.Error("store put failed", zap.String("id", c.ID), zap.Error(err))
			continue
		}
		p.log.Info("candidate created",
			zap.String("id", c.ID),
			zap.String("channel", c.Channel),
			zap.String("category", string(c.Category)),
			zap.Int("relevance", c.Relevance),
			zap.Int("priority", c.Priority))
		made = true
		p.decide(ctx, c)
	}
	return made
}

// fetchLinked pulls the article text behind the first external link, when
// the fetcher is on. Failures only cost the extra context.
func (p *Pipeline) fetchLinked(ctx context.Context, text string) string {
	if p.fetcher == nil {
		return ""
	}
	u := classify.ExtractURL(text)
	if u == "" {
		return ""
	}
	body, err := p.fetcher.Extract(ctx, u)
	if err != nil {
		p.log.Debug("link fetch failed", zap.String("url", u), zap.Error(err))
		return ""
	}
	return body
}

// SetProvider swaps the decision provider at runtime, for the admin's auto
// on/off toggle.
func (p *Pipeline) SetProvider(prov approval.Provider) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.provider = prov
}

func (p *Pipeline) currentProvider() approval.Provider {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.provider
}

func (p *Pipeline) decide(ctx context.Context, c domain.Candidate) {
	d, err := p.currentProvider().Decide(ctx, c)
	if err != nil {
		p.log.Warn("decision provider failed, deferring to human",
			zap.String("id", c.ID), zap.Error(err))
		d = approval.Decision{Verdict: approval.VerdictHuman}
	}
	if d.Note != "" {
		c.Note = d.Note
		if err := p.store.Put(c); err != nil {
			p.log.Warn("note update failed", zap.String("id", c.ID), zap.Error(err))
		}
	}

	switch d.Verdict {
	case approval.VerdictApprove:
		if _, err := p.machine.Approve(ctx, c.ID, "auto"); err != nil {
			p.log.Error("auto approve failed", zap.String("id", c.ID), zap.Error(err))
		}
	case approval.VerdictReject:
		if _, err := p.machine.Reject(c.ID, "auto"); err != nil {
			p.log.Error("auto reject failed", zap.String("id", c.ID), zap.Error(err))
		}
	default:
		p.enqueuePrompt(c)
	}
}

// enqueuePrompt hands the candidate to the rate-limited queue. A shed entry
// stays queued in the store; Resend can pick it up later.
func (p *Pipeline) enqueuePrompt(c domain.Candidate) {
	ok := p.queue.Enqueue(queue.Entry{
		CandidateID: c.ID,
		Priority:    c.Priority,
		EnqueuedAt:  time.Now(),
	})
	if !ok {
		p.log.Info("prompt not queued",
			zap.String("id", c.ID), zap.Int("priority", c.Priority))
	}
}

// Resend pushes every stored candidate that never got its prompt out back
// into the queue. Returns how many were queued.
func (p *Pipeline) Resend() int {
	n := 0
	for _, c := range p.store.Pending() {
		if c.Status != domain.StatusQueued {
			continue
		}
		ok := p.queue.Enqueue(queue.Entry{
			CandidateID: c.ID,
			Priority:    c.Priority,
			EnqueuedAt:  time.Now(),
		})
		if ok {
			n++
		}
	}
	return n
}

// NewPromptSender builds the queue's delivery function: look the candidate
// up, push the approval prompt, record where it landed.
func NewPromptSender(st *store.Store, machine *approval.Machine, sender *telegram.Sender) queue.SendFunc {
	return func(ctx context.Context, e queue.Entry) error {
		c, ok := st.Get(e.CandidateID)
		if !ok || c.Status != domain.StatusQueued {
			// resolved while waiting, nothing to send
			return nil
		}
		msgID, err := sender.SendPrompt(ctx, c)
		if err != nil {
			return err
		}
		return machine.MarkSent(c.ID, sender.ChatID(), msgID)
	}
}
