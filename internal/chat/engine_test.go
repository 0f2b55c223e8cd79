package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/minddojo/sales-assistant/internal/index"
	"github.com/minddojo/sales-assistant/internal/log"
	"github.com/minddojo/sales-assistant/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeResolver struct {
	answer string
}

func (f *fakeResolver) Resolve(ctx context.Context, query string) (string, bool) {
	if f.answer == "" {
		return "", false
	}
	return f.answer, true
}

type fakeChunkSearcher struct {
	chunks []index.Chunk
	err    error
}

func (f *fakeChunkSearcher) Search(ctx context.Context, query string, k int) ([]index.Chunk, error) {
	return f.chunks, f.err
}

type fakeSessions struct {
	mu        sync.Mutex
	history   []session.Message
	hisErr    error
	appendErr error
	appended  [][2]string
}

func (f *fakeSessions) History(ctx context.Context, sessionID string) ([]session.Message, error) {
	return f.history, f.hisErr
}

func (f *fakeSessions) AppendExchange(ctx context.Context, sessionID, question, answer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, [2]string{question, answer})
	return nil
}

func (f *fakeSessions) exchanges() [][2]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appended
}

// scriptedGenerator streams a fixed token sequence, optionally failing
// after the sequence is exhausted.
type scriptedGenerator struct {
	tokens []string
	err    error

	mu         sync.Mutex
	calls      int
	lastPrompt string
	finished   bool
}

func (g *scriptedGenerator) Stream(ctx context.Context, system, prompt string, onToken TokenFunc) (string, error) {
	g.mu.Lock()
	g.calls++
	g.lastPrompt = prompt
	g.mu.Unlock()

	var emitted strings.Builder
	for _, tok := range g.tokens {
		if err := onToken(ctx, tok); err != nil {
			g.setFinished()
			return "", err
		}
		emitted.WriteString(tok)
	}
	g.setFinished()
	if g.err != nil {
		return "", g.err
	}
	return emitted.String(), nil
}

func (g *scriptedGenerator) setFinished() {
	g.mu.Lock()
	g.finished = true
	g.mu.Unlock()
}

func (g *scriptedGenerator) stats() (calls int, prompt string, finished bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls, g.lastPrompt, g.finished
}

type engineDeps struct {
	resolver  *fakeResolver
	searcher  *fakeChunkSearcher
	sessions  *fakeSessions
	generator *scriptedGenerator
}

func newTestEngine(t *testing.T, deps engineDeps) *Engine {
	t.Helper()
	if deps.resolver == nil {
		deps.resolver = &fakeResolver{}
	}
	if deps.searcher == nil {
		deps.searcher = &fakeChunkSearcher{}
	}
	if deps.sessions == nil {
		deps.sessions = &fakeSessions{}
	}
	if deps.generator == nil {
		deps.generator = &scriptedGenerator{}
	}
	e, err := New(Config{
		Resolver:  deps.resolver,
		Searcher:  deps.searcher,
		Sessions:  deps.sessions,
		Generator: deps.generator,
		TypeDelay: time.Nanosecond,
		Logger:    log.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func collectEmit(out *[]string) EmitFunc {
	return func(text string) error {
		*out = append(*out, text)
		return nil
	}
}

func TestAnswerEmptyQuestion(t *testing.T) {
	e := newTestEngine(t, engineDeps{})
	err := e.Answer(context.Background(), "s1", "   ", func(string) error { return nil })
	if !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("err = %v, want ErrEmptyQuestion", err)
	}
}

func TestAnswerFastPath(t *testing.T) {
	answer := "จากประสบการณ์ของ MindDoJo แนะนำหลักสูตร: **Leadership Mindset**"
	sessions := &fakeSessions{}
	generator := &scriptedGenerator{}
	e := newTestEngine(t, engineDeps{
		resolver:  &fakeResolver{answer: answer},
		sessions:  sessions,
		generator: generator,
	})

	var emitted []string
	if err := e.Answer(context.Background(), "s1", "อยากพัฒนาผู้นำ", collectEmit(&emitted)); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	// The typing emission must reassemble to the exact resolved answer.
	if got := strings.Join(emitted, ""); got != answer {
		t.Errorf("emitted %q, want %q", got, answer)
	}
	if len(emitted) < 2 {
		t.Errorf("answer emitted in %d pieces, want incremental delivery", len(emitted))
	}

	if calls, _, _ := generator.stats(); calls != 0 {
		t.Errorf("generator called %d times on a fast path hit", calls)
	}

	exchanges := sessions.exchanges()
	if len(exchanges) != 1 {
		t.Fatalf("appended %d exchanges, want 1", len(exchanges))
	}
	if exchanges[0][0] != "อยากพัฒนาผู้นำ" || exchanges[0][1] != answer {
		t.Errorf("persisted exchange = %v", exchanges[0])
	}
}

func TestAnswerGenerates(t *testing.T) {
	sessions := &fakeSessions{
		history: []session.Message{
			{Sender: session.SenderUser, Text: "สวัสดี"},
			{Sender: session.SenderAssistant, Text: "สวัสดีครับ"},
		},
	}
	searcher := &fakeChunkSearcher{chunks: []index.Chunk{
		{
			Content:  "[COURSE DATA]\nCourse Title (EN): Design Thinking\n",
			Metadata: map[string]string{index.MetaType: index.TypeCourse},
		},
	}}
	generator := &scriptedGenerator{tokens: []string{"หลักสูตร ", "**Design Thinking** ", "เหมาะกับคุณ"}}
	e := newTestEngine(t, engineDeps{
		sessions:  sessions,
		searcher:  searcher,
		generator: generator,
	})

	var emitted []string
	if err := e.Answer(context.Background(), "s1", "สนใจคอร์สออกแบบ", collectEmit(&emitted)); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	wantAnswer := "หลักสูตร **Design Thinking** เหมาะกับคุณ"
	if got := strings.Join(emitted, ""); got != wantAnswer {
		t.Errorf("emitted %q, want %q", got, wantAnswer)
	}
	if len(emitted) != 3 {
		t.Errorf("got %d emissions, want one per token", len(emitted))
	}

	calls, prompt, _ := generator.stats()
	if calls != 1 {
		t.Errorf("generator called %d times, want 1", calls)
	}
	for _, want := range []string{
		"ผู้ใช้: สวัสดี",
		"AI: สวัสดีครับ",
		"Course Title (EN): Design Thinking",
		"คำถาม:\nสนใจคอร์สออกแบบ",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	exchanges := sessions.exchanges()
	if len(exchanges) != 1 {
		t.Fatalf("appended %d exchanges, want 1", len(exchanges))
	}
	if exchanges[0][1] != wantAnswer {
		t.Errorf("persisted answer %q, want the concatenated tokens", exchanges[0][1])
	}
}

func TestAnswerGenerationFailure(t *testing.T) {
	sessions := &fakeSessions{}
	generator := &scriptedGenerator{
		tokens: []string{"หลัก", "สูตร ", "Design"},
		err:    errors.New("upstream closed"),
	}
	e := newTestEngine(t, engineDeps{sessions: sessions, generator: generator})

	var emitted []string
	err := e.Answer(context.Background(), "s1", "สนใจคอร์สออกแบบ", collectEmit(&emitted))
	if err == nil {
		t.Fatal("expected an error when generation fails")
	}

	// Tokens already produced still reached the caller.
	if len(emitted) != 3 {
		t.Errorf("caller received %d tokens, want 3", len(emitted))
	}
	// The failed turn must not be persisted.
	if got := sessions.exchanges(); len(got) != 0 {
		t.Errorf("appended %d exchanges after failure, want 0", len(got))
	}
}

func TestAnswerCallerDisconnect(t *testing.T) {
	sessions := &fakeSessions{}
	generator := &scriptedGenerator{tokens: []string{"a", "b", "c", "d"}}
	e := newTestEngine(t, engineDeps{sessions: sessions, generator: generator})

	var emitted []string
	emit := func(text string) error {
		if len(emitted) >= 2 {
			return errors.New("client went away")
		}
		emitted = append(emitted, text)
		return nil
	}

	err := e.Answer(context.Background(), "s1", "สนใจคอร์ส", emit)
	if err == nil {
		t.Fatal("expected an error after the caller disconnects")
	}

	// The producer is still awaited to completion.
	if _, _, finished := generator.stats(); !finished {
		t.Error("generator not drained after disconnect")
	}
	if got := sessions.exchanges(); len(got) != 0 {
		t.Errorf("appended %d exchanges after disconnect, want 0", len(got))
	}
}

func TestAnswerHistoryFailure(t *testing.T) {
	sessions := &fakeSessions{hisErr: errors.New("connection refused")}
	e := newTestEngine(t, engineDeps{sessions: sessions})

	err := e.Answer(context.Background(), "s1", "สนใจคอร์ส", func(string) error { return nil })
	if err == nil {
		t.Fatal("expected an error when history cannot be loaded")
	}
}

func TestAnswerPersistenceFailureDoesNotFailTurn(t *testing.T) {
	sessions := &fakeSessions{appendErr: errors.New("disk full")}
	generator := &scriptedGenerator{tokens: []string{"คำตอบ"}}
	e := newTestEngine(t, engineDeps{sessions: sessions, generator: generator})

	var emitted []string
	if err := e.Answer(context.Background(), "s1", "สนใจคอร์ส", collectEmit(&emitted)); err != nil {
		t.Errorf("Answer returned %v, want nil when only persistence fails", err)
	}
	if strings.Join(emitted, "") != "คำตอบ" {
		t.Errorf("emitted %q", strings.Join(emitted, ""))
	}
}
