package transcript

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"medimate-be/internal/apperror"
	"medimate-be/internal/entity"
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/repository/specification"
	"medimate-be/internal/testutil"
	"medimate-be/pkg/backend"
	"medimate-be/pkg/feed"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "long message is cut at thirty characters",
			text: "What are the symptoms of the flu and how long do they typically last",
			want: "What are the symptoms of the f...",
		},
		{name: "short message is kept", text: "Is ibuprofen safe?", want: "Is ibuprofen safe?"},
		{name: "twenty characters", text: "Headache after lunch", want: "Headache after lunch"},
		{name: "exactly thirty", text: strings.Repeat("a", 30), want: strings.Repeat("a", 30)},
		{name: "counts characters not bytes", text: strings.Repeat("é", 31), want: strings.Repeat("é", 30) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.text))
		})
	}
}

type fixture struct {
	backend *testutil.Backend
	owner   backend.Identity
	chat    *entity.ChatSession
	mirror  *Mirror
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := testutil.NewBackend(t)
	owner := b.SeedUser(t, "alice@example.com", "alice", true)
	ctx := context.Background()

	chat := &entity.ChatSession{Id: uuid.New(), UserId: owner.UID, Title: entity.DefaultChatTitle, CreatedAt: b.Clock()}
	require.NoError(t, b.Store.NewUnitOfWork(ctx).ChatSessionRepository().Create(ctx, chat))

	mirror := NewMirror(b.Client, owner.UID, chat.Id, logger.NewNopLogger())
	_, err := mirror.Load(ctx)
	require.NoError(t, err)
	return &fixture{backend: b, owner: owner, chat: chat, mirror: mirror}
}

func (f *fixture) stored(t *testing.T) *Snapshot {
	t.Helper()
	s, err := NewMirror(f.backend.Client, f.owner.UID, f.chat.Id, logger.NewNopLogger()).Load(context.Background())
	require.NoError(t, err)
	return s
}

func TestSend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.Answerer.Func = func(q string) (*backend.Answer, error) {
		source := "CDC"
		return &backend.Answer{Text: "Rest and fluids.", Source: &source}, nil
	}

	question := "What are the symptoms of the flu and how long do they typically last"
	sent, err := f.mirror.Send(ctx, question)
	require.NoError(t, err)
	assert.True(t, sent)

	s := f.stored(t)
	assert.Equal(t, "What are the symptoms of the f...", s.Chat.Title)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, entity.ChatRoleUser, s.Messages[0].Role)
	assert.Equal(t, question, s.Messages[0].Content)
	assert.Equal(t, entity.ChatRoleAssistant, s.Messages[1].Role)
	assert.Equal(t, "Rest and fluids.", s.Messages[1].Content)
	require.NotNil(t, s.Messages[1].Source)
	assert.Equal(t, "CDC", *s.Messages[1].Source)
	assert.Less(t, s.Messages[0].Seq, s.Messages[1].Seq)

	assert.Equal(t, []string{question}, f.backend.Answerer.Questions())
}

func TestSendOnlyNamesUntitledChatsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mirror.Send(ctx, "Short question")
	require.NoError(t, err)
	_, err = f.mirror.Load(ctx)
	require.NoError(t, err)
	_, err = f.mirror.Send(ctx, "A follow-up that should not rename the chat")
	require.NoError(t, err)

	assert.Equal(t, "Short question", f.stored(t).Chat.Title)
}

func TestSendKeepsCustomTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.backend.Store.NewUnitOfWork(ctx).ChatSessionRepository().UpdateTitle(ctx, f.chat.Id, f.owner.UID, "My allergies")
	require.NoError(t, err)
	_, err = f.mirror.Load(ctx)
	require.NoError(t, err)

	_, err = f.mirror.Send(ctx, "Pollen season is starting")
	require.NoError(t, err)
	assert.Equal(t, "My allergies", f.stored(t).Chat.Title)
}

func TestSendRejectsSilently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, text := range []string{"", "   ", "\n\t"} {
		sent, err := f.mirror.Send(ctx, text)
		assert.NoError(t, err)
		assert.False(t, sent)
	}

	unloaded := NewMirror(f.backend.Client, f.owner.UID, f.chat.Id, logger.NewNopLogger())
	sent, err := unloaded.Send(ctx, "hello")
	assert.NoError(t, err)
	assert.False(t, sent)

	assert.Empty(t, f.stored(t).Messages)
	assert.Empty(t, f.backend.Answerer.Questions())
}

func TestSendRejectsWhileInFlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hold := make(chan struct{})
	f.backend.Answerer.Hold = hold

	done := make(chan error, 1)
	go func() {
		_, err := f.mirror.Send(ctx, "first")
		done <- err
	}()

	require.Eventually(t, func() bool {
		return len(f.backend.Answerer.Questions()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.True(t, f.mirror.Sending())

	sent, err := f.mirror.Send(ctx, "second")
	assert.NoError(t, err)
	assert.False(t, sent)

	close(hold)
	require.NoError(t, <-done)
	assert.False(t, f.mirror.Sending())
	assert.Len(t, f.stored(t).Messages, 2)
}

func TestSendRollsBackWhenPersistFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mirror.Send(ctx, "first")
	require.NoError(t, err)
	_, err = f.mirror.Load(ctx)
	require.NoError(t, err)
	before := f.mirror.Local().Messages

	testutil.FailCreatesOn(t, f.backend.DB, "chat_messages", errors.New("connection refused"))

	sent, err := f.mirror.Send(ctx, "second")
	assert.True(t, sent)
	require.Error(t, err)
	assert.Equal(t, before, f.mirror.Local().Messages)
	assert.False(t, f.mirror.Sending())
	assert.Len(t, f.backend.Answerer.Questions(), 1, "the question is never asked when the message was not stored")
}

func TestSendRollsBackWhenAnswerFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.Answerer.Func = func(string) (*backend.Answer, error) {
		return nil, context.DeadlineExceeded
	}

	sent, err := f.mirror.Send(ctx, "hello")
	assert.True(t, sent)
	assert.True(t, apperror.Is(err, apperror.KindNetworkUnavailable))
	assert.Empty(t, f.mirror.Local().Messages)

	// The user message did land; the next snapshot shows it.
	s, err := f.mirror.Load(ctx)
	require.NoError(t, err)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, "hello", s.Messages[0].Content)
}

type localView struct {
	contents []string
	sending  bool
}

func recordLocal(m *Mirror) func() []localView {
	var (
		mu    sync.Mutex
		views []localView
	)
	m.OnLocalChange(func() {
		local := m.Local()
		view := localView{sending: m.Sending()}
		for _, msg := range local.Messages {
			view.contents = append(view.contents, msg.Content)
		}
		mu.Lock()
		views = append(views, view)
		mu.Unlock()
	})
	return func() []localView {
		mu.Lock()
		defer mu.Unlock()
		return slices.Clone(views)
	}
}

func TestSendReportsLocalChanges(t *testing.T) {
	t.Run("optimistic append is reported before the answer", func(t *testing.T) {
		f := newFixture(t)
		views := recordLocal(f.mirror)
		f.backend.Answerer.Func = func(string) (*backend.Answer, error) {
			// The pending message is already visible while the question runs.
			assert.Equal(t, []localView{{contents: []string{"Is this pending?"}, sending: true}}, views())
			return &backend.Answer{Text: "Yes."}, nil
		}

		sent, err := f.mirror.Send(context.Background(), "Is this pending?")
		require.NoError(t, err)
		assert.True(t, sent)
		assert.Len(t, views(), 1)
	})

	t.Run("rollback is reported", func(t *testing.T) {
		f := newFixture(t)
		views := recordLocal(f.mirror)
		testutil.FailCreatesOn(t, f.backend.DB, "chat_messages", errors.New("connection refused"))

		sent, err := f.mirror.Send(context.Background(), "Will this stick?")
		assert.True(t, sent)
		require.Error(t, err)
		assert.Equal(t, []localView{
			{contents: []string{"Will this stick?"}, sending: true},
			{contents: nil, sending: true},
		}, views())
	})

	t.Run("rejected send reports nothing", func(t *testing.T) {
		f := newFixture(t)
		views := recordLocal(f.mirror)

		sent, err := f.mirror.Send(context.Background(), "   ")
		assert.NoError(t, err)
		assert.False(t, sent)
		assert.Empty(t, views())
	})
}

func TestSendToDeletedChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.backend.Store.NewUnitOfWork(ctx).ChatSessionRepository().Delete(ctx, f.chat.Id, f.owner.UID)
	require.NoError(t, err)

	sent, err := f.mirror.Send(ctx, "anyone there?")
	assert.True(t, sent)
	assert.True(t, IsNotFound(err))
	assert.Empty(t, f.mirror.Local().Messages)
}

func TestIdenticalSendsStayDistinct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.Answerer.Func = func(string) (*backend.Answer, error) {
		return &backend.Answer{Text: "same"}, nil
	}

	for range 2 {
		_, err := f.mirror.Send(ctx, "again")
		require.NoError(t, err)
	}

	messages := f.stored(t).Messages
	require.Len(t, messages, 4)
	assert.Equal(t, messages[0].Content, messages[2].Content)
	assert.NotEqual(t, messages[0].Id, messages[2].Id)
}

func TestReappendIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := f.backend.Store.NewUnitOfWork(ctx).ChatMessageRepository()

	msg := &entity.ChatMessage{Id: uuid.New(), ChatSessionId: f.chat.Id, Role: entity.ChatRoleUser, Content: "hi", CreatedAt: f.backend.Clock()}
	require.NoError(t, repo.Append(ctx, msg))
	again := *msg
	require.NoError(t, repo.Append(ctx, &again))

	messages, err := repo.FindAll(ctx, specification.ByChatSessionID{ChatSessionID: f.chat.Id})
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestWatchSnapshotsOnlyGrow(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var previous []*entity.ChatMessage
	for s, err := range f.mirror.Watch(ctx) {
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(s.Messages), len(previous))
		for i := range previous {
			assert.Equal(t, previous[i].Id, s.Messages[i].Id, "earlier snapshot must be a prefix")
		}
		previous = s.Messages
		if len(s.Messages) >= 4 {
			break
		}
		if len(s.Messages)%2 == 0 {
			_, err := f.mirror.Send(ctx, "question")
			require.NoError(t, err)
		}
	}
	assert.GreaterOrEqual(t, len(previous), 4)
}

func TestWatchEndsWhenChatIsDeleted(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	snapshots := 0
	for s, err := range f.mirror.Watch(ctx) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		snapshots++
		assert.Equal(t, f.chat.Id, s.Chat.Id)

		_, err := f.backend.Store.NewUnitOfWork(ctx).ChatSessionRepository().Delete(ctx, f.chat.Id, f.owner.UID)
		require.NoError(t, err)
		require.NoError(t, f.backend.Bus.Publish(ctx, feed.ChatTopic(f.chat.Id)))
	}

	assert.Equal(t, 1, snapshots)
	require.Len(t, errs, 1)
	assert.True(t, IsNotFound(errs[0]))
	assert.Nil(t, f.mirror.Local().Chat)
}
