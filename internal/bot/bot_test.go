package bot

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"github.com/magabrotheeeer/vpn-miniapp/internal/cache"
	"github.com/magabrotheeeer/vpn-miniapp/internal/vpnapi"
)

type sentMessage struct {
	text   string
	markup *tele.ReplyMarkup
}

func (m sentMessage) buttons() []string {
	if m.markup == nil {
		return nil
	}
	var uniques []string
	for _, row := range m.markup.InlineKeyboard {
		for _, btn := range row {
			uniques = append(uniques, btn.Unique)
		}
	}
	return uniques
}

type fakeSender struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentMessage
	edits   []sentMessage
	deleted int
}

func toMessage(what interface{}, opts []interface{}) sentMessage {
	m := sentMessage{text: what.(string)}
	for _, opt := range opts {
		if markup, ok := opt.(*tele.ReplyMarkup); ok {
			m.markup = markup
		}
	}
	return m
}

func (f *fakeSender) Send(_ tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, toMessage(what, opts))
	return &tele.Message{ID: f.nextID, Chat: &tele.Chat{ID: 1}}, nil
}

func (f *fakeSender) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, toMessage(what, opts))
	return msg.(*tele.Message), nil
}

func (f *fakeSender) Delete(tele.Editable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted++
	return nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		out = append(out, m.text)
	}
	return out
}

// lastView возвращает последнее отображение документа (правка или первое сообщение).
func (f *fakeSender) lastView() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) > 0 {
		return f.edits[len(f.edits)-1]
	}
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].markup != nil {
			return f.sent[i]
		}
	}
	return sentMessage{}
}

// fakeContext реализует нужную часть tele.Context.
type fakeContext struct {
	tele.Context
	user      *tele.User
	chat      *tele.Chat
	callback  *tele.Callback
	responses []*tele.CallbackResponse
}

func (c *fakeContext) Sender() *tele.User       { return c.user }
func (c *fakeContext) Chat() *tele.Chat         { return c.chat }
func (c *fakeContext) Callback() *tele.Callback { return c.callback }
func (c *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	c.responses = append(c.responses, resp...)
	return nil
}

func newContext(id int64) *fakeContext {
	return &fakeContext{
		user:     &tele.User{ID: id},
		chat:     &tele.Chat{ID: id},
		callback: &tele.Callback{ID: "cb"},
	}
}

type apiStub struct {
	statusCode atomic.Int32
	tariffHits atomic.Int32
	statusHits atomic.Int32
	buyHits    atomic.Int32
}

func newAPI(t *testing.T, stub *apiStub) *vpnapi.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tariffs":
			stub.tariffHits.Add(1)
			_, _ = w.Write([]byte(`{"base":{"gb":100,"days":30,"price":199},"extra":{"gb":100,"price":99}}`))
		case "/user/status":
			stub.statusHits.Add(1)
			code := int(stub.statusCode.Load())
			if code != http.StatusOK {
				w.WriteHeader(code)
				_, _ = w.Write([]byte(`{"error":"Пользователь не найден"}`))
				return
			}
			_, _ = w.Write([]byte(`{"username":"user_7","status":"active","free_mode":false,"used_gb":50,"limit_gb":100,"expire_date":null}`))
		case "/user/buy-extra":
			stub.buyHits.Add(1)
			_, _ = w.Write([]byte(`{"success":true}`))
		case "/user/config":
			_, _ = w.Write([]byte(`{"config":"vless://a&b<c>"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return vpnapi.NewClient(srv.URL, time.Second)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(t *testing.T, stub *apiStub) (*Handler, *fakeSender) {
	t.Helper()
	api := newAPI(t, stub)
	sender := &fakeSender{}
	h := New(context.Background(), discardLogger(), sender, Options{
		NotifyFor:      time.Hour,
		ConfirmTimeout: 5 * time.Second,
	}, Deps{
		Backend: api,
		Tariffs: api,
		Locker:  cache.NewMemory(),
	})
	return h, sender
}

func TestHandleStart_Welcome(t *testing.T) {
	stub := &apiStub{}
	stub.statusCode.Store(http.StatusNotFound)
	h, sender := newHandler(t, stub)

	require.NoError(t, h.HandleStart(newContext(7)))

	view := sender.lastView()
	assert.Contains(t, view.text, "Базовый тариф: 100 ГБ на 30 дней — 199₽")
	assert.Equal(t, []string{btnCreate}, view.buttons())
}

func TestHandleStart_UserScreen(t *testing.T) {
	stub := &apiStub{}
	stub.statusCode.Store(http.StatusOK)
	h, sender := newHandler(t, stub)

	require.NoError(t, h.HandleStart(newContext(7)))

	view := sender.lastView()
	assert.Contains(t, view.text, "user_7")
	assert.Contains(t, view.text, "✅ Статус: active")
	assert.Contains(t, view.text, "50%")
	assert.Contains(t, view.text, "Бессрочно")
	assert.Contains(t, view.buttons(), btnBuyExtra)
}

func TestHandleStart_StatusError(t *testing.T) {
	stub := &apiStub{}
	stub.statusCode.Store(http.StatusInternalServerError)
	h, sender := newHandler(t, stub)

	require.NoError(t, h.HandleStart(newContext(7)))

	assert.Contains(t, sender.texts(), "❌ Ошибка при загрузке данных")
	assert.Contains(t, sender.lastView().text, "Загрузка")
}

func TestHandleStart_NoSender(t *testing.T) {
	stub := &apiStub{}
	h, sender := newHandler(t, stub)

	c := &fakeContext{chat: &tele.Chat{ID: 1}}
	require.NoError(t, h.HandleStart(c))

	assert.Contains(t, sender.texts(), "❌ Не удалось получить данные пользователя")
	assert.Equal(t, int32(0), stub.statusHits.Load())
}

func TestBuyExtra_ConfirmFlow(t *testing.T) {
	stub := &apiStub{}
	stub.statusCode.Store(http.StatusOK)
	h, sender := newHandler(t, stub)
	require.NoError(t, h.HandleStart(newContext(7)))

	done := make(chan error, 1)
	go func() {
		done <- h.action(actionBuyExtra)(newContext(7))
	}()

	require.Eventually(t, func() bool {
		for _, text := range sender.texts() {
			if strings.HasPrefix(text, "Купить дополнительные") {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		c := newContext(7)
		_ = h.HandleConfirm(true)(c)
		return len(c.responses) == 0
	}, 2*time.Second, 5*time.Millisecond)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("action did not finish")
	}

	assert.Equal(t, int32(1), stub.buyHits.Load())
	assert.Equal(t, int32(2), stub.statusHits.Load())
	assert.Contains(t, sender.texts(), "✅ Дополнительные 100 ГБ добавлены!")
}

func TestBuyExtra_Declined(t *testing.T) {
	stub := &apiStub{}
	stub.statusCode.Store(http.StatusOK)
	h, sender := newHandler(t, stub)
	require.NoError(t, h.HandleStart(newContext(7)))

	done := make(chan error, 1)
	go func() {
		done <- h.action(actionBuyExtra)(newContext(7))
	}()

	require.Eventually(t, func() bool {
		c := newContext(7)
		_ = h.HandleConfirm(false)(c)
		return len(c.responses) == 0
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, <-done)

	assert.Equal(t, int32(0), stub.buyHits.Load())
	assert.NotContains(t, sender.texts(), "⏳ Обрабатываю запрос...")
}

func TestHandleConfirm_NothingPending(t *testing.T) {
	stub := &apiStub{}
	h, _ := newHandler(t, stub)

	c := newContext(99)
	require.NoError(t, h.HandleConfirm(true)(c))

	require.Len(t, c.responses, 1)
	assert.Equal(t, "Вопрос уже неактуален", c.responses[0].Text)
}

func TestConfigAndClose(t *testing.T) {
	stub := &apiStub{}
	stub.statusCode.Store(http.StatusOK)
	h, sender := newHandler(t, stub)
	require.NoError(t, h.HandleStart(newContext(7)))

	require.NoError(t, h.action(actionGetConfig)(newContext(7)))
	view := sender.lastView()
	assert.Contains(t, view.text, "<pre>vless://a&amp;b&lt;c&gt;</pre>")
	assert.Equal(t, []string{btnCopy, btnClose}, view.buttons()[:2])

	require.NoError(t, h.HandleCopy(newContext(7)))
	assert.Contains(t, sender.texts(), "<code>vless://a&amp;b&lt;c&gt;</code>")
	assert.Contains(t, sender.texts(), "📋 Конфигурация скопирована!")

	require.NoError(t, h.HandleClose(newContext(7)))
	assert.NotContains(t, sender.lastView().text, "Конфигурация:")
}

func TestCleanup(t *testing.T) {
	stub := &apiStub{}
	stub.statusCode.Store(http.StatusNotFound)
	h, _ := newHandler(t, stub)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	require.NoError(t, h.HandleStart(newContext(1)))
	now = now.Add(time.Hour)
	require.NoError(t, h.HandleStart(newContext(2)))

	assert.Equal(t, 1, h.Cleanup(30*time.Minute))
	assert.Len(t, h.sessions, 1)
	assert.Contains(t, h.sessions, int64(2))
}

func TestConcurrentFirstClicks_ShareSession(t *testing.T) {
	stub := &apiStub{}
	stub.statusCode.Store(http.StatusOK)
	h, _ := newHandler(t, stub)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.action(actionRefresh)(newContext(7)))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), stub.tariffHits.Load())
	// одна начальная загрузка и по одному обновлению на нажатие
	assert.Equal(t, int32(5), stub.statusHits.Load())
	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Len(t, h.sessions, 1)
}

func TestHandleStart_DeclinesPendingConfirm(t *testing.T) {
	stub := &apiStub{}
	stub.statusCode.Store(http.StatusOK)
	h, _ := newHandler(t, stub)
	require.NoError(t, h.HandleStart(newContext(7)))

	h.mu.Lock()
	old := h.sessions[7]
	h.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- h.action(actionBuyExtra)(newContext(7))
	}()
	require.Eventually(t, old.host.waiting.Load, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, h.HandleStart(newContext(7)))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pending confirmation was not released")
	}
	assert.Equal(t, int32(0), stub.buyHits.Load())

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.NotSame(t, old, h.sessions[7])
}

func TestSenderlessUpdate_Dropped(t *testing.T) {
	stub := &apiStub{}
	stub.statusCode.Store(http.StatusOK)
	h, sender := newHandler(t, stub)
	handler := RateLimitMiddleware(discardLogger(), NewLimiter(1, 3))(h.action(actionRefresh))

	c := &fakeContext{chat: &tele.Chat{ID: 1}, callback: &tele.Callback{ID: "cb"}}
	require.NoError(t, handler(c))

	assert.Equal(t, int32(0), stub.statusHits.Load())
	assert.Equal(t, int32(0), stub.tariffHits.Load())
	assert.Empty(t, sender.texts())
	assert.Empty(t, h.sessions)
}

func TestRefreshWithoutIdentity_NoStatusRequest(t *testing.T) {
	stub := &apiStub{}
	stub.statusCode.Store(http.StatusOK)
	h, sender := newHandler(t, stub)

	c := &fakeContext{chat: &tele.Chat{ID: 1}, callback: &tele.Callback{ID: "cb"}}
	require.NoError(t, h.action(actionRefresh)(c))

	assert.Equal(t, int32(0), stub.statusHits.Load())
	assert.NotContains(t, sender.lastView().text, "user_7")
	assert.Contains(t, sender.texts(), "❌ Не удалось получить данные пользователя")
}
