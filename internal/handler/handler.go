package handler

import (
	"context"
	"sync"
	"time"

	"medterms/internal/domain"
	"medterms/internal/metrics"
	"medterms/internal/quiz"
	"medterms/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const requestTimeout = 30 * time.Second

// Notifier delivers messages outside of an update. *tele.Bot satisfies it.
type Notifier interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Handler manages all bot interactions
type Handler struct {
	bot      *tele.Bot
	notifier Notifier
	users    *service.UserService
	catalog  *service.CatalogService
	progress *service.ProgressService
	stats    *service.StatsService
	examples *service.ExampleService
	engine   *quiz.Engine
	logger   *zap.Logger

	// Quiz sessions (in-memory, one per user)
	sessions   map[int64]*quiz.Session
	sessionMux sync.RWMutex

	// Per-user locks serialize updates from the same chat
	callbackLocks map[int64]*sync.Mutex
	callbackMux   sync.Mutex
}

// NewHandler creates a new handler instance
func NewHandler(
	bot *tele.Bot,
	users *service.UserService,
	catalog *service.CatalogService,
	progress *service.ProgressService,
	stats *service.StatsService,
	examples *service.ExampleService,
	engine *quiz.Engine,
	logger *zap.Logger,
) *Handler {
	h := &Handler{
		bot:           bot,
		users:         users,
		catalog:       catalog,
		progress:      progress,
		stats:         stats,
		examples:      examples,
		engine:        engine,
		logger:        logger,
		sessions:      make(map[int64]*quiz.Session),
		callbackLocks: make(map[int64]*sync.Mutex),
	}
	if bot != nil {
		h.notifier = bot
	}
	return h
}

// RegisterHandlers registers all bot handlers
func (h *Handler) RegisterHandlers() {
	// Commands
	h.bot.Handle("/start", h.handleStart)
	h.bot.Handle("/categories", h.handleCategories)
	h.bot.Handle("/search", h.handleSearch)
	h.bot.Handle("/lang", h.handleLang)

	// Text messages
	h.bot.Handle(tele.OnText, h.handleText)

	// Callback queries (inline buttons)
	h.bot.Handle(&btnCategories, h.handleCategories)
	h.bot.Handle(&btnNext, h.handleNext)
	h.bot.Handle(&btnBack, h.handleBack)
	h.bot.Handle(&btnFinish, h.handleFinish)
	h.bot.Handle(&btnExample, h.handleExample)
	h.bot.Handle(&btnReset, h.handleReset)
	h.bot.Handle(&btnResetConfirm, h.handleResetConfirm)
	h.bot.Handle(&btnMainMenu, h.handleStart)

	// Generic callback handler for dynamic data
	h.bot.Handle(tele.OnCallback, h.handleCallback)
}

// userLock returns the mutex serializing this user's updates
func (h *Handler) userLock(userID int64) *sync.Mutex {
	h.callbackMux.Lock()
	defer h.callbackMux.Unlock()

	lock, exists := h.callbackLocks[userID]
	if !exists {
		lock = &sync.Mutex{}
		h.callbackLocks[userID] = lock
	}
	return lock
}

// session returns the user's quiz session, creating an idle one if needed
func (h *Handler) session(userID int64) *quiz.Session {
	h.sessionMux.RLock()
	s, exists := h.sessions[userID]
	h.sessionMux.RUnlock()
	if exists {
		return s
	}

	lang := h.language(userID)

	h.sessionMux.Lock()
	defer h.sessionMux.Unlock()
	if s, exists = h.sessions[userID]; exists {
		return s
	}
	s = quiz.NewSession(userID, lang)
	h.sessions[userID] = s
	metrics.ActiveSessions.Set(float64(len(h.sessions)))
	return s
}

// endSession resets and forgets the user's session
func (h *Handler) endSession(userID int64) {
	h.sessionMux.Lock()
	defer h.sessionMux.Unlock()
	if s, exists := h.sessions[userID]; exists {
		h.engine.Reset(s)
		delete(h.sessions, userID)
	}
	metrics.ActiveSessions.Set(float64(len(h.sessions)))
}

// language returns the user's prompt language, falling back on errors
func (h *Handler) language(userID int64) domain.Lang {
	lang, err := h.users.Language(userID)
	if err != nil {
		h.logger.Warn("Failed to load language", zap.Int64("user_id", userID), zap.Error(err))
	}
	return lang
}

func (h *Handler) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// Inline keyboard buttons
var (
	btnCategories = tele.Btn{
		Unique: "categories",
		Text:   "📚 Categories",
	}
	btnNext = tele.Btn{
		Unique: "next",
		Text:   "➡️ Next",
	}
	btnBack = tele.Btn{
		Unique: "back",
		Text:   "⬅️ Back",
	}
	btnFinish = tele.Btn{
		Unique: "finish",
		Text:   "✖️ Quit",
	}
	btnExample = tele.Btn{
		Unique: "example",
		Text:   "💡 Example",
	}
	btnReset = tele.Btn{
		Unique: "reset",
		Text:   "🗑 Reset progress",
	}
	btnResetConfirm = tele.Btn{
		Unique: "reset_confirm",
		Text:   "⚠️ Yes, delete everything",
	}
	btnMainMenu = tele.Btn{
		Unique: "main_menu",
		Text:   "🏠 Main menu",
	}
)

// mainMenuMarkup returns the main menu keyboard
func mainMenuMarkup() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(btnCategories),
		menu.Row(btnReset),
	)
	return menu
}
