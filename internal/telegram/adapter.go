package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"couplebot/internal/store"
	"couplebot/pkg/logx"
)

// Adapter wraps telebot: it delivers direct messages for the scheduler and
// serves the two interactive commands.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot

	decks    DeckSource
	recorder Recorder

	runMu     sync.Mutex
	running   bool
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
}

type Config struct {
	Token       string
	PollTimeout time.Duration

	// Partner1ID/Partner2ID are the only telegram users the command handlers
	// respond to.
	Partner1ID int64
	Partner2ID int64
}

// DeckSource serves the truth/dare decks for /truthordare.
type DeckSource interface {
	RandomTruth(ctx context.Context, spicy bool) (store.TruthQuestion, error)
	RandomDare(ctx context.Context, spicy bool) (store.DareChallenge, error)
}

// Recorder logs command usage; same sink the scheduler records deliveries to.
type Recorder interface {
	Record(ctx context.Context, kind string, recipientID int64, at time.Time) error
}

func New(cfg Config, decks DeckSource, recorder Recorder, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, log: log, bot: b, decks: decks, recorder: recorder}, nil
}

func (a *Adapter) Start(ctx context.Context) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.runWG.Add(1)
	a.runMu.Unlock()

	a.registerHandlers()

	if err := a.bot.SetCommands([]tele.Command{
		{Text: "ily", Description: "Send a message with flowers to show your love"},
		{Text: "truthordare", Description: "Play a game of truth or dare"},
	}); err != nil {
		a.log.Warn("menu commands update failed", logx.Err(err))
	}

	go func() {
		defer a.runWG.Done()
		// Ensure we stop telebot when the context is cancelled.
		go func() {
			<-rctx.Done()
			a.bot.Stop()
		}()
		a.log.Info("polling started")
		a.bot.Start() // blocks until Stop() called
	}()

	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	// Best-effort graceful stop. Never block shutdown for too long on the
	// Telegram long-poll.
	a.runMu.Lock()
	cancel := a.runCancel
	a.runCancel = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	if a.bot != nil {
		go a.bot.Stop()
	}

	done := make(chan struct{})
	go func() {
		a.runWG.Wait()
		close(done)
	}()

	// Grace window: keep shutdown snappy even if getUpdates is still waiting.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	t := time.NewTimer(grace)
	defer t.Stop()

	select {
	case <-done:
		a.log.Info("polling stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		a.log.Warn("telegram stop grace elapsed; continuing shutdown")
		return nil
	}
}

// SendDirect delivers a direct text message to one partner by telegram ID.
// This is the transport the scheduler engine sends through.
func (a *Adapter) SendDirect(ctx context.Context, recipientID int64, text string) error {
	_, err := a.bot.Send(&tele.User{ID: recipientID}, text)
	return err
}

func (a *Adapter) isPartner(id int64) bool {
	return id == a.cfg.Partner1ID || id == a.cfg.Partner2ID
}
