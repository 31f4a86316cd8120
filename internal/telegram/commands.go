package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"couplebot/internal/store"
	"couplebot/pkg/logx"
)

const (
	flowerPhotoURL = "https://images.unsplash.com/photo-1519378058457-4c29a0a2efac?auto=format&fit=crop&w=800&q=80"
	ilyDefaultText = "Sending you these flowers as a reminder of my love for you. ❤️"

	commandTimeout = 15 * time.Second
)

func (a *Adapter) registerHandlers() {
	a.bot.Handle("/ily", a.guard(a.handleILY))
	a.bot.Handle("/truthordare", a.guard(a.handleTruthOrDare))
}

// guard restricts a handler to the two configured partners and isolates its
// failures to an in-chat error reply.
func (a *Adapter) guard(h func(ctx context.Context, c tele.Context) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil || !a.isPartner(sender.ID) {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := h(ctx, c); err != nil {
			a.log.Error("command failed",
				logx.String("command", c.Text()), logx.Int64("from", sender.ID), logx.Err(err))
			return c.Send("Something went wrong. Please try again later.")
		}
		return nil
	}
}

func (a *Adapter) handleILY(ctx context.Context, c tele.Context) error {
	caption := strings.TrimSpace(c.Message().Payload)
	if caption == "" {
		caption = ilyDefaultText
	}

	photo := &tele.Photo{File: tele.FromURL(flowerPhotoURL), Caption: "❤️ I Love You ❤️\n\n" + caption}
	if err := c.Send(photo); err != nil {
		return err
	}

	a.recordUsage(ctx, "ily", c.Sender().ID)
	return nil
}

func (a *Adapter) handleTruthOrDare(ctx context.Context, c tele.Context) error {
	args := strings.Fields(strings.ToLower(c.Message().Payload))
	if len(args) == 0 {
		return c.Send("Usage: /truthordare <truth|dare> [spicy]")
	}
	spicy := len(args) > 1 && args[1] == "spicy"

	var text string
	switch args[0] {
	case "truth":
		t, err := a.decks.RandomTruth(ctx, spicy)
		if errors.Is(err, store.ErrNotFound) {
			return c.Send("Sorry, I don't have any truth questions at the moment.")
		}
		if err != nil {
			return err
		}
		text = fmt.Sprintf("🤔 Truth 🤔\n\n%s", t.Question)
	case "dare":
		d, err := a.decks.RandomDare(ctx, spicy)
		if errors.Is(err, store.ErrNotFound) {
			return c.Send("Sorry, I don't have any dare challenges at the moment.")
		}
		if err != nil {
			return err
		}
		text = fmt.Sprintf("🔥 Dare 🔥\n\n%s", d.Challenge)
	default:
		return c.Send("Usage: /truthordare <truth|dare> [spicy]")
	}

	if err := c.Send(text); err != nil {
		return err
	}
	a.recordUsage(ctx, "truthordare", c.Sender().ID)
	return nil
}

func (a *Adapter) recordUsage(ctx context.Context, kind string, userID int64) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.Record(ctx, kind, userID, time.Now()); err != nil {
		a.log.Warn("usage record failed", logx.String("kind", kind), logx.Err(err))
	}
}
