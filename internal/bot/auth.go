package bot

import (
	"context"
	"errors"

	"stayhaven/internal/events"
	"stayhaven/internal/hotelapi"
	"stayhaven/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) startLogin(ctx context.Context, chatID, userID int64) {
	if sess := b.currentSession(ctx, userID); sess.IsAuthenticated() {
		b.reply(chatID, "You are logged in as "+sess.User.Username+". Use /logout to switch accounts.")
		return
	}
	b.setStep(userID, stepLoginUser)
	b.reply(chatID, "Send your username:")
}

func (b *Bot) handleLoginUser(chatID, userID int64, text string) {
	if text == "" {
		b.reply(chatID, "Send your username:")
		return
	}
	st := b.state.get(userID)
	st.lock()
	st.LoginUser = text
	st.Step = stepLoginPassword
	st.unlock()
	b.reply(chatID, "Now send your password. The message will be deleted right away.")
}

func (b *Bot) handleLoginPassword(ctx context.Context, msg *tgbotapi.Message, password string) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	if _, err := b.tg.Request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID)); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("could not delete password message")
	}

	st := b.state.get(userID)
	st.lock()
	username := st.LoginUser
	st.LoginUser = ""
	st.Step = stepNone
	st.unlock()

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	sess, err := b.sessions.Login(callCtx, userID, username, password)
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Msg("login failed")
		text := "Login failed: " + userFacing(err)
		switch {
		case errors.Is(err, session.ErrMissingCredentials):
			text = "Username and password are required."
		case errors.Is(err, hotelapi.ErrUnauthorized), errors.Is(err, hotelapi.ErrNotFound):
			text = "Wrong username or password."
		}
		b.replyWithKeyboard(chatID, text, tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Try again", "nav:/login"),
		)))
		return
	}

	b.publish(ctx, events.SessionLogin, userID, map[string]string{"user_id": sess.User.ID})
	b.reply(chatID, "Welcome, "+sess.User.Username+"!")
	b.sendMenu(ctx, chatID, userID)
}

func (b *Bot) logout(ctx context.Context, chatID, userID int64) {
	sess := b.currentSession(ctx, userID)
	if !sess.IsAuthenticated() {
		b.reply(chatID, "You are not logged in.")
		return
	}
	if err := b.sessions.Logout(ctx, userID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("logout failed")
		b.reply(chatID, "Could not log out, please try again.")
		return
	}
	b.publish(ctx, events.SessionLogout, userID, map[string]string{"user_id": sess.User.ID})
	b.reply(chatID, "You are logged out.")
	b.sendMenu(ctx, chatID, userID)
}
