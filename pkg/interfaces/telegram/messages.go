package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/raider-go/pkg/chat"
)

const parseModeMarkdown = "Markdown"

// Send implements chat.Gateway.
func (c *TelegramClient) Send(ctx context.Context, chatID int64, msg chat.Message) (chat.MessageRef, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	var sent Message
	err := c.callMethod(ctx, "sendMessage", sendMessageRequest{
		ChatID:                chatID,
		Text:                  msg.Text,
		ParseMode:             parseMode(msg),
		DisableWebPagePreview: true,
		ReplyMarkup:           toMarkup(msg.Keyboard),
	}, &sent)
	if err != nil {
		c.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send message")
		return 0, err
	}
	return chat.MessageRef(sent.MessageID), nil
}

// Edit implements chat.Gateway. An edit that changes nothing is not an error.
func (c *TelegramClient) Edit(ctx context.Context, chatID int64, ref chat.MessageRef, msg chat.Message) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	err := c.callMethod(ctx, "editMessageText", editMessageTextRequest{
		ChatID:                chatID,
		MessageID:             int(ref),
		Text:                  msg.Text,
		ParseMode:             parseMode(msg),
		DisableWebPagePreview: true,
		ReplyMarkup:           toMarkup(msg.Keyboard),
	}, nil)
	if isDescription(err, "message is not modified") {
		return nil
	}
	return err
}

// Delete implements chat.Gateway. A zero ref and an already deleted message
// both succeed.
func (c *TelegramClient) Delete(ctx context.Context, chatID int64, ref chat.MessageRef) error {
	if ref.IsZero() {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	err := c.callMethod(ctx, "deleteMessage", deleteMessageRequest{
		ChatID:    chatID,
		MessageID: int(ref),
	}, nil)
	if isDescription(err, "message to delete not found") {
		c.logger.WithFields(logrus.Fields{
			"chat_id":    chatID,
			"message_id": ref,
		}).Debug("Message already deleted")
		return nil
	}
	return err
}

// AnswerInteraction implements chat.Gateway.
func (c *TelegramClient) AnswerInteraction(ctx context.Context, interactionID, text string, alert bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.callMethod(ctx, "answerCallbackQuery", answerCallbackQueryRequest{
		CallbackQueryID: interactionID,
		Text:            text,
		ShowAlert:       alert,
	}, nil)
}

func parseMode(msg chat.Message) string {
	if msg.Plain {
		return ""
	}
	return parseModeMarkdown
}

func toMarkup(keyboard chat.Keyboard) *InlineKeyboardMarkup {
	if len(keyboard) == 0 {
		return nil
	}
	markup := &InlineKeyboardMarkup{InlineKeyboard: make([][]InlineKeyboardButton, 0, len(keyboard))}
	for _, row := range keyboard {
		buttons := make([]InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, InlineKeyboardButton{Text: b.Text, CallbackData: b.Data, URL: b.URL})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}

func isDescription(err error, fragment string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Description, fragment)
}

var _ chat.Gateway = (*TelegramClient)(nil)
