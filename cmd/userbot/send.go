package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Artemka1806/ai-telegram-userbot/internal/data"
	"github.com/Artemka1806/ai-telegram-userbot/internal/infra/telegram"
)

// sendCmd posts a markdown message, handy for checking formatting
var sendCmd = &cobra.Command{
	Use:   "send <chat_id> <message>",
	Short: "Send a markdown message to one of the recent chats",
	Args:  cobra.MinimumNArgs(2),
	RunE:  send,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

func send(cmd *cobra.Command, args []string) error {
	chatID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", args[0], err)
	}
	text := strings.Join(args[1:], " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := data.NewSessionStore(cfg.SessionDBPath(), cfg.Telegram.SessionName)
	if err != nil {
		return err
	}
	defer store.Close()

	client := telegram.NewClient(telegram.Config{
		APIID:   cfg.Telegram.APIID,
		APIHash: cfg.Telegram.APIHash,
		Storage: store,
		Logger:  logger,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sent := make(chan error, 1)
	err = client.Run(ctx, func(self *telegram.User) {
		go func() {
			_, err := client.SendText(ctx, chatID, 0, text)
			sent <- err
			cancel()
		}()
	})

	select {
	case sendErr := <-sent:
		if sendErr != nil {
			return fmt.Errorf("send message: %w", sendErr)
		}
	default:
		// the client stopped before it was ready
		if err == nil {
			err = errors.New("client stopped before sending")
		}
		return err
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Println("Message sent successfully!")
	return nil
}
