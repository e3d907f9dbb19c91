// Telegram bot relaying read-only queries to the HTTP API. Commands mirror
// the listing endpoints one to one; failures relay the raw status code.
package main

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/acturus1/Web-project-yandex/client"
)

type BotConfig struct {
	Token  string `envconfig:"TOKEN" required:"true"`
	APIURL string `envconfig:"API_URL" default:"http://localhost:5000/api"`
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	_ = godotenv.Load()
	var cfg BotConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		logging.Fatal("Bot API init failed", zap.Error(err))
	}
	logging.Info("Bot started", zap.String("account", bot.Self.UserName))

	api := &client.Client{Addr: cfg.APIURL}
	api.Timeout = 30 * time.Second

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	for update := range bot.GetUpdatesChan(updateCfg) {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}
		text := handleCommand(api, update.Message)
		msg := tgbotapi.NewMessage(update.Message.Chat.ID, text)
		if _, err := bot.Send(msg); err != nil {
			logging.Error("Failed to send reply", zap.Error(err))
		}
	}
}

func handleCommand(api *client.Client, msg *tgbotapi.Message) string {
	switch msg.Command() {
	case "help", "start":
		return "/articles\n/article [id]\n/users\n/tags"
	case "articles":
		return handleArticles(api)
	case "article":
		return handleArticle(api, msg.CommandArguments())
	case "users":
		return handleUsers(api)
	case "tags":
		return handleTags(api)
	default:
		return "unknown command, try /help"
	}
}

// relayError turns an API failure into the user-visible reply. Non-2xx
// responses show the raw status code, like the original bot did.
func relayError(err error) string {
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		return strconv.Itoa(statusErr.Code)
	}
	return "api unavailable"
}

func handleArticles(api *client.Client) string {
	articles, err := api.Articles("")
	if err != nil {
		return relayError(err)
	}
	lines := make([]string, 0, len(articles))
	for _, a := range articles {
		lines = append(lines, a.Title)
	}
	return strings.Join(lines, "\n")
}

func handleArticle(api *client.Client, args string) string {
	id, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return "specify an article id: /article [id]"
	}
	article, err := api.Article(id)
	if err != nil {
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == 404 {
			return "article not found"
		}
		return relayError(err)
	}
	return fmt.Sprintf("%s\nAuthor: %s\nTag: %s\nViews: %d\nLikes: %d\nComments: %d",
		article.Title, article.Author, article.Tag, article.Views, article.Likes, article.CommentsCount)
}

func handleUsers(api *client.Client) string {
	users, err := api.Users("")
	if err != nil {
		return relayError(err)
	}
	lines := make([]string, 0, len(users))
	for _, u := range users {
		lines = append(lines, u.Username)
	}
	return strings.Join(lines, "\n")
}

func handleTags(api *client.Client) string {
	tags, err := api.Tags()
	if err != nil {
		return relayError(err)
	}
	lines := make([]string, 0, len(tags))
	for _, t := range tags {
		lines = append(lines, t.Name)
	}
	return strings.Join(lines, "\n")
}
