package channel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
)

const discordMaxMsgLen = 2000

// Discord is the Discord bot surface. Photo results are delivered as
// embeds so the image renders inline.
type Discord struct {
	token   string
	guildID string

	session *discordgo.Session
	logger  *slog.Logger
}

type DiscordConfig struct {
	Token   string
	GuildID string
	Logger  *slog.Logger
}

func NewDiscord(cfg DiscordConfig) *Discord {
	return &Discord{token: cfg.Token, guildID: cfg.GuildID, logger: cfg.Logger}
}

func (d *Discord) Name() string { return "discord" }

// Start connects and listens for messages until ctx is cancelled.
func (d *Discord) Start(ctx context.Context, router domain.Router) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	d.session = session

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author.ID == s.State.User.ID {
			return
		}
		if d.guildID != "" && m.GuildID != d.guildID {
			return
		}
		if m.Content == "" {
			return
		}

		d.logger.Debug("discord message received", "author", m.Author.Username, "channel_id", m.ChannelID)
		result := router.Route(ctx, "discord", m.Content)
		d.deliver(m.ChannelID, result)
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	d.logger.Info("discord bot connected", "user", session.State.User.Username)

	<-ctx.Done()
	d.logger.Info("discord bot disconnecting")
	return session.Close()
}

func (d *Discord) Stop() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

func (d *Discord) deliver(channelID string, result *domain.RouteResult) {
	if result.Error == "" && result.ImageURL != "" {
		embed := &discordgo.MessageEmbed{
			Description: result.Response,
			Image:       &discordgo.MessageEmbedImage{URL: result.ImageURL},
		}
		if _, err := d.session.ChannelMessageSendEmbed(channelID, embed); err == nil {
			return
		} else {
			d.logger.Warn("discord embed send failed, falling back to text", "err", err)
		}
	}
	for _, chunk := range splitMessage(renderText(result), discordMaxMsgLen) {
		if _, err := d.session.ChannelMessageSend(channelID, chunk); err != nil {
			d.logger.Error("discord send failed", "channel", channelID, "err", err)
		}
	}
}
