// Package notify sends advisory alerts about the ledger's net position.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"ledgerdash/internal/core"
	"ledgerdash/internal/ledger"
)

// Notifier is told when the ledger's net balance turns negative.
type Notifier interface {
	NotifyNegativeBalance(ctx context.Context, k ledger.KPIs) error
}

// LogNotifier writes alerts to the structured log only.
type LogNotifier struct{}

func (LogNotifier) NotifyNegativeBalance(ctx context.Context, k ledger.KPIs) error {
	slog.WarnContext(ctx, "Net balance is negative",
		"net_balance", k.Net.String(),
		"income", k.Income.String(),
		"expense", k.Expense.String())
	return nil
}

// messageSender is the part of *discordgo.Session the notifier uses.
type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts alerts to a Discord channel through a bot account.
type DiscordNotifier struct {
	session   messageSender
	channelID string
}

// NewDiscordNotifier creates a REST-only bot session; no gateway connection is opened.
func NewDiscordNotifier(token, channelID string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordNotifier{session: session, channelID: channelID}, nil
}

func (d *DiscordNotifier) NotifyNegativeBalance(ctx context.Context, k ledger.KPIs) error {
	if _, err := d.session.ChannelMessageSend(d.channelID, negativeBalanceMessage(k), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send discord alert: %w", err)
	}
	slog.InfoContext(ctx, "Negative balance alert sent", "channel_id", d.channelID)
	return nil
}

func negativeBalanceMessage(k ledger.KPIs) string {
	var b strings.Builder
	b.WriteString(":warning: **Net balance is negative**\n")
	fmt.Fprintf(&b, "Net: %s\n", core.FormatAmount(k.Net))
	fmt.Fprintf(&b, "Income: %s | Expense: %s\n", core.FormatAmount(k.Income), core.FormatAmount(k.Expense))
	fmt.Fprintf(&b, "Receivable: %s | Payable: %s", core.FormatAmount(k.Receivable), core.FormatAmount(k.Payable))
	return b.String()
}
