// Package telegram - адаптер Bot API для уведомлений и выдачи доступа.
//
// Реализует два порта:
//   - ports.NotificationSink: сообщения покупателю и типстеру после оплаты;
//   - ports.AccessProvisioner: одноразовый invite-link в премиум-канал.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
)

const (
	defaultBaseURL = "https://api.telegram.org"

	// Invite-link одноразовый и живёт неделю
	inviteMemberLimit = 1
	inviteTTL         = 7 * 24 * time.Hour
)

// Config - настройки Telegram бота.
type Config struct {
	BotToken      string
	BaseURL       string // переопределяется в тестах
	SupportHandle string // @-хендл поддержки в сообщениях покупателю
}

// Client - клиент Telegram Bot API.
type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

var (
	_ ports.NotificationSink  = (*Client)(nil)
	_ ports.AccessProvisioner = (*Client)(nil)
)

// NewClient создаёт Telegram клиент с retry-политикой.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.SupportHandle == "" {
		cfg.SupportHandle = "@AntiaSupport"
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 3 * time.Second
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	return &Client{
		cfg:    cfg,
		client: rc.StandardClient(),
		logger: logger,
		now:    time.Now,
	}
}

// NotifySale рассылает сообщения после подтверждённой оплаты.
//
// Покупатель получает благодарность (если пришёл из Telegram), типстер -
// уведомление о продаже. Ошибка одной отправки не блокирует другую:
// возвращается последняя ошибка, решение о повторе за вызывающим.
func (c *Client) NotifySale(ctx context.Context, n ports.SaleNotification) error {
	var lastErr error

	buyer := n.Order.Buyer()
	if buyer.HasTelegram() {
		text := fmt.Sprintf(
			"✅ *Gracias por su compra*\n\n"+
				"A continuación recibirá acceso a su servicio.\n\n"+
				"Si tiene alguna consulta, puede contactar con soporte en %s",
			c.cfg.SupportHandle,
		)
		if err := c.sendMessage(ctx, buyer.TelegramUserID, text, nil); err != nil {
			c.logger.ErrorContext(ctx, "buyer notification failed",
				slog.String("order_id", n.Order.ID()), slog.Any("error", err))
			lastErr = err
		}
	}

	if n.Tipster != nil && n.Tipster.NotificationsActive() {
		if err := c.sendMessage(ctx, n.Tipster.TelegramUserID(), c.saleAlertText(n), nil); err != nil {
			c.logger.ErrorContext(ctx, "tipster notification failed",
				slog.String("order_id", n.Order.ID()),
				slog.String("tipster_id", n.Tipster.ID()),
				slog.Any("error", err))
			lastErr = err
		}
	}

	return lastErr
}

func (c *Client) saleAlertText(n ports.SaleNotification) string {
	buyer := n.Order.Buyer()
	contact := buyer.Email
	if buyer.TelegramUsername != "" {
		contact = "@" + buyer.TelegramUsername
	}
	if contact == "" {
		contact = "comprador invitado"
	}

	amount := float64(n.Order.Amount().Cents()) / 100

	return fmt.Sprintf(
		"💰 *Nueva venta*\n\n"+
			"📋 Producto: *%s*\n"+
			"💶 Importe: %.2f %s\n"+
			"👤 Comprador: %s\n"+
			"🧾 Pedido: `%s`",
		escapeMarkdown(n.Product.Title()),
		amount,
		n.Order.Amount().Currency().Code(),
		escapeMarkdown(contact),
		n.Order.ID(),
	)
}

// GrantAccess создаёт одноразовый invite-link в канал типстера
// и отправляет его покупателю.
func (c *Client) GrantAccess(ctx context.Context, order *entities.Order, product *entities.Product) (string, error) {
	inviteLink, err := c.createInviteLink(ctx, product.ChannelID())
	if err != nil {
		return "", fmt.Errorf("failed to create invite link: %w", err)
	}

	text := fmt.Sprintf(
		"🎯 *Compra autorizada*\n\n"+
			"Puede entrar al canal del servicio *%s* pinchando aquí:\n\n%s",
		escapeMarkdown(product.Title()),
		inviteLink,
	)
	markup := &inlineKeyboard{
		InlineKeyboard: [][]inlineButton{{
			{Text: "🚀 Entrar al Canal", URL: inviteLink},
		}},
	}

	if err := c.sendMessage(ctx, order.Buyer().TelegramUserID, text, markup); err != nil {
		// Link уже создан: возвращаем его, покупателя может догнать relay
		c.logger.ErrorContext(ctx, "access message delivery failed",
			slog.String("order_id", order.ID()), slog.Any("error", err))
	}

	return inviteLink, nil
}

// Bot API payloads

type inlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type sendMessageRequest struct {
	ChatID      string          `json:"chat_id"`
	Text        string          `json:"text"`
	ParseMode   string          `json:"parse_mode,omitempty"`
	ReplyMarkup *inlineKeyboard `json:"reply_markup,omitempty"`
}

type createInviteLinkRequest struct {
	ChatID      string `json:"chat_id"`
	MemberLimit int    `json:"member_limit"`
	ExpireDate  int64  `json:"expire_date"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (c *Client) sendMessage(ctx context.Context, chatID, text string, markup *inlineKeyboard) error {
	_, err := c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "Markdown",
		ReplyMarkup: markup,
	})
	return err
}

func (c *Client) createInviteLink(ctx context.Context, channelID string) (string, error) {
	result, err := c.call(ctx, "createChatInviteLink", createInviteLinkRequest{
		ChatID:      channelID,
		MemberLimit: inviteMemberLimit,
		ExpireDate:  c.now().Add(inviteTTL).Unix(),
	})
	if err != nil {
		return "", err
	}

	var link struct {
		InviteLink string `json:"invite_link"`
	}
	if err := json.Unmarshal(result, &link); err != nil {
		return "", fmt.Errorf("malformed createChatInviteLink result: %w", err)
	}
	return link.InviteLink, nil
}

func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.cfg.BaseURL, c.cfg.BotToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("malformed telegram response: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram %s failed: %s", method, parsed.Description)
	}
	return parsed.Result, nil
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"`", "\\`",
)

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
