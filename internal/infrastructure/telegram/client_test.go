package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/valueobjects"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// botAPIStub записывает вызовы Bot API.
type botAPIStub struct {
	mu       sync.Mutex
	messages []sendMessageRequest
	invites  []createInviteLinkRequest
	failSend bool
}

func (s *botAPIStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		switch {
		case r.URL.Path == "/bottest-token/sendMessage":
			if s.failSend {
				fmt.Fprint(w, `{"ok":false,"description":"Forbidden: bot was blocked by the user"}`)
				return
			}
			var req sendMessageRequest
			require.NoError(t, json.Unmarshal(body, &req))
			s.messages = append(s.messages, req)
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":1}}`)

		case r.URL.Path == "/bottest-token/createChatInviteLink":
			var req createInviteLinkRequest
			require.NoError(t, json.Unmarshal(body, &req))
			s.invites = append(s.invites, req)
			fmt.Fprint(w, `{"ok":true,"result":{"invite_link":"https://t.me/+AbCdEf123"}}`)

		default:
			t.Errorf("unexpected Bot API call: %s", r.URL.Path)
		}
	}
}

func (s *botAPIStub) sentMessages() []sendMessageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sendMessageRequest(nil), s.messages...)
}

func newTestClient(t *testing.T, stub *botAPIStub) *Client {
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)

	return NewClient(Config{BotToken: "test-token", BaseURL: server.URL}, testLogger())
}

func saleFixture(t *testing.T, buyer entities.BuyerContact) ports.SaleNotification {
	t.Helper()

	price, err := valueobjects.NewMoneyFromCents(2999, valueobjects.MustNewCurrency("EUR"))
	require.NoError(t, err)

	product, err := entities.NewProduct("tipster-1", "VIP Picks", "Daily tips", entities.ProductKindOneTime, price, "-100200")
	require.NoError(t, err)

	order, err := entities.NewOrder(product.ID(), product.TipsterID(), price, buyer, false)
	require.NoError(t, err)

	tipster, err := entities.NewTipsterProfile("Pro Tips", "900100")
	require.NoError(t, err)

	return ports.SaleNotification{Order: order, Product: product, Tipster: tipster}
}

func TestNotifySale_TelegramBuyer(t *testing.T) {
	stub := &botAPIStub{}
	client := newTestClient(t, stub)

	n := saleFixture(t, entities.BuyerContact{TelegramUserID: "555", TelegramUsername: "buyer_tg"})

	require.NoError(t, client.NotifySale(context.Background(), n))

	messages := stub.sentMessages()
	require.Len(t, messages, 2)

	// Первое сообщение - покупателю
	assert.Equal(t, "555", messages[0].ChatID)
	assert.Contains(t, messages[0].Text, "Gracias por su compra")
	assert.Equal(t, "Markdown", messages[0].ParseMode)

	// Второе - типстеру
	assert.Equal(t, "900100", messages[1].ChatID)
	assert.Contains(t, messages[1].Text, "Nueva venta")
	assert.Contains(t, messages[1].Text, "VIP Picks")
	assert.Contains(t, messages[1].Text, "29.99 EUR")
	assert.Contains(t, messages[1].Text, "@buyer\\_tg")
}

func TestNotifySale_EmailBuyerSkipsBuyerMessage(t *testing.T) {
	stub := &botAPIStub{}
	client := newTestClient(t, stub)

	n := saleFixture(t, entities.BuyerContact{Email: "buyer@example.com"})

	require.NoError(t, client.NotifySale(context.Background(), n))

	messages := stub.sentMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "900100", messages[0].ChatID)
	assert.Contains(t, messages[0].Text, "buyer@example.com")
}

func TestNotifySale_MutedTipster(t *testing.T) {
	stub := &botAPIStub{}
	client := newTestClient(t, stub)

	n := saleFixture(t, entities.BuyerContact{TelegramUserID: "555"})
	n.Tipster.MuteNotifications()

	require.NoError(t, client.NotifySale(context.Background(), n))

	messages := stub.sentMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "555", messages[0].ChatID)
}

func TestNotifySale_SendFailureReturnsError(t *testing.T) {
	stub := &botAPIStub{failSend: true}
	client := newTestClient(t, stub)

	n := saleFixture(t, entities.BuyerContact{TelegramUserID: "555"})

	err := client.NotifySale(context.Background(), n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestGrantAccess_CreatesSingleUseInvite(t *testing.T) {
	stub := &botAPIStub{}
	client := newTestClient(t, stub)

	n := saleFixture(t, entities.BuyerContact{TelegramUserID: "555"})

	link, err := client.GrantAccess(context.Background(), n.Order, n.Product)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+AbCdEf123", link)

	require.Len(t, stub.invites, 1)
	assert.Equal(t, "-100200", stub.invites[0].ChatID)
	assert.Equal(t, 1, stub.invites[0].MemberLimit)
	assert.Greater(t, stub.invites[0].ExpireDate, int64(0))

	messages := stub.sentMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "555", messages[0].ChatID)
	assert.Contains(t, messages[0].Text, "Compra autorizada")
	assert.Contains(t, messages[0].Text, link)
	require.NotNil(t, messages[0].ReplyMarkup)
	assert.Equal(t, link, messages[0].ReplyMarkup.InlineKeyboard[0][0].URL)
}

func TestGrantAccess_MessageFailureStillReturnsLink(t *testing.T) {
	stub := &botAPIStub{failSend: true}
	client := newTestClient(t, stub)

	n := saleFixture(t, entities.BuyerContact{TelegramUserID: "555"})

	link, err := client.GrantAccess(context.Background(), n.Order, n.Product)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+AbCdEf123", link)
}
