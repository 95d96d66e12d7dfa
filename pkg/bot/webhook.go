package bot

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"
)

// secretTokenHeader is echoed by Telegram on every webhook delivery when a
// secret was registered with setWebhook.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Router returns the public HTTP surface: the health probe, the webhook
// route, and a uniform "not found" for everything else.
func (b *Bot) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", b.HandleHealth)
	r.Post(b.config.WebhookPath, b.HandleWebhook)
	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleNotFound)
	return r
}

// HandleHealth replies to liveness probes with no side effects
func (b *Bot) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "not found", http.StatusNotFound)
}

// HandleWebhook is the update entry point. The status contract keeps
// Telegram from redelivering processed updates: once the body parses and
// carries a usable chat id and text, the reply is 200 no matter what the
// pipeline decided, except when a collaborator fails unexpectedly (502).
// Bad secrets get 401 and unparseable bodies 400, both before any side
// effects.
func (b *Bot) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if b.config.WebhookSecret != "" {
		if r.Header.Get(secretTokenHeader) != b.config.WebhookSecret {
			b.logger.Warn("webhook secret mismatch")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		b.logger.Warn("failed to read webhook body", Field{Key: "error", Value: err.Error()})
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	upd, ok, err := parseUpdate(body)
	if err != nil {
		b.logger.Warn("unparseable webhook body", Field{Key: "error", Value: err.Error()})
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !ok {
		// Not something we can answer (no chat id or no text). Replying
		// success stops the platform from redelivering it forever.
		b.logger.Info("ignoring update without chat id or text")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
		return
	}

	if err := b.HandleUpdate(r.Context(), upd); err != nil {
		b.logger.Error("failed to process update",
			Field{Key: "chat_id", Value: upd.ChatID},
			Field{Key: "error", Value: err.Error()})
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

// parseUpdate extracts the chat id and message text from an inbound update
// envelope. A body that is not valid JSON is an error (the caller replies
// 400); a valid envelope whose fields are missing or have the wrong type
// reports ok=false (the caller accepts it silently).
func parseUpdate(body []byte) (ChatUpdate, bool, error) {
	var envelope any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ChatUpdate{}, false, fmt.Errorf("invalid update payload: %w", err)
	}

	chatID := gjson.GetBytes(body, "message.chat.id")
	text := gjson.GetBytes(body, "message.text")
	if chatID.Type != gjson.Number || text.Type != gjson.String {
		return ChatUpdate{}, false, nil
	}

	return ChatUpdate{ChatID: chatID.Int(), Text: text.String()}, true, nil
}
