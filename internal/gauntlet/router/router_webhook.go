package router

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	httpx "github.com/go-gauntlet/gauntlet/pkg/http"
	"github.com/go-gauntlet/gauntlet/pkg/log"
)

func (rt *Router) webhookRouter(webhooks fiber.Router) {
	webhooks.Post("/github", rt.githubWebhook)
}

// githubWebhook acknowledges hosting-side events. Nothing reacts to
// them yet; the endpoint validates the payload and answers 200 so the
// hosting side does not disable the hook.
func (rt *Router) githubWebhook(c *fiber.Ctx) error {
	var payload map[string]any
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return httpx.WithRepErrMsg(c, httpx.BadRequest.Code, "invalid webhook payload", c.Path())
	}
	log.Debugw("webhook received",
		"event", c.Get("X-GitHub-Event"),
		"delivery", c.Get("X-GitHub-Delivery"),
	)
	return httpx.WithRepMsg(c, httpx.Success.Code, "ignored")
}
