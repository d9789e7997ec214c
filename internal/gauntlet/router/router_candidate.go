package router

import (
	"github.com/gofiber/fiber/v2"

	httpx "github.com/go-gauntlet/gauntlet/pkg/http"
)

func (rt *Router) candidateRouter(candidate fiber.Router) {
	candidate.Get("/start/:token", rt.startView)
	candidate.Post("/start/:token", rt.start)
	candidate.Post("/refresh/:token", rt.refresh)
	candidate.Post("/submit/:token", rt.submit)
}

func (rt *Router) startView(c *fiber.Ctx) error {
	view, err := rt.Invites.StartView(c.Params("token"))
	if err != nil {
		return repErr(c, err)
	}
	return httpx.WithRepJSON(c, view)
}

func (rt *Router) start(c *fiber.Ctx) error {
	resp, err := rt.Invites.Start(c.UserContext(), c.Params("token"))
	if err != nil {
		return repErr(c, err)
	}
	return httpx.WithRepJSON(c, resp)
}

func (rt *Router) refresh(c *fiber.Ctx) error {
	resp, err := rt.Invites.Refresh(c.UserContext(), c.Params("token"))
	if err != nil {
		return repErr(c, err)
	}
	return httpx.WithRepJSON(c, resp)
}

func (rt *Router) submit(c *fiber.Ctx) error {
	resp, err := rt.Invites.Submit(c.UserContext(), c.Params("token"))
	if err != nil {
		return repErr(c, err)
	}
	return httpx.WithRepJSON(c, resp)
}
