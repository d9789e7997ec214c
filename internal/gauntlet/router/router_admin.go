package router

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/go-gauntlet/gauntlet/internal/gauntlet/model"
	httpx "github.com/go-gauntlet/gauntlet/pkg/http"
)

func (rt *Router) adminRouter(admin fiber.Router) {
	admin.Post("/challenges", rt.createChallenge)
	admin.Get("/challenges/:challengeId", rt.challengeDetail)
	admin.Post("/challenges/:challengeId/invites", rt.createInvite)
	admin.Get("/invites/:inviteId", rt.inviteDetail)
	admin.Post("/invites/:inviteId/follow-up", rt.inviteFollowUp)
	admin.Get("/invites/:inviteId/compare", rt.inviteCompare)
	admin.Get("/db-health", rt.dbHealth)
}

func (rt *Router) createChallenge(c *fiber.Ctx) error {
	var req model.CreateChallengeReq
	if err := c.BodyParser(&req); err != nil {
		return httpx.WithRepErrMsg(c, httpx.RequestParameterParsingFailed.Code, httpx.RequestParameterParsingFailed.Msg, c.Path())
	}
	req.Slug = strings.TrimSpace(req.Slug)
	if req.Slug == "" || req.Title == "" {
		return httpx.WithRepErrMsg(c, httpx.BadRequest.Code, "slug and title are required", c.Path())
	}

	resp, err := rt.Challenges.CreateChallenge(c.UserContext(), &req)
	if err != nil {
		return repErr(c, err)
	}
	return httpx.WithRepJSON(c, resp)
}

func (rt *Router) challengeDetail(c *fiber.Ctx) error {
	detail, err := rt.Challenges.ChallengeDetail(c.Params("challengeId"))
	if err != nil {
		return repErr(c, err)
	}
	return httpx.WithRepJSON(c, detail)
}

func (rt *Router) createInvite(c *fiber.Ctx) error {
	var req model.CreateInviteReq
	if err := c.BodyParser(&req); err != nil {
		return httpx.WithRepErrMsg(c, httpx.RequestParameterParsingFailed.Code, httpx.RequestParameterParsingFailed.Msg, c.Path())
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return httpx.WithRepErrMsg(c, httpx.BadRequest.Code, "a valid candidate email is required", c.Path())
	}

	resp, err := rt.Invites.CreateInvite(c.UserContext(), c.Params("challengeId"), &req)
	if err != nil {
		return repErr(c, err)
	}
	return httpx.WithRepJSON(c, resp)
}

func (rt *Router) inviteDetail(c *fiber.Ctx) error {
	detail, err := rt.Invites.InviteDetail(c.Params("inviteId"))
	if err != nil {
		return repErr(c, err)
	}
	return httpx.WithRepJSON(c, detail)
}

func (rt *Router) inviteFollowUp(c *fiber.Ctx) error {
	if err := rt.Invites.SendFollowUp(c.UserContext(), c.Params("inviteId")); err != nil {
		return repErr(c, err)
	}
	return httpx.WithRepNotDetail(c)
}

func (rt *Router) inviteCompare(c *fiber.Ctx) error {
	summary, err := rt.Invites.Compare(c.UserContext(), c.Params("inviteId"))
	if err != nil {
		return repErr(c, err)
	}
	return httpx.WithRepJSON(c, summary)
}

func (rt *Router) dbHealth(c *fiber.Ctx) error {
	if err := rt.Challenges.DbHealth(); err != nil {
		return httpx.WithRepErrMsg(c, httpx.InternalError.Code, "database unreachable", c.Path())
	}
	return httpx.WithRepNotDetail(c)
}
