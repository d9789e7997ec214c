// Copyright 2025 Gauntlet Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package router

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/go-gauntlet/gauntlet/internal/gauntlet/logic"
	"github.com/go-gauntlet/gauntlet/pkg/ctx"
	httpx "github.com/go-gauntlet/gauntlet/pkg/http"
	"github.com/go-gauntlet/gauntlet/pkg/log"
)

type Router struct {
	Http       *httpx.Http
	Ctx        *ctx.Context
	Challenges *logic.ChallengeLogic
	Invites    *logic.InviteLogic
}

func NewRouter(httpConf *httpx.Http, appCtx *ctx.Context, challenges *logic.ChallengeLogic, invites *logic.InviteLogic) *Router {
	return &Router{
		Http:       httpConf,
		Ctx:        appCtx,
		Challenges: challenges,
		Invites:    invites,
	}
}

func (rt *Router) Router() *fiber.App {

	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(rt.Http.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(rt.Http.WriteTimeout) * time.Second,
		IdleTimeout:           time.Duration(rt.Http.IdleTimeout) * time.Second,
		BodyLimit:             rt.Http.BodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	if rt.Http.AccessLog {
		app.Use(httpx.AccessLogFormat(log.GetLogger()))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	api := app.Group("/api")
	rt.adminRouter(api.Group("/admin"))
	rt.candidateRouter(api.Group("/candidate"))
	rt.webhookRouter(api.Group("/webhooks"))

	return app
}

// repErr maps logic-layer error kinds onto the registered code table.
func repErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, logic.ErrChallengeNotFound):
		return httpx.WithRepErrMsg(c, httpx.ChallengeNotFound.Code, httpx.ChallengeNotFound.Msg, c.Path())
	case errors.Is(err, logic.ErrInviteNotFound):
		return httpx.WithRepErrMsg(c, httpx.InviteNotFound.Code, httpx.InviteNotFound.Msg, c.Path())
	case errors.Is(err, logic.ErrInviteTokenInvalid):
		return httpx.WithRepErrMsg(c, httpx.InviteTokenInvalid.Code, httpx.InviteTokenInvalid.Msg, c.Path())
	case errors.Is(err, logic.ErrInviteNotActive):
		return httpx.WithRepErrMsg(c, httpx.InviteNotActive.Code, httpx.InviteNotActive.Msg, c.Path())
	case errors.Is(err, logic.ErrStartWindowExpired):
		return httpx.WithRepErrMsg(c, httpx.StartWindowExpired.Code, httpx.StartWindowExpired.Msg, c.Path())
	case errors.Is(err, logic.ErrAssessmentWindowExpired):
		return httpx.WithRepErrMsg(c, httpx.AssessmentWindowExpired.Code, httpx.AssessmentWindowExpired.Msg, c.Path())
	case errors.Is(err, logic.ErrInvalidState):
		return httpx.WithRepErrMsg(c, httpx.InviteStateInvalid.Code, httpx.InviteStateInvalid.Msg, c.Path())
	case errors.Is(err, logic.ErrRepoProvisioning):
		return httpx.WithRepErrMsg(c, httpx.RepoProvisioningFailed.Code, err.Error(), c.Path())
	case errors.Is(err, logic.ErrFinalCommitUnavailable):
		return httpx.WithRepErrMsg(c, httpx.FinalCommitUnavailable.Code, err.Error(), c.Path())
	case errors.Is(err, logic.ErrEmailDelivery):
		return httpx.WithRepErrMsg(c, httpx.EmailDeliveryFailed.Code, err.Error(), c.Path())
	case errors.Is(err, logic.ErrSlugTaken):
		return httpx.WithRepErrMsg(c, httpx.BadRequest.Code, err.Error(), c.Path())
	default:
		log.Errorf("request failed: %v", err)
		return httpx.WithRepErrMsg(c, httpx.InternalError.Code, httpx.InternalError.Msg, c.Path())
	}
}
