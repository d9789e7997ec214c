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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gauntlet/gauntlet/internal/gauntlet/config"
	"github.com/go-gauntlet/gauntlet/internal/gauntlet/logic"
	"github.com/go-gauntlet/gauntlet/internal/gauntlet/repo"
	"github.com/go-gauntlet/gauntlet/internal/gauntlet/router"
	"github.com/go-gauntlet/gauntlet/internal/pkg/email"
	"github.com/go-gauntlet/gauntlet/internal/pkg/github"
	"github.com/go-gauntlet/gauntlet/pkg/ctx"
	"github.com/go-gauntlet/gauntlet/pkg/database"
	"github.com/go-gauntlet/gauntlet/pkg/log"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "conf", "conf.d/config.toml", "conf file path, e.g. -conf conf.d/config.toml")
}

func main() {
	flag.Parse()

	appConf := config.NewConf(configFile)

	log.MustInit(&appConf.Log)

	db, err := database.NewDatabase(appConf.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	appCtx := ctx.NewContext(context.Background(), db, log.GetLogger())

	gh := github.New(appConf.GitHub)
	mailer := email.New(appConf.Email)

	gormDB := database.NewGormDB(db)
	challengeRepo := repo.NewChallengeRepo(gormDB)
	candidateRepo := repo.NewCandidateRepo(gormDB)
	inviteRepo := repo.NewInviteRepo(gormDB)

	assessment := logic.NewAssessmentLogic(gh)
	challenges := logic.NewChallengeLogic(challengeRepo, assessment)
	invites := logic.NewInviteLogic(challengeRepo, candidateRepo, inviteRepo, assessment, mailer, appConf.App.BaseURL)

	route := router.NewRouter(&appConf.Http, appCtx, challenges, invites)
	app := route.Router()

	addr := fmt.Sprintf("%s:%d", appConf.Http.Host, appConf.Http.Port)
	go func() {
		log.Infow("http server listening", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownTimeout := time.Duration(appConf.Http.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	log.Infow("shutting down", "timeout", shutdownTimeout)
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
