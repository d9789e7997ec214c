package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/go-gauntlet/gauntlet/internal/pkg/email"
	"github.com/go-gauntlet/gauntlet/internal/pkg/github"
	"github.com/go-gauntlet/gauntlet/pkg/database"
	"github.com/go-gauntlet/gauntlet/pkg/http"
	"github.com/go-gauntlet/gauntlet/pkg/log"
)

// App holds application-level settings that do not belong to a single
// subsystem.
type App struct {
	// BaseURL is the externally reachable base used to build candidate
	// start links, e.g. https://assess.example.com
	BaseURL string `mapstructure:"baseUrl"`
}

type AppConfig struct {
	App      App
	Log      log.Conf
	Http     http.Http
	Database database.Database
	GitHub   github.Config
	Email    email.Config
}

var (
	cfg  AppConfig
	once sync.Once
)

func NewConf(confDir string) AppConfig {
	once.Do(func() {
		var err error
		cfg, err = LoadConfigFile(confDir)
		if err != nil {
			panic(fmt.Sprintf("load config file error: %s", err))
		}
	})
	return cfg
}

// LoadConfigFile load config file
func LoadConfigFile(confDir string) (AppConfig, error) {

	config := viper.New()
	config.SetConfigFile(confDir)
	if err := config.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("failed to read configuration file: %v", err)
	}

	config.WatchConfig()
	config.OnConfigChange(func(e fsnotify.Event) {
		log.Infof("the configuration changed, re-parsing the configuration file: %s", e.Name)
		if err := config.Unmarshal(&cfg); err != nil {
			log.Errorf("failed to unmarshal configuration file: %v", err)
		}
	})
	if err := config.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal configuration file: %v", err)
	}
	log.Infow("config file loaded",
		"path", confDir,
	)

	return cfg, nil
}
