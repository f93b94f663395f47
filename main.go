package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	cli "gopkg.in/urfave/cli.v1"
	yaml "gopkg.in/yaml.v2"

	"github.com/techidsk/prompts/catalog"
	chatapi "github.com/techidsk/prompts/chat-api"
	"github.com/techidsk/prompts/db"
	"github.com/techidsk/prompts/rpc"
)

var (
	OriginCommandHelpTemplate = `{{.Name}}{{if .Subcommands}} command{{end}}{{if .Flags}} [command options]{{end}} {{.ArgsUsage}}
{{if .Description}}{{.Description}}
{{end}}{{if .Subcommands}}
SUBCOMMANDS:
  {{range .Subcommands}}{{.Name}}{{with .ShortName}}, {{.}}{{end}}{{ "\t" }}{{.Usage}}
  {{end}}{{end}}{{if .Flags}}
OPTIONS:
{{range $.Flags}}   {{.}}
{{end}}
{{end}}`
)

var app *cli.App

var (
	configPathFlag = cli.StringFlag{
		Name:  "config",
		Usage: "config path",
		Value: "./config.yml",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log",
		Usage: "log level (debug, info, warn, error)",
		Value: "info",
	}
)

func init() {
	app = cli.NewApp()
	app.Version = "v1.0.0"
	app.Commands = []cli.Command{
		commandStart,
	}

	cli.CommandHelpTemplate = OriginCommandHelpTemplate
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var commandStart = cli.Command{
	Name:  "start",
	Usage: "start the prompt playground server",
	Flags: []cli.Flag{
		configPathFlag,
		logLevelFlag,
	},
	Action: Start,
}

type PlaygroundConfig struct {
	Port              string          `yaml:"port"`
	OpenRouterKey     string          `yaml:"openrouter_key"`
	BaseURL           string          `yaml:"base_url"`
	PromptsDir        string          `yaml:"prompts_dir"`
	DBPath            string          `yaml:"db_path"`
	StreamIdleSeconds int             `yaml:"stream_idle_timeout_seconds"`
	Models            []catalog.Model `yaml:"models"`
}

func Start(ctx *cli.Context) {
	initLog(ctx.String(logLevelFlag.Name))

	conf := loadConfig(ctx)
	if conf.Port == "" {
		conf.Port = "9988"
	}
	if conf.PromptsDir == "" {
		conf.PromptsDir = "./local-dev"
	}
	if conf.DBPath == "" {
		conf.DBPath = "./data/history.db"
	}
	if conf.StreamIdleSeconds == 0 {
		conf.StreamIdleSeconds = 120
	}
	if conf.OpenRouterKey == "" {
		conf.OpenRouterKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if conf.OpenRouterKey == "" {
		log.Warn().Msg("no OPENROUTER_API_KEY configured, chat requests will be rejected")
	}

	store, err := db.Open(conf.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", conf.DBPath).Msg("open history store")
	}
	defer store.Close()
	if err := store.Init(); err != nil {
		log.Fatal().Err(err).Msg("init history store schema")
	}

	relay := chatapi.NewClient(conf.OpenRouterKey, conf.BaseURL, time.Duration(conf.StreamIdleSeconds)*time.Second)
	service := rpc.NewService(conf.Port, relay, store, conf.Models, conf.PromptsDir, conf.OpenRouterKey != "")

	go func() {
		if err := service.Start(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("rpc service stopped")
		}
	}()
	log.Info().Str("port", conf.Port).Str("prompts_dir", conf.PromptsDir).Msg("playground server running")
	waitToExit()
}

func initLog(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

func loadConfig(ctx *cli.Context) PlaygroundConfig {
	var conf PlaygroundConfig
	configPath := ctx.String(configPathFlag.Name)
	b, err := os.ReadFile(configPath)
	if err != nil {
		if ctx.IsSet(configPathFlag.Name) {
			log.Fatal().Err(err).Str("path", configPath).Msg("read config")
		}
		return conf
	}
	if err := yaml.Unmarshal(b, &conf); err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("parse config")
	}
	return conf
}

func waitToExit() {
	exit := make(chan bool, 0)
	sc := make(chan os.Signal, 1)
	if !signal.Ignored(syscall.SIGHUP) {
		signal.Notify(sc, syscall.SIGHUP)
	}
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range sc {
			log.Info().Str("signal", sig.String()).Msg("received exit signal")
			close(exit)
			break
		}
	}()
	<-exit
}
