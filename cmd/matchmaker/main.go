package main

import (
	"context"

	"github.com/wrelay/matchmaker/pkg/config"
	"github.com/wrelay/matchmaker/pkg/logger"
	"github.com/wrelay/matchmaker/pkg/matchmaker"
	"github.com/wrelay/matchmaker/pkg/os"
)

var Version = "?"

func main() {
	conf := config.NewConfig("")
	conf.ParseFlags()

	log := logger.NewConsole(conf.Debug, "mm")
	log.Info().Msgf("version %s", Version)
	if log.GetLevel() <= logger.DebugLevel {
		log.Debug().Msgf("config: %+v", conf)
	}

	m := matchmaker.New(conf, log)
	m.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		if err := m.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("service shutdown errors")
		}
	}()
	<-os.ExpectTermination()
	cancel()
}
