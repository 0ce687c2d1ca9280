package main

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kongrex/regdesk/internal/config"
	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/mailer"
	"github.com/kongrex/regdesk/internal/payment"
	"github.com/kongrex/regdesk/internal/storage"
	"github.com/kongrex/regdesk/internal/web"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	config.Load()

	if err := db.Init(config.DBPath()); err != nil {
		log.Fatal().Err(err).Msg("db init")
	}

	store, err := storage.NewLocal(config.UploadDir())
	if err != nil {
		log.Fatal().Err(err).Msg("storage init")
	}

	m, err := mailer.New(config.SMTPHost(), config.SMTPPort(),
		config.SMTPUser(), config.SMTPPassword(), config.MailFrom(), config.TemplateDir())
	if err != nil {
		log.Fatal().Err(err).Msg("mailer init")
	}

	gw := payment.NewHTTPGateway(config.GatewayURL(), config.GatewayAPIKey())

	mailer.StartReminderLoop(m)

	r := web.Router(gw, m, store)

	addr := config.Addr()
	log.Info().Str("addr", addr).Msg("regdesk listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
