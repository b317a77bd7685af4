package main

import (
	"io"
	"log"
	"os"

	"github.com/trellis-app/trellis-backend/internal/config"
	"github.com/trellis-app/trellis-backend/internal/identity"
	"github.com/trellis-app/trellis-backend/internal/logging"
	"github.com/trellis-app/trellis-backend/internal/repository/postgres"
	"github.com/trellis-app/trellis-backend/internal/service"
	transport "github.com/trellis-app/trellis-backend/internal/transport/http"
	"github.com/trellis-app/trellis-backend/internal/transport/mail"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			log.Printf("Warning: logstash disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, writer))
		}
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	sessions := service.NewSessionService(postgres.NewSessionRepo(db), cfg.SessionTTL, cfg.SessionRenewalWindow)
	resets := service.NewPasswordResetService(postgres.NewPasswordResetSessionRepo(db), cfg.PasswordResetTTL)

	var mailer service.CodeSender
	if cfg.SMTPHost != "" {
		mailer = mail.NewCodeMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		log.Println("Warning: SMTP not configured, verification codes are logged to stdout")
		mailer = mail.LogMailer{}
	}

	provider := identity.NewClient(cfg.IdentityURL, cfg.IdentitySecret)
	auth := service.NewAuthService(postgres.NewUserRepo(db), sessions, resets, provider, mailer)

	cookies := transport.NewCookieManager(cfg.SecureCookies)

	e := transport.NewRouter(cfg.AllowOrigins)
	e.Use(transport.SessionMiddleware(sessions, cookies))

	transport.RegisterAuth(e, auth, resets, cookies)
	transport.RegisterPages(e, cfg.FrontendBaseURL)
	transport.RegisterSwagger(e)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
