package main

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/nightpass/admission/internal/config"
    "github.com/nightpass/admission/internal/database"
    "github.com/nightpass/admission/internal/handler"
    "github.com/nightpass/admission/internal/queue"
    "github.com/nightpass/admission/internal/repository"
    "github.com/nightpass/admission/internal/router"
    "github.com/nightpass/admission/internal/service"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("open database: %v", err)
    }
    defer db.Close()

    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable, rate limiting and report cache disabled")
    }

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    creds := repository.NewCredentialRepo(db)
    products := repository.NewProductRepo(db)
    reports := repository.NewReportRepo(db)

    notifier := service.NewNotifier()
    issuer := service.NewIssuer(creds, products, notifier)
    validator := service.NewValidator(creds, notifier)

    go func() {
        if err := queue.StartAdmissionConsumer(); err != nil {
            log.Printf("admission consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    e.HideBanner = true
    router.RegisterRoutes(e)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
    router.RegisterCredentials(e, handler.NewCredentialHandler(issuer, creds), cfg.JWTSecret)
    router.RegisterScan(e, handler.NewScanHandler(validator), cfg.JWTSecret, rdb)
    router.RegisterReports(e, handler.NewReportHandler(reports), cfg.JWTSecret, rdb)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
