package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"herald-api/internal/capability/email"
	"herald-api/internal/capability/image"
	"herald-api/internal/capability/model"
	"herald-api/internal/enhance"
	"herald-api/internal/middleware"
	"herald-api/internal/routers"
	"herald-api/internal/session"
	"herald-api/internal/shared"
	"herald-api/internal/tools"

	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/manifold-inc/manifold-sdk/lib/eflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Flags / ENV Variables
	listen := flag.String("listen", ":80", "Listen address")
	debug := flag.Bool("debug", false, "Debug enabled")
	metricsAPIKey := flag.String("metrics-api-key", "", "Metrics api key")

	emailAPIKey := flag.String("email-api-key", "", "Email provider API key")
	emailEndpoint := flag.String("email-endpoint", "https://api.resend.com", "Email provider endpoint")
	emailFrom := flag.String("email-from", "", "Default sender address")

	modelAPIKey := flag.String("model-api-key", "", "Model runner API key")
	modelEndpoint := flag.String("model-endpoint", "", "Model runner endpoint")
	textModel := flag.String("text-model", "@cf/meta/llama-3.1-8b-instruct", "Language model used for prompt enhancement")
	imageModel := flag.String("image-model", "@cf/black-forest-labs/flux-1-schnell", "Diffusion model used for image generation")

	defaultSessionKey := flag.String("default-session-key", "default", "Session key used for connections without a session header")

	err := eflag.SetFlagsFromEnvironment()
	if err != nil {
		panic(err)
	}
	flag.Parse()

	// Every registered capability needs its credential up front; a missing
	// one is a configuration error now, not mid-call.
	if *emailAPIKey == "" {
		panic("missing email provider API key")
	}
	if *modelAPIKey == "" || *modelEndpoint == "" {
		panic("missing model runner credentials")
	}

	var logger *zap.Logger
	if !*debug {
		logger, err = zap.NewProduction()
		if err != nil {
			panic("Failed init logger")
		}
	}
	if *debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			panic("Failed init logger")
		}
	}
	log := logger.Sugar()

	runner := model.NewClient(*modelEndpoint, *modelAPIKey, log)
	enhancer := enhance.NewEnhancer(runner, *textModel, log)
	sender := email.NewSender(*emailEndpoint, *emailAPIKey, *emailFrom, log)
	generator := image.NewGenerator(runner, enhancer, *imageModel, log)

	registry := session.NewRegistry(func() *tools.Dispatcher {
		return tools.NewDispatcher(sender, generator, log)
	}, log)

	e := echo.New()
	e.GET(("/ping"), func(c echo.Context) error {
		return c.String(200, "")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			apiKey, err := shared.ExtractBearer(c)
			if err != nil {
				return c.String(401, "Missing or invalid API key")
			}

			if apiKey != *metricsAPIKey {
				return c.String(401, "Unauthorized API key")
			}
			return next(c)
		}
	})
	base := e.Group("")
	base.Use(emw.CORS())
	base.Use(middleware.NewRecoverMiddleware(log))
	base.Use(middleware.NewTrackMiddleware(log))
	base.Use(middleware.RequireBearer)

	// Register routes
	err = routers.RegisterMCPRoutes(base, routers.MCPRouterConfig{
		DefaultSessionKey: *defaultSessionKey,
	}, registry)
	if err != nil {
		panic(err)
	}

	go func() {
		if err := e.Start(*listen); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// Wait for interrupt signal to gracefully shut down the server with a timeout of 10 seconds.
	<-ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shared.DefaultShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
