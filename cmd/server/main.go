package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	rdb "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/clients/fakerepo"
	"github.com/jrsteele09/go-identity-server/internal/config"
	"github.com/jrsteele09/go-identity-server/oauth2"
	"github.com/jrsteele09/go-identity-server/response"
	"github.com/jrsteele09/go-identity-server/scopes"
	"github.com/jrsteele09/go-identity-server/scopes/repofake"
	"github.com/jrsteele09/go-identity-server/server"
	"github.com/jrsteele09/go-identity-server/store"
	memorystore "github.com/jrsteele09/go-identity-server/store/memory"
	redisstore "github.com/jrsteele09/go-identity-server/store/redis"
	"github.com/jrsteele09/go-identity-server/token"
	"github.com/jrsteele09/go-identity-server/users/servicefake"
	"github.com/jrsteele09/go-identity-server/validation"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("server exited with error")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()
	cfg := config.New()
	setupLogging(cfg)
	displayAppname(cfg.GetAppName())

	handler, err := buildServer(cfg)
	if err != nil {
		return err
	}

	app := &http.Server{Addr: cfg.GetPort(), Handler: handler}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.GetMetricsPort(), Handler: metricsMux}

	group, ctx := errgroup.WithContext(context.Background())
	group.Go(func() error {
		log.Info().Str("addr", app.Addr).Msg("listening")
		if err := app.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "[run] app listener")
		}
		return nil
	})
	group.Go(func() error {
		log.Info().Str("addr", metricsServer.Addr).Msg("metrics listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "[run] metrics listener")
		}
		return nil
	})
	group.Go(func() error {
		waitForStopSignal(ctx)
		shutdown(app, metricsServer)
		return nil
	})

	return group.Wait()
}

func buildServer(cfg config.Config) (*server.Server, error) {
	codeStore, refreshStore, referenceStore := buildStores(cfg)

	clientRepo := fakerepo.New(demoClients()...)
	scopeRepo := repofake.New(
		scopes.OpenID(), scopes.Profile(), scopes.Email(), scopes.OfflineAccess(),
		scopes.Scope{Name: "api", DisplayName: "API access", Type: scopes.TypeResource},
	)
	userService := servicefake.New(demoUsers()...)

	signer, err := buildSigner(cfg)
	if err != nil {
		return nil, err
	}
	tokenService, err := token.NewService(cfg.GetIssuer(), signer, referenceStore,
		token.WithClaimsProvider(userService))
	if err != nil {
		return nil, err
	}

	scopeValidator, err := validation.NewScopeValidator(scopeRepo)
	if err != nil {
		return nil, err
	}
	authorizeValidator, err := validation.NewAuthorizeRequestValidator(clientRepo, scopeValidator, validation.NewRedirectURIValidator(), cfg)
	if err != nil {
		return nil, err
	}
	clientValidator, err := validation.NewClientValidator(clientRepo, cfg)
	if err != nil {
		return nil, err
	}
	tokenValidator, err := validation.NewTokenRequestValidator(codeStore, refreshStore, scopeValidator, userService, cfg)
	if err != nil {
		return nil, err
	}

	authorizeGenerator, err := response.NewAuthorizeResponseGenerator(codeStore, tokenService)
	if err != nil {
		return nil, err
	}
	tokenGenerator, err := response.NewTokenResponseGenerator(tokenService, refreshStore)
	if err != nil {
		return nil, err
	}
	revoker, err := token.NewRevoker(refreshStore, referenceStore)
	if err != nil {
		return nil, err
	}

	return server.New(server.Deps{
		Config:             cfg,
		Scopes:             scopeRepo,
		AuthorizeValidator: authorizeValidator,
		ClientValidator:    clientValidator,
		TokenValidator:     tokenValidator,
		AuthorizeGenerator: authorizeGenerator,
		TokenGenerator:     tokenGenerator,
		Tokens:             tokenService,
		Revoker:            revoker,
		Sessions:           server.NewMemorySessions(8*time.Hour, cfg.GetEnv() != "DEV"),
	})
}

// buildStores selects Redis when REDIS_ADDR is set, otherwise in-memory.
// Handle hashing wraps both so stored keys are never redeemable.
func buildStores(cfg config.Config) (store.AuthorizationCodeStore, store.RefreshTokenStore, store.ReferenceTokenStore) {
	if addr := cfg.GetRedisAddr(); addr != "" {
		client := rdb.NewClient(&rdb.Options{Addr: addr, DB: cfg.GetRedisDB()})
		return store.NewHashedCodeStore(redisstore.NewCodeStore(client, cfg.GetDefaultAuthorizationCodeLifetime())),
			store.NewHashedRefreshTokenStore(redisstore.NewRefreshTokenStore(client)),
			store.NewHashedReferenceTokenStore(redisstore.NewReferenceTokenStore(client))
	}
	return store.NewHashedCodeStore(memorystore.NewCodeStore()),
		store.NewHashedRefreshTokenStore(memorystore.NewRefreshTokenStore()),
		store.NewHashedReferenceTokenStore(memorystore.NewReferenceTokenStore(cfg.GetReferenceTokenCleanupInterval()))
}

// buildSigner uses HMAC when SIGNING_SECRET is set, otherwise generates an
// ephemeral RSA pair. Ephemeral keys invalidate outstanding tokens on restart,
// acceptable for development only.
func buildSigner(cfg config.Config) (token.Signer, error) {
	if secret := cfg.GetSigningSecret(); secret != "" {
		return token.NewHMACSigner(secret), nil
	}
	keyPair, err := token.GenerateRSAKeyPair(cfg.GetSigningKeyID(), 2048)
	if err != nil {
		return nil, err
	}
	log.Warn().Msg("no SIGNING_SECRET configured, generated ephemeral RSA key")
	return token.NewKeyPairSigner(keyPair), nil
}

func demoClients() []*clients.Client {
	return []*clients.Client{
		{
			ID:           "web-app",
			Name:         "Demo Web Application",
			Enabled:      true,
			Flow:         oauth2.FlowAuthorizationCode,
			RedirectURIs: []string{"http://localhost:3000/callback"},
			RequirePKCE:  true,
		},
		{
			ID:              "m2m-service",
			Name:            "Demo Service Account",
			Enabled:         true,
			SecretHashes:    []string{servicefake.HashPassword("m2m-secret")},
			Flow:            oauth2.FlowClientCredentials,
			AllowedScopes:   []string{"api"},
			AccessTokenType: oauth2.AccessTokenReference,
		},
	}
}

func demoUsers() []*servicefake.User {
	return []*servicefake.User{
		{
			Subject:      "1",
			Username:     "alice",
			PasswordHash: servicefake.HashPassword("password"),
			Active:       true,
		},
	}
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func waitForStopSignal(ctx context.Context) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}
}

func shutdown(servers ...*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}
}

func displayAppname(appname string) {
	figure.NewFigure(appname, "cybermedium", true).Print()
	fmt.Println()
}
