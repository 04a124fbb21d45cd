package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/fitfuel/fitfuel-api/internal/config"
	"github.com/fitfuel/fitfuel-api/internal/domain"
	"github.com/fitfuel/fitfuel-api/internal/logging"
	"github.com/fitfuel/fitfuel-api/internal/provider"
	"github.com/fitfuel/fitfuel-api/internal/provider/local"
	"github.com/fitfuel/fitfuel-api/internal/provider/remote"
	"github.com/fitfuel/fitfuel-api/internal/repository/memory"
	"github.com/fitfuel/fitfuel-api/internal/repository/ports"
	redisstore "github.com/fitfuel/fitfuel-api/internal/repository/redis"
	"github.com/fitfuel/fitfuel-api/internal/service"
	transporthttp "github.com/fitfuel/fitfuel-api/internal/transport/http"
	"github.com/fitfuel/fitfuel-api/internal/transport/mail"
	"github.com/fitfuel/fitfuel-api/internal/validate"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		w, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			log.Printf("Warning: logstash disabled: %v", err)
		} else {
			defer w.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, w))
		}
	}

	var redisClient goredis.UniversalClient
	if cfg.TokenStoreBackend == "redis" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("redis unreachable at %s: %v", cfg.RedisAddr, err)
		}
	}

	var auth provider.AuthProvider
	switch cfg.ProviderBackend {
	case "remote":
		if cfg.AuthServiceURL == "" {
			log.Fatal("AUTH_PROVIDER=remote requires AUTH_SERVICE_URL")
		}
		auth = remote.New(cfg.AuthServiceURL, cfg.AuthServiceKey, nil)
	default:
		accounts := memory.NewAccountRepository()
		codes := memory.NewRecoveryCodeRepository()
		mailer := mail.NewRecoveryCodeMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)

		var limiter local.RequestLimiter
		if redisClient != nil {
			limiter = redisLimiterAdapter{redisstore.NewResetLimiter(redisClient, cfg.ResetMaxRequests, cfg.ResetRequestWindow)}
		} else {
			limiter = memoryLimiterAdapter{validate.NewRateLimiter(cfg.ResetMaxRequests, cfg.ResetRequestWindow)}
		}

		auth = local.New(accounts, codes, mailer, limiter, cfg.JWTSecret, local.Config{
			OTPLength:  cfg.ResetOTPLength,
			CodeTTL:    cfg.ResetCodeTTL,
			SessionTTL: cfg.ResetSessionTTL,
		})
	}

	newTokenStore := func() ports.TokenStore {
		if redisClient != nil {
			// Each flow gets its own namespace inside the shared store.
			return namespacedStore{
				inner: redisstore.NewTokenStore(redisClient, cfg.ResetBundleTTL),
				ns:    uuid.NewString(),
			}
		}
		return memory.NewTokenStore()
	}

	registry := transporthttp.NewFlowRegistry(func() *service.ResetFlow {
		return service.NewResetFlow(auth, newTokenStore(), service.FlowConfig{
			RedirectTarget: cfg.FrontendBaseURL,
			Policy:         passwordPolicy,
		})
	}, 30*time.Minute)

	e := transporthttp.NewRouter(cfg.AllowOrigins, transporthttp.NewResetHandler(registry))
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}

// passwordPolicy runs the shared validator and folds its verdict into the
// flow's error vocabulary.
func passwordPolicy(password string) error {
	if result := validate.ValidatePassword(password); !result.IsValid {
		return service.ErrPasswordTooWeak
	}
	return nil
}

type redisLimiterAdapter struct {
	limiter *redisstore.ResetLimiter
}

func (a redisLimiterAdapter) Allow(ctx context.Context, identifier string) (bool, error) {
	err := a.limiter.Allow(ctx, identifier)
	if errors.Is(err, redisstore.ErrRateLimited) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type memoryLimiterAdapter struct {
	limiter *validate.RateLimiter
}

func (a memoryLimiterAdapter) Allow(ctx context.Context, identifier string) (bool, error) {
	return a.limiter.IsAllowed(identifier), nil
}

// namespacedStore scopes a shared token store to one flow.
type namespacedStore struct {
	inner ports.TokenStore
	ns    string
}

func (s namespacedStore) Set(ctx context.Context, key string, bundle domain.ResetToken) error {
	return s.inner.Set(ctx, s.ns+":"+key, bundle)
}

func (s namespacedStore) Get(ctx context.Context, key string) (*domain.ResetToken, error) {
	return s.inner.Get(ctx, s.ns+":"+key)
}

func (s namespacedStore) Clear(ctx context.Context, key string) error {
	return s.inner.Clear(ctx, s.ns+":"+key)
}
