// Package bootstrap wires the process dependencies into a samber/do injector.
package bootstrap

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/infra/blob"
	"github.com/sitescan/sitescan/internal/infra/cache"
	"github.com/sitescan/sitescan/internal/infra/db"
	"github.com/sitescan/sitescan/internal/infra/httpclient"
	"github.com/sitescan/sitescan/internal/infra/llm"
	mq "github.com/sitescan/sitescan/internal/infra/queue"
	"github.com/sitescan/sitescan/internal/middleware"
	"github.com/sitescan/sitescan/internal/modules/handler"
	"github.com/sitescan/sitescan/internal/modules/repo"
	"github.com/sitescan/sitescan/internal/modules/service"
	"github.com/sitescan/sitescan/internal/pkg/qrcode"
	"github.com/sitescan/sitescan/internal/router"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Origin identifies this replica on the events exchange.
type Origin string

// Database owns the gorm handle so the injector can close the pool.
type Database struct {
	*gorm.DB
}

func (d *Database) Shutdown() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Broker holds the initial RabbitMQ connection. The publisher takes over the
// connection lifecycle, including redials.
type Broker struct {
	Conn      *amqp.Connection
	Publisher *mq.Publisher
}

func (b *Broker) Shutdown() error { return b.Publisher.Close() }

type redisClient struct {
	*redis.Client
}

func (r *redisClient) Shutdown() error { return r.Close() }

// New registers every provider. Nothing connects until first invoked.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) *do.Injector {
	i := do.New()

	do.ProvideValue(i, cfg)
	do.ProvideValue(i, log)
	do.ProvideValue(i, Origin(uuid.NewString()))

	provideInfra(ctx, i)
	provideModules(i)
	return i
}

func provideInfra(ctx context.Context, i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Database, error) {
		cfg := do.MustInvoke[*config.Config](i)
		gdb, err := db.New(ctx, cfg, do.MustInvoke[*zap.Logger](i))
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(gdb); err != nil {
				return nil, err
			}
		}
		return &Database{DB: gdb}, nil
	})

	do.Provide(i, func(i *do.Injector) (*redisClient, error) {
		rdb, err := cache.NewRedisClient(ctx, do.MustInvoke[*config.Config](i))
		if err != nil {
			return nil, err
		}
		return &redisClient{Client: rdb}, nil
	})

	do.Provide(i, func(i *do.Injector) (cache.QueryCache, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.Cache.Backend == "memory" {
			return cache.NewMemory(cfg.Cache.TTL), nil
		}
		rdb, err := do.Invoke[*redisClient](i)
		if err != nil {
			return nil, err
		}
		return cache.NewRedis(rdb.Client, cfg.Cache.TTL), nil
	})

	do.Provide(i, func(i *do.Injector) (*blob.S3Deps, error) {
		return blob.NewS3(ctx, do.MustInvoke[*config.Config](i))
	})

	do.Provide(i, func(i *do.Injector) (llm.Invoker, error) {
		return llm.New(ctx, do.MustInvoke[*config.Config](i), do.MustInvoke[*zap.Logger](i))
	})
	do.Provide(i, func(i *do.Injector) (*llm.Prompts, error) {
		return llm.LoadPrompts()
	})

	do.Provide(i, func(i *do.Injector) (*Broker, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dial := mq.Dialer(cfg)
		conn, err := dial()
		if err != nil {
			return nil, err
		}
		pub, err := mq.NewPublisher(conn, do.MustInvoke[*zap.Logger](i), cfg, dial)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return &Broker{Conn: conn, Publisher: pub}, nil
	})

	do.Provide(i, func(i *do.Injector) (mq.EventPublisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.MQ.Enabled {
			return mq.NopPublisher{}, nil
		}
		b, err := do.Invoke[*Broker](i)
		if err != nil {
			return nil, err
		}
		return mq.WithOrigin(b.Publisher, string(do.MustInvoke[Origin](i))), nil
	})

	do.Provide(i, func(i *do.Injector) (*mq.Consumer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		b, err := do.Invoke[*Broker](i)
		if err != nil {
			return nil, err
		}
		return mq.NewConsumer(b.Conn, cfg.MQ.Queue, cfg.MQ.Prefetch, do.MustInvoke[*zap.Logger](i), cfg)
	})

	do.Provide(i, func(i *do.Injector) (*httpclient.AuthClient, error) {
		return httpclient.NewAuthClient(do.MustInvoke[*config.Config](i), do.MustInvoke[*zap.Logger](i)), nil
	})
	do.Provide(i, func(i *do.Injector) (*httpclient.QRClient, error) {
		return httpclient.NewQRClient(), nil
	})
	do.Provide(i, func(i *do.Injector) (*qrcode.Renderer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return qrcode.NewRenderer(cfg.UI.QRServiceURL, cfg.UI.QRSize), nil
	})
	do.Provide(i, func(i *do.Injector) (*middleware.Verifier, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return middleware.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer), nil
	})
}

func provideModules(i *do.Injector) {
	// Repos
	do.Provide(i, func(i *do.Injector) (repo.ArtifactRepo, error) {
		d, err := do.Invoke[*Database](i)
		if err != nil {
			return nil, err
		}
		return repo.NewArtifactRepo(d.DB), nil
	})
	do.Provide(i, func(i *do.Injector) (repo.NoteRepo, error) {
		d, err := do.Invoke[*Database](i)
		if err != nil {
			return nil, err
		}
		return repo.NewNoteRepo(d.DB), nil
	})

	// Services
	do.Provide(i, func(i *do.Injector) (service.ArtifactService, error) {
		return service.NewArtifactService(
			do.MustInvoke[repo.ArtifactRepo](i),
			do.MustInvoke[cache.QueryCache](i),
			do.MustInvoke[mq.EventPublisher](i),
			do.MustInvoke[*qrcode.Renderer](i),
			do.MustInvoke[*blob.S3Deps](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(i, func(i *do.Injector) (service.NoteService, error) {
		return service.NewNoteService(
			do.MustInvoke[repo.NoteRepo](i),
			do.MustInvoke[cache.QueryCache](i),
			do.MustInvoke[mq.EventPublisher](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(i, func(i *do.Injector) (service.UploadService, error) {
		return service.NewUploadService(do.MustInvoke[*blob.S3Deps](i), do.MustInvoke[*zap.Logger](i)), nil
	})
	do.Provide(i, func(i *do.Injector) (service.EnrichmentService, error) {
		return service.NewEnrichmentService(
			do.MustInvoke[service.UploadService](i),
			do.MustInvoke[llm.Invoker](i),
			do.MustInvoke[*llm.Prompts](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(i, func(i *do.Injector) (service.CaptureService, error) {
		return service.NewCaptureService(
			do.MustInvoke[service.UploadService](i),
			do.MustInvoke[service.EnrichmentService](i),
			do.MustInvoke[service.ArtifactService](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(i, func(i *do.Injector) (service.AssistantService, error) {
		return service.NewAssistantService(
			do.MustInvoke[service.ArtifactService](i),
			do.MustInvoke[service.NoteService](i),
			do.MustInvoke[llm.Invoker](i),
			do.MustInvoke[*llm.Prompts](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(i, func(i *do.Injector) (*service.ShellService, error) {
		return service.NewShellService(do.MustInvoke[*config.Config](i), router.APIPrefix), nil
	})

	// Router
	do.Provide(i, func(i *do.Injector) (*gin.Engine, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return router.NewRouter(router.RouterDeps{
			Config:            cfg,
			Log:               do.MustInvoke[*zap.Logger](i),
			Verifier:          do.MustInvoke[*middleware.Verifier](i),
			ArtifactHandler:   handler.NewArtifactHandler(do.MustInvoke[service.ArtifactService](i), do.MustInvoke[*httpclient.QRClient](i)),
			NoteHandler:       handler.NewNoteHandler(do.MustInvoke[service.NoteService](i)),
			UploadHandler:     handler.NewUploadHandler(do.MustInvoke[service.UploadService](i), cfg),
			EnrichmentHandler: handler.NewEnrichmentHandler(do.MustInvoke[service.EnrichmentService](i), cfg),
			CaptureHandler:    handler.NewCaptureHandler(do.MustInvoke[service.CaptureService](i), cfg),
			AssistantHandler:  handler.NewAssistantHandler(do.MustInvoke[service.AssistantService](i)),
			ShellHandler:      handler.NewShellHandler(do.MustInvoke[*service.ShellService](i), do.MustInvoke[*httpclient.AuthClient](i)),
		}), nil
	})
}
