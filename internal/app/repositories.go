// Package app assembles the repositories and services selected by
// configuration. Both binaries build their dependencies through it.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/kilosha/todo-api/internal/auth"
	"github.com/kilosha/todo-api/internal/config"
	"github.com/kilosha/todo-api/internal/repository"
	"github.com/kilosha/todo-api/internal/repository/file"
	"github.com/kilosha/todo-api/internal/repository/memory"
	"github.com/kilosha/todo-api/internal/repository/objectstore"
	"github.com/kilosha/todo-api/internal/repository/postgres"
	"github.com/kilosha/todo-api/internal/repository/sqlite"
	"github.com/kilosha/todo-api/internal/service"
	"github.com/kilosha/todo-api/internal/validation"
)

// Repositories is the storage backend chosen by storage.backend.
type Repositories struct {
	Users repository.UserRepository
	Todos repository.TodoRepository
	close func() error
}

func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// OpenRepositories connects the configured backend and creates its schema.
func OpenRepositories(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*Repositories, error) {
	repos, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := repos.Users.Init(ctx); err != nil {
		repos.Close()
		return nil, fmt.Errorf("init user repository: %w", err)
	}
	if err := repos.Todos.Init(ctx); err != nil {
		repos.Close()
		return nil, fmt.Errorf("init todo repository: %w", err)
	}
	return repos, nil
}

func openBackend(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*Repositories, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &Repositories{Users: store.Users(), Todos: store.Todos()}, nil

	case config.BackendFile:
		logger.Infof("using json file %s", cfg.File.Path)
		store := file.NewStore(cfg.File.Path)
		return &Repositories{Users: store.Users(), Todos: store.Todos()}, nil

	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		logger.Infof("using sqlite database %s", cfg.Database.Path)
		return &Repositories{
			Users: sqlite.NewUserRepository(db),
			Todos: sqlite.NewTodoRepository(db),
			close: db.Close,
		}, nil

	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("using postgres database")
		return &Repositories{
			Users: postgres.NewUserRepository(db),
			Todos: postgres.NewTodoRepository(db),
			close: db.Close,
		}, nil

	case config.BackendObjectStore:
		client, err := buildS3Client(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("setup object storage: %w", err)
		}
		logger.Infof("using s3 bucket %s (region %s)", cfg.Objects.Bucket, cfg.Objects.Region)
		store := objectstore.NewStore(client, cfg.Objects.Bucket, cfg.Objects.KeyPrefix)
		return &Repositories{Users: store.Users(), Todos: store.Todos()}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func buildS3Client(ctx context.Context, cfg config.Config) (*s3.Client, error) {
	if strings.TrimSpace(cfg.Objects.Bucket) == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Objects.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Objects.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Objects.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Services bundles the domain services over one set of repositories.
type Services struct {
	Users  service.UserService
	Todos  service.TodoService
	Auth   service.AuthService
	Tokens *auth.TokenIssuer
}

func NewServices(cfg config.Config, repos *Repositories) *Services {
	v := validation.New()
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.TokenTTL())
	return &Services{
		Users:  service.NewUserService(repos.Users, repos.Todos, v, cfg.Auth.BcryptCost),
		Todos:  service.NewTodoService(repos.Todos, repos.Users, v),
		Auth:   service.NewAuthService(repos.Users, tokens, v),
		Tokens: tokens,
	}
}
