// Command seed fills the configured storage backend with sample users and
// todos. Users that already exist are skipped.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kilosha/todo-api/internal/apperror"
	"github.com/kilosha/todo-api/internal/app"
	"github.com/kilosha/todo-api/internal/config"
)

type sampleUser struct {
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Gender   string   `json:"gender"`
	Age      int      `json:"age"`
	todos    []string // titles; a leading "+" marks the todo completed
}

var samples = []sampleUser{
	{Name: "Marry", Username: "marry22", Email: "example@example.com", Gender: "female", Age: 25,
		todos: []string{"Buy milk", "+Buy sausages"}},
	{Name: "Liza", Username: "liza", Email: "liza@mail.com", Gender: "female", Age: 20},
	{Name: "Pasha", Username: "pasha", Email: "php@mail.com", Gender: "male", Age: 31,
		todos: []string{"Buy a car"}},
}

func main() {
	password := flag.String("password", "Qwerty1!", "password given to every sample user")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logger := cfg.NewLogger()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx := context.Background()
	repos, err := app.OpenRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open storage: %v", err)
	}
	defer repos.Close()

	if err := seed(ctx, app.NewServices(cfg, repos), *password, logger); err != nil {
		logger.Fatalf("seed: %v", err)
	}
	logger.Info("seed complete")
}

func seed(ctx context.Context, services *app.Services, password string, logger *logrus.Logger) error {
	for _, sample := range samples {
		sample.Password = password
		body, err := json.Marshal(sample)
		if err != nil {
			return fmt.Errorf("encode %s: %w", sample.Username, err)
		}

		user, err := services.Users.Register(ctx, body)
		if err != nil {
			if apperror.IsConflict(err) {
				logger.WithField("username", sample.Username).Warn("user exists, skipping")
				continue
			}
			return fmt.Errorf("register %s: %w", sample.Username, err)
		}
		logger.WithField("username", user.Username).Info("user created")

		for _, title := range sample.todos {
			completed := title[0] == '+'
			if completed {
				title = title[1:]
			}
			todoBody, err := json.Marshal(map[string]string{"title": title})
			if err != nil {
				return fmt.Errorf("encode todo: %w", err)
			}
			todo, err := services.Todos.Create(ctx, user.ID, todoBody)
			if err != nil {
				return fmt.Errorf("create todo for %s: %w", user.Username, err)
			}
			if completed {
				if _, err := services.Todos.ToggleCompleted(ctx, user.ID, todo.ID); err != nil {
					return fmt.Errorf("complete todo %s: %w", todo.ID, err)
				}
			}
		}
	}
	return nil
}
