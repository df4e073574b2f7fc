// Package file persists users and todos in a single JSON document on disk.
// Every operation reads the whole file, applies the change and rewrites it.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kilosha/todo-api/internal/domain"
	"github.com/kilosha/todo-api/internal/repository"
	"github.com/kilosha/todo-api/internal/repository/memory"
)

type userRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	IsMan        bool      `json:"is_man"`
	Age          int       `json:"age"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type todoRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"is_completed"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type document struct {
	Users []userRecord `json:"users"`
	Todos []todoRecord `json:"todos"`
}

// Store serializes access to the JSON file within this process. Other
// processes writing the same file are not coordinated.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() repository.UserRepository {
	return &UserRepository{store: s}
}

func (s *Store) Todos() repository.TodoRepository {
	return &TodoRepository{store: s}
}

// Init creates the file with empty collections when it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if _, err := os.Stat(s.path); err == nil {
		_, err := s.load()
		return err
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat data file: %w", err)
	}
	return s.save(&memory.Tables{})
}

// read runs fn against a freshly loaded snapshot.
func (s *Store) read(fn func(t *memory.Tables) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables, err := s.load()
	if err != nil {
		return err
	}
	return fn(tables)
}

// write runs fn against a freshly loaded snapshot and persists the result
// when fn succeeds.
func (s *Store) write(fn func(t *memory.Tables, now time.Time) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(tables, s.now()); err != nil {
		return err
	}
	return s.save(tables)
}

func (s *Store) load() (*memory.Tables, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &memory.Tables{}, nil
		}
		return nil, fmt.Errorf("read data file: %w", err)
	}
	if len(raw) == 0 {
		return &memory.Tables{}, nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode data file: %w", err)
	}

	tables := &memory.Tables{
		Users: make([]domain.User, len(doc.Users)),
		Todos: make([]domain.Todo, len(doc.Todos)),
	}
	for i, rec := range doc.Users {
		tables.Users[i] = domain.User{
			ID:           rec.ID,
			Name:         rec.Name,
			Username:     rec.Username,
			Email:        rec.Email,
			PasswordHash: rec.PasswordHash,
			IsMan:        rec.IsMan,
			Age:          rec.Age,
			CreatedAt:    rec.CreatedAt,
			UpdatedAt:    rec.UpdatedAt,
		}
	}
	for i, rec := range doc.Todos {
		tables.Todos[i] = domain.Todo{
			ID:          rec.ID,
			Title:       rec.Title,
			IsCompleted: rec.IsCompleted,
			UserID:      rec.UserID,
			CreatedAt:   rec.CreatedAt,
			UpdatedAt:   rec.UpdatedAt,
		}
	}
	return tables, nil
}

func (s *Store) save(tables *memory.Tables) error {
	doc := document{
		Users: make([]userRecord, len(tables.Users)),
		Todos: make([]todoRecord, len(tables.Todos)),
	}
	for i, u := range tables.Users {
		doc.Users[i] = userRecord{
			ID:           u.ID,
			Name:         u.Name,
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			IsMan:        u.IsMan,
			Age:          u.Age,
			CreatedAt:    u.CreatedAt,
			UpdatedAt:    u.UpdatedAt,
		}
	}
	for i, td := range tables.Todos {
		doc.Todos[i] = todoRecord{
			ID:          td.ID,
			Title:       td.Title,
			IsCompleted: td.IsCompleted,
			UserID:      td.UserID,
			CreatedAt:   td.CreatedAt,
			UpdatedAt:   td.UpdatedAt,
		}
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp data file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp data file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp data file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}
