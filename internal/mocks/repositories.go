package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/repository"
)

// Verify interface compliance
var (
	_ repository.GameRepository      = (*MockGameRepository)(nil)
	_ repository.CommentRepository   = (*MockCommentRepository)(nil)
	_ repository.UserRepository      = (*MockUserRepository)(nil)
	_ repository.ImportRunRepository = (*MockImportRunRepository)(nil)
)

// NewRepositories wires a full set of in-memory repositories
func NewRepositories() (*repository.Repositories, *MockGameRepository, *MockCommentRepository, *MockUserRepository, *MockImportRunRepository) {
	games := NewMockGameRepository()
	comments := NewMockCommentRepository()
	users := NewMockUserRepository()
	runs := NewMockImportRunRepository()
	return &repository.Repositories{
		Game:      games,
		Comment:   comments,
		User:      users,
		ImportRun: runs,
	}, games, comments, users, runs
}

// MockGameRepository is an in-memory GameRepository that keeps insertion order
type MockGameRepository struct {
	mu    sync.RWMutex
	games []*models.Game

	CreateFunc  func(ctx context.Context, game *models.Game) error
	UpdateFunc  func(ctx context.Context, game *models.Game) error
	CreateCalls  int
	UpdateCalls  int
	RankingCalls int
}

func NewMockGameRepository() *MockGameRepository {
	return &MockGameRepository{}
}

func copyGame(g *models.Game) *models.Game {
	c := *g
	if g.Cover != nil {
		v := *g.Cover
		c.Cover = &v
	}
	if g.OwnerID != nil {
		v := *g.OwnerID
		c.OwnerID = &v
	}
	return &c
}

func (m *MockGameRepository) Create(ctx context.Context, game *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, game); err != nil {
			return err
		}
	}
	m.games = append(m.games, copyGame(game))
	return nil
}

func (m *MockGameRepository) Update(ctx context.Context, game *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateFunc != nil {
		if err := m.UpdateFunc(ctx, game); err != nil {
			return err
		}
	}
	game.UpdatedAt = time.Now().UTC()
	for i, g := range m.games {
		if g.ID == game.ID {
			m.games[i] = copyGame(game)
			return nil
		}
	}
	return nil
}

// UpdateRanking shares UpdateFunc with Update
func (m *MockGameRepository) UpdateRanking(ctx context.Context, game *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RankingCalls++
	if m.UpdateFunc != nil {
		if err := m.UpdateFunc(ctx, game); err != nil {
			return err
		}
	}
	game.UpdatedAt = time.Now().UTC()
	for _, g := range m.games {
		if g.ID == game.ID {
			g.ReleaseYear = game.ReleaseYear
			g.Genre = game.Genre
			g.UserRating = game.UserRating
			g.UpdatedAt = game.UpdatedAt
			return nil
		}
	}
	return nil
}

func (m *MockGameRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, g := range m.games {
		if g.ID == id {
			m.games = append(m.games[:i], m.games[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockGameRepository) GetByID(ctx context.Context, id string) (*models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.games {
		if g.ID == id {
			return copyGame(g), nil
		}
	}
	return nil, nil
}

func (m *MockGameRepository) FindByTitle(ctx context.Context, title string) (*models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.games {
		if g.Title == title {
			return copyGame(g), nil
		}
	}
	return nil, nil
}

func (m *MockGameRepository) List(ctx context.Context, genre string) ([]*models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	games := make([]*models.Game, 0, len(m.games))
	for _, g := range m.games {
		if genre != "" && !strings.EqualFold(g.Genre, genre) {
			continue
		}
		games = append(games, copyGame(g))
	}
	sortByRanking(games)
	return games, nil
}

func (m *MockGameRepository) Top(ctx context.Context, n int) ([]*models.Game, error) {
	games, _ := m.List(ctx, "")
	if n < len(games) {
		games = games[:n]
	}
	return games, nil
}

func sortByRanking(games []*models.Game) {
	sort.SliceStable(games, func(i, j int) bool {
		a, b := games[i], games[j]
		if a.UserRating != b.UserRating {
			return a.UserRating > b.UserRating
		}
		if a.ReleaseYear != b.ReleaseYear {
			return a.ReleaseYear > b.ReleaseYear
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
}

func (m *MockGameRepository) Genres(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	genres := make([]string, 0)
	for _, g := range m.games {
		if g.Genre == "" || seen[g.Genre] {
			continue
		}
		seen[g.Genre] = true
		genres = append(genres, g.Genre)
	}
	sort.Strings(genres)
	return genres, nil
}

func (m *MockGameRepository) ClearOwner(ctx context.Context, ownerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, g := range m.games {
		if g.OwnerID != nil && *g.OwnerID == ownerID {
			g.OwnerID = nil
			n++
		}
	}
	return n, nil
}

func (m *MockGameRepository) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games), nil
}

func (m *MockGameRepository) StreamAll(ctx context.Context, callback func(*models.Game) error) error {
	m.mu.RLock()
	snapshot := make([]*models.Game, 0, len(m.games))
	for _, g := range m.games {
		snapshot = append(snapshot, copyGame(g))
	}
	m.mu.RUnlock()

	for _, g := range snapshot {
		if err := callback(g); err != nil {
			return err
		}
	}
	return nil
}

// All returns a snapshot of stored games in insertion order
func (m *MockGameRepository) All() []*models.Game {
	var games []*models.Game
	m.StreamAll(context.Background(), func(g *models.Game) error {
		games = append(games, g)
		return nil
	})
	return games
}

// MockCommentRepository is an in-memory CommentRepository
type MockCommentRepository struct {
	mu       sync.RWMutex
	comments []*models.Comment

	CreateError error
}

func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{}
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	c := *comment
	m.comments = append(m.comments, &c)
	return nil
}

func (m *MockCommentRepository) Update(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment.UpdatedAt = time.Now().UTC()
	for _, c := range m.comments {
		if c.ID == comment.ID {
			c.Text = comment.Text
			c.IsVisible = comment.IsVisible
			c.UpdatedAt = comment.UpdatedAt
			return nil
		}
	}
	return nil
}

func (m *MockCommentRepository) Delete(ctx context.Context, id string) error {
	m.deleteWhere(func(c *models.Comment) bool { return c.ID == id })
	return nil
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.comments {
		if c.ID == id {
			cc := *c
			return &cc, nil
		}
	}
	return nil, nil
}

func (m *MockCommentRepository) ListByGame(ctx context.Context, gameID string, visibleOnly bool) ([]*models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	comments := make([]*models.Comment, 0)
	for _, c := range m.comments {
		if c.GameID != gameID || (visibleOnly && !c.IsVisible) {
			continue
		}
		cc := *c
		comments = append(comments, &cc)
	}
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID > comments[j].ID
	})
	return comments, nil
}

func (m *MockCommentRepository) DeleteByGame(ctx context.Context, gameID string) (int64, error) {
	return m.deleteWhere(func(c *models.Comment) bool { return c.GameID == gameID }), nil
}

func (m *MockCommentRepository) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	return m.deleteWhere(func(c *models.Comment) bool { return c.AuthorID == authorID }), nil
}

func (m *MockCommentRepository) deleteWhere(match func(*models.Comment) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.comments[:0]
	var n int64
	for _, c := range m.comments {
		if match(c) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	m.comments = kept
	return n
}

func (m *MockCommentRepository) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.comments), nil
}

// MockUserRepository is an in-memory UserRepository
type MockUserRepository struct {
	mu    sync.RWMutex
	Users map[string]*models.User

	InsertError error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*models.User),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	for _, u := range m.Users {
		if u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	u := *user
	m.Users[user.ID] = &u
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.Users[id]; ok {
		uu := *u
		return &uu, nil
	}
	return nil, nil
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.Users {
		if u.Username == username {
			uu := *u
			return &uu, nil
		}
	}
	return nil, nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Users, id)
	return nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Users), nil
}

// MockImportRunRepository is an in-memory ImportRunRepository
type MockImportRunRepository struct {
	mu     sync.RWMutex
	Runs   map[string]*models.ImportRun
	Errors map[string][]string
}

func NewMockImportRunRepository() *MockImportRunRepository {
	return &MockImportRunRepository{
		Runs:   make(map[string]*models.ImportRun),
		Errors: make(map[string][]string),
	}
}

func (m *MockImportRunRepository) Create(ctx context.Context, run *models.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.IdempotencyKey != "" {
		for _, r := range m.Runs {
			if r.IdempotencyKey == run.IdempotencyKey {
				return repository.ErrDuplicate
			}
		}
	}
	r := *run
	r.Errors = nil
	m.Runs[run.ID] = &r
	return nil
}

func (m *MockImportRunRepository) GetByID(ctx context.Context, id string) (*models.ImportRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.Runs[id]; ok {
		rr := *r
		return &rr, nil
	}
	return nil, nil
}

func (m *MockImportRunRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.Runs {
		if r.IdempotencyKey == key {
			rr := *r
			return &rr, nil
		}
	}
	return nil, nil
}

func (m *MockImportRunRepository) AddErrors(ctx context.Context, runID string, messages []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[runID] = append(m.Errors[runID], messages...)
	return nil
}

func (m *MockImportRunRepository) GetErrors(ctx context.Context, runID string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	errs := append([]string{}, m.Errors[runID]...)
	if limit > 0 && limit < len(errs) {
		errs = errs[:limit]
	}
	return errs, nil
}
