package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gamedb-api/internal/config"
	"github.com/gamedb-api/internal/mocks"
	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	owner     = models.Actor{ID: "owner-1", Authenticated: true}
	stranger  = models.Actor{ID: "stranger-1", Authenticated: true}
	staff     = models.Actor{ID: "staff-1", IsStaff: true, Authenticated: true}
	superuser = models.Actor{ID: "root-1", IsSuperuser: true, Authenticated: true}
	anonymous = models.Anonymous()
)

// pngBytes is the smallest payload sniffed as image/png
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// stepClock advances one second per reading so timestamps are distinct and ordered
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type testHarness struct {
	services *service.Services
	games    *mocks.MockGameRepository
	comments *mocks.MockCommentRepository
	users    *mocks.MockUserRepository
	runs     *mocks.MockImportRunRepository
	covers   *mocks.MockCoverStore
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	repos, games, comments, users, runs := mocks.NewRepositories()
	covers := mocks.NewMockCoverStore()

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret: "test-secret-0123456789",
			TokenTTL:  time.Hour,
		},
	}

	clock := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	services := service.NewServices(repos, covers, cfg, zerolog.Nop(), service.WithClock(clock.Now))

	return &testHarness{
		services: services,
		games:    games,
		comments: comments,
		users:    users,
		runs:     runs,
		covers:   covers,
	}
}

func intPtr(v int) *int { return &v }

func gameInput(title string, year, rating int, genre string) *models.GameInput {
	return &models.GameInput{
		Title:       title,
		ReleaseYear: intPtr(year),
		Genre:       genre,
		UserRating:  intPtr(rating),
	}
}

// createGame stores a game owned by actor
func (h *testHarness) createGame(t *testing.T, actor models.Actor, title string, year, rating int, genre string) *models.Game {
	t.Helper()
	game, err := h.services.Catalog.CreateGame(context.Background(), gameInput(title, year, rating, genre), nil, actor)
	require.NoError(t, err)
	return game
}

func (h *testHarness) addComment(t *testing.T, gameID, text string, actor models.Actor) *models.Comment {
	t.Helper()
	comment, err := h.services.Comment.AddComment(context.Background(), gameID, text, actor)
	require.NoError(t, err)
	return comment
}

func titles(games []*models.Game) []string {
	out := make([]string, len(games))
	for i, g := range games {
		out[i] = g.Title
	}
	return out
}
