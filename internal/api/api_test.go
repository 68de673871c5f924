package api_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gamedb-api/internal/api"
	"github.com/gamedb-api/internal/config"
	"github.com/gamedb-api/internal/mocks"
	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testServer struct {
	router   *gin.Engine
	services *service.Services
	games    *mocks.MockGameRepository
	covers   *mocks.MockCoverStore
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "8080", WriteTimeout: 5 * time.Second},
		Import: config.ImportConfig{MaxUploadSize: 1024 * 1024},
		Auth: config.AuthConfig{
			JWTSecret: "test-secret-0123456789",
			TokenTTL:  time.Hour,
		},
	}
}

// setupTestServer wires real services over in-memory repositories
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos, games, _, _, _ := mocks.NewRepositories()
	covers := mocks.NewMockCoverStore()
	cfg := testConfig()

	services := service.NewServices(repos, covers, cfg, zerolog.Nop())
	return &testServer{
		router:   api.NewRouter(services, cfg, zerolog.Nop()),
		services: services,
		games:    games,
		covers:   covers,
	}
}

// setupMockRouter swaps in mock import/export services for failure paths
func setupMockRouter(t *testing.T) (*gin.Engine, *mocks.MockImportService, *mocks.MockExportService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos, _, _, _, _ := mocks.NewRepositories()
	cfg := testConfig()
	services := service.NewServices(repos, mocks.NewMockCoverStore(), cfg, zerolog.Nop())

	mockImport := mocks.NewMockImportService()
	mockExport := mocks.NewMockExportService()
	services.Import = mockImport
	services.Export = mockExport

	return api.NewRouter(services, cfg, zerolog.Nop()), mockImport, mockExport
}

// userToken creates an account and returns its bearer token
func (s *testServer) userToken(t *testing.T, username string, staff, superuser bool) (string, string) {
	t.Helper()
	ctx := context.Background()

	user, err := s.services.Auth.CreateUser(ctx, username, "password123", staff, superuser)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	resp, err := s.services.Auth.Login(ctx, &models.LoginRequest{Username: username, Password: "password123"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return resp.Token, user.ID
}

func (s *testServer) do(method, path, token string, body []byte, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	return s.do(method, path, token, body, "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
	}
}

func gamePayload(title string, year, rating int, genre string) map[string]interface{} {
	return map[string]interface{}{
		"title":        title,
		"release_year": year,
		"genre":        genre,
		"user_rating":  rating,
	}
}

func (s *testServer) createGame(t *testing.T, token, title string, year, rating int, genre string) models.Game {
	t.Helper()
	w := s.doJSON("POST", "/v1/games", token, gamePayload(title, year, rating, genre))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var game models.Game
	decode(t, w, &game)
	return game
}

func TestHealthEndpoint(t *testing.T) {
	s := setupTestServer(t)

	w := s.do("GET", "/health", "", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "gamedb-api" {
		t.Errorf("Expected service 'gamedb-api', got %v", response["service"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _, mockExport := setupMockRouter(t)
	mockExport.Counts["games"] = 3
	mockExport.Counts["comments"] = 7

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Database map[string]int `json:"database"`
	}
	decode(t, w, &response)
	if response.Database["games"] != 3 || response.Database["comments"] != 7 || response.Database["users"] != 0 {
		t.Errorf("Unexpected counts: %v", response.Database)
	}
}

func TestCORSHeaders(t *testing.T) {
	s := setupTestServer(t)

	w := s.do("OPTIONS", "/v1/games", "", nil, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 for OPTIONS, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header Access-Control-Allow-Origin: *")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Error("Expected Authorization in Access-Control-Allow-Headers")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Error("Expected DELETE in Access-Control-Allow-Methods")
	}
}

func TestRegisterAndMe(t *testing.T) {
	s := setupTestServer(t)

	w := s.doJSON("POST", "/v1/auth/register", "", map[string]string{
		"username":         "alice",
		"password":         "password123",
		"password_confirm": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var auth models.AuthResponse
	decode(t, w, &auth)
	if auth.Token == "" || auth.User == nil || auth.User.Username != "alice" {
		t.Fatalf("Unexpected register response: %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "password_hash") {
		t.Error("Password hash must not be serialized")
	}

	w = s.do("GET", "/v1/auth/me", auth.Token, nil, "")
	var actor models.Actor
	decode(t, w, &actor)
	if !actor.Authenticated || actor.ID != auth.User.ID {
		t.Errorf("Expected authenticated actor %s, got %+v", auth.User.ID, actor)
	}

	// invalid tokens fall back to anonymous
	w = s.do("GET", "/v1/auth/me", "not-a-token", nil, "")
	decode(t, w, &actor)
	if actor.Authenticated {
		t.Error("Expected anonymous actor for invalid token")
	}
}

func TestRegister_Validation(t *testing.T) {
	s := setupTestServer(t)

	tests := []struct {
		name    string
		payload map[string]string
	}{
		{"missing fields", map[string]string{"username": "bob"}},
		{"password mismatch", map[string]string{"username": "bob", "password": "password123", "password_confirm": "password124"}},
		{"short password", map[string]string{"username": "bob", "password": "short", "password_confirm": "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.doJSON("POST", "/v1/auth/register", "", tt.payload)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := setupTestServer(t)
	s.userToken(t, "alice", false, false)

	w := s.doJSON("POST", "/v1/auth/login", "", map[string]string{"username": "alice", "password": "wrong-password"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestCreateGame_RequiresLogin(t *testing.T) {
	s := setupTestServer(t)

	w := s.doJSON("POST", "/v1/games", "", gamePayload("Chess", 1475, 9, "Board"))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected status 401, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)
	if response["login_url"] != api.LoginURL {
		t.Errorf("Expected login_url %s, got %v", api.LoginURL, response["login_url"])
	}
}

func TestCreateGame_Validation(t *testing.T) {
	s := setupTestServer(t)
	token, _ := s.userToken(t, "alice", false, false)

	w := s.doJSON("POST", "/v1/games", token, gamePayload("", 2020, 11, "Puzzle"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}

	var response struct {
		Error  string `json:"error"`
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}
	decode(t, w, &response)
	fields := map[string]bool{}
	for _, f := range response.Fields {
		fields[f.Field] = true
	}
	if !fields["title"] || !fields["user_rating"] {
		t.Errorf("Expected title and user_rating errors, got %s", w.Body.String())
	}

	w = s.do("POST", "/v1/games", token, []byte("{not json"), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed body, got %d", w.Code)
	}
}

func TestGameLifecycle(t *testing.T) {
	s := setupTestServer(t)
	ownerToken, ownerID := s.userToken(t, "owner", false, false)
	otherToken, _ := s.userToken(t, "other", false, false)

	game := s.createGame(t, ownerToken, "Chess", 1475, 9, "Board")
	if game.OwnerID == nil || *game.OwnerID != ownerID {
		t.Fatalf("Expected owner %s, got %v", ownerID, game.OwnerID)
	}

	// detail reports edit rights per caller
	var detail models.GameDetail
	decode(t, s.do("GET", "/v1/games/"+game.ID, ownerToken, nil, ""), &detail)
	if !detail.CanEdit {
		t.Error("Expected owner to be able to edit")
	}
	decode(t, s.do("GET", "/v1/games/"+game.ID, otherToken, nil, ""), &detail)
	if detail.CanEdit {
		t.Error("Expected other user not to be able to edit")
	}

	w := s.doJSON("PUT", "/v1/games/"+game.ID, otherToken, gamePayload("Chess", 1475, 1, "Board"))
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for non-owner update, got %d", w.Code)
	}

	w = s.doJSON("PUT", "/v1/games/"+game.ID, ownerToken, gamePayload("Chess", 1475, 10, "Strategy"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated models.Game
	decode(t, w, &updated)
	if updated.UserRating != 10 || updated.Genre != "Strategy" {
		t.Errorf("Update not applied: %+v", updated)
	}

	w = s.do("DELETE", "/v1/games/"+game.ID, otherToken, nil, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for non-owner delete, got %d", w.Code)
	}
	w = s.do("DELETE", "/v1/games/"+game.ID, ownerToken, nil, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	w = s.do("GET", "/v1/games/"+game.ID, "", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}
}

func TestCreateGame_MultipartWithCover(t *testing.T) {
	s := setupTestServer(t)
	token, _ := s.userToken(t, "alice", false, false)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("title", "Tetris")
	writer.WriteField("release_year", "1984")
	writer.WriteField("genre", "Puzzle")
	writer.WriteField("user_rating", "8")
	part, _ := writer.CreateFormFile("cover", "tetris.png")
	part.Write(pngBytes)
	writer.Close()

	w := s.do("POST", "/v1/games", token, body.Bytes(), writer.FormDataContentType())
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var game models.Game
	decode(t, w, &game)
	if game.Cover == nil {
		t.Fatal("Expected cover path to be set")
	}
	if _, ok := s.covers.Files[*game.Cover]; !ok {
		t.Errorf("Expected cover %s to be stored", *game.Cover)
	}
}

func TestCreateGame_RejectsNonImageCover(t *testing.T) {
	s := setupTestServer(t)
	token, _ := s.userToken(t, "alice", false, false)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("title", "Tetris")
	writer.WriteField("release_year", "1984")
	part, _ := writer.CreateFormFile("cover", "tetris.png")
	part.Write([]byte("plain text pretending to be an image"))
	writer.Close()

	w := s.do("POST", "/v1/games", token, body.Bytes(), writer.FormDataContentType())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}
	if len(s.covers.Files) != 0 {
		t.Error("Expected no cover to be stored")
	}
}

func TestCreateGame_MultipartEmptyYearIsRequired(t *testing.T) {
	s := setupTestServer(t)
	token, _ := s.userToken(t, "alice", false, false)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("title", "Tetris")
	writer.WriteField("release_year", "")
	writer.WriteField("user_rating", "")
	writer.Close()

	w := s.do("POST", "/v1/games", token, body.Bytes(), writer.FormDataContentType())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "release_year is required") {
		t.Errorf("Expected release_year error, got %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "user_rating") {
		t.Errorf("Empty rating should default, got %s", w.Body.String())
	}
	if len(s.games.All()) != 0 {
		t.Error("Expected no game to be stored")
	}
}

func TestListGames_FilterAndPaginate(t *testing.T) {
	s := setupTestServer(t)
	token, _ := s.userToken(t, "alice", false, false)

	s.createGame(t, token, "Chess", 1475, 9, "Board")
	s.createGame(t, token, "Go", 548, 10, "Board")
	s.createGame(t, token, "Tetris", 1984, 8, "Puzzle")

	var page api.PaginatedResponse[models.Game]
	decode(t, s.do("GET", "/v1/games?genre=board", "", nil, ""), &page)
	if page.Meta.TotalItems != 2 || len(page.Data) != 2 {
		t.Fatalf("Expected 2 board games, got %+v", page.Meta)
	}
	if page.Data[0].Title != "Go" {
		t.Errorf("Expected Go first by rating, got %s", page.Data[0].Title)
	}

	decode(t, s.do("GET", "/v1/games?limit=2&page=2", "", nil, ""), &page)
	if len(page.Data) != 1 || page.Meta.TotalPages != 2 || page.Meta.CurrentPage != 2 {
		t.Errorf("Unexpected second page: %+v", page.Meta)
	}

	var genres struct {
		Genres []string `json:"genres"`
	}
	decode(t, s.do("GET", "/v1/games/genres", "", nil, ""), &genres)
	if len(genres.Genres) != 2 {
		t.Errorf("Expected 2 genres, got %v", genres.Genres)
	}

	var top struct {
		Data []models.Game `json:"data"`
	}
	decode(t, s.do("GET", "/v1/games/top?n=1", "", nil, ""), &top)
	if len(top.Data) != 1 || top.Data[0].Title != "Go" {
		t.Errorf("Expected top game Go, got %+v", top.Data)
	}
	decode(t, s.do("GET", "/v1/games/top?n=abc", "", nil, ""), &top)
	if len(top.Data) != 3 {
		t.Errorf("Expected default top list with 3 games, got %d", len(top.Data))
	}
}

func TestListGames_PageOutOfRange(t *testing.T) {
	s := setupTestServer(t)
	token, _ := s.userToken(t, "alice", false, false)
	s.createGame(t, token, "Chess", 1475, 9, "Board")

	for _, page := range []string{"2", "461168601842738791", "922337203685477580", "9223372036854775807"} {
		w := s.do("GET", "/v1/games?page="+page, "", nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("page=%s: expected status 200, got %d", page, w.Code)
		}
		var resp api.PaginatedResponse[models.Game]
		decode(t, w, &resp)
		if len(resp.Data) != 0 || resp.Meta.TotalItems != 1 {
			t.Errorf("page=%s: expected empty page of 1 item, got %+v", page, resp.Meta)
		}
	}
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	s := setupTestServer(t)
	token, _ := s.userToken(t, "alice", false, false)

	tests := []struct {
		method string
		path   string
		token  string
	}{
		{"GET", "/v1/games/abc", ""},
		{"GET", "/v1/games/abc/comments", ""},
		{"DELETE", "/v1/games/abc", token},
		{"DELETE", "/v1/comments/42", token},
		{"GET", "/v1/imports/42", ""},
	}

	for _, tt := range tests {
		w := s.do(tt.method, tt.path, tt.token, nil, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected status 404, got %d", tt.method, tt.path, w.Code)
		}
	}
}

func TestParseTopN(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", service.DefaultTopGames},
		{"abc", service.DefaultTopGames},
		{"5", 5},
		{"-3", -3},
		{"500", 500},
	}

	for _, tt := range tests {
		if got := api.ParseTopN(tt.raw); got != tt.want {
			t.Errorf("ParseTopN(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestComments(t *testing.T) {
	s := setupTestServer(t)
	ownerToken, _ := s.userToken(t, "owner", false, false)
	authorToken, _ := s.userToken(t, "author", false, false)
	staffToken, _ := s.userToken(t, "mod", true, false)
	otherToken, _ := s.userToken(t, "other", false, false)

	game := s.createGame(t, ownerToken, "Chess", 1475, 9, "Board")
	path := "/v1/games/" + game.ID + "/comments"

	w := s.doJSON("POST", path, "", map[string]string{"text": "hi"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for anonymous comment, got %d", w.Code)
	}

	w = s.doJSON("POST", path, authorToken, map[string]string{"text": "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for blank comment, got %d", w.Code)
	}

	w = s.doJSON("POST", path, authorToken, map[string]string{"text": "  Great game  "})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var comment models.Comment
	decode(t, w, &comment)
	if comment.Text != "Great game" || !comment.IsVisible {
		t.Errorf("Unexpected comment: %+v", comment)
	}

	w = s.doJSON("PUT", "/v1/comments/"+comment.ID, otherToken, map[string]string{"text": "hijacked"})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for other user edit, got %d", w.Code)
	}
	w = s.doJSON("PUT", "/v1/comments/"+comment.ID, authorToken, map[string]string{"text": "Still great"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for author edit, got %d", w.Code)
	}

	// moderation hides the comment from the listing
	w = s.doJSON("PUT", "/v1/comments/"+comment.ID+"/visibility", ownerToken, map[string]bool{"is_visible": false})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for non-staff moderation, got %d", w.Code)
	}
	w = s.doJSON("PUT", "/v1/comments/"+comment.ID+"/visibility", staffToken, map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without is_visible, got %d", w.Code)
	}
	w = s.doJSON("PUT", "/v1/comments/"+comment.ID+"/visibility", staffToken, map[string]bool{"is_visible": false})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for staff moderation, got %d", w.Code)
	}

	var list struct {
		Data []models.Comment `json:"data"`
	}
	decode(t, s.do("GET", path, "", nil, ""), &list)
	if len(list.Data) != 0 {
		t.Errorf("Expected hidden comment to be excluded, got %d", len(list.Data))
	}

	// the game owner may delete comments on their game
	w = s.do("DELETE", "/v1/comments/"+comment.ID, ownerToken, nil, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	w = s.do("DELETE", "/v1/comments/"+comment.ID, ownerToken, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for deleted comment, got %d", w.Code)
	}
}

func TestImport_RawBody(t *testing.T) {
	s := setupTestServer(t)
	staffToken, _ := s.userToken(t, "mod", true, false)
	userToken, _ := s.userToken(t, "alice", false, false)

	doc := []byte(`[{"title":"Chess","release_year":1475,"genre":"Board","user_rating":9},{"genre":"Nameless"}]`)

	w := s.do("POST", "/v1/import", "", doc, "application/json")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for anonymous import, got %d", w.Code)
	}
	w = s.do("POST", "/v1/import", userToken, doc, "application/json")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for non-staff import, got %d", w.Code)
	}

	w = s.do("POST", "/v1/import", staffToken, doc, "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response models.ImportResponse
	decode(t, w, &response)
	if response.Created != 1 || response.Updated != 0 || len(response.Errors) != 1 {
		t.Errorf("Unexpected report: %+v", response)
	}
	if response.RunID == "" || response.Status != models.ImportStatusCompleted {
		t.Errorf("Expected completed run, got %+v", response)
	}

	// the same document again updates by title
	w = s.do("POST", "/v1/import", staffToken, doc, "application/json")
	decode(t, w, &response)
	if response.Created != 0 || response.Updated != 1 {
		t.Errorf("Expected re-import to update, got %+v", response)
	}
}

func TestImport_Multipart(t *testing.T) {
	s := setupTestServer(t)
	staffToken, _ := s.userToken(t, "mod", true, false)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("json_file", "games.json")
	part.Write([]byte(`[{"title":"Go","release_year":"548","user_rating":12}]`))
	writer.Close()

	w := s.do("POST", "/v1/import", staffToken, body.Bytes(), writer.FormDataContentType())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	games := s.games.All()
	if len(games) != 1 || games[0].ReleaseYear != 548 || games[0].UserRating != 10 {
		t.Errorf("Unexpected imported games: %+v", games)
	}
	if games[0].OwnerID != nil {
		t.Error("Imported games must have no owner")
	}

	empty := &bytes.Buffer{}
	writer = multipart.NewWriter(empty)
	writer.WriteField("other", "x")
	writer.Close()
	w = s.do("POST", "/v1/import", staffToken, empty.Bytes(), writer.FormDataContentType())
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without json_file, got %d", w.Code)
	}
}

func TestImport_InvalidDocument(t *testing.T) {
	s := setupTestServer(t)
	staffToken, _ := s.userToken(t, "mod", true, false)

	tests := []struct {
		name string
		doc  string
	}{
		{"not json", "{oops"},
		{"object instead of array", `{"title":"Chess"}`},
		{"trailing data", `[] []`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do("POST", "/v1/import", staffToken, []byte(tt.doc), "application/json")
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
	if len(s.games.All()) != 0 {
		t.Error("Expected no games after rejected documents")
	}
}

func TestImport_TooLarge(t *testing.T) {
	s := setupTestServer(t)
	staffToken, _ := s.userToken(t, "mod", true, false)

	doc := "[" + strings.Repeat(" ", 1024*1024) + "]"
	w := s.do("POST", "/v1/import", staffToken, []byte(doc), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for oversize body, got %d", w.Code)
	}
}

func TestIdempotencyKey(t *testing.T) {
	s := setupTestServer(t)
	staffToken, _ := s.userToken(t, "mod", true, false)

	send := func(doc string) models.ImportResponse {
		req := httptest.NewRequest("POST", "/v1/import", strings.NewReader(doc))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+staffToken)
		req.Header.Set("Idempotency-Key", "test-key-123")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		var response models.ImportResponse
		decode(t, w, &response)
		return response
	}

	first := send(`[{"title":"Chess","release_year":1475}]`)
	second := send(`[{"title":"Go","release_year":548}]`)

	if first.RunID != second.RunID {
		t.Errorf("Expected same run for reused key, got %s and %s", first.RunID, second.RunID)
	}
	if len(s.games.All()) != 1 {
		t.Errorf("Expected second request not to import, got %d games", len(s.games.All()))
	}
}

func TestGetImportRunAndErrors(t *testing.T) {
	s := setupTestServer(t)
	staffToken, _ := s.userToken(t, "mod", true, false)

	w := s.do("POST", "/v1/import", staffToken, []byte(`[1, {"genre":"x"}, {"title":"Chess","release_year":1475}]`), "application/json")
	var response models.ImportResponse
	decode(t, w, &response)

	var run models.ImportRun
	decode(t, s.do("GET", "/v1/imports/"+response.RunID, "", nil, ""), &run)
	if run.CreatedCount != 1 || len(run.Errors) != 2 {
		t.Errorf("Unexpected run: %+v", run)
	}

	var errs struct {
		RunID      string   `json:"run_id"`
		ErrorCount int      `json:"error_count"`
		Errors     []string `json:"errors"`
	}
	decode(t, s.do("GET", "/v1/imports/"+response.RunID+"/errors", "", nil, ""), &errs)
	if errs.ErrorCount != 2 || errs.RunID != response.RunID {
		t.Errorf("Unexpected error report: %+v", errs)
	}

	w = s.do("GET", "/v1/imports/"+response.RunID+"/errors?format=csv", "", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Expected text/csv, got %s", ct)
	}
	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(records) != 3 || records[0][0] != "position" || records[1][0] != "0" {
		t.Errorf("Unexpected CSV: %v", records)
	}

	w = s.do("GET", "/v1/imports/"+response.RunID+"/errors?format=xml", "", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown format, got %d", w.Code)
	}
}

func TestGetImportRun_NotFound(t *testing.T) {
	router, _, _ := setupMockRouter(t)

	req := httptest.NewRequest("GET", "/v1/imports/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetImportErrors_EmptyErrors(t *testing.T) {
	router, mockImport, _ := setupMockRouter(t)
	mockImport.Runs["clean"] = &models.ImportRun{ID: "clean", Status: models.ImportStatusCompleted}

	req := httptest.NewRequest("GET", "/v1/imports/clean/errors", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"errors":[]`) {
		t.Errorf("Expected empty errors array, got %s", w.Body.String())
	}
}

func TestImport_StorageFailure(t *testing.T) {
	router, mockImport, _ := setupMockRouter(t)
	mockImport.RunImportFunc = func(ctx context.Context, doc []byte, actor models.Actor, key string) (*models.ImportRun, error) {
		return nil, errors.New("connection reset")
	}

	req := httptest.NewRequest("POST", "/v1/import", strings.NewReader("[]"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection reset") {
		t.Error("Internal error details must not leak")
	}
	if len(mockImport.Documents) != 1 || string(mockImport.Documents[0]) != "[]" {
		t.Errorf("Expected the raw body to reach the service, got %q", mockImport.Documents)
	}
}

func TestExport(t *testing.T) {
	s := setupTestServer(t)
	token, ownerID := s.userToken(t, "alice", false, false)
	s.createGame(t, token, "Chess", 1475, 9, "Board")
	s.createGame(t, token, "Go", 548, 10, "Board")

	w := s.do("GET", "/v1/export", "", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="games_export.json"` {
		t.Errorf("Unexpected Content-Disposition: %s", cd)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Expected application/json, got %s", ct)
	}

	var records []models.GameExport
	decode(t, w, &records)
	if len(records) != 2 || records[0].Title != "Chess" || records[1].Title != "Go" {
		t.Fatalf("Unexpected export: %+v", records)
	}
	if records[0].OwnerID == nil || *records[0].OwnerID != ownerID {
		t.Errorf("Expected owner %s, got %v", ownerID, records[0].OwnerID)
	}
}

func TestExport_Failure(t *testing.T) {
	router, _, mockExport := setupMockRouter(t)
	mockExport.WriteErr = errors.New("database unavailable")

	req := httptest.NewRequest("GET", "/v1/export", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	if w.Header().Get("Content-Disposition") != "" {
		t.Error("Failed export must not be sent as an attachment")
	}
}

func TestDeleteUser(t *testing.T) {
	s := setupTestServer(t)
	aliceToken, aliceID := s.userToken(t, "alice", false, false)
	bobToken, _ := s.userToken(t, "bob", false, false)

	game := s.createGame(t, aliceToken, "Chess", 1475, 9, "Board")

	w := s.do("DELETE", "/v1/users/"+aliceID, bobToken, nil, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}

	w = s.do("DELETE", "/v1/users/"+aliceID, aliceToken, nil, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d: %s", w.Code, w.Body.String())
	}

	var detail models.GameDetail
	decode(t, s.do("GET", "/v1/games/"+game.ID, "", nil, ""), &detail)
	if detail.Game.OwnerID != nil {
		t.Error("Expected game to survive without an owner")
	}
}
