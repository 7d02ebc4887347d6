package handlers_test

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"cafewifi/internal/config"
	"cafewifi/internal/database"
	"cafewifi/internal/forms"
	"cafewifi/internal/handlers"
	"cafewifi/internal/middleware"
	"cafewifi/internal/models"
	"cafewifi/internal/repositories"
	"cafewifi/internal/services"
	"cafewifi/internal/sessions"
	"cafewifi/internal/views"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// setupApp sets up a Fiber app for testing with in-memory SQLite and all handlers/services.
func setupApp(t *testing.T, policy services.DeletePolicy) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(database.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	cafeService := services.NewCafeService(repositories.NewGORMCafeRepository(db), nil)
	authService := services.NewAuthService(repositories.NewGORMUserRepository(db), "test_jwt_secret", bcrypt.MinCost)
	sm := sessions.NewManager(sessions.Config{Expiration: time.Hour})
	validate := forms.NewValidator()

	app := fiber.New(fiber.Config{Views: views.New()})
	handlers.NewAPIHandler(cafeService, authService, validate, policy).RegisterRoutes(app.Group("/api/v1"))
	pages := app.Group("", middleware.LoadUser(sm, authService))
	handlers.NewCafeHandler(cafeService, sm, validate, policy).RegisterRoutes(pages)
	handlers.NewAuthHandler(authService, sm, validate).RegisterRoutes(pages)

	return app, db
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// browser keeps cookies between requests.
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, app *fiber.App) *browser {
	return &browser{t: t, app: app, cookies: map[string]*http.Cookie{}}
}

// do sends req and returns the status, Location header and body.
func (b *browser) do(req *http.Request) (int, string, string) {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	resp, err := b.app.Test(req, -1)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Value == "" || c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp.StatusCode, resp.Header.Get("Location"), string(body)
}

func (b *browser) get(path string) (int, string, string) {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) (int, string, string) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func cafeForm(name string) url.Values {
	return url.Values{
		"cafe":     {name},
		"location": {"https://goo.gl/maps/" + name},
		"open":     {"8AM"},
		"close":    {"5:30PM"},
		"coffee":   {"4"},
		"wifi":     {"3"},
		"power":    {"0"},
	}
}

func registerForm(email, name string) url.Values {
	return url.Values{"email": {email}, "password": {"password123"}, "user_name": {name}}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func openPolicy() services.DeletePolicy {
	return services.DeletePolicy{Mode: config.DeleteOpen}
}

func TestHomeAndForms(t *testing.T) {
	app, _ := setupApp(t, openPolicy())
	b := newBrowser(t, app)

	for _, path := range []string{"/", "/add", "/cafes", "/login", "/register"} {
		status, _, body := b.get(path)
		assert.Equal(t, http.StatusOK, status, path)
		assert.Contains(t, body, "<html", path)
	}

	_, _, body := b.get("/add")
	assert.Contains(t, body, `name="coffee"`)
	assert.Contains(t, body, "☕☕☕☕☕")
	assert.Contains(t, body, "💪💪💪💪💪")
	assert.Contains(t, body, "🔌🔌🔌🔌🔌")
}

func TestAddCafe(t *testing.T) {
	app, db := setupApp(t, openPolicy())
	b := newBrowser(t, app)

	status, location, _ := b.post("/add", cafeForm("Lighthaus"))
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/cafes", location)
	assert.Equal(t, int64(1), countRows(t, db, &models.Cafe{}))

	status, _, body := b.get("/cafes")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Lighthaus")
	assert.Contains(t, body, "https://goo.gl/maps/Lighthaus")
	assert.Contains(t, body, "☕☕☕☕")
}

func TestAddCafe_ValidationErrors(t *testing.T) {
	app, db := setupApp(t, openPolicy())
	b := newBrowser(t, app)

	status, _, body := b.post("/add", url.Values{"cafe": {"Lighthaus"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "This field is required.")
	assert.Contains(t, body, `value="Lighthaus"`)

	form := cafeForm("Lighthaus")
	form.Set("location", "not a url")
	status, _, body = b.post("/add", form)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Invalid URL.")

	form = cafeForm("Lighthaus")
	form.Set("coffee", "9")
	status, _, body = b.post("/add", form)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Not a valid choice.")

	assert.Equal(t, int64(0), countRows(t, db, &models.Cafe{}))
}

func TestAddCafe_DuplicateName(t *testing.T) {
	app, db := setupApp(t, openPolicy())
	b := newBrowser(t, app)

	status, _, _ := b.post("/add", cafeForm("Lighthaus"))
	require.Equal(t, http.StatusFound, status)

	status, _, body := b.post("/add", cafeForm("Lighthaus"))
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body, "already exists")
	assert.Equal(t, int64(1), countRows(t, db, &models.Cafe{}))
}

func TestListCafes_InsertionOrder(t *testing.T) {
	app, _ := setupApp(t, openPolicy())
	b := newBrowser(t, app)

	names := []string{"Zebra", "Alpha", "Mango"}
	for _, name := range names {
		status, _, _ := b.post("/add", cafeForm(name))
		require.Equal(t, http.StatusFound, status)
	}

	_, _, body := b.get("/cafes")
	z, a, m := strings.Index(body, "Zebra"), strings.Index(body, "Alpha"), strings.Index(body, "Mango")
	assert.True(t, z >= 0 && z < a && a < m, "cafes listed out of insertion order")
}

func TestDeleteCafe_OpenPolicy(t *testing.T) {
	app, db := setupApp(t, openPolicy())
	b := newBrowser(t, app)

	b.post("/add", cafeForm("Lighthaus"))
	b.post("/add", cafeForm("Esters"))

	var cafe models.Cafe
	require.NoError(t, db.First(&cafe, "name = ?", "Lighthaus").Error)

	path := fmt.Sprintf("/delete?id=%d", cafe.ID)
	status, location, _ := b.get(path)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/cafes", location)

	_, _, body := b.get("/cafes")
	assert.NotContains(t, body, "Lighthaus")
	assert.Contains(t, body, "Esters")

	// deleting twice is a no-op
	status, location, _ = b.get(path)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/cafes", location)
	assert.Equal(t, int64(1), countRows(t, db, &models.Cafe{}))

	status, location, _ = b.get("/delete?id=abc")
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/cafes", location)
}

func TestDeleteCafe_AdminPolicy(t *testing.T) {
	app, db := setupApp(t, services.DeletePolicy{Mode: config.DeleteAdmin})

	admin := newBrowser(t, app)
	status, _, _ := admin.post("/register", registerForm("admin@example.com", "admin"))
	require.Equal(t, http.StatusFound, status)

	admin.post("/add", cafeForm("Lighthaus"))
	var cafe models.Cafe
	require.NoError(t, db.First(&cafe, "name = ?", "Lighthaus").Error)
	path := fmt.Sprintf("/delete?id=%d", cafe.ID)

	// anonymous visitors are sent to the login page
	anon := newBrowser(t, app)
	status, location, _ := anon.get(path)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login", location)
	_, _, body := anon.get("/login")
	assert.Contains(t, body, "Please log in to delete cafes.")

	// other accounts are refused
	other := newBrowser(t, app)
	status, _, _ = other.post("/register", registerForm("other@example.com", "other"))
	require.Equal(t, http.StatusFound, status)
	status, location, _ = other.get(path)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/cafes", location)
	_, _, body = other.get("/cafes")
	assert.Contains(t, body, "Only the admin can delete cafes.")
	assert.NotContains(t, body, path)
	assert.Equal(t, int64(1), countRows(t, db, &models.Cafe{}))

	// the admin sees the delete link and may use it
	_, _, body = admin.get("/cafes")
	assert.Contains(t, body, path)
	status, location, _ = admin.get(path)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/cafes", location)
	assert.Equal(t, int64(0), countRows(t, db, &models.Cafe{}))
}

func TestDeleteCafe_UserPolicy(t *testing.T) {
	app, db := setupApp(t, services.DeletePolicy{Mode: config.DeleteUser})

	b := newBrowser(t, app)
	b.post("/add", cafeForm("Lighthaus"))
	var cafe models.Cafe
	require.NoError(t, db.First(&cafe, "name = ?", "Lighthaus").Error)
	path := fmt.Sprintf("/delete?id=%d", cafe.ID)

	status, location, _ := b.get(path)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login", location)
	assert.Equal(t, int64(1), countRows(t, db, &models.Cafe{}))

	// any account may delete, not just the first one
	first := newBrowser(t, app)
	first.post("/register", registerForm("first@example.com", "first"))
	status, _, _ = b.post("/register", registerForm("second@example.com", "second"))
	require.Equal(t, http.StatusFound, status)

	status, location, _ = b.get(path)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/cafes", location)
	assert.Equal(t, int64(0), countRows(t, db, &models.Cafe{}))
}

func TestRegister(t *testing.T) {
	app, db := setupApp(t, openPolicy())
	b := newBrowser(t, app)

	status, location, _ := b.post("/register", registerForm("ada@example.com", "ada"))
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/cafes", location)

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "ada@example.com").Error)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))

	// the new account is logged in
	_, _, body := b.get("/cafes")
	assert.Contains(t, body, "Hi, ada")
}

func TestRegister_EmailInUse(t *testing.T) {
	app, db := setupApp(t, openPolicy())

	first := newBrowser(t, app)
	status, _, _ := first.post("/register", registerForm("ada@example.com", "ada"))
	require.Equal(t, http.StatusFound, status)

	second := newBrowser(t, app)
	status, location, _ := second.post("/register", registerForm("ada@example.com", "impostor"))
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login", location)
	assert.Equal(t, int64(1), countRows(t, db, &models.User{}))

	_, _, body := second.get("/login")
	assert.Contains(t, body, "already signed up with that email")
	assert.NotContains(t, body, "Hi, impostor")
}

func TestRegister_ValidationErrors(t *testing.T) {
	app, db := setupApp(t, openPolicy())
	b := newBrowser(t, app)

	status, _, body := b.post("/register", url.Values{"email": {"ada@example.com"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "This field is required.")
	assert.Equal(t, int64(0), countRows(t, db, &models.User{}))
}

func TestLoginLogout(t *testing.T) {
	app, _ := setupApp(t, openPolicy())

	signup := newBrowser(t, app)
	status, _, _ := signup.post("/register", registerForm("ada@example.com", "ada"))
	require.Equal(t, http.StatusFound, status)

	b := newBrowser(t, app)

	status, _, body := b.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "Password incorrect, please try again.")

	status, _, body = b.post("/login", url.Values{"email": {"nobody@example.com"}, "password": {"password123"}})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "That email does not exist, please try again.")

	_, _, body = b.get("/cafes")
	assert.NotContains(t, body, "Hi, ada")

	status, location, _ := b.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"password123"}})
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/cafes", location)
	_, _, body = b.get("/cafes")
	assert.Contains(t, body, "Hi, ada")

	status, location, _ = b.get("/logout")
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/cafes", location)
	_, _, body = b.get("/cafes")
	assert.NotContains(t, body, "Hi, ada")

	// logging out while anonymous still lands on the listing
	status, location, _ = b.get("/logout")
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/cafes", location)
}

func TestLogin_ValidationErrors(t *testing.T) {
	app, _ := setupApp(t, openPolicy())
	b := newBrowser(t, app)

	status, _, body := b.post("/login", url.Values{"email": {"ada@example.com"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "This field is required.")
}

func TestAPI(t *testing.T) {
	app, db := setupApp(t, services.DeletePolicy{Mode: config.DeleteUser})
	b := newBrowser(t, app)

	b.post("/register", registerForm("ada@example.com", "ada"))
	b.post("/add", cafeForm("Lighthaus"))
	var cafe models.Cafe
	require.NoError(t, db.First(&cafe, "name = ?", "Lighthaus").Error)

	// --- list ---
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/cafes", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var cafes []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cafes))
	resp.Body.Close()
	require.Len(t, cafes, 1)
	assert.Equal(t, "Lighthaus", cafes[0]["name"])
	assert.Equal(t, "☕☕☕☕", cafes[0]["coffee"])
	assert.Equal(t, float64(4), cafes[0]["coffee_rating"])

	// --- get one ---
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/cafes/%d", cafe.ID), nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var one map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&one))
	resp.Body.Close()
	assert.Equal(t, "Lighthaus", one["name"])
	assert.Equal(t, "✘", one["power"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/cafes/%d", cafe.ID+100), nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/cafes/abc", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// --- token ---
	tokenReq := func(password string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token",
			strings.NewReader(`{"email":"ada@example.com","password":"`+password+`"}`))
		req.Header.Set("Content-Type", "application/json")
		return req
	}
	resp, err = app.Test(tokenReq("wrong"), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(tokenReq("password123"), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tokenResp map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokenResp))
	resp.Body.Close()
	token := tokenResp["token"]
	require.NotEmpty(t, token)

	// --- delete ---
	deleteReq := func(id uint, bearer string) *http.Request {
		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/cafes/%d", id), nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		return req
	}
	resp, err = app.Test(deleteReq(cafe.ID, ""), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(deleteReq(cafe.ID, token), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(deleteReq(cafe.ID, token), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
