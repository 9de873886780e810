package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	alertapp "github.com/qcdash/backend/internal/application/alert"
	analyticsapp "github.com/qcdash/backend/internal/application/analytics"
	catalogapp "github.com/qcdash/backend/internal/application/catalog"
	defectapp "github.com/qcdash/backend/internal/application/defect"
	detectionapp "github.com/qcdash/backend/internal/application/detection"
	identityapp "github.com/qcdash/backend/internal/application/identity"
	inspectionapp "github.com/qcdash/backend/internal/application/inspection"
	"github.com/qcdash/backend/internal/application/upload"
	"github.com/qcdash/backend/internal/domain/detection"
	"github.com/qcdash/backend/internal/infrastructure/auth"
	"github.com/qcdash/backend/internal/infrastructure/cache"
	"github.com/qcdash/backend/internal/infrastructure/config"
	"github.com/qcdash/backend/internal/infrastructure/persistence"
	"github.com/qcdash/backend/internal/infrastructure/persistence/models"
	"github.com/qcdash/backend/internal/interfaces/http/handler"
	"github.com/qcdash/backend/internal/interfaces/http/middleware"
	"github.com/qcdash/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// envelope mirrors dto.Response with raw data for per-test decoding
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	} `json:"meta"`
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (s *memStorage) Upload(_ context.Context, folder string, img upload.Image) (upload.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := folder + "/" + img.Filename
	s.objects[key] = img.Data
	return upload.Stored{URL: "https://cdn.test/" + key, Key: key}, nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStorage) Configured() bool { return true }

func (s *memStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type nopMailer struct{}

func (nopMailer) Send(context.Context, string, string, string) error { return nil }

type stubDetector struct {
	result detection.Result
}

func (d stubDetector) Detect(context.Context, []byte, string) (detection.Result, error) {
	return d.result, nil
}

func (d stubDetector) Status(context.Context) detection.ModelStatus {
	return detection.ModelStatus{Loaded: true, Status: "ready", Model: "stub"}
}

func (d stubDetector) Name() string { return "stub" }

type testEnv struct {
	t       *testing.T
	engine  *gin.Engine
	db      *gorm.DB
	storage *memStorage
}

type envOption func(*envConfig)

type envConfig struct {
	detector detection.Detector
}

func withDetector(d detection.Detector) envOption {
	return func(c *envConfig) { c.detector = d }
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// newTestEnv wires the real services over SQLite behind the full API router
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := envConfig{detector: detection.UnavailableDetector{Reason: "No AI model endpoint configured"}}
	for _, opt := range opts {
		opt(&cfg)
	}

	db := openTestDB(t)
	log := zap.NewNop()
	storage := newMemStorage()
	rules := upload.DefaultRules()

	users := persistence.NewGormUserRepository(db)
	products := persistence.NewGormProductRepository(db)
	inspections := persistence.NewGormInspectionRepository(db)
	defects := persistence.NewGormDefectRepository(db)
	alerts := persistence.NewGormAlertRepository(db)
	facts := persistence.NewGormAnalyticsRepository(db)

	jwtService := auth.NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "qc-test", Expiration: time.Hour})
	blacklist := auth.NewInMemoryTokenBlacklist()
	memCache := cache.NewInMemoryCache(time.Minute)
	t.Cleanup(func() { _ = memCache.Close() })

	defectService := defectapp.NewService(defects, inspections, products, facts, storage, rules, nil, log)
	h := router.Handlers{
		Auth:       handler.NewAuthHandler(identityapp.NewAuthService(users, jwtService, blacklist, nopMailer{}, "http://localhost:3000", log), config.CookieConfig{HTTPOnly: true}),
		User:       handler.NewUserHandler(identityapp.NewUserService(users, blacklist, jwtService, log)),
		Product:    handler.NewProductHandler(catalogapp.NewProductService(products, storage, rules, nil, log)),
		Inspection: handler.NewInspectionHandler(inspectionapp.NewService(inspections, defects, products, users, storage, rules, nil, log).
			WithTransactionScope(persistence.NewGormInspectionTransactionScope(db))),
		Defect:     handler.NewDefectHandler(defectService),
		Alert:      handler.NewAlertHandler(alertapp.NewAlertService(alerts, users, nil, log), nil),
		Analytics:  handler.NewAnalyticsHandler(analyticsapp.NewService(facts, products, users, memCache, time.Minute, nil, log)),
		AI:         handler.NewAIHandler(detectionapp.NewService(cfg.detector, storage, rules, inspections, defectService, facts, log)),
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	system := handler.NewSystemHandler()
	engine.GET("/", system.Root)
	engine.GET("/health", system.Health)
	engine.NoRoute(system.NoRoute)

	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.TokenBlacklist = blacklist
	r := router.NewRouter(engine).Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg))
	router.RegisterAPI(r, h)
	r.Setup()

	return &testEnv{t: t, engine: engine, db: db, storage: storage}
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	token       string
}

func (e *testEnv) do(req request) *httptest.ResponseRecorder {
	e.t.Helper()
	r := httptest.NewRequest(req.method, req.path, req.body)
	if req.contentType != "" {
		r.Header.Set("Content-Type", req.contentType)
	}
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, r)
	return w
}

func (e *testEnv) json(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	return e.do(request{method: method, path: path, body: reader, contentType: "application/json", token: token})
}

// register creates a user and returns its token
func (e *testEnv) register(name, role string) string {
	e.t.Helper()
	w := e.json(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": name, "email": name + "@example.com", "password": "secret123", "role": role,
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	decodeData(e.t, w, &res)
	return res.Token
}

// createProduct returns the new product's ID
func (e *testEnv) createProduct(token, name string) string {
	e.t.Helper()
	w := e.json(http.MethodPost, "/api/v1/products", token, map[string]any{"name": name, "category": "Hardware"})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return dataID(e.t, w)
}

// createInspection returns the new inspection's ID
func (e *testEnv) createInspection(token, productID string, total int) string {
	e.t.Helper()
	w := e.json(http.MethodPost, "/api/v1/inspections", token, map[string]any{
		"product_id": productID, "batch_number": "B-100", "total_inspected": total,
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return dataID(e.t, w)
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func dataID(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var res struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &res)
	require.NotEmpty(t, res.ID)
	return res.ID
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.Code
}

type formFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// multipartBody builds a form with the given fields and files
func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngFile(field, name string) formFile {
	return formFile{field: field, filename: name, contentType: "image/png", data: []byte("\x89PNG\r\n\x1a\nfake")}
}
