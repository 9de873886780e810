package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/detection"
	"github.com/qcdash/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalytics_Dashboard(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("nina", "manager")
	productID := env.createProduct(token, "Valve")
	inspectionID := env.createInspection(token, productID, 40)
	w := env.json(http.MethodPost, "/api/v1/defects", token, map[string]any{
		"inspection_id": inspectionID, "product_id": productID,
		"type": "functional", "severity": "major", "description": "Leaks",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.json(http.MethodGet, "/api/v1/analytics?start_date=2024-13-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid date format", decodeEnvelope(t, w).Error.Message)

	w = env.json(http.MethodGet, "/api/v1/analytics?product=bad", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid product ID", decodeEnvelope(t, w).Error.Message)

	w = env.json(http.MethodGet, "/api/v1/analytics?product="+productID, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var dashboard struct {
		Overall struct {
			TotalInspections  int64  `json:"total_inspections"`
			TotalDefectsFound int64  `json:"total_defects_found"`
			OverallDefectRate string `json:"overall_defect_rate"`
		} `json:"overall_metrics"`
		ByType []struct {
			ID    string `json:"id"`
			Count int64  `json:"count"`
		} `json:"defects_by_type"`
	}
	decodeData(t, w, &dashboard)
	assert.Equal(t, int64(1), dashboard.Overall.TotalInspections)
	assert.Equal(t, int64(1), dashboard.Overall.TotalDefectsFound)
	assert.Equal(t, "2.50", dashboard.Overall.OverallDefectRate)
	require.Len(t, dashboard.ByType, 1)
	assert.Equal(t, "functional", dashboard.ByType[0].ID)

	w = env.json(http.MethodGet, "/api/v1/analytics/inspections?period=month", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Total  int64  `json:"total"`
		Period string `json:"period"`
	}
	decodeData(t, w, &status)
	assert.Equal(t, int64(1), status.Total)
	assert.Equal(t, "month", status.Period)

	w = env.json(http.MethodGet, "/api/v1/analytics/report", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "REPORT_UNAVAILABLE", errorCode(t, w))
}

func TestAlerts_RequireSupervisor(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register("olga", "admin")
	inspector := env.register("pete", "inspector")

	w := env.json(http.MethodGet, "/api/v1/alerts", inspector, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.json(http.MethodGet, "/api/v1/alerts?read=false", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(0), decodeEnvelope(t, w).Meta.Total)

	w = env.json(http.MethodPut, "/api/v1/alerts/read-all", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var count handler.CountData
	decodeData(t, w, &count)
	assert.Equal(t, int64(0), count.Count)

	w = env.json(http.MethodGet, "/api/v1/alerts/"+uuid.NewString(), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.json(http.MethodGet, "/api/v1/alerts/ws", admin, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAI_ModelUnavailable(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("quinn", "inspector")

	w := env.json(http.MethodGet, "/api/v1/ai/model-status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status detection.ModelStatus
	decodeData(t, w, &status)
	assert.False(t, status.Loaded)
	assert.NotEmpty(t, status.Message)

	body, ct := multipartBody(t, nil, pngFile("image", "part.png"))
	w = env.do(request{method: http.MethodPost, path: "/api/v1/ai/detect", body: body, contentType: ct, token: token})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "MODEL_UNAVAILABLE", errorCode(t, w))
}

func TestAI_DetectWithInspection(t *testing.T) {
	env := newTestEnv(t, withDetector(stubDetector{result: detection.Result{
		Class: "scratch", Confidence: 0.85, HasDefect: true, DefectType: "visual",
		Scores: map[string]int{"scratch": 85, "good": 15},
	}}))
	token := env.register("rosa", "inspector")
	productID := env.createProduct(token, "Lens")
	inspectionID := env.createInspection(token, productID, 10)

	body, ct := multipartBody(t, map[string]string{"inspection_id": "bad"}, pngFile("image", "lens.png"))
	w := env.do(request{method: http.MethodPost, path: "/api/v1/ai/detect", body: body, contentType: ct, token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct = multipartBody(t, map[string]string{"inspection_id": inspectionID})
	w = env.do(request{method: http.MethodPost, path: "/api/v1/ai/detect", body: body, contentType: ct, token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct = multipartBody(t, map[string]string{"inspection_id": inspectionID}, pngFile("image", "lens.png"))
	w = env.do(request{method: http.MethodPost, path: "/api/v1/ai/detect", body: body, contentType: ct, token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		ImageURL  *string `json:"image_url"`
		ModelUsed string  `json:"model_used"`
		DefectID  *string `json:"defect_id"`
	}
	decodeData(t, w, &resp)
	require.NotNil(t, resp.ImageURL)
	require.NotNil(t, resp.DefectID)
	assert.Equal(t, "stub", resp.ModelUsed)

	w = env.json(http.MethodGet, "/api/v1/defects/"+*resp.DefectID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var d struct {
		DetectedBy   string  `json:"detected_by"`
		Severity     string  `json:"severity"`
		AIConfidence float64 `json:"ai_confidence"`
	}
	decodeData(t, w, &d)
	assert.Equal(t, "ai", d.DetectedBy)
	assert.Equal(t, "critical", d.Severity)
	assert.InDelta(t, 85.0, d.AIConfidence, 0.01)

	body, ct = multipartBody(t, nil, pngFile("images", "one.png"))
	w = env.do(request{method: http.MethodPost, path: "/api/v1/ai/bulk-analyze", body: body, contentType: ct, token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct = multipartBody(t, map[string]string{"inspection_id": inspectionID},
		pngFile("images", "one.png"),
		formFile{field: "images", filename: "two.bmp", contentType: "image/bmp", data: []byte("BM")})
	w = env.do(request{method: http.MethodPost, path: "/api/v1/ai/bulk-analyze", body: body, contentType: ct, token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var bulk struct {
		Results     []struct{ Filename string } `json:"results"`
		Errors      []struct{ Filename string } `json:"errors"`
		TotalImages int                         `json:"total_images"`
	}
	decodeData(t, w, &bulk)
	assert.Equal(t, 2, bulk.TotalImages)
	assert.Len(t, bulk.Results, 1)
	require.Len(t, bulk.Errors, 1)
	assert.Equal(t, "two.bmp", bulk.Errors[0].Filename)

	w = env.json(http.MethodGet, "/api/v1/ai/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		TotalDetections int64 `json:"total_detections"`
	}
	decodeData(t, w, &stats)
	assert.Equal(t, int64(2), stats.TotalDetections)
}

func TestSystem_RootHealthAndNoRoute(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(request{method: http.MethodGet, path: "/"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Quality Control Dashboard API is running...", w.Body.String())

	w = env.do(request{method: http.MethodGet, path: "/nowhere"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ERR_NOT_FOUND", errorCode(t, w))
}

func TestSystemHandler_Health(t *testing.T) {
	healthy := handler.HealthCheck{Name: "database", Check: func(context.Context) error { return nil }}
	broken := handler.HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}

	run := func(checks ...handler.HealthCheck) *httptest.ResponseRecorder {
		engine := gin.New()
		engine.GET("/health", handler.NewSystemHandler(checks...).Health)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		return w
	}

	w := run(healthy)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"healthy"`)

	w = run(healthy, broken)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"unhealthy"`)
	assert.Contains(t, w.Body.String(), "connection refused")
}
