package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducts_CRUD(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("ivy", "inspector")

	id := env.createProduct(token, "Widget")

	w := env.json(http.MethodPost, "/api/v1/products", token, map[string]any{"name": "widget", "category": "Hardware"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "PRODUCT_NAME_EXISTS", errorCode(t, w))

	w = env.json(http.MethodGet, "/api/v1/products/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.json(http.MethodGet, "/api/v1/products/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.json(http.MethodGet, "/api/v1/products/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.json(http.MethodGet, "/api/v1/products?category=Hardware", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	e := decodeEnvelope(t, w)
	require.NotNil(t, e.Meta)
	assert.Equal(t, int64(1), e.Meta.Total)

	w = env.json(http.MethodDelete, "/api/v1/products/"+id, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProducts_UploadImage(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("jack", "manager")
	id := env.createProduct(token, "Gear")

	body, ct := multipartBody(t, nil, pngFile("image", "gear.png"))
	w := env.do(request{method: http.MethodPost, path: "/api/v1/products/" + id + "/image", body: body, contentType: ct, token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, env.storage.count())

	body, ct = multipartBody(t, nil, formFile{field: "image", filename: "notes.txt", contentType: "text/plain", data: []byte("hi")})
	w = env.do(request{method: http.MethodPost, path: "/api/v1/products/" + id + "/image", body: body, contentType: ct, token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_IMAGE", errorCode(t, w))

	body, ct = multipartBody(t, map[string]string{"other": "x"})
	w = env.do(request{method: http.MethodPost, path: "/api/v1/products/" + id + "/image", body: body, contentType: ct, token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInspections_Flow(t *testing.T) {
	env := newTestEnv(t)
	manager := env.register("kate", "manager")
	productID := env.createProduct(manager, "Bolt")

	w := env.json(http.MethodPost, "/api/v1/inspections", manager, map[string]any{
		"product_id": uuid.NewString(), "batch_number": "B-1", "total_inspected": 10,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	inspectionID := env.createInspection(manager, productID, 20)

	body, ct := multipartBody(t, nil, pngFile("images", "a.png"), pngFile("images", "b.png"))
	w = env.do(request{method: http.MethodPost, path: "/api/v1/inspections/" + inspectionID + "/images", body: body, contentType: ct, token: manager})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.json(http.MethodPost, "/api/v1/defects", manager, map[string]any{
		"inspection_id": inspectionID, "product_id": productID,
		"type": "visual", "severity": "major", "description": "Scratch on head",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.json(http.MethodPut, "/api/v1/inspections/"+inspectionID+"/complete", manager, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var completed struct {
		Status       string  `json:"status"`
		DefectsFound int     `json:"defects_found"`
		DefectRate   float64 `json:"defect_rate"`
	}
	decodeData(t, w, &completed)
	assert.Equal(t, "failed", completed.Status)
	assert.Equal(t, 1, completed.DefectsFound)
	assert.InDelta(t, 5.0, completed.DefectRate, 0.001)

	w = env.json(http.MethodGet, "/api/v1/inspections/"+inspectionID, manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Inspection struct {
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"inspection"`
		Defects []json.RawMessage `json:"defects"`
	}
	decodeData(t, w, &detail)
	assert.Len(t, detail.Inspection.Images, 2)
	assert.Len(t, detail.Defects, 1)

	w = env.json(http.MethodGet, "/api/v1/inspections?status=failed&date=not-a-date", manager, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.json(http.MethodGet, "/api/v1/inspections?status=failed", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodeEnvelope(t, w).Meta.Total)

	w = env.json(http.MethodGet, "/api/v1/inspections/export?format=csv", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "B-100")

	w = env.json(http.MethodGet, "/api/v1/inspections/export?format=pdf", manager, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FORMAT", errorCode(t, w))

	w = env.json(http.MethodDelete, "/api/v1/inspections/"+inspectionID, manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.json(http.MethodGet, "/api/v1/defects", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), decodeEnvelope(t, w).Meta.Total)
}

func TestDefects_MultipartCreateAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("liam", "inspector")
	productID := env.createProduct(token, "Panel")
	inspectionID := env.createInspection(token, productID, 50)

	body, ct := multipartBody(t, map[string]string{
		"inspection_id": inspectionID,
		"product_id":    productID,
		"type":          "dimensional",
		"severity":      "critical",
		"description":   "Width out of tolerance",
		"measurements":  `{"expected":10,"actual":10.4,"unit":"mm"}`,
	}, pngFile("image", "panel.png"))
	w := env.do(request{method: http.MethodPost, path: "/api/v1/defects", body: body, contentType: ct, token: token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID           string `json:"id"`
		ImageURL     string `json:"image_url"`
		Measurements struct {
			Actual float64 `json:"actual"`
			Unit   string  `json:"unit"`
		} `json:"measurements"`
		RootCause string `json:"root_cause"`
		Status    string `json:"status"`
	}
	decodeData(t, w, &created)
	assert.NotEmpty(t, created.ImageURL)
	assert.Equal(t, 10.4, created.Measurements.Actual)
	assert.Equal(t, "mm", created.Measurements.Unit)
	assert.Equal(t, "unknown", created.RootCause)
	assert.Equal(t, "open", created.Status)

	body, ct = multipartBody(t, map[string]string{
		"inspection_id": inspectionID, "product_id": productID,
		"type": "visual", "severity": "minor", "description": "x", "measurements": "{broken",
	})
	w = env.do(request{method: http.MethodPost, path: "/api/v1/defects", body: body, contentType: ct, token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct = multipartBody(t, map[string]string{"status": "investigating"})
	w = env.do(request{method: http.MethodPut, path: "/api/v1/defects/" + created.ID, body: body, contentType: ct, token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.json(http.MethodPut, "/api/v1/defects/"+created.ID+"/resolve", token, map[string]string{"resolution_notes": "Recalibrated"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resolved struct {
		Status          string  `json:"status"`
		ResolvedAt      *string `json:"resolved_at"`
		ResolutionNotes string  `json:"resolution_notes"`
	}
	decodeData(t, w, &resolved)
	assert.Equal(t, "resolved", resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, "Recalibrated", resolved.ResolutionNotes)

	w = env.json(http.MethodDelete, "/api/v1/defects/"+created.ID, token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDefects_ListStatsAndBulk(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("mia", "manager")
	productID := env.createProduct(token, "Hinge")
	inspectionID := env.createInspection(token, productID, 100)

	w := env.json(http.MethodPost, "/api/v1/defects/bulk", token, map[string]any{
		"defects": []map[string]any{
			{"inspection_id": inspectionID, "product_id": productID, "type": "visual", "severity": "minor", "description": "Dent"},
			{"inspection_id": uuid.NewString(), "product_id": productID, "type": "visual", "severity": "minor", "description": "Lost"},
			{"inspection_id": inspectionID, "product_id": productID, "type": "material", "severity": "critical", "description": "Crack"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var bulk struct {
		CreatedCount int `json:"created_count"`
		ErrorCount   int `json:"error_count"`
		Errors       []struct {
			Index int    `json:"index"`
			Error string `json:"error"`
		} `json:"errors"`
	}
	decodeData(t, w, &bulk)
	assert.Equal(t, 2, bulk.CreatedCount)
	assert.Equal(t, 1, bulk.ErrorCount)
	require.Len(t, bulk.Errors, 1)
	assert.Equal(t, 1, bulk.Errors[0].Index)

	w = env.json(http.MethodPost, "/api/v1/defects/bulk", token, map[string]any{"defects": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.json(http.MethodGet, "/api/v1/defects?severity=critical&inspection="+inspectionID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodeEnvelope(t, w).Meta.Total)

	w = env.json(http.MethodGet, "/api/v1/defects?severity=catastrophic", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.json(http.MethodGet, "/api/v1/defects?product=nope", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.json(http.MethodGet, "/api/v1/defects?start_date=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.json(http.MethodGet, "/api/v1/defects/stats?product="+productID, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats struct {
		BySeverity []struct {
			ID    string `json:"id"`
			Count int64  `json:"count"`
		} `json:"by_severity"`
		Trend []struct {
			Count    int64 `json:"count"`
			Critical int64 `json:"critical"`
		} `json:"trend"`
	}
	decodeData(t, w, &stats)
	assert.Len(t, stats.BySeverity, 2)
	require.Len(t, stats.Trend, 1)
	assert.Equal(t, int64(2), stats.Trend[0].Count)
	assert.Equal(t, int64(1), stats.Trend[0].Critical)

	w = env.json(http.MethodGet, "/api/v1/defects/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}
