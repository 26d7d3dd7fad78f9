package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigfarma/internal/app"
	appctx "sigfarma/internal/core/context"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain/auth"
	"sigfarma/internal/domain/catalogs/product"
	"sigfarma/internal/domain/catalogs/supplier"
	"sigfarma/internal/domain/ledger"
	"sigfarma/internal/infrastructure/http/v1/handlers"
	"sigfarma/internal/infrastructure/storage/memory"
	"sigfarma/pkg/logger"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type apiFixture struct {
	t        *testing.T
	router   http.Handler
	svc      *app.Services
	product  *product.Product
	supplier *supplier.Supplier
}

func newAPIFixture(t *testing.T, mutate ...func(*RouterConfig)) *apiFixture {
	t.Helper()
	store := memory.New()
	svc := app.New(app.MemoryBackend(store), ledger.WithClock(func() time.Time { return testNow }))

	ctx := context.Background()
	sup := supplier.NewSupplier("SUP-1", "Drogueria Central", "900123456")
	require.NoError(t, svc.Suppliers.Create(ctx, sup))
	p := product.NewProduct("IBU-400", "Ibuprofeno 400mg", types.MustMoney("800"), types.NewQuantity(3))
	require.NoError(t, svc.Products.Create(ctx, p))

	cfg := RouterConfig{Services: svc, Logger: logger.NewNop()}
	for _, m := range mutate {
		m(&cfg)
	}
	return &apiFixture{t: t, router: NewRouter(cfg), svc: svc, product: p, supplier: sup}
}

func (f *apiFixture) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type docResponse struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Status string `json:"status"`
	Lines  []struct {
		LineID  string `json:"lineId"`
		BatchID string `json:"batchId"`
	} `json:"lines"`
}

type saleResponse struct {
	docResponse
	Total  decimal.Decimal `json:"total"`
	Change decimal.Decimal `json:"change"`
}

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// receive creates and approves a receiving of qty units and returns the batch id.
func (f *apiFixture) receive(code, expires string, qty int) string {
	f.t.Helper()
	w := f.do(http.MethodPost, "/api/v1/receivings", map[string]any{
		"supplierId":    f.supplier.ID.String(),
		"invoiceNumber": "FAC-" + code,
		"receivedOn":    "2026-03-01",
		"responsible":   "Ana Rojas",
		"lines": []map[string]any{{
			"productId":      f.product.ID.String(),
			"batchCode":      code,
			"expirationDate": expires,
			"quantity":       qty,
			"purchasePrice":  "450",
		}},
	})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	rec := decode[docResponse](f.t, w)
	assert.Equal(f.t, "draft", rec.Status)

	w = f.do(http.MethodPost, "/api/v1/receivings/"+rec.ID+"/approve", nil)
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(f.t, "approved", decode[docResponse](f.t, w).Status)
	return rec.Lines[0].BatchID
}

func (f *apiFixture) saleBody(batchID string, qty int) map[string]any {
	return map[string]any{
		"paymentMethod": "cash",
		"cashAmount":    "10000",
		"lines": []map[string]any{{
			"productId": f.product.ID.String(),
			"batchId":   batchID,
			"quantity":  qty,
			"unitPrice": "800",
		}},
	}
}

func TestRouter_DocumentFlow(t *testing.T) {
	f := newAPIFixture(t)
	batchID := f.receive("L-100", "2030-01-31", 10)

	var saleDoc docResponse
	t.Run("sale", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/sales", f.saleBody(batchID, 4))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		body := decode[saleResponse](t, w)
		saleDoc = body.docResponse

		assert.Regexp(t, `^SL-\d{4}-\d{5}$`, body.Number)
		assert.Equal(t, "completed", body.Status)
		// 4 * 800 = 3200, +19% tax = 3808
		assert.True(t, body.Total.Equal(decimal.RequireFromString("3808")), body.Total.String())
		assert.True(t, body.Change.Equal(decimal.RequireFromString("6192")), body.Change.String())

		w = f.do(http.MethodGet, "/api/v1/sales/"+saleDoc.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, saleDoc.Number, decode[docResponse](t, w).Number)
	})

	t.Run("oversell is rejected", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/sales", f.saleBody(batchID, 7))
		require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
		assert.Equal(t, "INSUFFICIENT_STOCK", decode[errorResponse](t, w).Code)
	})

	t.Run("return", func(t *testing.T) {
		body := map[string]any{
			"saleId":       saleDoc.ID,
			"refundMethod": "cash",
			"lines":        []map[string]any{{"saleLineId": saleDoc.Lines[0].LineID, "quantity": 1}},
		}
		w := f.do(http.MethodPost, "/api/v1/returns", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		ret := decode[docResponse](t, w)
		assert.Regexp(t, `^RT-\d{4}-\d{5}$`, ret.Number)

		body["lines"] = []map[string]any{{"saleLineId": saleDoc.Lines[0].LineID, "quantity": 4}}
		w = f.do(http.MethodPost, "/api/v1/returns", body)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
		assert.Equal(t, "OVER_RETURN", decode[errorResponse](t, w).Code)

		w = f.do(http.MethodGet, "/api/v1/returns?saleId="+saleDoc.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, decode[struct {
			TotalCount int64 `json:"totalCount"`
		}](t, w).TotalCount)
	})

	t.Run("adjustment", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/adjustments", map[string]any{
			"reason": "physical count",
			"lines":  []map[string]any{{"batchId": batchID, "quantity": 5}},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Regexp(t, `^ADJ-\d{4}-\d{5}$`, decode[docResponse](t, w).Number)
	})

	t.Run("ledger is consistent", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/products/"+f.product.ID.String()+"/ledger", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		report := decode[ledger.Report](t, w)
		assert.True(t, report.Consistent)
		assert.Equal(t, types.NewQuantity(5), report.ProductStock)
		assert.False(t, report.LowStock)
	})
}

func TestRouter_BatchesByExpiry(t *testing.T) {
	f := newAPIFixture(t)
	f.receive("SOON", "2026-05-15", 2)
	f.receive("LATE", "2030-01-31", 2)

	w := f.do(http.MethodGet, "/api/v1/batches?expiry=critical", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list := decode[struct {
		Items []struct {
			Code   string `json:"code"`
			Expiry string `json:"expiry"`
		} `json:"items"`
	}](t, w)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "SOON", list.Items[0].Code)
	assert.Equal(t, "critical", list.Items[0].Expiry)

	w = f.do(http.MethodGet, "/api/v1/batches?expiry=stale", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Errors(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown sale", http.MethodGet, "/api/v1/sales/0190f5a4-0000-7000-8000-000000000001", nil, http.StatusNotFound, "NOT_FOUND"},
		{"malformed id", http.MethodGet, "/api/v1/receivings/not-a-uuid", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"empty sale", http.MethodPost, "/api/v1/sales", map[string]any{"paymentMethod": "cash"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad date", http.MethodPost, "/api/v1/receivings", map[string]any{
			"supplierId": f.supplier.ID.String(),
			"receivedOn": "01/03/2026",
			"lines":      []map[string]any{{"productId": f.product.ID.String(), "expirationDate": "2030-01-31"}},
		}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[errorResponse](t, w).Code)
		})
	}
}

func TestRouter_ApproveTwice(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(http.MethodPost, "/api/v1/receivings", map[string]any{
		"supplierId":    f.supplier.ID.String(),
		"invoiceNumber": "FAC-9",
		"receivedOn":    "2026-03-01",
		"responsible":   "Ana Rojas",
		"lines": []map[string]any{{
			"productId": f.product.ID.String(), "batchCode": "L-9",
			"expirationDate": "2030-01-31", "quantity": 3, "purchasePrice": "100",
		}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	recID := decode[docResponse](t, w).ID

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/receivings/"+recID+"/approve", nil).Code)
	w = f.do(http.MethodPost, "/api/v1/receivings/"+recID+"/approve", nil)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "INVALID_STATE", decode[errorResponse](t, w).Code)
}

func TestRouter_Auth(t *testing.T) {
	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	f := newAPIFixture(t, func(cfg *RouterConfig) {
		cfg.JWTValidator = jwtSvc
		cfg.RequireAuth = true
	})

	w := f.do(http.MethodGet, "/api/v1/sales", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decode[errorResponse](t, w).Code)

	token, _, err := jwtSvc.GenerateAccessToken(appctx.UserContext{UserID: "cashier-7"})
	require.NoError(t, err)

	w = f.do(http.MethodPost, "/api/v1/receivings", map[string]any{
		"supplierId":    f.supplier.ID.String(),
		"invoiceNumber": "FAC-1",
		"receivedOn":    "2026-03-01",
		"responsible":   "Ana Rojas",
		"lines": []map[string]any{{
			"productId": f.product.ID.String(), "batchCode": "L-1",
			"expirationDate": "2030-01-31", "quantity": 1, "purchasePrice": "100",
		}},
	}, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "cashier-7", decode[struct {
		CreatedBy string `json:"createdBy"`
	}](t, w).CreatedBy)

	// health stays public
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", nil).Code)
}

func TestRouter_Ready(t *testing.T) {
	healthy := newAPIFixture(t, func(cfg *RouterConfig) {
		cfg.ReadinessChecks = map[string]handlers.ReadinessCheck{
			"store": func(context.Context) error { return nil },
		}
	})
	assert.Equal(t, http.StatusOK, healthy.do(http.MethodGet, "/ready", nil).Code)

	down := newAPIFixture(t, func(cfg *RouterConfig) {
		cfg.ReadinessChecks = map[string]handlers.ReadinessCheck{
			"database": func(context.Context) error { return errors.New("connection refused") },
		}
	})
	w := down.do(http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestRouter_DocumentHistory(t *testing.T) {
	f := newAPIFixture(t)
	batchID := f.receive("L-H", "2030-06-30", 5)

	w := f.do(http.MethodPost, "/api/v1/sales", f.saleBody(batchID, 1))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	saleID := decode[saleResponse](t, w).ID

	w = f.do(http.MethodGet, "/api/v1/documents/"+saleID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	history := decode[struct {
		Items []struct {
			EntityType string `json:"entityType"`
			Action     string `json:"action"`
		} `json:"items"`
	}](t, w)
	require.Len(t, history.Items, 1)
	assert.Equal(t, "sale", history.Items[0].EntityType)
	assert.Equal(t, "create", history.Items[0].Action)

	w = f.do(http.MethodGet, "/api/v1/documents/"+saleID+"/history?limit=-1", nil)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "VALIDATION_ERROR", decode[errorResponse](t, w).Code)
}
