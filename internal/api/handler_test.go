package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/service"
	"pos-service/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testServer struct {
	router *gin.Engine
	mock   sqlmock.Sqlmock
	auth   *service.AuthService
}

func newTestServer(t *testing.T, pinger Pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(sqlx.NewDb(db, "postgres"))
	guard := service.NewReferentialGuard(st)
	auth := service.NewAuthService(st, "test-secret", time.Hour)

	h := NewHandler(Services{
		Orders:  service.NewOrderService(st, nil, nil, service.OrderOptions{}),
		Catalog: service.NewCatalogService(st, guard),
		Users:   service.NewUserService(st, guard),
		Auth:    auth,
		Store:   pinger,
	})

	router := gin.New()
	h.SetupRoutes(router)

	return &testServer{router: router, mock: mock, auth: auth}
}

func (s *testServer) token(t *testing.T, id int64, role string) string {
	t.Helper()
	tok, err := s.auth.IssueToken(&models.User{ID: id, Username: "u", Role: role})
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	rec, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestReadyWhenStoreDown(t *testing.T) {
	s := newTestServer(t, fakePinger{err: errors.New("refused")})

	rec, _ := s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	rec, _ := s.do(t, http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/orders", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRequiresCredentials(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	rec, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username and password required", body["error"])
}

func TestPlaceOrderUsesCallerAsUser(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(int64(2), "7.5", "card").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(17, time.Now()))
	s.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(int64(17), int64(4), 3, "2.5").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	s.mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock_quantity = stock_quantity - $1")).
		WithArgs(3, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	rec, body := s.do(t, http.MethodPost, "/api/orders", s.token(t, 2, models.RoleCashier), map[string]interface{}{
		"items":          []map[string]interface{}{{"product_id": 4, "quantity": 3, "unit_price": 2.5}},
		"total_amount":   "7.50",
		"payment_method": "card",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(17), body["order_id"])
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestPlaceOrderFailureIsOpaque(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnError(errors.New(`pq: relation "orders" does not exist`))
	s.mock.ExpectRollback()

	rec, body := s.do(t, http.MethodPost, "/api/orders", s.token(t, 2, models.RoleCashier), map[string]interface{}{
		"items":          []map[string]interface{}{{"product_id": 4, "quantity": 1, "unit_price": "1.00"}},
		"total_amount":   "1.00",
		"payment_method": "cash",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]interface{}{"error": "Server error"}, body)
}

func TestPlaceOrderValidationIs400(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	rec, _ := s.do(t, http.MethodPost, "/api/orders", s.token(t, 2, models.RoleCashier), map[string]interface{}{
		"items":          []interface{}{},
		"total_amount":   "0",
		"payment_method": "cash",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestDeleteOrderReportsRestoredItems(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT product_id, quantity FROM order_items")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).AddRow(4, 3))
	s.mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock_quantity = stock_quantity + $1")).
		WithArgs(3, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_items")).WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders")).WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	rec, body := s.do(t, http.MethodDelete, "/api/orders/42", s.token(t, 2, models.RoleCashier), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(42), body["deleted_id"])
	assert.Equal(t, float64(1), body["restored_item_count"])
}

func TestDeleteOrderNotFound(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT product_id, quantity FROM order_items")).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}))
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_items")).WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders")).WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectRollback()

	rec, _ := s.do(t, http.MethodDelete, "/api/orders/42", s.token(t, 2, models.RoleCashier), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCategoryWithDependentsIsConflict(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products WHERE category_id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	rec, body := s.do(t, http.MethodDelete, "/api/categories/3", s.token(t, 1, models.RoleAdmin), nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "has dependents", body["error"])
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), details["count"])
}

func TestUsersRequireAdmin(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	rec, _ := s.do(t, http.MethodGet, "/api/users", s.token(t, 2, models.RoleCashier), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	rec, _ := s.do(t, http.MethodDelete, "/api/users/1", s.token(t, 1, models.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestInvalidIDParam(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	rec, _ := s.do(t, http.MethodGet, "/api/orders/abc", s.token(t, 1, models.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
