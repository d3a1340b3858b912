package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/crm_followup/gateway"
	"github.com/BerniceZTT/crm_followup/repository"
	"github.com/BerniceZTT/crm_followup/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDPropagates(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = utils.RequestIDFrom(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "req-42", seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
}

func TestAuthMiddleware(t *testing.T) {
	signer := utils.NewTokenSigner("secret", time.Hour)
	r := gin.New()
	r.GET("/me", AuthMiddleware(signer), func(c *gin.Context) {
		user, err := utils.GetUser(c)
		require.NoError(t, err)
		token, err := gateway.RequestToken(nil).Token(c.Request.Context())
		require.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "token": token})
	})

	token, err := signer.GenerateToken(utils.LoginUser{ID: "u-9", Role: "ADMIN", Username: "Dev"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"u-9"`)
	assert.Contains(t, w.Body.String(), token)

	other, err := utils.NewTokenSigner("other", time.Hour).GenerateToken(utils.LoginUser{ID: "u-9", Role: "ADMIN"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_TOKEN")
}

func TestOperationLoggerRecordsWrites(t *testing.T) {
	store := repository.NewMemoryAuditStore()
	r := gin.New()
	r.Use(RequestID(), OperationLoggerMiddleware(store))
	r.PUT("/api/items/:id", func(c *gin.Context) {
		c.Set(utils.ContextUserKey, &utils.LoginUser{ID: "u-1", Role: "SALES", Username: "Asha"})
		c.JSON(http.StatusConflict, gin.H{"success": false, "code": "INVALID_TRANSITION"})
	})
	r.GET("/api/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	body := bytes.NewBufferString(`{"result":"done","token":"abc","nested":{"password":"p"}}`)
	req := httptest.NewRequest(http.MethodPut, "/api/items/f-1", body)
	req.Header.Set(RequestIDHeader, "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/items/f-1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/health", nil))

	logs := store.OperationLogs()
	require.Len(t, logs, 1)
	log := logs[0]
	assert.Equal(t, "req-1", log.RequestID)
	assert.Equal(t, "/api/items/:id", log.Route)
	assert.Equal(t, "f-1", log.ResourceID)
	assert.Equal(t, "INVALID_TRANSITION", log.ResponseCode)
	assert.Equal(t, http.StatusConflict, log.StatusCode)
	assert.False(t, log.Success)
	assert.Equal(t, "Asha", log.OperatorName)

	reqBody := log.RequestBody.(map[string]interface{})
	assert.Equal(t, "done", reqBody["result"])
	assert.Equal(t, "******", reqBody["token"])
	assert.Equal(t, "******", reqBody["nested"].(map[string]interface{})["password"])
}

func TestOperationLoggerAnonymous(t *testing.T) {
	store := repository.NewMemoryAuditStore()
	r := gin.New()
	r.Use(OperationLoggerMiddleware(store))
	r.DELETE("/api/items/:id", func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "MISSING_TOKEN"})
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/items/f-2", nil))

	logs := store.OperationLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "anonymous", logs[0].OperatorID)
	assert.Equal(t, "MISSING_TOKEN", logs[0].ResponseCode)
	assert.Nil(t, logs[0].RequestBody)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short"))
	long := string(bytes.Repeat([]byte("a"), maxLoggedBody+10))
	assert.Len(t, truncate(long), maxLoggedBody+3)
}
