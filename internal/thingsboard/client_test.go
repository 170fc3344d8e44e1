package thingsboard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"heatmanager-data/internal/domain"
	"heatmanager-data/internal/thingsboard"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_CustomerAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/customer/cust-1/assets", r.URL.Path)
		require.Equal(t, "Bearer tok-123", r.Header.Get("X-Authorization"))
		require.Equal(t, "10000", r.URL.Query().Get("pageSize"))
		require.Equal(t, "0", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": [
				{"id":{"id":"a1","entityType":"ASSET"},"name":"Root","type":"Gesamt","label":"Gesamtanlage"},
				{"id":{"id":"a2","entityType":"ASSET"},"name":"Haus A","type":"Gebäude","label":"Haus A"}
			],
			"totalElements": 2,
			"hasNext": false
		}`))
	}))
	defer srv.Close()

	client := thingsboard.NewClient(srv.URL, zap.NewNop())
	assets, err := client.CustomerAssets(context.Background(), "tok-123", "cust-1")
	require.NoError(t, err)
	require.Len(t, assets, 2)
	require.Equal(t, "a1", assets[0].ID.ID)
	require.Equal(t, "Gesamtanlage", assets[0].Label)
}

func TestClient_CustomerAssets_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := thingsboard.NewClient(srv.URL, zap.NewNop())
	_, err := client.CustomerAssets(context.Background(), "bad-token", "cust-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetch customer assets")
}

func TestClient_DeviceRelations_QueryShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/relations/info", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "a1", q.Get("fromId"))
		require.Equal(t, "ASSET", q.Get("fromType"))
		require.Equal(t, "Contains", q.Get("relationType"))
		require.Equal(t, "DEVICE", q.Get("toType"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"from":{"id":"a1","entityType":"ASSET"},"to":{"id":"d1","entityType":"DEVICE"},"type":"Contains","typeGroup":"COMMON"}
		]`))
	}))
	defer srv.Close()

	client := thingsboard.NewClient(srv.URL, zap.NewNop())
	relations, err := client.DeviceRelations(context.Background(), "tok", "a1")
	require.NoError(t, err)
	require.Len(t, relations, 1)
	require.Equal(t, "d1", relations[0].To.ID)
	require.Equal(t, domain.EntityTypeDevice, relations[0].To.EntityType)
}

func TestClient_Device_EmptyResponseIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := thingsboard.NewClient(srv.URL, zap.NewNop())
	_, err := client.Device(context.Background(), "tok", "d1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty response")
}

func TestClient_AssetAttributes_TypedValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/plugins/telemetry/ASSET/a1/values/attributes", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"key":"operationalMode","value":2,"lastUpdateTs":1693526400000},
			{"key":"childLock","value":true,"lastUpdateTs":1693526400000},
			{"key":"extTempDevice","value":"d9","lastUpdateTs":1693526400000},
			{"key":"schedulerPlan","value":{"mon":["06:00",21]},"lastUpdateTs":1693526400000}
		]`))
	}))
	defer srv.Close()

	client := thingsboard.NewClient(srv.URL, zap.NewNop())
	attrs, err := client.AssetAttributes(context.Background(), "tok", "a1")
	require.NoError(t, err)
	require.Len(t, attrs, 4)

	require.Equal(t, domain.KindLong, attrs[0].Value.Kind)
	require.Equal(t, int64(2), attrs[0].Value.Long)
	require.Equal(t, domain.KindBool, attrs[1].Value.Kind)
	require.Equal(t, domain.KindString, attrs[2].Value.Kind)
	require.Equal(t, domain.KindJSON, attrs[3].Value.Kind)
}

func TestClient_ContextDeadlineCancelsRequest(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	client := thingsboard.NewClient(srv.URL, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.CustomerAssets(ctx, "tok", "cust-1")
	require.Error(t, err)
}
