package amocrm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("demo", "test-token", 5*time.Second, zap.NewNop())
	client.baseURL = server.URL
	return client
}

func TestGetLeadDecodesNumericFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leads/100", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		io.WriteString(w, `{"id": 100, "price": 5000, "status_id": 143, "created_at": 1700000000}`)
	})

	lead, err := client.GetLead(context.Background(), "100")
	assert.NoError(t, err)
	assert.Equal(t, "100", lead.ID.String())
	assert.Equal(t, float64(5000), lead.Price.Float64())
	assert.Equal(t, int64(143), lead.StatusID.Int64())
}

func TestGetLeadWithRelationsPassesWithParam(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "contacts,companies", r.URL.Query().Get("with"))
		io.WriteString(w, `{"id": "100", "_embedded": {"contacts": [{"id": 55}], "companies": [{"id": 9}]}}`)
	})

	lead, err := client.GetLeadWithRelations(context.Background(), "100")
	assert.NoError(t, err)
	assert.NotNil(t, lead.Embedded)
	assert.Equal(t, "55", lead.Embedded.Contacts[0].ID.String())
	assert.Equal(t, "9", lead.Embedded.Companies[0].ID.String())
}

func TestGetPipelinesUnwrapsEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leads/pipelines", r.URL.Path)
		io.WriteString(w, `{"_embedded": {"pipelines": [
			{"id": 1, "name": "Воронка", "_embedded": {"statuses": [{"id": 143, "name": "Новая заявка"}]}}
		]}}`)
	})

	pipelines, err := client.GetPipelines(context.Background())
	assert.NoError(t, err)
	assert.Len(t, pipelines, 1)
	assert.Equal(t, int64(1), pipelines[0].ID.Int64())
	assert.Equal(t, "Новая заявка", pipelines[0].Embedded.Statuses[0].Name)
}

func TestUpdateLeadPriceSendsPatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/leads/100", r.URL.Path)

		var body map[string]float64
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(9000), body["price"])
		io.WriteString(w, `{"id": 100}`)
	})

	err := client.UpdateLeadPrice(context.Background(), "100", 9000)
	assert.NoError(t, err)
}

func TestUpdateLeadPriceNonOKStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"detail": "no scope"}`)
	})

	err := client.UpdateLeadPrice(context.Background(), "100", 9000)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestClientRequiresAccessToken(t *testing.T) {
	client := NewClient("demo", "", 5*time.Second, zap.NewNop())

	_, err := client.GetLead(context.Background(), "100")
	assert.Error(t, err)
	assert.ErrorContains(t, err, "access token")

	err = client.UpdateLeadPrice(context.Background(), "100", 9000)
	assert.ErrorContains(t, err, "access token")
}

func TestFlexStringDecoding(t *testing.T) {
	var payload struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}
	err := json.Unmarshal([]byte(`{"a": "123", "b": 456.5, "c": null}`), &payload)
	assert.NoError(t, err)
	assert.Equal(t, int64(123), payload.A.Int64())
	assert.Equal(t, 456.5, payload.B.Float64())
	assert.Equal(t, "", payload.C.String())
}

func TestRegistryResolve(t *testing.T) {
	registry := NewRegistry("default-acc", "token", 5*time.Second, zap.NewNop())

	client, err := registry.Resolve("other-acc")
	assert.NoError(t, err)
	assert.Equal(t, "other-acc", client.Subdomain())

	again, err := registry.Resolve("other-acc")
	assert.NoError(t, err)
	assert.Same(t, client, again)
}

func TestRegistryFallsBackToDefault(t *testing.T) {
	registry := NewRegistry("default-acc", "token", 5*time.Second, zap.NewNop())

	client, err := registry.Resolve("")
	assert.NoError(t, err)
	assert.Equal(t, "default-acc", client.Subdomain())
}

func TestRegistryErrorsWithoutSubdomain(t *testing.T) {
	registry := NewRegistry("", "token", 5*time.Second, zap.NewNop())

	_, err := registry.Resolve("")
	assert.Error(t, err)
}
