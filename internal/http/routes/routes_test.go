package routes_test

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/pessoa-api/internal/http/middleware"
	"github.com/aanand-mishra/pessoa-api/internal/http/routes"
	"github.com/aanand-mishra/pessoa-api/internal/service"
	"github.com/aanand-mishra/pessoa-api/internal/storage/sqlite"
	"github.com/aanand-mishra/pessoa-api/internal/types"
	"github.com/aanand-mishra/pessoa-api/internal/utils/response"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "pessoas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(routes.New(service.NewPersonService(store, log), log))
	t.Cleanup(srv.Close)

	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	assert.NotEmpty(t, resp.Header.Get(middleware.HeaderRequestID), "%s %s", method, url)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(v))
}

func Test_CreateThenDeleteTwice(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api", `{"nome":"Ana"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created types.Person
	decode(t, resp, &created)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Ana", created.Name)

	resp = do(t, http.MethodDelete, srv.URL+"/api/1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/api/1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body response.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "Pessoa not found with ID: 1", body.Message)
	assert.Equal(t, "/api/1", body.Path)
	assert.Equal(t, resp.Header.Get(middleware.HeaderRequestID), body.RequestID)
}

func Test_FullLifecycle(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api", `{"nome":"Bia","dt_nascimento":"10/10/2000","ativo":true}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got types.Person
	decode(t, resp, &got)
	assert.Equal(t, "10/10/2000", got.BirthDate.String())

	resp = do(t, http.MethodPut, srv.URL+"/api/1", `{"nome":"Beatriz","dt_nascimento":"10/10/2000","ativo":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &got)
	assert.Equal(t, "Beatriz", got.Name)

	resp = do(t, http.MethodPut, srv.URL+"/api", `{"id":1,"nome":"Bea","ativo":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPut, srv.URL+"/api/1", `{"id":2,"nome":"Bea"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPut, srv.URL+"/api/42", `{"nome":"Ninguem"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func Test_ListOnlyActiveSortedAndPaged(t *testing.T) {
	srv := newServer(t)

	for i := 12; i >= 1; i-- {
		body := fmt.Sprintf(`{"nome":"P%02d","ativo":true}`, i)
		require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api", body).StatusCode)
	}
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api", `{"nome":"A-inativo","ativo":false}`).StatusCode)

	var first types.Page[types.Person]
	decode(t, do(t, http.MethodGet, srv.URL+"/api", ""), &first)
	assert.Equal(t, int64(12), first.TotalElements)
	assert.Equal(t, 2, first.TotalPages)
	require.Len(t, first.Content, 10)
	assert.Equal(t, "P01", first.Content[0].Name)
	assert.Equal(t, "P10", first.Content[9].Name)

	var second types.Page[types.Person]
	decode(t, do(t, http.MethodGet, srv.URL+"/api/listar?pagina=1", ""), &second)
	require.Len(t, second.Content, 2)
	assert.Equal(t, "P11", second.Content[0].Name)
	assert.True(t, second.Last)

	var negative types.Page[types.Person]
	decode(t, do(t, http.MethodGet, srv.URL+"/api?pagina=-5", ""), &negative)
	assert.Equal(t, 0, negative.Number)

	resp := do(t, http.MethodGet, srv.URL+"/api?pagina=x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func Test_ListFarPages(t *testing.T) {
	srv := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api", `{"nome":"Ana","ativo":true}`).StatusCode)

	for _, pagina := range []string{"922337203685477581", "4611686018427387904", "9223372036854775807"} {
		t.Run(pagina, func(t *testing.T) {
			resp := do(t, http.MethodGet, srv.URL+"/api?pagina="+pagina, "")
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var page types.Page[types.Person]
			decode(t, resp, &page)
			assert.Empty(t, page.Content)
			assert.True(t, page.Last)
			assert.Equal(t, int64(1), page.TotalElements)
		})
	}

	resp := do(t, http.MethodGet, srv.URL+"/api?pagina=99999999999999999999", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body response.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "Type Mismatch", body.ErrorTitle)
}

func Test_ValidationErrorsOverHTTP(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		expectedTitle  string
	}{
		{name: "blank_name", method: http.MethodPost, path: "/api", body: `{"nome":"  "}`, expectedStatus: http.StatusBadRequest, expectedTitle: "Validation Error"},
		{name: "id_on_create", method: http.MethodPost, path: "/api", body: `{"id":3,"nome":"Ana"}`, expectedStatus: http.StatusBadRequest, expectedTitle: "Validation Error"},
		{name: "malformed", method: http.MethodPost, path: "/api", body: `{`, expectedStatus: http.StatusBadRequest, expectedTitle: "Malformed JSON"},
		{name: "zero_id_get", method: http.MethodGet, path: "/api/0", expectedStatus: http.StatusBadRequest, expectedTitle: "Validation Error"},
		{name: "negative_id_delete", method: http.MethodDelete, path: "/api/-1", expectedStatus: http.StatusBadRequest, expectedTitle: "Validation Error"},
		{name: "update_without_id", method: http.MethodPut, path: "/api", body: `{"nome":"Ana"}`, expectedStatus: http.StatusBadRequest, expectedTitle: "Validation Error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, tc.method, srv.URL+tc.path, tc.body)
			assert.Equal(t, tc.expectedStatus, resp.StatusCode)

			var body response.ErrorResponse
			decode(t, resp, &body)
			assert.Equal(t, tc.expectedTitle, body.ErrorTitle)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func Test_UnroutedRequestsGetJSONErrors(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		expectedTitle  string
		expectedAllow  string
	}{
		{name: "unknown_path", method: http.MethodGet, path: "/nada", expectedStatus: http.StatusNotFound, expectedTitle: "Not Found"},
		{name: "nested_unknown_path", method: http.MethodGet, path: "/api/1/extra", expectedStatus: http.StatusNotFound, expectedTitle: "Not Found"},
		{name: "patch_person", method: http.MethodPatch, path: "/api/1", expectedStatus: http.StatusMethodNotAllowed, expectedTitle: "Method Not Allowed", expectedAllow: "GET, PUT, DELETE"},
		{name: "post_person", method: http.MethodPost, path: "/api/1", expectedStatus: http.StatusMethodNotAllowed, expectedTitle: "Method Not Allowed", expectedAllow: "GET, PUT, DELETE"},
		{name: "delete_collection", method: http.MethodDelete, path: "/api", expectedStatus: http.StatusMethodNotAllowed, expectedTitle: "Method Not Allowed", expectedAllow: "GET, POST, PUT"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, tc.method, srv.URL+tc.path, "")
			assert.Equal(t, tc.expectedStatus, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			assert.Equal(t, tc.expectedAllow, resp.Header.Get("Allow"))

			var body response.ErrorResponse
			decode(t, resp, &body)
			assert.Equal(t, tc.expectedStatus, body.Status)
			assert.Equal(t, tc.expectedTitle, body.ErrorTitle)
			assert.Equal(t, tc.path, body.Path)
			assert.Equal(t, resp.Header.Get(middleware.HeaderRequestID), body.RequestID)
			assert.NotNil(t, body.FieldErrors)
		})
	}
}

func Test_Today(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/hoje", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
	_, err := types.ParseDate(body["hoje"])
	assert.NoError(t, err)
}
