package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchOptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/options", r.URL.Path)
		assert.Equal(t, "optionSet.id:eq:YNtzjFwAJVU", r.URL.Query().Get("filter"))
		assert.Equal(t, "id,code,name,translations", r.URL.Query().Get("fields"))
		assert.Equal(t, "false", r.URL.Query().Get("paging"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "district", pass)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"options": [
			{"id": "T1", "code": "100301", "name": "Amarapura",
			 "translations": [{"locale": "my", "property": "NAME", "value": "အမရပူရ"}]},
			{"id": "T2", "name": "Bago", "translations": []}
		]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/", Username: "admin", Password: "district"}, nil)
	options, err := client.FetchOptions(context.Background(), "YNtzjFwAJVU")
	require.NoError(t, err)
	require.Len(t, options, 2)

	first := options[0].AreaOption()
	assert.Equal(t, "T1", first.UID)
	assert.Equal(t, "100301", *first.Code)
	require.NotNil(t, first.NameMy)
	assert.Equal(t, "အမရပူရ", *first.NameMy)

	second := options[1].AreaOption()
	assert.Nil(t, second.Code)
	assert.Nil(t, second.NameMy)
}

func TestFetchOptions_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil)
	_, err := client.FetchOptions(context.Background(), "X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestFetchOptionGroups(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/optionGroups", r.URL.Path)
		assert.Equal(t, "id,name,options[id]", r.URL.Query().Get("fields"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"optionGroups": [
			{"id": "G1", "name": "Amarapura (Wards)", "options": [{"id": "W1"}, {"id": "W2"}]},
			{"id": "G2", "name": "Amarapura"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil)
	groups, err := client.FetchOptionGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	g := groups[0].Linkage()
	assert.Equal(t, "Amarapura (Wards)", g.Name)
	assert.Equal(t, []string{"W1", "W2"}, g.OptionUIDs)
	assert.Empty(t, groups[1].Linkage().OptionUIDs)
}

func TestFetchOptionGroups_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(Config{BaseURL: url}, nil)
	_, err := client.FetchOptionGroups(context.Background())
	assert.Error(t, err)
}
