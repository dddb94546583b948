package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley-backend/internal/models"
)

func postJSON(t *testing.T, url, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func getJSON(t *testing.T, url, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestSignupSigninVerifyFlow(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	resp, body := postJSON(t, env.srv.URL+"/api/auth/signup", "", map[string]string{
		"username": "Alice", "password": "long enough password",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	req.Equal(true, body["success"])

	// Duplicate username, even with different casing.
	resp, body = postJSON(t, env.srv.URL+"/api/auth/signup", "", map[string]string{
		"username": "ALICE", "password": "long enough password",
	})
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	req.Equal(false, body["success"])

	// Short password is rejected before it reaches the account store.
	resp, _ = postJSON(t, env.srv.URL+"/api/auth/signup", "", map[string]string{
		"username": "bob", "password": "short",
	})
	req.Equal(http.StatusBadRequest, resp.StatusCode)

	resp, body = postJSON(t, env.srv.URL+"/api/auth/signin", "", map[string]string{
		"username": "alice", "password": "long enough password",
	})
	req.Equal(http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]interface{})
	token := user["token"].(string)
	req.NotEmpty(token)
	req.Equal("alice", user["username"])

	resp, body = postJSON(t, env.srv.URL+"/api/auth/signin", "", map[string]string{
		"username": "alice", "password": "wrong password!!",
	})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, body = getJSON(t, env.srv.URL+"/api/auth/verify", token)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("alice", body["username"])

	resp, _ = getJSON(t, env.srv.URL+"/api/auth/verify", "bogus-token")
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestListUsersExcludesCaller(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	// Sign up through the HTTP boundary so each account gets its seeded
	// offline presence entry.
	var aliceToken string
	for _, name := range []string{"alice", "bob", "carol"} {
		resp, _ := postJSON(t, env.srv.URL+"/api/auth/signup", "", map[string]string{
			"username": name, "password": "long enough password",
		})
		req.Equal(http.StatusCreated, resp.StatusCode)
	}
	resp, body := postJSON(t, env.srv.URL+"/api/auth/signin", "", map[string]string{
		"username": "alice", "password": "long enough password",
	})
	req.Equal(http.StatusOK, resp.StatusCode)
	aliceToken = body["user"].(map[string]interface{})["token"].(string)

	resp, body = getJSON(t, env.srv.URL+"/api/users", aliceToken)
	req.Equal(http.StatusOK, resp.StatusCode)

	users := body["users"].([]interface{})
	req.Len(users, 2)
	names := make([]string, 0, len(users))
	for _, u := range users {
		entry := u.(map[string]interface{})
		names = append(names, entry["username"].(string))
		req.Equal("offline", entry["status"])
	}
	req.ElementsMatch([]string{"bob", "carol"}, names)
}

func TestSyncMessagesEndpoint(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	token := env.signupAndLogin(t, "alice")

	offline := []models.Message{
		{ID: "m1", Sender: "alice", Receiver: "bob", Body: "sent while offline", Timestamp: 100},
	}

	resp, body := postJSON(t, env.srv.URL+"/api/sync/messages", token, map[string]interface{}{
		"messages": offline,
	})
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(true, body["success"])

	merged := body["messages"].([]interface{})
	req.Len(merged, 1)
	req.Len(env.messages.Conversation("alice", "bob"), 1)

	// Replaying the same batch must not duplicate anything.
	resp, body = postJSON(t, env.srv.URL+"/api/sync/messages", token, map[string]interface{}{
		"messages": offline,
	})
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Len(body["messages"].([]interface{}), 1)

	// No token, no merge.
	resp, _ = postJSON(t, env.srv.URL+"/api/sync/messages", "", map[string]interface{}{
		"messages": offline,
	})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestSyncPresenceEndpoint(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	token := env.signupAndLogin(t, "alice")

	resp, body := postJSON(t, env.srv.URL+"/api/sync/presence", token, map[string]interface{}{
		"entries": []models.PresenceEntry{
			{Username: "dave", Status: models.StatusOffline, LastChange: 42},
		},
	})
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(true, body["success"])

	entry, ok := env.presence.Lookup("dave")
	req.True(ok)
	req.Equal(models.StatusOffline, entry.Status)
	req.EqualValues(42, entry.LastChange)
}
