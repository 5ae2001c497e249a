package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ppenca/penca/models"
	"github.com/ppenca/penca/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetGroupsSendsViewerFilter(t *testing.T) {
	var gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("user")
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"groups": []models.Group{{ID: 1, Title: "Oficina"}},
		})
	}))
	defer server.Close()

	c := New(server.URL, nil)
	c.SetToken("tok123")

	sess := &session.Session{UserID: 2, Role: models.RoleUser, Country: "uy"}
	groups, err := c.GetGroups(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "uy", gotQuery)
	assert.Equal(t, "Bearer tok123", gotAuth)
}

func TestGetGroupsAdminRequestsAll(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("user")
		json.NewEncoder(w).Encode(map[string]interface{}{"groups": []models.Group{}})
	}))
	defer server.Close()

	c := New(server.URL, nil)
	_, err := c.GetGroups(context.Background(), &session.Session{UserID: 1, Role: models.RoleAdmin, Country: "uy"})
	require.NoError(t, err)
	assert.Equal(t, "all", gotQuery)
}

func TestConfirmGroupPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(map[string]bool{"confirmed": body.Password == "sekret"})
	}))
	defer server.Close()

	c := New(server.URL, nil)

	confirmed, err := c.ConfirmGroupPassword(context.Background(), 7, "sekret")
	require.NoError(t, err)
	assert.True(t, confirmed)

	confirmed, err = c.ConfirmGroupPassword(context.Background(), 7, "nope")
	require.NoError(t, err)
	assert.False(t, confirmed)
}

func TestGetGroupNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := New(server.URL, nil)
	_, err := c.GetGroup(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestErrorEnvelopeBecomesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]string{"error": "entrance fee payment is required"})
	}))
	defer server.Close()

	c := New(server.URL, nil)
	err := c.SavePrediction(context.Background(), 7, models.ScoreMatrix{}, models.RoundPicks{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.Equal(t, "entrance fee payment is required", apiErr.Message)
}

func TestGetPredictionAbsentIsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"prediction": nil})
	}))
	defer server.Close()

	c := New(server.URL, nil)
	prediction, err := c.GetPrediction(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, prediction)
}

func TestSavePredictionPayloadRoundTrip(t *testing.T) {
	var gotBody map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]interface{}{"prediction": nil})
	}))
	defer server.Close()

	c := New(server.URL, nil)
	matrix := models.ScoreMatrix{1: {2: 0}}
	rounds := models.RoundPicks{4: {1, 5}}
	require.NoError(t, c.SavePrediction(context.Background(), 42, matrix, rounds))

	var sentMatrix models.ScoreMatrix
	require.NoError(t, json.Unmarshal(gotBody["group"], &sentMatrix))
	score, ok := sentMatrix.Score(1, 2)
	require.True(t, ok)
	assert.Equal(t, 0, score)
	_, ok = sentMatrix.Score(2, 1)
	assert.False(t, ok, "absent entries must be sent as absent, not zero")

	assert.Equal(t, json.RawMessage(`42`), gotBody["group_id"])
}

func TestLoadWizardDataFetchesBothInParallel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/teams":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"teams": []models.Team{{ID: 1, Name: "uy", StageGroup: 1}},
			})
		case "/api/predictions":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"prediction": models.Prediction{GroupID: 42, Matrix: models.ScoreMatrix{}, Rounds: models.RoundPicks{}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := New(server.URL, nil)
	data, err := c.LoadWizardData(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, data.Teams, 1)
	require.NotNil(t, data.Prediction)
	assert.Equal(t, 42, data.Prediction.GroupID)
}

func TestLoadWizardDataDiscardsLateResultsOnCancel(t *testing.T) {
	started := make(chan struct{}, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(server.URL, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadWizardData(ctx, 42)
		done <- err
	}()

	<-started
	cancel()

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
