package tests

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safecircle/server/internal/classifier"
)

// TestE2E runs the complete flow over HTTP against a fresh SQLite database.
func TestE2E(t *testing.T) {
	ts := newTestServer(t, serverOptions{failFor: []string{"+15550000002"}})
	runFlow(t, ts)
}

// TestE2EPostgres runs the same flow against DATABASE_URL when it points at Postgres.
func TestE2EPostgres(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if !strings.HasPrefix(url, "postgres") {
		t.Skip("DATABASE_URL not set to postgres; skipping")
	}
	ts := newTestServer(t, serverOptions{databaseURL: url, failFor: []string{"+15550000002"}})
	ts.Truncate(t)
	t.Cleanup(func() { ts.Truncate(t) })
	runFlow(t, ts)
}

func runFlow(t *testing.T, ts *testServer) {
	const email = "alice@example.com"

	t.Run("A_Health", func(t *testing.T) {
		status, body := ts.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ok", body["status"])
		assert.Nil(t, body["detail"])
	})

	t.Run("B_OTPConsumedOnce", func(t *testing.T) {
		status, body := ts.do(t, http.MethodPost, "/auth/request-otp", map[string]string{
			"email": email, "name": "Alice", "phone": "+15550000000",
		})
		require.Equal(t, http.StatusOK, status, "%v", body)
		assert.Equal(t, "OTP sent", body["detail"])
		code := body["dev_otp"].(string)

		status, body = ts.do(t, http.MethodPost, "/auth/verify-otp", map[string]string{"email": email, "otp": code})
		require.Equal(t, http.StatusOK, status, "%v", body)
		assert.Equal(t, "verified", body["detail"])
		assert.NotZero(t, body["user_id"])

		status, body = ts.do(t, http.MethodPost, "/auth/verify-otp", map[string]string{"email": email, "otp": code})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid or expired OTP", body["detail"])
	})

	t.Run("C_RequestOTPValidation", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodPost, "/auth/request-otp", map[string]string{"email": email})
		assert.Equal(t, http.StatusBadRequest, status)

		status, _ = ts.do(t, http.MethodPost, "/auth/request-otp", map[string]string{"email": "not-an-email", "phone": "+1"})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("D_NomineeCapacity", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			status, body := ts.do(t, http.MethodPost, "/me/nominees", map[string]string{
				"email": email,
				"name":  fmt.Sprintf("Contact %d", i),
				"phone": fmt.Sprintf("+1555000000%d", i),
			})
			require.Equal(t, http.StatusOK, status, "%v", body)
			assert.Equal(t, "added", body["detail"])
		}

		status, body := ts.do(t, http.MethodPost, "/me/nominees", map[string]string{
			"email": email, "name": "Contact 4", "phone": "+15550000004",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "max 3 nominees reached", body["detail"])

		status, body = ts.do(t, http.MethodGet, "/me/nominees?email="+email, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, body["nominees"], 3)
	})

	t.Run("E_NomineeUpdateAndDelete", func(t *testing.T) {
		_, body := ts.do(t, http.MethodGet, "/me/nominees?email="+email, nil)
		first := body["nominees"].([]any)[0].(map[string]any)
		id := int64(first["id"].(float64))

		status, _ := ts.do(t, http.MethodPut, fmt.Sprintf("/me/nominees/%d", id), map[string]string{"name": "Renamed"})
		require.Equal(t, http.StatusOK, status)

		_, body = ts.do(t, http.MethodGet, "/me/nominees?email="+email, nil)
		first = body["nominees"].([]any)[0].(map[string]any)
		assert.Equal(t, "Renamed", first["name"])
		assert.Equal(t, "+15550000001", first["phone"], "omitted phone must be unchanged")

		status, _ = ts.do(t, http.MethodPut, "/me/nominees/abc", map[string]string{"name": "x"})
		assert.Equal(t, http.StatusBadRequest, status)

		status, _ = ts.do(t, http.MethodDelete, "/me/nominees/999999", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("F_EmergencyPartialFailure", func(t *testing.T) {
		status, body := ts.do(t, http.MethodPost, "/emergency", map[string]any{
			"email":     email,
			"type":      "fire",
			"details":   "kitchen",
			"latitude":  "51.5",
			"longitude": -0.12,
		})
		require.Equal(t, http.StatusOK, status, "%v", body)
		assert.Equal(t, "emergency recorded", body["detail"])
		assert.NotZero(t, body["id"])

		results := body["results"].([]any)
		require.Len(t, results, 3)

		byPhone := map[string]map[string]any{}
		for _, r := range results {
			m := r.(map[string]any)
			byPhone[m["nominee"].(string)] = m
		}
		assert.Equal(t, true, byPhone["+15550000001"]["success"])
		assert.NotEmpty(t, byPhone["+15550000001"]["sid"])
		assert.Equal(t, false, byPhone["+15550000002"]["success"])
		assert.Equal(t, "carrier rejected", byPhone["+15550000002"]["error"])
		assert.Equal(t, true, byPhone["+15550000003"]["success"])

		msg := ts.SMS.Body("+15550000003")
		assert.Contains(t, msg, "ALERT from Alice")
		assert.Contains(t, msg, "Location: 221B Baker Street, London")
		assert.Contains(t, msg, "Maps: https://maps.google.com/?q=51.5,-0.12")
	})

	t.Run("G_EmergencyInvalidCoordinates", func(t *testing.T) {
		status, body := ts.do(t, http.MethodPost, "/emergency", map[string]any{
			"email":     email,
			"type":      "medical",
			"latitude":  "north",
			"longitude": 10,
		})
		require.Equal(t, http.StatusOK, status, "%v", body)

		msg := ts.SMS.Body("+15550000001")
		assert.Contains(t, msg, "Location error:")
		assert.NotContains(t, msg, "Maps:")
	})

	t.Run("H_History", func(t *testing.T) {
		status, body := ts.do(t, http.MethodGet, "/me/emergencies?email="+email, nil)
		require.Equal(t, http.StatusOK, status)

		items := body["emergencies"].([]any)
		require.Len(t, items, 2)
		newest := items[0].(map[string]any)
		oldest := items[1].(map[string]any)
		assert.Equal(t, "medical", newest["type"])
		assert.Nil(t, newest["details"])
		assert.Equal(t, "fire", oldest["type"])
		assert.Equal(t, "kitchen", oldest["details"])
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, oldest["created_at"])
	})

	t.Run("I_UnknownAccount", func(t *testing.T) {
		status, body := ts.do(t, http.MethodGet, "/me/emergencies?email=nobody@example.com", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "user not found", body["detail"])

		status, _ = ts.do(t, http.MethodPost, "/emergency", map[string]any{"email": "nobody@example.com", "type": "fire"})
		assert.Equal(t, http.StatusNotFound, status)

		status, _ = ts.do(t, http.MethodPost, "/me/nominees", map[string]string{
			"email": "nobody@example.com", "name": "x", "phone": "+1",
		})
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("J_Predict", func(t *testing.T) {
		status, body := ts.do(t, http.MethodPost, "/predict", map[string]any{
			"texts": []string{"smoke everywhere", "he collapsed", "hello"},
		})
		require.Equal(t, http.StatusOK, status, "%v", body)
		assert.Equal(t, []any{"fire", "medical", "other"}, body["labels"])

		status, body = ts.do(t, http.MethodPost, "/predict", map[string]any{"texts": []string{}})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Body must include 'texts': List[str]", body["detail"])
	})

	t.Run("K_UnknownRoute", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodGet, "/nope", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestE2EModelMissing(t *testing.T) {
	model := classifier.Load(filepath.Join(t.TempDir(), "missing.json"))
	ts := newTestServer(t, serverOptions{model: model})

	status, body := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "degraded", body["status"])
	detail := body["detail"].(map[string]any)
	assert.NotEmpty(t, detail["model"])
	assert.Equal(t, true, detail["db"])

	status, body = ts.do(t, http.MethodPost, "/predict", map[string]any{"texts": []string{"fire"}})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body["detail"], "model not loaded")
}

func TestE2EConcurrentNomineeAdds(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	ts.register(t, "bob@example.com", "+15551110000")

	statuses := make(chan int, 8)
	for i := 0; i < 8; i++ {
		go func(i int) {
			body := fmt.Sprintf(`{"email":"bob@example.com","name":"N%d","phone":"+1555222000%d"}`, i, i)
			resp, err := ts.Server.Client().Post(ts.Server.URL+"/me/nominees", "application/json", strings.NewReader(body))
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}(i)
	}

	ok := 0
	for i := 0; i < 8; i++ {
		if <-statuses == http.StatusOK {
			ok++
		}
	}
	assert.Equal(t, 3, ok)

	n, err := countNominees(ts)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func countNominees(ts *testServer) (int, error) {
	var n int
	err := ts.DB.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM nominees").Scan(&n)
	return n, err
}
