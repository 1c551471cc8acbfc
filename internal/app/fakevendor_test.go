package service_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/okian/platehub/internal/domain/model"
)

// fakeVendor serves both tenants: primary under /a, secondary under /b.
type fakeVendor struct {
	*httptest.Server

	mu         sync.Mutex
	authFail   map[string]bool
	groupsFail map[string]bool
	hits       map[string]int
}

func newFakeVendor() *fakeVendor {
	fv := &fakeVendor{
		authFail:   map[string]bool{},
		groupsFail: map[string]bool{},
		hits:       map[string]int{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /{t}/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if fv.flag(fv.authFail, r.PathValue("t")) {
			http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"access_token": "tok-" + r.PathValue("t"), "token_type": "bearer", "expires_in": 3600})
	})
	mux.HandleFunc("GET /{t}/groups", func(w http.ResponseWriter, r *http.Request) {
		t := r.PathValue("t")
		if fv.flag(fv.groupsFail, t) {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		groups := map[string][]map[string]string{
			"a": {{"id": "g1", "name": "MiLB Affiliates"}, {"id": "g2", "name": "Youth Academy"}},
			"b": {{"id": "s-g1", "name": "Pro Baseball"}},
		}[t]
		writeJSON(w, map[string]any{"groups": groups})
	})
	mux.HandleFunc("GET /{t}/profiles", func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("t") + "/" + r.URL.Query().Get("groupId")
		profiles := map[string][]map[string]any{
			"a/g1":   {{"profileId": "p1", "givenName": "john", "familyName": "  smith"}, {"profileId": "p2", "givenName": "Jane", "familyName": "Doe"}},
			"a/g2":   {{"profileId": "p3", "givenName": "Kid", "familyName": "Smith"}},
			"b/s-g1": {{"profileId": "s1", "givenName": "John", "familyName": "Smith"}},
		}[key]
		writeJSON(w, map[string]any{"profiles": profiles})
	})
	mux.HandleFunc("GET /{t}/tests", func(w http.ResponseWriter, r *http.Request) {
		pid := r.URL.Query().Get("ProfileId")
		fv.count("tests:" + pid)
		switch pid {
		case "p1":
			writeJSON(w, map[string]any{"tests": []map[string]any{
				{"testId": "t1", "profileId": "p1", "testType": "CMJ", "recordedDateUtc": "2025-05-01T12:00:00Z"},
			}})
		case "s1":
			writeJSON(w, map[string]any{"tests": []map[string]any{
				{"testId": "t9", "profileId": "s1", "testType": "CMJ", "recordedDateUtc": "2025-05-02T12:00:00Z"},
			}})
		case "p2":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	mux.HandleFunc("GET /{t}/v2019q3/teams/{team}/tests/{test}/trials", func(w http.ResponseWriter, r *http.Request) {
		test := r.PathValue("test")
		fv.count("trials:" + test)
		if test != "t1" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		writeJSON(w, []map[string]any{{
			"id": "tr1",
			"results": []map[string]any{
				{"value": 47, "limb": "Trial", "definition": map[string]string{"result": "JUMP_HEIGHT", "unit": "Centimeter"}},
				{"value": 1.42, "limb": "Trial", "definition": map[string]string{"result": "FLIGHT_CONTRACTION_TIME_RATIO", "unit": "No Unit"}},
			},
		}})
	})
	fv.Server = httptest.NewServer(mux)
	return fv
}

func (fv *fakeVendor) flag(m map[string]bool, key string) bool {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	return m[key]
}

func (fv *fakeVendor) set(m map[string]bool, key string) {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	m[key] = true
}

func (fv *fakeVendor) count(key string) {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	fv.hits[key]++
}

func (fv *fakeVendor) hitCount(key string) int {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	return fv.hits[key]
}

func (fv *fakeVendor) credential(tenant model.Tenant, prefix string) model.TenantCredential {
	base := fv.URL + "/" + prefix
	return model.TenantCredential{
		Tenant:         tenant,
		TenantID:       "team-" + prefix,
		ClientID:       "cid-" + prefix,
		ClientSecret:   "secret-" + prefix,
		AuthEndpoint:   base + "/oauth/token",
		TenantBaseURL:  base,
		ProfileBaseURL: base,
		TestsBaseURL:   base,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
