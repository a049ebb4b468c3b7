// Package scalewaytest provides an in-memory fake of the Scaleway endpoints
// snapkeeper uses, served over httptest.
package scalewaytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"SnapKeeper/internal/scaleway"
)

const (
	Token     = "test-secret"
	ProjectID = "11111111-2222-3333-4444-555555555555"
	Zone      = "fr-par-1"
	Region    = "fr-par"
)

type API struct {
	Server *httptest.Server

	mu sync.Mutex

	Servers []scaleway.Server
	// Volumes holds attached volumes per server ID.
	Volumes map[string][]scaleway.Volume
	// FlatVolumes serves server volumes as a top-level "Volumes" array
	// instead of the "server.volumes" map.
	FlatVolumes bool

	InstanceSnapshots []scaleway.InstanceSnapshot
	BlockSnapshots    []scaleway.BlockSnapshot

	Instances []scaleway.Instance
	Databases map[string][]scaleway.Database
	Backups   []scaleway.DatabaseBackup

	// Statuses scripts successive status reads per server or instance ID.
	// Each read pops the head; the last entry repeats.
	Statuses map[string][]string
	// FailTargets makes create calls for a volume ID or database name fail
	// with the given status.
	FailTargets map[string]int
	// FailDeletes makes delete calls for an artifact ID fail with the given status.
	FailDeletes map[string]int
	// Raw overrides the body of "METHOD path" with a 200 response.
	Raw map[string]string

	Now func() time.Time

	calls  []string
	nextID int
}

func New() *API {
	a := &API{
		Volumes:     map[string][]scaleway.Volume{},
		Databases:   map[string][]scaleway.Database{},
		Statuses:    map[string][]string{},
		FailTargets: map[string]int{},
		FailDeletes: map[string]int{},
		Raw:         map[string]string{},
		Now:         time.Now,
	}
	a.Server = httptest.NewServer(a.router())
	return a
}

func (a *API) Close() { a.Server.Close() }

// Client returns a scaleway client pointed at the fake.
func (a *API) Client() *scaleway.Client {
	c, err := scaleway.New(scaleway.Options{
		BaseURL:   a.Server.URL,
		SecretKey: Token,
		ProjectID: ProjectID,
		Zone:      Zone,
		Region:    Region,
		Timeout:   5 * time.Second,
	})
	if err != nil {
		panic(err)
	}
	return c
}

// Calls returns every request seen so far as "METHOD path".
func (a *API) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

// MutatingCalls returns the POST and DELETE requests seen so far.
func (a *API) MutatingCalls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, c := range a.calls {
		if strings.HasPrefix(c, http.MethodPost+" ") || strings.HasPrefix(c, http.MethodDelete+" ") {
			out = append(out, c)
		}
	}
	return out
}

func (a *API) router() http.Handler {
	r := mux.NewRouter()
	r.Use(a.middleware)

	inst := r.PathPrefix("/instance/v1/zones/{zone}").Subrouter()
	inst.HandleFunc("/servers", a.listServers).Methods(http.MethodGet)
	inst.HandleFunc("/servers/{id}", a.getServer).Methods(http.MethodGet)
	inst.HandleFunc("/snapshots", a.listInstanceSnapshots).Methods(http.MethodGet)
	inst.HandleFunc("/snapshots", a.createInstanceSnapshot).Methods(http.MethodPost)
	inst.HandleFunc("/snapshots/{id}", a.deleteInstanceSnapshot).Methods(http.MethodDelete)

	block := r.PathPrefix("/block/v1alpha1/zones/{zone}").Subrouter()
	block.HandleFunc("/snapshots", a.listBlockSnapshots).Methods(http.MethodGet)
	block.HandleFunc("/snapshots", a.createBlockSnapshot).Methods(http.MethodPost)
	block.HandleFunc("/snapshots/{id}", a.deleteBlockSnapshot).Methods(http.MethodDelete)

	rdb := r.PathPrefix("/rdb/v1/regions/{region}").Subrouter()
	rdb.HandleFunc("/instances", a.listInstances).Methods(http.MethodGet)
	rdb.HandleFunc("/instances/{id}", a.getInstance).Methods(http.MethodGet)
	rdb.HandleFunc("/instances/{id}/databases", a.listDatabases).Methods(http.MethodGet)
	rdb.HandleFunc("/backups", a.listBackups).Methods(http.MethodGet)
	rdb.HandleFunc("/backups", a.createBackup).Methods(http.MethodPost)
	rdb.HandleFunc("/backups/{id}", a.deleteBackup).Methods(http.MethodDelete)
	return r
}

func (a *API) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		a.mu.Lock()
		a.calls = append(a.calls, key)
		raw, hasRaw := a.Raw[key]
		a.mu.Unlock()

		if r.Header.Get("X-Auth-Token") != Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "authentication is denied"})
			return
		}
		if hasRaw {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(raw))
			return
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter, kind, id string) {
	writeJSON(w, http.StatusNotFound, map[string]string{"type": "not_found", "resource": kind, "resource_id": id})
}

func (a *API) id(prefix string) string {
	a.nextID++
	return fmt.Sprintf("%s-%04d", prefix, a.nextID)
}

func (a *API) timestamp() string {
	return a.Now().UTC().Format(time.RFC3339Nano)
}

// page slices items according to page and the per_page or page_size query parameter.
func page[T any](r *http.Request, items []T) []T {
	q := r.URL.Query()
	size, _ := strconv.Atoi(q.Get("per_page"))
	if size == 0 {
		size, _ = strconv.Atoi(q.Get("page_size"))
	}
	n, _ := strconv.Atoi(q.Get("page"))
	if size <= 0 || n <= 0 {
		return items
	}
	start := (n - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (a *API) popStatus(id, fallback string) string {
	seq := a.Statuses[id]
	if len(seq) == 0 {
		return fallback
	}
	s := seq[0]
	if len(seq) > 1 {
		a.Statuses[id] = seq[1:]
	}
	return s
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
