package scalewaytest

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"SnapKeeper/internal/scaleway"
)

func (a *API) listServers(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	var out []scaleway.Server
	for _, s := range a.Servers {
		if name == "" || strings.Contains(s.Name, name) {
			out = append(out, s)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"servers": nonNil(page(r, out))})
}

func (a *API) getServer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	for _, s := range a.Servers {
		if s.ID != id {
			continue
		}
		s.State = a.popStatus(id, s.State)
		vols := a.Volumes[id]
		if a.FlatVolumes {
			writeJSON(w, http.StatusOK, map[string]any{"Volumes": nonNil(vols)})
			return
		}
		m := map[string]scaleway.Volume{}
		for i, v := range vols {
			m[itoa(i)] = v
		}
		writeJSON(w, http.StatusOK, map[string]any{"server": map[string]any{
			"id": s.ID, "name": s.Name, "state": s.State, "zone": s.Zone, "volumes": m,
		}})
		return
	}
	notFound(w, "instance_server", id)
}

func (a *API) listInstanceSnapshots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": nonNil(page(r, a.InstanceSnapshots))})
}

func (a *API) createInstanceSnapshot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		VolumeID string `json:"volume_id"`
		Project  string `json:"project"`
	}
	if err := decode(r, &req); err != nil || req.Project == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request"})
		return
	}
	if status, ok := a.FailTargets[req.VolumeID]; ok {
		writeJSON(w, status, map[string]string{"message": "volume is busy"})
		return
	}
	vol := a.findVolume(req.VolumeID)
	snap := scaleway.InstanceSnapshot{
		ID:           a.id("snap"),
		Name:         req.Name,
		State:        "snapshotting",
		Size:         vol.Size,
		VolumeType:   vol.VolumeType,
		CreationDate: a.timestamp(),
		BaseVolume:   &scaleway.VolumeRef{ID: vol.ID, Name: vol.Name},
	}
	a.InstanceSnapshots = append(a.InstanceSnapshots, snap)
	writeJSON(w, http.StatusCreated, map[string]any{"snapshot": snap, "task": map[string]string{"status": "pending"}})
}

func (a *API) deleteInstanceSnapshot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if status, ok := a.FailDeletes[id]; ok {
		writeJSON(w, status, map[string]string{"message": "snapshot is in use"})
		return
	}
	for i, s := range a.InstanceSnapshots {
		if s.ID == id {
			a.InstanceSnapshots = append(a.InstanceSnapshots[:i], a.InstanceSnapshots[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	notFound(w, "instance_snapshot", id)
}

func (a *API) listBlockSnapshots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots":   nonNil(page(r, a.BlockSnapshots)),
		"total_count": len(a.BlockSnapshots),
	})
}

func (a *API) createBlockSnapshot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		VolumeID  string `json:"volume_id"`
		ProjectID string `json:"project_id"`
	}
	if err := decode(r, &req); err != nil || req.ProjectID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request"})
		return
	}
	if status, ok := a.FailTargets[req.VolumeID]; ok {
		writeJSON(w, status, map[string]string{"message": "volume is busy"})
		return
	}
	vol := a.findVolume(req.VolumeID)
	snap := scaleway.BlockSnapshot{
		ID:           a.id("sbs"),
		Name:         req.Name,
		Status:       "creating",
		Size:         vol.Size,
		CreatedAt:    a.timestamp(),
		ParentVolume: &scaleway.ParentVolume{ID: vol.ID, Name: vol.Name, Type: vol.VolumeType, Status: "in_use"},
	}
	a.BlockSnapshots = append(a.BlockSnapshots, snap)
	// Block Storage returns the snapshot unwrapped.
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) deleteBlockSnapshot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if status, ok := a.FailDeletes[id]; ok {
		writeJSON(w, status, map[string]string{"message": "snapshot is in use"})
		return
	}
	for i, s := range a.BlockSnapshots {
		if s.ID == id {
			a.BlockSnapshots = append(a.BlockSnapshots[:i], a.BlockSnapshots[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	notFound(w, "snapshot", id)
}

func (a *API) listInstances(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	var out []scaleway.Instance
	for _, in := range a.Instances {
		if name == "" || strings.Contains(in.Name, name) {
			out = append(out, in)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"instances": nonNil(page(r, out)), "total_count": len(out)})
}

func (a *API) getInstance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	for _, in := range a.Instances {
		if in.ID == id {
			in.Status = a.popStatus(id, in.Status)
			writeJSON(w, http.StatusOK, in)
			return
		}
	}
	notFound(w, "instance", id)
}

func (a *API) listDatabases(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	dbs, ok := a.Databases[id]
	if !ok {
		notFound(w, "instance", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"databases": nonNil(page(r, dbs)), "total_count": len(dbs)})
}

func (a *API) listBackups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var out []scaleway.DatabaseBackup
	for _, b := range a.Backups {
		if q.Get("instance_id") != "" && b.InstanceID != q.Get("instance_id") {
			continue
		}
		if q.Get("database_name") != "" && b.DatabaseName != q.Get("database_name") {
			continue
		}
		out = append(out, b)
	}
	writeJSON(w, http.StatusOK, map[string]any{"database_backups": nonNil(page(r, out)), "total_count": len(out)})
}

func (a *API) createBackup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InstanceID   string `json:"instance_id"`
		DatabaseName string `json:"database_name"`
		Name         string `json:"name"`
		ExpiresAt    string `json:"expires_at"`
	}
	if err := decode(r, &req); err != nil || req.InstanceID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request"})
		return
	}
	if status, ok := a.FailTargets[req.DatabaseName]; ok {
		writeJSON(w, status, map[string]string{"message": "instance is not ready"})
		return
	}
	b := scaleway.DatabaseBackup{
		ID:           a.id("bkp"),
		InstanceID:   req.InstanceID,
		DatabaseName: req.DatabaseName,
		Name:         req.Name,
		Status:       "creating",
		CreatedAt:    a.timestamp(),
		Region:       mux.Vars(r)["region"],
	}
	if req.ExpiresAt != "" {
		exp := req.ExpiresAt
		b.ExpiresAt = &exp
	}
	a.Backups = append(a.Backups, b)
	writeJSON(w, http.StatusOK, b)
}

func (a *API) deleteBackup(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if status, ok := a.FailDeletes[id]; ok {
		writeJSON(w, status, map[string]string{"message": "backup is being exported"})
		return
	}
	for i, b := range a.Backups {
		if b.ID == id {
			a.Backups[i].Status = "deleting"
			a.Backups = append(a.Backups[:i], a.Backups[i+1:]...)
			writeJSON(w, http.StatusOK, b)
			return
		}
	}
	notFound(w, "database_backup", id)
}

func (a *API) findVolume(id string) scaleway.Volume {
	for _, vols := range a.Volumes {
		for _, v := range vols {
			if v.ID == id {
				return v
			}
		}
	}
	return scaleway.Volume{ID: id}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
