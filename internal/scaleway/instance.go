package scaleway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
)

type Server struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
	Zone  string `json:"zone"`
}

type Volume struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	VolumeType string `json:"volume_type"`
	State      string `json:"state"`
	Size       int64  `json:"size"`
}

// ServerDetail is a server together with its attached volumes in a stable order.
type ServerDetail struct {
	Server
	Volumes []Volume
}

type VolumeRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type InstanceSnapshot struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	State        string     `json:"state"`
	Size         int64      `json:"size"`
	VolumeType   string     `json:"volume_type"`
	CreationDate string     `json:"creation_date"`
	BaseVolume   *VolumeRef `json:"base_volume"`
}

type serverQuery struct {
	instancePage
	Name    string `url:"name,omitempty"`
	Project string `url:"project"`
}

type projectQuery struct {
	instancePage
	Project string `url:"project"`
}

func (c *Client) instancePath(format string, args ...any) string {
	return fmt.Sprintf("/instance/v1/zones/%s", url.PathEscape(c.zone)) + fmt.Sprintf(format, args...)
}

// ListServers returns servers in the project. The API matches name as a
// substring; callers filter for exact matches.
func (c *Client) ListServers(ctx context.Context, name string) ([]Server, error) {
	return paginate(func(page int) ([]Server, error) {
		var out struct {
			Servers []Server `json:"servers"`
		}
		q := serverQuery{instancePage: instancePage{Page: page, PerPage: pageSize}, Name: name, Project: c.projectID}
		if err := c.do(ctx, http.MethodGet, c.instancePath("/servers"), q, nil, &out, serverListSchema); err != nil {
			return nil, err
		}
		return out.Servers, nil
	})
}

type serverDetailResponse struct {
	Volumes []Volume `json:"Volumes"`
	Server  *struct {
		Server
		Volumes map[string]Volume `json:"volumes"`
	} `json:"server"`
}

// GetServer returns the server and its volumes. Volumes come back either as a
// top-level "Volumes" array or as a map keyed by slot index under "server";
// both are flattened into slot order.
func (c *Client) GetServer(ctx context.Context, id string) (*ServerDetail, error) {
	var out serverDetailResponse
	path := c.instancePath("/servers/%s", url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out, serverDetailSchema); err != nil {
		return nil, err
	}
	detail := &ServerDetail{Server: Server{ID: id}}
	if out.Server != nil {
		detail.Server = out.Server.Server
	}
	if len(out.Volumes) > 0 {
		detail.Volumes = out.Volumes
		return detail, nil
	}
	if out.Server != nil {
		detail.Volumes = volumesInSlotOrder(out.Server.Volumes)
	}
	return detail, nil
}

func volumesInSlotOrder(m map[string]Volume) []Volume {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	vols := make([]Volume, 0, len(keys))
	for _, k := range keys {
		vols = append(vols, m[k])
	}
	return vols
}

func (c *Client) ListInstanceSnapshots(ctx context.Context) ([]InstanceSnapshot, error) {
	return paginate(func(page int) ([]InstanceSnapshot, error) {
		var out struct {
			Snapshots []InstanceSnapshot `json:"snapshots"`
		}
		q := projectQuery{instancePage: instancePage{Page: page, PerPage: pageSize}, Project: c.projectID}
		if err := c.do(ctx, http.MethodGet, c.instancePath("/snapshots"), q, nil, &out, instanceSnapshotListSchema); err != nil {
			return nil, err
		}
		return out.Snapshots, nil
	})
}

type createInstanceSnapshotRequest struct {
	Name     string `json:"name"`
	VolumeID string `json:"volume_id"`
	Project  string `json:"project"`
}

func (c *Client) CreateInstanceSnapshot(ctx context.Context, volumeID, name string) (*InstanceSnapshot, error) {
	var out struct {
		Snapshot *InstanceSnapshot `json:"snapshot"`
		InstanceSnapshot
	}
	req := createInstanceSnapshotRequest{Name: name, VolumeID: volumeID, Project: c.projectID}
	if err := c.do(ctx, http.MethodPost, c.instancePath("/snapshots"), nil, req, &out, instanceSnapshotSchema); err != nil {
		return nil, err
	}
	if out.Snapshot != nil {
		return out.Snapshot, nil
	}
	return &out.InstanceSnapshot, nil
}

func (c *Client) DeleteInstanceSnapshot(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.instancePath("/snapshots/%s", url.PathEscape(id)), nil, nil, nil, nil)
}
