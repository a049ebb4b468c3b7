package scaleway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type ParentVolume struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// BlockSnapshot is a Block Storage (sbs) snapshot. Unlike instance snapshots
// its timestamp field is created_at.
type BlockSnapshot struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Status       string        `json:"status"`
	Size         int64         `json:"size"`
	CreatedAt    string        `json:"created_at"`
	ParentVolume *ParentVolume `json:"parent_volume"`
}

type blockQuery struct {
	sizedPage
	ProjectID string `url:"project_id"`
}

func (c *Client) blockPath(format string, args ...any) string {
	return fmt.Sprintf("/block/v1alpha1/zones/%s", url.PathEscape(c.zone)) + fmt.Sprintf(format, args...)
}

func (c *Client) ListBlockSnapshots(ctx context.Context) ([]BlockSnapshot, error) {
	return paginate(func(page int) ([]BlockSnapshot, error) {
		var out struct {
			Snapshots []BlockSnapshot `json:"snapshots"`
		}
		q := blockQuery{sizedPage: sizedPage{Page: page, PageSize: pageSize}, ProjectID: c.projectID}
		if err := c.do(ctx, http.MethodGet, c.blockPath("/snapshots"), q, nil, &out, blockSnapshotListSchema); err != nil {
			return nil, err
		}
		return out.Snapshots, nil
	})
}

type createBlockSnapshotRequest struct {
	Name      string `json:"name"`
	VolumeID  string `json:"volume_id"`
	ProjectID string `json:"project_id"`
}

func (c *Client) CreateBlockSnapshot(ctx context.Context, volumeID, name string) (*BlockSnapshot, error) {
	var out struct {
		Snapshot *BlockSnapshot `json:"snapshot"`
		BlockSnapshot
	}
	req := createBlockSnapshotRequest{Name: name, VolumeID: volumeID, ProjectID: c.projectID}
	if err := c.do(ctx, http.MethodPost, c.blockPath("/snapshots"), nil, req, &out, blockSnapshotSchema); err != nil {
		return nil, err
	}
	if out.Snapshot != nil {
		return out.Snapshot, nil
	}
	return &out.BlockSnapshot, nil
}

func (c *Client) DeleteBlockSnapshot(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.blockPath("/snapshots/%s", url.PathEscape(id)), nil, nil, nil, nil)
}
