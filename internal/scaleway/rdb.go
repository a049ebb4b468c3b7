package scaleway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type Instance struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Region string `json:"region"`
	Engine string `json:"engine"`
}

type Database struct {
	Name    string `json:"name"`
	Owner   string `json:"owner"`
	Managed bool   `json:"managed"`
	Size    int64  `json:"size"`
}

type DatabaseBackup struct {
	ID           string  `json:"id"`
	InstanceID   string  `json:"instance_id"`
	DatabaseName string  `json:"database_name"`
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	Size         *int64  `json:"size"`
	CreatedAt    string  `json:"created_at"`
	ExpiresAt    *string `json:"expires_at"`
	Region       string  `json:"region"`
}

type instanceListQuery struct {
	sizedPage
	ProjectID string `url:"project_id"`
	Name      string `url:"name,omitempty"`
}

type backupListQuery struct {
	sizedPage
	InstanceID   string `url:"instance_id"`
	DatabaseName string `url:"database_name,omitempty"`
}

func (c *Client) rdbPath(format string, args ...any) string {
	return fmt.Sprintf("/rdb/v1/regions/%s", url.PathEscape(c.region)) + fmt.Sprintf(format, args...)
}

// ListInstances returns database instances in the project, optionally
// narrowed by the API's name filter.
func (c *Client) ListInstances(ctx context.Context, name string) ([]Instance, error) {
	return paginate(func(page int) ([]Instance, error) {
		var out struct {
			Instances []Instance `json:"instances"`
		}
		q := instanceListQuery{sizedPage: sizedPage{Page: page, PageSize: pageSize}, ProjectID: c.projectID, Name: name}
		if err := c.do(ctx, http.MethodGet, c.rdbPath("/instances"), q, nil, &out, instanceListSchema); err != nil {
			return nil, err
		}
		return out.Instances, nil
	})
}

func (c *Client) GetInstance(ctx context.Context, id string) (*Instance, error) {
	var out Instance
	if err := c.do(ctx, http.MethodGet, c.rdbPath("/instances/%s", url.PathEscape(id)), nil, nil, &out, instanceDetailSchema); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListDatabases(ctx context.Context, instanceID string) ([]Database, error) {
	return paginate(func(page int) ([]Database, error) {
		var out struct {
			Databases []Database `json:"databases"`
		}
		q := sizedPage{Page: page, PageSize: pageSize}
		path := c.rdbPath("/instances/%s/databases", url.PathEscape(instanceID))
		if err := c.do(ctx, http.MethodGet, path, q, nil, &out, databaseListSchema); err != nil {
			return nil, err
		}
		return out.Databases, nil
	})
}

// ListBackups returns backups of an instance; databaseName narrows the list
// when set.
func (c *Client) ListBackups(ctx context.Context, instanceID, databaseName string) ([]DatabaseBackup, error) {
	return paginate(func(page int) ([]DatabaseBackup, error) {
		var out struct {
			Backups []DatabaseBackup `json:"database_backups"`
		}
		q := backupListQuery{sizedPage: sizedPage{Page: page, PageSize: pageSize}, InstanceID: instanceID, DatabaseName: databaseName}
		if err := c.do(ctx, http.MethodGet, c.rdbPath("/backups"), q, nil, &out, backupListSchema); err != nil {
			return nil, err
		}
		return out.Backups, nil
	})
}

type createBackupRequest struct {
	InstanceID   string `json:"instance_id"`
	DatabaseName string `json:"database_name"`
	Name         string `json:"name"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}

// CreateBackup starts a backup of one database. expiresAt is an RFC 3339
// timestamp or empty for no expiry.
func (c *Client) CreateBackup(ctx context.Context, instanceID, databaseName, name, expiresAt string) (*DatabaseBackup, error) {
	var out struct {
		Backup *DatabaseBackup `json:"database_backup"`
		DatabaseBackup
	}
	req := createBackupRequest{InstanceID: instanceID, DatabaseName: databaseName, Name: name, ExpiresAt: expiresAt}
	if err := c.do(ctx, http.MethodPost, c.rdbPath("/backups"), nil, req, &out, backupSchema); err != nil {
		return nil, err
	}
	if out.Backup != nil {
		return out.Backup, nil
	}
	return &out.DatabaseBackup, nil
}

func (c *Client) DeleteBackup(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.rdbPath("/backups/%s", url.PathEscape(id)), nil, nil, nil, nil)
}
