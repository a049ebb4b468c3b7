package report

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"SnapKeeper/internal/config"
	"SnapKeeper/internal/s3"
)

const (
	contentType = "application/zstd"
	digestKey   = "blake3"
)

var ErrDigestMismatch = errors.New("report digest mismatch")

// Storage is the object store reports are kept in. *s3.Client implements it.
type Storage interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentLength int64, contentType string, metadata map[string]string) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, map[string]string, error)
	DeleteObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, prefix string) ([]s3.Object, error)
}

// Encode returns the zstd-compressed JSON form of rep and the hex BLAKE3
// digest of the uncompressed JSON.
func Encode(rep *Report) ([]byte, string, error) {
	raw, err := json.Marshal(rep)
	if err != nil {
		return nil, "", fmt.Errorf("marshal report: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, "", err
	}
	defer enc.Close()
	sum := blake3.Sum256(raw)
	return enc.EncodeAll(raw, nil), hex.EncodeToString(sum[:]), nil
}

// Decode reverses Encode. An empty digest skips verification.
func Decode(body []byte, digest string) (*Report, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(body, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress report: %w", err)
	}
	if digest != "" {
		sum := blake3.Sum256(raw)
		if got := hex.EncodeToString(sum[:]); got != digest {
			return nil, fmt.Errorf("%w: got %s, want %s", ErrDigestMismatch, got, digest)
		}
	}
	var rep Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &rep, nil
}

// Upload stores rep under its report key and returns that key.
func Upload(ctx context.Context, st Storage, rep *Report) (string, error) {
	body, digest, err := Encode(rep)
	if err != nil {
		return "", err
	}
	key := s3.ReportKey(rep.Domain, rep.Action, rep.StartedAt)
	meta := map[string]string{
		digestKey: digest,
		"domain":  rep.Domain,
		"action":  rep.Action,
	}
	if err := st.PutObject(ctx, key, bytes.NewReader(body), int64(len(body)), contentType, meta); err != nil {
		return "", fmt.Errorf("upload report %s: %w", key, err)
	}
	return key, nil
}

// Fetch downloads and verifies the report stored at key.
func Fetch(ctx context.Context, st Storage, key string) (*Report, error) {
	rc, meta, err := st.GetObject(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", key, err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", key, err)
	}
	return Decode(body, meta[digestKey])
}

// Stored is one report object found in storage.
type Stored struct {
	Key    string
	Domain string
	Action string
	At     time.Time
}

// ListStored returns the domain's stored reports, oldest first. Objects that
// do not parse as report keys are ignored.
func ListStored(ctx context.Context, st Storage, domain string) ([]Stored, error) {
	objects, err := st.ListObjects(ctx, s3.ReportsPrefixForDomain(domain))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	var out []Stored
	for _, obj := range objects {
		d, action, at, ok := s3.ParseReportKey(obj.Key)
		if !ok || d != domain {
			continue
		}
		out = append(out, Stored{Key: obj.Key, Domain: d, Action: action, At: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].Key < out[j].Key
		}
		return out[i].At.Before(out[j].At)
	})
	return out, nil
}

// ApplyRetention deletes the domain's reports older than retentionDays.
// A non-positive retention keeps everything. Delete failures are logged and
// skipped; the count of removed reports is returned.
func ApplyRetention(ctx context.Context, st Storage, domain string, retentionDays int, now time.Time, dryRun bool, logger *slog.Logger) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	stored, err := ListStored(ctx, st, domain)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, s := range stored {
		if !config.IsExpired(s.At, now, retentionDays) {
			continue
		}
		if dryRun {
			logger.Info("would delete expired report", "key", s.Key)
			deleted++
			continue
		}
		if err := st.DeleteObject(ctx, s.Key); err != nil {
			logger.Warn("delete report failed", "key", s.Key, "error", err)
			continue
		}
		logger.Info("deleted expired report", "key", s.Key)
		deleted++
	}
	return deleted, nil
}
