package status

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/fanctl/internal/config"
	"github.com/oshokin/fanctl/internal/domain/thermal"
)

// Repository defines persistence operations for the latest cycle.
type Repository interface {
	Load(ctx context.Context) (*thermal.CycleStatus, error)
	Save(ctx context.Context, status *thermal.CycleStatus) error
}

// FileRepository stores the latest cycle as JSON. The document is built as a
// structpb.Struct and written with protojson, then renamed into place so
// readers never see a half-written file.
type FileRepository struct {
	// path is the filesystem location of the JSON status file.
	path string
	// mu serialises writers.
	mu sync.Mutex
}

// ErrNotFound is returned when no cycle has been saved yet.
var ErrNotFound = errors.New("status not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the status from disk.
func (r *FileRepository) Load(_ context.Context) (*thermal.CycleStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read status file: %w", err)
	}

	var document structpb.Struct
	if err = protojson.Unmarshal(contents, &document); err != nil {
		return nil, fmt.Errorf("decode status file: %w", err)
	}

	return fromStruct(&document), nil
}

// Save replaces the status file.
func (r *FileRepository) Save(_ context.Context, status *thermal.CycleStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	document, err := toStruct(status)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(document)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace status file: %w", err)
	}

	return nil
}

// toStruct converts the domain status into a JSON-shaped struct.
func toStruct(status *thermal.CycleStatus) (*structpb.Struct, error) {
	readingList := make([]any, 0, len(status.Readings))
	for _, r := range status.Readings {
		readingList = append(readingList, map[string]any{
			"source":      r.SourceID,
			"temperature": r.Value,
			"observed_at": formatTime(r.ObservedAt),
		})
	}

	zoneList := make([]any, 0, len(status.Zones))
	for _, z := range status.Zones {
		zoneList = append(zoneList, map[string]any{
			"zone":    z.Zone,
			"percent": z.Percent,
			"error":   z.Error,
		})
	}

	return structpb.NewStruct(map[string]any{
		"timestamp":   formatTime(status.Timestamp),
		"source":      status.Hottest.SourceID,
		"temperature": status.Hottest.Value,
		"observed_at": formatTime(status.Hottest.ObservedAt),
		"percent":     status.Percent,
		"skipped":     status.Skipped,
		"readings":    readingList,
		"zones":       zoneList,
	})
}

// fromStruct converts the stored document back into the domain status.
func fromStruct(document *structpb.Struct) *thermal.CycleStatus {
	fields := document.GetFields()

	status := &thermal.CycleStatus{
		Timestamp: parseTime(fields["timestamp"].GetStringValue()),
		Hottest: thermal.Reading{
			SourceID:   fields["source"].GetStringValue(),
			Value:      fields["temperature"].GetNumberValue(),
			ObservedAt: parseTime(fields["observed_at"].GetStringValue()),
		},
		Percent: int(fields["percent"].GetNumberValue()),
		Skipped: fields["skipped"].GetStringValue(),
	}

	for _, item := range fields["readings"].GetListValue().GetValues() {
		r := item.GetStructValue().GetFields()
		status.Readings = append(status.Readings, thermal.Reading{
			SourceID:   r["source"].GetStringValue(),
			Value:      r["temperature"].GetNumberValue(),
			ObservedAt: parseTime(r["observed_at"].GetStringValue()),
		})
	}

	for _, item := range fields["zones"].GetListValue().GetValues() {
		z := item.GetStructValue().GetFields()
		status.Zones = append(status.Zones, thermal.ZoneOutcome{
			Zone:    z["zone"].GetStringValue(),
			Percent: int(z["percent"].GetNumberValue()),
			Error:   z["error"].GetStringValue(),
		})
	}

	return status
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
