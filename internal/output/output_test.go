package output

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/HerbHall/hakagen/pkg/detection"
)

func synthetic(hour, minute, second int, camera string) detection.SyntheticEvent {
	return detection.SyntheticEvent{
		EventType:   "crossing",
		Zone:        "zoneA",
		Camera:      camera,
		ObjectClass: "car",
		EventDate:   time.Date(2024, 7, 26, hour, minute, second, 0, time.UTC),
		Impact:      "low",
	}
}

func TestFileName(t *testing.T) {
	date := time.Date(2024, 7, 26, 0, 0, 0, 0, time.UTC)
	if got := FileName(date); got != "output26-07-2024.csv" {
		t.Errorf("FileName = %q, want %q", got, "output26-07-2024.csv")
	}
}

func TestEncodeCSV_SortsStablyByEventDate(t *testing.T) {
	events := []detection.SyntheticEvent{
		synthetic(10, 15, 47, "cam1"),
		synthetic(6, 5, 0, "cam2"),
		synthetic(10, 15, 47, "cam3"),
		synthetic(10, 15, 3, "cam1"),
	}

	data, err := EncodeCSV(events)
	require.NoError(t, err)

	want := strings.Join([]string{
		"eventType,zone,camera,objectClass,eventDate,impact",
		"crossing,zoneA,cam2,car,2024-07-26 06:05:00,low",
		"crossing,zoneA,cam1,car,2024-07-26 10:15:03,low",
		"crossing,zoneA,cam1,car,2024-07-26 10:15:47,low",
		"crossing,zoneA,cam3,car,2024-07-26 10:15:47,low",
	}, "\n") + "\n"
	assert.Equal(t, want, string(data))
	assert.Equal(t, "cam1", events[0].Camera, "input slice was reordered")
}

func TestEncodeCSV_EmptyHasHeaderOnly(t *testing.T) {
	data, err := EncodeCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "eventType,zone,camera,objectClass,eventDate,impact\n", string(data))
}

func TestDecodeCSV_RoundTripsQuotedFields(t *testing.T) {
	e := synthetic(1, 2, 3, "Mz40-Piso 30")
	e.Zone = "Coches 4to anillo, hacia Roca"
	data, err := EncodeCSV([]detection.SyntheticEvent{e})
	require.NoError(t, err)

	got, err := DecodeCSV(data, time.UTC)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, e, got[0])

	_, err = DecodeCSV([]byte("a,b\n1,2\n"), time.UTC)
	assert.ErrorIs(t, err, detection.ErrValidation)
}

func TestWriter_LocalStore(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(NewLocalStore(dir), "runs", zaptest.NewLogger(t))
	date := time.Date(2024, 7, 26, 0, 0, 0, 0, time.UTC)

	a, err := w.Write(context.Background(), date, []detection.SyntheticEvent{synthetic(3, 4, 5, "cam1")})
	require.NoError(t, err)

	assert.Equal(t, "output26-07-2024.csv", a.Name)
	assert.Equal(t, "runs/output26-07-2024.csv", a.Key)
	assert.Equal(t, 1, a.Rows)

	path := filepath.Join(dir, "runs", "output26-07-2024.csv")
	assert.Equal(t, path, a.Location)
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, a.Body, onDisk)
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, []byte, string) error {
	return errors.New("disk full")
}

func (failingStore) Location(key string) string { return key }

func TestWriter_PutFailure(t *testing.T) {
	w := NewWriter(failingStore{}, "", nil)
	_, err := w.Write(context.Background(), time.Now(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store artifact: disk full")
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		field   string
		wantErr bool
	}{
		{"local", Config{Backend: BackendLocal, Dir: t.TempDir()}, "", false},
		{"local without dir", Config{Backend: BackendLocal}, "output.dir", true},
		{"s3 without bucket", Config{Backend: BackendS3}, "output.bucket", true},
		{"minio without endpoint", Config{Backend: BackendMinio, Bucket: "b"}, "output.endpoint", true},
		{"minio", Config{Backend: BackendMinio, Bucket: "b", Endpoint: "localhost:9000"}, "", false},
		{"unknown", Config{Backend: "ftp"}, "output.backend", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(context.Background(), tt.cfg)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.NotNil(t, store)
				return
			}
			var ve *detection.ValidationError
			require.True(t, errors.As(err, &ve), "err = %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestMinioStore_Location(t *testing.T) {
	s, err := NewMinioStore("localhost:9000", "key", "secret", "detections", false)
	require.NoError(t, err)
	assert.Equal(t, "s3://detections/daily/x.csv @ localhost:9000", s.Location("daily/x.csv"))
}
