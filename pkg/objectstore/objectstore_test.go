package objectstore

import (
	"testing"

	"medimate-be/internal/config"
	"medimate-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReader(t *testing.T) {
	var got []float64
	p := NewProgressReader(10, func(f float64) { got = append(got, f) })

	n, err := p.Read(make([]byte, 4))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	_, _ = p.Read(make([]byte, 4))
	_, _ = p.Read(make([]byte, 4))

	assert.Equal(t, []float64{0.4, 0.8, 1}, got)
}

func TestProgressReaderUnknownSize(t *testing.T) {
	var got []float64
	p := NewProgressReader(-1, func(f float64) { got = append(got, f) })
	_, _ = p.Read(make([]byte, 3))
	assert.Equal(t, []float64{1}, got)
}

func TestURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
		want string
	}{
		{
			name: "derived from endpoint",
			cfg:  config.StorageConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "medimate"},
			want: "http://localhost:9000/medimate/profilePictures/u1/profile.png",
		},
		{
			name: "public url override",
			cfg:  config.StorageConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "b", Bucket: "medimate", PublicURL: "https://cdn.medimate.test/"},
			want: "https://cdn.medimate.test/profilePictures/u1/profile.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewMinioStorage(tt.cfg, logger.NewNopLogger())
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.URL("profilePictures/u1/profile.png"))
		})
	}
}
