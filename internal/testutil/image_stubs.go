// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tsamuels456/unboundedfigures/internal/database"
	"github.com/tsamuels456/unboundedfigures/internal/storage"
)

// AvatarStoreStub is an in-memory storage.AvatarStore.
type AvatarStoreStub struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	// Err, when set, fails every Save.
	Err error
}

var _ storage.AvatarStore = (*AvatarStoreStub)(nil)

// NewAvatarStoreStub creates an empty store.
func NewAvatarStoreStub() *AvatarStoreStub {
	return &AvatarStoreStub{objects: make(map[string][]byte), types: make(map[string]string)}
}

// Save keeps the object in memory and returns its local public path.
func (s *AvatarStoreStub) Save(_ context.Context, name, contentType string, data []byte) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = append([]byte(nil), data...)
	s.types[name] = contentType
	return storage.LocalPublicPrefix + "/" + name, nil
}

// Object returns a stored object and its content type.
func (s *AvatarStoreStub) Object(name string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[name]
	return data, s.types[name], ok
}

// Len counts stored objects.
func (s *AvatarStoreStub) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// OpenSQLite returns a migrated in-memory database. One connection keeps
// every query on the same in-memory schema.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}
