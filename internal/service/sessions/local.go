package sessions

import (
	"time"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
	"github.com/umutcvc/MySomatra-sub000/internal/service/storage"
)

// LocalSink records sessions straight into the embedded database, for
// running without a backend. It implements domain.SessionSink.
type LocalSink struct {
	store *storage.Service
}

// NewLocalSink wraps the storage service as a session recorder.
func NewLocalSink(store *storage.Service) *LocalSink {
	return &LocalSink{store: store}
}

func (l *LocalSink) Begin(mode domain.TherapyMode, intensity int) (uint, error) {
	return l.store.CreateSession(string(mode), intensity, time.Now())
}

func (l *LocalSink) End(id uint) error {
	return l.store.EndSession(id, time.Now())
}
