package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
)

type stubRequestRepo struct {
	port.RequestRepository
	mu       sync.Mutex
	requests []*entity.DocumentRequest
}

func (s *stubRequestRepo) List(ctx context.Context, filter port.RequestFilter) ([]*entity.DocumentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.DocumentRequest
	for _, r := range s.requests {
		if filter.Status == "" || r.Status == filter.Status {
			out = append(out, r)
		}
	}
	return out, nil
}

type stubGenerator struct {
	mu   sync.Mutex
	err  error
	urls []string
}

func (s *stubGenerator) Preview(ctx context.Context, req *entity.DocumentRequest) (map[string]string, error) {
	return nil, nil
}

func (s *stubGenerator) Render(ctx context.Context, req *entity.DocumentRequest, data map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	url := "generated/" + req.TrackingNumber + ".pdf"
	s.urls = append(s.urls, url)
	return url, nil
}

type stubTransitioner struct {
	mu    sync.Mutex
	calls []struct {
		ID  int64
		URL string
	}
	done chan struct{}
}

func (s *stubTransitioner) MarkReadyForPickup(ctx context.Context, id int64, actor, generatedURL string) (*entity.DocumentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, struct {
		ID  int64
		URL string
	}{id, generatedURL})
	if s.done != nil {
		select {
		case s.done <- struct{}{}:
		default:
		}
	}
	return &entity.DocumentRequest{ID: id, Status: entity.StatusReadyForPickup}, nil
}

func TestGenerationWorker_RendersProcessingRequests(t *testing.T) {
	repo := &stubRequestRepo{requests: []*entity.DocumentRequest{
		{ID: 1, TrackingNumber: "BRGY-A1B2C3D4E5", Status: entity.StatusProcessing},
		{ID: 2, TrackingNumber: "BRGY-F6G7H8I9J0", Status: entity.StatusPending},
	}}
	gen := &stubGenerator{}
	tr := &stubTransitioner{done: make(chan struct{}, 1)}

	w := NewGenerationWorker(repo, gen, tr, zap.NewNop(),
		WithPollInterval(time.Hour), WithBatchSize(10))

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	select {
	case <-tr.done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not process the request in time")
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Len(t, tr.calls, 1)
	assert.Equal(t, int64(1), tr.calls[0].ID)
	assert.Equal(t, "generated/BRGY-A1B2C3D4E5.pdf", tr.calls[0].URL)
}

func TestGenerationWorker_RenderFailureLeavesRequestProcessing(t *testing.T) {
	repo := &stubRequestRepo{requests: []*entity.DocumentRequest{
		{ID: 1, TrackingNumber: "BRGY-A1B2C3D4E5", Status: entity.StatusProcessing},
	}}
	gen := &stubGenerator{err: errors.New("renderer down")}
	tr := &stubTransitioner{}

	w := NewGenerationWorker(repo, gen, tr, zap.NewNop(), WithPollInterval(time.Hour))

	require.NoError(t, w.Start(context.Background()))
	w.Stop()

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Empty(t, tr.calls, "failed render must not fire a transition")
}

func TestGenerationWorker_StartTwice(t *testing.T) {
	repo := &stubRequestRepo{}
	w := NewGenerationWorker(repo, &stubGenerator{}, &stubTransitioner{}, zap.NewNop(),
		WithPollInterval(time.Hour))

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))
	w.Stop()

	// Restart after Stop is allowed
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
}

func TestManager_StartAndStopAll(t *testing.T) {
	m := NewManager(zap.NewNop())

	w1 := NewGenerationWorker(&stubRequestRepo{}, &stubGenerator{}, &stubTransitioner{}, zap.NewNop(),
		WithPollInterval(time.Hour))
	m.Register(w1)

	require.NoError(t, m.StartAll(context.Background()))
	m.StopAll()
}
