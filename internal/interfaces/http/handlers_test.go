package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
	"github.com/jbdelacruz/barangay-portal/internal/application/service"
	appwf "github.com/jbdelacruz/barangay-portal/internal/application/workflow"
	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
	domainwf "github.com/jbdelacruz/barangay-portal/internal/domain/workflow"
	"github.com/jbdelacruz/barangay-portal/internal/domain/view"
	"github.com/jbdelacruz/barangay-portal/pkg/utils"
)

type mockRequestService struct {
	submitFunc       func(ctx context.Context, input service.SubmitInput) (*entity.DocumentRequest, error)
	trackFunc        func(ctx context.Context, trackingNumber string) (*service.TrackingInfo, error)
	getFunc          func(ctx context.Context, id int64) (*entity.DocumentRequest, error)
	transitionFunc   func(id int64, actor string) (*entity.DocumentRequest, error)
	rejectFunc       func(id int64, actor, reason string) (*entity.DocumentRequest, error)
	uploadProofFunc  func(ctx context.Context, id int64, input service.UploadInput) (string, error)
	bulkDeleteFunc   func(ctx context.Context, ids []int64) []service.BulkDeleteResult
	statsFunc        func(ctx context.Context) (map[string]int, error)
}

func (m *mockRequestService) Submit(ctx context.Context, input service.SubmitInput) (*entity.DocumentRequest, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, input)
	}
	return &entity.DocumentRequest{ID: 1, TrackingNumber: "BRGY-A1B2C3D4E5", Status: entity.StatusPending}, nil
}

func (m *mockRequestService) GetByID(ctx context.Context, id int64) (*entity.DocumentRequest, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &entity.DocumentRequest{ID: id, Status: entity.StatusPending}, nil
}

func (m *mockRequestService) Track(ctx context.Context, trackingNumber string) (*service.TrackingInfo, error) {
	if m.trackFunc != nil {
		return m.trackFunc(ctx, trackingNumber)
	}
	return &service.TrackingInfo{
		Request: &entity.DocumentRequest{TrackingNumber: trackingNumber, Status: entity.StatusPending},
	}, nil
}

func (m *mockRequestService) List(ctx context.Context, filter port.RequestFilter) ([]*entity.DocumentRequest, error) {
	return []*entity.DocumentRequest{}, nil
}

func (m *mockRequestService) History(ctx context.Context, id int64) ([]*entity.StatusHistoryEntry, error) {
	return []*entity.StatusHistoryEntry{}, nil
}

func (m *mockRequestService) GetViewState(ctx context.Context, id int64) (*view.State, error) {
	req, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	state := view.Resolve(req)
	return &state, nil
}

func (m *mockRequestService) VerifyPayment(ctx context.Context, id int64, actor string) (*entity.DocumentRequest, error) {
	if m.transitionFunc != nil {
		return m.transitionFunc(id, actor)
	}
	return &entity.DocumentRequest{ID: id}, nil
}

func (m *mockRequestService) RejectPayment(ctx context.Context, id int64, actor, reason string) (*entity.DocumentRequest, error) {
	if m.rejectFunc != nil {
		return m.rejectFunc(id, actor, reason)
	}
	return &entity.DocumentRequest{ID: id}, nil
}

func (m *mockRequestService) ApproveDocuments(ctx context.Context, id int64, actor string) (*entity.DocumentRequest, error) {
	if m.transitionFunc != nil {
		return m.transitionFunc(id, actor)
	}
	return &entity.DocumentRequest{ID: id}, nil
}

func (m *mockRequestService) RejectDocuments(ctx context.Context, id int64, actor, reason string) (*entity.DocumentRequest, error) {
	if m.rejectFunc != nil {
		return m.rejectFunc(id, actor, reason)
	}
	return &entity.DocumentRequest{ID: id}, nil
}

func (m *mockRequestService) StartGeneration(ctx context.Context, id int64, actor string) (*entity.DocumentRequest, error) {
	if m.transitionFunc != nil {
		return m.transitionFunc(id, actor)
	}
	return &entity.DocumentRequest{ID: id}, nil
}

func (m *mockRequestService) MarkReadyForPickup(ctx context.Context, id int64, actor, generatedURL string) (*entity.DocumentRequest, error) {
	if m.transitionFunc != nil {
		return m.transitionFunc(id, actor)
	}
	return &entity.DocumentRequest{ID: id}, nil
}

func (m *mockRequestService) Complete(ctx context.Context, id int64, actor string) (*entity.DocumentRequest, error) {
	if m.transitionFunc != nil {
		return m.transitionFunc(id, actor)
	}
	return &entity.DocumentRequest{ID: id}, nil
}

func (m *mockRequestService) PreviewDocument(ctx context.Context, id int64) (map[string]string, error) {
	return map[string]string{}, nil
}

func (m *mockRequestService) UploadPaymentProof(ctx context.Context, id int64, input service.UploadInput) (string, error) {
	if m.uploadProofFunc != nil {
		return m.uploadProofFunc(ctx, id, input)
	}
	return "requests/1/payment-proof/x.jpg", nil
}

func (m *mockRequestService) UploadSupportingDocument(ctx context.Context, id int64, input service.UploadInput) (string, error) {
	return "requests/1/documents/x.pdf", nil
}

func (m *mockRequestService) BulkDelete(ctx context.Context, ids []int64) []service.BulkDeleteResult {
	if m.bulkDeleteFunc != nil {
		return m.bulkDeleteFunc(ctx, ids)
	}
	return nil
}

func (m *mockRequestService) Stats(ctx context.Context) (map[string]int, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx)
	}
	return map[string]int{}, nil
}

type mockReportService struct{}

func (m *mockReportService) ExportRegister(ctx context.Context, from, to time.Time) ([]byte, error) {
	return []byte("workbook"), nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestServer(svc service.RequestService) *Server {
	return NewServer(DefaultServerConfig(), svc, &mockReportService{}, nopLogger{})
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func validSubmitBody() map[string]interface{} {
	return map[string]interface{}{
		"resident_name":    "Juan Dela Cruz",
		"resident_contact": "09171234567",
		"resident_address": "123 Sampaguita St",
		"purpose":          "employment",
		"document_type":    "barangay_clearance",
		"amount":           "50",
		"payment_method":   "walkin",
	}
}

func TestSubmitEndpoint(t *testing.T) {
	t.Run("valid submission", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{})

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requests", validSubmitBody())

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, decode(t, rec).Success)
	})

	t.Run("missing fields", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{})
		body := validSubmitBody()
		delete(body, "resident_name")

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requests", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown document type", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{})
		body := validSubmitBody()
		body["document_type"] = "passport"

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requests", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed amount", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{})
		body := validSubmitBody()
		body["amount"] = "fifty pesos"

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requests", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid contact number maps to 400 validation", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{
			submitFunc: func(ctx context.Context, input service.SubmitInput) (*entity.DocumentRequest, error) {
				return nil, fmt.Errorf("%w: 12345", utils.ErrInvalidContactNumber)
			},
		})

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requests", validSubmitBody())

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation", decode(t, rec).Code)
	})
}

func TestTrackEndpoint(t *testing.T) {
	t.Run("valid tracking number", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{})

		rec := doJSON(t, srv, http.MethodGet, "/api/v1/track/BRGY-A1B2C3D4E5", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("malformed tracking number", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{})

		rec := doJSON(t, srv, http.MethodGet, "/api/v1/track/garbage", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown tracking number", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{
			trackFunc: func(ctx context.Context, trackingNumber string) (*service.TrackingInfo, error) {
				return nil, appwf.ErrRequestNotFound
			},
		})

		rec := doJSON(t, srv, http.MethodGet, "/api/v1/track/BRGY-ZZZZZZZZZZ", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decode(t, rec).Code)
	})
}

func TestTransitionErrorMapping(t *testing.T) {
	t.Run("guard violation maps to 409", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{
			transitionFunc: func(id int64, actor string) (*entity.DocumentRequest, error) {
				return nil, domainwf.ErrGuardFailed
			},
		})

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requests/1/verify-payment", nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "guard_violation", decode(t, rec).Code)
	})

	t.Run("concurrent change maps to conflict", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{
			transitionFunc: func(id int64, actor string) (*entity.DocumentRequest, error) {
				return nil, port.ErrConflict
			},
		})

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requests/1/complete", nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "conflict", decode(t, rec).Code)
	})

	t.Run("missing rejection reason maps to 400", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{
			rejectFunc: func(id int64, actor, reason string) (*entity.DocumentRequest, error) {
				return nil, appwf.ErrReasonRequired
			},
		})

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requests/1/reject", map[string]string{"reason": ""})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("actor from header reaches the service", func(t *testing.T) {
		var gotActor string
		srv := newTestServer(&mockRequestService{
			transitionFunc: func(id int64, actor string) (*entity.DocumentRequest, error) {
				gotActor = actor
				return &entity.DocumentRequest{ID: id}, nil
			},
		})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/1/approve", bytes.NewReader(nil))
		req.Header.Set("X-Staff-Name", "kap. reyes")
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "kap. reyes", gotActor)
	})

	t.Run("invalid id", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{})

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requests/abc/approve", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUploadEndpoint(t *testing.T) {
	t.Run("multipart payment proof", func(t *testing.T) {
		var gotInput service.UploadInput
		srv := newTestServer(&mockRequestService{
			uploadProofFunc: func(ctx context.Context, id int64, input service.UploadInput) (string, error) {
				gotInput = input
				return "requests/1/payment-proof/x.jpg", nil
			},
		})

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "proof.jpg")
		require.NoError(t, err)
		_, err = fw.Write([]byte("jpeg-bytes"))
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("reference_number", "GC-123"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/1/payment-proof", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "proof.jpg", gotInput.FileName)
		assert.Equal(t, "GC-123", gotInput.ReferenceNumber)
	})

	t.Run("missing file", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{})

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requests/1/documents", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBulkDeleteEndpoint(t *testing.T) {
	t.Run("returns per-id results", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{
			bulkDeleteFunc: func(ctx context.Context, ids []int64) []service.BulkDeleteResult {
				return []service.BulkDeleteResult{
					{ID: 1, Deleted: true},
					{ID: 2, Error: "request is not in a terminal status"},
				}
			},
		})

		rec := doJSON(t, srv, http.MethodDelete, "/api/v1/requests", map[string]interface{}{"ids": []int64{1, 2}})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "not in a terminal status"))
	})

	t.Run("empty id list rejected", func(t *testing.T) {
		srv := newTestServer(&mockRequestService{})

		rec := doJSON(t, srv, http.MethodDelete, "/api/v1/requests", map[string]interface{}{"ids": []int64{}})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(&mockRequestService{
		statsFunc: func(ctx context.Context) (map[string]int, error) {
			return map[string]int{entity.StatusPending: 3, entity.StatusCompleted: 7}, nil
		},
	})

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/stats", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending":3`)
}

func TestReportEndpoint(t *testing.T) {
	srv := newTestServer(&mockRequestService{})

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/reports/requests.xlsx?from=2026-08-01&to=2026-09-01", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "requests.xlsx")
}
