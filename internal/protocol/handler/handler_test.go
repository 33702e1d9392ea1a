package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"civitas/internal/protocol/handler/mocks"
	"civitas/internal/protocol/models"
	"civitas/internal/protocol/service"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/middleware/auth"
	"civitas/pkg/platform/middleware/request"
)

// =============================================================================
// Protocol Handler Test Suite
// =============================================================================
// Justification for unit tests: the handler owns actor resolution, request
// validation and error-to-status mapping. The lifecycle itself is covered by
// the service suite, so the service is mocked here.

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(auth.Actor(logger))
	New(s.service, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, path string, body any, actorID id.UserID, role string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if !actorID.IsNil() {
		req.Header.Set(auth.HeaderActorID, actorID.String())
		req.Header.Set(auth.HeaderActorRole, role)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(s *HandlerSuite, rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
	return body
}

// =============================================================================
// Submission
// =============================================================================

func (s *HandlerSuite) TestSubmit() {
	serviceID := id.ServiceID(uuid.New())
	citizen := id.UserID(uuid.New())

	s.Run("citizen submits as themselves", func() {
		s.service.EXPECT().
			Submit(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, in service.SubmitInput) (*service.SubmitResult, error) {
				s.Equal(serviceID, in.ServiceID)
				s.Require().NotNil(in.CitizenID)
				s.Equal(id.CitizenID(citizen), *in.CitizenID)
				return &service.SubmitResult{TrackingNumber: "PROT-2025-00001", RecordNumber: "BO-2025-00001"}, nil
			})

		body := map[string]any{
			"serviceId": serviceID.String(),
			"citizenId": uuid.NewString(),
			"data":      map[string]any{"type": "theft"},
		}
		rec := s.do(http.MethodPost, "/protocols", body, citizen, "citizen")
		s.Equal(http.StatusCreated, rec.Code)
		s.Equal("PROT-2025-00001", decodeBody(s, rec)["trackingNumber"])
	})

	s.Run("anonymous caller has no citizen", func() {
		s.service.EXPECT().
			Submit(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, in service.SubmitInput) (*service.SubmitResult, error) {
				s.Nil(in.CitizenID)
				return &service.SubmitResult{TrackingNumber: "PROT-2025-00002", FeedbackCode: "AB12CD34"}, nil
			})

		rec := s.do(http.MethodPost, "/protocols", map[string]any{"serviceId": serviceID.String()}, id.UserID{}, "")
		s.Equal(http.StatusCreated, rec.Code)
		s.Equal("AB12CD34", decodeBody(s, rec)["feedbackCode"])
	})

	s.Run("invalid service id never reaches the service", func() {
		rec := s.do(http.MethodPost, "/protocols", map[string]any{"serviceId": "nope"}, citizen, "citizen")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("missing handler maps to 404", func() {
		s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeHandlerNotFound, "no handler registered for health/appointment"))

		rec := s.do(http.MethodPost, "/protocols", map[string]any{"serviceId": serviceID.String()}, citizen, "citizen")
		s.Equal(http.StatusNotFound, rec.Code)
		s.Equal("handler_not_found", decodeBody(s, rec)["error"])
	})

	s.Run("exhausted number retries map to 503", func() {
		s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "try again"))

		rec := s.do(http.MethodPost, "/protocols", map[string]any{"serviceId": serviceID.String()}, citizen, "citizen")
		s.Equal(http.StatusServiceUnavailable, rec.Code)
	})
}

// =============================================================================
// Transitions
// =============================================================================

func (s *HandlerSuite) TestDecisions() {
	pid := id.ProtocolID(uuid.New())
	clerk := id.UserID(uuid.New())
	path := "/protocols/" + pid.String()

	s.Run("approve without body", func() {
		s.service.EXPECT().
			Approve(gomock.Any(), service.Decision{ProtocolID: pid, Actor: models.Actor{ID: clerk, Role: models.RoleClerk}}).
			Return(&models.Protocol{ID: pid, TrackingNumber: "PROT-2025-00003", Status: models.StatusApproved}, nil)

		rec := s.do(http.MethodPost, path+"/approve", nil, clerk, "clerk")
		s.Equal(http.StatusOK, rec.Code)
		s.Equal("APPROVED", decodeBody(s, rec)["status"])
	})

	s.Run("document gate maps to 422", func() {
		s.service.EXPECT().Approve(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeDocumentsPending, "1 pending"))

		rec := s.do(http.MethodPost, path+"/approve", nil, clerk, "clerk")
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
	})

	s.Run("reject forwards the reason", func() {
		s.service.EXPECT().
			Reject(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, d service.Decision) (*models.Protocol, error) {
				s.Equal("duplicate request", d.Reason)
				return &models.Protocol{ID: pid, Status: models.StatusRejected}, nil
			})

		rec := s.do(http.MethodPost, path+"/reject", map[string]string{"reason": "  duplicate request "}, clerk, "manager")
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("invalid transition maps to 409", func() {
		s.service.EXPECT().Complete(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidTransition, "cannot move"))

		rec := s.do(http.MethodPost, path+"/complete", nil, clerk, "clerk")
		s.Equal(http.StatusConflict, rec.Code)
	})
}

// =============================================================================
// Actor resolution
// =============================================================================

func (s *HandlerSuite) TestActorResolution() {
	path := "/protocols/" + uuid.NewString()

	s.Run("missing actor is unauthorized", func() {
		rec := s.do(http.MethodGet, path, nil, id.UserID{}, "")
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("system role cannot be asserted", func() {
		rec := s.do(http.MethodGet, path, nil, id.UserID(uuid.New()), "system")
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("malformed actor header is rejected by middleware", func() {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(auth.HeaderActorID, "not-a-uuid")
		req.Header.Set(auth.HeaderActorRole, "clerk")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("invalid protocol id", func() {
		rec := s.do(http.MethodGet, "/protocols/123", nil, id.UserID(uuid.New()), "clerk")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("forbidden from service", func() {
		s.service.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "role \"citizen\" may not read this protocol"))
		rec := s.do(http.MethodGet, path, nil, id.UserID(uuid.New()), "citizen")
		s.Equal(http.StatusForbidden, rec.Code)
	})
}

// =============================================================================
// Documents, pendencies and comments
// =============================================================================

func (s *HandlerSuite) TestDocuments() {
	pid := id.ProtocolID(uuid.New())
	docID := id.DocumentID(uuid.New())
	clerk := id.UserID(uuid.New())
	base := "/protocols/" + pid.String() + "/documents"

	s.Run("request document", func() {
		s.service.EXPECT().
			RequestDocument(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req service.DocumentRequest) (*models.Document, error) {
				s.Equal("comprovante_residencia", req.Type)
				s.False(req.Optional)
				return &models.Document{ID: docID, ProtocolID: pid, Type: req.Type, Required: true, Status: models.DocumentPending}, nil
			})
		rec := s.do(http.MethodPost, base, map[string]any{"documentType": "comprovante_residencia"}, clerk, "clerk")
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("review requires an explicit decision", func() {
		rec := s.do(http.MethodPost, base+"/"+docID.String()+"/review", map[string]any{"reason": "blurry"}, clerk, "clerk")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("review rejects with reason", func() {
		s.service.EXPECT().
			ReviewDocument(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, rv service.DocumentReview) (*models.Document, error) {
				s.False(rv.Approve)
				s.Equal("blurry", rv.Reason)
				return &models.Document{ID: docID, Status: models.DocumentRejected}, nil
			})
		rec := s.do(http.MethodPost, base+"/"+docID.String()+"/review", map[string]any{"approve": false, "reason": "blurry"}, clerk, "clerk")
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("upload", func() {
		s.service.EXPECT().AttachUpload(gomock.Any(), service.DocumentUpload{
			ProtocolID: pid, DocumentID: docID, Actor: models.Actor{ID: clerk, Role: models.RoleCitizen}, FileRef: "s3://bucket/rg.pdf",
		}).Return(&models.Document{ID: docID, Status: models.DocumentUploaded}, nil)
		rec := s.do(http.MethodPut, base+"/"+docID.String()+"/file", map[string]any{"fileRef": "s3://bucket/rg.pdf"}, clerk, "citizen")
		s.Equal(http.StatusOK, rec.Code)
	})
}

func (s *HandlerSuite) TestPendenciesAndComments() {
	pid := id.ProtocolID(uuid.New())
	clerk := id.UserID(uuid.New())
	base := "/protocols/" + pid.String()

	s.Run("invalid priority", func() {
		rec := s.do(http.MethodPost, base+"/pendencies", map[string]any{"description": "x", "priority": "critical"}, clerk, "clerk")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("create pendency", func() {
		due := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		s.service.EXPECT().
			CreatePendency(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req service.PendencyRequest) (*models.Pendency, error) {
				s.Equal(id.PriorityHigh, req.Priority)
				s.Require().NotNil(req.DueDate)
				s.True(due.Equal(*req.DueDate))
				return &models.Pendency{ProtocolID: pid, Description: req.Description, Priority: req.Priority}, nil
			})
		rec := s.do(http.MethodPost, base+"/pendencies",
			map[string]any{"description": "Enviar laudo", "priority": "HIGH", "dueDate": due}, clerk, "clerk")
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("empty comment", func() {
		rec := s.do(http.MethodPost, base+"/comments", map[string]any{"message": "   "}, clerk, "clerk")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("internal note", func() {
		s.service.EXPECT().AddComment(gomock.Any(), pid, gomock.Any(), "check address", true).
			Return(&models.Interaction{Kind: models.InteractionComment, Internal: true}, nil)
		rec := s.do(http.MethodPost, base+"/comments", map[string]any{"message": "check address", "internal": true}, clerk, "clerk")
		s.Equal(http.StatusCreated, rec.Code)
	})
}

func (s *HandlerSuite) TestTipStatus() {
	s.Run("no actor needed", func() {
		s.service.EXPECT().TipStatus(gomock.Any(), "ab12cd34").
			Return(&service.TipStatus{Number: "DEN-2025-00001", Status: "investigating"}, nil)
		rec := s.do(http.MethodGet, "/tips/ab12cd34", nil, id.UserID{}, "")
		s.Equal(http.StatusOK, rec.Code)
		s.Equal("investigating", decodeBody(s, rec)["status"])
	})

	s.Run("unknown code", func() {
		s.service.EXPECT().TipStatus(gomock.Any(), "ZZZZZZZZ").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "feedback code not found"))
		rec := s.do(http.MethodGet, "/tips/ZZZZZZZZ", nil, id.UserID{}, "")
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *HandlerSuite) TestAnonymousLimits() {
	reject := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	r := chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithSubmitLimit(reject),
		WithTipLookupLimit(reject),
	).Register(r)

	// The service mock has no expectations, so reaching it fails the test.
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/tips/AB12CD34", nil),
		httptest.NewRequest(http.MethodPost, "/protocols", bytes.NewReader([]byte(`{}`))),
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		s.Equal(http.StatusTooManyRequests, rec.Code, req.URL.Path)
	}
}
