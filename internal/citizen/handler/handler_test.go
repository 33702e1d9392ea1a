package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
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

	"civitas/internal/citizen/handler/mocks"
	"civitas/internal/citizen/models"
	"civitas/internal/citizen/service"
	protocol "civitas/internal/protocol/models"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/middleware/auth"
	"civitas/pkg/platform/middleware/request"
	"civitas/pkg/testutil"
)

// =============================================================================
// Citizen Handler Test Suite
// =============================================================================
// Justification for unit tests: routing, body validation and error mapping
// live here. Link and household rules are covered by the service suite.

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
	req := testutil.AsActor(testutil.NewJSONRequest(s.T(), method, path, body), actorID, role)
	return testutil.DoRequest(s.router, req)
}

func decodeBody(s *HandlerSuite, rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
	return body
}

// =============================================================================
// Protocol links
// =============================================================================

func (s *HandlerSuite) TestLink() {
	clerk := id.UserID(uuid.New())
	pid := id.ProtocolID(uuid.New())
	child := id.CitizenID(uuid.New())
	path := "/protocols/" + pid.String() + "/links"

	s.Run("creates a link", func() {
		s.service.EXPECT().
			Link(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, in service.LinkInput, a protocol.Actor) (*models.CitizenLink, error) {
				s.Equal(pid, in.ProtocolID)
				s.Equal(child, in.CitizenID)
				s.Equal(models.LinkGuardian, in.LinkType)
				s.Equal(models.RoleBeneficiary, in.Role)
				s.Equal("school", in.ContextData["institution"])
				s.Equal(protocol.RoleClerk, a.Role)
				return models.NewCitizenLink(id.LinkID(uuid.New()), pid, child, in.LinkType, in.Role, "mother", in.ContextData, time.Now())
			})

		body := map[string]any{
			"linkedCitizenId": child.String(),
			"linkType":        "GUARDIAN",
			"role":            "beneficiary",
			"relationship":    "mother",
			"contextData":     map[string]any{"institution": "school"},
		}
		rec := s.do(http.MethodPost, path, body, clerk, "clerk")
		s.Equal(http.StatusCreated, rec.Code)
		got := decodeBody(s, rec)
		s.Equal("guardian", got["linkType"])
		s.Equal(child.String(), got["linkedCitizenId"])
		s.Equal(false, got["isVerified"])
	})

	s.Run("unknown link type is rejected before the service", func() {
		body := map[string]any{"linkedCitizenId": child.String(), "linkType": "cousin", "role": "beneficiary"}
		rec := s.do(http.MethodPost, path, body, clerk, "clerk")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("missing citizen", func() {
		body := map[string]any{"linkType": "student", "role": "beneficiary"}
		rec := s.do(http.MethodPost, path, body, clerk, "clerk")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("anonymous caller", func() {
		body := map[string]any{"linkedCitizenId": child.String(), "linkType": "student", "role": "beneficiary"}
		rec := s.do(http.MethodPost, path, body, id.UserID{}, "")
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("duplicate link is a conflict", func() {
		s.service.EXPECT().
			Link(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "citizen already linked with this type"))

		body := map[string]any{"linkedCitizenId": child.String(), "linkType": "student", "role": "beneficiary"}
		rec := s.do(http.MethodPost, path, body, clerk, "clerk")
		s.Equal(http.StatusConflict, rec.Code)
		s.Equal("conflict", decodeBody(s, rec)["error"])
	})
}

func (s *HandlerSuite) TestListLinks() {
	clerk := id.UserID(uuid.New())
	pid := id.ProtocolID(uuid.New())

	s.Run("empty list renders as array", func() {
		s.service.EXPECT().Links(gomock.Any(), pid, gomock.Any()).Return(nil, nil)

		rec := s.do(http.MethodGet, "/protocols/"+pid.String()+"/links", nil, clerk, "clerk")
		s.Equal(http.StatusOK, rec.Code)
		s.Equal([]any{}, decodeBody(s, rec)["links"])
	})

	s.Run("invalid protocol id", func() {
		rec := s.do(http.MethodGet, "/protocols/not-a-uuid/links", nil, clerk, "clerk")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestVerifyAndUnlink() {
	clerk := id.UserID(uuid.New())
	linkID := id.LinkID(uuid.New())

	s.Run("verify", func() {
		s.service.EXPECT().
			Verify(gomock.Any(), linkID, gomock.Any()).
			DoAndReturn(func(_ any, _ id.LinkID, a protocol.Actor) (*models.CitizenLink, error) {
				now := time.Now()
				return &models.CitizenLink{ID: linkID, LinkType: models.LinkGuardian, IsVerified: true, VerifiedAt: &now, VerifiedBy: &a.ID}, nil
			})

		rec := s.do(http.MethodPost, "/links/"+linkID.String()+"/verify", nil, clerk, "clerk")
		s.Equal(http.StatusOK, rec.Code)
		got := decodeBody(s, rec)
		s.Equal(true, got["isVerified"])
		s.Equal(clerk.String(), got["verifiedBy"])
	})

	s.Run("citizen may not verify", func() {
		s.service.EXPECT().
			Verify(gomock.Any(), linkID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "only staff may verify links"))

		rec := s.do(http.MethodPost, "/links/"+linkID.String()+"/verify", nil, id.UserID(uuid.New()), "citizen")
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("unlink", func() {
		s.service.EXPECT().Unlink(gomock.Any(), linkID, gomock.Any()).Return(nil)

		rec := s.do(http.MethodDelete, "/links/"+linkID.String(), nil, clerk, "clerk")
		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("unlink unknown", func() {
		s.service.EXPECT().
			Unlink(gomock.Any(), linkID, gomock.Any()).
			Return(dErrors.New(dErrors.CodeNotFound, "link not found"))

		rec := s.do(http.MethodDelete, "/links/"+linkID.String(), nil, clerk, "clerk")
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *HandlerSuite) TestCitizenLinks() {
	citizen := id.UserID(uuid.New())
	path := "/citizens/" + citizen.String() + "/links"

	s.Run("type filter accepts lists and repeats", func() {
		s.service.EXPECT().
			CitizenLinks(gomock.Any(), id.CitizenID(citizen), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, _ id.CitizenID, types []models.LinkType, _ protocol.Actor) ([]*models.CitizenLink, error) {
				s.Equal([]models.LinkType{models.LinkStudent, models.LinkGuardian, models.LinkDependent}, types)
				return []*models.CitizenLink{{ID: id.LinkID(uuid.New()), LinkType: models.LinkStudent}}, nil
			})

		rec := s.do(http.MethodGet, path+"?type=student,guardian&type=dependent", nil, citizen, "citizen")
		s.Equal(http.StatusOK, rec.Code)
		s.Len(decodeBody(s, rec)["links"], 1)
	})

	s.Run("no filter", func() {
		s.service.EXPECT().
			CitizenLinks(gomock.Any(), id.CitizenID(citizen), gomock.Nil(), gomock.Any()).
			Return([]*models.CitizenLink{}, nil)

		rec := s.do(http.MethodGet, path, nil, citizen, "citizen")
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("unknown filter type", func() {
		rec := s.do(http.MethodGet, path+"?type=neighbour", nil, citizen, "citizen")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

// =============================================================================
// Household
// =============================================================================

func (s *HandlerSuite) TestFamily() {
	head := id.UserID(uuid.New())
	member := id.CitizenID(uuid.New())
	base := "/citizens/" + head.String() + "/family"

	s.Run("add member", func() {
		s.service.EXPECT().
			AddFamilyMember(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, in service.FamilyInput, _ protocol.Actor) (*models.FamilyMember, error) {
				s.Equal(id.CitizenID(head), in.HeadID)
				s.Equal(member, in.MemberID)
				s.Equal("child", in.Relationship)
				s.True(in.IsDependent)
				return models.NewFamilyMember(id.FamilyEdgeID(uuid.New()), in.HeadID, in.MemberID, in.Relationship, in.IsDependent, time.Now())
			})

		body := map[string]any{"memberId": member.String(), "relationship": " child ", "isDependent": true}
		rec := s.do(http.MethodPost, base, body, head, "citizen")
		s.Equal(http.StatusCreated, rec.Code)
		s.Equal(member.String(), decodeBody(s, rec)["memberId"])
	})

	s.Run("relationship required", func() {
		body := map[string]any{"memberId": member.String(), "relationship": "  "}
		rec := s.do(http.MethodPost, base, body, head, "citizen")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("composition", func() {
		avg := 27.5
		s.service.EXPECT().
			FamilyComposition(gomock.Any(), id.CitizenID(head), gomock.Any()).
			Return(&models.Composition{
				Head:         models.MemberView{CitizenID: id.CitizenID(head), FullName: "Ana"},
				Members:      []models.MemberView{{CitizenID: member, Relationship: "child", IsDependent: true}},
				TotalMembers: 2, TotalDependents: 1, AverageAge: &avg,
			}, nil)

		rec := s.do(http.MethodGet, base, nil, head, "citizen")
		s.Equal(http.StatusOK, rec.Code)
		got := decodeBody(s, rec)
		s.Equal(2.0, got["totalMembers"])
		s.Equal(27.5, got["averageAge"])
		s.NotContains(got, "directoryIncomplete")
	})

	s.Run("directory timeout surfaces as gateway timeout", func() {
		s.service.EXPECT().
			FamilyComposition(gomock.Any(), id.CitizenID(head), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeTimeout, "family composition timed out"))

		rec := s.do(http.MethodGet, base, nil, head, "citizen")
		s.Equal(http.StatusGatewayTimeout, rec.Code)
	})

	s.Run("remove member", func() {
		s.service.EXPECT().RemoveFamilyMember(gomock.Any(), id.CitizenID(head), member, gomock.Any()).Return(nil)

		rec := s.do(http.MethodDelete, base+"/"+member.String(), nil, head, "citizen")
		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("remove with malformed member id", func() {
		rec := s.do(http.MethodDelete, base+"/nope", nil, head, "citizen")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}
