package endpoints

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luminet-Displays/luminet/internal/live"
	"github.com/Luminet-Displays/luminet/internal/model"
	"github.com/Luminet-Displays/luminet/internal/registry"
	"github.com/Luminet-Displays/luminet/internal/transport"
)

type liveStoreStub struct{ nextID int }

func (s *liveStoreStub) CreateLiveSession(ownerID int, title string, emergency bool, targets []int) (model.LiveSession, error) {
	s.nextID++
	return model.LiveSession{
		ID:        s.nextID,
		CreatedBy: ownerID,
		Title:     title,
		Emergency: emergency,
		Status:    model.LiveSessionActive,
		StartedAt: time.Now().UTC(),
	}, nil
}

func (s *liveStoreStub) HasActiveEmergencySession(int) (bool, error) { return false, nil }

func (s *liveStoreStub) EndLiveSession(int, time.Time, string) error { return nil }

func (s *liveStoreStub) AddLiveSessionViewer(int, int, time.Time) (int, error) { return 1, nil }
func (s *liveStoreStub) CloseLiveSessionViewer(int, int, time.Time) (int, error) {
	return 0, nil
}
func (s *liveStoreStub) SetViewerQuality(int, int, string) error { return nil }

func (s *liveStoreStub) RecordLiveSessionEvent(int, string, *string) error { return nil }

type noopPusher struct{}

func (noopPusher) Push(string, transport.Message) error { return nil }

type fakeSessionAuthority map[string]int

func (f fakeSessionAuthority) SessionUser(id string) (int, bool) {
	uid, ok := f[id]
	return uid, ok
}

func startCtx(body string) *gin.Context {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest(http.MethodPost, "/live", strings.NewReader(body))
	ctx.Request.Header.Set("Content-Type", "application/json")
	return ctx
}

func liveModuleForTest() *LiveModule {
	coord := live.New(&liveStoreStub{}, registry.New(), noopPusher{}, noopPusher{})
	return &LiveModule{
		Coordinator: coord,
		Sessions:    fakeSessionAuthority{"my-dash": 1, "their-dash": 99},
	}
}

func TestStartLiveSession_RejectsForeignTransportSession(t *testing.T) {
	m := liveModuleForTest()
	user := &model.User{ID: 1}

	_, apiErr := m.start(startCtx(`{"title":"show","transport_session":"their-dash"}`), user)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Code)

	_, apiErr = m.start(startCtx(`{"title":"show","transport_session":"gone"}`), user)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Code)
}

func TestStartLiveSession_AcceptsOwnTransportSession(t *testing.T) {
	m := liveModuleForTest()
	user := &model.User{ID: 1}

	out, apiErr := m.start(startCtx(`{"title":"show","transport_session":"my-dash"}`), user)
	require.Nil(t, apiErr)
	require.NotNil(t, out)
}

func TestStartLiveSession_AllowsDetachedStart(t *testing.T) {
	m := liveModuleForTest()
	user := &model.User{ID: 1}

	// no transport session: the broadcast is managed over HTTP only
	out, apiErr := m.start(startCtx(`{"title":"show"}`), user)
	require.Nil(t, apiErr)
	require.NotNil(t, out)
}
