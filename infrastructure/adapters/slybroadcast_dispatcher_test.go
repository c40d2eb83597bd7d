package adapters

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/config"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func newTestDispatcher(t *testing.T, handler http.HandlerFunc) outbound.DeliveryDispatcherPort {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := NewZerologWrapper()
	conf := &config.GatewayConfig{
		ApiUrl:   server.URL + "/gateway/vmb.php",
		Username: "user@example.com",
		Password: "s3cret",
		Location: time.FixedZone("EST", -5*60*60),
	}
	return NewSlybroadcastDispatcher(NewContentFetcher(logger, server.Client()), conf, logger)
}

func testDispatchRequest() outbound.DispatchRequest {
	return outbound.DispatchRequest{
		AudioURL:      "https://b.s3.amazonaws.com/5551234567-run-1.mp3",
		PhoneNumber:   "5551234567",
		CallerID:      "8148261207",
		ScheduledAt:   time.Date(2024, 3, 1, 15, 2, 0, 0, time.UTC),
		AudioFormat:   "Mp3",
		CampaignTitle: "test_campaign",
	}
}

func TestSlybroadcastDispatcher_Dispatch(t *testing.T) {
	var form url.Values
	dispatcher := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = w.Write([]byte("OK\nsession_id=4455667788\nnumber of phone=1\n"))
	})

	ack, err := dispatcher.Dispatch(context.Background(), testDispatchRequest())
	require.NoError(t, err)

	assert.Equal(t, "4455667788", ack.SessionID)
	assert.Equal(t, "user@example.com", form.Get("c_uid"))
	assert.Equal(t, "s3cret", form.Get("c_password"))
	assert.Equal(t, "https://b.s3.amazonaws.com/5551234567-run-1.mp3", form.Get("c_url"))
	assert.Equal(t, "5551234567", form.Get("c_phone"))
	assert.Equal(t, "8148261207", form.Get("c_callerID"))
	assert.Equal(t, "Mp3", form.Get("c_audio"))
	assert.Equal(t, "2024-03-01 10:02:00", form.Get("c_date"))
	assert.Equal(t, "test_campaign", form.Get("c_title"))
}

func TestSlybroadcastDispatcher_LogicalFailureOnHTTP200(t *testing.T) {
	dispatcher := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ERROR\nc_uid: invalid login\n"))
	})

	_, err := dispatcher.Dispatch(context.Background(), testDispatchRequest())

	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageDispatch, stageErr.Stage)
	assert.Equal(t, "rejected", stageErr.Reason)
	assert.NotContains(t, err.Error(), "s3cret")
}

func TestSlybroadcastDispatcher_GatewayStatus(t *testing.T) {
	dispatcher := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := dispatcher.Dispatch(context.Background(), testDispatchRequest())
	assert.True(t, domain.IsStageError(err, domain.StageDispatch))
}

func TestSlybroadcastDispatcher_UnreachableGatewayIsOutcomeUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	gatewayURL := server.URL + "/gateway/vmb.php"
	server.Close()

	logger := NewZerologWrapper()
	conf := &config.GatewayConfig{ApiUrl: gatewayURL, Username: "user@example.com", Password: "s3cret"}
	dispatcher := NewSlybroadcastDispatcher(NewContentFetcher(logger, http.DefaultClient), conf, logger)

	_, err := dispatcher.Dispatch(context.Background(), testDispatchRequest())

	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.ReasonOutcomeUnknown, stageErr.Reason)
	assert.True(t, domain.DispatchOutcomeUnknown(err))
}

func TestSlybroadcastDispatcher_RejectionIsNotOutcomeUnknown(t *testing.T) {
	dispatcher := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ERROR\nc_phone: invalid"))
	})

	_, err := dispatcher.Dispatch(context.Background(), testDispatchRequest())
	require.Error(t, err)
	assert.False(t, domain.DispatchOutcomeUnknown(err))
}

func TestParseGatewayAck(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   bool
		sessionID string
	}{
		{name: "ok with session", body: "OK\nsession_id=123\n", sessionID: "123"},
		{name: "ok lower case", body: "ok", sessionID: ""},
		{name: "error", body: "ERROR\nc_phone: invalid", wantErr: true},
		{name: "empty", body: "   ", wantErr: true},
		{name: "html", body: "<html>maintenance</html>", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack, err := ParseGatewayAck(tt.body)
			if tt.wantErr {
				assert.True(t, domain.IsStageError(err, domain.StageDispatch))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.sessionID, ack.SessionID)
		})
	}
}
