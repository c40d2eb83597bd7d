package adapters

import (
	"bufio"
	"context"
	"errors"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/config"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"net/http"
	"net/url"
	"strings"
)

// GatewayDateLayout is the c_date format the gateway expects.
const GatewayDateLayout = "2006-01-02 15:04:05"

type slybroadcastDispatcher struct {
	ContentFetcher
	logger        outbound.LoggerPort
	gatewayConfig *config.GatewayConfig
}

func NewSlybroadcastDispatcher(contentFetcher ContentFetcher, gatewayConfig *config.GatewayConfig, logger outbound.LoggerPort) outbound.DeliveryDispatcherPort {
	return &slybroadcastDispatcher{
		ContentFetcher: contentFetcher,
		logger:         logger,
		gatewayConfig:  gatewayConfig,
	}
}

func (d *slybroadcastDispatcher) Dispatch(ctx context.Context, req outbound.DispatchRequest) (domain.DispatchAck, error) {
	form := d.buildForm(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.gatewayConfig.ApiUrl, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.DispatchAck{}, domain.NewDispatchError("request", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	content, err := d.FetchContent(httpReq)
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) {
			return domain.DispatchAck{}, domain.NewDispatchError("gateway status", err)
		}
		return domain.DispatchAck{}, domain.NewDispatchError(domain.ReasonOutcomeUnknown, err)
	}

	ack, err := ParseGatewayAck(string(content.Payload))
	if err != nil {
		d.logger.WarnWithFields("Voicemail gateway refused the campaign", map[string]interface{}{
			"phone":    req.PhoneNumber,
			"response": ack.Raw,
		})
		return domain.DispatchAck{}, err
	}

	d.logger.InfoWithFields("Voicemail campaign accepted", map[string]interface{}{
		"phone":      req.PhoneNumber,
		"session_id": ack.SessionID,
		"c_date":     form.Get("c_date"),
	})
	return ack, nil
}

func (d *slybroadcastDispatcher) buildForm(req outbound.DispatchRequest) url.Values {
	scheduledAt := req.ScheduledAt
	if d.gatewayConfig.Location != nil {
		scheduledAt = scheduledAt.In(d.gatewayConfig.Location)
	}

	form := url.Values{}
	form.Set("c_uid", d.gatewayConfig.Username)
	form.Set("c_password", d.gatewayConfig.Password)
	form.Set("c_url", req.AudioURL)
	form.Set("c_phone", req.PhoneNumber)
	form.Set("c_callerID", req.CallerID)
	form.Set("c_audio", req.AudioFormat)
	form.Set("c_date", scheduledAt.Format(GatewayDateLayout))
	form.Set("c_title", req.CampaignTitle)
	return form
}

// ParseGatewayAck reads the plain-text acknowledgement. The first line is
// "OK" or "ERROR"; later lines are key=value pairs or error detail.
func ParseGatewayAck(body string) (domain.DispatchAck, error) {
	ack := domain.DispatchAck{Raw: strings.TrimSpace(body)}

	scanner := bufio.NewScanner(strings.NewReader(ack.Raw))
	if !scanner.Scan() {
		return ack, domain.NewDispatchError("empty acknowledgement", nil)
	}
	status := strings.ToUpper(strings.TrimSpace(scanner.Text()))

	var detail []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if key, value, ok := strings.Cut(line, "="); ok && strings.TrimSpace(key) == "session_id" {
			ack.SessionID = strings.TrimSpace(value)
			continue
		}
		detail = append(detail, line)
	}

	switch {
	case status == "OK":
		return ack, nil
	case strings.HasPrefix(status, "ERROR"):
		return ack, domain.NewDispatchError("rejected", errors.New(strings.Join(detail, "; ")))
	default:
		return ack, domain.NewDispatchError("unrecognized acknowledgement", nil)
	}
}
