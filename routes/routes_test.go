package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"metisconnect/config"
	"metisconnect/handlers"
	"metisconnect/models"
	"metisconnect/services/booking"
	"metisconnect/services/payment"
	"metisconnect/services/remote"
	"metisconnect/services/state"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

type bookingAPI struct {
	conflict      atomic.Bool
	creates       atomic.Int32
	statusUpdates atomic.Int32
	day           string
}

func (b *bookingAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/api/appointments/availability":
		fmt.Fprintf(w, `{"available_slots":[{"start_time":"%sT10:00:00","available":true},{"start_time":"%sT11:00:00","available":false}],"total_slots":2}`, b.day, b.day)
	case r.URL.Path == "/api/appointments" && r.Method == http.MethodPost:
		b.creates.Add(1)
		if b.conflict.Load() {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"Selected time slot is not available"}`))
			return
		}
		var req models.CreateAppointmentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		out := map[string]any{
			"id":                   1,
			"customer_name":        req.CustomerName,
			"customer_phone":       req.CustomerPhone,
			"appointment_datetime": req.AppointmentDatetime.Format("2006-01-02T15:04:05"),
			"service_type":         req.ServiceType,
			"service_duration":     req.ServiceDuration,
			"service_price":        req.ServicePrice,
			"requires_prepayment":  req.RequiresPrepayment,
			"status":               "pending",
		}
		_ = json.NewEncoder(w).Encode(out)
	case r.URL.Path == "/api/appointments" && r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`[]`))
	case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/status"):
		b.statusUpdates.Add(1)
		_, _ = w.Write([]byte(`{"message":"Status updated"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
	}
}

type fixture struct {
	router *gin.Engine
	api    *bookingAPI
	store  *state.MemoryStore
	flow   *booking.AppointmentFlow
	bundle *handlers.HandlerBundle
	day    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.AppConfig.AllowedOrigins = "http://localhost:3000"
	config.AppConfig.MaxRequestsPerMin = 1000

	hours, err := booking.ParseBusinessHours("Europe/Rome", "09:00", "18:00")
	if err != nil {
		t.Fatalf("hours: %v", err)
	}
	models.LocalZone = hours.Location
	day := time.Now().In(hours.Location).AddDate(0, 0, 1).Format("2006-01-02")

	api := &bookingAPI{day: day}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client := remote.NewClient(remote.Options{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second}, nil)
	store := state.NewMemoryStore(nil)
	resolver := booking.NewAvailabilityResolver(client, hours, zap.NewNop())
	flow := &booking.AppointmentFlow{
		Store:     store,
		Resolver:  resolver,
		Submitter: booking.NewBookingSubmitter(client, resolver, hours.Location, zap.NewNop()),
		Remote:    client,
		Logger:    zap.NewNop(),
	}

	bundle := &handlers.HandlerBundle{Flow: flow, Store: store}
	r := gin.New()
	RegisterRoutes(r, bundle)
	return &fixture{router: r, api: api, store: store, flow: flow, bundle: bundle, day: day}
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) draft() models.BookingDraft {
	return models.BookingDraft{
		CustomerName:  "Mario Rossi",
		CustomerPhone: "+39 333 123 4567",
		ServiceCode:   "haircut",
		Date:          f.day,
		Time:          "10:00",
	}
}

func TestListServices(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/services", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Services []models.ServiceOffering `json:"services"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Services) != 5 {
		t.Fatalf("expected 5 services, got %d", len(body.Services))
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/appointments/availability?date="+f.day+"&service=haircut", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Slots []models.TimeSlot `json:"available_slots"`
		Total int               `json:"total_slots"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 1 || len(body.Slots) != 1 || body.Slots[0].StartInstant.Hour() != 10 {
		t.Fatalf("expected the single 10:00 slot, got %+v", body)
	}
	if got := len(f.store.Snapshot().AvailableSlots); got != 1 {
		t.Fatalf("expected slots stored, got %d", got)
	}
}

func TestAvailabilityRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{
		"/api/appointments/availability?date=tomorrow&service=haircut",
		"/api/appointments/availability?date=" + f.day + "&service=massage",
	} {
		if w := f.do(http.MethodGet, path, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestCreateAppointmentValidationError(t *testing.T) {
	f := newFixture(t)
	d := f.draft()
	d.CustomerPhone = "abc"

	w := f.do(http.MethodPost, "/api/appointments", d)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body struct {
		Fields []booking.FieldError `json:"fields"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if len(body.Fields) != 1 || body.Fields[0].Field != "customerPhone" {
		t.Fatalf("expected customerPhone field error, got %+v", body.Fields)
	}
	if f.api.creates.Load() != 0 {
		t.Fatal("expected no call to the booking API")
	}
	if f.store.Snapshot().Error != "" {
		t.Fatal("expected global error flag untouched")
	}
}

func TestCreateAppointmentSuccess(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/appointments", f.draft())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	s := f.do(http.MethodGet, "/api/state", nil)
	var snap state.State
	if err := json.Unmarshal(s.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(snap.Appointments) != 1 || snap.Appointments[0].ID != "1" {
		t.Fatalf("expected appointment 1 in state, got %+v", snap.Appointments)
	}
	if snap.Appointments[0].ServicePrice != 25 {
		t.Fatalf("expected catalog price 25, got %v", snap.Appointments[0].ServicePrice)
	}
}

func TestCreateAppointmentConflict(t *testing.T) {
	f := newFixture(t)
	f.api.conflict.Store(true)

	w := f.do(http.MethodPost, "/api/appointments", f.draft())
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if f.store.Snapshot().Error == "" {
		t.Fatal("expected error flag set")
	}
}

func TestUpdateAppointmentStatus(t *testing.T) {
	f := newFixture(t)
	if w := f.do(http.MethodPost, "/api/appointments", f.draft()); w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w := f.do(http.MethodPut, "/api/appointments/1/status", map[string]string{"new_status": "completed"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if f.api.statusUpdates.Load() != 1 {
		t.Fatalf("expected one status call to the booking API, got %d", f.api.statusUpdates.Load())
	}
	if got := f.store.Snapshot().Appointments[0].Status; got != models.StatusCompleted {
		t.Fatalf("expected completed in state, got %s", got)
	}

	if w := f.do(http.MethodPut, "/api/appointments/1/status", map[string]string{"new_status": "archived"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: expected 400, got %d", w.Code)
	}
	if w := f.do(http.MethodPut, "/api/appointments/42/status", map[string]string{"new_status": "completed"}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown appointment: expected 404, got %d", w.Code)
	}
	if f.api.statusUpdates.Load() != 1 {
		t.Fatal("expected rejected requests not to reach the booking API")
	}
}

func TestDraftEndpoint(t *testing.T) {
	f := newFixture(t)
	if w := f.do(http.MethodPut, "/api/booking/draft", f.draft()); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if d := f.store.Snapshot().CurrentBooking; d == nil || d.CustomerName != "Mario Rossi" {
		t.Fatalf("expected stored draft, got %+v", d)
	}
}

func TestDisabledCapabilities(t *testing.T) {
	f := newFixture(t)
	if w := f.do(http.MethodPost, "/api/appointments/1/payment", nil); w.Code != http.StatusNotImplemented {
		t.Fatalf("payment: expected 501, got %d", w.Code)
	}
	if w := f.do(http.MethodPost, "/api/voice/transcribe", nil); w.Code != http.StatusNotImplemented {
		t.Fatalf("voice: expected 501, got %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	if w := f.do(http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", w.Code)
	}
	w := f.do(http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("metis_http_requests_total")) {
		t.Fatalf("metrics: expected request counter, got %d", w.Code)
	}
}

const webhookSecret = "whsec_test"

type stubProcessor struct {
	confirm *payment.ProcessorResult
	lookup  *payment.ProcessorResult
}

func (p *stubProcessor) RequestAuthorization(context.Context, payment.AuthorizationRequest) (*payment.Authorization, error) {
	return &payment.Authorization{Handle: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

func (p *stubProcessor) Confirm(context.Context, payment.ConfirmRequest) (*payment.ProcessorResult, error) {
	return p.confirm, nil
}

func (p *stubProcessor) Lookup(context.Context, string) (*payment.ProcessorResult, error) {
	return p.lookup, nil
}

// withPayments enables prepayment and books one prepaid appointment with
// an authorization already requested.
func (f *fixture) withPayments(t *testing.T, proc *stubProcessor) {
	t.Helper()
	f.flow.Payments = payment.NewWorkflow(proc, payment.NewMemoryHandleStore(), "http://localhost/return", zap.NewNop())
	f.bundle.WebhookSecret = webhookSecret

	d := f.draft()
	d.RequiresPrepayment = true
	if w := f.do(http.MethodPost, "/api/appointments", d); w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if w := f.do(http.MethodPost, "/api/appointments/1/payment", nil); w.Code != http.StatusOK {
		t.Fatalf("start payment: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func (f *fixture) webhook(eventType, handle, secret string) *httptest.ResponseRecorder {
	payload := []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":"2022-11-15","type":%q,
		"data":{"object":{"id":%q,"object":"payment_intent"}}}`, eventType, handle))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestConfirmPaymentSuccess(t *testing.T) {
	f := newFixture(t)
	f.withPayments(t, &stubProcessor{confirm: &payment.ProcessorResult{Outcome: models.OutcomeSucceeded}})

	w := f.do(http.MethodPost, "/api/appointments/1/payment/confirm", models.BillingDetails{Name: "Mario Rossi", PaymentMethod: "pm_card_visa"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Phase       payment.Phase      `json:"phase"`
		Appointment models.Appointment `json:"appointment"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Phase != payment.PhaseSucceeded || body.Appointment.Status != models.StatusConfirmed {
		t.Fatalf("expected succeeded/confirmed, got %s/%s", body.Phase, body.Appointment.Status)
	}
	if f.api.statusUpdates.Load() != 1 {
		t.Fatalf("expected one status sync, got %d", f.api.statusUpdates.Load())
	}
}

func TestConfirmPaymentDeclineReturns402(t *testing.T) {
	f := newFixture(t)
	f.withPayments(t, &stubProcessor{confirm: &payment.ProcessorResult{Outcome: models.OutcomeFailed, Message: "Your card was declined."}})

	w := f.do(http.MethodPost, "/api/appointments/1/payment/confirm", models.BillingDetails{Name: "Mario Rossi", PaymentMethod: "pm_card_chargeDeclined"})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Message != "Your card was declined." {
		t.Fatalf("expected processor message verbatim, got %q", body.Message)
	}
	if f.api.statusUpdates.Load() != 0 {
		t.Fatal("expected no status sync after a decline")
	}
}

func TestConfirmPaymentRequiresBilling(t *testing.T) {
	f := newFixture(t)
	f.withPayments(t, &stubProcessor{confirm: &payment.ProcessorResult{Outcome: models.OutcomeSucceeded}})

	if w := f.do(http.MethodPost, "/api/appointments/1/payment/confirm", map[string]string{"name": "Mario Rossi"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a payment method, got %d", w.Code)
	}
}

func TestPaymentReturn(t *testing.T) {
	f := newFixture(t)
	f.withPayments(t, &stubProcessor{lookup: &payment.ProcessorResult{Outcome: models.OutcomeSucceeded}})

	if w := f.do(http.MethodGet, "/api/payments/return", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing reference: expected 400, got %d", w.Code)
	}
	if w := f.do(http.MethodGet, "/api/payments/return?payment_intent=pi_unknown", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown handle: expected 404, got %d", w.Code)
	}
	w := f.do(http.MethodGet, "/api/payments/return?payment_intent=pi_test", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := f.store.Snapshot().Appointments[0].Status; got != models.StatusConfirmed {
		t.Fatalf("expected stored appointment confirmed, got %s", got)
	}
}

func TestPaymentWebhook(t *testing.T) {
	cases := []struct {
		name      string
		lookup    models.PaymentOutcome
		eventType string
		handle    string
		want      models.AppointmentStatus
	}{
		{"success confirms", models.OutcomeSucceeded, "payment_intent.succeeded", "pi_test", models.StatusConfirmed},
		{"decline is acknowledged", models.OutcomeFailed, "payment_intent.payment_failed", "pi_test", models.StatusPending},
		{"unknown handle is acknowledged", models.OutcomeSucceeded, "payment_intent.succeeded", "pi_other", models.StatusPending},
		{"other events are ignored", models.OutcomeSucceeded, "charge.refunded", "pi_test", models.StatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.withPayments(t, &stubProcessor{lookup: &payment.ProcessorResult{Outcome: tc.lookup, Message: "Your card was declined."}})
			f.store.Dispatch(state.SetError{Message: "Network error. Please check your connection and try again."})

			w := f.webhook(tc.eventType, tc.handle, webhookSecret)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			s := f.store.Snapshot()
			if got := s.Appointments[0].Status; got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
			if s.Error != "Network error. Please check your connection and try again." {
				t.Fatalf("expected the user's error flag untouched, got %q", s.Error)
			}
		})
	}
}

func TestPaymentWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	f.withPayments(t, &stubProcessor{lookup: &payment.ProcessorResult{Outcome: models.OutcomeSucceeded}})

	if w := f.webhook("payment_intent.succeeded", "pi_test", "whsec_forged"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if got := f.store.Snapshot().Appointments[0].Status; got != models.StatusPending {
		t.Fatalf("expected appointment untouched, got %s", got)
	}
}

func TestPaymentWebhookDisabledWithoutSecret(t *testing.T) {
	f := newFixture(t)
	f.withPayments(t, &stubProcessor{lookup: &payment.ProcessorResult{Outcome: models.OutcomeSucceeded}})
	f.bundle.WebhookSecret = ""

	if w := f.webhook("payment_intent.succeeded", "pi_test", ""); w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", w.Code)
	}
	if got := f.store.Snapshot().Appointments[0].Status; got != models.StatusPending {
		t.Fatalf("expected appointment untouched, got %s", got)
	}
}
