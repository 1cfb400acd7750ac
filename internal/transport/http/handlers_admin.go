package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	calendar "sahayak/internal/calendar/models"
	eligibilitycatalog "sahayak/internal/eligibility/catalog"
	eligibility "sahayak/internal/eligibility/models"
	timeline "sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/httputil"
	"sahayak/pkg/requestcontext"
)

const maxSchemeBytes = 1 << 20

type CalendarPublisher interface {
	Publish(ctx context.Context, cal calendar.HolidayCalendar) (calendar.HolidayCalendar, error)
}

type RulePublisher interface {
	Publish(ctx context.Context, rule timeline.Rule) (timeline.Rule, error)
}

type SchemeCatalog interface {
	Replace(rules []eligibility.SchemeRule) (*eligibilitycatalog.Snapshot, error)
}

// AdminHandler publishes reference data. Mounted behind the admin token.
type AdminHandler struct {
	calendars CalendarPublisher
	rules     RulePublisher
	schemes   SchemeCatalog
	logger    *slog.Logger
}

func NewAdminHandler(calendars CalendarPublisher, rules RulePublisher, schemes SchemeCatalog, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{calendars: calendars, rules: rules, schemes: schemes, logger: logger}
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Put("/admin/calendars/{jurisdiction}/{year}", h.handlePublishCalendar)
	r.Post("/admin/timeline-rules", h.handlePublishRule)
	r.Put("/admin/schemes", h.handleReplaceSchemes)
}

// HolidayRequest is one published holiday.
type HolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (h HolidayRequest) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Date, validation.Required, validation.Date(domain.DateLayout)),
		validation.Field(&h.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&h.Kind, validation.In(
			string(calendar.KindNational), string(calendar.KindRegional), string(calendar.KindOptional),
		)),
	)
}

// CalendarRequest is the body of PUT /admin/calendars/{jurisdiction}/{year}.
// It replaces the whole holiday set for that year.
type CalendarRequest struct {
	Holidays []HolidayRequest `json:"holidays"`
}

func (r *CalendarRequest) Validate() error {
	return fieldError(validation.ValidateStruct(r,
		validation.Field(&r.Holidays, validation.Length(0, 366)),
	))
}

func (r *CalendarRequest) toCalendar(jurisdiction domain.Jurisdiction, year int) (calendar.HolidayCalendar, error) {
	cal := calendar.HolidayCalendar{Jurisdiction: jurisdiction, Year: year, Holidays: make([]calendar.Holiday, len(r.Holidays))}
	for i, h := range r.Holidays {
		date, err := domain.ParseDate(h.Date)
		if err != nil {
			return calendar.HolidayCalendar{}, err
		}
		kind := calendar.HolidayKind(h.Kind)
		if kind == "" {
			kind = calendar.KindNational
		}
		cal.Holidays[i] = calendar.Holiday{Date: date, Name: h.Name, Kind: kind}
	}
	return cal, nil
}

// TimelineRuleRequest is the body of POST /admin/timeline-rules.
type TimelineRuleRequest struct {
	Service       string `json:"service"`
	Jurisdiction  string `json:"jurisdiction"`
	DurationUnits int    `json:"duration_units"`
	Unit          string `json:"unit"`
	EffectiveFrom string `json:"effective_from"`
	SourceVersion string `json:"source_version"`

	rule timeline.Rule
}

func (r *TimelineRuleRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Service, validation.Required),
		validation.Field(&r.Jurisdiction, validation.Required),
		validation.Field(&r.DurationUnits, validation.Required, validation.Min(1)),
		validation.Field(&r.Unit, validation.Required, validation.In(
			string(timeline.UnitCalendarDays), string(timeline.UnitWorkingDays),
		)),
		validation.Field(&r.EffectiveFrom, validation.Required, validation.Date(domain.DateLayout)),
		validation.Field(&r.SourceVersion, validation.Required, validation.Length(1, 128)),
	)
	if err != nil {
		return fieldError(err)
	}
	service, err := domain.ParseServiceID(r.Service)
	if err != nil {
		return err
	}
	jurisdiction, err := domain.ParseJurisdiction(r.Jurisdiction)
	if err != nil {
		return err
	}
	from, err := domain.ParseDate(r.EffectiveFrom)
	if err != nil {
		return err
	}
	r.rule = timeline.Rule{
		Service:       service,
		Jurisdiction:  jurisdiction,
		DurationUnits: r.DurationUnits,
		Unit:          timeline.Unit(r.Unit),
		EffectiveFrom: from,
		SourceVersion: r.SourceVersion,
	}
	return nil
}

func (h *AdminHandler) handlePublishCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	jurisdiction, err := domain.ParseJurisdiction(chi.URLParam(r, "jurisdiction"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1900 || year > 9999 {
		httputil.WriteError(w, dErrors.Field(dErrors.CodeValidation, "year", "year must be a four digit number"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[CalendarRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	cal, err := req.toCalendar(jurisdiction, year)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	published, err := h.calendars.Publish(ctx, cal)
	if err != nil {
		h.logger.WarnContext(ctx, "calendar publication rejected",
			"request_id", requestID,
			"jurisdiction", jurisdiction,
			"year", year,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"jurisdiction": published.Jurisdiction,
		"year":         published.Year,
		"holidays":     len(published.Holidays),
		"version":      published.Version,
	})
}

func (h *AdminHandler) handlePublishRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[TimelineRuleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	rule, err := h.rules.Publish(ctx, req.rule)
	if err != nil {
		h.logger.WarnContext(ctx, "timeline rule rejected", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"service":        rule.Service,
		"jurisdiction":   rule.Jurisdiction,
		"duration_units": rule.DurationUnits,
		"unit":           rule.Unit,
		"effective_from": rule.EffectiveFrom,
		"source_version": rule.SourceVersion,
	})
}

// handleReplaceSchemes takes the scheme catalog in its YAML file format.
func (h *AdminHandler) handleReplaceSchemes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSchemeBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not read request body"))
		return
	}
	rules, err := eligibilitycatalog.Parse(body)
	if err != nil {
		h.logger.WarnContext(ctx, "scheme catalog rejected", "request_id", requestID, "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, err.Error()))
		return
	}
	snap, err := h.schemes.Replace(rules)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, err.Error()))
		return
	}
	h.logger.InfoContext(ctx, "scheme catalog replaced",
		"request_id", requestID,
		"schemes", len(rules),
		"version", snap.Version(),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"schemes": len(rules), "version": snap.Version()})
}
