package service

import (
	"context"
	"errors"
	"testing"
	"time"

	calendarcatalog "sahayak/internal/calendar/catalog"
	calendar "sahayak/internal/calendar/models"
	"sahayak/internal/collaborator"
	"sahayak/internal/collaborator/mocks"
	eligibility "sahayak/internal/eligibility/models"
	eligibilityservice "sahayak/internal/eligibility/service"
	eligibilitystore "sahayak/internal/eligibility/store"
	timelinecatalog "sahayak/internal/timeline/catalog"
	timeline "sahayak/internal/timeline/models"
	timelineservice "sahayak/internal/timeline/service"
	timelinestore "sahayak/internal/timeline/store"
	trackingservice "sahayak/internal/tracking/service"
	trackingstore "sahayak/internal/tracking/store"
	"sahayak/internal/workflow/machine"
	"sahayak/internal/workflow/models"
	"sahayak/internal/workflow/store"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/audit/publisher"
	auditmemory "sahayak/pkg/platform/audit/store/memory"
	"sahayak/pkg/platform/sentinel"
	"sahayak/pkg/requestcontext"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

const plain = domain.Jurisdiction("IN-PLAIN")

var t0 = time.Date(2024, time.February, 5, 10, 0, 0, 0, time.UTC)

// conflictingStore loses the first n version races.
type conflictingStore struct {
	*store.InMemory
	losses int
}

func (c *conflictingStore) CompareAndSwap(ctx context.Context, next *models.Session) (*models.Session, error) {
	if c.losses > 0 {
		c.losses--
		return nil, sentinel.ErrConflict
	}
	return c.InMemory.CompareAndSwap(ctx, next)
}

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	extractor  *mocks.MockExtractor
	speech     *mocks.MockSpeech
	retriever  *mocks.MockRetriever
	generator  *mocks.MockGenerator
	tracker    *trackingservice.Service
	sessions   *conflictingStore
	auditStore *auditmemory.InMemoryStore
	service    *Service
	owner      domain.OwnerID
	ctx        context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.extractor = mocks.NewMockExtractor(s.ctrl)
	s.speech = mocks.NewMockSpeech(s.ctrl)
	s.retriever = mocks.NewMockRetriever(s.ctrl)
	s.generator = mocks.NewMockGenerator(s.ctrl)

	cal := calendarcatalog.New()
	for _, year := range []int{2023, 2024, 2025} {
		_, _, err := cal.Publish(calendar.HolidayCalendar{Jurisdiction: plain, Year: year})
		s.Require().NoError(err)
	}
	rules := timelineservice.New(timelinecatalog.New(), timelinestore.NewInMemory())
	_, err := rules.Publish(context.Background(), timeline.Rule{
		Service: "income-certificate", Jurisdiction: plain, DurationUnits: 15,
		Unit: timeline.UnitWorkingDays, EffectiveFrom: domain.NewDate(2023, 1, 1), SourceVersion: "charter-2023",
	})
	s.Require().NoError(err)

	s.tracker = trackingservice.New(trackingstore.NewInMemory(), rules, cal)
	s.sessions = &conflictingStore{InMemory: store.NewInMemory()}
	s.auditStore = auditmemory.NewInMemoryStore()
	pub := publisher.NewPublisher(s.auditStore)
	s.service = New(s.sessions, Dependencies{
		Tracker:     s.tracker,
		Rules:       rules,
		Eligibility: eligibilityservice.New(eligibilitystore.NewInMemory(), eligibilityservice.WithAuditor(pub)),
		Extractor:   s.extractor,
		Speech:      s.speech,
		Retriever:   s.retriever,
		Generator:   s.generator,
	},
		WithAuditor(pub),
		WithMachine(machine.Config{Location: time.UTC}),
	)
	s.owner = domain.OwnerID(uuid.New())
	s.ctx = requestcontext.WithTime(context.Background(), t0)
}

func (s *ServiceSuite) start(flow models.Flow) *models.Session {
	session, err := s.service.Start(s.ctx, s.owner, "kn-IN")
	s.Require().NoError(err)
	session, err = s.service.Advance(s.ctx, s.owner, session.ID, models.Start{Flow: flow})
	s.Require().NoError(err)
	return session
}

func (s *ServiceSuite) advance(session *models.Session, ev models.Event) *models.Session {
	next, err := s.service.Advance(s.ctx, s.owner, session.ID, ev)
	s.Require().NoError(err)
	return next
}

func (s *ServiceSuite) actions() []string {
	events, err := s.auditStore.ListByOwner(context.Background(), s.owner)
	s.Require().NoError(err)
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (s *ServiceSuite) trackBreached() domain.ApplicationID {
	session := s.start(models.FlowDeadlineCheck)
	session = s.advance(session, models.ApplicationFacts{
		Service: "income-certificate", Jurisdiction: plain, SubmissionDate: domain.NewDate(2024, 1, 10),
	})
	s.Require().Equal(models.StateCompleted, session.State)
	return session.Outcome.Application.ID
}

func area(v float64) *float64 { return &v }

func (s *ServiceSuite) TestDeadlineCheckRunsToBreachVerdict() {
	session := s.start(models.FlowDeadlineCheck)
	s.Equal(models.StepAwaitFacts, session.Step)
	s.Equal("kn", session.Language)

	session = s.advance(session, models.ApplicationFacts{
		Service: "income-certificate", Jurisdiction: plain, SubmissionDate: domain.NewDate(2024, 1, 10),
	})
	s.Equal(models.StateCompleted, session.State)
	s.Require().NotNil(session.Outcome)
	s.Equal(models.SummaryDeadlineBreached, session.Outcome.Summary)
	s.Equal(domain.NewDate(2024, 1, 27), session.Outcome.Application.Deadline)
	s.Equal(9, session.Outcome.Application.OverdueDays)
	s.Equal(int64(5), session.Version)

	resumed, err := s.service.Resume(s.ctx, s.owner, session.ID)
	s.Require().NoError(err)
	s.Equal(session, resumed)

	s.Equal([]string{"session_started", "session_completed"}, s.actions())
}

func (s *ServiceSuite) TestManualProcessingTimeWhenNoRuleIsPublished() {
	session := s.start(models.FlowDeadlineCheck)
	session = s.advance(session, models.ApplicationFacts{
		Service: "ration-card", Jurisdiction: plain, SubmissionDate: domain.NewDate(2024, 1, 10),
	})
	s.Equal(models.StateAwaitingInput, session.State)
	s.Equal(models.StepAwaitRule, session.Step)
	s.Equal(models.ReasonNotFound, session.Prompt.Reason)

	session = s.advance(session, models.ManualRuleEntered{DurationUnits: 10, Unit: timeline.UnitCalendarDays})
	s.Equal(models.StateCompleted, session.State)
	s.Equal(domain.NewDate(2024, 1, 20), session.Outcome.Application.Deadline)

	records, err := s.tracker.ListByOwner(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(timeline.ManualPrefix+session.ID.String(), records[0].Rule.SourceVersion)
}

func (s *ServiceSuite) TestExtractionDropsLowConfidenceFields() {
	s.extractor.EXPECT().Extract(gomock.Any(), collaborator.DocumentRef{ID: "ack-1"}).Return(collaborator.Extraction{
		Fields: []collaborator.ExtractedField{
			{Name: models.FieldService, Value: "income-certificate", Confidence: 0.93},
			{Name: models.FieldJurisdiction, Value: "in-plain", Confidence: 0.88},
			{Name: models.FieldSubmissionDate, Value: "2024-01-10", Confidence: 0.41},
		},
	}, nil)

	session := s.start(models.FlowDeadlineCheck)
	session = s.advance(session, models.DocumentSubmitted{DocumentID: "ack-1"})
	s.Equal(models.StepAwaitManualFacts, session.Step)
	s.Equal(models.ReasonUnclear, session.Prompt.Reason)
	s.Equal([]string{models.FieldSubmissionDate}, session.Prompt.Missing)
	s.Equal(plain, session.Facts.Jurisdiction)

	session = s.advance(session, models.ApplicationFacts{SubmissionDate: domain.NewDate(2024, 1, 10)})
	s.Equal(models.StateCompleted, session.State)
	s.Equal(models.SummaryDeadlineBreached, session.Outcome.Summary)
}

func (s *ServiceSuite) TestEligibilityFlow() {
	schemes := []eligibility.SchemeRule{
		{ID: "irrigation-subsidy", Name: "Irrigation subsidy", MinArea: area(3.0), AllowedCategories: []string{"irrigated", "dry-land"}, BenefitAmount: 6000},
		{ID: "small-farmer", Name: "Small farmer support", MaxArea: area(2.0), BenefitAmount: 1000},
		{ID: "large-irrigated", Name: "Large irrigated holdings", MinArea: area(5.0), AllowedCategories: []string{"irrigated"}, BenefitAmount: 9000},
	}
	s.retriever.EXPECT().RetrieveSchemeRules(gomock.Any(), domain.Jurisdiction("IN-KA")).Return(schemes, nil)

	session := s.start(models.FlowEligibilityCheck)
	session = s.advance(session, models.ParcelsSubmitted{
		Jurisdiction: "IN-KA",
		Parcels: []eligibility.Parcel{
			{SurveyNumber: "12/1", Area: 2.0, AreaUnit: eligibility.UnitAcre, Category: "Dry Land"},
			{SurveyNumber: "12/2", Area: 1.5, AreaUnit: eligibility.UnitAcre, Category: "irrigated"},
		},
	})
	s.Equal(models.StateCompleted, session.State)
	s.Equal(models.SummaryEligibility, session.Outcome.Summary)
	result := session.Outcome.Eligibility
	s.Require().Len(result.Eligible, 1)
	s.Equal("irrigation-subsidy", result.Eligible[0].Scheme.ID)
	s.Equal(1.0, result.Eligible[0].Score)
	s.Require().Len(result.NearMiss, 1)
	s.Equal("large-irrigated", result.NearMiss[0].Scheme.ID)
	s.Equal(0.5, result.NearMiss[0].Score)
	s.Contains(s.actions(), "eligibility_evaluated")
}

func (s *ServiceSuite) TestInvalidParcelsAreAskedForAgain() {
	session := s.start(models.FlowEligibilityCheck)
	session = s.advance(session, models.ParcelsSubmitted{
		Jurisdiction: "IN-KA",
		Parcels:      []eligibility.Parcel{{SurveyNumber: "9", Area: -2, AreaUnit: eligibility.UnitAcre, Category: "wet"}},
	})
	s.Equal(models.StateAwaitingInput, session.State)
	s.Equal(models.StepAwaitParcels, session.Step)
	s.Equal(models.ReasonInvalid, session.Prompt.Reason)
}

func (s *ServiceSuite) TestNoSchemesPublished() {
	s.retriever.EXPECT().RetrieveSchemeRules(gomock.Any(), domain.Jurisdiction("IN-MZ")).
		Return(nil, collaborator.NewError(collaborator.ErrorNotFound, "retriever", "no schemes", nil))

	session := s.start(models.FlowEligibilityCheck)
	session = s.advance(session, models.ParcelsSubmitted{
		Jurisdiction: "IN-MZ",
		Parcels:      []eligibility.Parcel{{SurveyNumber: "4", Area: 1, AreaUnit: eligibility.UnitHectare, Category: "jhum"}},
	})
	s.Equal(models.StateCompleted, session.State)
	s.Equal(models.SummaryNoSchemes, session.Outcome.Summary)
}

func (s *ServiceSuite) TestDocumentExplanation() {
	fields := map[string]string{"notice_type": "rejection", "reason": "income proof missing"}
	s.extractor.EXPECT().Extract(gomock.Any(), collaborator.DocumentRef{ID: "notice-3"}).Return(collaborator.Extraction{
		Fields: []collaborator.ExtractedField{
			{Name: "notice_type", Value: "rejection", Confidence: 0.97},
			{Name: "reason", Value: "income proof missing", Confidence: 0.81},
		},
	}, nil)
	s.generator.EXPECT().Generate(gomock.Any(), collaborator.GenerationRequest{
		Kind: collaborator.GenerationExplanation, Language: "kn", Facts: fields,
	}).Return(collaborator.Generation{Text: "ನಿಮ್ಮ ಅರ್ಜಿ ತಿರಸ್ಕರಿಸಲಾಗಿದೆ", Language: "kn"}, nil)

	session := s.start(models.FlowDocumentExplanation)
	session = s.advance(session, models.DocumentSubmitted{DocumentID: "notice-3"})
	s.Equal(models.StateCompleted, session.State)
	s.Equal(models.SummaryDocumentExplained, session.Outcome.Summary)
	s.Equal("ನಿಮ್ಮ ಅರ್ಜಿ ತಿರಸ್ಕರಿಸಲಾಗಿದೆ", session.Outcome.Text)
}

func (s *ServiceSuite) TestGeneratorOutageIsRecoverable() {
	s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(collaborator.Extraction{
		Fields: []collaborator.ExtractedField{{Name: "notice_type", Value: "hearing", Confidence: 0.9}},
	}, nil)
	gomock.InOrder(
		s.generator.EXPECT().Generate(gomock.Any(), gomock.Any()).
			Return(collaborator.Generation{}, collaborator.NewError(collaborator.ErrorOutage, "generator", "down", nil)),
		s.generator.EXPECT().Generate(gomock.Any(), gomock.Any()).
			Return(collaborator.Generation{Text: "A hearing is scheduled."}, nil),
	)

	session := s.start(models.FlowDocumentExplanation)
	session = s.advance(session, models.DocumentSubmitted{DocumentID: "notice-4"})
	s.Equal(models.StateErrorRecoverable, session.State)
	s.Equal(models.StepAwaitExplanation, session.Step)
	s.Require().NotNil(session.Failure)
	s.Equal(dErrors.CodeUnavailable, session.Failure.Code)
	s.Equal(models.GuidanceFor(dErrors.CodeUnavailable).Cause, session.Failure.Message)

	session = s.advance(session, models.Retry{})
	s.Equal(models.StateCompleted, session.State)
	s.Equal("A hearing is scheduled.", session.Outcome.Text)
}

func (s *ServiceSuite) TestGrievanceDraftForBreachedApplication() {
	id := s.trackBreached()
	var got collaborator.GenerationRequest
	s.generator.EXPECT().Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req collaborator.GenerationRequest) (collaborator.Generation, error) {
			got = req
			return collaborator.Generation{Text: "To the Tahsildar"}, nil
		})

	session := s.start(models.FlowGrievanceDraft)
	session = s.advance(session, models.ApplicationSelected{ApplicationID: id})
	s.Equal(models.StateCompleted, session.State)
	s.Equal(models.SummaryGrievanceDrafted, session.Outcome.Summary)
	s.Equal(collaborator.GenerationGrievance, got.Kind)
	s.Equal("9", got.Facts["overdue_days"])
	s.Equal("2024-01-27", got.Facts["computed_deadline"])
}

func (s *ServiceSuite) TestGrievanceForUnknownApplicationIsReselected() {
	session := s.start(models.FlowGrievanceDraft)
	session = s.advance(session, models.ApplicationSelected{ApplicationID: domain.NewApplicationID()})
	s.Equal(models.StateAwaitingInput, session.State)
	s.Equal(models.StepSelectApplication, session.Step)
	s.Equal(models.ReasonInvalid, session.Prompt.Reason)
}

func (s *ServiceSuite) TestUnclearVoiceIsRerequested() {
	s.speech.EXPECT().Transcribe(gomock.Any(), gomock.Any()).
		Return(collaborator.Transcript{Text: "...", Language: "kn", Confidence: 0.3}, nil)

	session := s.start(models.FlowDeadlineCheck)
	session, err := s.service.SubmitVoice(s.ctx, s.owner, session.ID, collaborator.Audio{MediaType: "audio/ogg"})
	s.Require().NoError(err)
	s.Equal(models.StepAwaitFacts, session.Step)
	s.Equal(models.ReasonUnclear, session.Prompt.Reason)
}

func (s *ServiceSuite) TestSessionIsOnlyUsableByItsOwner() {
	session := s.start(models.FlowDeadlineCheck)
	stranger := domain.OwnerID(uuid.New())

	_, err := s.service.Resume(s.ctx, stranger, session.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	_, err = s.service.Advance(s.ctx, stranger, session.ID, models.Cancel{})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.Resume(s.ctx, s.owner, domain.NewSessionID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestLostVersionRacesAreReapplied() {
	session, err := s.service.Start(s.ctx, s.owner, "hi")
	s.Require().NoError(err)

	s.sessions.losses = 2
	next, err := s.service.Advance(s.ctx, s.owner, session.ID, models.Start{Flow: models.FlowEligibilityCheck})
	s.Require().NoError(err)
	s.Equal(models.StepAwaitParcels, next.Step)
	s.Equal(int64(2), next.Version)

	s.sessions.losses = 5
	_, err = s.service.Advance(s.ctx, s.owner, session.ID, models.Cancel{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.True(errors.Is(err, sentinel.ErrConflict))

	s.sessions.losses = 0
	resumed, err := s.service.Resume(s.ctx, s.owner, session.ID)
	s.Require().NoError(err)
	s.Equal(next, resumed)
}

func (s *ServiceSuite) TestTickRepeatsPromptAfterSilence() {
	session := s.start(models.FlowDeadlineCheck)
	idle, err := s.service.Start(s.ctx, s.owner, "en")
	s.Require().NoError(err)

	changed, err := s.service.Tick(requestcontext.WithTime(context.Background(), t0.Add(5*time.Second)), 2)
	s.Require().NoError(err)
	s.Zero(changed)

	changed, err = s.service.Tick(requestcontext.WithTime(context.Background(), t0.Add(12*time.Second)), 2)
	s.Require().NoError(err)
	s.Equal(1, changed)

	resumed, err := s.service.Resume(s.ctx, s.owner, session.ID)
	s.Require().NoError(err)
	s.Equal(models.StepAwaitFacts, resumed.Step)
	s.Equal(session.Prompt.Key, resumed.Prompt.Key)
	s.Equal(t0.Add(12*time.Second), resumed.LastPromptAt)
	s.Equal(t0, resumed.LastActivityAt)

	untouched, err := s.service.Resume(s.ctx, s.owner, idle.ID)
	s.Require().NoError(err)
	s.Equal(idle.Version, untouched.Version)
}

func (s *ServiceSuite) TestPurgeRemovesSessionsPastRetention() {
	old, err := s.service.Start(requestcontext.WithTime(context.Background(), t0.Add(-91*24*time.Hour)), s.owner, "en")
	s.Require().NoError(err)
	recent := s.start(models.FlowEligibilityCheck)

	var ran int
	worker := NewWorker(s.service,
		WithWorkerClock(func() time.Time { return t0 }),
		WithPurgeTask(PurgeTask{Name: "pending_deletions", Run: func(context.Context) error {
			ran++
			return nil
		}}),
	)
	s.Require().NoError(worker.PurgeOnce(context.Background()))
	s.Equal(1, ran)

	_, err = s.service.Resume(s.ctx, s.owner, old.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.service.Resume(s.ctx, s.owner, recent.ID)
	s.NoError(err)
	s.Contains(s.actions(), "session_purged")
}

func (s *ServiceSuite) TestDeleteByOwner() {
	s.start(models.FlowDeadlineCheck)
	s.start(models.FlowEligibilityCheck)
	n, err := s.service.DeleteByOwner(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Equal(2, n)

	sessions, err := s.service.ListByOwner(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Empty(sessions)
}
