package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/church-schedule-api/internal/dto"
	"github.com/noah-isme/church-schedule-api/internal/models"
	appErrors "github.com/noah-isme/church-schedule-api/pkg/errors"
)

// feedNamespace scopes the deterministic UIDs of exported events.
var feedNamespace = uuid.MustParse("6f1c2a8e-3d4b-5c6d-8e9f-0a1b2c3d4e5f")

type monthProjector interface {
	Month(ctx context.Context, year, month int, view models.CalendarView) (*models.MonthProjection, bool, error)
}

type linkSigner interface {
	Generate(subject, claim string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (subject, claim string, expiresAt time.Time, err error)
}

// CalendarFeedConfig tunes the iCalendar export.
type CalendarFeedConfig struct {
	BaseURL  string
	Months   int
	Location *time.Location
}

// CalendarFeedService exports projected months as an iCalendar feed behind signed links.
type CalendarFeedService struct {
	calendar monthProjector
	signer   linkSigner
	cfg      CalendarFeedConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewCalendarFeedService constructs a CalendarFeedService.
func NewCalendarFeedService(calendar monthProjector, signer linkSigner, cfg CalendarFeedConfig, logger *zap.Logger) *CalendarFeedService {
	if cfg.Months <= 0 {
		cfg.Months = 3
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarFeedService{calendar: calendar, signer: signer, cfg: cfg, logger: logger, now: time.Now}
}

// Link issues a signed subscription URL for the given view.
func (s *CalendarFeedService) Link(subject string, view models.CalendarView) (*dto.FeedLink, error) {
	if subject == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing subject")
	}
	claim := url.Values{}
	claim.Set("teacher", view.TeacherID)
	claim.Set("room", view.RoomID)
	token, expiresAt, err := s.signer.Generate(subject, claim.Encode())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign feed link")
	}
	link := strings.TrimRight(s.cfg.BaseURL, "/") + "/calendar/feed.ics?token=" + url.QueryEscape(token)
	return &dto.FeedLink{URL: link, ExpiresAt: expiresAt}, nil
}

// Render validates token and serialises the current and following months.
func (s *CalendarFeedService) Render(ctx context.Context, token string) ([]byte, error) {
	_, claim, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid feed token")
	}
	values, err := url.ParseQuery(claim)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid feed token")
	}
	view := models.CalendarView{TeacherID: values.Get("teacher"), RoomID: values.Get("room")}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//church-schedule-api//calendar feed//EN")
	cal.SetXWRCalName(feedName(view))
	cal.SetXWRTimezone(s.cfg.Location.String())

	stamp := s.now().UTC()
	cursor := time.Date(stamp.Year(), stamp.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < s.cfg.Months; i++ {
		month := cursor.AddDate(0, i, 0)
		projection, _, err := s.calendar.Month(ctx, month.Year(), int(month.Month()), view)
		if err != nil {
			return nil, err
		}
		s.appendProjection(cal, projection, stamp)
	}
	return []byte(cal.Serialize()), nil
}

func (s *CalendarFeedService) appendProjection(cal *ics.Calendar, projection *models.MonthProjection, stamp time.Time) {
	if projection == nil {
		return
	}
	for _, day := range projection.Days {
		for _, event := range day.Events {
			uid := uuid.NewSHA1(feedNamespace, []byte(string(event.Source)+"|"+event.RefID+"|"+day.Date.String())).String()
			vevent := cal.AddEvent(uid)
			vevent.SetDtStampTime(stamp)
			vevent.SetSummary(eventSummary(event))
			if event.Window != nil {
				vevent.SetStartAt(event.Window.Start.On(day.Date.Time, s.cfg.Location))
				vevent.SetEndAt(event.Window.End.On(day.Date.Time, s.cfg.Location))
			} else {
				vevent.SetAllDayStartAt(day.Date.Time)
				vevent.SetAllDayEndAt(day.Date.AddDays(1).Time)
			}
			if event.RoomID != nil {
				vevent.SetLocation(*event.RoomID)
			}
			vevent.AddProperty(ics.ComponentPropertyCategories, string(event.Source))
		}
	}
}

func eventSummary(event models.CalendarEvent) string {
	title := event.Title
	if title == "" {
		title = event.RefID
	}
	if event.Source == models.CalendarSourceBlackout && event.Kind != "" {
		return fmt.Sprintf("[%s] %s", event.Kind, title)
	}
	return title
}

func feedName(view models.CalendarView) string {
	switch {
	case view.TeacherID != "" && view.RoomID != "":
		return fmt.Sprintf("Schedule teacher %s, room %s", view.TeacherID, view.RoomID)
	case view.TeacherID != "":
		return "Schedule teacher " + view.TeacherID
	case view.RoomID != "":
		return "Schedule room " + view.RoomID
	}
	return "Schedule"
}
