package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/SORA112117/At00-sub000/internal/dto"
	"github.com/SORA112117/At00-sub000/internal/model"
	"github.com/SORA112117/At00-sub000/internal/repository"
)

// ErrInvalidDate 日期格式错误
var ErrInvalidDate = errors.New("日期格式应为 YYYY-MM-DD")

// AttendanceService 出欠记录业务接口
type AttendanceService interface {
	Record(ctx context.Context, courseID uint64, req *dto.RecordAttendanceRequest) (*dto.RecordAttendanceResponse, error)
	Undo(ctx context.Context, courseID uint64) (*dto.UndoResponse, error)
	Remaining(ctx context.Context, courseID uint64) (*dto.RemainingResponse, error)
	ListRecords(ctx context.Context, courseID uint64) ([]dto.AttendanceRecordResponse, error)
	DeleteRecord(ctx context.Context, recordID uint64) error
	Statistics(ctx context.Context, semesterID string) ([]dto.StatisticsResponse, error)
	Alerts(ctx context.Context) ([]dto.AlertResponse, error)
}

type attendanceService struct {
	repo   *repository.Repository
	ledger *AbsenceLedger
	alerts *AlertService
	loc    *time.Location
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, ledger *AbsenceLedger, alerts *AlertService, loc *time.Location, logger *zap.Logger) AttendanceService {
	if loc == nil {
		loc = time.UTC
	}
	return &attendanceService{repo: repo, ledger: ledger, alerts: alerts, loc: loc, logger: logger}
}

func (s *attendanceService) Record(ctx context.Context, courseID uint64, req *dto.RecordAttendanceRequest) (*dto.RecordAttendanceResponse, error) {
	var date time.Time
	if req.Date != "" {
		d, err := time.ParseInLocation(dto.DateLayout, req.Date, s.loc)
		if err != nil {
			return nil, ErrInvalidDate
		}
		date = d
	}

	result, err := s.ledger.RecordAbsence(ctx, courseID, model.AttendanceType(req.Type), req.Memo, date)
	if err != nil {
		return nil, err
	}
	resp := &dto.RecordAttendanceResponse{
		Outcome:   string(result.Outcome),
		Absences:  result.Count,
		Remaining: result.Remaining,
		Alert:     result.Alert,
	}
	if result.Record != nil {
		resp.Record = toRecordResponse(result.Record)
	}
	return resp, nil
}

func (s *attendanceService) Undo(ctx context.Context, courseID uint64) (*dto.UndoResponse, error) {
	deleted, err := s.ledger.UndoLastRecord(ctx, courseID)
	if err != nil {
		return nil, err
	}
	remaining, err := s.Remaining(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return &dto.UndoResponse{Deleted: deleted, Absences: remaining.Absences, Remaining: remaining.Remaining}, nil
}

func (s *attendanceService) Remaining(ctx context.Context, courseID uint64) (*dto.RemainingResponse, error) {
	course, err := s.ledger.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	n, err := s.ledger.countForName(ctx, course.Name)
	if err != nil {
		return nil, err
	}
	return &dto.RemainingResponse{
		CourseID:  course.CourseID,
		Name:      course.Name,
		Absences:  n,
		Remaining: max(0, course.MaxAbsences-n),
	}, nil
}

func (s *attendanceService) ListRecords(ctx context.Context, courseID uint64) ([]dto.AttendanceRecordResponse, error) {
	records, err := s.ledger.ListRecords(ctx, courseID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AttendanceRecordResponse, 0, len(records))
	for i := range records {
		out = append(out, *toRecordResponse(&records[i]))
	}
	return out, nil
}

func (s *attendanceService) DeleteRecord(ctx context.Context, recordID uint64) error {
	return s.ledger.DeleteRecord(ctx, recordID)
}

func (s *attendanceService) Statistics(ctx context.Context, semesterID string) ([]dto.StatisticsResponse, error) {
	semester, err := resolveSemester(ctx, s.repo, semesterID)
	if err != nil {
		return nil, err
	}
	stats, err := s.ledger.Statistics(ctx, semester.SemesterID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StatisticsResponse, 0, len(stats))
	for i := range stats {
		st := &stats[i]
		counts := make(map[string]int, len(model.AttendanceTypes))
		for _, t := range model.AttendanceTypes {
			counts[string(t)] = st.Counts[t]
		}
		out = append(out, dto.StatisticsResponse{
			Name:          st.Name,
			TotalSessions: st.TotalSessions,
			MaxAbsences:   st.MaxAbsences,
			Absences:      st.Absences,
			Remaining:     st.Remaining,
			Counts:        counts,
		})
	}
	return out, nil
}

func (s *attendanceService) Alerts(ctx context.Context) ([]dto.AlertResponse, error) {
	alerts, err := s.alerts.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AlertResponse, 0, len(alerts))
	for i := range alerts {
		a := &alerts[i]
		out = append(out, dto.AlertResponse{
			ID:        a.AlertID,
			Kind:      a.Kind,
			Title:     a.Title,
			Body:      a.Body,
			TriggerAt: dto.FormatTimestamp(a.TriggerAt),
			Repeats:   a.Repeats,
		})
	}
	return out, nil
}
