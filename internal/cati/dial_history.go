package cati

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

// dialHistorySelect reads one row per dial. Dial seconds are derived from the
// start and end times rather than trusted from the dialler.
const dialHistorySelect = `
	SELECT dh.InstrumentId, COALESCE(i.Name, ''), dh.PrimaryKeyValue, dh.CallNumber, dh.DialNumber,
	       dh.Interviewer, dh.StartTime, dh.EndTime,
	       ABS(TIME_TO_SEC(TIMEDIFF(dh.EndTime, dh.StartTime))) AS dialsecs,
	       dh.Status, dh.DialResult
	FROM cati.DialHistory dh
	LEFT JOIN cati.Instrument i ON i.InstrumentId = dh.InstrumentId`

// readColumns are the report columns a DialHistory row supplies
var readColumns = []types.Column{
	types.ColumnInterviewer,
	types.ColumnQuestionnaireName,
	types.ColumnCallStartTime,
	types.ColumnCallEndTime,
	types.ColumnDialSecs,
	types.ColumnStatus,
	types.ColumnCallResult,
}

// Reader queries DialHistory
type Reader struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewReader(conn *Connection, logger zerolog.Logger) *Reader {
	return &Reader{
		db:     conn.DB,
		logger: logger.With().Str("component", "cati").Logger(),
	}
}

// GetCallHistory reads one interviewer's dials for the query's date range
func (r *Reader) GetCallHistory(ctx context.Context, q types.CallHistoryQuery) (types.RecordSet, error) {
	query, args := historyQuery(q)
	records, err := r.read(ctx, query, args...)
	if err != nil {
		return types.RecordSet{}, err
	}

	r.logger.Debug().
		Str("interviewer", q.Interviewer).
		Str("start_date", q.StartKey()).
		Str("end_date", q.EndKey()).
		Int("records", len(records)).
		Msg("dial history read")

	return types.RecordSet{Columns: types.NewColumnSet(readColumns...), Records: records}, nil
}

// ReadSince reads every interviewer's dials that started or ended on or after
// the given date. Used by the sync job.
func (r *Reader) ReadSince(ctx context.Context, since time.Time) ([]types.CallRecord, error) {
	query := dialHistorySelect + `
	WHERE DATE(COALESCE(dh.StartTime, dh.EndTime)) >= ?
	ORDER BY dh.Interviewer, dh.StartTime`
	return r.read(ctx, query, since.Format(types.DateLayout))
}

func (r *Reader) read(ctx context.Context, query string, args ...any) ([]types.CallRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dial history: %w", err)
	}
	defer rows.Close()

	var records []types.CallRecord
	for rows.Next() {
		var row dialRow
		if err := rows.Scan(
			&row.InstrumentID, &row.InstrumentName, &row.PrimaryKey, &row.CallNumber, &row.DialNumber,
			&row.Interviewer, &row.StartTime, &row.EndTime, &row.DialSecs,
			&row.Status, &row.DialResult,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dial history: %w", err)
		}
		records = append(records, row.toRecord())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dial history: %w", err)
	}
	return records, nil
}

// historyQuery builds the filtered SELECT for one interviewer. A dial is dated
// by its start time, falling back to its end time.
func historyQuery(q types.CallHistoryQuery) (string, []any) {
	var sb strings.Builder
	sb.WriteString(dialHistorySelect)
	sb.WriteString(`
	WHERE dh.Interviewer = ?
	  AND DATE(COALESCE(dh.StartTime, dh.EndTime)) BETWEEN ? AND ?`)
	args := []any{q.Interviewer, q.StartKey(), q.EndKey()}

	if q.SurveyTLA != "" {
		sb.WriteString("\n\t  AND i.Name LIKE ?")
		args = append(args, q.SurveyTLA+"%")
	}
	if len(q.Questionnaires) > 0 {
		sb.WriteString("\n\t  AND i.Name IN (?" + strings.Repeat(", ?", len(q.Questionnaires)-1) + ")")
		for _, name := range q.Questionnaires {
			args = append(args, name)
		}
	}
	sb.WriteString("\n\tORDER BY dh.StartTime")

	return sb.String(), args
}

type dialRow struct {
	InstrumentID   string
	InstrumentName string
	PrimaryKey     string
	CallNumber     int
	DialNumber     int
	Interviewer    string
	StartTime      sql.NullTime
	EndTime        sql.NullTime
	DialSecs       sql.NullFloat64
	Status         string
	DialResult     sql.NullString
}

func (row dialRow) toRecord() types.CallRecord {
	r := types.CallRecord{
		Interviewer:       row.Interviewer,
		QuestionnaireName: row.InstrumentName,
		Status:            row.Status,
	}
	if row.StartTime.Valid {
		t := row.StartTime.Time
		r.CallStartTime = &t
	}
	if row.EndTime.Valid {
		t := row.EndTime.Time
		r.CallEndTime = &t
	}
	if row.DialSecs.Valid {
		s := row.DialSecs.Float64
		r.DialSecs = &s
	}
	if row.DialResult.Valid {
		s := row.DialResult.String
		r.CallResult = &s
	}
	r.DialDate = types.DialDateFor(r)
	r.DialKey = types.DialKeyFor(r, fmt.Sprintf("%s-%s-%d-%d", row.InstrumentID, row.PrimaryKey, row.CallNumber, row.DialNumber))
	return r
}
